package records

import (
	"context"
	"io"

	"github.com/ianpatton/dwn-go/dwn"
	"github.com/ianpatton/dwn-go/dwn/protocol"
	"github.com/ianpatton/dwn-go/internal/dwncid"
	"github.com/ianpatton/dwn-go/internal/dwnerrors"
)

// ApplyRead resolves the newest write for recordID, authorizes requester for
// dwn.ActionRead when the record declares a protocol, and returns the
// write's descriptor plus its data blob (if any).
func ApplyRead(ctx context.Context, deps Dependencies, tenant, requester, recordID string) (dwn.Message, []byte, error) {
	newest, ok, err := newestRecordState(ctx, deps.Store, tenant, recordID)
	if err != nil {
		return dwn.Message{}, nil, err
	}
	if !ok || newest.Descriptor.Method == dwn.MethodDelete {
		return dwn.Message{}, nil, errNotFound(recordID)
	}

	if newest.Descriptor.Protocol != "" {
		if err := protocol.Authorize(ctx, deps.Store, deps.Cache, tenant, requester, newest, dwn.ActionRead); err != nil {
			return dwn.Message{}, nil, err
		}
	}

	if newest.Descriptor.DataCID == "" {
		return newest, nil, nil
	}

	dataCID, err := dwncid.Parse(newest.Descriptor.DataCID)
	if err != nil {
		return dwn.Message{}, nil, errMalformedMessage("dataCid does not parse as a CID")
	}
	rc, err := deps.Data.Get(ctx, tenant, recordID, dataCID)
	if err != nil {
		return dwn.Message{}, nil, dwnerrors.Wrap(dwnerrors.KindStoreFailure, "RecordsStoreFailure", "fetching data blob", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return dwn.Message{}, nil, dwnerrors.Wrap(dwnerrors.KindStoreFailure, "RecordsStoreFailure", "reading data blob", err)
	}
	return newest, data, nil
}
