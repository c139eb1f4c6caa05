package records

import (
	"context"

	"github.com/ianpatton/dwn-go/dwn"
	"github.com/ianpatton/dwn-go/dwn/protocol"
	"github.com/ianpatton/dwn-go/internal/dwncid"
	"github.com/ianpatton/dwn-go/internal/dwnerrors"
	"github.com/ianpatton/dwn-go/internal/dwnstore"
)

// ApplyDelete runs a RecordsDelete through the same convergence state
// machine as a write (SPEC_FULL.md section 4.5): it is authorized exactly
// like a Write against the deleted record's protocol path, and on
// acceptance additionally removes the superseded write's data blob from the
// Data Store, since orphaned blobs are otherwise unreachable.
func ApplyDelete(ctx context.Context, deps Dependencies, tenant, requester string, del dwn.Message) (accepted bool, err error) {
	current, ok, err := newestRecordState(ctx, deps.Store, tenant, del.RecordID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, errNotFound(del.RecordID)
	}

	if current.Descriptor.Protocol != "" {
		if err := protocol.Authorize(ctx, deps.Store, deps.Cache, tenant, requester, current, dwn.ActionWrite); err != nil {
			return false, err
		}
	}

	newCID, err := dwn.CID(del)
	if err != nil {
		return false, dwnerrors.Wrap(dwnerrors.KindMalformed, "RecordsCanonicalizationFailed", "computing delete cid", err)
	}
	currentCID, err := dwn.CID(current)
	if err != nil {
		return false, dwnerrors.Wrap(dwnerrors.KindMalformed, "RecordsCanonicalizationFailed", "computing current cid", err)
	}
	if currentCID.Equals(newCID) {
		return true, nil
	}

	newOrdinal := dwn.OrdinalOf(del, newCID)
	currentOrdinal := dwn.OrdinalOf(current, currentCID)
	if !newOrdinal.Greater(currentOrdinal) {
		return false, nil
	}

	if current.Descriptor.DataCID != "" {
		dataCID, err := dwncid.Parse(current.Descriptor.DataCID)
		if err == nil {
			if err := deps.Data.Delete(ctx, tenant, current.RecordID, dataCID); err != nil {
				return false, dwnerrors.Wrap(dwnerrors.KindStoreFailure, "RecordsStoreFailure", "deleting superseded data blob", err)
			}
		}
	}

	// A RecordsDelete carries no protocol/schema fields of its own; index it
	// under the superseded write's protocol, protocolPath and contextId.
	// Ancestor-chain walks query method=Write only and never read these
	// entries.
	idx, err := writeIndexes(del, dwn.MethodDelete, tenant)
	if err != nil {
		return false, err
	}
	idx[dwnstore.IndexProtocol] = current.Descriptor.Protocol
	idx[dwnstore.IndexProtocolPath] = current.Descriptor.ProtocolPath
	idx[dwnstore.IndexContextID] = current.ContextID

	if err := deps.Store.Put(ctx, tenant, del, idx); err != nil {
		return false, dwnerrors.Wrap(dwnerrors.KindStoreFailure, "RecordsStoreFailure", "persisting delete", err)
	}
	if err := deps.Log.Append(ctx, tenant, newCID); err != nil {
		return false, dwnerrors.Wrap(dwnerrors.KindStoreFailure, "RecordsStoreFailure", "appending delete to event log", err)
	}
	if deps.Tail != nil {
		deps.Tail.Observe(tenant, newCID)
	}
	deps.Cache.Invalidate(tenant, del.RecordID)

	return true, nil
}
