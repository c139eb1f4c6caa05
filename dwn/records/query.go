package records

import (
	"context"
	"sort"

	"github.com/ianpatton/dwn-go/dwn"
	"github.com/ianpatton/dwn-go/dwn/protocol"
	"github.com/ianpatton/dwn-go/internal/dwnerrors"
	"github.com/ianpatton/dwn-go/internal/dwnstore"
)

// ApplyQuery runs a Message Store query narrowed to (interface=Records,
// method=Write) plus filter's index constraints, authorizes each candidate
// individually, and returns the authorized subset sorted by
// (messageTimestamp, CID) — ascending unless descending is true.
// Candidates requester may not Read are silently elided, never
// surfaced as a partial-authorization error (SPEC_FULL.md section 4.5).
func ApplyQuery(ctx context.Context, deps Dependencies, tenant, requester string, filter dwn.QueryFilter, descending bool) ([]dwn.Message, error) {
	storeFilter := dwnstore.Filter{
		dwnstore.IndexInterface: dwnstore.Eq(string(dwn.InterfaceRecords)),
		dwnstore.IndexMethod:    dwnstore.Eq(string(dwn.MethodWrite)),
	}
	if filter.RecordID != "" {
		storeFilter[dwnstore.IndexRecordID] = dwnstore.Eq(filter.RecordID)
	}
	if filter.Protocol != "" {
		storeFilter[dwnstore.IndexProtocol] = dwnstore.Eq(filter.Protocol)
	}
	if filter.ProtocolPath != "" {
		storeFilter[dwnstore.IndexProtocolPath] = dwnstore.Eq(filter.ProtocolPath)
	}
	if filter.ContextID != "" {
		storeFilter[dwnstore.IndexContextID] = dwnstore.Eq(filter.ContextID)
	}
	if filter.Schema != "" {
		storeFilter[dwnstore.IndexSchema] = dwnstore.Eq(filter.Schema)
	}
	if filter.DataFormat != "" {
		storeFilter[dwnstore.IndexDataFormat] = dwnstore.Eq(filter.DataFormat)
	}
	if filter.Recipient != "" {
		storeFilter[dwnstore.IndexRecipient] = dwnstore.Eq(filter.Recipient)
	}
	if filter.Author != "" {
		storeFilter[dwnstore.IndexAuthor] = dwnstore.Eq(filter.Author)
	}

	candidates, err := deps.Store.Query(ctx, tenant, storeFilter)
	if err != nil {
		return nil, dwnerrors.Wrap(dwnerrors.KindStoreFailure, "RecordsStoreFailure", "querying records", err)
	}

	protocol.WarmAncestorCache(ctx, deps.Store, deps.Cache, tenant, candidates, 8)

	type ordered struct {
		msg     dwn.Message
		ordinal dwn.Ordinal
	}
	authorized := make([]ordered, 0, len(candidates))
	for _, m := range candidates {
		if m.Descriptor.Protocol != "" {
			if err := protocol.Authorize(ctx, deps.Store, deps.Cache, tenant, requester, m, dwn.ActionRead); err != nil {
				continue
			}
		}
		c, err := dwn.CID(m)
		if err != nil {
			continue
		}
		authorized = append(authorized, ordered{msg: m, ordinal: dwn.OrdinalOf(m, c)})
	}

	sort.Slice(authorized, func(i, j int) bool {
		if descending {
			return authorized[j].ordinal.Less(authorized[i].ordinal)
		}
		return authorized[i].ordinal.Less(authorized[j].ordinal)
	})

	out := make([]dwn.Message, len(authorized))
	for i, o := range authorized {
		out[i] = o.msg
	}
	return out, nil
}
