// Package records implements the Records-Write convergence state machine and
// the Records-Read/Query/Delete handlers described in SPEC_FULL.md sections
// 4.4 and 4.5. It calls dwn/protocol.Authorize for every record that
// declares a protocol, and leaves delegated-grant scope checking to its
// caller (SPEC_FULL.md section 9's recorded decision: dwn/protocol never
// consults a grant, and neither does this package).
package records

import (
	"context"

	"github.com/ianpatton/dwn-go/dwn"
	"github.com/ianpatton/dwn-go/dwn/protocol"
	"github.com/ianpatton/dwn-go/internal/dwnauth"
	"github.com/ianpatton/dwn-go/internal/dwncid"
	"github.com/ianpatton/dwn-go/internal/dwnerrors"
	"github.com/ianpatton/dwn-go/internal/dwnstore"
)

// Dependencies bundles the store collaborators every handler in this
// package needs. It is deliberately a plain struct rather than an
// interface: the handlers are free functions taking Dependencies by value,
// mirroring the teacher's constructor-injected-dependencies idiom without
// introducing a receiver type that would imply handler-local state.
type Dependencies struct {
	Store dwnstore.MessageStore
	Data  dwnstore.DataStore
	Log   dwnstore.EventLog
	Cache *protocol.AncestorCache

	// Tail, if non-nil, is notified of each committed write/delete's event
	// CID so a watcher/metrics loop can detect tenant activity without
	// re-reading the whole event log (see dwnstore.TenantTailTracker).
	Tail *dwnstore.TenantTailTracker
}

// newestOf returns the message with the greatest (messageTimestamp, CID)
// ordinal among results, or false if results is empty.
func newestOf(results []dwn.Message) (dwn.Message, bool, error) {
	if len(results) == 0 {
		return dwn.Message{}, false, nil
	}
	best := results[0]
	bestCID, err := dwn.CID(best)
	if err != nil {
		return dwn.Message{}, false, dwnerrors.Wrap(dwnerrors.KindMalformed, "RecordsCanonicalizationFailed", "computing cid", err)
	}
	bestOrdinal := dwn.OrdinalOf(best, bestCID)

	for _, m := range results[1:] {
		c, err := dwn.CID(m)
		if err != nil {
			return dwn.Message{}, false, dwnerrors.Wrap(dwnerrors.KindMalformed, "RecordsCanonicalizationFailed", "computing cid", err)
		}
		o := dwn.OrdinalOf(m, c)
		if o.Greater(bestOrdinal) {
			best, bestOrdinal = m, o
		}
	}
	return best, true, nil
}

// newestRecordState returns the newest message (a RecordsWrite or a
// RecordsDelete, whichever is newest) on file for recordId. RecordsDelete
// supersedes exactly like any other write per SPEC_FULL.md section 4.5, so
// both methods are queried together.
func newestRecordState(ctx context.Context, store dwnstore.MessageStore, tenant, recordID string) (dwn.Message, bool, error) {
	results, err := store.Query(ctx, tenant, dwnstore.Filter{
		dwnstore.IndexInterface: dwnstore.Eq(string(dwn.InterfaceRecords)),
		dwnstore.IndexMethod:    dwnstore.In(string(dwn.MethodWrite), string(dwn.MethodDelete)),
		dwnstore.IndexRecordID:  dwnstore.Eq(recordID),
	})
	if err != nil {
		return dwn.Message{}, false, dwnerrors.Wrap(dwnerrors.KindStoreFailure, "RecordsStoreFailure", "querying current record state", err)
	}
	return newestOf(results)
}

// writeIndexes builds the Message Store indexes for a RecordsWrite or
// RecordsDelete. For a write it additionally stamps entryId — computed via
// dwn.EntryID from the write's own descriptor — so protocol.Authorize can
// later fetch a record's genuine initial write directly by entryId instead
// of confusing it with the protocol ancestor chain's root (see
// dwn/protocol/authorize.go's verifyAuthorContinuity).
func writeIndexes(m dwn.Message, method dwn.Method, tenant string) (dwnstore.Indexes, error) {
	idx := dwnstore.Indexes{
		dwnstore.IndexInterface:    string(dwn.InterfaceRecords),
		dwnstore.IndexMethod:       string(method),
		dwnstore.IndexRecordID:     m.RecordID,
		dwnstore.IndexContextID:    m.ContextID,
		dwnstore.IndexProtocol:     m.Descriptor.Protocol,
		dwnstore.IndexProtocolPath: m.Descriptor.ProtocolPath,
		dwnstore.IndexSchema:       m.Descriptor.Schema,
		dwnstore.IndexDataFormat:   m.Descriptor.DataFormat,
		dwnstore.IndexRecipient:    m.Descriptor.Recipient,
	}
	if m.Authorization != nil && len(m.Authorization.Signatures) > 0 {
		idx[dwnstore.IndexAuthor] = dwnauth.DIDFromKeyID(m.Authorization.Signatures[0].KeyID)
	}
	if method == dwn.MethodWrite {
		entryID, err := dwn.EntryID(m.Descriptor, tenant)
		if err != nil {
			return nil, dwnerrors.Wrap(dwnerrors.KindMalformed, "RecordsCanonicalizationFailed", "computing entryId", err)
		}
		idx[dwnstore.IndexEntryID] = dwncid.String(entryID)
	}
	return idx, nil
}
