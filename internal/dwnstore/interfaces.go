// Package dwnstore defines the three store collaborators the engine is
// built against — Message Store, Data Store, Event Log — plus in-memory
// reference implementations and an Azure Blob Storage-backed Data Store.
//
// The interface split mirrors the teacher's massifs/storageinterface.go
// approach of several small, composable interfaces (MassifReader,
// MassifCommitter, CheckpointReader, ...) rather than one broad interface
// that every implementation has to satisfy in full.
package dwnstore

import (
	"context"
	"io"

	"github.com/ianpatton/dwn-go/dwn"
	cid "github.com/ipfs/go-cid"
)

// Indexes is the set of index values a Put computes for a stored message.
// Recognized names are listed in SPEC_FULL.md section 6: interface, method,
// protocol, contextId, recordId, parentId, protocolPath, schema, dataFormat,
// recipient, permissionsGrantId, entryId, dateCreated, messageTimestamp,
// author.
type Indexes map[string]string

// FilterTerm matches either one exact value or membership in a fixed set,
// modelling the spec's "value or value-set" filter semantics.
type FilterTerm struct {
	Equals string
	OneOf  []string
}

// Eq builds a FilterTerm matching a single value.
func Eq(v string) FilterTerm { return FilterTerm{Equals: v} }

// In builds a FilterTerm matching any of the given values.
func In(vs ...string) FilterTerm { return FilterTerm{OneOf: vs} }

// Matches reports whether v satisfies the term.
func (t FilterTerm) Matches(v string) bool {
	if len(t.OneOf) > 0 {
		for _, o := range t.OneOf {
			if o == v {
				return true
			}
		}
		return false
	}
	return t.Equals == v
}

// Filter is a mapping of index name to the term a query requires it match.
type Filter map[string]FilterTerm

// matchesAll reports whether idx satisfies every term in f.
func (f Filter) matchesAll(idx Indexes) bool {
	for name, term := range f {
		if !term.Matches(idx[name]) {
			return false
		}
	}
	return true
}

// MessageStore is the per-tenant indexed metadata store.
type MessageStore interface {
	// Put persists msg under the given indexes. Idempotent by CID: putting
	// the same message (by CID) twice is a no-op on the second call.
	Put(ctx context.Context, tenant string, msg dwn.Message, indexes Indexes) error

	// Query returns every stored message whose indexes satisfy filter, in
	// unspecified order; callers sort using dwn.Ordinal.
	Query(ctx context.Context, tenant string, filter Filter) ([]dwn.Message, error)

	// Get returns the message stored under c for tenant, or ErrNotFound if
	// none is stored. Unlike Query, which scans by index, Get is a direct
	// lookup by the message's own content identifier.
	Get(ctx context.Context, tenant string, c cid.Cid) (dwn.Message, error)

	// Delete removes the message identified by c. Idempotent: deleting an
	// absent CID is not an error.
	Delete(ctx context.Context, tenant string, c cid.Cid) error

	// Clear removes every message for every tenant. Test-only.
	Clear(ctx context.Context) error
}

// DataStore is the opaque blob store, keyed by (tenant, recordId, dataCid).
type DataStore interface {
	Put(ctx context.Context, tenant, recordID string, dataCID cid.Cid, data []byte) error
	Get(ctx context.Context, tenant, recordID string, dataCID cid.Cid) (io.ReadCloser, error)
	Delete(ctx context.Context, tenant, recordID string, dataCID cid.Cid) error
}

// Cursor is an opaque pagination token; in every implementation here it is
// the text form of the last message CID the caller has already consumed, or
// the empty string for "start from the beginning" (see SPEC_FULL.md
// section 9's cursor-stability note).
type Cursor string

// EventLog is the per-tenant append-only CID sequence with surgical
// deletion, used for change-data capture and pagination.
type EventLog interface {
	Append(ctx context.Context, tenant string, c cid.Cid) error
	GetEvents(ctx context.Context, tenant string, cursor Cursor) (events []cid.Cid, next Cursor, err error)
	DeleteEventsByCID(ctx context.Context, tenant string, cids []cid.Cid) error

	// Len is a test/diagnostic helper exposing the current length of the
	// tenant's event sequence, used by the S7 retroactive-revoke scenario.
	Len(ctx context.Context, tenant string) (int, error)
}
