package dwnstore

import (
	"context"
	"sync"

	"github.com/ianpatton/dwn-go/dwn"
	cid "github.com/ipfs/go-cid"
)

// storedMessage is a message plus the indexes it was put under, keyed by
// its CID text form.
type storedMessage struct {
	message dwn.Message
	indexes Indexes
}

// MemMessageStore is a goroutine-safe, process-local MessageStore. It is
// the reference implementation used by the engine's own tests and is
// adequate for a single-process deployment; a durable deployment behind
// multiple processes needs a backing database, which can implement the same
// MessageStore interface (the interface split in interfaces.go exists
// exactly so a caller can swap this out).
//
// The per-tenant map-of-maps shape mirrors the teacher's
// massifs/storageinterface.go split between reading and committing, and its
// tenant-keyed isolation mirrors massifs/tenantblobpaths.go's tenant-scoped
// addressing applied to an in-memory index instead of blob paths.
type MemMessageStore struct {
	mu      sync.RWMutex
	tenants map[string]map[string]storedMessage
}

// NewMemMessageStore constructs an empty in-memory message store.
func NewMemMessageStore() *MemMessageStore {
	return &MemMessageStore{tenants: make(map[string]map[string]storedMessage)}
}

func (s *MemMessageStore) tenantMap(tenant string) map[string]storedMessage {
	m, ok := s.tenants[tenant]
	if !ok {
		m = make(map[string]storedMessage)
		s.tenants[tenant] = m
	}
	return m
}

func (s *MemMessageStore) Put(_ context.Context, tenant string, msg dwn.Message, indexes Indexes) error {
	c, err := dwn.CID(msg)
	if err != nil {
		return err
	}
	key := c.String()

	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.tenantMap(tenant)
	if _, exists := m[key]; exists {
		return nil // idempotent by cid
	}
	m[key] = storedMessage{message: msg, indexes: indexes}
	return nil
}

func (s *MemMessageStore) Query(_ context.Context, tenant string, filter Filter) ([]dwn.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []dwn.Message
	for _, sm := range s.tenants[tenant] {
		if filter.matchesAll(sm.indexes) {
			out = append(out, sm.message)
		}
	}
	return out, nil
}

func (s *MemMessageStore) Get(_ context.Context, tenant string, c cid.Cid) (dwn.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sm, ok := s.tenants[tenant][c.String()]
	if !ok {
		return dwn.Message{}, ErrNotFound
	}
	return sm.message, nil
}

func (s *MemMessageStore) Delete(_ context.Context, tenant string, c cid.Cid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.tenants[tenant]; ok {
		delete(m, c.String())
	}
	return nil
}

func (s *MemMessageStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants = make(map[string]map[string]storedMessage)
	return nil
}

// MemEventLog is a goroutine-safe, process-local EventLog. Append order is
// tracked explicitly (not derived from map iteration) so that cursors
// resolve consistently, per the pagination-cursor design note in
// SPEC_FULL.md section 9.
type MemEventLog struct {
	mu      sync.RWMutex
	tenants map[string][]cid.Cid
}

// NewMemEventLog constructs an empty in-memory event log.
func NewMemEventLog() *MemEventLog {
	return &MemEventLog{tenants: make(map[string][]cid.Cid)}
}

func (l *MemEventLog) Append(_ context.Context, tenant string, c cid.Cid) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tenants[tenant] = append(l.tenants[tenant], c)
	return nil
}

func (l *MemEventLog) GetEvents(_ context.Context, tenant string, cursor Cursor) ([]cid.Cid, Cursor, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	events := l.tenants[tenant]
	if cursor == "" {
		return append([]cid.Cid(nil), events...), nextCursor(events), nil
	}

	for i, c := range events {
		if c.String() == string(cursor) {
			rest := events[i+1:]
			return append([]cid.Cid(nil), rest...), nextCursor(events), nil
		}
	}
	return nil, cursor, ErrCursorInvalid
}

func nextCursor(events []cid.Cid) Cursor {
	if len(events) == 0 {
		return ""
	}
	return Cursor(events[len(events)-1].String())
}

func (l *MemEventLog) DeleteEventsByCID(_ context.Context, tenant string, cids []cid.Cid) error {
	if len(cids) == 0 {
		return nil
	}
	doomed := make(map[string]bool, len(cids))
	for _, c := range cids {
		doomed[c.String()] = true
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	events := l.tenants[tenant]
	kept := events[:0:0]
	for _, c := range events {
		if !doomed[c.String()] {
			kept = append(kept, c)
		}
	}
	l.tenants[tenant] = kept
	return nil
}

func (l *MemEventLog) Len(_ context.Context, tenant string) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.tenants[tenant]), nil
}
