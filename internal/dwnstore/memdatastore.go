package dwnstore

import (
	"bytes"
	"context"
	"io"
	"sync"

	cid "github.com/ipfs/go-cid"
)

// MemDataStore is a goroutine-safe, process-local DataStore keyed by
// (tenant, recordId, dataCid). Reference implementation for tests and
// single-process deployments; see BlobDataStore for a durable backend.
type MemDataStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemDataStore constructs an empty in-memory data store.
func NewMemDataStore() *MemDataStore {
	return &MemDataStore{blobs: make(map[string][]byte)}
}

func dataKey(tenant, recordID string, dataCID cid.Cid) string {
	return tenant + "/" + recordID + "/" + dataCID.String()
}

func (s *MemDataStore) Put(_ context.Context, tenant, recordID string, dataCID cid.Cid, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := append([]byte(nil), data...)
	s.blobs[dataKey(tenant, recordID, dataCID)] = cp
	return nil
}

func (s *MemDataStore) Get(_ context.Context, tenant, recordID string, dataCID cid.Cid) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[dataKey(tenant, recordID, dataCID)]
	if !ok {
		return nil, ErrBlobNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (s *MemDataStore) Delete(_ context.Context, tenant, recordID string, dataCID cid.Cid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, dataKey(tenant, recordID, dataCID))
	return nil
}
