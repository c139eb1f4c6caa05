package dwnstore

import (
	"sort"
	"sync"

	cid "github.com/ipfs/go-cid"
)

// TenantTailTracker records the most recently appended event CID for each
// tenant. It is adapted from the teacher's massifs/watcher/tailcollator.go
// LogTailCollator: that type tracks the highest-numbered massif/seal blob
// per tenant seen while scanning a blob listing, replacing its recorded tail
// only when a strictly newer one arrives. Here there is no numeric ordering
// to compare (events are appended, not numbered), so "newer" simply means
// "appended since the last call to Observe" — the tracker exists purely so
// a watcher/metrics loop can detect tenant activity without re-reading the
// whole event log on every tick, the same role LogTailCollator plays for a
// blob-listing scan.
type TenantTailTracker struct {
	mu    sync.Mutex
	tails map[string]cid.Cid
}

// NewTenantTailTracker constructs an empty tracker.
func NewTenantTailTracker() *TenantTailTracker {
	return &TenantTailTracker{tails: make(map[string]cid.Cid)}
}

// Observe records c as tenant's latest known event and reports whether this
// call changed the recorded tail (i.e. whether tenant is newly active since
// the last Observe for it).
func (t *TenantTailTracker) Observe(tenant string, c cid.Cid) (changed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev, ok := t.tails[tenant]
	if ok && prev.Equals(c) {
		return false
	}
	t.tails[tenant] = c
	return true
}

// Tail returns the last observed event CID for tenant, if any.
func (t *TenantTailTracker) Tail(tenant string) (cid.Cid, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.tails[tenant]
	return c, ok
}

// ActiveTenants returns the set of tenants with a recorded tail, sorted
// lexicographically so scans are deterministic across ticks — mirroring
// LogTailCollator.SortedMassifTenants.
func (t *TenantTailTracker) ActiveTenants() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	tenants := make([]string, 0, len(t.tails))
	for k := range t.tails {
		tenants = append(tenants, k)
	}
	sort.Strings(tenants)
	return tenants
}
