package dwnstore

import (
	"testing"

	cid "github.com/ipfs/go-cid"
	"github.com/stretchr/testify/require"

	"github.com/ianpatton/dwn-go/internal/dwncid"
)

func fakeTailCID(t *testing.T, s string) cid.Cid {
	t.Helper()
	c, err := dwncid.OfCanonicalBytes([]byte(s))
	require.NoError(t, err)
	return c
}

func TestTenantTailTrackerObserveReportsChange(t *testing.T) {
	tracker := NewTenantTailTracker()

	c1 := fakeTailCID(t, "first")
	require.True(t, tracker.Observe("did:example:alice", c1))

	// Re-observing the same CID is not a change.
	require.False(t, tracker.Observe("did:example:alice", c1))

	c2 := fakeTailCID(t, "second")
	require.True(t, tracker.Observe("did:example:alice", c2))

	got, ok := tracker.Tail("did:example:alice")
	require.True(t, ok)
	require.True(t, c2.Equals(got))
}

func TestTenantTailTrackerTailUnknownTenant(t *testing.T) {
	tracker := NewTenantTailTracker()
	_, ok := tracker.Tail("did:example:nobody")
	require.False(t, ok)
}

func TestTenantTailTrackerActiveTenantsSorted(t *testing.T) {
	tracker := NewTenantTailTracker()
	tracker.Observe("did:example:bob", fakeTailCID(t, "bob-1"))
	tracker.Observe("did:example:alice", fakeTailCID(t, "alice-1"))
	tracker.Observe("did:example:carol", fakeTailCID(t, "carol-1"))

	require.Equal(t, []string{"did:example:alice", "did:example:bob", "did:example:carol"}, tracker.ActiveTenants())
}
