package dwnstore

import (
	"context"
	"testing"
	"time"

	"github.com/ianpatton/dwn-go/dwn"
	cid "github.com/ipfs/go-cid"
	"github.com/stretchr/testify/require"
)

func grantMessage(ts time.Time) dwn.Message {
	return dwn.Message{
		Descriptor: dwn.Descriptor{
			Interface:        dwn.InterfacePermissions,
			Method:           dwn.MethodGrant,
			MessageTimestamp: ts,
			GrantedBy:        "did:example:alice",
			GrantedTo:        "did:example:bob",
			GrantedFor:       "did:example:alice",
		},
		Authorization: &dwn.Authorization{Signatures: []dwn.Signature{{Scheme: dwn.SchemeJWS, KeyID: "did:example:alice#1"}}},
	}
}

func TestMessageStorePutQueryDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemMessageStore()

	msg := grantMessage(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	c, err := dwn.CID(msg)
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "did:example:alice", msg, Indexes{
		"interface": string(dwn.InterfacePermissions),
		"method":    string(dwn.MethodGrant),
	}))

	results, err := store.Query(ctx, "did:example:alice", Filter{"method": Eq(string(dwn.MethodGrant))})
	require.NoError(t, err)
	require.Len(t, results, 1)

	got, err := store.Get(ctx, "did:example:alice", c)
	require.NoError(t, err)
	gotCID, err := dwn.CID(got)
	require.NoError(t, err)
	require.True(t, c.Equals(gotCID))

	// Putting the same message again is a no-op, not a duplicate entry.
	require.NoError(t, store.Put(ctx, "did:example:alice", msg, Indexes{"method": string(dwn.MethodGrant)}))
	results, err = store.Query(ctx, "did:example:alice", Filter{"method": Eq(string(dwn.MethodGrant))})
	require.NoError(t, err)
	require.Len(t, results, 1)

	require.NoError(t, store.Delete(ctx, "did:example:alice", c))
	results, err = store.Query(ctx, "did:example:alice", Filter{"method": Eq(string(dwn.MethodGrant))})
	require.NoError(t, err)
	require.Empty(t, results)

	_, err = store.Get(ctx, "did:example:alice", c)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestEventLogSpliceDeletion(t *testing.T) {
	ctx := context.Background()
	log := NewMemEventLog()

	early := grantMessage(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	late := grantMessage(time.Date(2024, 1, 1, 0, 0, 10, 0, time.UTC))

	cEarly, err := dwn.CID(early)
	require.NoError(t, err)
	cLate, err := dwn.CID(late)
	require.NoError(t, err)

	require.NoError(t, log.Append(ctx, "did:example:alice", cEarly))
	require.NoError(t, log.Append(ctx, "did:example:alice", cLate))

	n, err := log.Len(ctx, "did:example:alice")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	// Delete the middle (here, first) entry surgically; the remainder keeps
	// its relative order, per the "splice" semantics in SPEC_FULL.md.
	require.NoError(t, log.DeleteEventsByCID(ctx, "did:example:alice", []cid.Cid{cEarly}))

	n, err = log.Len(ctx, "did:example:alice")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	events, _, err := log.GetEvents(ctx, "did:example:alice", "")
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, cLate.String(), events[0].String())
}
