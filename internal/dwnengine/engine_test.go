package dwnengine

import (
	"context"
	"crypto/ed25519"
	"sync"
	"testing"
	"time"

	josejwt "github.com/go-jose/go-jose/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ianpatton/dwn-go/dwn"
	"github.com/ianpatton/dwn-go/internal/dwnauth"
	"github.com/ianpatton/dwn-go/internal/dwncid"
	"github.com/ianpatton/dwn-go/internal/dwndid"
	"github.com/ianpatton/dwn-go/internal/dwnstore"
)

const (
	alice = "did:key:alice"
	bob   = "did:key:bob"
	carol = "did:key:carol"
)

// fakeResolver resolves the fixed set of test identities by DID, bypassing
// did:key decoding so tests can sign with plain ed25519 keys without
// constructing real multibase-encoded identifiers.
type fakeResolver struct {
	keys map[string]ed25519.PublicKey
}

func (f fakeResolver) Resolve(_ context.Context, did string) (dwndid.Document, error) {
	pub, ok := f.keys[did]
	if !ok {
		return dwndid.Document{}, dwndid.ErrMalformedDID
	}
	return dwndid.Document{
		ID:                 did,
		VerificationMethod: []dwndid.VerificationMethod{{ID: did + "#1", PublicKey: pub}},
	}, nil
}

type testFixture struct {
	engine   *Engine
	store    dwnstore.MessageStore
	data     dwnstore.DataStore
	events   dwnstore.EventLog
	privKeys map[string]ed25519.PrivateKey
}

func newFixture(t *testing.T) *testFixture {
	t.Helper()

	privKeys := make(map[string]ed25519.PrivateKey)
	pubKeys := make(map[string]ed25519.PublicKey)
	for _, did := range []string{alice, bob, carol} {
		pub, priv, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)
		privKeys[did] = priv
		pubKeys[did] = pub
	}

	resolver := fakeResolver{keys: pubKeys}
	auth := dwnauth.NewAuthenticator(resolver, dwnauth.NewJWSVerifier(), dwnauth.NewCOSESign1Verifier())

	store := dwnstore.NewMemMessageStore()
	data := dwnstore.NewMemDataStore()
	events := dwnstore.NewMemEventLog()

	engine := NewEngine(DefaultConfig(), zap.NewNop(), store, data, events, auth)

	return &testFixture{engine: engine, store: store, data: data, events: events, privKeys: privKeys}
}

// sign computes msg's canonical signed bytes and attaches a compact-JWS
// authorization signed by signer's key, mirroring
// internal/dwnauth/authenticator_test.go's signing helper.
func (f *testFixture) sign(t *testing.T, signer string, msg dwn.Message) dwn.Message {
	t.Helper()
	signedBytes, err := dwn.SignedBytes(msg)
	require.NoError(t, err)

	jwsSigner, err := josejwt.NewSigner(josejwt.SigningKey{Algorithm: josejwt.EdDSA, Key: f.privKeys[signer]}, nil)
	require.NoError(t, err)
	jws, err := jwsSigner.Sign(signedBytes)
	require.NoError(t, err)
	compact, err := jws.CompactSerialize()
	require.NoError(t, err)

	msg.Authorization = &dwn.Authorization{
		Signatures: []dwn.Signature{{Scheme: dwn.SchemeJWS, KeyID: signer + "#1", Envelope: []byte(compact)}},
	}
	return msg
}

const testProtocol = "https://example.com/protocol/thread"

func threadDefinition() *dwn.ProtocolDefinition {
	return &dwn.ProtocolDefinition{
		Protocol:  testProtocol,
		Published: true,
		Records: map[string]dwn.RuleSet{
			"note": {
				Allow: []dwn.AllowRule{
					{Actor: dwn.ActorAuthor, ProtocolPath: "note", Actions: []dwn.Action{dwn.ActionRead, dwn.ActionWrite}},
					{Actor: dwn.ActorRecipient, ProtocolPath: "note", Actions: []dwn.Action{dwn.ActionRead}},
				},
			},
		},
	}
}

func initialWriteDescriptor(t *testing.T, ts time.Time, recipient string) dwn.Descriptor {
	t.Helper()
	dataCID, err := dwncid.OfCanonicalBytes([]byte("hello"))
	require.NoError(t, err)
	return dwn.Descriptor{
		Interface:        dwn.InterfaceRecords,
		Method:           dwn.MethodWrite,
		MessageTimestamp: ts,
		Protocol:         testProtocol,
		ProtocolPath:     "note",
		Schema:           "",
		DataFormat:       "text/plain",
		DataCID:          dataCID.String(),
		DataSize:         int64(len("hello")),
		Recipient:        recipient,
	}
}

// TestEndToEndGrantWriteReadRevokeQuery exercises the full lifecycle: a
// protocol is configured, a record is written into it, read back by both
// the author and its recipient, a grant and its revoke round-trip, and a
// query returns the write to its author while eliding it from an
// unauthorized requester.
func TestEndToEndGrantWriteReadRevokeQuery(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	configure := f.sign(t, alice, dwn.Message{
		Descriptor: dwn.Descriptor{
			Interface:        dwn.InterfaceProtocols,
			Method:           dwn.MethodConfigure,
			MessageTimestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			Definition:       threadDefinition(),
		},
	})
	reply, err := f.engine.ProcessMessage(ctx, alice, configure)
	require.NoError(t, err)
	require.Equal(t, 202, reply.Status.Code)

	desc := initialWriteDescriptor(t, time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC), bob)
	entryID, err := dwn.EntryID(desc, alice)
	require.NoError(t, err)
	write := f.sign(t, alice, dwn.Message{
		Descriptor: desc,
		RecordID:   entryID.String(),
		Data:       []byte("hello"),
	})
	reply, err = f.engine.ProcessMessage(ctx, alice, write)
	require.NoError(t, err)
	require.Equal(t, 202, reply.Status.Code)

	// Author reads.
	readByAuthor := f.sign(t, alice, dwn.Message{
		Descriptor: dwn.Descriptor{Interface: dwn.InterfaceRecords, Method: dwn.MethodRead, MessageTimestamp: time.Now()},
		RecordID:   entryID.String(),
	})
	reply, err = f.engine.ProcessMessage(ctx, alice, readByAuthor)
	require.NoError(t, err)
	require.Equal(t, 202, reply.Status.Code)
	require.Len(t, reply.Entries, 1)
	require.Equal(t, []byte("hello"), reply.Entries[0].Data)

	// Recipient reads.
	readByRecipient := f.sign(t, bob, dwn.Message{
		Descriptor: dwn.Descriptor{Interface: dwn.InterfaceRecords, Method: dwn.MethodRead, MessageTimestamp: time.Now()},
		RecordID:   entryID.String(),
	})
	reply, err = f.engine.ProcessMessage(ctx, alice, readByRecipient)
	require.NoError(t, err)
	require.Equal(t, 202, reply.Status.Code)

	// Carol is neither author nor recipient.
	readByStranger := f.sign(t, carol, dwn.Message{
		Descriptor: dwn.Descriptor{Interface: dwn.InterfaceRecords, Method: dwn.MethodRead, MessageTimestamp: time.Now()},
		RecordID:   entryID.String(),
	})
	reply, err = f.engine.ProcessMessage(ctx, alice, readByStranger)
	require.NoError(t, err)
	require.Equal(t, 401, reply.Status.Code)

	// Query: Carol sees nothing, Alice sees the one write.
	queryByStranger := f.sign(t, carol, dwn.Message{
		Descriptor: dwn.Descriptor{Interface: dwn.InterfaceRecords, Method: dwn.MethodQuery, MessageTimestamp: time.Now()},
	})
	reply, err = f.engine.ProcessMessage(ctx, alice, queryByStranger)
	require.NoError(t, err)
	require.Equal(t, 202, reply.Status.Code)
	require.Empty(t, reply.Entries)

	queryByAuthor := f.sign(t, alice, dwn.Message{
		Descriptor: dwn.Descriptor{Interface: dwn.InterfaceRecords, Method: dwn.MethodQuery, MessageTimestamp: time.Now()},
	})
	reply, err = f.engine.ProcessMessage(ctx, alice, queryByAuthor)
	require.NoError(t, err)
	require.Equal(t, 202, reply.Status.Code)
	require.Len(t, reply.Entries, 1)

	// Grant then revoke.
	grant := f.sign(t, alice, dwn.Message{
		Descriptor: dwn.Descriptor{
			Interface:        dwn.InterfacePermissions,
			Method:           dwn.MethodGrant,
			MessageTimestamp: time.Date(2024, 1, 1, 0, 0, 2, 0, time.UTC),
			GrantedBy:        alice,
			GrantedTo:        bob,
			GrantedFor:       alice,
			Scope:            &dwn.GrantScope{Interface: dwn.InterfaceRecords, Protocol: testProtocol},
		},
	})
	reply, err = f.engine.ProcessMessage(ctx, alice, grant)
	require.NoError(t, err)
	require.Equal(t, 202, reply.Status.Code)

	grantCID, err := dwn.CID(grant)
	require.NoError(t, err)

	revoke := f.sign(t, alice, dwn.Message{
		Descriptor: dwn.Descriptor{
			Interface:          dwn.InterfacePermissions,
			Method:             dwn.MethodRevoke,
			MessageTimestamp:   time.Date(2024, 1, 1, 0, 0, 3, 0, time.UTC),
			PermissionsGrantID: grantCID.String(),
		},
	})
	reply, err = f.engine.ProcessMessage(ctx, alice, revoke)
	require.NoError(t, err)
	require.Equal(t, 202, reply.Status.Code)

	// The revoke was the last message committed for alice, so it is what a
	// watcher polling the tail tracker would see.
	require.Equal(t, []string{alice}, f.engine.ActiveTenants())
	revokeCID, err := dwn.CID(revoke)
	require.NoError(t, err)
	gotCID, ok := f.engine.TenantTail(alice)
	require.True(t, ok)
	require.True(t, revokeCID.Equals(gotCID))

	tailMsg, err := f.engine.TailMessage(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, dwn.InterfacePermissions, tailMsg.Descriptor.Interface)
	require.Equal(t, dwn.MethodRevoke, tailMsg.Descriptor.Method)
}

func TestTailMessageNotFoundForUntrackedTenant(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.TailMessage(context.Background(), alice)
	require.ErrorIs(t, err, dwnstore.ErrNotFound)
}

func TestProcessMessageRejectsUnsupportedInterfaceMethod(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	msg := f.sign(t, alice, dwn.Message{
		Descriptor: dwn.Descriptor{
			Interface:        dwn.Interface("Bogus"),
			Method:           dwn.Method("Frobnicate"),
			MessageTimestamp: time.Now(),
		},
	})
	reply, err := f.engine.ProcessMessage(ctx, alice, msg)
	require.NoError(t, err)
	require.Equal(t, 400, reply.Status.Code)
	require.Contains(t, reply.Status.Detail, "UnsupportedInterfaceMethod")
}

func TestProcessMessageRejectsMalformedWrite(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	msg := f.sign(t, alice, dwn.Message{
		Descriptor: dwn.Descriptor{
			Interface:        dwn.InterfaceRecords,
			Method:           dwn.MethodWrite,
			MessageTimestamp: time.Now(),
		},
		// RecordID deliberately omitted.
	})
	reply, err := f.engine.ProcessMessage(ctx, alice, msg)
	require.NoError(t, err)
	require.Equal(t, 400, reply.Status.Code)
	require.Contains(t, reply.Status.Detail, "RecordsWriteMissingField")
}

func TestProcessMessageRejectsUnauthenticatedMessage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	msg := dwn.Message{
		Descriptor: dwn.Descriptor{
			Interface:        dwn.InterfaceRecords,
			Method:           dwn.MethodQuery,
			MessageTimestamp: time.Now(),
		},
	}
	reply, err := f.engine.ProcessMessage(ctx, alice, msg)
	require.NoError(t, err)
	require.Equal(t, 401, reply.Status.Code)
}

// TestProcessMessageSerializesPerTenant submits many concurrent writes for
// the same tenant and the same recordId convergence target, and checks
// that the tenant's exclusive lock prevented any interleaving from
// corrupting the final Message Store state: exactly one write survives.
func TestProcessMessageSerializesPerTenant(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	desc := initialWriteDescriptor(t, base, bob)
	desc.Protocol = ""
	desc.ProtocolPath = ""
	entryID, err := dwn.EntryID(desc, alice)
	require.NoError(t, err)

	// Sign every message up front: testify's require.FailNow (used inside
	// f.sign) may only run on the test's own goroutine, so none of that can
	// happen inside the goroutines below.
	const n = 20
	msgs := make([]dwn.Message, n)
	for i := 0; i < n; i++ {
		d := desc
		d.MessageTimestamp = base.Add(time.Duration(i) * time.Millisecond)
		msgs[i] = f.sign(t, alice, dwn.Message{Descriptor: d, RecordID: entryID.String(), Data: []byte("hello")})
	}

	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.ProcessMessage(ctx, alice, msgs[i])
			errs[i] = err
		}()
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	results, err := f.store.Query(ctx, alice, dwnstore.Filter{
		dwnstore.IndexInterface: dwnstore.Eq(string(dwn.InterfaceRecords)),
		dwnstore.IndexMethod:    dwnstore.Eq(string(dwn.MethodWrite)),
		dwnstore.IndexRecordID:  dwnstore.Eq(entryID.String()),
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
}
