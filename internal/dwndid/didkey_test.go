package dwndid

import (
	"context"
	"crypto/ed25519"
	"testing"

	"github.com/multiformats/go-multibase"
	varint "github.com/multiformats/go-varint"
	"github.com/stretchr/testify/require"
)

func encodeDIDKey(t *testing.T, codec uint64, keyBytes []byte) string {
	t.Helper()
	prefix := varint.ToUvarint(codec)
	encoded, err := multibase.Encode(multibase.Base58BTC, append(prefix, keyBytes...))
	require.NoError(t, err)
	return "did:key:" + encoded
}

func TestKeyResolverResolvesEd25519(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	did := encodeDIDKey(t, codecEd25519Pub, pub)

	doc, err := NewKeyResolver().Resolve(context.Background(), did)
	require.NoError(t, err)
	require.Equal(t, did, doc.ID)
	require.Len(t, doc.VerificationMethod, 1)
	require.Equal(t, ed25519.PublicKey(pub), doc.VerificationMethod[0].PublicKey)
}

func TestKeyResolverRejectsOtherMethods(t *testing.T) {
	_, err := NewKeyResolver().Resolve(context.Background(), "did:web:example.com")
	require.ErrorIs(t, err, ErrUnsupportedDIDMethod)
}

func TestKeyResolverRejectsMalformedIdentifier(t *testing.T) {
	_, err := NewKeyResolver().Resolve(context.Background(), "did:key:not-multibase!!")
	require.ErrorIs(t, err, ErrMalformedDID)
}
