package dwnauth

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/veraison/go-cose"
	"github.com/stretchr/testify/require"

	"github.com/ianpatton/dwn-go/dwn"
	"github.com/ianpatton/dwn-go/internal/dwndid"
)

func signCOSE1(t *testing.T, priv ed25519.PrivateKey, payload []byte, did string) []byte {
	t.Helper()

	signer, err := cose.NewSigner(cose.AlgorithmEdDSA, priv)
	require.NoError(t, err)

	msg := cose.Sign1Message{
		Headers: cose.Headers{
			Protected: cose.ProtectedHeader{
				cose.HeaderLabelAlgorithm: cose.AlgorithmEdDSA,
				coseHeaderLabelDID:        did,
			},
		},
		Payload: payload,
	}
	require.NoError(t, msg.Sign(rand.Reader, nil, signer))

	encoded, err := msg.MarshalCBOR()
	require.NoError(t, err)
	return encoded
}

func TestCOSESign1VerifierAcceptsValidSignature(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	signed := []byte("canonical-signed-bytes")
	envelope := signCOSE1(t, priv, signed, "did:key:alice")

	doc := dwndid.Document{
		ID:                 "did:key:alice",
		VerificationMethod: []dwndid.VerificationMethod{{ID: "did:key:alice#1", PublicKey: pub}},
	}
	sig := dwn.Signature{Scheme: dwn.SchemeCOSESign1, KeyID: "did:key:alice#1", Envelope: envelope}

	signerDID, err := NewCOSESign1Verifier().Verify(context.Background(), doc, sig, signed)
	require.NoError(t, err)
	require.Equal(t, "did:key:alice", signerDID)
}

func TestCOSESign1VerifierRejectsDIDClaimMismatch(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	signed := []byte("canonical-signed-bytes")
	envelope := signCOSE1(t, priv, signed, "did:key:someone-else")

	doc := dwndid.Document{
		ID:                 "did:key:alice",
		VerificationMethod: []dwndid.VerificationMethod{{ID: "did:key:alice#1", PublicKey: pub}},
	}
	sig := dwn.Signature{Scheme: dwn.SchemeCOSESign1, KeyID: "did:key:alice#1", Envelope: envelope}

	_, err = NewCOSESign1Verifier().Verify(context.Background(), doc, sig, signed)
	require.Error(t, err)
}

func TestCOSESign1VerifierRejectsPayloadMismatch(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	envelope := signCOSE1(t, priv, []byte("original"), "did:key:alice")

	doc := dwndid.Document{
		ID:                 "did:key:alice",
		VerificationMethod: []dwndid.VerificationMethod{{ID: "did:key:alice#1", PublicKey: pub}},
	}
	sig := dwn.Signature{Scheme: dwn.SchemeCOSESign1, KeyID: "did:key:alice#1", Envelope: envelope}

	_, err = NewCOSESign1Verifier().Verify(context.Background(), doc, sig, []byte("tampered"))
	require.ErrorIs(t, err, errPayloadMismatch)
}
