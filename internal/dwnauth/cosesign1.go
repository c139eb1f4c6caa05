package dwnauth

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"fmt"

	"github.com/veraison/go-cose"

	"github.com/ianpatton/dwn-go/dwn"
	"github.com/ianpatton/dwn-go/internal/dwndid"
)

// coseHeaderLabelDID is the private-use protected-header label carrying the
// signer's DID directly in the COSE envelope, the same label the teacher's
// cose package reads via DidFromProtectedHeader. Carrying it explicitly lets
// the envelope assert its own signer instead of requiring the caller to
// trust the outer dwn.Signature.KeyID, which arrives unauthenticated.
const coseHeaderLabelDID int64 = 391

// COSESign1Verifier verifies dwn.SchemeCOSESign1 signatures: a CBOR-encoded
// COSE_Sign1 message whose payload is the message's canonical signed bytes.
type COSESign1Verifier struct{}

// NewCOSESign1Verifier builds a COSESign1Verifier.
func NewCOSESign1Verifier() COSESign1Verifier { return COSESign1Verifier{} }

// Scheme implements Verifier.
func (COSESign1Verifier) Scheme() dwn.SignatureScheme { return dwn.SchemeCOSESign1 }

// Verify implements Verifier.
func (COSESign1Verifier) Verify(_ context.Context, doc dwndid.Document, sig dwn.Signature, signedBytes []byte) (string, error) {
	var msg cose.Sign1Message
	if err := msg.UnmarshalCBOR(sig.Envelope); err != nil {
		return "", fmt.Errorf("unmarshaling cose_sign1 envelope: %w", err)
	}

	vm, ok := doc.MethodByID(sig.KeyID)
	if !ok {
		return "", fmt.Errorf("did document %q has no verification method %q", doc.ID, sig.KeyID)
	}

	alg, err := msg.Headers.Protected.Algorithm()
	if err != nil {
		return "", fmt.Errorf("reading cose protected algorithm: %w", err)
	}

	var verifier cose.Verifier
	switch pub := vm.PublicKey.(type) {
	case ed25519.PublicKey:
		verifier, err = cose.NewVerifier(alg, pub)
	case *ecdsa.PublicKey:
		verifier, err = cose.NewVerifier(alg, pub)
	default:
		return "", fmt.Errorf("unsupported public key type %T for cose_sign1 verification", vm.PublicKey)
	}
	if err != nil {
		return "", fmt.Errorf("constructing cose verifier: %w", err)
	}

	if err := msg.Verify(nil, verifier); err != nil {
		return "", fmt.Errorf("verifying cose_sign1 signature: %w", err)
	}

	if !bytes.Equal(msg.Payload, signedBytes) {
		return "", errPayloadMismatch
	}

	if claimedDID, ok := msg.Headers.Protected[coseHeaderLabelDID]; ok {
		if didStr, ok := claimedDID.(string); ok && didStr != "" && didStr != doc.ID {
			return "", fmt.Errorf("cose envelope claims did %q, resolved key belongs to %q", didStr, doc.ID)
		}
	}

	return doc.ID, nil
}
