package dwnauth

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"errors"
	"fmt"

	josejwt "github.com/go-jose/go-jose/v4"

	"github.com/ianpatton/dwn-go/dwn"
	"github.com/ianpatton/dwn-go/internal/dwndid"
)

var errPayloadMismatch = errors.New("dwnauth: jws payload does not match canonical signed bytes")

// JWSVerifier verifies dwn.SchemeJWS signatures: a compact-serialized JSON
// Web Signature whose payload is the message's canonical signed bytes.
type JWSVerifier struct {
	allowedAlgorithms []josejwt.SignatureAlgorithm
}

// NewJWSVerifier builds a JWSVerifier. With no algorithms given it accepts
// the two algorithms did:key can produce: EdDSA (Ed25519) and ES256
// (P-256), matching the key types dwndid.KeyResolver understands.
func NewJWSVerifier(allowed ...josejwt.SignatureAlgorithm) JWSVerifier {
	if len(allowed) == 0 {
		allowed = []josejwt.SignatureAlgorithm{josejwt.EdDSA, josejwt.ES256}
	}
	return JWSVerifier{allowedAlgorithms: allowed}
}

// Scheme implements Verifier.
func (JWSVerifier) Scheme() dwn.SignatureScheme { return dwn.SchemeJWS }

// Verify implements Verifier.
func (v JWSVerifier) Verify(_ context.Context, doc dwndid.Document, sig dwn.Signature, signedBytes []byte) (string, error) {
	parsed, err := josejwt.ParseSigned(string(sig.Envelope), v.allowedAlgorithms)
	if err != nil {
		return "", fmt.Errorf("parsing compact jws: %w", err)
	}
	if len(parsed.Signatures) != 1 {
		return "", fmt.Errorf("expected exactly one jws signature, got %d", len(parsed.Signatures))
	}

	vm, ok := doc.MethodByID(sig.KeyID)
	if !ok {
		return "", fmt.Errorf("did document %q has no verification method %q", doc.ID, sig.KeyID)
	}

	var payload []byte
	switch pub := vm.PublicKey.(type) {
	case ed25519.PublicKey:
		payload, err = parsed.Verify(pub)
	case *ecdsa.PublicKey:
		payload, err = parsed.Verify(pub)
	default:
		return "", fmt.Errorf("unsupported public key type %T for jws verification", vm.PublicKey)
	}
	if err != nil {
		return "", fmt.Errorf("verifying jws signature: %w", err)
	}

	if !bytes.Equal(payload, signedBytes) {
		return "", errPayloadMismatch
	}

	return doc.ID, nil
}
