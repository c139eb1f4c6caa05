// Package dwnauth authenticates a message's signatures against the
// resolved DID documents of its claimed signers. Two signature envelope
// codecs are supported, selected by dwn.Signature.Scheme: compact JWS
// (jws.go) and COSE_Sign1 (cosesign1.go). Both are treated as external
// collaborators the authenticator merely dispatches to.
package dwnauth

import (
	"context"
	"fmt"
	"strings"

	"github.com/ianpatton/dwn-go/dwn"
	"github.com/ianpatton/dwn-go/internal/dwndid"
	"github.com/ianpatton/dwn-go/internal/dwnerrors"
)

// Verifier checks one Signature's envelope against the resolved DID
// document of the key it claims, and returns the DID that produced it. A
// Verifier never resolves the DID itself — the Authenticator does that once
// per signature and hands the document down, so a single resolver
// implementation (and its cache/retry policy) is shared across schemes.
type Verifier interface {
	Scheme() dwn.SignatureScheme
	Verify(ctx context.Context, doc dwndid.Document, sig dwn.Signature, signedBytes []byte) (signerDID string, err error)
}

// Authenticator verifies every signature on a message's authorization block
// and returns the DIDs that produced them, in signature order.
type Authenticator struct {
	resolver  dwndid.Resolver
	verifiers map[dwn.SignatureScheme]Verifier
}

// NewAuthenticator builds an Authenticator backed by resolver, dispatching
// to verifiers by their declared Scheme. Registering the same scheme twice
// is a configuration bug and panics at construction time rather than
// silently picking one.
func NewAuthenticator(resolver dwndid.Resolver, verifiers ...Verifier) *Authenticator {
	byScheme := make(map[dwn.SignatureScheme]Verifier, len(verifiers))
	for _, v := range verifiers {
		if _, exists := byScheme[v.Scheme()]; exists {
			panic(fmt.Sprintf("dwnauth: duplicate verifier registered for scheme %q", v.Scheme()))
		}
		byScheme[v.Scheme()] = v
	}
	return &Authenticator{resolver: resolver, verifiers: byScheme}
}

// DIDFromKeyID recovers the DID subject from a key id of the form
// "<did>#<fragment>", the convention every DID method in common use
// follows for verificationMethod ids. Exported because dwn/protocol applies
// the same rule to recover an ancestor message's author from its own
// signature rather than trusting an out-of-band index.
func DIDFromKeyID(kid string) string {
	if i := strings.IndexByte(kid, '#'); i >= 0 {
		return kid[:i]
	}
	return kid
}

// Authenticate verifies every signature on msg's authorization block and
// returns the signer DID of each signature, in signature order (a DID that
// signed twice appears twice). A message with no
// authorization block, or one with no signatures, always fails: every
// interface and method requires at least one signature (SPEC_FULL.md
// section 3).
func (a *Authenticator) Authenticate(ctx context.Context, msg dwn.Message) ([]string, error) {
	if msg.Authorization == nil || len(msg.Authorization.Signatures) == 0 {
		return nil, dwnerrors.New(dwnerrors.KindAuthenticationFailure, "AuthenticationMissingSignatures", "message carries no authorization signatures")
	}

	signedBytes, err := dwn.SignedBytes(msg)
	if err != nil {
		return nil, dwnerrors.Wrap(dwnerrors.KindMalformed, "AuthenticationCanonicalizationFailed", "failed to canonicalize signed portion of message", err)
	}

	signers := make([]string, 0, len(msg.Authorization.Signatures))
	for _, sig := range msg.Authorization.Signatures {
		verifier, ok := a.verifiers[sig.Scheme]
		if !ok {
			return nil, dwnerrors.New(dwnerrors.KindAuthenticationFailure, "AuthenticationUnsupportedScheme", fmt.Sprintf("no verifier registered for signature scheme %q", sig.Scheme))
		}

		did := DIDFromKeyID(sig.KeyID)
		if did == "" {
			return nil, dwnerrors.New(dwnerrors.KindAuthenticationFailure, "AuthenticationMissingKeyID", "signature carries no key id")
		}

		doc, err := a.resolver.Resolve(ctx, did)
		if err != nil {
			return nil, dwnerrors.Wrap(dwnerrors.KindAuthenticationFailure, "AuthenticationDIDResolutionFailed", fmt.Sprintf("resolving signer did %q", did), err)
		}

		signerDID, err := verifier.Verify(ctx, doc, sig, signedBytes)
		if err != nil {
			return nil, dwnerrors.Wrap(dwnerrors.KindAuthenticationFailure, "AuthenticationInvalidSignature", fmt.Sprintf("verifying signature from %q", did), err)
		}
		signers = append(signers, signerDID)
	}

	return signers, nil
}
