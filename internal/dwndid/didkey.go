package dwndid

import (
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/multiformats/go-multibase"
	varint "github.com/multiformats/go-varint"
)

// did:key multicodec prefixes, from the multicodec table
// (https://github.com/multiformats/multicodec/blob/master/table.csv).
const (
	codecEd25519Pub uint64 = 0xed
	codecP256Pub    uint64 = 0x1200
)

var (
	// ErrUnsupportedDIDMethod is returned for any DID whose method is not
	// "key"; KeyResolver only ever resolves self-certifying did:key DIDs.
	ErrUnsupportedDIDMethod = errors.New("dwndid: unsupported did method, only did:key is resolvable")
	// ErrMalformedDID is returned when a did:key identifier is not a valid
	// multibase-encoded multicodec public key.
	ErrMalformedDID    = errors.New("dwndid: malformed did:key identifier")
	ErrUnsupportedKey  = errors.New("dwndid: unsupported did:key key type")
	ErrMalformedECKey  = errors.New("dwndid: malformed did:key EC public key")
)

// KeyResolver resolves did:key DIDs by decoding the public key embedded
// directly in the identifier — no network lookup, no ledger, no trust root
// beyond the key itself. This is the only resolver the engine's tests and
// examples need; production deployments decorate it (see Retrying) or wrap
// it with a did:web resolver for methods beyond did:key.
type KeyResolver struct{}

// NewKeyResolver constructs a KeyResolver.
func NewKeyResolver() KeyResolver { return KeyResolver{} }

// Resolve implements Resolver.
func (KeyResolver) Resolve(_ context.Context, did string) (Document, error) {
	if !strings.HasPrefix(did, "did:key:") {
		return Document{}, ErrUnsupportedDIDMethod
	}
	fragment := strings.TrimPrefix(did, "did:key:")
	// A did:key fragment may itself carry a "#<fragment>" key reference; the
	// identifier proper (and hence the encoded key) is the part before it.
	fragment = strings.SplitN(fragment, "#", 2)[0]

	_, data, err := multibase.Decode(fragment)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrMalformedDID, err)
	}

	codec, n, err := varint.FromUvarint(data)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrMalformedDID, err)
	}
	keyBytes := data[n:]

	vmID := fmt.Sprintf("%s#%s", did, fragment)

	var pub any
	switch codec {
	case codecEd25519Pub:
		if len(keyBytes) != ed25519.PublicKeySize {
			return Document{}, fmt.Errorf("%w: ed25519 key must be %d bytes, got %d", ErrMalformedDID, ed25519.PublicKeySize, len(keyBytes))
		}
		pub = ed25519.PublicKey(keyBytes)
	case codecP256Pub:
		key, err := decodeP256(keyBytes)
		if err != nil {
			return Document{}, err
		}
		pub = key
	default:
		return Document{}, fmt.Errorf("%w: multicodec 0x%x", ErrUnsupportedKey, codec)
	}

	return Document{
		ID: did,
		VerificationMethod: []VerificationMethod{{
			ID:        vmID,
			Type:      keyType(codec),
			PublicKey: pub,
		}},
	}, nil
}

func keyType(codec uint64) string {
	switch codec {
	case codecEd25519Pub:
		return "Ed25519VerificationKey2020"
	case codecP256Pub:
		return "JsonWebKey2020"
	default:
		return "unknown"
	}
}

// decodeP256 decodes an uncompressed SEC1 P-256 public key (0x04 || X || Y).
func decodeP256(b []byte) (*ecdsa.PublicKey, error) {
	curve := elliptic.P256()
	byteLen := (curve.Params().BitSize + 7) / 8
	if len(b) != 1+2*byteLen || b[0] != 0x04 {
		return nil, ErrMalformedECKey
	}
	x := new(big.Int).SetBytes(b[1 : 1+byteLen])
	y := new(big.Int).SetBytes(b[1+byteLen:])
	if !curve.IsOnCurve(x, y) {
		return nil, ErrMalformedECKey
	}
	return &ecdsa.PublicKey{Curve: curve, X: x, Y: y}, nil
}
