// Package dwncbor wraps fxamacker/cbor/v2 with the deterministic encode and
// decode options canonical-CBOR content addressing requires: sorted map
// keys, no indefinite-length items, canonical float/bignum encoding. This
// mirrors the teacher's massifs/cborcodec.go and massifs/cose/cose.go
// deterministic-options pattern, generalized from one fixed options value to
// a reusable codec any caller can construct.
package dwncbor

import (
	"github.com/fxamacker/cbor/v2"
)

// Codec holds a matched pair of canonical encode/decode modes.
type Codec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// DeterministicEncOptions returns the canonical CBOR encode options required
// for content addressing: sorted map keys, fixed-length encoding, and
// shortest-form floats.
func DeterministicEncOptions() cbor.EncOptions {
	return cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		Time:          cbor.TimeRFC3339Nano,
		TimeTag:       cbor.EncTagNone,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsEmpty,
		ShortestFloat: cbor.ShortestFloat16,
	}
}

// DeterministicDecOptions returns decode options that are strict about the
// encodings DeterministicEncOptions can produce, and reject the constructs
// canonical CBOR forbids (indefinite length, duplicate map keys).
func DeterministicDecOptions() cbor.DecOptions {
	return cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthForbidden,
	}
}

// New constructs a Codec from the canonical option set above.
func New() (Codec, error) {
	enc, err := DeterministicEncOptions().EncMode()
	if err != nil {
		return Codec{}, err
	}
	dec, err := DeterministicDecOptions().DecMode()
	if err != nil {
		return Codec{}, err
	}
	return Codec{enc: enc, dec: dec}, nil
}

// Marshal encodes v as canonical CBOR.
func (c Codec) Marshal(v any) ([]byte, error) {
	return c.enc.Marshal(v)
}

// Unmarshal decodes canonical CBOR into v.
func (c Codec) Unmarshal(data []byte, v any) error {
	return c.dec.Unmarshal(data, v)
}

// defaultCodec is built once at package initialization and reused by
// package-level helpers; building
// an EncMode/DecMode is somewhat costly and the options never vary at
// runtime, so every caller that doesn't need a distinct instance shares this.
var defaultCodec = mustNew()

func mustNew() Codec {
	c, err := New()
	if err != nil {
		panic(err)
	}
	return c
}

// Marshal encodes v as canonical CBOR using the shared default codec.
func Marshal(v any) ([]byte, error) {
	return defaultCodec.Marshal(v)
}

// Unmarshal decodes canonical CBOR into v using the shared default codec.
func Unmarshal(data []byte, v any) error {
	return defaultCodec.Unmarshal(data, v)
}
