package dwn

import (
	"fmt"

	"github.com/ianpatton/dwn-go/internal/dwncbor"
	"github.com/ianpatton/dwn-go/internal/dwncid"
	cid "github.com/ipfs/go-cid"
)

// signedPortion is the canonical encoding shape signatures are computed
// over: the descriptor plus the fields that tie a record to its identity,
// explicitly excluding the authorization block itself (a signature cannot
// cover its own bytes).
type signedPortion struct {
	Descriptor Descriptor     `cbor:"descriptor"`
	RecordID   string         `cbor:"recordId,omitempty"`
	ContextID  string         `cbor:"contextId,omitempty"`
	Encryption map[string]any `cbor:"encryption,omitempty"`
}

// SignedBytes computes the canonical bytes a message's signatures are
// computed over: the descriptor, recordId, contextId, and encryption
// fields, canonically encoded, with the authorization block itself
// excluded. See SPEC_FULL.md section 3.
func SignedBytes(m Message) ([]byte, error) {
	b, err := dwncbor.Marshal(signedPortion{
		Descriptor: m.Descriptor,
		RecordID:   m.RecordID,
		ContextID:  m.ContextID,
		Encryption: m.Encryption,
	})
	if err != nil {
		return nil, fmt.Errorf("canonicalizing signed portion: %w", err)
	}
	return b, nil
}

// descriptorOnly is the canonical encoding shape for DescriptorCID: the
// descriptor alone, with no recordId/contextId/authorization/encryption.
type descriptorOnly struct {
	Descriptor Descriptor `cbor:"descriptor"`
}

// entryIDInput is the canonical encoding shape for EntryID: the descriptor
// plus the tenant, explicitly excluding recordId/contextId/authorization so
// that computing the record's own identity never depends on fields that in
// turn depend on that identity (the "chicken-and-egg" problem SPEC_FULL.md
// section 3 describes).
type entryIDInput struct {
	Descriptor Descriptor `cbor:"descriptor"`
	Tenant     string     `cbor:"tenant"`
}

// CID computes the message's content identifier: the CBOR-encoded SHA-256
// CID of the message including its authorization block, so that two
// messages are CID-equal iff they are equal in every respect a verifier
// would care about.
func CID(m Message) (cid.Cid, error) {
	c, err := dwncid.Of(m)
	if err != nil {
		return cid.Undef, fmt.Errorf("computing message cid: %w", err)
	}
	return c, nil
}

// DescriptorCID computes the CID of the descriptor alone, independent of
// authorization, recordId, or contextId.
func DescriptorCID(m Message) (cid.Cid, error) {
	c, err := dwncid.Of(descriptorOnly{Descriptor: m.Descriptor})
	if err != nil {
		return cid.Undef, fmt.Errorf("computing descriptor cid: %w", err)
	}
	return c, nil
}

// EntryID computes a record's stable identity from its initial write's
// descriptor and the tenant it was written to. The initial write's recordId
// must equal EntryID(descriptor, tenant); see SPEC_FULL.md section 3.
func EntryID(descriptor Descriptor, tenant string) (cid.Cid, error) {
	c, err := dwncid.Of(entryIDInput{Descriptor: descriptor, Tenant: tenant})
	if err != nil {
		return cid.Undef, fmt.Errorf("computing entry id: %w", err)
	}
	return c, nil
}

// IsInitialWrite reports whether m (a RecordsWrite) is the initial write for
// its record: it has no parentId, and its recordId equals its own entryId
// for the given tenant.
func IsInitialWrite(m Message, tenant string) (bool, error) {
	if m.Descriptor.ParentID != "" {
		return false, nil
	}
	entryID, err := EntryID(m.Descriptor, tenant)
	if err != nil {
		return false, err
	}
	return dwncid.String(entryID) == m.RecordID, nil
}

// Ordinal is the (timestamp, cid) pair used throughout the engine as the
// total order over messages: messages are compared first by
// messageTimestamp, then, on a tie, by lexicographic CID.
type Ordinal struct {
	Timestamp int64 // UnixNano, for simple comparison
	CID       cid.Cid
}

// OrdinalOf computes the Ordinal of m, requiring m's precomputed CID so
// callers that already have it (nearly everyone, since acceptance always
// needs the CID anyway) don't pay to recompute it.
func OrdinalOf(m Message, c cid.Cid) Ordinal {
	return Ordinal{Timestamp: m.Descriptor.MessageTimestamp.UnixNano(), CID: c}
}

// Less implements the total order: earlier timestamp wins; on a tie,
// lexicographically smaller CID wins.
func (o Ordinal) Less(other Ordinal) bool {
	if o.Timestamp != other.Timestamp {
		return o.Timestamp < other.Timestamp
	}
	return dwncid.Less(o.CID, other.CID)
}

// Greater is the strict converse of Less, used where the convergence rule
// is phrased in terms of "newer wins" (records-write) rather than "earlier
// wins" (revoke supersession), so call sites read the way the spec does.
func (o Ordinal) Greater(other Ordinal) bool {
	return other.Less(o)
}

// Equal reports whether two ordinals identify the same message.
func (o Ordinal) Equal(other Ordinal) bool {
	return o.Timestamp == other.Timestamp && dwncid.Equal(o.CID, other.CID)
}
