package dwn

import (
	"testing"
	"time"

	"github.com/ianpatton/dwn-go/internal/dwncid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleWrite(tenant string) Message {
	return Message{
		Descriptor: Descriptor{
			Interface:        InterfaceRecords,
			Method:           MethodWrite,
			MessageTimestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			Schema:           "https://example.com/schema/note",
			DataFormat:       "application/json",
			DataCID:          "bafy-example",
		},
		Authorization: &Authorization{
			Signatures: []Signature{{Scheme: SchemeJWS, KeyID: tenant + "#key-1", Envelope: []byte("sig")}},
		},
	}
}

func TestCIDStableAcrossRoundTrip(t *testing.T) {
	m := sampleWrite("did:example:alice")

	c1, err := CID(m)
	require.NoError(t, err)

	encoded, err := dwncid.Of(m)
	require.NoError(t, err)

	assert.True(t, dwncid.Equal(c1, encoded), "cid must be stable across re-encoding")
}

func TestCIDDeterministicForEqualMessages(t *testing.T) {
	m1 := sampleWrite("did:example:alice")
	m2 := sampleWrite("did:example:alice")

	c1, err := CID(m1)
	require.NoError(t, err)
	c2, err := CID(m2)
	require.NoError(t, err)

	assert.True(t, dwncid.Equal(c1, c2), "equal messages must yield equal cids")
}

func TestDescriptorCIDIgnoresAuthorization(t *testing.T) {
	m1 := sampleWrite("did:example:alice")
	m2 := sampleWrite("did:example:alice")
	m2.Authorization = &Authorization{Signatures: []Signature{{Scheme: SchemeJWS, KeyID: "different", Envelope: []byte("other")}}}

	d1, err := DescriptorCID(m1)
	require.NoError(t, err)
	d2, err := DescriptorCID(m2)
	require.NoError(t, err)

	assert.True(t, dwncid.Equal(d1, d2))

	c1, err := CID(m1)
	require.NoError(t, err)
	c2, err := CID(m2)
	require.NoError(t, err)
	assert.False(t, dwncid.Equal(c1, c2), "full message cid must depend on authorization")
}

func TestEntryIDMatchesInitialWriteRecordID(t *testing.T) {
	tenant := "did:example:alice"
	m := sampleWrite(tenant)

	entryID, err := EntryID(m.Descriptor, tenant)
	require.NoError(t, err)
	m.RecordID = dwncid.String(entryID)

	ok, err := IsInitialWrite(m, tenant)
	require.NoError(t, err)
	assert.True(t, ok)

	// A non-initial write (parentId set) is never "initial" regardless of
	// what its recordId happens to equal.
	m.Descriptor.ParentID = dwncid.String(entryID)
	ok, err = IsInitialWrite(m, tenant)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOrdinalTotalOrder(t *testing.T) {
	tenant := "did:example:alice"
	m := sampleWrite(tenant)
	c, err := CID(m)
	require.NoError(t, err)

	later := m
	later.Descriptor.MessageTimestamp = m.Descriptor.MessageTimestamp.Add(time.Second)
	cLater, err := CID(later)
	require.NoError(t, err)

	o1 := OrdinalOf(m, c)
	o2 := OrdinalOf(later, cLater)

	assert.True(t, o1.Less(o2))
	assert.True(t, o2.Greater(o1))
	assert.False(t, o1.Equal(o2))
}
