// Package dwn defines the wire-level data model shared by every interface
// and method the engine implements: messages, descriptors, authorization
// blocks, protocol definitions, and the status/reply envelope returned by
// ProcessMessage. Method-specific handler logic lives in the sibling
// dwn/protocol, dwn/permissions, and dwn/records packages; this package only
// carries the types and the identity operations in identity.go.
package dwn

import "time"

// Interface names the top-level DWN interface a message targets.
type Interface string

const (
	InterfaceRecords     Interface = "Records"
	InterfaceProtocols   Interface = "Protocols"
	InterfacePermissions Interface = "Permissions"
)

// Method names the operation within an Interface.
type Method string

const (
	MethodWrite     Method = "Write"
	MethodRead      Method = "Read"
	MethodQuery     Method = "Query"
	MethodDelete    Method = "Delete"
	MethodConfigure Method = "Configure"
	MethodGrant     Method = "Grant"
	MethodRevoke    Method = "Revoke"
)

// Action is a permission granted by a protocol rule-set's allow rule.
type Action string

const (
	ActionRead  Action = "Read"
	ActionWrite Action = "Write"
)

// Actor names who an allow rule's actions apply to.
type Actor string

const (
	ActorAnyone    Actor = "Anyone"
	ActorAuthor    Actor = "Author"
	ActorRecipient Actor = "Recipient"
)

// GrantScope constrains the interface/method/protocol a PermissionsGrant
// authorizes.
type GrantScope struct {
	Interface Interface `cbor:"interface"`
	Method    Method    `cbor:"method,omitempty"`
	Protocol  string    `cbor:"protocol,omitempty"`
}

// QueryFilter is the set of index constraints a RecordsQuery applies, mapped
// directly onto the Message Store's recognized index names (see
// SPEC_FULL.md section 6).
type QueryFilter struct {
	RecordID     string `cbor:"recordId,omitempty"`
	Protocol     string `cbor:"protocol,omitempty"`
	ProtocolPath string `cbor:"protocolPath,omitempty"`
	ContextID    string `cbor:"contextId,omitempty"`
	Schema       string `cbor:"schema,omitempty"`
	DataFormat   string `cbor:"dataFormat,omitempty"`
	Recipient    string `cbor:"recipient,omitempty"`
	Author       string `cbor:"author,omitempty"`
}

// Descriptor carries the interface, method, timestamp, and every
// method-specific field a message may declare. Unused fields are simply
// left zero; handlers' parse steps check that the fields their method
// requires are present, and do not check that irrelevant ones are absent.
type Descriptor struct {
	Interface        Interface `cbor:"interface"`
	Method           Method    `cbor:"method"`
	MessageTimestamp time.Time `cbor:"messageTimestamp"`

	// RecordsWrite / RecordsDelete
	DateCreated  *time.Time `cbor:"dateCreated,omitempty"`
	ParentID     string     `cbor:"parentId,omitempty"`
	Protocol     string     `cbor:"protocol,omitempty"`
	ProtocolPath string     `cbor:"protocolPath,omitempty"`
	Schema       string     `cbor:"schema,omitempty"`
	DataFormat   string     `cbor:"dataFormat,omitempty"`
	DataCID      string     `cbor:"dataCid,omitempty"`
	DataSize     int64      `cbor:"dataSize,omitempty"`
	Recipient    string     `cbor:"recipient,omitempty"`
	Published    bool       `cbor:"published,omitempty"`

	// ProtocolsConfigure
	Definition *ProtocolDefinition `cbor:"definition,omitempty"`

	// PermissionsGrant
	GrantedBy   string      `cbor:"grantedBy,omitempty"`
	GrantedTo   string      `cbor:"grantedTo,omitempty"`
	GrantedFor  string      `cbor:"grantedFor,omitempty"`
	Scope       *GrantScope `cbor:"scope,omitempty"`
	Expiry      *time.Time  `cbor:"expiry,omitempty"`
	Description string      `cbor:"description,omitempty"`

	// PermissionsRevoke
	PermissionsGrantID string `cbor:"permissionsGrantId,omitempty"`

	// RecordsQuery
	Filter   *QueryFilter `cbor:"filter,omitempty"`
	DateSort string       `cbor:"dateSort,omitempty"`
}

// SignatureScheme names which signature envelope codec produced a
// Signature's Envelope bytes. The engine treats the wire codec as an
// external collaborator (SPEC_FULL.md section 1); this tag just lets the
// Authenticator pick the matching dwnauth.Verifier adapter.
type SignatureScheme string

const (
	SchemeJWS       SignatureScheme = "jws"
	SchemeCOSESign1 SignatureScheme = "cosesign1"
)

// Signature is one entry in a message's signature chain: a fully-formed
// signature envelope (a compact JWS or a COSE_Sign1 message) plus the
// scheme tag needed to select a verifier and the key id the envelope's
// protected header claims, surfaced here for indexing/logging without
// re-parsing the envelope.
type Signature struct {
	Scheme   SignatureScheme `cbor:"scheme"`
	KeyID    string          `cbor:"kid"`
	Envelope []byte          `cbor:"envelope"`
}

// Authorization carries the signature(s) over the canonical hash of the
// descriptor (and, for records, of recordId/contextId/encryption; see
// SignedBytes). Messages carry no attestation field, so none is signed.
type Authorization struct {
	Signatures []Signature `cbor:"signatures"`
}

// Message is the top-level envelope every interface/method shares.
type Message struct {
	Descriptor    Descriptor     `cbor:"descriptor"`
	Authorization *Authorization `cbor:"authorization,omitempty"`
	RecordID      string         `cbor:"recordId,omitempty"`
	ContextID     string         `cbor:"contextId,omitempty"`
	Encryption    map[string]any `cbor:"encryption,omitempty"`

	// Data carries the opaque record payload out-of-band; it is never part
	// of the signed/hashed envelope (identity.go never marshals it), mirroring
	// the spec's separation of the message (metadata) from the data blob.
	Data []byte `cbor:"-"`
}

// Status is the HTTP-aligned outcome of processing one message.
type Status struct {
	Code   int    `json:"code"`
	Detail string `json:"detail,omitempty"`
}

// Reply is what ProcessMessage returns. Entries is populated by
// RecordsRead/RecordsQuery.
type Reply struct {
	Status  Status    `json:"status"`
	Entries []Message `json:"entries,omitempty"`
}
