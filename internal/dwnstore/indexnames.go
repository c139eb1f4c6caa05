package dwnstore

// Index names recognized across the engine's handlers. These are the keys
// every caller of MessageStore.Put/Query agrees on; the store itself treats
// an Indexes map as opaque string pairs, but callers need a shared
// vocabulary so a write's indexes and a later query's filter line up.
const (
	IndexInterface    = "interface"
	IndexMethod       = "method"
	IndexRecordID     = "recordId"
	IndexEntryID      = "entryId"
	IndexProtocol     = "protocol"
	IndexProtocolPath = "protocolPath"
	IndexContextID    = "contextId"
	IndexSchema       = "schema"
	IndexDataFormat   = "dataFormat"
	IndexRecipient    = "recipient"
	IndexAuthor       = "author"
	IndexGrantID      = "permissionsGrantId"
	IndexGrantedFor   = "grantedFor"
)
