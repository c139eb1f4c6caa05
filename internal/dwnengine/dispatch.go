package dwnengine

import (
	"context"
	"strings"

	"github.com/ianpatton/dwn-go/dwn"
	"github.com/ianpatton/dwn-go/dwn/permissions"
	"github.com/ianpatton/dwn-go/dwn/protocol"
	"github.com/ianpatton/dwn-go/dwn/records"
)

// dispatchKey identifies one (interface, method) pair the engine knows how
// to handle — the closed enumeration SPEC_FULL.md section 9's "Dynamic
// dispatch by (interface, method)" design note calls for in place of
// open-world polymorphism.
type dispatchKey struct {
	Interface dwn.Interface
	Method    dwn.Method
}

// handler bundles the two steps that vary by (interface, method): parse
// validates msg's structural shape ahead of authentication, and handle
// runs authorization plus business logic once msg is authenticated, given
// the signer (requester) Engine.ProcessMessage already resolved. Signature
// authentication itself is not part of the table — every method shares the
// same step, so ProcessMessage runs it once, uniformly, between parse and
// handle.
type handler struct {
	parse  func(msg dwn.Message) error
	handle func(ctx context.Context, e *Engine, tenant, requester string, msg dwn.Message) (dwn.Reply, error)
}

var dispatchTable = map[dispatchKey]handler{
	{dwn.InterfaceRecords, dwn.MethodWrite}:  {parse: parseRecordsWrite, handle: handleRecordsWrite},
	{dwn.InterfaceRecords, dwn.MethodRead}:   {parse: parseRecordsRead, handle: handleRecordsRead},
	{dwn.InterfaceRecords, dwn.MethodQuery}:  {parse: parseRecordsQuery, handle: handleRecordsQuery},
	{dwn.InterfaceRecords, dwn.MethodDelete}: {parse: parseRecordsDelete, handle: handleRecordsDelete},

	{dwn.InterfaceProtocols, dwn.MethodConfigure}: {parse: parseProtocolsConfigure, handle: handleProtocolsConfigure},

	{dwn.InterfacePermissions, dwn.MethodGrant}:  {parse: parsePermissionsGrant, handle: handlePermissionsGrant},
	{dwn.InterfacePermissions, dwn.MethodRevoke}: {parse: parsePermissionsRevoke, handle: handlePermissionsRevoke},
}

func parseRecordsWrite(msg dwn.Message) error {
	if msg.RecordID == "" {
		return errMissingField("RecordsWrite", "recordId")
	}
	if msg.Descriptor.MessageTimestamp.IsZero() {
		return errMissingField("RecordsWrite", "messageTimestamp")
	}
	if msg.Descriptor.DataCID == "" && len(msg.Data) > 0 {
		return errInconsistentData("data present without a declared dataCid")
	}
	if msg.Descriptor.DataCID != "" && len(msg.Data) == 0 {
		return errInconsistentData("dataCid declared without accompanying data")
	}
	return nil
}

func parseRecordsRead(msg dwn.Message) error {
	if msg.RecordID == "" {
		return errMissingField("RecordsRead", "recordId")
	}
	return nil
}

func parseRecordsQuery(dwn.Message) error {
	return nil
}

func parseRecordsDelete(msg dwn.Message) error {
	if msg.RecordID == "" {
		return errMissingField("RecordsDelete", "recordId")
	}
	return nil
}

func parseProtocolsConfigure(msg dwn.Message) error {
	if msg.Descriptor.Definition == nil {
		return errMissingField("ProtocolsConfigure", "definition")
	}
	if msg.Descriptor.Definition.Protocol == "" {
		return errMissingField("ProtocolsConfigure", "definition.protocol")
	}
	return nil
}

func parsePermissionsGrant(msg dwn.Message) error {
	switch "" {
	case msg.Descriptor.GrantedBy:
		return errMissingField("PermissionsGrant", "grantedBy")
	case msg.Descriptor.GrantedTo:
		return errMissingField("PermissionsGrant", "grantedTo")
	case msg.Descriptor.GrantedFor:
		return errMissingField("PermissionsGrant", "grantedFor")
	}
	if msg.Descriptor.Scope == nil {
		return errMissingField("PermissionsGrant", "scope")
	}
	return nil
}

func parsePermissionsRevoke(msg dwn.Message) error {
	if msg.Descriptor.PermissionsGrantID == "" {
		return errMissingField("PermissionsRevoke", "permissionsGrantId")
	}
	return nil
}

func handleRecordsWrite(ctx context.Context, e *Engine, tenant, requester string, msg dwn.Message) (dwn.Reply, error) {
	if _, err := records.ApplyWrite(ctx, e.recordsDeps(), tenant, requester, msg); err != nil {
		return dwn.Reply{}, err
	}
	return dwn.Reply{Status: dwn.Status{Code: 202}}, nil
}

func handleRecordsRead(ctx context.Context, e *Engine, tenant, requester string, msg dwn.Message) (dwn.Reply, error) {
	found, data, err := records.ApplyRead(ctx, e.recordsDeps(), tenant, requester, msg.RecordID)
	if err != nil {
		return dwn.Reply{}, err
	}
	found.Data = data
	return dwn.Reply{Status: dwn.Status{Code: 202}, Entries: []dwn.Message{found}}, nil
}

func handleRecordsQuery(ctx context.Context, e *Engine, tenant, requester string, msg dwn.Message) (dwn.Reply, error) {
	var filter dwn.QueryFilter
	if msg.Descriptor.Filter != nil {
		filter = *msg.Descriptor.Filter
	}
	descending := strings.Contains(strings.ToLower(msg.Descriptor.DateSort), "descending")

	entries, err := records.ApplyQuery(ctx, e.recordsDeps(), tenant, requester, filter, descending)
	if err != nil {
		return dwn.Reply{}, err
	}
	return dwn.Reply{Status: dwn.Status{Code: 202}, Entries: entries}, nil
}

func handleRecordsDelete(ctx context.Context, e *Engine, tenant, requester string, msg dwn.Message) (dwn.Reply, error) {
	if _, err := records.ApplyDelete(ctx, e.recordsDeps(), tenant, requester, msg); err != nil {
		return dwn.Reply{}, err
	}
	return dwn.Reply{Status: dwn.Status{Code: 202}}, nil
}

func handleProtocolsConfigure(ctx context.Context, e *Engine, tenant, _ string, msg dwn.Message) (dwn.Reply, error) {
	if err := protocol.ApplyConfigure(ctx, e.store, tenant, msg, e.cfg.MaxProtocolDepth, e.cfg.MaxProtocolNodeCount); err != nil {
		return dwn.Reply{}, err
	}
	return dwn.Reply{Status: dwn.Status{Code: 202}}, nil
}

func handlePermissionsGrant(ctx context.Context, e *Engine, tenant, _ string, msg dwn.Message) (dwn.Reply, error) {
	if _, err := permissions.ApplyGrant(ctx, e.store, tenant, msg); err != nil {
		return dwn.Reply{}, err
	}
	return dwn.Reply{Status: dwn.Status{Code: 202}}, nil
}

func handlePermissionsRevoke(ctx context.Context, e *Engine, tenant, _ string, msg dwn.Message) (dwn.Reply, error) {
	if err := permissions.ApplyRevoke(ctx, e.store, e.events, e.tail, tenant, msg); err != nil {
		return dwn.Reply{}, err
	}
	return dwn.Reply{Status: dwn.Status{Code: 202}}, nil
}
