package protocol

import (
	"context"

	"github.com/ianpatton/dwn-go/dwn"
	"github.com/ianpatton/dwn-go/internal/dwnerrors"
	"github.com/ianpatton/dwn-go/internal/dwnstore"
)

// ApplyConfigure validates configure's protocol definition against the
// ingestion-time depth/node-count limits (ValidateDefinition) and, only if
// it passes, persists it as the newest definition on file for its
// protocol URI. fetchProtocolDefinition always resolves the newest stored
// ProtocolsConfigure by (messageTimestamp, CID), so a later configure for
// the same protocol URI simply supersedes an earlier one without any
// explicit revision bookkeeping here.
func ApplyConfigure(ctx context.Context, store dwnstore.MessageStore, tenant string, configure dwn.Message, maxDepth, maxNodeCount int) error {
	def := configure.Descriptor.Definition
	if def == nil {
		return errMissingDefinition()
	}
	if err := ValidateDefinition(*def, maxDepth, maxNodeCount); err != nil {
		return err
	}

	if err := store.Put(ctx, tenant, configure, dwnstore.Indexes{
		dwnstore.IndexInterface: string(dwn.InterfaceProtocols),
		dwnstore.IndexMethod:    string(dwn.MethodConfigure),
		dwnstore.IndexProtocol:  def.Protocol,
	}); err != nil {
		return dwnerrors.Wrap(dwnerrors.KindStoreFailure, "ProtocolsStoreFailure", "persisting protocol definition", err)
	}
	return nil
}
