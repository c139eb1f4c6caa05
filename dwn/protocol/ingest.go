package protocol

import "github.com/ianpatton/dwn-go/dwn"

// ValidateDefinition enforces the ingestion-time depth and node-count
// limits a ProtocolsConfigure must satisfy before it is ever persisted, so
// that Authorize's tree walk can assume the definition is finite and
// acyclic without re-checking either bound itself (SPEC_FULL.md section
// 4.2, "Protocol definition ingestion limits").
func ValidateDefinition(def dwn.ProtocolDefinition, maxDepth, maxNodeCount int) error {
	if depth := def.Depth(); depth > maxDepth {
		return errExceedsMaxDepth(depth, maxDepth)
	}
	if count := def.NodeCount(); count > maxNodeCount {
		return errExceedsMaxNodeCount(count, maxNodeCount)
	}
	return nil
}
