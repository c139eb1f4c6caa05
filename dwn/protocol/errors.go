package protocol

import (
	"fmt"

	"github.com/ianpatton/dwn-go/internal/dwnerrors"
)

func errAncestorMissing(parentID string) error {
	return dwnerrors.New(dwnerrors.KindNotFound, "AncestorMissing",
		fmt.Sprintf("no RecordsWrite found for ancestor recordId %q", parentID))
}

func errProtocolNotFound(uri string) error {
	return dwnerrors.New(dwnerrors.KindNotFound, "ProtocolNotFound",
		fmt.Sprintf("no ProtocolsConfigure found for protocol %q", uri))
}

func errIncorrectProtocolPath(want, got string) error {
	return dwnerrors.New(dwnerrors.KindAuthorizationFailure, "IncorrectProtocolPath",
		fmt.Sprintf("declared protocolPath %q does not match ancestor chain path %q", got, want))
}

func errMissingRuleSet(path string) error {
	return dwnerrors.New(dwnerrors.KindAuthorizationFailure, "MissingRuleSet",
		fmt.Sprintf("protocol definition has no rule-set at path %q", path))
}

func errInvalidRecordDefinition(detail string) error {
	return dwnerrors.New(dwnerrors.KindAuthorizationFailure, "InvalidRecordDefinition", detail)
}

func errUnauthorizedNoAllowRule() error {
	return dwnerrors.New(dwnerrors.KindAuthorizationFailure, "UnauthorizedNoAllowRule",
		"rule-set declares no allow rules; only the tenant itself may act")
}

func errActionNotAllowed(action string) error {
	return dwnerrors.New(dwnerrors.KindAuthorizationFailure, "ActionNotAllowed",
		fmt.Sprintf("no allow rule grants the requester the %q action", action))
}

func errAuthorMismatch() error {
	return dwnerrors.New(dwnerrors.KindAuthorizationFailure, "AuthorMismatch",
		"non-initial write's author does not match the initial write's author")
}

func errMalformedAuthorization(detail string) error {
	return dwnerrors.New(dwnerrors.KindMalformed, "AuthorizationMalformedMessage", detail)
}

func errExceedsMaxDepth(depth, max int) error {
	return dwnerrors.New(dwnerrors.KindMalformed, "ProtocolsConfigureExceedsMaxDepth",
		fmt.Sprintf("protocol definition depth %d exceeds configured maximum %d", depth, max))
}

func errExceedsMaxNodeCount(count, max int) error {
	return dwnerrors.New(dwnerrors.KindMalformed, "ProtocolsConfigureExceedsMaxNodeCount",
		fmt.Sprintf("protocol definition node count %d exceeds configured maximum %d", count, max))
}

func errMissingDefinition() error {
	return dwnerrors.New(dwnerrors.KindMalformed, "ProtocolsConfigureMissingDefinition",
		"ProtocolsConfigure carries no definition")
}
