package permissions

import (
	"fmt"

	"github.com/ianpatton/dwn-go/internal/dwnerrors"
)

func errGrantNotFound(grantID string) error {
	return dwnerrors.New(dwnerrors.KindNotFound, "GrantNotFound",
		fmt.Sprintf("Could not find PermissionsGrant with id %q", grantID))
}

func errRevokeBeforeGrant() error {
	return dwnerrors.New(dwnerrors.KindMalformed, "RevokeBeforeGrant",
		"revoke carries an earlier date than associated PermissionsGrant")
}

func errUnauthorizedRevoke() error {
	return dwnerrors.New(dwnerrors.KindAuthorizationFailure, "PermissionsRevokeUnauthorizedRevoke",
		"revoke author does not match the grant's grantedFor")
}

func errSuperseded() error {
	return dwnerrors.New(dwnerrors.KindConflict, "Superseded",
		"a revoke with an earlier (timestamp, cid) ordinal is already stored for this grant")
}

func errUnauthorizedGrantScope(detail string) error {
	return dwnerrors.New(dwnerrors.KindAuthorizationFailure, "UnauthorizedGrantScope", detail)
}

func errGrantExpired() error {
	return dwnerrors.New(dwnerrors.KindAuthorizationFailure, "UnauthorizedGrantScope",
		"grant has expired as of the message's own messageTimestamp")
}

func errGrantRevoked() error {
	return dwnerrors.New(dwnerrors.KindAuthorizationFailure, "UnauthorizedGrantScope",
		"grant has been revoked")
}
