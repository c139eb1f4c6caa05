// Package permissions implements PermissionsGrant storage and the
// PermissionsRevoke convergence state machine described in SPEC_FULL.md
// section 4.3: the scenarios S1-S7 are this package's ground truth.
package permissions

import (
	"context"
	"time"

	"github.com/ianpatton/dwn-go/dwn"
	"github.com/ianpatton/dwn-go/internal/dwnauth"
	"github.com/ianpatton/dwn-go/internal/dwnerrors"
	"github.com/ianpatton/dwn-go/internal/dwnstore"
)

func authorOf(m dwn.Message) (string, error) {
	if m.Authorization == nil || len(m.Authorization.Signatures) == 0 {
		return "", dwnerrors.Malformed("PermissionsMalformedMessage", "message has no authorization signatures")
	}
	return dwnauth.DIDFromKeyID(m.Authorization.Signatures[0].KeyID), nil
}

// ApplyGrant persists an already-authenticated PermissionsGrant, indexed so
// PermissionsRevoke can look it up by its own CID.
func ApplyGrant(ctx context.Context, store dwnstore.MessageStore, tenant string, grant dwn.Message) (string, error) {
	grantCID, err := dwn.CID(grant)
	if err != nil {
		return "", dwnerrors.Wrap(dwnerrors.KindMalformed, "PermissionsGrantCanonicalizationFailed", "computing grant cid", err)
	}
	grantID := grantCID.String()

	if err := store.Put(ctx, tenant, grant, dwnstore.Indexes{
		dwnstore.IndexInterface:  string(dwn.InterfacePermissions),
		dwnstore.IndexMethod:     string(dwn.MethodGrant),
		dwnstore.IndexGrantID:    grantID,
		dwnstore.IndexGrantedFor: grant.Descriptor.GrantedFor,
	}); err != nil {
		return "", dwnerrors.Wrap(dwnerrors.KindStoreFailure, "PermissionsStoreFailure", "persisting grant", err)
	}
	return grantID, nil
}

// FetchGrant returns the stored PermissionsGrant whose CID equals grantID.
func FetchGrant(ctx context.Context, store dwnstore.MessageStore, tenant, grantID string) (dwn.Message, error) {
	results, err := store.Query(ctx, tenant, dwnstore.Filter{
		dwnstore.IndexInterface: dwnstore.Eq(string(dwn.InterfacePermissions)),
		dwnstore.IndexMethod:    dwnstore.Eq(string(dwn.MethodGrant)),
		dwnstore.IndexGrantID:   dwnstore.Eq(grantID),
	})
	if err != nil {
		return dwn.Message{}, dwnerrors.Wrap(dwnerrors.KindStoreFailure, "PermissionsStoreFailure", "querying grant", err)
	}
	if len(results) == 0 {
		return dwn.Message{}, errGrantNotFound(grantID)
	}
	return results[0], nil
}

// IsRevoked reports whether grantID currently has an accepted revoke on
// file. Since the convergence state machine maintains at-most-one accepted
// revoke per grant, existence alone answers the question.
func IsRevoked(ctx context.Context, store dwnstore.MessageStore, tenant, grantID string) (bool, error) {
	existing, err := fetchExistingRevoke(ctx, store, tenant, grantID)
	if err != nil {
		return false, err
	}
	return existing != nil, nil
}

// CheckScope verifies that a message presented under delegated authority
// (signed by grant.Descriptor.GrantedTo on behalf of GrantedFor) falls
// within the grant's declared scope and has neither expired nor been
// revoked as of messageTimestamp. This is the only place delegated grant
// authority is consulted; dwn/protocol.Authorize never looks at grants
// (SPEC_FULL.md section 9's recorded decision).
func CheckScope(ctx context.Context, store dwnstore.MessageStore, tenant string, grant dwn.Message, wantInterface dwn.Interface, wantMethod dwn.Method, wantProtocol string, messageTimestamp time.Time) error {
	scope := grant.Descriptor.Scope
	if scope == nil {
		return errUnauthorizedGrantScope("grant declares no scope")
	}
	if scope.Interface != wantInterface {
		return errUnauthorizedGrantScope("grant scope interface does not match")
	}
	if scope.Method != "" && scope.Method != wantMethod {
		return errUnauthorizedGrantScope("grant scope method does not match")
	}
	if scope.Protocol != "" && scope.Protocol != wantProtocol {
		return errUnauthorizedGrantScope("grant scope protocol does not match")
	}
	if grant.Descriptor.Expiry != nil && !messageTimestamp.Before(*grant.Descriptor.Expiry) {
		return errGrantExpired()
	}

	grantCID, err := dwn.CID(grant)
	if err != nil {
		return dwnerrors.Wrap(dwnerrors.KindMalformed, "PermissionsGrantCanonicalizationFailed", "computing grant cid", err)
	}
	revoked, err := IsRevoked(ctx, store, tenant, grantCID.String())
	if err != nil {
		return err
	}
	if revoked {
		return errGrantRevoked()
	}
	return nil
}
