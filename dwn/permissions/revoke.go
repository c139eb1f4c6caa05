package permissions

import (
	"context"

	cid "github.com/ipfs/go-cid"

	"github.com/ianpatton/dwn-go/dwn"
	"github.com/ianpatton/dwn-go/internal/dwnerrors"
	"github.com/ianpatton/dwn-go/internal/dwnstore"
)

// fetchExistingRevoke returns the currently accepted revoke for grantID, if
// any. The convergence invariant (at most one accepted revoke per grant)
// means this never needs to disambiguate among several.
func fetchExistingRevoke(ctx context.Context, store dwnstore.MessageStore, tenant, grantID string) (*dwn.Message, error) {
	results, err := store.Query(ctx, tenant, dwnstore.Filter{
		dwnstore.IndexInterface: dwnstore.Eq(string(dwn.InterfacePermissions)),
		dwnstore.IndexMethod:    dwnstore.Eq(string(dwn.MethodRevoke)),
		dwnstore.IndexGrantID:   dwnstore.Eq(grantID),
	})
	if err != nil {
		return nil, dwnerrors.Wrap(dwnerrors.KindStoreFailure, "PermissionsStoreFailure", "querying existing revoke", err)
	}
	if len(results) == 0 {
		return nil, nil
	}
	return &results[0], nil
}

// ApplyRevoke runs the full PermissionsRevoke convergence state machine
// described in SPEC_FULL.md section 4.3 against an already-authenticated
// revoke message, and returns the outcome: nil on acceptance (the revoke is
// now the grant's single accepted revoke), or a *dwnerrors.EngineError
// otherwise.
//
// The revoke's signer must already equal revoke's own author per
// Authenticate; ApplyRevoke additionally checks that author against the
// grant's grantedFor, since the grant alone determines who may revoke it.
//
// tail, if non-nil, is notified of the revoke's event CID after it commits,
// so a watcher/metrics loop polling TenantTailTracker.ActiveTenants sees
// this tenant's activity without re-reading the whole event log.
func ApplyRevoke(ctx context.Context, store dwnstore.MessageStore, log dwnstore.EventLog, tail *dwnstore.TenantTailTracker, tenant string, revoke dwn.Message) error {
	grantID := revoke.Descriptor.PermissionsGrantID

	grant, err := FetchGrant(ctx, store, tenant, grantID)
	if err != nil {
		return err
	}

	if revoke.Descriptor.MessageTimestamp.Before(grant.Descriptor.MessageTimestamp) {
		return errRevokeBeforeGrant()
	}

	revokeAuthor, err := authorOf(revoke)
	if err != nil {
		return err
	}
	if revokeAuthor != grant.Descriptor.GrantedFor {
		return errUnauthorizedRevoke()
	}

	revokeCID, err := dwn.CID(revoke)
	if err != nil {
		return dwnerrors.Wrap(dwnerrors.KindMalformed, "PermissionsRevokeCanonicalizationFailed", "computing revoke cid", err)
	}
	revokeOrdinal := dwn.OrdinalOf(revoke, revokeCID)

	existing, err := fetchExistingRevoke(ctx, store, tenant, grantID)
	if err != nil {
		return err
	}

	if existing != nil {
		existingCID, err := dwn.CID(*existing)
		if err != nil {
			return dwnerrors.Wrap(dwnerrors.KindMalformed, "PermissionsRevokeCanonicalizationFailed", "computing existing revoke cid", err)
		}
		existingOrdinal := dwn.OrdinalOf(*existing, existingCID)

		switch {
		case existingOrdinal.Equal(revokeOrdinal):
			// Already the accepted revoke; idempotent no-op.
			return nil
		case existingOrdinal.Less(revokeOrdinal):
			// The stored revoke has an earlier (timestamp, cid) ordinal and
			// wins; the incoming one is superseded.
			return errSuperseded()
		default:
			// The incoming revoke has the earlier ordinal and supersedes
			// the stored one: accept it, and tombstone the loser so a
			// replay of the event log converges to the same state.
			if err := store.Delete(ctx, tenant, existingCID); err != nil {
				return dwnerrors.Wrap(dwnerrors.KindStoreFailure, "PermissionsStoreFailure", "deleting superseded revoke", err)
			}
			if err := log.DeleteEventsByCID(ctx, tenant, []cid.Cid{existingCID}); err != nil {
				return dwnerrors.Wrap(dwnerrors.KindStoreFailure, "PermissionsStoreFailure", "purging superseded revoke from event log", err)
			}
		}
	}

	if err := store.Put(ctx, tenant, revoke, dwnstore.Indexes{
		dwnstore.IndexInterface: string(dwn.InterfacePermissions),
		dwnstore.IndexMethod:    string(dwn.MethodRevoke),
		dwnstore.IndexGrantID:   grantID,
	}); err != nil {
		return dwnerrors.Wrap(dwnerrors.KindStoreFailure, "PermissionsStoreFailure", "persisting revoke", err)
	}
	if err := log.Append(ctx, tenant, revokeCID); err != nil {
		return dwnerrors.Wrap(dwnerrors.KindStoreFailure, "PermissionsStoreFailure", "appending revoke to event log", err)
	}
	if tail != nil {
		tail.Observe(tenant, revokeCID)
	}

	return nil
}
