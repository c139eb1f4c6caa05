package records

import (
	"context"

	"github.com/ianpatton/dwn-go/dwn"
	"github.com/ianpatton/dwn-go/dwn/protocol"
	"github.com/ianpatton/dwn-go/internal/dwncid"
	"github.com/ianpatton/dwn-go/internal/dwnerrors"
)

// ApplyWrite runs the Records-Write convergence state machine described in
// SPEC_FULL.md section 4.4 against an already-authenticated write. It
// reports accepted=false (not an error) when the write loses convergence
// against a newer message already on file; the caller returns 202 either
// way, since the submitter cannot distinguish a win from a loss.
func ApplyWrite(ctx context.Context, deps Dependencies, tenant, requester string, write dwn.Message) (accepted bool, err error) {
	if write.Descriptor.Protocol != "" {
		if err := protocol.Authorize(ctx, deps.Store, deps.Cache, tenant, requester, write, dwn.ActionWrite); err != nil {
			return false, err
		}
	}

	newCID, err := dwn.CID(write)
	if err != nil {
		return false, dwnerrors.Wrap(dwnerrors.KindMalformed, "RecordsCanonicalizationFailed", "computing write cid", err)
	}
	newOrdinal := dwn.OrdinalOf(write, newCID)

	existing, hasExisting, err := newestRecordState(ctx, deps.Store, tenant, write.RecordID)
	if err != nil {
		return false, err
	}

	if hasExisting {
		existingCID, err := dwn.CID(existing)
		if err != nil {
			return false, dwnerrors.Wrap(dwnerrors.KindMalformed, "RecordsCanonicalizationFailed", "computing existing cid", err)
		}
		if existingCID.Equals(newCID) {
			// Idempotent resubmission of the already-accepted write.
			return true, nil
		}
		existingOrdinal := dwn.OrdinalOf(existing, existingCID)
		if !newOrdinal.Greater(existingOrdinal) {
			return false, nil
		}

		newIsInitial, err := dwn.IsInitialWrite(write, tenant)
		if err != nil {
			return false, dwnerrors.Wrap(dwnerrors.KindMalformed, "RecordsCanonicalizationFailed", "computing entryId", err)
		}
		if newIsInitial {
			return false, errInitialWriteCollision()
		}
	}

	if len(write.Data) > 0 {
		dataCID, err := dwncid.Parse(write.Descriptor.DataCID)
		if err != nil {
			return false, errMalformedMessage("dataCid does not parse as a CID")
		}
		if err := deps.Data.Put(ctx, tenant, write.RecordID, dataCID, write.Data); err != nil {
			return false, dwnerrors.Wrap(dwnerrors.KindStoreFailure, "RecordsStoreFailure", "persisting data blob", err)
		}
	}

	idx, err := writeIndexes(write, dwn.MethodWrite, tenant)
	if err != nil {
		return false, err
	}
	if err := deps.Store.Put(ctx, tenant, write, idx); err != nil {
		return false, dwnerrors.Wrap(dwnerrors.KindStoreFailure, "RecordsStoreFailure", "persisting write", err)
	}
	if err := deps.Log.Append(ctx, tenant, newCID); err != nil {
		return false, dwnerrors.Wrap(dwnerrors.KindStoreFailure, "RecordsStoreFailure", "appending write to event log", err)
	}
	if deps.Tail != nil {
		deps.Tail.Observe(tenant, newCID)
	}
	deps.Cache.Invalidate(tenant, write.RecordID)

	return true, nil
}
