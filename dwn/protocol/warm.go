package protocol

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ianpatton/dwn-go/dwn"
	"github.com/ianpatton/dwn-go/internal/dwnstore"
)

// WarmAncestorCache resolves and caches the ancestor chain for each of
// candidates concurrently, bounded by maxConcurrency, so a subsequent
// sequential Authorize call over the same candidates hits cache instead of
// re-walking parentId chains one at a time. Used by RecordsQuery's
// per-candidate authorization fan-out (the "bounded-concurrency
// ancestor-chain cache warm path" of SPEC_FULL.md's DOMAIN STACK section).
// Resolution failures are not reported here — they surface naturally when
// Authorize itself runs for the affected candidate — since warming is a
// pure optimization, never a correctness requirement.
func WarmAncestorCache(ctx context.Context, store dwnstore.MessageStore, cache *AncestorCache, tenant string, candidates []dwn.Message, maxConcurrency int) {
	if cache == nil || maxConcurrency <= 0 || len(candidates) < 2 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrency)
	for _, candidate := range candidates {
		c := candidate
		g.Go(func() error {
			_, _ = resolveAncestorChain(gctx, store, cache, tenant, c)
			return nil
		})
	}
	_ = g.Wait()
}
