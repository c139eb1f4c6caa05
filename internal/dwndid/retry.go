package dwndid

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff/v4"
)

// Retrying decorates a Resolver with exponential-backoff retries, for
// resolvers that reach out over the network (did:web, a ledger-backed
// registry). KeyResolver never needs it since it never leaves the process,
// but any Resolver wired into the engine's authenticator benefits from not
// failing a message's authentication on one transient DNS hiccup.
type Retrying struct {
	inner   Resolver
	maxTries uint64
}

// NewRetrying wraps inner with an exponential backoff policy that retries at
// most maxTries times after the first attempt (0 means no retry cap; the
// policy's default elapsed-time limit and ctx still apply).
func NewRetrying(inner Resolver, maxTries uint64) Retrying {
	return Retrying{inner: inner, maxTries: maxTries}
}

func (r Retrying) Resolve(ctx context.Context, did string) (Document, error) {
	policy := backoff.NewExponentialBackOff()
	var b backoff.BackOff = backoff.WithContext(policy, ctx)
	if r.maxTries > 0 {
		b = backoff.WithMaxRetries(b, r.maxTries)
	}

	var doc Document
	operation := func() error {
		d, err := r.inner.Resolve(ctx, did)
		if err != nil {
			if isPermanent(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		doc = d
		return nil
	}

	if err := backoff.Retry(operation, b); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// isPermanent reports whether err should never be retried. Resolving an
// unsupported method or a malformed identifier is a caller bug, not a
// transient fault, so retrying it would only waste the backoff budget.
func isPermanent(err error) bool {
	return errors.Is(err, ErrUnsupportedDIDMethod) ||
		errors.Is(err, ErrMalformedDID) ||
		errors.Is(err, ErrUnsupportedKey) ||
		errors.Is(err, ErrMalformedECKey)
}
