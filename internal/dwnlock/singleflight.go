package dwnlock

import "golang.org/x/sync/singleflight"

// ProtocolDefinitionFetcher dedupes concurrent fetches keyed by
// (tenant, protocol URI), so a burst of writes or query candidates against
// one popular protocol definition triggers exactly one Message Store query
// instead of one per concurrent caller. Grounded on the design note's
// "singleflight for de-duplicating concurrent protocol-definition fetches".
// Only calls in flight at the same moment share a result: RecordsQuery
// authorizes its candidates one after another, so each candidate's
// Authorize issues its own protocol-definition query.
type ProtocolDefinitionFetcher struct {
	group singleflight.Group
}

// NewProtocolDefinitionFetcher builds an empty fetcher.
func NewProtocolDefinitionFetcher() *ProtocolDefinitionFetcher {
	return &ProtocolDefinitionFetcher{}
}

// Fetch runs fetch for key, sharing the result among any calls already in
// flight for the same key.
func Fetch[T any](f *ProtocolDefinitionFetcher, key string, fetch func() (T, error)) (T, error) {
	v, err, _ := f.group.Do(key, func() (any, error) {
		return fetch()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}
