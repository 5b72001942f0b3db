// Package store persists pipeline output. Stores are interface-driven to
// keep the pipeline and index builder testable and to allow swapping the
// in-memory implementation for PostgreSQL without rewiring business code.
package store

import (
	"context"

	"github.com/kantai/blockstack-search-indexer/internal/model"
)

// Cache document names, written in this order at the end of an index build
// so a mid-run failure leaves a deterministic partial state.
const (
	PeopleCache   = "people_cache"
	TwitterCache  = "twitter_cache"
	UsernameCache = "username_cache"
)

// NamespaceStore holds the normalized records keyed by username.
type NamespaceStore interface {
	// SaveNamespace upserts a record by its username key.
	SaveNamespace(ctx context.Context, record model.NamespaceRecord) error
	// ForEachNamespace streams every record to fn in storage order. An
	// error from fn aborts the scan and is returned unchanged.
	ForEachNamespace(ctx context.Context, fn func(model.NamespaceRecord) error) error
}

// SearchProfileStore holds the denormalized per-name search records.
type SearchProfileStore interface {
	SaveSearchProfile(ctx context.Context, record model.SearchProfileRecord) error
}

// CacheStore holds the singleton deduplicated cache documents.
type CacheStore interface {
	// SaveCache replaces the named cache document with the given value set.
	SaveCache(ctx context.Context, name string, values []string) error
	// EnsureNameIndex asks the store to index the people cache by name. It
	// is an optimization hint, not a correctness requirement.
	EnsureNameIndex(ctx context.Context) error
}
