// Package search derives the deduplicated lookup caches from persisted
// namespace records.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/kantai/blockstack-search-indexer/internal/model"
	"github.com/kantai/blockstack-search-indexer/internal/platform/metrics"
	"github.com/kantai/blockstack-search-indexer/internal/store"
)

// Builder scans the namespace collection once and produces a search record
// per input plus the three singleton cache documents.
type Builder struct {
	namespaces store.NamespaceStore
	profiles   store.SearchProfileStore
	caches     store.CacheStore
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the progress/error logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithMetrics attaches pipeline metrics; nil leaves the builder unmetered.
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Builder) { b.metrics = m }
}

// NewBuilder constructs a Builder over the given stores.
func NewBuilder(namespaces store.NamespaceStore, profiles store.SearchProfileStore, caches store.CacheStore, opts ...Option) *Builder {
	b := &Builder{
		namespaces: namespaces,
		profiles:   profiles,
		caches:     caches,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BuildResult summarizes one index build.
type BuildResult struct {
	Records   int
	People    int
	Twitter   int
	Usernames int
	Skipped   []model.RecordError
}

// Build streams every namespace record, accumulating the three value sets
// while writing a search record per input. A record whose profile cannot be
// scanned is recorded as an error, excluded from every cache, and skipped;
// store failures abort the build. Caches are written people, twitter, then
// username, followed by the name index hint.
func (b *Builder) Build(ctx context.Context) (*BuildResult, error) {
	people := make(map[string]struct{})
	twitter := make(map[string]struct{})
	usernames := make(map[string]struct{})
	result := &BuildResult{}

	err := b.namespaces.ForEachNamespace(ctx, func(record model.NamespaceRecord) error {
		result.Records++

		search, err := deriveSearchProfile(record)
		if err != nil {
			result.Skipped = append(result.Skipped, model.RecordError{ID: record.Username, Err: err})
			return nil
		}
		if err := b.profiles.SaveSearchProfile(ctx, search); err != nil {
			return fmt.Errorf("save search profile %q: %w", record.Username, err)
		}
		b.metrics.IncrementPersisted("search_profiles")

		if search.Name != nil {
			people[*search.Name] = struct{}{}
		}
		if search.TwitterHandle != nil {
			twitter[*search.TwitterHandle] = struct{}{}
		}
		if record.FullyQualifiedName != "" {
			usernames[record.FullyQualifiedName] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, cache := range []struct {
		name string
		set  map[string]struct{}
	}{
		{store.PeopleCache, people},
		{store.TwitterCache, twitter},
		{store.UsernameCache, usernames},
	} {
		if err := b.caches.SaveCache(ctx, cache.name, setValues(cache.set)); err != nil {
			return nil, fmt.Errorf("save %s: %w", cache.name, err)
		}
		b.metrics.IncrementPersisted(cache.name)
		b.metrics.SetCacheSize(cache.name, len(cache.set))
	}
	if err := b.caches.EnsureNameIndex(ctx); err != nil {
		return nil, fmt.Errorf("ensure name index: %w", err)
	}

	result.People = len(people)
	result.Twitter = len(twitter)
	result.Usernames = len(usernames)

	// Skipped identifiers are reported once, at the end of the run.
	if len(result.Skipped) > 0 {
		ids := make([]string, len(result.Skipped))
		for i, skip := range result.Skipped {
			ids[i] = skip.ID
		}
		b.logger.Warn("records skipped during index build", "count", len(ids), "ids", ids)
	}
	b.logger.Info("search index built",
		"records", result.Records,
		"people", result.People,
		"twitter_handles", result.Twitter,
		"usernames", result.Usernames,
		"skipped", len(result.Skipped),
	)
	return result, nil
}

// setValues flattens a set; the caches are unordered, sorting just keeps the
// persisted documents stable between runs.
func setValues(set map[string]struct{}) []string {
	values := make([]string, 0, len(set))
	for value := range set {
		values = append(values, value)
	}
	sort.Strings(values)
	return values
}
