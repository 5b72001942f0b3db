// Package resolver turns enumerated names into resolved profile entries
// under a batch concurrency and rate policy. This is the throughput-critical
// path: batch size and inter-batch delay trade resolution speed against
// upstream load.
package resolver

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kantai/blockstack-search-indexer/internal/model"
	"github.com/kantai/blockstack-search-indexer/internal/platform/metrics"
	"github.com/kantai/blockstack-search-indexer/internal/sanitize"
)

const (
	// DefaultBatchSize bounds concurrent lookups when the caller passes a
	// non-positive batch size.
	DefaultBatchSize = 50
	// defaultLookupTimeout bounds a single profile lookup. A lookup that
	// exceeds it is counted as an error and dropped.
	defaultLookupTimeout = 30 * time.Second
)

// ProfileLookup resolves one name to its profile document. It may hang or
// fail; the resolver imposes the timeout.
type ProfileLookup interface {
	LookupProfile(ctx context.Context, name string) (model.Profile, error)
}

// ProfileCache is an optional read-through cache in front of the lookup
// service. Implementations must treat their own failures as misses.
type ProfileCache interface {
	Get(ctx context.Context, name string) (model.Profile, bool)
	Set(ctx context.Context, name string, profile model.Profile)
}

// Resolver batches profile lookups against the directory service.
type Resolver struct {
	lookup  ProfileLookup
	cache   ProfileCache
	logger  *slog.Logger
	metrics *metrics.Metrics
	delay   time.Duration
	timeout time.Duration
	sleep   func(ctx context.Context, d time.Duration) error
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithDelay sets the pause between batches; the default is no delay.
func WithDelay(d time.Duration) Option {
	return func(r *Resolver) { r.delay = d }
}

// WithCache attaches a profile lookup cache; nil disables caching.
func WithCache(cache ProfileCache) Option {
	return func(r *Resolver) { r.cache = cache }
}

// WithLogger sets the progress/error logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics attaches pipeline metrics; nil leaves the resolver unmetered.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// WithLookupTimeout overrides the per-lookup timeout. Tests use this to
// exercise timeout behavior without waiting out the production value.
func WithLookupTimeout(timeout time.Duration) Option {
	return func(r *Resolver) {
		if timeout > 0 {
			r.timeout = timeout
		}
	}
}

// withSleep replaces the inter-batch sleep; tests count delays through it.
func withSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(r *Resolver) { r.sleep = sleep }
}

// New constructs a Resolver over the given lookup service.
func New(lookup ProfileLookup, opts ...Option) *Resolver {
	r := &Resolver{
		lookup:  lookup,
		logger:  slog.Default(),
		timeout: defaultLookupTimeout,
		sleep:   sleepCtx,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Resolve looks up every name in fixed-size batches, preserving input order
// at the batch level. Lookups within a batch run concurrently; a timed-out
// or failed lookup yields no entry and bumps the returned error count, but
// is never surfaced as an error. After each batch completes its profiles are
// sanitized and the resolver pauses for the configured inter-batch delay; no
// delay follows the final batch. Entry order within a batch follows lookup
// completion, not input order.
func (r *Resolver) Resolve(ctx context.Context, names []string, batchSize int) ([]model.ResolvedEntry, int, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	var (
		entries  []model.ResolvedEntry
		errCount int
	)
	for start := 0; start < len(names); start += batchSize {
		if start > 0 {
			if err := r.sleep(ctx, r.delay); err != nil {
				return entries, errCount, err
			}
		}
		end := min(start+batchSize, len(names))
		batch := names[start:end]

		resolved, failed := r.resolveBatch(ctx, batch)

		// Sanitization happens once per batch, after all lookups settle,
		// so a slow lookup never holds the sanitizer mid-entry.
		for i := range resolved {
			resolved[i].Profile = sanitize.Profile(resolved[i].Profile)
		}
		entries = append(entries, resolved...)
		errCount += failed

		r.logger.Info("batch resolved",
			"offset", start,
			"size", len(batch),
			"resolved", len(resolved),
			"errors", failed,
			"total_resolved", len(entries),
		)
	}
	return entries, errCount, nil
}

func (r *Resolver) resolveBatch(ctx context.Context, batch []string) ([]model.ResolvedEntry, int) {
	var (
		mu       sync.Mutex
		resolved = make([]model.ResolvedEntry, 0, len(batch))
		failed   int
	)
	var g errgroup.Group
	for _, name := range batch {
		name := name
		g.Go(func() error {
			profile, err := r.lookupOne(ctx, name)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				r.logger.Warn("profile lookup failed", "name", name, "error", err.Error())
				return nil
			}
			resolved = append(resolved, model.ResolvedEntry{
				FullyQualifiedName: name,
				Profile:            profile,
			})
			return nil
		})
	}
	// Lookup failures are counted, not returned, so Wait only marks batch
	// completion here.
	g.Wait()
	return resolved, failed
}

func (r *Resolver) lookupOne(ctx context.Context, name string) (model.Profile, error) {
	if r.cache != nil {
		if profile, ok := r.cache.Get(ctx, name); ok {
			r.metrics.IncrementCacheHit()
			return profile, nil
		}
	}

	lctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	profile, err := r.lookup.LookupProfile(lctx, name)
	r.metrics.ObserveLookup(start)
	if err != nil {
		r.metrics.IncrementLookupError()
		return nil, err
	}
	r.metrics.IncrementResolved()

	if r.cache != nil {
		r.cache.Set(ctx, name, profile)
	}
	return profile, nil
}
