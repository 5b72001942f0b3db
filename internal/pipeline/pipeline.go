// Package pipeline composes enumeration and resolution into the end-to-end
// ingestion run: Enumerating -> Resolving -> Persisting, or replaying a
// prior dump straight into Persisting.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kantai/blockstack-search-indexer/internal/model"
	"github.com/kantai/blockstack-search-indexer/internal/platform/metrics"
	"github.com/kantai/blockstack-search-indexer/internal/sanitize"
	"github.com/kantai/blockstack-search-indexer/internal/store"
)

// NameEnumerator walks one paginated directory listing to completion.
type NameEnumerator interface {
	Enumerate(ctx context.Context, kind model.NameKind, pageCap int) ([]string, error)
}

// EntryResolver resolves a flat name list into profile entries, reporting
// how many lookups failed.
type EntryResolver interface {
	Resolve(ctx context.Context, names []string, batchSize int) ([]model.ResolvedEntry, int, error)
}

// Config carries the per-run knobs.
type Config struct {
	// PageCap limits pages per listing; negative fetches everything.
	PageCap int
	// BatchSize bounds concurrent lookups per resolution batch.
	BatchSize int
}

// Pipeline orchestrates one ingestion run against the document store.
type Pipeline struct {
	enumerator NameEnumerator
	resolver   EntryResolver
	namespaces store.NamespaceStore
	cfg        Config
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the progress/error logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics attaches pipeline metrics; nil leaves the pipeline unmetered.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// New constructs a Pipeline.
func New(enumerator NameEnumerator, resolver EntryResolver, namespaces store.NamespaceStore, cfg Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		enumerator: enumerator,
		resolver:   resolver,
		namespaces: namespaces,
		cfg:        cfg,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ReplayFiles points Process at a previous dump instead of a live fetch.
type ReplayFiles struct {
	Names   string
	Entries string
}

// Result summarizes one Process run. Skipped carries the per-record
// failures that were logged and stepped over; LookupErrors counts failed or
// timed-out resolutions. The two channels stay separate: one is a count of
// transient upstream failures, the other identifies records we had in hand
// but could not persist.
type Result struct {
	NamesEnumerated int
	EntriesResolved int
	LookupErrors    int
	Persisted       int
	Skipped         []model.RecordError
}

// fetch runs the Enumerating and Resolving stages: both listings in fixed
// order, concatenated, then resolved in batches.
func (p *Pipeline) fetch(ctx context.Context) ([]string, []model.ResolvedEntry, int, error) {
	names, err := p.enumerator.Enumerate(ctx, model.KindNames, p.cfg.PageCap)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("enumerate names: %w", err)
	}
	subdomains, err := p.enumerator.Enumerate(ctx, model.KindSubdomains, p.cfg.PageCap)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("enumerate subdomains: %w", err)
	}
	names = append(names, subdomains...)

	entries, lookupErrors, err := p.resolver.Resolve(ctx, names, p.cfg.BatchSize)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("resolve profiles: %w", err)
	}
	p.logger.Info("resolution complete",
		"names", len(names),
		"entries", len(entries),
		"lookup_errors", lookupErrors,
	)
	return names, entries, lookupErrors, nil
}

// Dump fetches everything and writes the name list and the resolved-entry
// list to two JSON files for later replay. Both destinations (and any
// missing ancestor directories) are checked up front so a long fetch cannot
// end at an unwritable path.
func (p *Pipeline) Dump(ctx context.Context, namesPath, entriesPath string) error {
	namesFile, err := createDumpFile(namesPath)
	if err != nil {
		return err
	}
	defer namesFile.Close()
	entriesFile, err := createDumpFile(entriesPath)
	if err != nil {
		return err
	}
	defer entriesFile.Close()

	names, entries, lookupErrors, err := p.fetch(ctx)
	if err != nil {
		return err
	}

	if err := writeJSON(namesFile, names); err != nil {
		return fmt.Errorf("write name dump: %w", err)
	}
	if err := writeJSON(entriesFile, entries); err != nil {
		return fmt.Errorf("write entry dump: %w", err)
	}

	p.logger.Info("dump complete",
		"names_file", namesPath,
		"entries_file", entriesPath,
		"names", len(names),
		"entries", len(entries),
		"lookup_errors", lookupErrors,
	)
	return nil
}

// Process ingests resolved entries into the namespace collection, either
// replaying a previous dump (replay non-nil) or fetching live. Malformed
// entries are logged and skipped; store failures abort the run.
func (p *Pipeline) Process(ctx context.Context, replay *ReplayFiles) (*Result, error) {
	result := &Result{}

	var entries []model.ResolvedEntry
	if replay != nil {
		names, loaded, err := loadDump(replay)
		if err != nil {
			return nil, err
		}
		p.logger.Info("loaded dump",
			"names_file", replay.Names,
			"entries_file", replay.Entries,
			"names", len(names),
			"entries", len(loaded),
		)
		result.NamesEnumerated = len(names)
		entries = loaded
	} else {
		names, fetched, lookupErrors, err := p.fetch(ctx)
		if err != nil {
			return nil, err
		}
		result.NamesEnumerated = len(names)
		result.LookupErrors = lookupErrors
		entries = fetched
	}
	result.EntriesResolved = len(entries)

	for _, entry := range entries {
		record, err := namespaceRecord(entry)
		if err != nil {
			result.Skipped = append(result.Skipped, model.RecordError{ID: entry.FullyQualifiedName, Err: err})
			p.logger.Warn("skipping entry",
				"name", entry.FullyQualifiedName,
				"error", err.Error(),
			)
			continue
		}
		if err := p.namespaces.SaveNamespace(ctx, record); err != nil {
			return nil, fmt.Errorf("save namespace record %q: %w", record.Username, err)
		}
		p.metrics.IncrementPersisted("namespace_records")
		result.Persisted++
	}

	p.logger.Info("processing complete",
		"names", result.NamesEnumerated,
		"entries", result.EntriesResolved,
		"persisted", result.Persisted,
		"lookup_errors", result.LookupErrors,
		"skipped", len(result.Skipped),
	)
	return result, nil
}

// namespaceRecord normalizes one resolved entry for persistence. The
// sanitizer runs here as well: replayed dumps may predate sanitization and
// the rewrite is idempotent for live entries.
func namespaceRecord(entry model.ResolvedEntry) (model.NamespaceRecord, error) {
	if entry.FullyQualifiedName == "" {
		return model.NamespaceRecord{}, errors.New("entry has empty fully qualified name")
	}
	username := model.UsernameFor(entry.FullyQualifiedName)
	if username == "" {
		return model.NamespaceRecord{}, fmt.Errorf("name %q reduces to an empty username", entry.FullyQualifiedName)
	}
	return model.NamespaceRecord{
		Username:           username,
		FullyQualifiedName: entry.FullyQualifiedName,
		Profile:            sanitize.Profile(entry.Profile),
	}, nil
}
