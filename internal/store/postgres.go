package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/kantai/blockstack-search-indexer/internal/model"
)

// Open opens a PostgreSQL connection pool for the given URL. sql.Open does
// not dial; callers verify reachability with db.PingContext.
func Open(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

// PostgresStore persists records in PostgreSQL with JSONB profile columns.
// It implements NamespaceStore, SearchProfileStore, and CacheStore.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// SaveNamespace upserts a record by its username key.
func (s *PostgresStore) SaveNamespace(ctx context.Context, record model.NamespaceRecord) error {
	profile, err := json.Marshal(record.Profile)
	if err != nil {
		return fmt.Errorf("marshal profile for %q: %w", record.Username, err)
	}
	query := `
		INSERT INTO namespace_records (username, fully_qualified_name, profile)
		VALUES ($1, $2, $3)
		ON CONFLICT (username) DO UPDATE SET
			fully_qualified_name = EXCLUDED.fully_qualified_name,
			profile = EXCLUDED.profile
	`
	if _, err := s.db.ExecContext(ctx, query, record.Username, record.FullyQualifiedName, profile); err != nil {
		return fmt.Errorf("save namespace record: %w", err)
	}
	return nil
}

// ForEachNamespace streams every record to fn without buffering the whole
// collection: rows are decoded and handed over one at a time.
func (s *PostgresStore) ForEachNamespace(ctx context.Context, fn func(model.NamespaceRecord) error) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT username, fully_qualified_name, profile FROM namespace_records ORDER BY username`)
	if err != nil {
		return fmt.Errorf("scan namespace records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			record model.NamespaceRecord
			raw    []byte
		)
		if err := rows.Scan(&record.Username, &record.FullyQualifiedName, &raw); err != nil {
			return fmt.Errorf("scan namespace row: %w", err)
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &record.Profile); err != nil {
				return fmt.Errorf("unmarshal profile for %q: %w", record.Username, err)
			}
		}
		if err := fn(record); err != nil {
			return err
		}
	}
	return rows.Err()
}

// SaveSearchProfile upserts a search record by username.
func (s *PostgresStore) SaveSearchProfile(ctx context.Context, record model.SearchProfileRecord) error {
	profile, err := json.Marshal(record.Profile)
	if err != nil {
		return fmt.Errorf("marshal profile for %q: %w", record.Username, err)
	}
	query := `
		INSERT INTO search_profiles (username, name, profile, openbazaar_handle, twitter_handle, fully_qualified_name)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (username) DO UPDATE SET
			name = EXCLUDED.name,
			profile = EXCLUDED.profile,
			openbazaar_handle = EXCLUDED.openbazaar_handle,
			twitter_handle = EXCLUDED.twitter_handle,
			fully_qualified_name = EXCLUDED.fully_qualified_name
	`
	_, err = s.db.ExecContext(ctx, query,
		record.Username,
		nullable(record.Name),
		profile,
		nullable(record.OpenBazaarHandle),
		nullable(record.TwitterHandle),
		record.FullyQualifiedName,
	)
	if err != nil {
		return fmt.Errorf("save search profile: %w", err)
	}
	return nil
}

// SaveCache replaces the named singleton cache document.
func (s *PostgresStore) SaveCache(ctx context.Context, name string, values []string) error {
	entries, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("marshal %s entries: %w", name, err)
	}
	query := `
		INSERT INTO search_caches (cache_name, entries)
		VALUES ($1, $2)
		ON CONFLICT (cache_name) DO UPDATE SET entries = EXCLUDED.entries
	`
	if _, err := s.db.ExecContext(ctx, query, name, entries); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	return nil
}

// EnsureNameIndex builds a containment index over the people cache entries.
func (s *PostgresStore) EnsureNameIndex(ctx context.Context) error {
	query := `
		CREATE INDEX IF NOT EXISTS search_caches_people_name_idx
		ON search_caches USING GIN (entries jsonb_path_ops)
		WHERE cache_name = 'people_cache'
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ensure name index: %w", err)
	}
	return nil
}

func nullable(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}
