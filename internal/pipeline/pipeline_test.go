package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kantai/blockstack-search-indexer/internal/model"
	"github.com/kantai/blockstack-search-indexer/internal/store"
)

// fakeDirectory serves canned listings and profiles in place of the core API.
type fakeDirectory struct {
	names      []string
	subdomains []string
	profiles   map[string]model.Profile
	enumErr    error
}

func (f *fakeDirectory) Enumerate(_ context.Context, kind model.NameKind, pageCap int) ([]string, error) {
	if f.enumErr != nil {
		return nil, f.enumErr
	}
	source := f.names
	if kind == model.KindSubdomains {
		source = f.subdomains
	}
	if pageCap == 0 {
		return nil, nil
	}
	return source, nil
}

func (f *fakeDirectory) Resolve(_ context.Context, names []string, _ int) ([]model.ResolvedEntry, int, error) {
	var entries []model.ResolvedEntry
	var errCount int
	for _, name := range names {
		profile, ok := f.profiles[name]
		if !ok {
			errCount++
			continue
		}
		entries = append(entries, model.ResolvedEntry{FullyQualifiedName: name, Profile: profile})
	}
	return entries, errCount, nil
}

func TestProcessLive(t *testing.T) {
	ctx := context.Background()

	t.Run("persists a record per resolved entry", func(t *testing.T) {
		dir := &fakeDirectory{
			names:      []string{"alice.id", "bob.test"},
			subdomains: []string{"sub.alice.id"},
			profiles: map[string]model.Profile{
				"alice.id":     {"name": "Alice"},
				"bob.test":     {"name": "Bob"},
				"sub.alice.id": {},
			},
		}
		m := store.NewMemory()
		p := New(dir, dir, m, Config{PageCap: -1, BatchSize: 2})

		result, err := p.Process(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, 3, result.NamesEnumerated)
		assert.Equal(t, 3, result.EntriesResolved)
		assert.Equal(t, 3, result.Persisted)
		assert.Zero(t, result.LookupErrors)
		assert.Empty(t, result.Skipped)

		usernames := map[string]string{}
		for _, record := range m.Namespaces() {
			usernames[record.FullyQualifiedName] = record.Username
		}
		assert.Equal(t, "alice", usernames["alice.id"], "reserved suffix is stripped")
		assert.Equal(t, "bob.test", usernames["bob.test"], "other suffixes are kept")
		assert.Equal(t, "sub.alice", usernames["sub.alice.id"])
	})

	t.Run("profiles are sanitized before persistence", func(t *testing.T) {
		dir := &fakeDirectory{
			names: []string{"alice.id"},
			profiles: map[string]model.Profile{
				"alice.id": {"$meta": map[string]any{"v0.k": 1}},
			},
		}
		m := store.NewMemory()
		p := New(dir, dir, m, Config{PageCap: -1, BatchSize: 1})

		_, err := p.Process(ctx, nil)
		require.NoError(t, err)
		records := m.Namespaces()
		require.Len(t, records, 1)
		require.Contains(t, records[0].Profile, "_meta")
		assert.Contains(t, records[0].Profile["_meta"], "v0_k")
	})

	t.Run("lookup failures are counted, not fatal", func(t *testing.T) {
		dir := &fakeDirectory{
			names: []string{"alice.id", "gone.id"},
			profiles: map[string]model.Profile{
				"alice.id": {},
			},
		}
		m := store.NewMemory()
		p := New(dir, dir, m, Config{PageCap: -1, BatchSize: 10})

		result, err := p.Process(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, result.LookupErrors)
		assert.Equal(t, 1, result.Persisted)
	})

	t.Run("malformed entry is skipped and reported", func(t *testing.T) {
		dir := &fakeDirectory{
			names: []string{"alice.id", ""},
			profiles: map[string]model.Profile{
				"alice.id": {},
				"":         {},
			},
		}
		m := store.NewMemory()
		p := New(dir, dir, m, Config{PageCap: -1, BatchSize: 10})

		result, err := p.Process(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Persisted)
		require.Len(t, result.Skipped, 1)
		assert.Error(t, result.Skipped[0].Err)
	})

	t.Run("enumeration failure aborts the run", func(t *testing.T) {
		dir := &fakeDirectory{enumErr: errors.New("listing down")}
		p := New(dir, dir, store.NewMemory(), Config{PageCap: -1, BatchSize: 10})

		_, err := p.Process(ctx, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "listing down")
	})

	t.Run("store failure aborts the run", func(t *testing.T) {
		dir := &fakeDirectory{
			names:    []string{"alice.id"},
			profiles: map[string]model.Profile{"alice.id": {}},
		}
		failing := &failingNamespaceStore{err: errors.New("disk full")}
		p := New(dir, dir, failing, Config{PageCap: -1, BatchSize: 10})

		_, err := p.Process(ctx, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
	})
}

func TestDumpAndReplay(t *testing.T) {
	ctx := context.Background()

	t.Run("replay round-trips through dump files", func(t *testing.T) {
		dir := &fakeDirectory{
			names:      []string{"alice.id"},
			subdomains: []string{"sub.bob.id"},
			profiles: map[string]model.Profile{
				"alice.id":   {"name": "Alice"},
				"sub.bob.id": {"name": "Sub Bob"},
			},
		}
		tmp := t.TempDir()
		namesPath := filepath.Join(tmp, "dumps", "names.json")
		entriesPath := filepath.Join(tmp, "dumps", "entries.json")

		p := New(dir, dir, store.NewMemory(), Config{PageCap: -1, BatchSize: 10})
		require.NoError(t, p.Dump(ctx, namesPath, entriesPath))

		// Replay into a fresh store with a directory that would fail if
		// contacted.
		m := store.NewMemory()
		replayPipe := New(&fakeDirectory{enumErr: errors.New("must not be called")}, nil, m, Config{})
		result, err := replayPipe.Process(ctx, &ReplayFiles{Names: namesPath, Entries: entriesPath})
		require.NoError(t, err)

		assert.Equal(t, 2, result.NamesEnumerated)
		assert.Equal(t, 2, result.EntriesResolved)
		assert.Equal(t, 2, result.Persisted)
		require.Len(t, m.Namespaces(), 2)
	})

	t.Run("dump fails fast on an unwritable destination", func(t *testing.T) {
		tmp := t.TempDir()
		blocker := filepath.Join(tmp, "blocker")
		require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

		dir := &fakeDirectory{enumErr: errors.New("must not be called")}
		p := New(dir, dir, store.NewMemory(), Config{})

		// An ancestor "directory" that is actually a file cannot be created.
		err := p.Dump(ctx, filepath.Join(blocker, "names.json"), filepath.Join(tmp, "entries.json"))
		require.Error(t, err)
		assert.NotContains(t, err.Error(), "must not be called", "fetch must not start")
	})

	t.Run("replay with missing files fails", func(t *testing.T) {
		p := New(nil, nil, store.NewMemory(), Config{})
		_, err := p.Process(ctx, &ReplayFiles{Names: "/does/not/exist.json", Entries: "/also/missing.json"})
		require.Error(t, err)
	})
}

type failingNamespaceStore struct {
	err error
}

func (s *failingNamespaceStore) SaveNamespace(context.Context, model.NamespaceRecord) error {
	return s.err
}

func (s *failingNamespaceStore) ForEachNamespace(context.Context, func(model.NamespaceRecord) error) error {
	return s.err
}
