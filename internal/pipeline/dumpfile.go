package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kantai/blockstack-search-indexer/internal/model"
)

// createDumpFile opens path for writing, creating missing ancestor
// directories. Opening up front is the writability check: it fails before
// any network work happens.
func createDumpFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create dump directory %q: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open dump file %q: %w", path, err)
	}
	return f, nil
}

func writeJSON(f *os.File, value any) error {
	encoder := json.NewEncoder(f)
	if err := encoder.Encode(value); err != nil {
		return err
	}
	return f.Sync()
}

// loadDump reads a previously dumped name list and resolved-entry list.
func loadDump(replay *ReplayFiles) ([]string, []model.ResolvedEntry, error) {
	var names []string
	if err := readJSON(replay.Names, &names); err != nil {
		return nil, nil, fmt.Errorf("load name dump: %w", err)
	}
	var entries []model.ResolvedEntry
	if err := readJSON(replay.Entries, &entries); err != nil {
		return nil, nil, fmt.Errorf("load entry dump: %w", err)
	}
	return names, entries, nil
}

func readJSON(path string, out any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewDecoder(f).Decode(out)
}
