// Package state implements the State Index (S) component: the single
// "<cacheRoot>/state.json" file tracking project and cache-entry usage
// counters. Read-modify-write is explicitly not transactional across
// processes — whatever is on disk must always parse as a full schema
// instance, even if a concurrent writer clobbers another's update.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/better-dev/better-gmc/internal/core/model"
)

func indexPath(cacheRoot string) string {
	return filepath.Join(cacheRoot, "state.json")
}

// Load parses <cacheRoot>/state.json, returning the default skeleton on
// any read or parse error (missing file included).
func Load(cacheRoot string) *model.StateIndex {
	b, err := os.ReadFile(indexPath(cacheRoot))
	if err != nil {
		return model.DefaultStateIndex()
	}

	var idx model.StateIndex
	if err := json.Unmarshal(b, &idx); err != nil {
		return model.DefaultStateIndex()
	}

	if idx.Projects == nil {
		idx.Projects = map[string]model.ProjectRecord{}
	}
	if idx.CacheEntries == nil {
		idx.CacheEntries = map[string]model.CacheEntryRecord{}
	}
	if idx.MaterializationIndex == nil {
		idx.MaterializationIndex = map[string]model.MaterializationRecord{}
	}

	return &idx
}

// Save writes idx as pretty JSON with write-then-rename atomicity.
func Save(cacheRoot string, idx *model.StateIndex) error {
	if err := os.MkdirAll(cacheRoot, 0o755); err != nil {
		return fmt.Errorf("state: ensure cache root: %w", err)
	}

	path := indexPath(cacheRoot)
	tmp := path + ".tmp"

	b, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("state: marshal: %w", err)
	}

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("state: open tmp: %w", err)
	}
	if _, err := f.Write(b); err != nil {
		f.Close()
		return fmt.Errorf("state: write tmp: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("state: close tmp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("state: rename: %w", err)
	}
	return nil
}

// Update loads the index, applies fn, and saves the result. Callers that
// need to reflect a single observation (a hit, a miss, a new project)
// should prefer this helper over manual Load/Save pairs so the
// read-modify-write window stays as small as possible.
func Update(cacheRoot string, fn func(*model.StateIndex)) error {
	idx := Load(cacheRoot)
	fn(idx)
	return Save(cacheRoot, idx)
}
