package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/better-dev/better-gmc/internal/core/model"
)

func TestLoadMissingReturnsDefaultSkeleton(t *testing.T) {
	idx := Load(t.TempDir())
	if idx.Projects == nil || idx.CacheEntries == nil || idx.MaterializationIndex == nil {
		t.Fatalf("expected non-nil maps in default skeleton")
	}
	if idx.GC.MaxAgeDays != 30 {
		t.Fatalf("unexpected default MaxAgeDays: %d", idx.GC.MaxAgeDays)
	}
}

func TestLoadCorruptFileReturnsDefaultSkeleton(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(indexPath(root), []byte("{not valid json"), 0o644); err != nil {
		t.Fatal(err)
	}
	idx := Load(root)
	if idx.Projects == nil {
		t.Fatalf("expected default skeleton on corrupt file")
	}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	root := t.TempDir()
	idx := model.DefaultStateIndex()
	idx.Projects["proj-1"] = model.ProjectRecord{Root: "/some/project", PM: model.PMNpm}
	idx.CacheMetrics.CacheHits = 3

	if err := Save(root, idx); err != nil {
		t.Fatal(err)
	}

	loaded := Load(root)
	if loaded.CacheMetrics.CacheHits != 3 {
		t.Fatalf("expected CacheHits=3, got %d", loaded.CacheMetrics.CacheHits)
	}
	if loaded.Projects["proj-1"].Root != "/some/project" {
		t.Fatalf("unexpected project record: %+v", loaded.Projects["proj-1"])
	}

	if _, err := os.Stat(filepath.Join(root, "state.json.tmp")); !os.IsNotExist(err) {
		t.Fatalf("expected tmp file to be renamed away")
	}
}

func TestUpdateAppliesAndPersists(t *testing.T) {
	root := t.TempDir()
	if err := Update(root, func(idx *model.StateIndex) {
		idx.CacheMetrics.InstallRuns++
	}); err != nil {
		t.Fatal(err)
	}
	if err := Update(root, func(idx *model.StateIndex) {
		idx.CacheMetrics.InstallRuns++
	}); err != nil {
		t.Fatal(err)
	}

	idx := Load(root)
	if idx.CacheMetrics.InstallRuns != 2 {
		t.Fatalf("expected InstallRuns=2, got %d", idx.CacheMetrics.InstallRuns)
	}
}
