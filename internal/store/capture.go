package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/better-dev/better-gmc/internal/core/model"
	"github.com/better-dev/better-gmc/internal/materializer"
)

// CaptureOptions are the Cap inputs.
type CaptureOptions struct {
	Key           string
	ProjectRoot   string
	LinkStrategy  model.LinkStrategy
	FSConcurrency int
	LockHash      string
	Lockfile      model.LockfileDescriptor
	Fingerprint   model.Fingerprint
	PM            model.PackageManager
	Engine        string
	ScriptsMode   model.ScriptsMode
	CacheMode     model.CacheMode
	CreatedBy     string
}

// CaptureResult is Cap's output.
type CaptureResult struct {
	OK         bool
	Reason     model.Reason
	DurationMs int64
	Stats      model.MaterializationStats
}

// Capture publishes <projectRoot>/node_modules into the entry store under
// opts.Key via a staging directory and atomic rename.
func (l Layout) Capture(ctx context.Context, m *materializer.Materializer, opts CaptureOptions) (CaptureResult, error) {
	start := time.Now()

	srcNodeModules := filepath.Join(opts.ProjectRoot, "node_modules")
	if fi, err := os.Stat(srcNodeModules); err != nil || !fi.IsDir() {
		return CaptureResult{OK: false, Reason: model.ReasonNodeModulesMissing}, nil
	}

	entryRoot := l.EntryRoot(opts.Key)
	parent := filepath.Dir(entryRoot)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return CaptureResult{}, fmt.Errorf("store: ensure shard dir: %w", err)
	}

	staging := fmt.Sprintf("%s.staging-%d-%s", entryRoot, time.Now().UnixNano(), uuid.NewString())
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return CaptureResult{}, fmt.Errorf("store: create staging: %w", err)
	}
	defer os.RemoveAll(staging)

	if opts.FSConcurrency > 0 {
		mc := *m
		materializer.WithConcurrency(opts.FSConcurrency)(&mc)
		m = &mc
	}

	stagingNodeModules := filepath.Join(staging, "node_modules")
	matRes, err := m.Materialize(ctx, srcNodeModules, stagingNodeModules, opts.LinkStrategy)
	if err != nil || !matRes.OK {
		return CaptureResult{OK: false, Reason: model.ReasonMaterializeFailed, Stats: matRes.Stats}, err
	}

	contentHash, err := ComputeContentHash(stagingNodeModules)
	if err != nil {
		return CaptureResult{}, fmt.Errorf("store: content hash: %w", err)
	}

	meta := model.EntryMetadata{
		Key:               opts.Key,
		CreatedAt:         time.Now().UTC(),
		CreatedBy:         opts.CreatedBy,
		SourceProjectRoot: opts.ProjectRoot,
		LockHash:          opts.LockHash,
		Lockfile:          opts.Lockfile,
		Fingerprint:       opts.Fingerprint,
		PM:                opts.PM,
		Engine:            opts.Engine,
		ScriptsMode:       opts.ScriptsMode,
		CacheMode:         opts.CacheMode,
		Stats:             matRes.Stats,
		ContentHash:       contentHash,
	}
	if err := writeMetaAtomic(staging, meta); err != nil {
		return CaptureResult{}, err
	}

	os.RemoveAll(entryRoot) // best effort: clear a stale/corrupt prior entry

	// Publication point. os.Rename maps to MoveFileEx with
	// MOVEFILE_REPLACE_EXISTING on Windows. The parent directory is not
	// fsynced afterwards: a rename lost to a crash only costs a re-miss.
	if err := os.Rename(staging, entryRoot); err != nil {
		if os.IsExist(err) || entryExistsAfterRace(entryRoot) {
			// Lost the race to a concurrent Capture of the same key; the
			// winner's entry is equally valid (same key ⇒ same inputs),
			// so this is reported as success.
			return CaptureResult{OK: true, DurationMs: time.Since(start).Milliseconds(), Stats: matRes.Stats}, nil
		}
		return CaptureResult{OK: false, Reason: model.ReasonRenameFailed}, err
	}

	return CaptureResult{OK: true, DurationMs: time.Since(start).Milliseconds(), Stats: matRes.Stats}, nil
}

func entryExistsAfterRace(entryRoot string) bool {
	fi, err := os.Stat(filepath.Join(entryRoot, "entry.json"))
	return err == nil && !fi.IsDir()
}
