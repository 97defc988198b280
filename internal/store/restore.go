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

// RestoreOptions are the Rst inputs.
type RestoreOptions struct {
	Key           string
	ProjectRoot   string
	LinkStrategy  model.LinkStrategy
	FSConcurrency int
}

// RestoreResult is Rst's output.
type RestoreResult struct {
	OK         bool
	Reason     model.Reason
	DurationMs int64
	Stats      model.MaterializationStats
}

// Restore materializes the entry's node_modules into <projectRoot>/node_modules,
// atomically replacing any existing node_modules.
func (l Layout) Restore(ctx context.Context, m *materializer.Materializer, opts RestoreOptions) (RestoreResult, error) {
	start := time.Now()

	v := l.Verify(opts.Key)
	if !v.OK {
		return RestoreResult{OK: false, Reason: v.Reason}, nil
	}

	_, _, entryNodeModules := l.Paths(opts.Key)
	staging := filepath.Join(opts.ProjectRoot, fmt.Sprintf(".better-global-staging-node_modules-%d-%s", time.Now().UnixNano(), uuid.NewString()))
	defer os.RemoveAll(staging)

	if opts.FSConcurrency > 0 {
		mc := *m
		materializer.WithConcurrency(opts.FSConcurrency)(&mc)
		m = &mc
	}

	matRes, err := m.Materialize(ctx, entryNodeModules, staging, opts.LinkStrategy)
	if err != nil || !matRes.OK {
		return RestoreResult{OK: false, Reason: model.ReasonMaterializeFailed, Stats: matRes.Stats}, err
	}

	target := filepath.Join(opts.ProjectRoot, "node_modules")
	if err := replaceAtomically(target, staging); err != nil {
		return RestoreResult{OK: false, Reason: model.ReasonRenameFailed}, err
	}

	return RestoreResult{OK: true, DurationMs: time.Since(start).Milliseconds(), Stats: matRes.Stats}, nil
}

// replaceAtomically swaps staging into target, moving any pre-existing
// target aside to a trash sibling first so the replacement is never
// observably half-done.
func replaceAtomically(target, staging string) error {
	if _, err := os.Lstat(target); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("store: stat target %q: %w", target, err)
		}
		return os.Rename(staging, target)
	}

	trash := fmt.Sprintf("%s.trash-%d-%s", target, time.Now().UnixNano(), uuid.NewString())
	if err := os.Rename(target, trash); err != nil {
		return fmt.Errorf("store: rename target aside: %w", err)
	}

	// The parent directory is not fsynced after this rename; a rename lost
	// to a crash leaves the old tree or none, and the next run restores.
	if err := os.Rename(staging, target); err != nil {
		// Best effort: restore the previous node_modules so the project
		// is left exactly as it was before this Restore attempt.
		_ = os.Rename(trash, target)
		return fmt.Errorf("store: rename staging into place: %w", err)
	}

	os.RemoveAll(trash)
	return nil
}
