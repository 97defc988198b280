// Package engine orchestrates the end-to-end install state machine:
// DeriveKey → ReuseCheck → (NoOp | VerifyEntry → Restore | external
// install → Capture) → WriteMarker → UpdateIndex, composing key
// derivation, the reuse marker, the entry store, and the state index
// into one call per project root.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/better-dev/better-gmc/internal/core/key"
	"github.com/better-dev/better-gmc/internal/core/model"
	"github.com/better-dev/better-gmc/internal/gc"
	"github.com/better-dev/better-gmc/internal/marker"
	"github.com/better-dev/better-gmc/internal/materializer"
	"github.com/better-dev/better-gmc/internal/metrics"
	"github.com/better-dev/better-gmc/internal/state"
	"github.com/better-dev/better-gmc/internal/store"
)

// Logger is the narrow subset of zap's SugaredLogger this package calls.
type Logger interface {
	Infow(msg string, kv ...any)
	Warnw(msg string, kv ...any)
	Debugw(msg string, kv ...any)
}

type noopLogger struct{}

func (noopLogger) Infow(string, ...any)  {}
func (noopLogger) Warnw(string, ...any)  {}
func (noopLogger) Debugw(string, ...any) {}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger attaches a structured logger; defaults to a no-op.
func WithLogger(l Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithMetrics attaches a metrics sink; defaults to a no-op.
func WithMetrics(m metrics.Sink) Option {
	return func(e *Engine) { e.metrics = m }
}

// Engine ties together key derivation, the reuse marker, the entry
// store, and the state index for one cache root.
type Engine struct {
	cacheRoot string
	layout    store.Layout
	mat       *materializer.Materializer
	log       Logger
	metrics   metrics.Sink
}

// New constructs an Engine rooted at cacheRoot.
func New(cacheRoot string, opts ...Option) *Engine {
	e := &Engine{
		cacheRoot: cacheRoot,
		layout:    store.NewLayout(cacheRoot),
		mat:       materializer.New(),
		log:       noopLogger{},
		metrics:   metrics.NewNoop(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Outcome is the terminal state reported after one install call.
type Outcome string

const (
	OutcomeNoOp               Outcome = "no_op"
	OutcomeHit                Outcome = "hit"
	OutcomeMiss               Outcome = "miss"
	OutcomeExternalInstallOnly Outcome = "external_install_only"
)

// InstallOptions mirrors the key.Options bag plus the install-call
// specific knobs (strategy, concurrency, read-only).
type InstallOptions struct {
	PM            model.PackageManager
	Engine        string
	CacheMode     model.CacheMode
	ScriptsMode   model.ScriptsMode
	Frozen        bool
	Production    bool
	CacheKeySalt  string
	NodeBin       string
	LinkStrategy  model.LinkStrategy
	FSConcurrency int
	CacheReadOnly bool
	CreatedBy     string
}

// InstallResult is what Run reports to the caller.
type InstallResult struct {
	Outcome      Outcome
	Reason       model.Reason
	Key          string
	Stats        model.MaterializationStats
	DurationMs   int64
	IndexWarning string
}

// ExternalInstallNeeded reports whether the caller must perform its own
// package-manager install before the engine can proceed (OutcomeMiss and
// OutcomeExternalInstallOnly both require it; OutcomeHit/OutcomeNoOp do not).
func (r InstallResult) ExternalInstallNeeded() bool {
	return r.Outcome == OutcomeMiss || r.Outcome == OutcomeExternalInstallOnly
}

// Run executes one pass of the install state machine for projectRoot.
// When ExternalInstallNeeded() is true on the returned result, the caller
// is expected to have already run (or to now run) its package manager's
// install before this call can complete the cache side; in practice
// callers invoke Run once to decide, perform the install if needed, then
// call CompleteMiss to capture the result.
func (e *Engine) Run(ctx context.Context, projectRoot string, opts InstallOptions) (InstallResult, error) {
	derived, err := key.Derive(projectRoot, key.Options{
		PM:           opts.PM,
		Engine:       opts.Engine,
		CacheMode:    opts.CacheMode,
		ScriptsMode:  opts.ScriptsMode,
		Frozen:       opts.Frozen,
		Production:   opts.Production,
		CacheKeySalt: opts.CacheKeySalt,
		NodeBin:      opts.NodeBin,
	})
	if err != nil {
		return InstallResult{}, err
	}
	if !derived.Eligible {
		return InstallResult{Outcome: OutcomeExternalInstallOnly, Reason: derived.Reason}, nil
	}

	evalRes := marker.Evaluate(projectRoot, marker.Expected{
		GlobalKey:          derived.Key,
		LockHash:           derived.LockHash,
		RuntimeFingerprint: derived.Fingerprint,
	})
	if evalRes.Hit {
		e.metrics.IncCacheHit()
		e.log.Debugw("reuse marker hit, install is a no-op", "key", derived.Key)
		return InstallResult{Outcome: OutcomeNoOp, Key: derived.Key}, nil
	}

	verify := e.layout.Verify(derived.Key)
	if verify.OK {
		return e.finishHit(ctx, projectRoot, derived, opts)
	}

	e.metrics.IncCacheMiss()
	return InstallResult{Outcome: OutcomeMiss, Reason: verify.Reason, Key: derived.Key}, nil
}

// finishHit runs Restore → WriteMarker → UpdateIndex for an entry that
// VerifyEntry already confirmed is present.
func (e *Engine) finishHit(ctx context.Context, projectRoot string, derived key.Result, opts InstallOptions) (InstallResult, error) {
	start := time.Now()

	restoreRes, err := e.layout.Restore(ctx, e.mat, store.RestoreOptions{
		Key:           derived.Key,
		ProjectRoot:   projectRoot,
		LinkStrategy:  opts.LinkStrategy,
		FSConcurrency: opts.FSConcurrency,
	})
	if err != nil || !restoreRes.OK {
		return InstallResult{Outcome: OutcomeMiss, Reason: restoreRes.Reason, Key: derived.Key}, err
	}
	e.metrics.IncCacheHit()
	e.metrics.ObserveMaterializeDuration(time.Since(start).Seconds())

	if err := marker.Write(projectRoot, model.ReuseMarker{
		GlobalKey:          derived.Key,
		LockHash:           derived.LockHash,
		RuntimeFingerprint: derived.Fingerprint,
		ScriptsMode:        opts.ScriptsMode,
		LinkStrategy:       opts.LinkStrategy,
		RunID:              uuid.NewString(),
	}); err != nil {
		return InstallResult{}, fmt.Errorf("engine: write marker: %w", err)
	}

	result := InstallResult{
		Outcome:    OutcomeHit,
		Key:        derived.Key,
		Stats:      restoreRes.Stats,
		DurationMs: restoreRes.DurationMs,
	}

	if err := e.updateIndexAfterRestore(projectRoot, derived, opts); err != nil {
		// Terminal: UpdateIndex failures are warnings, not data-plane
		// failures — the restore already succeeded.
		result.IndexWarning = err.Error()
	}

	return result, nil
}

// CompleteMiss is called by the caller after it has finished its own
// external package-manager install following a Miss/ExternalInstallOnly
// outcome, to Capture the freshly installed tree (unless cache-read-only)
// and write the reuse marker.
func (e *Engine) CompleteMiss(ctx context.Context, projectRoot string, derived key.Result, opts InstallOptions) (InstallResult, error) {
	if !derived.Eligible {
		result := InstallResult{Outcome: OutcomeExternalInstallOnly, Reason: derived.Reason}
		return result, nil
	}

	if opts.CacheReadOnly {
		if err := marker.Write(projectRoot, model.ReuseMarker{
			GlobalKey:          derived.Key,
			LockHash:           derived.LockHash,
			RuntimeFingerprint: derived.Fingerprint,
			ScriptsMode:        opts.ScriptsMode,
			LinkStrategy:       opts.LinkStrategy,
			RunID:              uuid.NewString(),
		}); err != nil {
			return InstallResult{}, fmt.Errorf("engine: write marker: %w", err)
		}
		result := InstallResult{Outcome: OutcomeMiss, Key: derived.Key}
		if err := e.updateIndexAfterRestore(projectRoot, derived, opts); err != nil {
			result.IndexWarning = err.Error()
		}
		return result, nil
	}

	start := time.Now()
	capRes, err := e.layout.Capture(ctx, e.mat, store.CaptureOptions{
		Key:           derived.Key,
		ProjectRoot:   projectRoot,
		LinkStrategy:  opts.LinkStrategy,
		FSConcurrency: opts.FSConcurrency,
		LockHash:      derived.LockHash,
		Lockfile:      derived.Lockfile,
		Fingerprint:   derived.Fingerprint,
		PM:            opts.PM,
		Engine:        opts.Engine,
		ScriptsMode:   opts.ScriptsMode,
		CacheMode:     opts.CacheMode,
		CreatedBy:     opts.CreatedBy,
	})
	if err != nil || !capRes.OK {
		return InstallResult{Outcome: OutcomeMiss, Reason: capRes.Reason, Key: derived.Key}, err
	}
	e.metrics.ObserveMaterializeDuration(time.Since(start).Seconds())

	if err := marker.Write(projectRoot, model.ReuseMarker{
		GlobalKey:          derived.Key,
		LockHash:           derived.LockHash,
		RuntimeFingerprint: derived.Fingerprint,
		ScriptsMode:        opts.ScriptsMode,
		LinkStrategy:       opts.LinkStrategy,
		RunID:              uuid.NewString(),
	}); err != nil {
		return InstallResult{}, fmt.Errorf("engine: write marker: %w", err)
	}

	result := InstallResult{
		Outcome:    OutcomeMiss,
		Key:        derived.Key,
		Stats:      capRes.Stats,
		DurationMs: capRes.DurationMs,
	}
	if err := e.updateIndexAfterRestore(projectRoot, derived, opts); err != nil {
		result.IndexWarning = err.Error()
	}
	return result, nil
}

func (e *Engine) updateIndexAfterRestore(projectRoot string, derived key.Result, opts InstallOptions) error {
	now := time.Now().UTC()
	return state.Update(e.cacheRoot, func(idx *model.StateIndex) {
		idx.Projects[projectRoot] = model.ProjectRecord{Root: projectRoot, LastUsedAt: now, PM: opts.PM}

		entry := idx.CacheEntries[derived.Key]
		entry.PM = opts.PM
		entry.Engine = opts.Engine
		entry.CacheMode = opts.CacheMode
		entry.LockHash = derived.LockHash
		entry.Fingerprint = derived.Fingerprint
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = now
		}
		entry.LastUsedAt = now
		entry.UseCount++
		entry.Status = "active"
		idx.CacheEntries[derived.Key] = entry

		idx.MaterializationIndex[derived.Key] = model.MaterializationRecord{
			Key:                derived.Key,
			LastMaterializedAt: now,
			LastVerifiedAt:     now,
		}

		idx.CacheMetrics.InstallRuns++
	})
}

// RunGC applies the state index's GC policy to the cache root.
func (e *Engine) RunGC(dryRun bool) (gc.Result, error) {
	idx := state.Load(e.cacheRoot)
	controller := gc.New(e.cacheRoot)
	res, err := controller.RunPolicy(idx.GC, dryRun)
	if err != nil {
		return res, err
	}
	e.metrics.AddGCEntriesRemoved(len(res.Deletions))
	e.metrics.AddGCBytesFreed(res.FreedBytes)
	return res, nil
}
