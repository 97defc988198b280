// Package materializer implements the M component: reproducing a source
// tree at a destination using hardlinks, full copies, or an automatic
// mix of both, under a bounded worker pool.
package materializer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/better-dev/better-gmc/internal/core/model"
)

// Option configures a Materializer; follows the functional-options shape
// used throughout this module for optional collaborators.
type Option func(*Materializer)

// Logger is the narrow subset of zap's SugaredLogger this package calls.
// Consumers pass a real *zap.SugaredLogger; tests can pass a no-op stub.
type Logger interface {
	Debugw(msg string, kv ...any)
	Warnw(msg string, kv ...any)
}

type noopLogger struct{}

func (noopLogger) Debugw(string, ...any) {}
func (noopLogger) Warnw(string, ...any)  {}

// WithLogger attaches a structured logger; defaults to a no-op.
func WithLogger(l Logger) Option {
	return func(m *Materializer) { m.log = l }
}

// WithConcurrency bounds the worker pool size (1..128).
func WithConcurrency(n int) Option {
	return func(m *Materializer) {
		if n < 1 {
			n = 1
		}
		if n > 128 {
			n = 128
		}
		m.concurrency = n
	}
}

// ProgressFunc is called as file jobs complete during Materialize, with
// the number completed so far and the total planned. It is called from
// worker goroutines and must not block.
type ProgressFunc func(completed, total int)

// WithProgress attaches a progress callback; defaults to none. Intended
// for a CLI progress bar driven off the per-file completion counter.
func WithProgress(fn ProgressFunc) Option {
	return func(m *Materializer) { m.onProgress = fn }
}

// Materializer reproduces a source tree at a destination.
type Materializer struct {
	log         Logger
	concurrency int
	onProgress  ProgressFunc
}

// New constructs a Materializer with sane defaults (concurrency 16, no-op
// logger), overridable via Option.
func New(opts ...Option) *Materializer {
	m := &Materializer{log: noopLogger{}, concurrency: 16}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Result is the outcome of one Materialize call.
type Result struct {
	OK         bool
	DurationMs int64
	Stats      model.MaterializationStats
	Strategy   model.LinkStrategy
}

// Materialize reproduces src at dst using strategy. dst must not already
// exist or must be empty; the caller is responsible for staging-directory
// semantics.
func (m *Materializer) Materialize(ctx context.Context, src, dst string, strategy model.LinkStrategy) (Result, error) {
	start := time.Now()

	if _, err := os.Stat(src); err != nil {
		return Result{}, fmt.Errorf("materializer: source %q: %w", src, err)
	}

	var stats model.MaterializationStats
	jobs, err := m.planDirectories(dst, src, &stats)
	if err != nil {
		return Result{}, err
	}

	if err := m.runFileJobs(ctx, jobs, strategy, &stats); err != nil {
		return Result{OK: false, DurationMs: time.Since(start).Milliseconds(), Stats: stats, Strategy: strategy}, err
	}

	m.log.Debugw("materialize complete", "src", src, "dst", dst, "strategy", strategy, "files", stats.Files)

	return Result{
		OK:         true,
		DurationMs: time.Since(start).Milliseconds(),
		Stats:      stats,
		Strategy:   strategy,
	}, nil
}

type fileJob struct {
	srcPath string
	dstPath string
}

// planDirectories walks src synchronously, creating the matching
// directory and symlink structure at dst and collecting regular-file jobs
// for the bounded worker pool.
func (m *Materializer) planDirectories(dst, src string, stats *model.MaterializationStats) ([]fileJob, error) {
	var jobs []fileJob

	err := filepath.WalkDir(src, func(p string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case rel == ".":
			return os.MkdirAll(target, 0o755)

		case d.Type()&os.ModeSymlink != 0:
			link, err := os.Readlink(p)
			if err != nil {
				return err
			}
			if err := os.Symlink(link, target); err != nil {
				return err
			}
			stats.Symlinks++
			return nil

		case d.IsDir():
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			stats.Directories++
			return nil

		default:
			jobs = append(jobs, fileJob{srcPath: p, dstPath: target})
			return nil
		}
	})
	return jobs, err
}

// runFileJobs executes the regular-file jobs on a bounded worker pool. The
// first error cancels the group's context; in-flight operations may
// complete but no new ones start.
func (m *Materializer) runFileJobs(ctx context.Context, jobs []fileJob, strategy model.LinkStrategy, stats *model.MaterializationStats) error {
	sem := semaphore.NewWeighted(int64(m.concurrency))
	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	completed := 0
	total := len(jobs)

	for _, job := range jobs {
		job := job
		if err := sem.Acquire(gctx, 1); err != nil {
			return err
		}
		g.Go(func() error {
			defer sem.Release(1)
			linked, copied, fallback, err := materializeFile(job.srcPath, job.dstPath, strategy)
			if err != nil {
				return fmt.Errorf("materializer: %s: %w", job.srcPath, err)
			}
			mu.Lock()
			stats.Files++
			if linked {
				stats.FilesLinked++
			}
			if copied {
				stats.FilesCopied++
			}
			if fallback {
				stats.LinkFallbackCopies++
			}
			completed++
			n := completed
			mu.Unlock()
			if m.onProgress != nil {
				m.onProgress(n, total)
			}
			return nil
		})
	}

	return g.Wait()
}

// materializeFile materializes one regular file per strategy. The bool
// returns indicate which counters the caller should bump: linked, copied,
// and — only under LinkAuto when a link(2) failed and a copy was used
// instead — fallback.
func materializeFile(src, dst string, strategy model.LinkStrategy) (linked, copied, fallback bool, err error) {
	switch strategy {
	case model.LinkHardlink:
		if err := os.Link(src, dst); err != nil {
			return false, false, false, fmt.Errorf("hardlink failed: %w", err)
		}
		return true, false, false, nil

	case model.LinkCopy:
		if err := copyFile(src, dst); err != nil {
			return false, false, false, err
		}
		return false, true, false, nil

	default: // LinkAuto
		if err := os.Link(src, dst); err == nil {
			return true, false, false, nil
		} else if isLinkFallbackEligible(err) {
			if err := copyFile(src, dst); err != nil {
				return false, false, false, err
			}
			return false, true, true, nil
		} else {
			return false, false, false, fmt.Errorf("hardlink failed: %w", err)
		}
	}
}

// isLinkFallbackEligible reports whether a failed link(2) call should
// fall back to a full copy under LinkAuto: cross-device
// links, permission denial, or filesystems without hardlink support.
func isLinkFallbackEligible(err error) bool {
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) {
		return false
	}
	switch {
	case errors.Is(linkErr.Err, syscall.EXDEV):
		return true
	case errors.Is(linkErr.Err, syscall.EPERM):
		return true
	case errors.Is(linkErr.Err, syscall.EACCES):
		return true
	case errors.Is(linkErr.Err, syscall.ENOTSUP):
		return true
	case errors.Is(linkErr.Err, syscall.EOPNOTSUPP):
		return true
	default:
		return false
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("copy: open %q: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("copy: stat %q: %w", src, err)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("copy: create %q: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy: write %q: %w", dst, err)
	}
	return out.Close()
}
