// Package gc implements the GC Controller: age-based and size-based (LRU)
// eviction of entries under "<cacheRoot>/store/materializations/**". GC
// operates purely on file identity and mtime and never consults the
// state index, so index staleness can't corrupt a GC decision — the same
// separation a CLOCK-Pro eviction loop keeps between its cache core and
// its ejection callback.
package gc

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/better-dev/better-gmc/internal/core/model"
	"github.com/better-dev/better-gmc/internal/core/scan"
)

// Option configures a Controller.
type Option func(*Controller)

// Logger is the narrow subset of zap's SugaredLogger this package calls.
type Logger interface {
	Infow(msg string, kv ...any)
	Warnw(msg string, kv ...any)
}

type noopLogger struct{}

func (noopLogger) Infow(string, ...any) {}
func (noopLogger) Warnw(string, ...any) {}

// WithLogger attaches a structured logger; defaults to a no-op.
func WithLogger(l Logger) Option {
	return func(c *Controller) { c.log = l }
}

// Controller runs GC over one cache root.
type Controller struct {
	cacheRoot string
	log       Logger
}

// New constructs a Controller rooted at cacheRoot.
func New(cacheRoot string, opts ...Option) *Controller {
	c := &Controller{cacheRoot: cacheRoot, log: noopLogger{}}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Deletion describes one entry GC removed (or would remove, under
// dry-run).
type Deletion struct {
	Key       string
	Path      string
	SizeBytes int64
	ModTime   time.Time
}

// Result is the outcome of one GC pass.
type Result struct {
	Deletions  []Deletion
	FreedBytes int64
}

type candidate struct {
	key     string
	path    string
	modTime time.Time
	size    int64
}

func (c *Controller) materializationsRoot() string {
	return filepath.Join(c.cacheRoot, "store", "materializations")
}

// listEntries walks the two-level shard directories and returns every
// entry directory along with its mtime and total physical size.
func (c *Controller) listEntries() ([]candidate, error) {
	root := c.materializationsRoot()
	shardsAA, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("gc: read %q: %w", root, err)
	}

	var out []candidate
	for _, aa := range shardsAA {
		if !aa.IsDir() {
			continue
		}
		aaPath := filepath.Join(root, aa.Name())
		shardsBB, err := os.ReadDir(aaPath)
		if err != nil {
			return nil, fmt.Errorf("gc: read %q: %w", aaPath, err)
		}
		for _, bb := range shardsBB {
			if !bb.IsDir() {
				continue
			}
			bbPath := filepath.Join(aaPath, bb.Name())
			keys, err := os.ReadDir(bbPath)
			if err != nil {
				return nil, fmt.Errorf("gc: read %q: %w", bbPath, err)
			}
			for _, k := range keys {
				if !k.IsDir() {
					continue
				}
				entryPath := filepath.Join(bbPath, k.Name())
				info, err := k.Info()
				if err != nil {
					return nil, fmt.Errorf("gc: stat %q: %w", entryPath, err)
				}

				res, err := scan.Walk(entryPath)
				if err != nil {
					return nil, fmt.Errorf("gc: scan %q: %w", entryPath, err)
				}

				out = append(out, candidate{
					key:     k.Name(),
					path:    entryPath,
					modTime: info.ModTime(),
					size:    res.PhysicalBytes,
				})
			}
		}
	}
	return out, nil
}

// ByAge removes every entry whose directory mtime is older than cutoff.
// dryRun reports the same deletions without performing them.
func (c *Controller) ByAge(cutoff time.Time, dryRun bool) (Result, error) {
	entries, err := c.listEntries()
	if err != nil {
		return Result{}, err
	}

	var result Result
	for _, e := range entries {
		if e.modTime.After(cutoff) {
			continue
		}
		if !dryRun {
			if err := os.RemoveAll(e.path); err != nil {
				return result, fmt.Errorf("gc: remove %q: %w", e.path, err)
			}
		}
		result.Deletions = append(result.Deletions, Deletion{Key: e.key, Path: e.path, SizeBytes: e.size, ModTime: e.modTime})
		result.FreedBytes += e.size
	}

	c.log.Infow("gc by age complete", "cutoff", cutoff, "removed", len(result.Deletions), "freedBytes", result.FreedBytes, "dryRun", dryRun)
	return result, nil
}

// BySize removes entries in ascending mtime order (LRU) until total
// physical bytes is at or below target. dryRun reports the same
// deletions without performing them.
func (c *Controller) BySize(target int64, dryRun bool) (Result, error) {
	entries, err := c.listEntries()
	if err != nil {
		return Result{}, err
	}

	var total int64
	for _, e := range entries {
		total += e.size
	}
	if total <= target {
		return Result{}, nil
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].modTime.Before(entries[j].modTime) })

	var result Result
	for _, e := range entries {
		if total <= target {
			break
		}
		if !dryRun {
			if err := os.RemoveAll(e.path); err != nil {
				return result, fmt.Errorf("gc: remove %q: %w", e.path, err)
			}
		}
		result.Deletions = append(result.Deletions, Deletion{Key: e.key, Path: e.path, SizeBytes: e.size, ModTime: e.modTime})
		result.FreedBytes += e.size
		total -= e.size
	}

	c.log.Infow("gc by size complete", "target", target, "removed", len(result.Deletions), "freedBytes", result.FreedBytes, "dryRun", dryRun)
	return result, nil
}

// RunPolicy applies a GCPolicy's age and size bounds in sequence (age
// first, then size) for one scheduled sweep.
func (c *Controller) RunPolicy(policy model.GCPolicy, dryRun bool) (Result, error) {
	var combined Result

	if policy.MaxAgeDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -policy.MaxAgeDays)
		ageRes, err := c.ByAge(cutoff, dryRun)
		if err != nil {
			return combined, err
		}
		combined.Deletions = append(combined.Deletions, ageRes.Deletions...)
		combined.FreedBytes += ageRes.FreedBytes
	}

	if policy.MaxSizeBytes > 0 {
		sizeRes, err := c.BySize(policy.MaxSizeBytes, dryRun)
		if err != nil {
			return combined, err
		}
		combined.Deletions = append(combined.Deletions, sizeRes.Deletions...)
		combined.FreedBytes += sizeRes.FreedBytes
	}

	return combined, nil
}
