// Package scan implements a deterministic, depth-first walk of a
// materialized tree that reports logical vs. physical byte totals,
// deduplicating hardlinked files by (dev, ino) identity.
package scan

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/better-dev/better-gmc/internal/core/model"
)

// Result is the scanner's output: byte totals plus the approximation flag.
type Result struct {
	OK                  bool
	Reason              model.Reason
	LogicalBytes        int64
	PhysicalBytes       int64
	FileCount           int
	DirCount            int
	SymlinkCount        int
	PhysicalBytesApprox bool
}

// identity is the (dev, ino) pair used to dedup hardlinked files. On
// platforms where stable inode data isn't available, fileIdentity reports
// no identity, every file is attributed its full size, and Walk sets
// PhysicalBytesApprox.
type identity struct {
	dev uint64
	ino uint64
}

// Walk scans root depth-first in lexicographic order and accumulates
// logical/physical byte totals. A missing root is not an error — it
// yields an OK result of all zeros, matching the failure model GC relies
// on for idempotent pre-checks.
func Walk(root string) (Result, error) {
	if _, err := os.Lstat(root); err != nil {
		if os.IsNotExist(err) {
			return Result{OK: true}, nil
		}
		return Result{OK: false, Reason: model.ReasonPermissionDenied}, err
	}

	w := &walker{
		seen:    make(map[identity]struct{}),
		approx:  !identitySupported(),
	}

	if err := w.walkDir(root); err != nil {
		return Result{OK: false, Reason: model.ReasonMaterializeFailed}, err
	}

	return Result{
		OK:                  true,
		LogicalBytes:        w.logicalBytes,
		PhysicalBytes:       w.physicalBytes,
		FileCount:           w.fileCount,
		DirCount:            w.dirCount,
		SymlinkCount:        w.symlinkCount,
		PhysicalBytesApprox: w.approx,
	}, nil
}

type walker struct {
	seen   map[identity]struct{}
	approx bool

	logicalBytes  int64
	physicalBytes int64
	fileCount     int
	dirCount      int
	symlinkCount  int
}

func (w *walker) walkDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(entries))
	byName := make(map[string]os.DirEntry, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
		byName[e.Name()] = e
	}
	sort.Strings(names)

	for _, name := range names {
		e := byName[name]
		p := filepath.Join(dir, name)

		if e.Type()&os.ModeSymlink != 0 {
			w.symlinkCount++
			if info, err := os.Lstat(p); err == nil {
				w.logicalBytes += info.Size()
				w.physicalBytes += info.Size()
			}
			continue
		}

		if e.IsDir() {
			w.dirCount++
			if err := w.walkDir(p); err != nil {
				return err
			}
			continue
		}

		info, err := e.Info()
		if err != nil {
			return err
		}

		w.fileCount++
		w.logicalBytes += info.Size()

		id, nlink, ok := fileIdentity(info)
		if !ok || nlink <= 1 {
			w.physicalBytes += info.Size()
			continue
		}

		if _, dup := w.seen[id]; dup {
			continue
		}
		w.seen[id] = struct{}{}
		w.physicalBytes += info.Size()
	}

	return nil
}
