package store

import (
	"encoding/hex"
	"fmt"
	stdhash "hash"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/better-dev/better-gmc/internal/core/hash"
	"github.com/better-dev/better-gmc/internal/core/model"
)

// ComputeContentHash walks root depth-first in lexicographic order and
// folds every regular file's path and byte content (and every symlink's
// target) into a single BLAKE3 digest. Two trees with identical content
// hash the same regardless of mtimes, permissions, or which files happen
// to be hardlinked — this is strictly an additional integrity check, not
// a substitute for the SHA-256 cache key.
func ComputeContentHash(root string) (string, error) {
	d := hash.New(hash.BLAKE3).NewHash()

	if err := hashDir(d, root, "."); err != nil {
		return "", fmt.Errorf("store: deep verify hash %q: %w", root, err)
	}
	return hex.EncodeToString(d.Sum(nil)), nil
}

func hashDir(d stdhash.Hash, root, rel string) error {
	dir := filepath.Join(root, rel)
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
		childRel := filepath.Join(rel, name)
		p := filepath.Join(root, childRel)

		switch {
		case e.Type()&os.ModeSymlink != 0:
			target, err := os.Readlink(p)
			if err != nil {
				return err
			}
			io.WriteString(d, "symlink:"+childRel+":"+target+"\n")

		case e.IsDir():
			io.WriteString(d, "dir:"+childRel+"\n")
			if err := hashDir(d, root, childRel); err != nil {
				return err
			}

		default:
			io.WriteString(d, "file:"+childRel+"\n")
			f, err := os.Open(p)
			if err != nil {
				return err
			}
			_, err = io.Copy(d, f)
			f.Close()
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// DeepVerifyResult is the outcome of re-hashing an entry's materialized
// content against the digest recorded at Capture time.
type DeepVerifyResult struct {
	OK     bool
	Reason model.Reason
}

// DeepVerify recomputes key's content hash and compares it against the
// one stored in entry.json at Capture time. It is strictly opt-in: a
// missing ContentHash (entries captured before this check existed, or
// with it disabled) is reported distinctly from an actual mismatch.
func (l Layout) DeepVerify(key string) (DeepVerifyResult, error) {
	meta, err := l.ReadMeta(key)
	if err != nil {
		return DeepVerifyResult{}, err
	}
	if meta == nil {
		return DeepVerifyResult{OK: false, Reason: model.ReasonEntryMetaMissing}, nil
	}
	if meta.ContentHash == "" {
		return DeepVerifyResult{OK: false, Reason: model.ReasonContentHashMissing}, nil
	}

	_, _, nodeModules := l.Paths(key)
	got, err := ComputeContentHash(nodeModules)
	if err != nil {
		return DeepVerifyResult{}, err
	}
	if got != meta.ContentHash {
		return DeepVerifyResult{OK: false, Reason: model.ReasonContentHashMismatch}, nil
	}
	return DeepVerifyResult{OK: true}, nil
}
