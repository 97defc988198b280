// Package store implements the Entry Store (E), Capture (Cap), and
// Restore (Rst) components: the sharded on-disk layout of materialized
// node_modules trees and the staging+atomic-rename protocols that publish
// and retrieve them.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/better-dev/better-gmc/internal/core/model"
)

// Layout resolves on-disk paths under a cache root. AA/BB sharding bounds
// per-directory fanout.
type Layout struct {
	CacheRoot string
}

// NewLayout returns a Layout rooted at cacheRoot.
func NewLayout(cacheRoot string) Layout {
	return Layout{CacheRoot: cacheRoot}
}

func shard(key string) (aa, bb string) {
	if len(key) < 4 {
		return "00", "00"
	}
	return key[0:2], key[2:4]
}

// EntryRoot returns the absolute directory for key.
func (l Layout) EntryRoot(key string) string {
	aa, bb := shard(key)
	return filepath.Join(l.CacheRoot, "store", "materializations", aa, bb, key)
}

// Paths returns the entry root, its entry.json path, and its node_modules
// path — the E.paths(key) operation.
func (l Layout) Paths(key string) (root, meta, nodeModules string) {
	root = l.EntryRoot(key)
	return root, filepath.Join(root, "entry.json"), filepath.Join(root, "node_modules")
}

// VerifyResult is the outcome of E.verify(key).
type VerifyResult struct {
	OK     bool
	Reason model.Reason
	Meta   *model.EntryMetadata
}

// Verify checks that an entry's node_modules exists and its entry.json
// parses.
func (l Layout) Verify(key string) VerifyResult {
	_, metaPath, nodeModules := l.Paths(key)

	if fi, err := os.Stat(nodeModules); err != nil || !fi.IsDir() {
		return VerifyResult{OK: false, Reason: model.ReasonEntryNodeModulesMissing}
	}

	meta, err := l.ReadMeta(key)
	if err != nil || meta == nil {
		return VerifyResult{OK: false, Reason: model.ReasonEntryMetaMissing}
	}

	_ = metaPath
	return VerifyResult{OK: true, Meta: meta}
}

// ReadMeta returns the entry's metadata object, or nil if it doesn't
// exist or doesn't parse (E.read_meta(key)).
func (l Layout) ReadMeta(key string) (*model.EntryMetadata, error) {
	_, metaPath, _ := l.Paths(key)
	b, err := os.ReadFile(metaPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: read %q: %w", metaPath, err)
	}
	var meta model.EntryMetadata
	if err := json.Unmarshal(b, &meta); err != nil {
		return nil, nil
	}
	return &meta, nil
}

// writeMetaAtomic writes meta as <dir>/entry.json using the
// write-to-temp-then-rename discipline used throughout this module
// (grounded on LocalCache save path).
func writeMetaAtomic(dir string, meta model.EntryMetadata) error {
	path := filepath.Join(dir, "entry.json")
	tmp := path + ".tmp"

	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshal entry.json: %w", err)
	}

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("store: open tmp entry.json: %w", err)
	}
	if _, err := f.Write(b); err != nil {
		f.Close()
		return fmt.Errorf("store: write tmp entry.json: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("store: close tmp entry.json: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("store: rename entry.json: %w", err)
	}
	return nil
}
