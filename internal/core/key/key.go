// Package key implements the K component: combining a lockfile digest and
// a runtime fingerprint into a stable 64-hex cache key.
package key

import (
	"os"
	"path/filepath"

	"github.com/better-dev/better-gmc/internal/core/fingerprint"
	"github.com/better-dev/better-gmc/internal/core/hash"
	"github.com/better-dev/better-gmc/internal/core/model"
)

// Options is the derivation input: project root plus the option bag.
type Options struct {
	PM           model.PackageManager
	Engine       string
	CacheMode    model.CacheMode
	ScriptsMode  model.ScriptsMode
	Frozen       bool
	Production   bool
	CacheKeySalt string
	NodeBin      string
}

// Result is what Derive returns — eligible+key, or ineligible+reason.
type Result struct {
	Eligible    bool
	Reason      model.Reason
	Key         string
	LockHash    string
	Lockfile    model.LockfileDescriptor
	Fingerprint model.Fingerprint
}

// lockfileCandidates returns the ordered lockfile candidates for a given
// PM: bun → pnpm → yarn → npm/shrinkwrap, but the caller's declared PM
// always takes precedence as the first probe.
func lockfileCandidates(pm model.PackageManager) []string {
	bun := []string{"bun.lock", "bun.lockb"}
	pnpm := []string{"pnpm-lock.yaml"}
	yarn := []string{"yarn.lock"}
	npm := []string{"package-lock.json", "npm-shrinkwrap.json"}

	switch pm {
	case model.PMBun:
		return concat(bun, pnpm, yarn, npm)
	case model.PMPnpm:
		return concat(pnpm, bun, yarn, npm)
	case model.PMYarn:
		return concat(yarn, bun, pnpm, npm)
	default:
		return concat(npm, bun, pnpm, yarn)
	}
}

func concat(groups ...[]string) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// chooseLockfile picks the first existing candidate under projectRoot.
func chooseLockfile(projectRoot string, pm model.PackageManager) (string, bool) {
	for _, name := range lockfileCandidates(pm) {
		p := filepath.Join(projectRoot, name)
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return name, true
		}
	}
	return "", false
}

// Derive runs the full key-derivation algorithm.
func Derive(projectRoot string, opts Options) (Result, error) {
	lockfileName, ok := chooseLockfile(projectRoot, opts.PM)
	if !ok {
		return Result{Eligible: false, Reason: model.ReasonLockfileNotFound}, nil
	}

	lockPath := filepath.Join(projectRoot, lockfileName)
	lockHash, err := hash.HashFileRaw(lockPath)
	if err != nil {
		return Result{}, err
	}

	fp := fingerprint.Build(fingerprint.Options{
		PM:           opts.PM,
		Engine:       opts.Engine,
		ScriptsMode:  opts.ScriptsMode,
		Frozen:       opts.Frozen,
		Production:   opts.Production,
		CacheKeySalt: opts.CacheKeySalt,
		NodeBin:      opts.NodeBin,
	})

	k, err := Compute(opts.CacheMode, lockHash, fp)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Eligible: true,
		Key:      k,
		LockHash: lockHash,
		Lockfile: model.LockfileDescriptor{File: lockfileName, Hash: lockHash},
		Fingerprint: fp,
	}, nil
}

// Compute hashes {version:1, cacheMode, lockHash, fingerprint} per the
// chosen cacheMode's fingerprint subset: same inputs always produce the
// same key, on any host.
func Compute(mode model.CacheMode, lockHash string, fp model.Fingerprint) (string, error) {
	payload := map[string]any{
		"version":     1,
		"cacheMode":   string(mode),
		"lockHash":    lockHash,
		"fingerprint": fp.ForMode(mode),
	}
	return hash.HashValue(payload)
}
