// Package fingerprint builds the runtime/operational Fingerprint used by
// key derivation and detects the handful of environment
// facts (libc, Node major version) the caller doesn't already know.
package fingerprint

import (
	"bytes"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
	"strings"

	"github.com/better-dev/better-gmc/internal/core/model"
)

// Options are the caller-supplied inputs that, combined with detected
// host facts, make up a Fingerprint.
type Options struct {
	PM           model.PackageManager
	Engine       string
	ScriptsMode  model.ScriptsMode
	Frozen       bool
	Production   bool
	CacheKeySalt string

	// NodeBin, if set, is invoked as "<NodeBin> --version" to detect
	// NodeMajor. If empty, "node" is looked up on PATH. If detection
	// fails, NodeMajor is left at 0 and the fingerprint still round-trips
	// deterministically (a missing Node on PATH is not an error here —
	// the caller may be pre-fetching/validating before Node exists).
	NodeBin string
}

// Build assembles a Fingerprint from opts plus live host detection.
func Build(opts Options) model.Fingerprint {
	return model.Fingerprint{
		Platform:     runtime.GOOS,
		Arch:         runtime.GOARCH,
		NodeMajor:    detectNodeMajor(opts.NodeBin),
		Libc:         DetectLibc(),
		PM:           opts.PM,
		Engine:       opts.Engine,
		ScriptsMode:  opts.ScriptsMode,
		Frozen:       opts.Frozen,
		Production:   opts.Production,
		CacheKeySalt: opts.CacheKeySalt,
	}
}

var nodeVersionRe = regexp.MustCompile(`v?(\d+)\.\d+\.\d+`)

func detectNodeMajor(nodeBin string) int {
	bin := nodeBin
	if bin == "" {
		bin = "node"
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return 0
	}
	out, err := exec.Command(path, "--version").Output()
	if err != nil {
		return 0
	}
	m := nodeVersionRe.FindSubmatch(bytes.TrimSpace(out))
	if m == nil {
		return 0
	}
	major, err := strconv.Atoi(string(m[1]))
	if err != nil {
		return 0
	}
	return major
}

var glibcVersionRe = regexp.MustCompile(`(\d+\.\d+)`)

// DetectLibc reports "glibc-<version>" when detectable on Linux,
// "linux-unknown-libc" on Linux otherwise, and "n/a" elsewhere. Absence
// on Linux is reported rather than hidden, since it changes the key.
func DetectLibc() string {
	if runtime.GOOS != "linux" {
		return "n/a"
	}
	if v, ok := glibcVersionFromLdd(); ok {
		return "glibc-" + v
	}
	return "linux-unknown-libc"
}

func glibcVersionFromLdd() (string, bool) {
	path, err := exec.LookPath("ldd")
	if err != nil {
		return "", false
	}
	out, err := exec.Command(path, "--version").Output()
	if err != nil {
		return "", false
	}
	if !strings.Contains(strings.ToLower(string(out)), "gnu libc") &&
		!strings.Contains(strings.ToLower(string(out)), "glibc") {
		return "", false
	}
	m := glibcVersionRe.FindSubmatch(out)
	if m == nil {
		return "", false
	}
	return string(m[1]), true
}
