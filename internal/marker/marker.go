// Package marker implements the Reuse Marker (RM) component: the
// "<projectRoot>/node_modules/.better-state.json" sidecar that lets a
// later install call short-circuit when nothing relevant has changed.
// Writes follow the write-temp-then-rename discipline used throughout
// this module.
package marker

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/better-dev/better-gmc/internal/core/model"
)

func markerPath(projectRoot string) string {
	return filepath.Join(projectRoot, "node_modules", ".better-state.json")
}

// Write persists marker at <projectRoot>/node_modules/.better-state.json.
// node_modules must already exist (a marker without an install makes no
// sense); the caller writes it immediately after a successful
// Capture/Restore.
func Write(projectRoot string, m model.ReuseMarker) error {
	path := markerPath(projectRoot)
	tmp := path + ".tmp"

	m.Version = model.MarkerVersion
	m.Engine = model.EngineName
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = time.Now().UTC()
	}

	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marker: marshal: %w", err)
	}

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("marker: open tmp: %w", err)
	}
	if _, err := f.Write(b); err != nil {
		f.Close()
		return fmt.Errorf("marker: write tmp: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("marker: close tmp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("marker: rename: %w", err)
	}
	return nil
}

// Expected is what evaluate compares the on-disk marker against.
type Expected struct {
	GlobalKey          string
	LockHash           string
	RuntimeFingerprint model.Fingerprint
}

// EvalResult is evaluate's output.
type EvalResult struct {
	Hit    bool
	Reason model.Reason
}

// Evaluate reads the marker at projectRoot and reports whether it is a
// valid hit for expected.
func Evaluate(projectRoot string, expected Expected) EvalResult {
	path := markerPath(projectRoot)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return EvalResult{Reason: model.ReasonMarkerMissing}
		}
		return EvalResult{Reason: model.ReasonReuseContextUnavailable}
	}

	var m model.ReuseMarker
	if err := json.Unmarshal(b, &m); err != nil {
		return EvalResult{Reason: model.ReasonReuseContextUnavailable}
	}

	if m.Version != model.MarkerVersion {
		return EvalResult{Reason: model.ReasonMarkerVersionMismatch}
	}
	if m.Engine != model.EngineName {
		return EvalResult{Reason: model.ReasonMarkerEngineMismatch}
	}
	if m.GlobalKey != expected.GlobalKey {
		return EvalResult{Reason: model.ReasonKeyMismatch}
	}
	if m.LockHash != expected.LockHash {
		return EvalResult{Reason: model.ReasonLockHashMismatch}
	}
	if !m.RuntimeFingerprint.Equal(expected.RuntimeFingerprint) {
		return EvalResult{Reason: model.ReasonRuntimeFingerprintMismatch}
	}

	return EvalResult{Hit: true}
}
