package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/better-dev/better-gmc/internal/core/model"
	"github.com/better-dev/better-gmc/internal/materializer"
)

func TestDeepVerifyMissingEntry(t *testing.T) {
	l := NewLayout(t.TempDir())
	res, err := l.DeepVerify(testKey)
	if err != nil {
		t.Fatal(err)
	}
	if res.OK {
		t.Fatalf("expected not ok for missing entry")
	}
	if res.Reason != model.ReasonEntryMetaMissing {
		t.Fatalf("unexpected reason: %q", res.Reason)
	}
}

func TestDeepVerifyOKAfterCapture(t *testing.T) {
	cacheRoot := t.TempDir()
	l := NewLayout(cacheRoot)
	project := setupProject(t)
	m := materializer.New()

	if _, err := l.Capture(context.Background(), m, CaptureOptions{Key: testKey, ProjectRoot: project, LinkStrategy: model.LinkCopy}); err != nil {
		t.Fatal(err)
	}

	res, err := l.DeepVerify(testKey)
	if err != nil {
		t.Fatal(err)
	}
	if !res.OK {
		t.Fatalf("expected deep verify ok, reason=%q", res.Reason)
	}
}

func TestDeepVerifyDetectsTampering(t *testing.T) {
	cacheRoot := t.TempDir()
	l := NewLayout(cacheRoot)
	project := setupProject(t)
	m := materializer.New()

	if _, err := l.Capture(context.Background(), m, CaptureOptions{Key: testKey, ProjectRoot: project, LinkStrategy: model.LinkCopy}); err != nil {
		t.Fatal(err)
	}

	_, _, nodeModules := l.Paths(testKey)
	if err := os.WriteFile(filepath.Join(nodeModules, "left-pad", "index.js"), []byte("tampered"), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := l.DeepVerify(testKey)
	if err != nil {
		t.Fatal(err)
	}
	if res.OK {
		t.Fatalf("expected tampering to be detected")
	}
	if res.Reason != model.ReasonContentHashMismatch {
		t.Fatalf("unexpected reason: %q", res.Reason)
	}
}
