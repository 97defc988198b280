package materializer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/better-dev/better-gmc/internal/core/model"
)

func buildSourceTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("aaa"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "sub", "b.txt"), []byte("bbbbb"), 0o644); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestMaterializeHardlink(t *testing.T) {
	src := buildSourceTree(t)
	dst := filepath.Join(t.TempDir(), "dst")

	m := New()
	res, err := m.Materialize(context.Background(), src, dst, model.LinkHardlink)
	if err != nil {
		t.Fatalf("materialize failed: %v", err)
	}
	if !res.OK {
		t.Fatalf("expected ok result")
	}
	if res.Stats.Files != 2 || res.Stats.FilesLinked != 2 || res.Stats.Directories != 1 {
		t.Fatalf("unexpected stats: %+v", res.Stats)
	}

	srcInfo, err := os.Stat(filepath.Join(src, "a.txt"))
	if err != nil {
		t.Fatal(err)
	}
	dstInfo, err := os.Stat(filepath.Join(dst, "a.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if !os.SameFile(srcInfo, dstInfo) {
		t.Fatalf("expected hardlinked files to share identity")
	}
}

func TestMaterializeCopy(t *testing.T) {
	src := buildSourceTree(t)
	dst := filepath.Join(t.TempDir(), "dst")

	m := New()
	res, err := m.Materialize(context.Background(), src, dst, model.LinkCopy)
	if err != nil {
		t.Fatalf("materialize failed: %v", err)
	}
	if res.Stats.FilesCopied != 2 || res.Stats.FilesLinked != 0 {
		t.Fatalf("unexpected stats: %+v", res.Stats)
	}

	srcInfo, _ := os.Stat(filepath.Join(src, "a.txt"))
	dstInfo, _ := os.Stat(filepath.Join(dst, "a.txt"))
	if os.SameFile(srcInfo, dstInfo) {
		t.Fatalf("expected copied files to NOT share identity")
	}

	b, err := os.ReadFile(filepath.Join(dst, "sub", "b.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "bbbbb" {
		t.Fatalf("unexpected copied content: %q", b)
	}
}

func TestMaterializeAutoPrefersLink(t *testing.T) {
	src := buildSourceTree(t)
	dst := filepath.Join(t.TempDir(), "dst")

	m := New(WithConcurrency(2))
	res, err := m.Materialize(context.Background(), src, dst, model.LinkAuto)
	if err != nil {
		t.Fatalf("materialize failed: %v", err)
	}
	if res.Stats.FilesLinked != 2 || res.Stats.LinkFallbackCopies != 0 {
		t.Fatalf("expected auto to use hardlinks on same filesystem: %+v", res.Stats)
	}
}

func TestMaterializeMissingSourceErrors(t *testing.T) {
	m := New()
	_, err := m.Materialize(context.Background(), filepath.Join(t.TempDir(), "nope"), filepath.Join(t.TempDir(), "dst"), model.LinkCopy)
	if err == nil {
		t.Fatalf("expected error for missing source")
	}
}
