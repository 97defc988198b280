package scan

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWalkMissingRootIsZeroOK(t *testing.T) {
	res, err := Walk(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.OK || res.FileCount != 0 || res.LogicalBytes != 0 {
		t.Fatalf("expected zeroed OK result, got %+v", res)
	}
}

func TestWalkCountsFilesAndDirs(t *testing.T) {
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "a.txt"), "hello")
	if err := os.Mkdir(filepath.Join(root, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	mustWriteFile(t, filepath.Join(root, "sub", "b.txt"), "world!")

	res, err := Walk(root)
	if err != nil {
		t.Fatal(err)
	}
	if !res.OK {
		t.Fatalf("expected OK result")
	}
	if res.FileCount != 2 {
		t.Fatalf("expected 2 files, got %d", res.FileCount)
	}
	if res.DirCount != 1 {
		t.Fatalf("expected 1 dir, got %d", res.DirCount)
	}
	if res.LogicalBytes != int64(len("hello")+len("world!")) {
		t.Fatalf("unexpected logical bytes: %d", res.LogicalBytes)
	}
}

func TestWalkDedupesHardlinks(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "orig.txt")
	mustWriteFile(t, src, "duplicated content")
	link := filepath.Join(root, "linked.txt")
	if err := os.Link(src, link); err != nil {
		t.Skipf("hardlinks unsupported on this filesystem: %v", err)
	}

	res, err := Walk(root)
	if err != nil {
		t.Fatal(err)
	}
	if res.FileCount != 2 {
		t.Fatalf("expected 2 logical files, got %d", res.FileCount)
	}
	if !identitySupported() {
		t.Skip("identity not supported on this platform, physical dedup not expected")
	}
	wantPhysical := int64(len("duplicated content"))
	if res.PhysicalBytes != wantPhysical {
		t.Fatalf("expected physical bytes deduped to %d, got %d", wantPhysical, res.PhysicalBytes)
	}
	wantLogical := int64(len("duplicated content") * 2)
	if res.LogicalBytes != wantLogical {
		t.Fatalf("expected logical bytes %d, got %d", wantLogical, res.LogicalBytes)
	}
}

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
