package key

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/better-dev/better-gmc/internal/core/model"
)

func writeLockfile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDeriveIneligibleWithoutLockfile(t *testing.T) {
	dir := t.TempDir()
	res, err := Derive(dir, Options{PM: model.PMNpm})
	if err != nil {
		t.Fatal(err)
	}
	if res.Eligible {
		t.Fatalf("expected ineligible result")
	}
	if res.Reason != model.ReasonLockfileNotFound {
		t.Fatalf("expected lockfile_not_found, got %q", res.Reason)
	}
}

func TestDerivePrefersDeclaredPMLockfile(t *testing.T) {
	dir := t.TempDir()
	writeLockfile(t, dir, "yarn.lock", "yarn-content")
	writeLockfile(t, dir, "package-lock.json", "npm-content")

	res, err := Derive(dir, Options{PM: model.PMYarn, CacheMode: model.ModeStrict})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Eligible {
		t.Fatalf("expected eligible result, reason=%q", res.Reason)
	}
	if res.Lockfile.File != "yarn.lock" {
		t.Fatalf("expected yarn.lock chosen, got %q", res.Lockfile.File)
	}
}

func TestDeriveKeyDeterministicForSameInputs(t *testing.T) {
	dir1 := t.TempDir()
	dir2 := t.TempDir()
	writeLockfile(t, dir1, "package-lock.json", "same-content")
	writeLockfile(t, dir2, "package-lock.json", "same-content")

	opts := Options{PM: model.PMNpm, Engine: model.EngineName, CacheMode: model.ModeRelaxed}

	r1, err := Derive(dir1, opts)
	if err != nil {
		t.Fatal(err)
	}
	r2, err := Derive(dir2, opts)
	if err != nil {
		t.Fatal(err)
	}
	if !r1.Eligible || !r2.Eligible {
		t.Fatalf("expected both eligible")
	}
	if r1.Key != r2.Key {
		t.Fatalf("expected identical keys, got %s vs %s", r1.Key, r2.Key)
	}
}

func TestDeriveKeyDiffersOnLockfileChange(t *testing.T) {
	dir := t.TempDir()
	writeLockfile(t, dir, "package-lock.json", "content-a")
	opts := Options{PM: model.PMNpm, CacheMode: model.ModeStrict}
	r1, err := Derive(dir, opts)
	if err != nil {
		t.Fatal(err)
	}

	writeLockfile(t, dir, "package-lock.json", "content-b")
	r2, err := Derive(dir, opts)
	if err != nil {
		t.Fatal(err)
	}

	if r1.Key == r2.Key {
		t.Fatalf("expected different keys for different lockfile content")
	}
}

func TestComputeRelaxedIgnoresNodeMajor(t *testing.T) {
	fp1 := model.Fingerprint{Platform: "linux", Arch: "amd64", NodeMajor: 18, PM: model.PMNpm, Engine: "better"}
	fp2 := model.Fingerprint{Platform: "linux", Arch: "amd64", NodeMajor: 20, PM: model.PMNpm, Engine: "better"}

	k1, err := Compute(model.ModeRelaxed, "hash", fp1)
	if err != nil {
		t.Fatal(err)
	}
	k2, err := Compute(model.ModeRelaxed, "hash", fp2)
	if err != nil {
		t.Fatal(err)
	}
	if k1 != k2 {
		t.Fatalf("expected relaxed mode to ignore nodeMajor, got %s vs %s", k1, k2)
	}

	k3, err := Compute(model.ModeStrict, "hash", fp1)
	if err != nil {
		t.Fatal(err)
	}
	k4, err := Compute(model.ModeStrict, "hash", fp2)
	if err != nil {
		t.Fatal(err)
	}
	if k3 == k4 {
		t.Fatalf("expected strict mode to distinguish nodeMajor")
	}
}
