package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFileMissingReturnsZeroValue(t *testing.T) {
	f, err := LoadFile(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if f != (File{}) {
		t.Fatalf("expected zero-value File, got %+v", f)
	}
}

func TestLoadFilePrefersDotBetterYaml(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".better.yaml"), []byte("cacheRoot: /dot\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "better.yaml"), []byte("cacheRoot: /plain\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := LoadFile(dir)
	if err != nil {
		t.Fatal(err)
	}
	if f.CacheRoot != "/dot" {
		t.Fatalf("expected .better.yaml to take precedence, got %q", f.CacheRoot)
	}
}

func TestLoadFileFallsBackToPlainYaml(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "better.yaml"), []byte("cacheRoot: /plain\nfsConcurrency: 4\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := LoadFile(dir)
	if err != nil {
		t.Fatal(err)
	}
	if f.CacheRoot != "/plain" || f.FSConcurrency != 4 {
		t.Fatalf("unexpected file contents: %+v", f)
	}
}

func TestLoadDotEnvMissingIsNotAnError(t *testing.T) {
	if err := LoadDotEnv(t.TempDir()); err != nil {
		t.Fatalf("missing .env should not error: %v", err)
	}
}

func TestLoadDotEnvSetsProcessEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("BETTER_GMC_CONFIG_TEST=hello\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	defer os.Unsetenv("BETTER_GMC_CONFIG_TEST")

	if err := LoadDotEnv(dir); err != nil {
		t.Fatal(err)
	}
	if v := os.Getenv("BETTER_GMC_CONFIG_TEST"); v != "hello" {
		t.Fatalf("expected .env to set process env, got %q", v)
	}
}

func TestResolveCacheRootExplicitWins(t *testing.T) {
	explicit := filepath.Join(t.TempDir(), "explicit-cache")
	res, err := ResolveCacheRoot(explicit, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if res.CacheRoot != explicit {
		t.Fatalf("expected explicit cache root to win, got %q", res.CacheRoot)
	}
	if res.UsedFallback {
		t.Fatalf("did not expect fallback for a writable explicit root")
	}
}

func TestResolveCacheRootFallsBackWhenUnwritable(t *testing.T) {
	// A file (not a directory) at the candidate path can never be made
	// writable as a directory, forcing the project-local fallback.
	blocked := filepath.Join(t.TempDir(), "blocked")
	if err := os.WriteFile(blocked, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	projectRoot := t.TempDir()
	res, err := ResolveCacheRoot(blocked, projectRoot)
	if err != nil {
		t.Fatal(err)
	}
	if !res.UsedFallback {
		t.Fatalf("expected fallback when explicit root is not a writable directory")
	}
	want := filepath.Join(projectRoot, ".better", "cache")
	if res.CacheRoot != want {
		t.Fatalf("expected fallback cache root %q, got %q", want, res.CacheRoot)
	}
}
