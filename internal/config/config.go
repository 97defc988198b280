// Package config resolves the cache root and loads optional YAML/.env
// configuration, following a precedence chain: an explicit path, then
// BETTER_CACHE_ROOT, then an OS default, falling back to a
// project-local directory if nothing writable is found.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/better-dev/better-gmc/internal/core/model"
)

// File is the optional on-disk config (".better.yaml" / "better.yaml")
// a project may carry to pin defaults without repeating CLI flags.
type File struct {
	CacheRoot    string             `yaml:"cacheRoot,omitempty"`
	PM           model.PackageManager `yaml:"pm,omitempty"`
	CacheMode    model.CacheMode    `yaml:"cacheMode,omitempty"`
	LinkStrategy model.LinkStrategy `yaml:"linkStrategy,omitempty"`
	ScriptsMode  model.ScriptsMode  `yaml:"scriptsMode,omitempty"`
	FSConcurrency int               `yaml:"fsConcurrency,omitempty"`
	CacheKeySalt string             `yaml:"cacheKeySalt,omitempty"`
	CacheReadOnly bool              `yaml:"cacheReadOnly,omitempty"`
	GC           model.GCPolicy     `yaml:"gc,omitempty"`
}

// LoadFile reads "<projectRoot>/.better.yaml" (falling back to
// "better.yaml"), returning a zero-value File if neither exists.
func LoadFile(projectRoot string) (File, error) {
	for _, name := range []string{".better.yaml", "better.yaml"} {
		p := filepath.Join(projectRoot, name)
		b, err := os.ReadFile(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return File{}, fmt.Errorf("config: read %q: %w", p, err)
		}
		var f File
		if err := yaml.Unmarshal(b, &f); err != nil {
			return File{}, fmt.Errorf("config: parse %q: %w", p, err)
		}
		return f, nil
	}
	return File{}, nil
}

// LoadDotEnv loads "<projectRoot>/.env" into the process environment if
// present. Missing .env is not an error.
func LoadDotEnv(projectRoot string) error {
	p := filepath.Join(projectRoot, ".env")
	if _, err := os.Stat(p); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config: stat %q: %w", p, err)
	}
	if err := godotenv.Load(p); err != nil {
		return fmt.Errorf("config: load %q: %w", p, err)
	}
	return nil
}

// Resolution reports the chosen cache root and whether it required a
// project-local fallback.
type Resolution struct {
	CacheRoot        string
	UsedFallback     bool
	FallbackReason   string
}

// ResolveCacheRoot implements the precedence chain: explicit path →
// BETTER_CACHE_ROOT env → OS default → project-local fallback if the
// chosen root isn't writable.
func ResolveCacheRoot(explicit, projectRoot string) (Resolution, error) {
	candidate := explicit
	if candidate == "" {
		candidate = os.Getenv("BETTER_CACHE_ROOT")
	}
	if candidate == "" {
		candidate = osDefaultCacheRoot()
	}

	if err := os.MkdirAll(candidate, 0o755); err == nil && writable(candidate) {
		return Resolution{CacheRoot: candidate}, nil
	}

	fallback := filepath.Join(projectRoot, ".better", "cache")
	if err := os.MkdirAll(fallback, 0o755); err != nil {
		return Resolution{}, fmt.Errorf("config: create fallback cache root %q: %w", fallback, err)
	}
	return Resolution{
		CacheRoot:      fallback,
		UsedFallback:   true,
		FallbackReason: fmt.Sprintf("cache root %q is not writable", candidate),
	}, nil
}

func osDefaultCacheRoot() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Caches", "better")
	case "windows":
		if v := os.Getenv("LOCALAPPDATA"); v != "" {
			return filepath.Join(v, "better", "cache")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "AppData", "Local", "better", "cache")
	default:
		if v := os.Getenv("XDG_CACHE_HOME"); v != "" {
			return filepath.Join(v, "better")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".cache", "better")
	}
}

func writable(dir string) bool {
	probe := filepath.Join(dir, ".better-write-probe")
	f, err := os.Create(probe)
	if err != nil {
		return false
	}
	f.Close()
	os.Remove(probe)
	return true
}
