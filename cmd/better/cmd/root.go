// Package cmd provides the CLI commands for better-gmc: one subcommand
// per external cache operation, calling the key, store, marker and engine
// packages.
package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/better-dev/better-gmc/internal/config"
	"github.com/better-dev/better-gmc/internal/core/key"
	"github.com/better-dev/better-gmc/internal/core/model"
	"github.com/better-dev/better-gmc/internal/logging"
)

var (
	flagCacheRoot     string
	flagProjectRoot   string
	flagPM            string
	flagCacheMode     string
	flagLinkStrategy  string
	flagScriptsMode   string
	flagFrozen        bool
	flagProduction    bool
	flagCacheKeySalt  string
	flagNodeBin       string
	flagFSConcurrency int
	flagCacheReadOnly bool
	flagJSON          bool
	flagVerbose       bool
)

var rootCmd = &cobra.Command{
	Use:   "better",
	Short: "Global materialization cache for node_modules trees",
	Long: `better manages a process-shared, content-addressed cache of fully
installed node_modules trees, keyed by lockfile hash and runtime fingerprint.

Example usage:
  better key                    # derive this project's cache key
  better verify                 # check whether a matching entry exists
  better restore                # materialize a matching entry into node_modules
  better capture                # publish the current node_modules into the cache
  better marker eval            # check the reuse marker without touching the cache
  better gc --dry-run           # preview what garbage collection would remove
  better lock                   # emit a better.lock report document
  better watch                  # re-derive the key on every lockfile change`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagCacheRoot, "cache-root", "", "cache root (default: BETTER_CACHE_ROOT env, then OS default)")
	rootCmd.PersistentFlags().StringVar(&flagProjectRoot, "project", ".", "project root")
	rootCmd.PersistentFlags().StringVar(&flagPM, "pm", string(model.PMNpm), "package manager (bun|pnpm|yarn|npm)")
	rootCmd.PersistentFlags().StringVar(&flagCacheMode, "cache-mode", string(model.ModeStrict), "fingerprint subset used in key derivation (strict|relaxed)")
	rootCmd.PersistentFlags().StringVar(&flagLinkStrategy, "link-strategy", string(model.LinkAuto), "materialization strategy (hardlink|copy|auto)")
	rootCmd.PersistentFlags().StringVar(&flagScriptsMode, "scripts-mode", string(model.ScriptsRebuild), "lifecycle-script policy (rebuild|skip|defer)")
	rootCmd.PersistentFlags().BoolVar(&flagFrozen, "frozen", false, "lockfile is frozen (no auto-resolve)")
	rootCmd.PersistentFlags().BoolVar(&flagProduction, "production", false, "production install")
	rootCmd.PersistentFlags().StringVar(&flagCacheKeySalt, "cache-key-salt", "", "extra salt mixed into the cache key")
	rootCmd.PersistentFlags().StringVar(&flagNodeBin, "node-bin", "", "node binary used for Node-major detection (default: \"node\" on PATH)")
	rootCmd.PersistentFlags().IntVar(&flagFSConcurrency, "fs-concurrency", 16, "bounded worker-pool size for materialization (1..128)")
	rootCmd.PersistentFlags().BoolVar(&flagCacheReadOnly, "cache-read-only", false, "never publish a new entry, only ever read from the cache")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "emit machine-readable JSON instead of text")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "verbose (debug-level) logging")
}

func projectRoot() (string, error) {
	return filepath.Abs(flagProjectRoot)
}

func resolveCacheRoot(projectRoot string) (string, error) {
	res, err := config.ResolveCacheRoot(flagCacheRoot, projectRoot)
	if err != nil {
		return "", err
	}
	if res.UsedFallback && flagVerbose {
		fmt.Fprintf(color.Error, "%s %s\n", color.YellowString("warning:"), res.FallbackReason)
	}
	return res.CacheRoot, nil
}

func newLogger() *zap.SugaredLogger {
	l, err := logging.New(flagVerbose)
	if err != nil {
		return logging.Noop()
	}
	return l
}

func keyOptions() key.Options {
	return key.Options{
		PM:           model.PackageManager(flagPM),
		Engine:       model.EngineName,
		CacheMode:    model.CacheMode(flagCacheMode),
		ScriptsMode:  model.ScriptsMode(flagScriptsMode),
		Frozen:       flagFrozen,
		Production:   flagProduction,
		CacheKeySalt: flagCacheKeySalt,
		NodeBin:      flagNodeBin,
	}
}

func linkStrategy() model.LinkStrategy {
	return model.LinkStrategy(flagLinkStrategy)
}
