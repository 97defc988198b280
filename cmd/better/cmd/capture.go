package cmd

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/better-dev/better-gmc/internal/core/key"
	"github.com/better-dev/better-gmc/internal/core/model"
	"github.com/better-dev/better-gmc/internal/materializer"
	"github.com/better-dev/better-gmc/internal/store"
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Publish the current node_modules into the cache",
	Long: `capture derives the project's cache key and publishes
<project>/node_modules into the entry store under that key, via a
staging directory and atomic rename. Safe to run concurrently with
another capture of the same key: the race loser's outcome is reported
as success.`,
	RunE: runCapture,
}

func init() {
	rootCmd.AddCommand(captureCmd)
}

func runCapture(_ *cobra.Command, _ []string) error {
	if flagCacheReadOnly {
		fmt.Printf("%s cache is read-only, nothing captured\n", color.YellowString("skipped:"))
		return nil
	}

	root, err := projectRoot()
	if err != nil {
		return err
	}
	cacheRoot, err := resolveCacheRoot(root)
	if err != nil {
		return err
	}

	derived, err := key.Derive(root, keyOptions())
	if err != nil {
		return fmt.Errorf("derive key: %w", err)
	}
	if !derived.Eligible {
		fmt.Printf("%s %s\n", color.YellowString("ineligible:"), derived.Reason)
		return nil
	}

	layout := store.NewLayout(cacheRoot)

	var bar *progressbar.ProgressBar
	mat := materializer.New(
		materializer.WithLogger(newLogger()),
		materializer.WithConcurrency(flagFSConcurrency),
		materializer.WithProgress(func(completed, total int) {
			if bar == nil {
				bar = progressbar.Default(int64(total), "capturing")
			}
			_ = bar.Set(completed)
		}),
	)

	res, err := layout.Capture(context.Background(), mat, store.CaptureOptions{
		Key:           derived.Key,
		ProjectRoot:   root,
		LinkStrategy:  linkStrategy(),
		FSConcurrency: flagFSConcurrency,
		LockHash:      derived.LockHash,
		Lockfile:      derived.Lockfile,
		Fingerprint:   derived.Fingerprint,
		PM:            model.PackageManager(flagPM),
		Engine:        model.EngineName,
		ScriptsMode:   model.ScriptsMode(flagScriptsMode),
		CacheMode:     model.CacheMode(flagCacheMode),
		CreatedBy:     "better-cli",
	})
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	if !res.OK {
		fmt.Printf("%s %s\n", color.RedString("capture failed:"), res.Reason)
		return nil
	}

	fmt.Printf("%s key=%s %s files in %dms\n",
		color.GreenString("captured:"), derived.Key, humanize.Comma(int64(res.Stats.Files)), res.DurationMs)
	return nil
}
