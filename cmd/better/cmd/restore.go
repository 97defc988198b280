package cmd

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/better-dev/better-gmc/internal/core/key"
	"github.com/better-dev/better-gmc/internal/materializer"
	"github.com/better-dev/better-gmc/internal/store"
)

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Materialize a matching cache entry into node_modules",
	Long: `restore derives the project's cache key, verifies a matching entry
exists, and atomically replaces <project>/node_modules with a
materialization of that entry using --link-strategy.`,
	RunE: runRestore,
}

func init() {
	rootCmd.AddCommand(restoreCmd)
}

func runRestore(_ *cobra.Command, _ []string) error {
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
				bar = progressbar.Default(int64(total), "restoring")
			}
			_ = bar.Set(completed)
		}),
	)

	res, err := layout.Restore(context.Background(), mat, store.RestoreOptions{
		Key:           derived.Key,
		ProjectRoot:   root,
		LinkStrategy:  linkStrategy(),
		FSConcurrency: flagFSConcurrency,
	})
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	if !res.OK {
		fmt.Printf("%s %s\n", color.RedString("restore failed:"), res.Reason)
		return nil
	}

	fmt.Printf("%s %s files (%s linked, %s copied) in %dms\n",
		color.GreenString("restored:"),
		humanize.Comma(int64(res.Stats.Files)),
		humanize.Comma(int64(res.Stats.FilesLinked)),
		humanize.Comma(int64(res.Stats.FilesCopied)),
		res.DurationMs,
	)
	return nil
}
