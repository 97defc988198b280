package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/better-dev/better-gmc/internal/engine"
)

var gcDryRun bool

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Run garbage collection over the cache root",
	Long: `gc applies the state index's configured GC policy (max age, then max
size, LRU-first) to the entry store. --dry-run reports what would be
removed without removing it.`,
	RunE: runGC,
}

func init() {
	gcCmd.Flags().BoolVar(&gcDryRun, "dry-run", false, "report deletions without performing them")
	rootCmd.AddCommand(gcCmd)
}

func runGC(_ *cobra.Command, _ []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}
	cacheRoot, err := resolveCacheRoot(root)
	if err != nil {
		return err
	}

	e := engine.New(cacheRoot, engine.WithLogger(newLogger()))
	res, err := e.RunGC(gcDryRun)
	if err != nil {
		return fmt.Errorf("gc: %w", err)
	}

	verb := "freed"
	if gcDryRun {
		verb = "would free"
	}
	fmt.Printf("%s %s across %d entr%s\n",
		color.GreenString(verb), humanize.Bytes(uint64(res.FreedBytes)), len(res.Deletions), plural(len(res.Deletions)))
	for _, d := range res.Deletions {
		fmt.Printf("  - %s (%s, last modified %s)\n", d.Key, humanize.Bytes(uint64(d.SizeBytes)), humanize.Time(d.ModTime))
	}
	return nil
}

func plural(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
