package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/better-dev/better-gmc/internal/core/key"
	"github.com/better-dev/better-gmc/internal/store"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-derive the cache key on every lockfile change",
	Long: `watch watches the project root for lockfile writes, debounces them,
and reports whether the resulting key would hit or miss the cache. It
never restores or captures anything itself; it is a convenience for
iterating on lockfile changes, not part of the install state machine.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 750*time.Millisecond, "quiet period before re-deriving the key after a change")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}
	cacheRoot, err := resolveCacheRoot(root)
	if err != nil {
		return err
	}
	layout := store.NewLayout(cacheRoot)

	report := func() {
		derived, err := key.Derive(root, keyOptions())
		if err != nil {
			fmt.Printf("%s %v\n", color.RedString("error:"), err)
			return
		}
		if !derived.Eligible {
			fmt.Printf("%s %s\n", color.YellowString("ineligible:"), derived.Reason)
			return
		}
		if v := layout.Verify(derived.Key); v.OK {
			fmt.Printf("%s key=%s\n", color.GreenString("would hit:"), derived.Key)
		} else {
			fmt.Printf("%s key=%s (%s)\n", color.RedString("would miss:"), derived.Key, v.Reason)
		}
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer w.Close()

	if err := w.Add(root); err != nil {
		return fmt.Errorf("watch add %q: %w", root, err)
	}

	fmt.Printf("watching %s for lockfile changes (Ctrl+C to stop)\n", root)
	report()

	var timer *time.Timer
	ctx := cmd.Context()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !isLockfileName(filepath.Base(ev.Name)) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, report)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "[watch] error: %v\n", err)
		}
	}
}

func isLockfileName(name string) bool {
	switch name {
	case "bun.lock", "bun.lockb", "pnpm-lock.yaml", "yarn.lock", "package-lock.json", "npm-shrinkwrap.json":
		return true
	default:
		return false
	}
}
