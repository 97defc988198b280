package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/better-dev/better-gmc/internal/core/key"
	"github.com/better-dev/better-gmc/internal/store"
)

var verifyDeep bool

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check whether a matching cache entry exists",
	Long: `verify derives the project's cache key and checks whether the entry
store has a matching, structurally-valid entry. With --deep, it also
re-hashes the entry's content and compares it against the hash recorded
at capture time.`,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().BoolVar(&verifyDeep, "deep", false, "also re-hash the entry's content (BLAKE3) and compare to the recorded digest")
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(_ *cobra.Command, _ []string) error {
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
		if flagJSON {
			return json.NewEncoder(os.Stdout).Encode(map[string]any{"eligible": false, "reason": derived.Reason})
		}
		fmt.Printf("%s %s\n", color.YellowString("ineligible:"), derived.Reason)
		return nil
	}

	layout := store.NewLayout(cacheRoot)
	result := layout.Verify(derived.Key)

	var deep *store.DeepVerifyResult
	if verifyDeep && result.OK {
		dv, err := layout.DeepVerify(derived.Key)
		if err != nil {
			return fmt.Errorf("deep verify: %w", err)
		}
		deep = &dv
	}

	if flagJSON {
		return json.NewEncoder(os.Stdout).Encode(map[string]any{
			"key":    derived.Key,
			"verify": result,
			"deep":   deep,
		})
	}

	if !result.OK {
		fmt.Printf("%s %s (key=%s)\n", color.RedString("miss:"), result.Reason, derived.Key)
		return nil
	}
	fmt.Printf("%s key=%s\n", color.GreenString("hit:"), derived.Key)
	if deep != nil {
		if deep.OK {
			fmt.Printf("  %s\n", color.GreenString("deep verify ok"))
		} else {
			fmt.Printf("  %s %s\n", color.RedString("deep verify failed:"), deep.Reason)
		}
	}
	return nil
}
