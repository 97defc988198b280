package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/better-dev/better-gmc/internal/core/key"
)

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Derive this project's cache key",
	Long: `key runs lockfile selection and fingerprint detection and prints the
resulting 64-hex cache key, or explains why the project is ineligible
(no lockfile found).`,
	RunE: runKey,
}

func init() {
	rootCmd.AddCommand(keyCmd)
}

func runKey(_ *cobra.Command, _ []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}

	res, err := key.Derive(root, keyOptions())
	if err != nil {
		return fmt.Errorf("derive key: %w", err)
	}

	if flagJSON {
		return json.NewEncoder(os.Stdout).Encode(res)
	}

	if !res.Eligible {
		fmt.Printf("%s %s\n", color.YellowString("ineligible:"), res.Reason)
		return nil
	}
	fmt.Printf("%s\n", res.Key)
	fmt.Printf("  lockfile: %s\n", res.Lockfile.File)
	fmt.Printf("  platform: %s/%s\n", res.Fingerprint.Platform, res.Fingerprint.Arch)
	return nil
}
