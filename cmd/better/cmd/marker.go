package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/better-dev/better-gmc/internal/core/key"
	"github.com/better-dev/better-gmc/internal/core/model"
	"github.com/better-dev/better-gmc/internal/marker"
)

var markerCmd = &cobra.Command{
	Use:   "marker",
	Short: "Inspect or write the reuse marker",
}

var markerEvalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate the reuse marker without touching the cache",
	Long: `eval derives the project's cache key and checks the on-disk reuse
marker against it, without consulting the entry store. A hit here means
a full install call would short-circuit as a no-op.`,
	RunE: runMarkerEval,
}

var markerWriteCmd = &cobra.Command{
	Use:   "write",
	Short: "Write the reuse marker for the current project",
	Long: `write derives the project's cache key and writes
<project>/node_modules/.better-state.json, as the engine does after a
successful restore or capture. node_modules must already exist.`,
	RunE: runMarkerWrite,
}

func init() {
	markerCmd.AddCommand(markerEvalCmd, markerWriteCmd)
	rootCmd.AddCommand(markerCmd)
}

func runMarkerEval(_ *cobra.Command, _ []string) error {
	root, err := projectRoot()
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

	res := marker.Evaluate(root, marker.Expected{
		GlobalKey:          derived.Key,
		LockHash:           derived.LockHash,
		RuntimeFingerprint: derived.Fingerprint,
	})
	if res.Hit {
		fmt.Printf("%s key=%s\n", color.GreenString("hit:"), derived.Key)
		return nil
	}
	fmt.Printf("%s %s\n", color.RedString("miss:"), res.Reason)
	return nil
}

func runMarkerWrite(_ *cobra.Command, _ []string) error {
	root, err := projectRoot()
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

	if err := marker.Write(root, model.ReuseMarker{
		GlobalKey:          derived.Key,
		LockHash:           derived.LockHash,
		RuntimeFingerprint: derived.Fingerprint,
		ScriptsMode:        model.ScriptsMode(flagScriptsMode),
		LinkStrategy:       linkStrategy(),
		RunID:              uuid.NewString(),
	}); err != nil {
		return fmt.Errorf("write marker: %w", err)
	}
	fmt.Printf("%s key=%s\n", color.GreenString("wrote marker:"), derived.Key)
	return nil
}
