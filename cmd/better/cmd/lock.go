package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/better-dev/better-gmc/internal/core/key"
	"github.com/better-dev/better-gmc/internal/core/model"
)

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Emit a better.lock report document",
	Long: `lock derives the project's cache key and prints a better.lock report
document (the lockfile, fingerprint, and resolved key) for external
verification, e.g. in CI to confirm a build used the cache entry it
expected.`,
	RunE: runLock,
}

func init() {
	rootCmd.AddCommand(lockCmd)
}

func runLock(_ *cobra.Command, _ []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}
	derived, err := key.Derive(root, keyOptions())
	if err != nil {
		return fmt.Errorf("derive key: %w", err)
	}
	if !derived.Eligible {
		return fmt.Errorf("project is ineligible: %s", derived.Reason)
	}

	doc := model.LockDocument{
		Kind:          "better.lock",
		SchemaVersion: 1,
		GeneratedAt:   time.Now().UTC(),
		ProjectRoot:   root,
		PM:            model.PackageManager(flagPM),
		Engine:        model.EngineName,
		CacheMode:     model.CacheMode(flagCacheMode),
		ScriptsMode:   model.ScriptsMode(flagScriptsMode),
		Frozen:        flagFrozen,
		Production:    flagProduction,
		Lockfile:      derived.Lockfile,
		Fingerprint:   derived.Fingerprint,
		Key:           derived.Key,
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
