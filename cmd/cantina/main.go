package main

import (
	"fmt"
	"os"

	"cantina/internal/catalog"
	"cantina/internal/config"
	"cantina/internal/logging"
	"cantina/internal/store"
	"github.com/spf13/cobra"
)

// Set at build time via -ldflags.
var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cantina",
		Short: "Wine catalog curation from the command line",
		Long: `cantina maintains a local wine catalog imported from CSV.

It refines article descriptions with ranked suggestions from similar
rows, tracks every edit with before/after history, flags likely
duplicates, and exports the curated catalog back to CSV.`,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for scripted consumption)")
	rootCmd.PersistentFlags().String("root", ".", "Catalog root directory")

	// Add subcommands
	rootCmd.AddCommand(
		newVersionCmd(),
		newInitCmd(),
		newImportCmd(),
		newExportCmd(),
		newListCmd(),
		newShowCmd(),
		newSuggestCmd(),
		newDiffCmd(),
		newDedupCmd(),
		// Editing commands
		newSetCmd(),
		newCopyCmd(),
		newRenameCmd(),
		newOptionsCmd(),
		newStatsCmd(),
		newMCPServerCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openCatalog loads the configuration for root and opens the catalog store,
// honoring a configured database path override.
func openCatalog(root string) (*config.Config, *store.Store, error) {
	cfg, err := config.Load(root)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	var st *store.Store
	if cfg.Store.Path != "" {
		st, err = store.OpenAt(cfg.Store.Path, cfg.Schema())
	} else {
		st, err = store.Open(root, cfg.Schema())
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	return cfg, st, nil
}

// openChangeLog opens the append-only change log when enabled in config.
// The returned logger may be nil; logging.ChangeLogger is nil-safe.
func openChangeLog(cfg *config.Config, root string) *logging.ChangeLogger {
	return logging.NewChangeLogger(store.DataDir(root), cfg.Logging.Changes)
}

// displayDescription returns the refined description when the row has one,
// falling back to the raw imported description.
func displayDescription(r catalog.Row) string {
	if r.Refined != "" {
		return r.Refined
	}
	return r.Description
}
