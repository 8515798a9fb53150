package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"cantina/internal/config"
	"cantina/internal/store"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const configHeader = `# cantina catalog configuration
# The columns section maps spreadsheet headers onto catalog roles.
`

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a catalog in the current directory",
		Long: `Initialize a cantina catalog root.

This command creates the .cantina/ directory holding the catalog
database, seeds a config.yaml describing the column layout, and
prepares the store schema.

Examples:
  cantina init                  # Initialize the current directory
  cantina init --root ~/wines   # Initialize another directory`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")

			dataDir := store.DataDir(root)
			if err := store.EnsureDataDir(root); err != nil {
				return fmt.Errorf("failed to create %s: %w", dataDir, err)
			}

			// Seed config.yaml with the default column layout
			configPath := filepath.Join(dataDir, "config.yaml")
			seeded := false
			if _, err := os.Stat(configPath); os.IsNotExist(err) {
				data, err := yaml.Marshal(config.Default())
				if err != nil {
					return fmt.Errorf("failed to render default config: %w", err)
				}
				content := append([]byte(configHeader), data...)
				if err := os.WriteFile(configPath, content, 0644); err != nil {
					return fmt.Errorf("failed to create config.yaml: %w", err)
				}
				seeded = true
			}

			// Opening the store creates the database and its schema
			_, st, err := openCatalog(root)
			if err != nil {
				return err
			}
			defer st.Close()

			if jsonOut {
				json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
					"status":        "initialized",
					"path":          dataDir,
					"config":        configPath,
					"seeded_config": seeded,
				})
			} else {
				fmt.Printf("Created %s\n", dataDir)
				if seeded {
					fmt.Printf("Seeded %s\n", configPath)
				}
				fmt.Println("Import catalog rows with 'cantina import FILE.csv'.")
			}

			return nil
		},
	}

	return cmd
}
