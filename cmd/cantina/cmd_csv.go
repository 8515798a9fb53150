package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cantina/internal/backup"
	"cantina/internal/catalog"
	"cantina/internal/constants"
	"cantina/internal/store"
	"github.com/spf13/cobra"
)

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import catalog rows from a CSV file",
		Long: `Import catalog rows from a CSV export of the source spreadsheet.

Rows are matched by article key: new keys are created, existing keys
are updated in place. Cell values are cleaned on the way in and image
links are normalized to direct-view form. A replace import snapshots
the current rows under .cantina/backups/ before dropping them.

Examples:
  cantina import catalog.csv            # Merge the file into the catalog
  cantina import catalog.csv --replace  # Drop existing rows first`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")
			replace, _ := cmd.Flags().GetBool("replace")
			file := args[0]

			if _, err := os.Stat(store.DataDir(root)); os.IsNotExist(err) {
				return fmt.Errorf(".cantina not initialized. Run 'cantina init' first")
			}

			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", file, err)
			}
			defer f.Close()

			cfg, st, err := openCatalog(root)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := context.Background()

			var backupPath string
			if replace {
				rows, err := st.ListRows(ctx, catalog.Filter{})
				if err != nil {
					return fmt.Errorf("failed to list rows: %w", err)
				}
				if len(rows) > 0 {
					dir := filepath.Join(store.DataDir(root), "backups")
					backupPath, err = backup.Write(dir, backup.New(rows))
					if err != nil {
						return fmt.Errorf("failed to snapshot catalog: %w", err)
					}
					if err := backup.Rotate(dir, constants.DefaultBackupKeep); err != nil {
						return fmt.Errorf("failed to rotate snapshots: %w", err)
					}
				}
			}

			result, err := st.ImportCSV(ctx, f, replace)
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}

			changeLog := openChangeLog(cfg, root)
			defer changeLog.Close()
			for _, key := range result.Keys {
				changeLog.Log("row_imported", map[string]any{"key": key, "file": file})
			}

			if jsonOut {
				out := map[string]interface{}{
					"status":  "imported",
					"file":    file,
					"replace": replace,
					"result":  result,
				}
				if backupPath != "" {
					out["backup"] = backupPath
				}
				json.NewEncoder(os.Stdout).Encode(out)
			} else {
				if backupPath != "" {
					fmt.Printf("Snapshot saved to %s\n", backupPath)
				}
				fmt.Printf("Imported %s: %d created, %d updated", file, result.Created, result.Updated)
				if result.Blank > 0 {
					fmt.Printf(", %d blank keys skipped", result.Blank)
				}
				fmt.Println()
				if len(result.SkippedColumns) > 0 {
					fmt.Printf("Columns outside the schema were ignored: %s\n",
						strings.Join(result.SkippedColumns, ", "))
				}
			}

			return nil
		},
	}

	cmd.Flags().Bool("replace", false, "Drop existing rows before importing")

	return cmd
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [file.csv]",
		Short: "Export the catalog as CSV",
		Long: `Export the catalog as CSV in schema column order.

With a file argument the CSV is written there and a summary printed;
without one the CSV streams to stdout.

Examples:
  cantina export curated.csv    # Write the catalog to curated.csv
  cantina export                # Stream CSV to stdout
  cantina export --modified     # Export only edited rows`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")
			modifiedOnly, _ := cmd.Flags().GetBool("modified")

			if _, err := os.Stat(store.DataDir(root)); os.IsNotExist(err) {
				return fmt.Errorf(".cantina not initialized. Run 'cantina init' first")
			}

			cfg, st, err := openCatalog(root)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := context.Background()
			filter := catalog.Filter{ModifiedOnly: modifiedOnly}

			// No file argument: the CSV itself is the output
			if len(args) == 0 {
				_, err := st.ExportCSV(ctx, os.Stdout, filter)
				return err
			}

			file := args[0]
			out, err := os.Create(file)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", file, err)
			}
			n, err := st.ExportCSV(ctx, out, filter)
			if closeErr := out.Close(); err == nil {
				err = closeErr
			}
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}

			changeLog := openChangeLog(cfg, root)
			defer changeLog.Close()
			changeLog.Log("rows_exported", map[string]any{"file": file, "rows": n})

			if jsonOut {
				json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
					"status": "exported",
					"file":   file,
					"rows":   n,
				})
			} else {
				fmt.Printf("Exported %d rows to %s\n", n, file)
			}

			return nil
		},
	}

	cmd.Flags().Bool("modified", false, "Export only rows with edited descriptions")

	return cmd
}
