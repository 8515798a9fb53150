package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"cantina/internal/catalog"
	"cantina/internal/store"
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")
			contains, _ := cmd.Flags().GetString("contains")
			modifiedOnly, _ := cmd.Flags().GetBool("modified")
			missingImage, _ := cmd.Flags().GetBool("missing-image")
			limit, _ := cmd.Flags().GetInt("limit")

			if _, err := os.Stat(store.DataDir(root)); os.IsNotExist(err) {
				if jsonOut {
					json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
						"error": ".cantina not initialized",
					})
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "Not initialized. Run 'cantina init' first.")
				}
				return nil
			}

			_, st, err := openCatalog(root)
			if err != nil {
				return err
			}
			defer st.Close()

			rows, err := st.ListRows(context.Background(), catalog.Filter{
				Contains:     contains,
				ModifiedOnly: modifiedOnly,
				MissingImage: missingImage,
			})
			if err != nil {
				return fmt.Errorf("failed to list rows: %w", err)
			}

			total := len(rows)
			if limit > 0 && len(rows) > limit {
				rows = rows[:limit]
			}

			if jsonOut {
				items := make([]map[string]interface{}, 0, len(rows))
				for _, r := range rows {
					item := map[string]interface{}{
						"key":         r.Key,
						"description": displayDescription(r),
						"modified":    r.Modified,
					}
					if r.ImageURL != "" {
						item["image_url"] = r.ImageURL
					}
					items = append(items, item)
				}
				json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"rows":  items,
					"count": len(rows),
					"total": total,
				})
				return nil
			}

			if len(rows) == 0 {
				if contains == "" && !modifiedOnly && !missingImage {
					fmt.Fprintln(cmd.OutOrStdout(), "Catalog is empty.")
					fmt.Fprintln(cmd.OutOrStdout(), "\nUse 'cantina import FILE.csv' to load rows.")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "No rows match the filter.")
				}
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Catalog rows (%d of %d):\n\n", len(rows), total)
			for i, r := range rows {
				marker := ""
				if r.Modified {
					marker = " (modified)"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d. [%s] %s%s\n", i+1, r.Key, displayDescription(r), marker)
			}
			if total > len(rows) {
				fmt.Fprintf(cmd.OutOrStdout(), "\n(%d more; raise --limit to see them)\n", total-len(rows))
			}

			return nil
		},
	}

	cmd.Flags().String("contains", "", "Keep rows whose text contains this substring")
	cmd.Flags().Bool("modified", false, "Keep only rows with edited descriptions")
	cmd.Flags().Bool("missing-image", false, "Keep only rows without an image link")
	cmd.Flags().Int("limit", 0, "Maximum rows to print (0 = all)")

	return cmd
}
