package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"cantina/internal/catalog"
	"cantina/internal/store"
	"cantina/internal/suggest"
	"github.com/spf13/cobra"
)

func newDedupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dedup",
		Short: "Find likely duplicate rows",
		Long: `Find pairs of rows whose descriptions look like duplicates.

This is an advisory report: nothing is merged or deleted. Pairs are
ranked by similarity, most alike first.

Examples:
  cantina dedup                   # Pairs at the configured threshold
  cantina dedup --threshold 0.8   # Lower the bar
  cantina dedup --limit 10        # Top ten pairs only`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")
			flagThreshold, _ := cmd.Flags().GetFloat64("threshold")
			limit, _ := cmd.Flags().GetInt("limit")

			if _, err := os.Stat(store.DataDir(root)); os.IsNotExist(err) {
				return fmt.Errorf(".cantina not initialized. Run 'cantina init' first")
			}

			cfg, st, err := openCatalog(root)
			if err != nil {
				return err
			}
			defer st.Close()

			threshold := cfg.Dedup.Threshold
			if cmd.Flags().Changed("threshold") {
				if flagThreshold <= 0 || flagThreshold > 1 {
					return fmt.Errorf("threshold must be above 0.0 and at most 1.0, got %v", flagThreshold)
				}
				threshold = flagThreshold
			}

			rows, err := st.ListRows(context.Background(), catalog.Filter{})
			if err != nil {
				return fmt.Errorf("failed to list rows: %w", err)
			}

			pairs := suggest.Duplicates(rows, threshold)
			total := len(pairs)
			if limit > 0 && len(pairs) > limit {
				pairs = pairs[:limit]
			}

			if jsonOut {
				json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
					"total_rows":  len(rows),
					"pairs_found": total,
					"threshold":   threshold,
					"pairs":       pairs,
				})
				return nil
			}

			if len(rows) == 0 {
				fmt.Println("No rows to scan.")
				return nil
			}
			if total == 0 {
				fmt.Printf("Scanned %d rows. No likely duplicates at threshold %.2f.\n", len(rows), threshold)
				return nil
			}

			fmt.Printf("Found %d likely duplicate pairs among %d rows (threshold %.2f):\n\n",
				total, len(rows), threshold)
			for i, p := range pairs {
				fmt.Printf("%d. Similarity: %.2f\n", i+1, p.Score)
				fmt.Printf("   A: [%s] %s\n", p.LeftKey, p.LeftDescription)
				fmt.Printf("   B: [%s] %s\n", p.RightKey, p.RightDescription)
				fmt.Println()
			}
			if total > len(pairs) {
				fmt.Printf("(%d more pairs; raise --limit to see them)\n", total-len(pairs))
			}

			return nil
		},
	}

	cmd.Flags().Float64("threshold", 0, "Similarity threshold (0.0-1.0, default from config)")
	cmd.Flags().Int("limit", 0, "Maximum pairs to print (0 = all)")

	return cmd
}
