package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"cantina/internal/catalog"
	"cantina/internal/store"
	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show catalog statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")

			if _, err := os.Stat(store.DataDir(root)); os.IsNotExist(err) {
				if jsonOut {
					json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
						"error": ".cantina not initialized",
					})
				} else {
					fmt.Println("Not initialized. Run 'cantina init' first.")
				}
				return nil
			}

			cfg, st, err := openCatalog(root)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := context.Background()
			stats, err := st.GetStats(ctx)
			if err != nil {
				return fmt.Errorf("failed to collect stats: %w", err)
			}

			rows, err := st.ListRows(ctx, catalog.Filter{})
			if err != nil {
				return fmt.Errorf("failed to list rows: %w", err)
			}
			fills := fieldFillCounts(rows, cfg.Schema().SelectFields)

			if jsonOut {
				fillMap := make(map[string]int, len(fills))
				for _, f := range fills {
					fillMap[f.Name] = f.Count
				}
				json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
					"stats":      stats,
					"field_fill": fillMap,
				})
				return nil
			}

			fmt.Printf("Catalog Statistics\n")
			fmt.Printf("==================\n\n")

			fmt.Printf("Summary:\n")
			fmt.Printf("  Total rows:     %d\n", stats.TotalRows)
			fmt.Printf("  Modified:       %d\n", stats.ModifiedRows)
			fmt.Printf("  With image:     %d\n", stats.RowsWithImage)
			fmt.Printf("  Changes logged: %d\n", stats.Changes)
			fmt.Printf("\n")

			if len(fills) > 0 && stats.TotalRows > 0 {
				fmt.Printf("Field fill:\n\n")
				fmt.Printf("%-14s %6s %8s\n", "Field", "Rows", "Fill")
				fmt.Println(repeatChar('-', 30))
				for _, f := range fills {
					pct := float64(f.Count) / float64(stats.TotalRows) * 100
					fmt.Printf("%-14s %6d %7.0f%%\n", f.Name, f.Count, pct)
				}
				fmt.Printf("\n")
			}

			fmt.Printf("Store:\n")
			fmt.Printf("  Schema version: %d\n", stats.SchemaVersion)
			fmt.Printf("  Database size:  %s\n", formatBytes(stats.DBSizeBytes))
			fmt.Printf("  Database path:  %s\n", stats.DBPath)

			return nil
		},
	}

	return cmd
}

// fieldFill pairs a select field with the number of rows carrying a value.
type fieldFill struct {
	Name  string
	Count int
}

// fieldFillCounts counts non-empty values per select field, fullest first.
func fieldFillCounts(rows []catalog.Row, fields []string) []fieldFill {
	fills := make([]fieldFill, 0, len(fields))
	for _, f := range fields {
		n := 0
		for _, r := range rows {
			if r.Field(f) != "" {
				n++
			}
		}
		fills = append(fills, fieldFill{Name: f, Count: n})
	}
	sort.Slice(fills, func(i, j int) bool {
		if fills[i].Count != fills[j].Count {
			return fills[i].Count > fills[j].Count
		}
		return fills[i].Name < fills[j].Name
	})
	return fills
}

// formatBytes renders a byte count in a human-readable unit.
func formatBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

func repeatChar(c rune, n int) string {
	result := make([]rune, n)
	for i := range result {
		result[i] = c
	}
	return string(result)
}
