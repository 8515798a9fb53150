package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"cantina/internal/catalog"
	"cantina/internal/constants"
	"cantina/internal/store"
	"cantina/internal/suggest"
	"cantina/internal/worddiff"
	"github.com/spf13/cobra"
)

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <key>",
		Short: "Show details of a catalog row",
		Long: `Show a catalog row: its descriptions, select-field values, composed
display line and, for edited rows, the previous/current change.

Examples:
  cantina show P001            # Full row detail
  cantina show P001 --history  # Include the edit history
  cantina show P001 --html     # HTML diff panel of the last edit`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")
			htmlOut, _ := cmd.Flags().GetBool("html")
			withHistory, _ := cmd.Flags().GetBool("history")
			key := args[0]

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
			row, err := st.GetRow(ctx, key)
			if errors.Is(err, store.ErrNotFound) {
				alternatives := nearKeys(ctx, st, key)
				if jsonOut {
					result := map[string]interface{}{
						"error": "row not found",
						"key":   key,
					}
					if len(alternatives) > 0 {
						result["did_you_mean"] = alternatives
					}
					json.NewEncoder(os.Stdout).Encode(result)
				} else {
					fmt.Printf("Row not found: %s\n", key)
					if len(alternatives) > 0 {
						fmt.Printf("Did you mean: %s?\n", strings.Join(alternatives, ", "))
					}
				}
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to get row: %w", err)
			}

			schema := cfg.Schema()

			if htmlOut {
				newText := row.Refined
				if newText == "" {
					newText = row.Description
				}
				oldMarked, newMarked := worddiff.Diff(row.Previous, newText)
				fmt.Print(diffFragment(oldMarked, newMarked))
				return nil
			}

			if jsonOut {
				result := map[string]interface{}{
					"key":         row.Key,
					"description": row.Description,
					"refined":     row.Refined,
					"previous":    row.Previous,
					"modified":    row.Modified,
					"image_url":   row.ImageURL,
					"fields":      row.Fields,
					"composed":    catalog.ComposedLine(*row, schema),
				}
				if withHistory {
					history, err := st.History(ctx, key)
					if err != nil {
						return fmt.Errorf("failed to load history: %w", err)
					}
					result["history"] = history
				}
				json.NewEncoder(os.Stdout).Encode(result)
				return nil
			}

			fmt.Printf("Article: %s\n", row.Key)
			fmt.Printf("Description: %s\n", row.Description)
			if row.Refined != "" {
				fmt.Printf("Refined: %s\n", row.Refined)
			}
			if row.Previous != "" {
				fmt.Printf("Previous: %s\n", row.Previous)
			}
			if row.Modified {
				fmt.Println("Modified: yes")
			} else {
				fmt.Println("Modified: no")
			}
			if row.ImageURL != "" {
				fmt.Printf("Image: %s\n", row.ImageURL)
			}
			fmt.Println()

			hasFields := false
			for _, f := range schema.SelectFields {
				if row.Field(f) != "" {
					hasFields = true
					break
				}
			}
			if hasFields {
				fmt.Println("Fields:")
				for _, f := range schema.SelectFields {
					if v := row.Field(f); v != "" {
						fmt.Printf("  %s: %s\n", f, v)
					}
				}
				fmt.Println()
			}

			fmt.Printf("Composed: %s\n", catalog.ComposedLine(*row, schema))

			if row.Modified && row.Previous != "" {
				fmt.Println()
				fmt.Println("Last edit:")
				fmt.Printf("  - %s\n", row.Previous)
				fmt.Printf("  + %s\n", displayDescription(*row))
			}

			if withHistory {
				history, err := st.History(ctx, key)
				if err != nil {
					return fmt.Errorf("failed to load history: %w", err)
				}
				fmt.Println()
				if len(history) == 0 {
					fmt.Println("No recorded changes.")
				} else {
					fmt.Printf("History (%d changes):\n", len(history))
					for _, c := range history {
						fmt.Printf("  %s  %s: %q -> %q\n", c.ChangedAt, c.Column, c.OldValue, c.NewValue)
					}
				}
			}

			return nil
		},
	}

	cmd.Flags().Bool("html", false, "Emit an HTML diff panel of the last edit")
	cmd.Flags().Bool("history", false, "Include the recorded edit history")

	return cmd
}

// nearKeys returns did-you-mean alternatives for a missed key lookup.
func nearKeys(ctx context.Context, st *store.Store, miss string) []string {
	keys, err := st.Keys(ctx)
	if err != nil {
		return nil
	}
	return suggest.DidYouMean(miss, keys, constants.DidYouMeanMax)
}
