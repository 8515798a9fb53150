package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"cantina/internal/catalog"
	"cantina/internal/store"
	"cantina/internal/suggest"
	"github.com/spf13/cobra"
)

func newSuggestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggest [key]",
		Short: "Rank similar descriptions for a row",
		Long: `Rank the catalog's descriptions by similarity to a row being edited,
so a curated description can be reused instead of written from scratch.

Pass an article key to rank against that row's description, or --text
to rank against free text.

Examples:
  cantina suggest P001                     # Similar rows for P001
  cantina suggest --text "Barolo Riserva"  # Similar rows for free text
  cantina suggest P001 --limit 5 --prefill # Top 5 with copyable fields`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")
			text, _ := cmd.Flags().GetString("text")
			flagLimit, _ := cmd.Flags().GetInt("limit")
			flagMinScore, _ := cmd.Flags().GetFloat64("min-score")
			showPrefill, _ := cmd.Flags().GetBool("prefill")

			if text != "" && len(args) > 0 {
				return fmt.Errorf("cannot combine --text with a key argument")
			}
			if text == "" && len(args) == 0 {
				return fmt.Errorf("provide an article key or --text")
			}

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

			// Resolve the row under edit: a stored one, or a synthetic row
			// carrying the free text. The empty key excludes no candidate.
			var row catalog.Row
			if len(args) > 0 {
				key := args[0]
				stored, err := st.GetRow(ctx, key)
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
				row = *stored
			} else {
				row = catalog.Row{Description: text}
			}

			rows, err := st.ListRows(ctx, catalog.Filter{})
			if err != nil {
				return fmt.Errorf("failed to list rows: %w", err)
			}

			limit := cfg.Suggest.Limit
			if flagLimit > 0 {
				limit = flagLimit
			}
			minScore := cfg.Suggest.MinScore
			if cmd.Flags().Changed("min-score") {
				minScore = flagMinScore
			}

			engine := suggest.NewEngine(cfg.Schema(), limit, minScore)
			suggestions := engine.ForRow(row, rows)

			if jsonOut {
				result := map[string]interface{}{
					"query":       row.Description,
					"suggestions": suggestions,
					"count":       len(suggestions),
				}
				if row.Key != "" {
					result["key"] = row.Key
				}
				json.NewEncoder(os.Stdout).Encode(result)
				return nil
			}

			if len(suggestions) == 0 {
				fmt.Println("No suggestions.")
				return nil
			}

			fmt.Printf("Suggestions for %q (%d):\n\n", row.Description, len(suggestions))
			for i, s := range suggestions {
				fmt.Printf("%d. %s\n", i+1, s.Label)
				if showPrefill && len(s.Prefill) > 0 {
					var pairs []string
					for _, f := range cfg.Catalog.CopyFields {
						if v := s.Prefill[f]; v != "" {
							pairs = append(pairs, fmt.Sprintf("%s: %s", f, v))
						}
					}
					if len(pairs) > 0 {
						fmt.Printf("   %s\n", strings.Join(pairs, ", "))
					}
				}
			}

			return nil
		},
	}

	cmd.Flags().String("text", "", "Rank against free text instead of a stored row")
	cmd.Flags().Int("limit", 0, "Maximum suggestions (0 = configured limit)")
	cmd.Flags().Float64("min-score", 0, "Minimum similarity score")
	cmd.Flags().Bool("prefill", false, "Show the copyable field values of each suggestion")

	return cmd
}
