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

func newOptionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "options <field>",
		Short: "List the distinct values of a catalog column",
		Long: `List the distinct values of a catalog column, deduplicated
case-insensitively with the first-seen spelling kept. This is the
option list a dropdown editor for that column would offer.

Examples:
  cantina options Azienda
  cantina options annata`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")
			field := args[0]

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

			rows, err := st.ListRows(context.Background(), catalog.Filter{})
			if err != nil {
				return fmt.Errorf("failed to list rows: %w", err)
			}

			values, err := catalog.DistinctValues(rows, cfg.Schema(), field)
			if err != nil {
				return err
			}

			if jsonOut {
				json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
					"field":  field,
					"values": values,
					"count":  len(values),
				})
				return nil
			}

			if len(values) == 0 {
				fmt.Printf("No values recorded for %s.\n", field)
				return nil
			}

			fmt.Printf("%s (%d values):\n\n", field, len(values))
			for i, v := range values {
				fmt.Printf("%d. %s\n", i+1, v)
			}

			return nil
		},
	}

	return cmd
}
