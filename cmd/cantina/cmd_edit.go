package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"cantina/internal/store"
	"github.com/spf13/cobra"
)

func newSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <key> <field> <value>",
		Short: "Set one field of a catalog row",
		Long: `Set one field of a catalog row.

Editing the refined description captures the prior value and flags the
row as modified. Every actual change lands in the row's history;
setting a field to its current value is a no-op.

Examples:
  cantina set P001 DescrizioneAffinata "Barolo Riserva 2018"
  cantina set P001 annata 2018
  cantina set P001 URL_immagine "https://drive.google.com/file/d/ID/view"`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")
			key, field, value := args[0], args[1], args[2]

			if _, err := os.Stat(store.DataDir(root)); os.IsNotExist(err) {
				return fmt.Errorf(".cantina not initialized. Run 'cantina init' first")
			}

			cfg, st, err := openCatalog(root)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := context.Background()
			row, err := st.SetField(ctx, key, field, value)
			if errors.Is(err, store.ErrNotFound) {
				alternatives := nearKeys(ctx, st, key)
				if len(alternatives) > 0 {
					return fmt.Errorf("row not found: %s (did you mean %s?)",
						key, strings.Join(alternatives, ", "))
				}
				return fmt.Errorf("row not found: %s", key)
			}
			if err != nil {
				return fmt.Errorf("failed to set field: %w", err)
			}

			stored, _ := row.Value(cfg.Schema(), field)

			changeLog := openChangeLog(cfg, root)
			defer changeLog.Close()
			changeLog.Log("field_updated", map[string]any{
				"key":   key,
				"field": field,
				"value": stored,
			})

			if jsonOut {
				json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
					"status":   "updated",
					"key":      key,
					"field":    field,
					"value":    stored,
					"modified": row.Modified,
				})
			} else {
				fmt.Printf("Updated %s: %s = %q\n", key, field, stored)
				if field == cfg.Catalog.Columns.Refined && row.Previous != "" {
					fmt.Printf("Previous description kept: %q\n", row.Previous)
				}
			}

			return nil
		},
	}

	return cmd
}

func newCopyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "copy <source-key> <target-key>",
		Short: "Copy the transferable fields of one row onto another",
		Long: `Copy the configured copy fields (producer, vintage, packaging and so
on) from one row onto another. Fields already matching are left alone;
each field actually changed is recorded in the target row's history.

Examples:
  cantina copy P001 P002   # Fill P002 from P001`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")
			srcKey, dstKey := args[0], args[1]

			if _, err := os.Stat(store.DataDir(root)); os.IsNotExist(err) {
				return fmt.Errorf(".cantina not initialized. Run 'cantina init' first")
			}

			cfg, st, err := openCatalog(root)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := context.Background()
			_, copied, err := st.CopyFields(ctx, dstKey, srcKey)
			if errors.Is(err, store.ErrNotFound) {
				miss := srcKey
				if _, lookErr := st.GetRow(ctx, srcKey); lookErr == nil {
					miss = dstKey
				}
				alternatives := nearKeys(ctx, st, miss)
				if len(alternatives) > 0 {
					return fmt.Errorf("row not found: %s (did you mean %s?)",
						miss, strings.Join(alternatives, ", "))
				}
				return fmt.Errorf("row not found: %s", miss)
			}
			if err != nil {
				return fmt.Errorf("failed to copy fields: %w", err)
			}

			changeLog := openChangeLog(cfg, root)
			defer changeLog.Close()
			changeLog.Log("fields_copied", map[string]any{
				"from":   srcKey,
				"to":     dstKey,
				"fields": copied,
			})

			if jsonOut {
				json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
					"status": "copied",
					"from":   srcKey,
					"to":     dstKey,
					"fields": copied,
				})
			} else if len(copied) == 0 {
				fmt.Printf("Nothing to copy: %s already matches %s.\n", dstKey, srcKey)
			} else {
				fmt.Printf("Copied %d fields from %s to %s: %s\n",
					len(copied), srcKey, dstKey, strings.Join(copied, ", "))
			}

			return nil
		},
	}

	return cmd
}

func newRenameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rename <field> <old> <new>",
		Short: "Rename a field value across the whole catalog",
		Long: `Rename a value everywhere it appears in one column. Values are
cleaned before matching; each affected row gets a history record.

Examples:
  cantina rename Azienda "Cant. Rossi" "Cantina Rossi"
  cantina rename annata 2018.0 2018`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")
			field, oldValue, newValue := args[0], args[1], args[2]

			if _, err := os.Stat(store.DataDir(root)); os.IsNotExist(err) {
				return fmt.Errorf(".cantina not initialized. Run 'cantina init' first")
			}

			cfg, st, err := openCatalog(root)
			if err != nil {
				return err
			}
			defer st.Close()

			count, err := st.RenameValue(context.Background(), field, oldValue, newValue)
			if err != nil {
				return fmt.Errorf("failed to rename value: %w", err)
			}

			changeLog := openChangeLog(cfg, root)
			defer changeLog.Close()
			changeLog.Log("value_renamed", map[string]any{
				"field": field,
				"old":   oldValue,
				"new":   newValue,
				"rows":  count,
			})

			if jsonOut {
				json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
					"status": "renamed",
					"field":  field,
					"old":    oldValue,
					"new":    newValue,
					"rows":   count,
				})
			} else if count == 0 {
				fmt.Printf("No rows carry %q in %s.\n", oldValue, field)
			} else {
				fmt.Printf("Renamed %q to %q in %s: %d rows updated.\n", oldValue, newValue, field, count)
			}

			return nil
		},
	}

	return cmd
}
