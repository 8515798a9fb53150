package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"cantina/internal/store"
	"cantina/internal/worddiff"
	"github.com/spf13/cobra"
)

func newDiffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff [old] [new]",
		Short: "Show the word-level difference between two descriptions",
		Long: `Show the word-level difference between two description texts, or
between a row's previous and current description.

Examples:
  cantina diff "Vino Rosso Secco" "Vino Rosso Dolce"
  cantina diff --key P001           # Previous vs current description
  cantina diff --key P001 --html    # Styled HTML fragment`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")
			htmlOut, _ := cmd.Flags().GetBool("html")
			key, _ := cmd.Flags().GetString("key")

			if key != "" && len(args) > 0 {
				return fmt.Errorf("cannot combine --key with old/new arguments")
			}
			if key == "" && len(args) != 2 {
				return fmt.Errorf("provide OLD and NEW texts, or --key")
			}

			var oldText, newText string
			if key != "" {
				if _, err := os.Stat(store.DataDir(root)); os.IsNotExist(err) {
					return fmt.Errorf(".cantina not initialized. Run 'cantina init' first")
				}

				_, st, err := openCatalog(root)
				if err != nil {
					return err
				}
				defer st.Close()

				ctx := context.Background()
				row, err := st.GetRow(ctx, key)
				if errors.Is(err, store.ErrNotFound) {
					alternatives := nearKeys(ctx, st, key)
					if len(alternatives) > 0 {
						return fmt.Errorf("row not found: %s (did you mean %s?)",
							key, strings.Join(alternatives, ", "))
					}
					return fmt.Errorf("row not found: %s", key)
				}
				if err != nil {
					return fmt.Errorf("failed to get row: %w", err)
				}

				oldText = row.Previous
				newText = row.Refined
				if newText == "" {
					newText = row.Description
				}
			} else {
				oldText, newText = args[0], args[1]
			}

			oldMarked, newMarked := worddiff.Diff(oldText, newText)

			if htmlOut {
				fmt.Print(diffFragment(oldMarked, newMarked))
				return nil
			}

			if jsonOut {
				json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
					"old":        oldText,
					"new":        newText,
					"old_marked": oldMarked,
					"new_marked": newMarked,
				})
				return nil
			}

			fmt.Printf("Old: %s\n", oldText)
			fmt.Printf("New: %s\n", newText)

			segments := worddiff.Segments(oldText, newText)
			var changes []string
			for _, seg := range segments {
				switch seg.Tag {
				case worddiff.TagDelete:
					changes = append(changes, fmt.Sprintf("  - %s", strings.TrimSpace(seg.Old)))
				case worddiff.TagInsert:
					changes = append(changes, fmt.Sprintf("  + %s", strings.TrimSpace(seg.New)))
				case worddiff.TagReplace:
					changes = append(changes,
						fmt.Sprintf("  - %s", strings.TrimSpace(seg.Old)),
						fmt.Sprintf("  + %s", strings.TrimSpace(seg.New)))
				}
			}

			fmt.Println()
			if len(changes) == 0 {
				fmt.Println("No changes.")
			} else {
				fmt.Println("Changes:")
				for _, c := range changes {
					fmt.Println(c)
				}
			}

			return nil
		},
	}

	cmd.Flags().String("key", "", "Diff a row's previous vs current description")
	cmd.Flags().Bool("html", false, "Emit a styled HTML fragment")

	return cmd
}

// diffFragment renders marked descriptions as a standalone HTML fragment,
// previous and current side by side.
func diffFragment(oldMarked, newMarked string) string {
	var b strings.Builder
	b.WriteString("<style>\n")
	b.WriteString(worddiff.StyleCSS)
	b.WriteString("\n</style>\n")
	b.WriteString("<div class='diff-panel'>\n")
	b.WriteString("  <div class='diff-old'><h4>Precedente</h4><p>")
	b.WriteString(oldMarked)
	b.WriteString("</p></div>\n")
	b.WriteString("  <div class='diff-new'><h4>Attuale</h4><p>")
	b.WriteString(newMarked)
	b.WriteString("</p></div>\n")
	b.WriteString("</div>\n")
	return b.String()
}
