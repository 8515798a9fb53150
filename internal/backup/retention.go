package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cantina/internal/pathutil"
)

// Rotate keeps the newest keep snapshots in dir and deletes the rest.
// Timestamps live in the filenames, so newest-first is a name sort.
// Every removal candidate is containment-checked against dir first.
func Rotate(dir string, keep int) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read snapshot directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasPrefix(e.Name(), "catalog-") && strings.HasSuffix(e.Name(), ".backup") {
			names = append(names, e.Name())
		}
	}
	if len(names) <= keep {
		return nil
	}

	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	for _, name := range names[keep:] {
		path := filepath.Join(dir, name)
		if err := pathutil.ValidatePath(path, []string{dir}); err != nil {
			return err
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove old snapshot %s: %w", name, err)
		}
	}
	return nil
}
