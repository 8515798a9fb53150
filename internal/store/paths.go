// Package store provides SQLite-backed catalog persistence.
package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// DataDir returns the path to the .cantina directory for a catalog root.
func DataDir(root string) string {
	return filepath.Join(root, ".cantina")
}

// DBPath returns the path to the catalog database for a catalog root.
func DBPath(root string) string {
	return filepath.Join(DataDir(root), "catalog.db")
}

// EnsureDataDir creates the .cantina directory if it doesn't exist.
// Returns nil if the directory already exists or was successfully created.
func EnsureDataDir(root string) error {
	if err := os.MkdirAll(DataDir(root), 0755); err != nil {
		return fmt.Errorf("failed to create .cantina directory: %w", err)
	}
	return nil
}
