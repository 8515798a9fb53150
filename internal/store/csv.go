// Package store provides SQLite-backed catalog persistence.
package store

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"cantina/internal/catalog"
	"cantina/internal/textutil"
)

// ImportResult summarizes a CSV import.
type ImportResult struct {
	// Created counts keys seen for the first time.
	Created int `json:"created"`
	// Updated counts keys that already existed, plus repeats within the file.
	Updated int `json:"updated"`
	// Blank counts records skipped for an empty key cell.
	Blank int `json:"blank"`
	// SkippedColumns lists header columns outside the configured schema.
	SkippedColumns []string `json:"skipped_columns,omitempty"`
	// Keys lists the distinct keys written, in file order.
	Keys []string `json:"-"`
}

// ImportCSV reads catalog rows from CSV and upserts them in one transaction.
// The header row must name the key and description columns; columns outside
// the schema are reported in SkippedColumns and ignored. Cell values are
// cleaned on the way in and image links are normalized into direct-view form.
// With replace set, existing rows are dropped in the same transaction, so
// the catalog ends up holding exactly the file's contents. The change log
// is kept either way.
func (s *Store) ImportCSV(ctx context.Context, r io.Reader, replace bool) (*ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // tolerate ragged records

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty CSV: missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	result := &ImportResult{}
	colIndex := make(map[string]int, len(header))
	known := make(map[string]bool, len(s.schema.Columns()))
	for _, c := range s.schema.Columns() {
		known[c] = true
	}
	for i, h := range header {
		h = strings.TrimSpace(h)
		if !known[h] {
			result.SkippedColumns = append(result.SkippedColumns, h)
			continue
		}
		colIndex[h] = i
	}

	keyIdx, ok := colIndex[s.schema.KeyColumn]
	if !ok {
		return nil, fmt.Errorf("missing required column %q", s.schema.KeyColumn)
	}
	descIdx, ok := colIndex[s.schema.DescriptionColumn]
	if !ok {
		return nil, fmt.Errorf("missing required column %q", s.schema.DescriptionColumn)
	}

	var rows []catalog.Row
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}

		key := textutil.CleanValue(cell(rec, keyIdx))
		if key == "" {
			result.Blank++
			continue
		}

		row := catalog.Row{
			Key:         key,
			Description: textutil.CleanValue(cell(rec, descIdx)),
		}
		if idx, ok := colIndex[s.schema.RefinedColumn]; ok && s.schema.RefinedColumn != "" {
			row.Refined = textutil.CleanValue(cell(rec, idx))
		}
		if idx, ok := colIndex[s.schema.PreviousColumn]; ok && s.schema.PreviousColumn != "" {
			row.Previous = textutil.CleanValue(cell(rec, idx))
		}
		if idx, ok := colIndex[s.schema.ModifiedColumn]; ok && s.schema.ModifiedColumn != "" {
			row.Modified = catalog.ParseFlag(cell(rec, idx))
		}
		if idx, ok := colIndex[s.schema.ImageURLColumn]; ok && s.schema.ImageURLColumn != "" {
			row.ImageURL = catalog.EnsureViewURL(textutil.CleanValue(cell(rec, idx)))
		}
		for _, f := range s.schema.SelectFields {
			idx, ok := colIndex[f]
			if !ok {
				continue
			}
			if v := textutil.CleanValue(cell(rec, idx)); v != "" {
				if row.Fields == nil {
					row.Fields = make(map[string]string)
				}
				row.Fields[f] = v
			}
		}

		rows = append(rows, row)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := make(map[string]bool)
	if !replace {
		existing, err = s.existingKeysUnlocked(ctx)
		if err != nil {
			return nil, err
		}
	}

	counted := make(map[string]bool)
	for _, row := range rows {
		if existing[row.Key] || counted[row.Key] {
			result.Updated++
		} else {
			result.Created++
		}
		if !counted[row.Key] {
			result.Keys = append(result.Keys, row.Key)
		}
		counted[row.Key] = true
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if replace {
		if _, err := tx.ExecContext(ctx, `DELETE FROM articles`); err != nil {
			return nil, fmt.Errorf("failed to clear catalog: %w", err)
		}
	}
	if err := upsertRowsTx(ctx, tx, rows); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit import: %w", err)
	}

	return result, nil
}

// ExportCSV writes the catalog as CSV in schema column order, keeping rows
// that pass the filter. It returns the number of data rows written.
func (s *Store) ExportCSV(ctx context.Context, w io.Writer, f catalog.Filter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.listRowsUnlocked(ctx)
	if err != nil {
		return 0, err
	}
	rows = f.Apply(rows)

	header := s.schema.Columns()
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return 0, fmt.Errorf("failed to write CSV header: %w", err)
	}

	record := make([]string, len(header))
	for _, row := range rows {
		for i, column := range header {
			record[i], _ = row.Value(s.schema, column)
		}
		if err := writer.Write(record); err != nil {
			return 0, fmt.Errorf("failed to write CSV record for %s: %w", row.Key, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return 0, fmt.Errorf("failed to flush CSV: %w", err)
	}
	return len(rows), nil
}

// existingKeysUnlocked returns the set of stored keys (caller must hold lock).
func (s *Store) existingKeysUnlocked(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM articles`)
	if err != nil {
		return nil, fmt.Errorf("failed to query keys: %w", err)
	}
	defer rows.Close()

	keys := make(map[string]bool)
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys[k] = true
	}
	return keys, rows.Err()
}

// cell returns the idx'th field of a record, or "" past the end.
func cell(rec []string, idx int) string {
	if idx < 0 || idx >= len(rec) {
		return ""
	}
	return rec[idx]
}
