// Package store provides SQLite-backed catalog persistence.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"cantina/internal/catalog"
	"cantina/internal/textutil"

	_ "modernc.org/sqlite" // SQLite driver
)

// ErrNotFound is returned when a row lookup matches no article key.
var ErrNotFound = errors.New("row not found")

// Store persists catalog rows in a SQLite database and keeps a field-level
// edit history. It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	db     *sql.DB
	dbPath string
	schema catalog.Schema
}

// Open opens the catalog store rooted at root. It creates the .cantina
// directory and the database at .cantina/catalog.db on first use.
func Open(root string, schema catalog.Schema) (*Store, error) {
	if err := EnsureDataDir(root); err != nil {
		return nil, err
	}
	return OpenAt(DBPath(root), schema)
}

// OpenAt opens the catalog store at an explicit database path.
func OpenAt(dbPath string, schema catalog.Schema) (*Store, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite works best with single writer

	// Initialize schema
	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db, dbPath: dbPath, schema: schema}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Schema returns the catalog schema this store was opened with.
func (s *Store) Schema() catalog.Schema {
	return s.schema
}

// UpsertRow inserts or updates a single catalog row. Existing rows keep
// their import position and creation time.
func (s *Store) UpsertRow(ctx context.Context, row catalog.Row) error {
	return s.UpsertRows(ctx, []catalog.Row{row})
}

// UpsertRows inserts or updates a batch of catalog rows in one transaction.
func (s *Store) UpsertRows(ctx context.Context, rows []catalog.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := upsertRowsTx(ctx, tx, rows); err != nil {
		return err
	}

	return tx.Commit()
}

// upsertRowsTx writes rows inside an open transaction. New rows are appended
// after the current maximum position; existing rows keep theirs.
func upsertRowsTx(ctx context.Context, tx *sql.Tx, rows []catalog.Row) error {
	var next int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(position)+1, 0) FROM articles`).Scan(&next); err != nil {
		return fmt.Errorf("failed to compute next position: %w", err)
	}

	now := time.Now().Format(time.RFC3339)
	for _, row := range rows {
		if row.Key == "" {
			return fmt.Errorf("row key is required")
		}

		fieldsJSON, err := marshalFields(row.Fields)
		if err != nil {
			return fmt.Errorf("marshal fields for %s: %w", row.Key, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO articles (
				key, description, refined, previous, modified, image_url, fields,
				position, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET
				description = excluded.description,
				refined = excluded.refined,
				previous = excluded.previous,
				modified = excluded.modified,
				image_url = excluded.image_url,
				fields = excluded.fields,
				updated_at = excluded.updated_at
		`, row.Key, row.Description, nullString(row.Refined), nullString(row.Previous),
			boolInt(row.Modified), nullString(row.ImageURL), fieldsJSON,
			next, now, now)
		if err != nil {
			return fmt.Errorf("failed to upsert row %s: %w", row.Key, err)
		}
		next++
	}

	return nil
}

// rowColumns is the column list every row query selects.
const rowColumns = `key, description, refined, previous, modified, image_url, fields`

// GetRow retrieves a row by its article key.
// The returned error wraps ErrNotFound when the key is absent.
func (s *Store) GetRow(ctx context.Context, key string) (*catalog.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getRowUnlocked(ctx, key)
}

// getRowUnlocked retrieves a row without locking (caller must hold lock).
func (s *Store) getRowUnlocked(ctx context.Context, key string) (*catalog.Row, error) {
	row, err := scanRow(s.db.QueryRowContext(ctx,
		`SELECT `+rowColumns+` FROM articles WHERE key = ?`, key))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get row %s: %w", key, err)
	}
	return row, nil
}

// ListRows returns catalog rows in import order, keeping those that pass
// the filter. The zero filter returns every row.
func (s *Store) ListRows(ctx context.Context, f catalog.Filter) ([]catalog.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.listRowsUnlocked(ctx)
	if err != nil {
		return nil, err
	}
	return f.Apply(rows), nil
}

// listRowsUnlocked loads all rows in position order (caller must hold lock).
func (s *Store) listRowsUnlocked(ctx context.Context) ([]catalog.Row, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+rowColumns+` FROM articles ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rows: %w", err)
	}
	defer rows.Close()

	var out []catalog.Row
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// Keys returns every article key in import order.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT key FROM articles ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Count returns the number of catalog rows.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return count, nil
}

// SetField sets one editable column on a row and returns the updated row.
// Setting the refined description captures the outgoing value in the
// previous-description column and raises the modified flag. Writes to the
// image column are normalized into direct-view form. Unchanged values are
// a no-op and leave no history entry.
func (s *Store) SetField(ctx context.Context, key, column, value string) (*catalog.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.schema.Editable(column) {
		return nil, fmt.Errorf("column %q is not editable", column)
	}

	row, err := s.getRowUnlocked(ctx, key)
	if err != nil {
		return nil, err
	}

	cleaned := textutil.CleanValue(value)
	if s.schema.Role(column) == catalog.RoleImageURL {
		cleaned = catalog.EnsureViewURL(cleaned)
	}

	old, _ := row.Value(s.schema, column)
	if cleaned == old {
		return row, nil
	}

	updated := row.Clone()
	if s.schema.Role(column) == catalog.RoleRefined {
		updated.Previous = old
		updated.Modified = true
	}
	if !updated.SetValue(s.schema, column, cleaned) {
		return nil, fmt.Errorf("column %q is not editable", column)
	}

	if err := s.writeRowWithChanges(ctx, updated, []changeRecord{{key, column, old, cleaned}}); err != nil {
		return nil, err
	}
	return &updated, nil
}

// CopyFields copies the schema's copy fields from the row at srcKey onto the
// row at dstKey, returning the updated destination row and the columns that
// actually changed.
func (s *Store) CopyFields(ctx context.Context, dstKey, srcKey string) (*catalog.Row, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, err := s.getRowUnlocked(ctx, srcKey)
	if err != nil {
		return nil, nil, err
	}
	dst, err := s.getRowUnlocked(ctx, dstKey)
	if err != nil {
		return nil, nil, err
	}

	updated := dst.Clone()
	var changed []string
	var records []changeRecord
	for _, column := range s.schema.CopyFields {
		v, ok := src.Value(s.schema, column)
		if !ok {
			return nil, nil, fmt.Errorf("unknown copy field: %s", column)
		}
		old, _ := updated.Value(s.schema, column)
		if v == old {
			continue
		}
		if !updated.SetValue(s.schema, column, v) {
			return nil, nil, fmt.Errorf("copy field %q is not editable", column)
		}
		changed = append(changed, column)
		records = append(records, changeRecord{dstKey, column, old, v})
	}

	if len(changed) == 0 {
		return &updated, nil, nil
	}

	if err := s.writeRowWithChanges(ctx, updated, records); err != nil {
		return nil, nil, err
	}
	return &updated, changed, nil
}

// RenameValue rewrites every occurrence of oldValue in an editable column to
// newValue and returns the number of rows touched.
func (s *Store) RenameValue(ctx context.Context, column, oldValue, newValue string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.schema.Editable(column) {
		return 0, fmt.Errorf("column %q is not editable", column)
	}

	cleanedOld := textutil.CleanValue(oldValue)
	cleanedNew := textutil.CleanValue(newValue)
	if cleanedOld == cleanedNew {
		return 0, nil
	}

	rows, err := s.listRowsUnlocked(ctx)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	renamed := 0
	for _, row := range rows {
		v, _ := row.Value(s.schema, column)
		if v != cleanedOld {
			continue
		}
		updated := row.Clone()
		updated.SetValue(s.schema, column, cleanedNew)
		if err := upsertRowsTx(ctx, tx, []catalog.Row{updated}); err != nil {
			return 0, err
		}
		if err := recordChangeTx(ctx, tx, changeRecord{row.Key, column, cleanedOld, cleanedNew}); err != nil {
			return 0, err
		}
		renamed++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit rename: %w", err)
	}
	return renamed, nil
}

// Change is one field-level edit from the history table.
type Change struct {
	RowKey    string `json:"row_key"`
	Column    string `json:"column"`
	OldValue  string `json:"old_value"`
	NewValue  string `json:"new_value"`
	ChangedAt string `json:"changed_at"`
}

// History returns the edit history for a row, oldest first.
func (s *Store) History(ctx context.Context, key string) ([]Change, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT row_key, column_name, old_value, new_value, changed_at
		FROM changes WHERE row_key = ? ORDER BY id
	`, key)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var history []Change
	for rows.Next() {
		var c Change
		var oldV, newV sql.NullString
		if err := rows.Scan(&c.RowKey, &c.Column, &oldV, &newV, &c.ChangedAt); err != nil {
			return nil, fmt.Errorf("failed to scan change: %w", err)
		}
		c.OldValue = oldV.String
		c.NewValue = newV.String
		history = append(history, c)
	}
	return history, rows.Err()
}

// Stats summarizes the catalog database.
type Stats struct {
	TotalRows     int    `json:"total_rows"`
	ModifiedRows  int    `json:"modified_rows"`
	RowsWithImage int    `json:"rows_with_image"`
	Changes       int    `json:"changes"`
	SchemaVersion int    `json:"schema_version"`
	DBSizeBytes   int64  `json:"db_size_bytes"`
	DBPath        string `json:"db_path"`
}

// GetStats collects summary statistics for the catalog database.
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Stats{DBPath: s.dbPath}

	counts := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM articles`, &stats.TotalRows},
		{`SELECT COUNT(*) FROM articles WHERE modified != 0`, &stats.ModifiedRows},
		{`SELECT COUNT(*) FROM articles WHERE image_url IS NOT NULL AND image_url != ''`, &stats.RowsWithImage},
		{`SELECT COUNT(*) FROM changes`, &stats.Changes},
		{`SELECT COALESCE(MAX(version), 0) FROM schema_version`, &stats.SchemaVersion},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("failed to collect stats: %w", err)
		}
	}

	if info, err := os.Stat(s.dbPath); err == nil {
		stats.DBSizeBytes = info.Size()
	}

	return stats, nil
}

// CheckIntegrity runs the SQLite integrity checks against the open database.
func (s *Store) CheckIntegrity(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return ValidateIntegrity(ctx, s.db)
}

// changeRecord is a pending history entry.
type changeRecord struct {
	key, column, old, new string
}

// writeRowWithChanges persists a row and its history entries in one
// transaction (caller must hold the write lock).
func (s *Store) writeRowWithChanges(ctx context.Context, row catalog.Row, records []changeRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := upsertRowsTx(ctx, tx, []catalog.Row{row}); err != nil {
		return err
	}
	for _, rec := range records {
		if err := recordChangeTx(ctx, tx, rec); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// recordChangeTx appends one history entry inside an open transaction.
func recordChangeTx(ctx context.Context, tx *sql.Tx, rec changeRecord) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO changes (row_key, column_name, old_value, new_value, changed_at)
		VALUES (?, ?, ?, ?, ?)
	`, rec.key, rec.column, nullString(rec.old), nullString(rec.new),
		time.Now().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to record change for %s: %w", rec.key, err)
	}
	return nil
}

// scanner matches both sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanRow builds a catalog.Row from a query over rowColumns.
func scanRow(sc scanner) (*catalog.Row, error) {
	var (
		row                         catalog.Row
		refined, previous, imageURL sql.NullString
		fieldsJSON                  sql.NullString
		modified                    int
	)
	if err := sc.Scan(&row.Key, &row.Description, &refined, &previous, &modified, &imageURL, &fieldsJSON); err != nil {
		return nil, err
	}
	row.Refined = refined.String
	row.Previous = previous.String
	row.Modified = modified != 0
	row.ImageURL = imageURL.String
	if fieldsJSON.Valid {
		if err := json.Unmarshal([]byte(fieldsJSON.String), &row.Fields); err != nil {
			return nil, fmt.Errorf("unmarshal fields for %s: %w", row.Key, err)
		}
	}
	return &row, nil
}

// Helper functions

func marshalFields(fields map[string]string) (sql.NullString, error) {
	if len(fields) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
