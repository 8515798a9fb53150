package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cantina/internal/backup"
	"cantina/internal/config"
	"cantina/internal/store"
)

// openTestStore opens the catalog under dir with its configured schema.
func openTestStore(t *testing.T, dir string) *store.Store {
	t.Helper()
	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	st, err := store.Open(dir, cfg.Schema())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// readChangeEvents parses .cantina/changes.jsonl into event maps.
func readChangeEvents(t *testing.T, dir string) []map[string]interface{} {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, ".cantina", "changes.jsonl"))
	if err != nil {
		t.Fatalf("failed to read change log: %v", err)
	}
	var events []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var event map[string]interface{}
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			t.Fatalf("bad change log line %q: %v", line, err)
		}
		events = append(events, event)
	}
	return events
}

func TestImportCmd(t *testing.T) {
	tmpDir := t.TempDir()
	isolateEnv(t)
	importSample(t, tmpDir)

	st := openTestStore(t, tmpDir)
	ctx := context.Background()

	count, err := st.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 3 {
		t.Errorf("Count() = %d, want 3", count)
	}

	row, err := st.GetRow(ctx, "P001")
	if err != nil {
		t.Fatalf("GetRow() error = %v", err)
	}
	if row.Refined != "Barolo Riserva 2018" {
		t.Errorf("Refined = %q", row.Refined)
	}
	if !row.Modified {
		t.Error("Mod? flag was not parsed")
	}
	if row.Field("Azienda") != "Cantina Rossi" {
		t.Errorf("Azienda = %q", row.Field("Azienda"))
	}
}

func TestImportCmdLogsRowEvents(t *testing.T) {
	tmpDir := t.TempDir()
	isolateEnv(t)
	importSample(t, tmpDir)

	events := readChangeEvents(t, tmpDir)
	var keys []string
	for _, e := range events {
		if e["event"] == "row_imported" {
			keys = append(keys, e["key"].(string))
		}
	}
	if len(keys) != 3 {
		t.Fatalf("row_imported events = %d, want 3", len(keys))
	}
	for i, want := range []string{"P001", "P002", "P003"} {
		if keys[i] != want {
			t.Errorf("event %d key = %q, want %q", i, keys[i], want)
		}
	}
}

func TestImportCmdRequiresInit(t *testing.T) {
	tmpDir := t.TempDir()
	isolateEnv(t)
	path := writeSampleCSV(t, tmpDir)

	rootCmd := newTestRootCmd()
	rootCmd.AddCommand(newImportCmd())
	rootCmd.SetArgs([]string{"import", path, "--root", tmpDir})
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	err := rootCmd.Execute()
	if err == nil {
		t.Fatal("expected error when .cantina not initialized")
	}
	if !strings.Contains(err.Error(), "not initialized") {
		t.Errorf("expected 'not initialized' error, got: %v", err)
	}
}

func TestImportCmdMissingFile(t *testing.T) {
	tmpDir := t.TempDir()
	isolateEnv(t)
	initCatalog(t, tmpDir)

	rootCmd := newTestRootCmd()
	rootCmd.AddCommand(newImportCmd())
	rootCmd.SetArgs([]string{"import", filepath.Join(tmpDir, "nope.csv"), "--root", tmpDir})
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	if err := rootCmd.Execute(); err == nil {
		t.Error("expected error for a missing import file")
	}
}

func TestImportCmdReplace(t *testing.T) {
	tmpDir := t.TempDir()
	isolateEnv(t)
	importSample(t, tmpDir)

	replacement := filepath.Join(tmpDir, "replacement.csv")
	content := "art_kart,art_desart\nQ900,Prosecco Extra Dry\n"
	if err := os.WriteFile(replacement, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write replacement CSV: %v", err)
	}

	rootCmd := newTestRootCmd()
	rootCmd.AddCommand(newImportCmd())
	rootCmd.SetArgs([]string{"import", replacement, "--replace", "--root", tmpDir})
	rootCmd.SetOut(&bytes.Buffer{})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("import --replace failed: %v", err)
	}

	st := openTestStore(t, tmpDir)
	ctx := context.Background()
	count, _ := st.Count(ctx)
	if count != 1 {
		t.Errorf("Count() = %d after replace, want 1", count)
	}
	if _, err := st.GetRow(ctx, "Q900"); err != nil {
		t.Errorf("GetRow(Q900) error = %v", err)
	}

	// The dropped rows must be recoverable from the snapshot.
	backupDir := filepath.Join(tmpDir, ".cantina", "backups")
	entries, err := os.ReadDir(backupDir)
	if err != nil {
		t.Fatalf("snapshot directory not created: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d snapshots, want 1", len(entries))
	}
	snap, err := backup.Read(filepath.Join(backupDir, entries[0].Name()))
	if err != nil {
		t.Fatalf("failed to read snapshot: %v", err)
	}
	if len(snap.Rows) != 3 {
		t.Errorf("snapshot holds %d rows, want 3", len(snap.Rows))
	}
}

func TestExportCmd(t *testing.T) {
	tmpDir := t.TempDir()
	isolateEnv(t)
	importSample(t, tmpDir)

	outPath := filepath.Join(tmpDir, "export.csv")
	rootCmd := newTestRootCmd()
	rootCmd.AddCommand(newExportCmd())
	rootCmd.SetArgs([]string{"export", outPath, "--root", tmpDir})
	rootCmd.SetOut(&bytes.Buffer{})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	f, err := os.Open(outPath)
	if err != nil {
		t.Fatalf("export file not written: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("export is not valid CSV: %v", err)
	}
	if len(records) != 4 { // header + 3 rows
		t.Fatalf("exported %d records, want 4", len(records))
	}
	if records[0][0] != "art_kart" {
		t.Errorf("header starts with %q, want art_kart", records[0][0])
	}

	events := readChangeEvents(t, tmpDir)
	found := false
	for _, e := range events {
		if e["event"] == "rows_exported" {
			found = true
			if e["rows"].(float64) != 3 {
				t.Errorf("rows_exported rows = %v, want 3", e["rows"])
			}
		}
	}
	if !found {
		t.Error("rows_exported event not logged")
	}
}

func TestExportCmdModifiedOnly(t *testing.T) {
	tmpDir := t.TempDir()
	isolateEnv(t)
	importSample(t, tmpDir)

	outPath := filepath.Join(tmpDir, "modified.csv")
	rootCmd := newTestRootCmd()
	rootCmd.AddCommand(newExportCmd())
	rootCmd.SetArgs([]string{"export", outPath, "--modified", "--root", tmpDir})
	rootCmd.SetOut(&bytes.Buffer{})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("export --modified failed: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("export file not written: %v", err)
	}
	if !strings.Contains(string(data), "P001") {
		t.Error("modified export missing the edited row")
	}
	if strings.Contains(string(data), "P002") || strings.Contains(string(data), "P003") {
		t.Error("modified export leaked unedited rows")
	}
}

func TestExportCmdRequiresInit(t *testing.T) {
	tmpDir := t.TempDir()
	isolateEnv(t)

	rootCmd := newTestRootCmd()
	rootCmd.AddCommand(newExportCmd())
	rootCmd.SetArgs([]string{"export", "--root", tmpDir})
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	err := rootCmd.Execute()
	if err == nil {
		t.Fatal("expected error when .cantina not initialized")
	}
	if !strings.Contains(err.Error(), "not initialized") {
		t.Errorf("expected 'not initialized' error, got: %v", err)
	}
}
