package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func runEditCmd(t *testing.T, dir string, args ...string) error {
	t.Helper()
	rootCmd := newTestRootCmd()
	rootCmd.AddCommand(newSetCmd(), newCopyCmd(), newRenameCmd())
	rootCmd.SetArgs(append(args, "--root", dir))
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	return rootCmd.Execute()
}

func TestSetCmd(t *testing.T) {
	tmpDir := t.TempDir()
	isolateEnv(t)
	importSample(t, tmpDir)

	if err := runEditCmd(t, tmpDir, "set", "P002", "Azienda", "Nuova Cantina"); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	st := openTestStore(t, tmpDir)
	row, err := st.GetRow(context.Background(), "P002")
	if err != nil {
		t.Fatalf("GetRow() error = %v", err)
	}
	if row.Field("Azienda") != "Nuova Cantina" {
		t.Errorf("Azienda = %q, want Nuova Cantina", row.Field("Azienda"))
	}

	events := readChangeEvents(t, tmpDir)
	found := false
	for _, e := range events {
		if e["event"] == "field_updated" && e["key"] == "P002" {
			found = true
			if e["field"] != "Azienda" {
				t.Errorf("field_updated field = %v", e["field"])
			}
		}
	}
	if !found {
		t.Error("field_updated event not logged")
	}
}

func TestSetCmdRefinedKeepsPrevious(t *testing.T) {
	tmpDir := t.TempDir()
	isolateEnv(t)
	importSample(t, tmpDir)

	if err := runEditCmd(t, tmpDir, "set", "P001", "DescrizioneAffinata", "Barolo Riserva DOCG 2018"); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	st := openTestStore(t, tmpDir)
	row, err := st.GetRow(context.Background(), "P001")
	if err != nil {
		t.Fatalf("GetRow() error = %v", err)
	}
	if row.Refined != "Barolo Riserva DOCG 2018" {
		t.Errorf("Refined = %q", row.Refined)
	}
	if row.Previous != "Barolo Riserva 2018" {
		t.Errorf("Previous = %q, want the outgoing refined text", row.Previous)
	}
	if !row.Modified {
		t.Error("modified flag not raised")
	}
}

func TestSetCmdUnknownKey(t *testing.T) {
	tmpDir := t.TempDir()
	isolateEnv(t)
	importSample(t, tmpDir)

	err := runEditCmd(t, tmpDir, "set", "P01", "Azienda", "X")
	if err == nil {
		t.Fatal("expected error for an unknown key")
	}
	if !strings.Contains(err.Error(), "row not found") {
		t.Errorf("error = %v, want row not found", err)
	}
	if !strings.Contains(err.Error(), "P001") {
		t.Errorf("error does not suggest near keys: %v", err)
	}
}

func TestSetCmdUneditableColumn(t *testing.T) {
	tmpDir := t.TempDir()
	isolateEnv(t)
	importSample(t, tmpDir)

	err := runEditCmd(t, tmpDir, "set", "P001", "art_kart", "X999")
	if err == nil {
		t.Fatal("expected error for the key column")
	}
	if !strings.Contains(err.Error(), "not editable") {
		t.Errorf("error = %v, want not editable", err)
	}
}

func TestCopyCmd(t *testing.T) {
	tmpDir := t.TempDir()
	isolateEnv(t)
	importSample(t, tmpDir)

	if err := runEditCmd(t, tmpDir, "copy", "P001", "P002"); err != nil {
		t.Fatalf("copy failed: %v", err)
	}

	st := openTestStore(t, tmpDir)
	row, err := st.GetRow(context.Background(), "P002")
	if err != nil {
		t.Fatalf("GetRow() error = %v", err)
	}
	if row.Field("Azienda") != "Cantina Rossi" {
		t.Errorf("Azienda = %q, want Cantina Rossi", row.Field("Azienda"))
	}
	if row.Field("annata") != "2018" {
		t.Errorf("annata = %q, want 2018", row.Field("annata"))
	}

	events := readChangeEvents(t, tmpDir)
	found := false
	for _, e := range events {
		if e["event"] == "fields_copied" {
			found = true
			if e["from"] != "P001" || e["to"] != "P002" {
				t.Errorf("fields_copied from=%v to=%v", e["from"], e["to"])
			}
		}
	}
	if !found {
		t.Error("fields_copied event not logged")
	}
}

func TestCopyCmdMissingSource(t *testing.T) {
	tmpDir := t.TempDir()
	isolateEnv(t)
	importSample(t, tmpDir)

	err := runEditCmd(t, tmpDir, "copy", "MISSING", "P002")
	if err == nil {
		t.Fatal("expected error for a missing source key")
	}
	if !strings.Contains(err.Error(), "MISSING") {
		t.Errorf("error does not name the missing key: %v", err)
	}
}

func TestRenameCmd(t *testing.T) {
	tmpDir := t.TempDir()
	isolateEnv(t)
	importSample(t, tmpDir)

	if err := runEditCmd(t, tmpDir, "rename", "Azienda", "Cantina Rossi", "Rossi Vini"); err != nil {
		t.Fatalf("rename failed: %v", err)
	}

	st := openTestStore(t, tmpDir)
	ctx := context.Background()
	for _, key := range []string{"P001", "P003"} {
		row, err := st.GetRow(ctx, key)
		if err != nil {
			t.Fatalf("GetRow(%s) error = %v", key, err)
		}
		if row.Field("Azienda") != "Rossi Vini" {
			t.Errorf("%s Azienda = %q, want Rossi Vini", key, row.Field("Azienda"))
		}
	}
	untouched, _ := st.GetRow(ctx, "P002")
	if untouched.Field("Azienda") != "Villa Bianchi" {
		t.Errorf("P002 Azienda = %q, want Villa Bianchi", untouched.Field("Azienda"))
	}

	events := readChangeEvents(t, tmpDir)
	found := false
	for _, e := range events {
		if e["event"] == "value_renamed" {
			found = true
			if e["rows"].(float64) != 2 {
				t.Errorf("value_renamed rows = %v, want 2", e["rows"])
			}
		}
	}
	if !found {
		t.Error("value_renamed event not logged")
	}
}

func TestRenameCmdNoMatches(t *testing.T) {
	tmpDir := t.TempDir()
	isolateEnv(t)
	importSample(t, tmpDir)

	if err := runEditCmd(t, tmpDir, "rename", "Azienda", "Nessuno", "Qualcuno"); err != nil {
		t.Fatalf("rename with no matches should not fail: %v", err)
	}

	st := openTestStore(t, tmpDir)
	row, _ := st.GetRow(context.Background(), "P001")
	if row.Field("Azienda") != "Cantina Rossi" {
		t.Errorf("P001 Azienda = %q, want Cantina Rossi", row.Field("Azienda"))
	}
}
