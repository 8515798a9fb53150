package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cantina/internal/catalog"
)

func testSchema() catalog.Schema {
	return catalog.Schema{
		KeyColumn:         "art_kart",
		DescriptionColumn: "art_desart",
		RefinedColumn:     "DescrizioneAffinata",
		PreviousColumn:    "art_desart_precedente",
		ModifiedColumn:    "Mod?",
		ImageURLColumn:    "URL_immagine",
		SelectFields:      []string{"Azienda", "Prodotto", "gradazione", "annata", "Packaging", "Note"},
		CopyFields:        []string{"Azienda", "Prodotto", "gradazione", "annata", "Packaging", "Note", "URL_immagine"},
	}
}

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), testSchema())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testRow(key, description string) catalog.Row {
	return catalog.Row{
		Key:         key,
		Description: description,
		Fields: map[string]string{
			"Azienda": "Cantina Rossi",
			"annata":  "2018",
		},
	}
}

func TestOpen(t *testing.T) {
	tmpDir := t.TempDir()

	s, err := Open(tmpDir, testSchema())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	// Verify .cantina directory was created
	dataDir := filepath.Join(tmpDir, ".cantina")
	if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		t.Error(".cantina directory was not created")
	}

	// Verify database file was created
	dbPath := filepath.Join(dataDir, "catalog.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("catalog.db was not created")
	}
}

func TestOpen_InvalidSchema(t *testing.T) {
	_, err := Open(t.TempDir(), catalog.Schema{DescriptionColumn: "art_desart"})
	if err == nil {
		t.Error("Open() expected error for schema without key column")
	}
}

func TestStore_UpsertGetRow(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	row := catalog.Row{
		Key:         "P001",
		Description: "Barolo DOCG Riserva",
		Refined:     "Barolo Riserva 2018",
		Previous:    "Barolo Riserva",
		Modified:    true,
		ImageURL:    "https://drive.google.com/uc?export=view&id=abc123",
		Fields: map[string]string{
			"Azienda": "Cantina Rossi",
			"annata":  "2018",
		},
	}

	if err := s.UpsertRow(ctx, row); err != nil {
		t.Fatalf("UpsertRow() error = %v", err)
	}

	got, err := s.GetRow(ctx, "P001")
	if err != nil {
		t.Fatalf("GetRow() error = %v", err)
	}
	if got.Description != row.Description {
		t.Errorf("Description = %q, want %q", got.Description, row.Description)
	}
	if got.Refined != row.Refined {
		t.Errorf("Refined = %q, want %q", got.Refined, row.Refined)
	}
	if got.Previous != row.Previous {
		t.Errorf("Previous = %q, want %q", got.Previous, row.Previous)
	}
	if !got.Modified {
		t.Error("Modified flag was not persisted")
	}
	if got.ImageURL != row.ImageURL {
		t.Errorf("ImageURL = %q, want %q", got.ImageURL, row.ImageURL)
	}
	if got.Field("Azienda") != "Cantina Rossi" {
		t.Errorf("Azienda = %q, want Cantina Rossi", got.Field("Azienda"))
	}
	if got.Field("annata") != "2018" {
		t.Errorf("annata = %q, want 2018", got.Field("annata"))
	}
}

func TestStore_UpsertRowRequiresKey(t *testing.T) {
	s := testStore(t)

	err := s.UpsertRow(context.Background(), catalog.Row{Description: "no key"})
	if err == nil {
		t.Error("UpsertRow() expected error for missing key")
	}
}

func TestStore_GetRow_NotFound(t *testing.T) {
	s := testStore(t)

	_, err := s.GetRow(context.Background(), "missing")
	if err == nil {
		t.Fatal("GetRow() expected error for missing key")
	}
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRow() error = %v, want ErrNotFound", err)
	}
}

func TestStore_ListRows_ImportOrder(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	rows := []catalog.Row{
		testRow("P003", "Vino Rosso"),
		testRow("P001", "Barolo DOCG"),
		testRow("P002", "Barbera d'Asti"),
	}
	if err := s.UpsertRows(ctx, rows); err != nil {
		t.Fatalf("UpsertRows() error = %v", err)
	}

	got, err := s.ListRows(ctx, catalog.Filter{})
	if err != nil {
		t.Fatalf("ListRows() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("ListRows() returned %d rows, want 3", len(got))
	}
	for i, want := range []string{"P003", "P001", "P002"} {
		if got[i].Key != want {
			t.Errorf("row %d key = %s, want %s", i, got[i].Key, want)
		}
	}
}

func TestStore_UpsertRow_PreservesPosition(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	s.UpsertRow(ctx, testRow("P001", "Barolo DOCG"))
	s.UpsertRow(ctx, testRow("P002", "Barbera d'Asti"))

	// Re-upsert the first row with new content
	updated := testRow("P001", "Barolo DOCG Riserva")
	if err := s.UpsertRow(ctx, updated); err != nil {
		t.Fatalf("UpsertRow() error = %v", err)
	}

	got, err := s.ListRows(ctx, catalog.Filter{})
	if err != nil {
		t.Fatalf("ListRows() error = %v", err)
	}
	if got[0].Key != "P001" || got[1].Key != "P002" {
		t.Errorf("re-upsert changed row order: got %s, %s", got[0].Key, got[1].Key)
	}
	if got[0].Description != "Barolo DOCG Riserva" {
		t.Errorf("Description = %q, want updated value", got[0].Description)
	}
}

func TestStore_ListRows_Filter(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	modified := testRow("P001", "Barolo DOCG")
	modified.Modified = true
	s.UpsertRow(ctx, modified)
	s.UpsertRow(ctx, testRow("P002", "Barbera d'Asti"))

	got, err := s.ListRows(ctx, catalog.Filter{ModifiedOnly: true})
	if err != nil {
		t.Fatalf("ListRows() error = %v", err)
	}
	if len(got) != 1 || got[0].Key != "P001" {
		t.Errorf("ListRows(ModifiedOnly) = %v, want just P001", keysOf(got))
	}
}

func TestStore_Count(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	count, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 0 {
		t.Errorf("Count() = %d, want 0", count)
	}

	s.UpsertRow(ctx, testRow("P001", "Barolo DOCG"))
	s.UpsertRow(ctx, testRow("P002", "Barbera d'Asti"))

	count, err = s.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 2 {
		t.Errorf("Count() = %d, want 2", count)
	}
}

func TestStore_Keys(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	s.UpsertRows(ctx, []catalog.Row{
		testRow("P002", "Barbera d'Asti"),
		testRow("P001", "Barolo DOCG"),
	})

	keys, err := s.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	if len(keys) != 2 || keys[0] != "P002" || keys[1] != "P001" {
		t.Errorf("Keys() = %v, want [P002 P001]", keys)
	}
}

func TestStore_SetField_RefinedCapturesPrevious(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	row := testRow("P001", "Barolo DOCG")
	row.Refined = "Barolo Riserva"
	s.UpsertRow(ctx, row)

	got, err := s.SetField(ctx, "P001", "DescrizioneAffinata", "Barolo Riserva 2018")
	if err != nil {
		t.Fatalf("SetField() error = %v", err)
	}

	if got.Refined != "Barolo Riserva 2018" {
		t.Errorf("Refined = %q, want new value", got.Refined)
	}
	if got.Previous != "Barolo Riserva" {
		t.Errorf("Previous = %q, want the outgoing refined value", got.Previous)
	}
	if !got.Modified {
		t.Error("expected modified flag to be raised")
	}

	// Persisted, not just returned
	stored, _ := s.GetRow(ctx, "P001")
	if stored.Previous != "Barolo Riserva" || !stored.Modified {
		t.Error("previous capture was not persisted")
	}

	// History entry recorded
	history, err := s.History(ctx, "P001")
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(history))
	}
	if history[0].Column != "DescrizioneAffinata" {
		t.Errorf("history column = %q, want DescrizioneAffinata", history[0].Column)
	}
	if history[0].OldValue != "Barolo Riserva" || history[0].NewValue != "Barolo Riserva 2018" {
		t.Errorf("history values = %q -> %q", history[0].OldValue, history[0].NewValue)
	}
}

func TestStore_SetField_SelectFieldLeavesFlagAlone(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	s.UpsertRow(ctx, testRow("P001", "Barolo DOCG"))

	got, err := s.SetField(ctx, "P001", "annata", "2019")
	if err != nil {
		t.Fatalf("SetField() error = %v", err)
	}
	if got.Field("annata") != "2019" {
		t.Errorf("annata = %q, want 2019", got.Field("annata"))
	}
	if got.Modified {
		t.Error("select-field edit must not raise the modified flag")
	}
	if got.Previous != "" {
		t.Errorf("select-field edit must not touch Previous, got %q", got.Previous)
	}
}

func TestStore_SetField_NoOpOnSameValue(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	row := testRow("P001", "Barolo DOCG")
	row.Refined = "Barolo Riserva"
	s.UpsertRow(ctx, row)

	// Cleaning trims the padding, leaving the stored value unchanged
	got, err := s.SetField(ctx, "P001", "DescrizioneAffinata", "  Barolo Riserva  ")
	if err != nil {
		t.Fatalf("SetField() error = %v", err)
	}
	if got.Modified {
		t.Error("setting the same value must not raise the modified flag")
	}

	history, _ := s.History(ctx, "P001")
	if len(history) != 0 {
		t.Errorf("expected no history for a no-op edit, got %d entries", len(history))
	}
}

func TestStore_SetField_CleansValue(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	s.UpsertRow(ctx, testRow("P001", "Barolo DOCG"))

	got, err := s.SetField(ctx, "P001", "annata", " 2020.0 ")
	if err != nil {
		t.Fatalf("SetField() error = %v", err)
	}
	if got.Field("annata") != "2020" {
		t.Errorf("annata = %q, want cleaned 2020", got.Field("annata"))
	}
}

func TestStore_SetField_NormalizesImageURL(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	s.UpsertRow(ctx, testRow("P001", "Barolo DOCG"))

	got, err := s.SetField(ctx, "P001", "URL_immagine",
		"https://drive.google.com/file/d/1AbC-23xyz/view?usp=sharing")
	if err != nil {
		t.Fatalf("SetField() error = %v", err)
	}
	want := "https://drive.google.com/uc?export=view&id=1AbC-23xyz"
	if got.ImageURL != want {
		t.Errorf("ImageURL = %q, want %q", got.ImageURL, want)
	}
}

func TestStore_SetField_RejectsNonEditable(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	s.UpsertRow(ctx, testRow("P001", "Barolo DOCG"))

	for _, column := range []string{"art_kart", "art_desart_precedente", "Mod?", "Sconosciuto"} {
		if _, err := s.SetField(ctx, "P001", column, "x"); err == nil {
			t.Errorf("SetField(%q) expected error for non-editable column", column)
		}
	}
}

func TestStore_SetField_RowNotFound(t *testing.T) {
	s := testStore(t)

	_, err := s.SetField(context.Background(), "missing", "DescrizioneAffinata", "x")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("SetField() error = %v, want ErrNotFound", err)
	}
}

func TestStore_CopyFields(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	src := catalog.Row{
		Key:         "P001",
		Description: "Barolo DOCG",
		ImageURL:    "https://drive.google.com/uc?export=view&id=abc",
		Fields: map[string]string{
			"Azienda":   "Cantina Rossi",
			"Prodotto":  "Barolo",
			"annata":    "2018",
			"Packaging": "750ml",
		},
	}
	dst := catalog.Row{
		Key:         "P002",
		Description: "Barolo DOCG Riserva",
		Fields: map[string]string{
			"Azienda": "Cantina Rossi", // already matches, must not be reported
		},
	}
	s.UpsertRow(ctx, src)
	s.UpsertRow(ctx, dst)

	got, changed, err := s.CopyFields(ctx, "P002", "P001")
	if err != nil {
		t.Fatalf("CopyFields() error = %v", err)
	}

	if got.Field("Prodotto") != "Barolo" || got.Field("annata") != "2018" {
		t.Errorf("copied fields not applied: Prodotto=%q annata=%q",
			got.Field("Prodotto"), got.Field("annata"))
	}
	if got.ImageURL != src.ImageURL {
		t.Errorf("ImageURL = %q, want copied %q", got.ImageURL, src.ImageURL)
	}
	for _, c := range changed {
		if c == "Azienda" {
			t.Error("unchanged Azienda must not be reported as changed")
		}
	}
	if len(changed) != 4 { // Prodotto, annata, Packaging, URL_immagine
		t.Errorf("changed = %v, want 4 columns", changed)
	}

	// Description stays the destination's own
	if got.Description != "Barolo DOCG Riserva" {
		t.Errorf("Description = %q, copy must not overwrite it", got.Description)
	}

	// History has one entry per changed column
	history, _ := s.History(ctx, "P002")
	if len(history) != len(changed) {
		t.Errorf("history entries = %d, want %d", len(history), len(changed))
	}
}

func TestStore_CopyFields_SourceNotFound(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	s.UpsertRow(ctx, testRow("P002", "Barolo DOCG Riserva"))

	_, _, err := s.CopyFields(ctx, "P002", "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("CopyFields() error = %v, want ErrNotFound", err)
	}
}

func TestStore_RenameValue(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	a := testRow("P001", "Barolo DOCG")
	b := testRow("P002", "Barbera d'Asti")
	c := testRow("P003", "Vino Bianco")
	c.Fields = map[string]string{"Azienda": "Villa Bianchi"}
	s.UpsertRows(ctx, []catalog.Row{a, b, c})

	renamed, err := s.RenameValue(ctx, "Azienda", "Cantina Rossi", "Cantina Rossi SRL")
	if err != nil {
		t.Fatalf("RenameValue() error = %v", err)
	}
	if renamed != 2 {
		t.Errorf("RenameValue() = %d rows, want 2", renamed)
	}

	rows, _ := s.ListRows(ctx, catalog.Filter{})
	for _, r := range rows {
		switch r.Key {
		case "P001", "P002":
			if r.Field("Azienda") != "Cantina Rossi SRL" {
				t.Errorf("%s Azienda = %q, want renamed value", r.Key, r.Field("Azienda"))
			}
		case "P003":
			if r.Field("Azienda") != "Villa Bianchi" {
				t.Errorf("%s Azienda = %q, rename must not touch other values", r.Key, r.Field("Azienda"))
			}
		}
	}
}

func TestStore_RenameValue_NoMatches(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	s.UpsertRow(ctx, testRow("P001", "Barolo DOCG"))

	renamed, err := s.RenameValue(ctx, "Azienda", "Nessuno", "Qualcuno")
	if err != nil {
		t.Fatalf("RenameValue() error = %v", err)
	}
	if renamed != 0 {
		t.Errorf("RenameValue() = %d, want 0", renamed)
	}
}

func TestStore_RenameValue_RejectsNonEditable(t *testing.T) {
	s := testStore(t)

	if _, err := s.RenameValue(context.Background(), "art_kart", "P001", "P999"); err == nil {
		t.Error("RenameValue() expected error for the key column")
	}
}

func TestStore_History_Order(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	s.UpsertRow(ctx, testRow("P001", "Barolo DOCG"))
	s.SetField(ctx, "P001", "DescrizioneAffinata", "Barolo Riserva")
	s.SetField(ctx, "P001", "DescrizioneAffinata", "Barolo Riserva 2018")

	history, err := s.History(ctx, "P001")
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(history))
	}
	if history[0].NewValue != "Barolo Riserva" || history[1].NewValue != "Barolo Riserva 2018" {
		t.Errorf("history out of order: %q then %q", history[0].NewValue, history[1].NewValue)
	}
}

func TestStore_GetStats(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	withImage := testRow("P001", "Barolo DOCG")
	withImage.ImageURL = "https://drive.google.com/uc?export=view&id=abc"
	s.UpsertRow(ctx, withImage)
	s.UpsertRow(ctx, testRow("P002", "Barbera d'Asti"))
	s.SetField(ctx, "P002", "DescrizioneAffinata", "Barbera d'Asti 2019")

	stats, err := s.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats() error = %v", err)
	}
	if stats.TotalRows != 2 {
		t.Errorf("TotalRows = %d, want 2", stats.TotalRows)
	}
	if stats.ModifiedRows != 1 {
		t.Errorf("ModifiedRows = %d, want 1", stats.ModifiedRows)
	}
	if stats.RowsWithImage != 1 {
		t.Errorf("RowsWithImage = %d, want 1", stats.RowsWithImage)
	}
	if stats.Changes != 1 {
		t.Errorf("Changes = %d, want 1", stats.Changes)
	}
	if stats.SchemaVersion != SchemaVersion {
		t.Errorf("SchemaVersion = %d, want %d", stats.SchemaVersion, SchemaVersion)
	}
	if stats.DBSizeBytes == 0 {
		t.Error("DBSizeBytes = 0, want the database file size")
	}
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	tmpDir := t.TempDir()
	ctx := context.Background()

	s, err := Open(tmpDir, testSchema())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	s.UpsertRow(ctx, testRow("P001", "Barolo DOCG"))
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := Open(tmpDir, testSchema())
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	got, err := reopened.GetRow(ctx, "P001")
	if err != nil {
		t.Fatalf("GetRow() after reopen error = %v", err)
	}
	if got.Description != "Barolo DOCG" {
		t.Errorf("Description after reopen = %q", got.Description)
	}
}

func TestStore_CheckIntegrity(t *testing.T) {
	s := testStore(t)

	if err := s.CheckIntegrity(context.Background()); err != nil {
		t.Errorf("CheckIntegrity() on a fresh store = %v", err)
	}
}

func keysOf(rows []catalog.Row) []string {
	keys := make([]string, len(rows))
	for i, r := range rows {
		keys[i] = r.Key
	}
	return keys
}
