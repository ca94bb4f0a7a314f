package storage

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"scz-inmuebles/models"
)

func f64(v float64) *float64 { return &v }
func iptr(v int) *int        { return &v }

func sampleProperty(id string) *models.Property {
	p := &models.Property{
		ID:           id,
		URL:          "https://example.bo/inmueble/" + id,
		Title:        "Departamento en Equipetrol",
		Provider:     "c21",
		SourceFile:   "c21_2025-08-15.xlsx",
		SnapshotDate: time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC),
		Latitude:     f64(-17.7634),
		Longitude:    f64(-63.1972),
	}
	p.Price = f64(180000)
	p.Currency = models.USD
	p.Bedrooms = iptr(3)
	p.Bathrooms = f64(2)
	p.TotalArea = f64(120)
	p.Zone = "Equipetrol"
	p.Amenities = []string{"piscina", "gimnasio"}
	p.Method = models.MethodRegexOnly
	p.RegexFieldsFound = 5
	return p
}

func TestJSONFileCacheMerges(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache", "llm_cache.json")
	c := NewJSONFileCache(path)

	empty, err := c.Load(ctx)
	if err != nil || len(empty) != 0 {
		t.Fatalf("Load() on missing file = %v, %v; want empty map", empty, err)
	}

	if err := c.Save(ctx, map[string]models.ExtractedFields{"a": {Zone: "Urubó"}}); err != nil {
		t.Fatalf("Save(a) error: %v", err)
	}
	if err := c.Save(ctx, map[string]models.ExtractedFields{"b": {Zone: "Sirari"}}); err != nil {
		t.Fatalf("Save(b) error: %v", err)
	}

	got, err := NewJSONFileCache(path).Load(ctx)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(got) != 2 || got["a"].Zone != "Urubó" || got["b"].Zone != "Sirari" {
		t.Errorf("Load() = %+v; want both entries", got)
	}

	leftovers, _ := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tmp"))
	if len(leftovers) != 0 {
		t.Errorf("temp files left behind: %v", leftovers)
	}
}

func TestJSONFileCacheCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "llm_cache.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewJSONFileCache(path).Load(context.Background()); err == nil {
		t.Error("expected a decode error for a corrupt cache file")
	}
}

func TestCheckpointFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	f := NewCheckpointFile(path)

	if _, ok, err := f.Load(); ok || err != nil {
		t.Fatalf("Load() on missing file = ok %v, err %v; want no checkpoint", ok, err)
	}

	cp := Fresh("abc123", 4)
	if cp.Done(0) {
		t.Error("fresh checkpoint must not mark batch 0 as done")
	}
	cp.LastCompletedBatch = 1
	if err := f.Save(cp); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	got, ok, err := f.Load()
	if err != nil || !ok {
		t.Fatalf("Load() = ok %v, err %v", ok, err)
	}
	if got.LastCompletedBatch != 1 || got.TotalBatches != 4 || got.Source != "abc123" || got.UpdatedAt.IsZero() {
		t.Errorf("Load() = %+v", got)
	}
	if !got.Done(1) || got.Done(2) {
		t.Errorf("Done() wrong for %+v", got)
	}
	if got.Complete() {
		t.Errorf("Complete() = true for %+v", got)
	}
	got.LastCompletedBatch = 3
	if !got.Complete() {
		t.Errorf("Complete() = false for %+v", got)
	}

	if err := f.Reset(); err != nil {
		t.Fatalf("Reset() error: %v", err)
	}
	if _, ok, _ := f.Load(); ok {
		t.Error("checkpoint still present after Reset()")
	}
}

func TestCSVWriterExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "canonicas.csv")
	w := NewCSVWriter(path)

	p := sampleProperty("p1")
	updated := p.SnapshotDate
	p.LastUpdated = &updated
	p.PreviousVersions = 2
	if err := w.Export([]*models.Property{p, sampleProperty("p2")}); err != nil {
		t.Fatalf("Export() error: %v", err)
	}

	fh, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer fh.Close()
	records, err := csv.NewReader(fh).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records; want header + 2", len(records))
	}
	if len(records[0]) != len(csvHeader) {
		t.Errorf("header has %d columns; want %d", len(records[0]), len(csvHeader))
	}
	row := records[1]
	if row[0] != "p1" || row[4] != "180000" || row[5] != "USD" || row[13] != "Equipetrol" {
		t.Errorf("unexpected row: %v", row)
	}
	if row[20] != "2" || row[21] != "2025-08-15" {
		t.Errorf("versiones_previas/ultima_actualizacion = %q/%q", row[20], row[21])
	}
}

func TestSQLiteWriterUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	sw, err := NewSQLiteWriter(ctx, filepath.Join(t.TempDir(), "inmuebles.db"))
	if err != nil {
		t.Fatalf("NewSQLiteWriter() error: %v", err)
	}
	defer sw.Close()

	batch := []*models.Property{sampleProperty("p1"), sampleProperty("p2")}
	for n := 0; n < 2; n++ {
		if err := sw.Write(ctx, batch); err != nil {
			t.Fatalf("Write() #%d error: %v", n+1, err)
		}
	}

	got, err := sw.FetchAll(ctx)
	if err != nil {
		t.Fatalf("FetchAll() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("FetchAll() returned %d rows; want 2", len(got))
	}

	p := got[0]
	if p.ID != "p1" || p.Price == nil || *p.Price != 180000 || p.Currency != models.USD {
		t.Errorf("round trip lost price: %+v", p)
	}
	if p.Bedrooms == nil || *p.Bedrooms != 3 || p.LotArea != nil {
		t.Errorf("round trip lost optional fields: %+v", p.ExtractedFields)
	}
	if len(p.Amenities) != 2 || p.Method != models.MethodRegexOnly {
		t.Errorf("round trip lost amenities/method: %+v", p.ExtractedFields)
	}
	if !p.SnapshotDate.Equal(time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC)) || p.LastUpdated != nil {
		t.Errorf("round trip dates: snapshot %v last %v", p.SnapshotDate, p.LastUpdated)
	}

	// a second write with group data updates the row in place
	updated := sampleProperty("p1")
	updated.CanonicalID = "p1"
	updated.PreviousVersions = 1
	last := updated.SnapshotDate
	updated.LastUpdated = &last
	if err := sw.Write(ctx, []*models.Property{updated}); err != nil {
		t.Fatalf("Write(updated) error: %v", err)
	}
	got, _ = sw.FetchAll(ctx)
	if len(got) != 2 || got[0].PreviousVersions != 1 || got[0].LastUpdated == nil {
		t.Errorf("update not applied: %+v", got[0])
	}
}

func TestDedupeByID(t *testing.T) {
	a1, b, a2 := sampleProperty("a"), sampleProperty("b"), sampleProperty("a")
	a2.Title = "newer"
	got := dedupeByID([]*models.Property{a1, b, a2, nil, {}})
	if len(got) != 2 || got[0].Title != "newer" || got[1].ID != "b" {
		t.Errorf("dedupeByID() = %v", got)
	}
}
