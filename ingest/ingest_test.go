package ingest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"scz-inmuebles/utils"
)

func TestColumnMapperExactAndFuzzy(t *testing.T) {
	m := NewColumnMapper(nil, utils.NewNopLogger())
	headers := []string{"Título", "DESCRIPCIÓN", "Precio (USD)", "Dormitorios", "Baños", "Latitud", "Longitud", "Barrio", "Link", "Comodidade"}
	got := m.Map(headers)

	want := map[string]int{
		ColTitle: 0, ColDescription: 1, ColPrice: 2, ColRooms: 3, ColBaths: 4,
		ColLatitude: 5, ColLongitude: 6, ColZone: 7, ColURL: 8, ColAmenities: 9,
	}
	for col, idx := range want {
		if got[col] != idx {
			t.Errorf("Map()[%s] = %d; want %d", col, got[col], idx)
		}
	}
}

func TestColumnMapperFirstHeaderWins(t *testing.T) {
	got := NewColumnMapper(nil, nil).Map([]string{"titulo", "title", "xyz"})
	if got[ColTitle] != 0 || len(got) != 1 {
		t.Errorf("Map() = %v; want only titulo at 0", got)
	}
}

func TestHeaderSimilarity(t *testing.T) {
	if s := HeaderSimilarity("descripcion", "descripcion"); s < 0.999 {
		t.Errorf("HeaderSimilarity(same) = %.3f; want 1", s)
	}
	if s := HeaderSimilarity("precio", "latitud"); s >= FuzzyThreshold {
		t.Errorf("HeaderSimilarity(precio, latitud) = %.3f; want below threshold", s)
	}
}

func TestFilenameMetadata(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		date     string
	}{
		{"c21_2025-08-15.xlsx", "c21", "2025-08-15"},
		{"infocasas-20250829.csv", "infocasas", "2025-08-29"},
		{"UltraCasas export 2025-09-01 final.xlsx", "ultracasas", "2025-09-01"},
	}
	for _, tt := range tests {
		if got := ProviderFromFilename(tt.name); got != tt.provider {
			t.Errorf("ProviderFromFilename(%q) = %q; want %q", tt.name, got, tt.provider)
		}
		got, ok := SnapshotFromFilename(tt.name)
		if !ok || got.Format("2006-01-02") != tt.date {
			t.Errorf("SnapshotFromFilename(%q) = %v, %v; want %s", tt.name, got, ok, tt.date)
		}
	}
	if _, ok := SnapshotFromFilename("export.csv"); ok {
		t.Error("SnapshotFromFilename(export.csv) should find no date")
	}
}

func TestReadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c21_2025-08-15.csv")
	content := "\xef\xbb\xbfTitulo;Descripcion;Precio;Latitud;Longitud;Habitaciones\n" +
		"Casa en Urubó;Linda casa con piscina;$us 250.000;-17,7701;-63,2304;4\n" +
		";;;;;\n" +
		"Depto Equipetrol;\"Piso 8; vista\";Bs 900.000;;;2\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	rows, err := NewReader(nil, utils.NewNopLogger()).ReadFile(path, "")
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("ReadFile() returned %d rows; want 2", len(rows))
	}
	r := rows[0]
	if r.Title != "Casa en Urubó" || r.PriceText != "$us 250.000" || r.Provider != "c21" {
		t.Errorf("row 0 = %+v", r)
	}
	if r.Latitude == nil || *r.Latitude != -17.7701 || r.Rooms == nil || *r.Rooms != 4 {
		t.Errorf("row 0 numbers: lat %v rooms %v", r.Latitude, r.Rooms)
	}
	if !r.SnapshotDate.Equal(time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC)) || r.SourceFile != "c21_2025-08-15.csv" {
		t.Errorf("row 0 metadata: %v %q", r.SnapshotDate, r.SourceFile)
	}
	if rows[1].Description != "Piso 8; vista" || rows[1].Latitude != nil || rows[1].RowNumber != 4 {
		t.Errorf("row 1 = %+v", rows[1])
	}
}

func TestReadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "infocasas_20250829.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	data := [][]any{
		{"titulo", "descripcion", "precio", "zona", "url"},
		{"Terreno en Warnes", "Terreno de 1000 m2", "USD 35.000", "Warnes", "https://infocasas.bo/t/1"},
	}
	for i, row := range data {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}

	rows, err := NewReader(nil, nil).ReadFile(path, "InfoCasas")
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if len(rows) != 1 || rows[0].Zone != "Warnes" || rows[0].URL != "https://infocasas.bo/t/1" {
		t.Fatalf("ReadFile() = %+v", rows)
	}
	if rows[0].Provider != "InfoCasas" {
		t.Errorf("Provider = %q; the flag value is kept as given", rows[0].Provider)
	}
}

func TestReadUnsupported(t *testing.T) {
	if _, err := NewReader(nil, nil).ReadFile("datos.json", ""); err == nil {
		t.Error("expected ErrUnsupportedFormat")
	}
}
