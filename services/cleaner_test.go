package services

import (
	"testing"

	"scz-inmuebles/models"
)

func TestCleanerDropsEmptyRows(t *testing.T) {
	c := NewCleaner(newTestLogger())
	raw := []*models.RawRow{
		{Title: "   ", Description: "", RowNumber: 2, SourceFile: "c21_2025-08-15.xlsx"},
		{Title: "Casa en Urubó", Provider: " C21 ", URL: "https://c21.bo/p/1", RowNumber: 3, SourceFile: "c21_2025-08-15.xlsx"},
		{PriceText: "$us 90.000", RowNumber: 4, SourceFile: "c21_2025-08-15.xlsx"},
		{Description: "lindo lugar", RowNumber: 5, SourceFile: "c21_2025-08-15.xlsx"},
	}

	cleaned := c.Clean(raw)
	if len(cleaned) != 2 {
		t.Fatalf("expected 2 rows after dropping the empty and description-only ones, got %d", len(cleaned))
	}
	if cleaned[0].Provider != "c21" {
		t.Errorf("Provider = %q; want c21", cleaned[0].Provider)
	}
	if cleaned[0].ID == "" || cleaned[0].ID == cleaned[1].ID {
		t.Errorf("ids not assigned: %q / %q", cleaned[0].ID, cleaned[1].ID)
	}
}

func TestCleanerSkipsRepeatedRows(t *testing.T) {
	c := NewCleaner(newTestLogger())
	raw := []*models.RawRow{
		{Title: "A", URL: "https://c21.bo/p/1", Provider: "c21", SourceFile: "c21_2025-08-15.xlsx"},
		{Title: "B", URL: "https://c21.bo/p/1/", Provider: "c21", SourceFile: "c21_2025-08-15.xlsx"},
		{Title: "A", URL: "https://c21.bo/p/1", Provider: "c21", SourceFile: "c21_2025-08-29.xlsx"},
	}

	cleaned := c.Clean(raw)
	if len(cleaned) != 2 {
		t.Errorf("expected the repeated row of the same file to be dropped, got %d rows", len(cleaned))
	}
}

func TestCleanerValidatesColumns(t *testing.T) {
	c := NewCleaner(newTestLogger())
	row := &models.RawRow{
		Title:        "  Depto   en  Equipetrol ",
		PropertyType: "Dpto.",
		Latitude:     f64(0),
		Longitude:    f64(0),
		Rooms:        iptr(45),
		Baths:        f64(2),
	}
	cleaned := c.Clean([]*models.RawRow{row})
	if len(cleaned) != 1 {
		t.Fatalf("got %d rows; want 1", len(cleaned))
	}
	r := cleaned[0]
	if r.Title != "Depto en Equipetrol" {
		t.Errorf("Title = %q", r.Title)
	}
	if r.PropertyType != "departamento" {
		t.Errorf("PropertyType = %q; want departamento", r.PropertyType)
	}
	if r.Latitude != nil || r.Longitude != nil {
		t.Error("(0, 0) coordinates should be cleared")
	}
	if r.Rooms != nil || r.Baths == nil {
		t.Errorf("Rooms = %v, Baths = %v; want nil, 2", r.Rooms, r.Baths)
	}
}

func TestPropertyIDIsStable(t *testing.T) {
	a := &models.RawRow{Provider: "c21", URL: "https://c21.bo/p/1", SourceFile: "c21_2025-08-15.xlsx"}
	b := &models.RawRow{Provider: "C21", URL: "http://www.c21.bo/p/1/", SourceFile: "c21_2025-08-15.xlsx"}
	c := &models.RawRow{Provider: "c21", URL: "https://c21.bo/p/1", SourceFile: "c21_2025-08-29.xlsx"}

	if PropertyID(a) != PropertyID(b) {
		t.Error("equivalent URLs should yield the same id")
	}
	if PropertyID(a) == PropertyID(c) {
		t.Error("a later snapshot should get its own id")
	}
}
