package extractor

import (
	"reflect"
	"testing"

	"scz-inmuebles/models"
	"scz-inmuebles/utils"
)

func newTestExtractor() *FieldExtractor {
	return NewFieldExtractor(utils.NewNopLogger(), nil)
}

func TestExtractAllFullDescription(t *testing.T) {
	e := newTestExtractor()
	f := e.ExtractAll("Departamento en venta $us 180.000 en Equipetrol con 3 habitaciones, 2 baños, 120 m2", "")

	if f.Price == nil || *f.Price != 180000 {
		t.Errorf("Price = %v; want 180000", f.Price)
	}
	if f.Currency != models.USD {
		t.Errorf("Currency = %q; want USD", f.Currency)
	}
	if f.Zone != "Equipetrol" {
		t.Errorf("Zone = %q; want Equipetrol", f.Zone)
	}
	if f.Bedrooms == nil || *f.Bedrooms != 3 {
		t.Errorf("Bedrooms = %v; want 3", f.Bedrooms)
	}
	if f.Bathrooms == nil || *f.Bathrooms != 2.0 {
		t.Errorf("Bathrooms = %v; want 2", f.Bathrooms)
	}
	if f.TotalArea == nil || *f.TotalArea != 120 {
		t.Errorf("TotalArea = %v; want 120", f.TotalArea)
	}
	if f.RegexFieldsFound != 5 {
		t.Errorf("RegexFieldsFound = %d; want 5", f.RegexFieldsFound)
	}
	if !f.Sufficient() {
		t.Error("expected the regex result to be sufficient")
	}
}

func TestExtractAllRoomsOnly(t *testing.T) {
	f := newTestExtractor().ExtractAll("Casa bonita, 4 ambientes", "")

	if f.Bedrooms == nil || *f.Bedrooms != 4 {
		t.Errorf("Bedrooms = %v; want 4", f.Bedrooms)
	}
	if f.Price != nil || f.Zone != "" || f.HasArea() || f.PropertyType != "" {
		t.Errorf("unexpected fields: %+v", f)
	}
	if f.RegexFieldsFound != 1 {
		t.Errorf("RegexFieldsFound = %d; want 1", f.RegexFieldsFound)
	}
	if f.Sufficient() {
		t.Error("rooms alone must not be sufficient")
	}
}

func TestExtractAllSurfaces(t *testing.T) {
	tests := []struct {
		text         string
		lot, built   float64
		total        float64
		wantTotalNil bool
	}{
		{"Casa en terreno de 450 m2 con 280 m2 construidos", 450, 280, 0, true},
		{"Superficie construida: 1.200 mts2", 0, 1200, 0, true},
		{"Amplio depto de 85,5 m2", 0, 0, 85.5, false},
		{"Lote 300 metros cuadrados", 300, 0, 0, true},
	}
	e := newTestExtractor()
	for _, tt := range tests {
		f := e.ExtractAll(tt.text, "")
		if tt.lot != 0 && (f.LotArea == nil || *f.LotArea != tt.lot) {
			t.Errorf("ExtractAll(%q).LotArea = %v; want %v", tt.text, f.LotArea, tt.lot)
		}
		if tt.built != 0 && (f.BuiltArea == nil || *f.BuiltArea != tt.built) {
			t.Errorf("ExtractAll(%q).BuiltArea = %v; want %v", tt.text, f.BuiltArea, tt.built)
		}
		if tt.wantTotalNil && f.TotalArea != nil {
			t.Errorf("ExtractAll(%q).TotalArea = %v; want nil", tt.text, *f.TotalArea)
		}
		if !tt.wantTotalNil && (f.TotalArea == nil || *f.TotalArea != tt.total) {
			t.Errorf("ExtractAll(%q).TotalArea = %v; want %v", tt.text, f.TotalArea, tt.total)
		}
	}
}

func TestExtractAllRanges(t *testing.T) {
	tests := []struct {
		text  string
		check func(models.ExtractedFields) bool
		desc  string
	}{
		{"45 dormitorios", func(f models.ExtractedFields) bool { return f.Bedrooms == nil }, "rooms > 20"},
		{"0 habitaciones", func(f models.ExtractedFields) bool { return f.Bedrooms == nil }, "rooms < 1"},
		{"22 baños", func(f models.ExtractedFields) bool { return f.Bathrooms == nil }, "baths > 15"},
		{"5 m2", func(f models.ExtractedFields) bool { return !f.HasArea() }, "area < 10"},
		{"250000 m2", func(f models.ExtractedFields) bool { return !f.HasArea() }, "area > 100000"},
		{"1,5 baños", func(f models.ExtractedFields) bool { return f.Bathrooms != nil && *f.Bathrooms == 1.5 }, "half bath"},
		{"tres dormitorios", func(f models.ExtractedFields) bool { return f.Bedrooms != nil && *f.Bedrooms == 3 }, "word number"},
		{"garaje para 2 autos", func(f models.ExtractedFields) bool { return f.Garages != nil && *f.Garages == 2 }, "garage phrase"},
		{"casa con un cuarto de servicio", func(f models.ExtractedFields) bool { return f.Bedrooms == nil }, "service room"},
		{"3 dormitorios y 1 cuarto de servicio", func(f models.ExtractedFields) bool { return f.Bedrooms != nil && *f.Bedrooms == 3 }, "service room after bedrooms"},
	}
	e := newTestExtractor()
	for _, tt := range tests {
		if f := e.ExtractAll(tt.text, ""); !tt.check(f) {
			t.Errorf("ExtractAll(%q) failed %s: %+v", tt.text, tt.desc, f)
		}
	}
}

func TestExtractAllSkipsOutOfRangeAndTriesNextMatch(t *testing.T) {
	f := newTestExtractor().ExtractAll("Edificio de 40 dormitorios, este depto tiene 2 dormitorios", "")
	if f.Bedrooms == nil || *f.Bedrooms != 2 {
		t.Errorf("Bedrooms = %v; want 2", f.Bedrooms)
	}
}

func TestExtractAllTitleFallback(t *testing.T) {
	f := newTestExtractor().ExtractAll("Hermosa vista, lista para entrar", "Venta casa Urubó 3 dorm Bs 2.100.000")
	if f.Bedrooms == nil || *f.Bedrooms != 3 {
		t.Errorf("Bedrooms = %v; want 3", f.Bedrooms)
	}
	if f.Zone != "Urubó" {
		t.Errorf("Zone = %q; want Urubó", f.Zone)
	}
	if f.Price == nil || *f.Price != 2100000 || f.Currency != models.BOB {
		t.Errorf("Price = %v %s; want 2100000 BOB", f.Price, f.Currency)
	}
}

func TestAmenities(t *testing.T) {
	got := Amenities("Condominio con piscina, churrasquera y gimnasio. Seguridad 24 horas.")
	want := []string{"churrasquera", "gimnasio", "piscina", "seguridad 24h"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Amenities() = %v; want %v", got, want)
	}
	if got := Amenities(""); len(got) != 0 {
		t.Errorf("Amenities(\"\") = %v; want empty", got)
	}
}

func TestSplitAmenities(t *testing.T) {
	got := SplitAmenities("Pileta; GYM, Cancha de tenis |  ")
	want := []string{"cancha de tenis", "gimnasio", "piscina"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SplitAmenities() = %v; want %v", got, want)
	}
}

func TestNormalizePropertyType(t *testing.T) {
	tests := []struct{ raw, want string }{
		{"Departamento", "departamento"},
		{"DPTO.", "departamento"},
		{"Casa en condominio", "casa"},
		{"Lote", "terreno"},
		{"Local Comercial", "local comercial"},
		{"Cabaña", "cabana"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizePropertyType(tt.raw); got != tt.want {
			t.Errorf("NormalizePropertyType(%q) = %q; want %q", tt.raw, got, tt.want)
		}
	}
}
