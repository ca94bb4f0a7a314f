package extractor

import (
	"testing"

	"scz-inmuebles/models"
)

func TestExtractPrice(t *testing.T) {
	tests := []struct {
		text     string
		amount   float64
		currency models.Currency
		found    bool
	}{
		{"$us 180.000", 180000, models.USD, true},
		{"Precio: US$ 95,000", 95000, models.USD, true},
		{"u$s 250.000,00", 250000, models.USD, true},
		{"120000 dólares", 120000, models.USD, true},
		{"USD 1.234", 1234, models.USD, true},
		{"Bs. 1.050.000", 1050000, models.BOB, true},
		{"850.000 bolivianos", 850000, models.BOB, true},
		{"Bs 150.000,50", 150000.50, models.BOB, true},
		{"0.00 BOB", 0, "", false},
		{"$us 500", 0, "", false},
		{"$us 90.000.000", 0, "", false},
		{"Bs 30.000", 0, "", false},
		{"sin precio", 0, "", false},
		{"", 0, "", false},
	}

	for _, tt := range tests {
		got, ok := ExtractPrice(tt.text)
		if ok != tt.found {
			t.Errorf("ExtractPrice(%q) found = %v; want %v", tt.text, ok, tt.found)
			continue
		}
		if !ok {
			continue
		}
		if got.Amount != tt.amount || got.Currency != tt.currency {
			t.Errorf("ExtractPrice(%q) = %.2f %s; want %.2f %s",
				tt.text, got.Amount, got.Currency, tt.amount, tt.currency)
		}
	}
}

func TestExtractPriceSkipsOutOfRangeCandidate(t *testing.T) {
	got, ok := ExtractPrice("Expensas $us 50, precio de venta $us 145.000")
	if !ok || got.Amount != 145000 {
		t.Errorf("ExtractPrice() = %v, %v; want 145000 USD", got, ok)
	}
}

func TestExtractPriceInfersCurrency(t *testing.T) {
	tests := []struct {
		text     string
		currency models.Currency
		amount   float64
	}{
		{"precio 135000", models.USD, 135000},
		{"85000", models.USD, 85000},
	}
	for _, tt := range tests {
		got, ok := ExtractPrice(tt.text)
		if !ok {
			t.Fatalf("ExtractPrice(%q) not found", tt.text)
		}
		if got.Currency != tt.currency || got.Amount != tt.amount || !got.Inferred {
			t.Errorf("ExtractPrice(%q) = %+v; want inferred %.0f %s", tt.text, got, tt.amount, tt.currency)
		}
	}

	// Small unmarked values infer BOB and fall below the BOB floor.
	if _, ok := ExtractPrice("precio 9000"); ok {
		t.Error("ExtractPrice(\"precio 9000\") should be treated as missing")
	}
}

func TestExtractPriceIdempotent(t *testing.T) {
	inputs := []string{
		"$us 180.000",
		"Bs 1.050.000",
		"u$s 250.000,75",
		"Bs. 712.500,40",
		"USD 1.234",
		"precio 135000",
	}
	for _, in := range inputs {
		first, ok := ExtractPrice(in)
		if !ok {
			t.Fatalf("ExtractPrice(%q) not found", in)
		}
		second, ok := ExtractPrice(first.String())
		if !ok {
			t.Fatalf("ExtractPrice(%q) not found", first.String())
		}
		if first.Amount != second.Amount || first.Currency != second.Currency {
			t.Errorf("reparse of %q: %s -> %s", in, first, second)
		}
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		tok  string
		want float64
	}{
		{"1.234", 1234},
		{"1,234", 1234},
		{"1.234,56", 1234.56},
		{"1,234.56", 1234.56},
		{"180.000", 180000},
		{"95000", 95000},
		{"1.050.000.", 1050000},
	}
	for _, tt := range tests {
		got, ok := parseAmount(tt.tok)
		if !ok || got != tt.want {
			t.Errorf("parseAmount(%q) = %v, %v; want %v", tt.tok, got, ok, tt.want)
		}
	}
}
