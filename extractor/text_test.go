package extractor

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct{ in, want string }{
		{"  Baños  y   Dormitorios ", "banos y dormitorios"},
		{"3º Anillo", "3 anillo"},
		{"120 m²", "120 m2"},
		{"URUBÓ", "urubo"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeKey(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Depto. en Venta!! (Equipetrol)", "depto en venta equipetrol"},
		{"Casa - 3 Dorm.", "casa 3 dorm"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeKey(tt.in); got != tt.want {
			t.Errorf("NormalizeKey(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}
