package models

import "time"

// Currency is the ISO code of a listing price.
type Currency string

const (
	USD Currency = "USD"
	BOB Currency = "BOB"
)

// ExtractionMethod records how the structured fields of a listing were obtained.
type ExtractionMethod string

const (
	MethodRegexOnly     ExtractionMethod = "regex_only"
	MethodHybrid        ExtractionMethod = "hybrid"
	MethodLLMOnly       ExtractionMethod = "llm_only"
	MethodRegexFallback ExtractionMethod = "regex_fallback"
	MethodError         ExtractionMethod = "error"
)

// RawRow holds one listing as read from a provider export, after column
// normalisation. It is consumed once by the pipeline.
type RawRow struct {
	ID            string
	Title         string
	Description   string
	PriceText     string
	AmenitiesText string
	PropertyType  string
	Zone          string
	URL           string
	Latitude      *float64
	Longitude     *float64
	Rooms         *int
	Baths         *float64
	Provider      string
	SourceFile    string
	SnapshotDate  time.Time
	RowNumber     int
}

// ExtractedFields is the structured result of running the extractors over a
// listing. Nil pointers and empty strings mean "not found".
type ExtractedFields struct {
	Price         *float64 `json:"precio"`
	Currency      Currency `json:"moneda,omitempty"`
	CurrencyGuess bool     `json:"moneda_inferida,omitempty"`
	Bedrooms      *int     `json:"habitaciones"`
	Bathrooms     *float64 `json:"banos"`
	Garages       *int     `json:"garajes"`
	LotArea       *float64 `json:"superficie_terreno"`
	BuiltArea     *float64 `json:"superficie_construida"`
	TotalArea     *float64 `json:"superficie_total"`
	Zone          string   `json:"zona,omitempty"`
	PropertyType  string   `json:"tipo_propiedad,omitempty"`
	Amenities     []string `json:"caracteristicas"`

	Method           ExtractionMethod `json:"_extraction_method,omitempty"`
	RegexFieldsFound int              `json:"_regex_extraction_success"`
	LLMProvider      string           `json:"_llm_provider,omitempty"`
	LLMFallback      bool             `json:"_llm_fallback,omitempty"`
}

// HasArea reports whether any of the surface fields is present.
func (f *ExtractedFields) HasArea() bool {
	return f.LotArea != nil || f.BuiltArea != nil || f.TotalArea != nil
}

// Area returns the most representative surface: total, then built, then lot.
func (f *ExtractedFields) Area() *float64 {
	switch {
	case f.TotalArea != nil:
		return f.TotalArea
	case f.BuiltArea != nil:
		return f.BuiltArea
	default:
		return f.LotArea
	}
}

// Sufficient is the "skip the LLM" rule: a price plus either a zone or a surface.
func (f *ExtractedFields) Sufficient() bool {
	return f.Price != nil && (f.Zone != "" || f.HasArea())
}

// CountFound returns how many top-level fields hold a value.
func (f *ExtractedFields) CountFound() int {
	n := 0
	for _, ok := range []bool{
		f.Price != nil,
		f.Bedrooms != nil,
		f.Bathrooms != nil,
		f.Garages != nil,
		f.LotArea != nil,
		f.BuiltArea != nil,
		f.TotalArea != nil,
		f.Zone != "",
		f.PropertyType != "",
	} {
		if ok {
			n++
		}
	}
	return n
}

// Property is the canonical listing persisted to the store.
type Property struct {
	ExtractedFields

	ID           string    `json:"id"`
	URL          string    `json:"url,omitempty"`
	Title        string    `json:"titulo"`
	Description  string    `json:"descripcion,omitempty"`
	Latitude     *float64  `json:"latitud"`
	Longitude    *float64  `json:"longitud"`
	Provider     string    `json:"codigo_proveedor"`
	SourceFile   string    `json:"archivo_origen,omitempty"`
	SnapshotDate time.Time `json:"fecha_snapshot"`

	PreviousVersions int        `json:"versiones_previas"`
	LastUpdated      *time.Time `json:"ultima_actualizacion,omitempty"`
	CanonicalID      string     `json:"canonical_id,omitempty"`
}

// HasCoordinates reports whether both latitude and longitude are set.
func (p *Property) HasCoordinates() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// SimilarityEdge is a pairwise duplicate relation. It is only produced when
// the pair crosses a duplicate rule and is consumed by the grouping engine.
type SimilarityEdge struct {
	A      string
	B      string
	Score  float64
	Reason string
}

// DuplicateGroup is a set of property ids describing the same real listing.
type DuplicateGroup struct {
	ID        int
	Members   []string
	Canonical string
}

// Size returns the number of members in the group.
func (g DuplicateGroup) Size() int { return len(g.Members) }
