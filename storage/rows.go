package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"scz-inmuebles/models"
)

// propertyColumns is the column order shared by the SQL stores.
var propertyColumns = []string{
	"id", "url", "titulo", "descripcion",
	"precio", "moneda", "moneda_inferida",
	"habitaciones", "banos", "garajes",
	"superficie_terreno", "superficie_construida", "superficie_total",
	"zona", "tipo_propiedad", "caracteristicas",
	"latitud", "longitud",
	"codigo_proveedor", "archivo_origen", "fecha_snapshot",
	"extraction_method", "regex_fields", "llm_provider", "llm_fallback",
	"versiones_previas", "ultima_actualizacion", "canonical_id",
}

// Positions of the values the backends treat specially.
const (
	colAmenities = 15
	colLatitude  = 16
	colLongitude = 17
)

const dateLayout = "2006-01-02"

// propertyValues returns the column values of p in propertyColumns order as
// plain driver values. Amenities are left as a []string for the caller to encode.
func propertyValues(p *models.Property) []any {
	return []any{
		p.ID, p.URL, p.Title, p.Description,
		optFloat(p.Price), string(p.Currency), p.CurrencyGuess,
		optInt(p.Bedrooms), optFloat(p.Bathrooms), optInt(p.Garages),
		optFloat(p.LotArea), optFloat(p.BuiltArea), optFloat(p.TotalArea),
		p.Zone, p.PropertyType, nonNil(p.Amenities),
		optFloat(p.Latitude), optFloat(p.Longitude),
		p.Provider, p.SourceFile, nullDate(p.SnapshotDate),
		string(p.Method), int64(p.RegexFieldsFound), p.LLMProvider, p.LLMFallback,
		int64(p.PreviousVersions), optDate(p.LastUpdated), p.CanonicalID,
	}
}

func optFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func optInt(v *int) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}

func nullDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(dateLayout)
}

func optDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return nullDate(*t)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// upsertAssignments renders "col = EXCLUDED.col" for every non-key column.
func upsertAssignments() string {
	sets := make([]string, 0, len(propertyColumns)-1)
	for _, c := range propertyColumns[1:] {
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
	}
	return strings.Join(sets, ", ")
}

// dedupeByID keeps the last occurrence of every id, preserving first-seen order.
// A multi-row upsert cannot touch the same key twice.
func dedupeByID(props []*models.Property) []*models.Property {
	index := make(map[string]int, len(props))
	out := make([]*models.Property, 0, len(props))
	for _, p := range props {
		if p == nil || p.ID == "" {
			continue
		}
		if i, ok := index[p.ID]; ok {
			out[i] = p
			continue
		}
		index[p.ID] = len(out)
		out = append(out, p)
	}
	return out
}

// propertyRow is the scan target shared by the SQL stores.
type propertyRow struct {
	id                            string
	url, title, description       sql.NullString
	price                         sql.NullFloat64
	currency                      sql.NullString
	currencyGuess                 sql.NullBool
	bedrooms                      sql.NullInt64
	bathrooms                     sql.NullFloat64
	garages                       sql.NullInt64
	lotArea, builtArea, totalArea sql.NullFloat64
	zone, propertyType            sql.NullString
	latitude, longitude           sql.NullFloat64
	provider, sourceFile          sql.NullString
	method                        sql.NullString
	regexFields                   sql.NullInt64
	llmProvider                   sql.NullString
	llmFallback                   sql.NullBool
	previousVersions              sql.NullInt64
	canonicalID                   sql.NullString
}

// dests returns scan destinations in propertyColumns order, with the backend
// specific targets for amenities and dates.
func (r *propertyRow) dests(amenities, snapshot, lastUpdated any) []any {
	return []any{
		&r.id, &r.url, &r.title, &r.description,
		&r.price, &r.currency, &r.currencyGuess,
		&r.bedrooms, &r.bathrooms, &r.garages,
		&r.lotArea, &r.builtArea, &r.totalArea,
		&r.zone, &r.propertyType, amenities,
		&r.latitude, &r.longitude,
		&r.provider, &r.sourceFile, snapshot,
		&r.method, &r.regexFields, &r.llmProvider, &r.llmFallback,
		&r.previousVersions, lastUpdated, &r.canonicalID,
	}
}

func (r *propertyRow) property(amenities []string, snapshot time.Time, lastUpdated *time.Time) *models.Property {
	if amenities == nil {
		amenities = []string{}
	}
	p := &models.Property{
		ID:               r.id,
		URL:              r.url.String,
		Title:            r.title.String,
		Description:      r.description.String,
		Latitude:         floatPtr(r.latitude),
		Longitude:        floatPtr(r.longitude),
		Provider:         r.provider.String,
		SourceFile:       r.sourceFile.String,
		SnapshotDate:     snapshot,
		PreviousVersions: int(r.previousVersions.Int64),
		LastUpdated:      lastUpdated,
		CanonicalID:      r.canonicalID.String,
	}
	p.ExtractedFields = models.ExtractedFields{
		Price:            floatPtr(r.price),
		Currency:         models.Currency(r.currency.String),
		CurrencyGuess:    r.currencyGuess.Bool,
		Bedrooms:         intPtr(r.bedrooms),
		Bathrooms:        floatPtr(r.bathrooms),
		Garages:          intPtr(r.garages),
		LotArea:          floatPtr(r.lotArea),
		BuiltArea:        floatPtr(r.builtArea),
		TotalArea:        floatPtr(r.totalArea),
		Zone:             r.zone.String,
		PropertyType:     r.propertyType.String,
		Amenities:        amenities,
		Method:           models.ExtractionMethod(r.method.String),
		RegexFieldsFound: int(r.regexFields.Int64),
		LLMProvider:      r.llmProvider.String,
		LLMFallback:      r.llmFallback.Bool,
	}
	return p
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
