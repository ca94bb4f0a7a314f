package ingest

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/xrash/smetrics"

	"scz-inmuebles/extractor"
	"scz-inmuebles/utils"
)

// Canonical column names.
const (
	ColID          = "id"
	ColTitle       = "titulo"
	ColDescription = "descripcion"
	ColPrice       = "precio"
	ColAmenities   = "caracteristicas"
	ColType        = "tipo_propiedad"
	ColZone        = "zona"
	ColURL         = "url"
	ColLatitude    = "latitud"
	ColLongitude   = "longitud"
	ColRooms       = "habitaciones"
	ColBaths       = "banos"
)

// DefaultAliases maps canonical columns to the header spellings seen in
// provider exports. Aliases are compared after normalisation.
var DefaultAliases = map[string][]string{
	ColID:          {"id", "codigo", "codigo propiedad", "id propiedad", "listing id", "ref", "referencia"},
	ColTitle:       {"titulo", "title", "nombre", "titulo anuncio", "encabezado"},
	ColDescription: {"descripcion", "description", "detalle", "detalles", "descripcion completa", "texto"},
	ColPrice:       {"precio", "price", "valor", "precio venta", "precio usd", "precio bs", "monto"},
	ColAmenities:   {"caracteristicas", "amenities", "comodidades", "servicios", "equipamiento"},
	ColType:        {"tipo", "tipo propiedad", "tipo inmueble", "property type", "categoria"},
	ColZone:        {"zona", "barrio", "ubicacion", "sector", "localidad", "zone"},
	ColURL:         {"url", "link", "enlace", "url anuncio", "href"},
	ColLatitude:    {"latitud", "lat", "latitude", "coord lat"},
	ColLongitude:   {"longitud", "lon", "lng", "long", "longitude", "coord lon"},
	ColRooms:       {"habitaciones", "dormitorios", "cuartos", "recamaras", "rooms", "bedrooms"},
	ColBaths:       {"banos", "bano", "bathrooms", "baths", "servicios higienicos"},
}

// FuzzyThreshold is the minimum blended score for a fuzzy header match.
const FuzzyThreshold = 0.82

// ColumnMapper resolves spreadsheet headers to canonical columns: exact alias
// lookup first, then a JaroWinkler/Levenshtein blend for headers left over.
type ColumnMapper struct {
	aliases   map[string]string
	names     []string
	threshold float64
	logger    *utils.Logger
}

// NewColumnMapper builds a mapper over aliases; nil selects DefaultAliases.
func NewColumnMapper(aliases map[string][]string, logger *utils.Logger) *ColumnMapper {
	if aliases == nil {
		aliases = DefaultAliases
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	m := &ColumnMapper{aliases: make(map[string]string), threshold: FuzzyThreshold, logger: logger}
	for col, list := range aliases {
		for _, a := range append([]string{col}, list...) {
			m.aliases[NormalizeHeader(a)] = col
		}
	}
	for a := range m.aliases {
		m.names = append(m.names, a)
	}
	sort.Strings(m.names)
	return m
}

// NormalizeHeader folds case and accents and turns punctuation into spaces.
func NormalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return extractor.NormalizeKey(strings.ReplaceAll(h, "_", " "))
}

// Map returns the column index of every canonical column found in headers.
// The first header mapping to a column wins.
func (m *ColumnMapper) Map(headers []string) map[string]int {
	out := make(map[string]int)
	pending := make([]int, 0, len(headers))

	for i, h := range headers {
		col, ok := m.aliases[NormalizeHeader(h)]
		if !ok {
			pending = append(pending, i)
			continue
		}
		if _, taken := out[col]; !taken {
			out[col] = i
		}
	}

	for _, i := range pending {
		norm := NormalizeHeader(headers[i])
		if norm == "" {
			continue
		}
		col, score := m.fuzzy(norm)
		if col == "" {
			m.logger.Debug("[ingest] Unmapped column %q", headers[i])
			continue
		}
		if _, taken := out[col]; taken {
			continue
		}
		m.logger.Debug("[ingest] Column %q mapped to %s (score %.2f)", headers[i], col, score)
		out[col] = i
	}
	return out
}

func (m *ColumnMapper) fuzzy(norm string) (string, float64) {
	best, bestScore := "", 0.0
	for _, alias := range m.names {
		if s := HeaderSimilarity(norm, alias); s > bestScore {
			best, bestScore = alias, s
		}
	}
	if bestScore < m.threshold {
		return "", bestScore
	}
	return m.aliases[best], bestScore
}

// HeaderSimilarity blends JaroWinkler (0.7) with the Levenshtein ratio (0.3).
func HeaderSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	jw := smetrics.JaroWinkler(a, b, 0.7, 4)
	den := len(a)
	if len(b) > den {
		den = len(b)
	}
	lev := 1 - float64(levenshtein.ComputeDistance(a, b))/float64(den)
	return 0.7*jw + 0.3*lev
}
