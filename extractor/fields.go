package extractor

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"scz-inmuebles/models"
	"scz-inmuebles/utils"
)

const (
	numberWord = `(un|una|uno|dos|tres|cuatro|cinco|seis|siete|ocho|nueve|diez)`
	areaUnit   = `(?:metros\s+cuadrados|metros2|metros|mts2|mts|mt2|m2)\b`
	areaNumber = `(\d[\d.,]*)`

	roomWords    = `(?:dormitorios?|habitaciones?|recamaras?|dorms?|habs?|cuartos?)`
	bathWords    = `(?:banos?|sanitarios?|wc)`
	garageWords  = `(?:garajes?|parqueos?|cocheras?|estacionamientos?)`
	lotWords     = `(?:terreno|lote)`
	builtWords   = `(?:construid[oa]s?|construccion|edificad[oa]s?)`
	separatorOpt = `\s*(?:de\s+)?:?\s*`
)

var numberWords = map[string]int{
	"un": 1, "una": 1, "uno": 1, "dos": 2, "tres": 3, "cuatro": 4, "cinco": 5,
	"seis": 6, "siete": 7, "ocho": 8, "nueve": 9, "diez": 10,
}

var (
	// Patterns are tried in order; the first one yielding an in-range value wins.
	roomPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(\d{1,3})\s*` + roomWords + `\b`),
		regexp.MustCompile(`\b` + roomWords + `\s*:\s*(\d{1,3})\b`),
		regexp.MustCompile(`\b(\d{1,3})\s*ambientes?\b`),
		regexp.MustCompile(`\b` + numberWord + `\s+(?:` + roomWords + `|ambientes?)\b`),
	}
	// service rooms are an amenity, not a bedroom
	serviceRoomRegexp = regexp.MustCompile(`\b(?:(?:\d{1,3}|un|una|uno|dos|tres)\s+)?cuartos?\s+de\s+servicio\b`)

	bathPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(\d{1,3}(?:[.,]5)?)\s*` + bathWords + `\b`),
		regexp.MustCompile(`\b` + bathWords + `\s*:\s*(\d{1,3}(?:[.,]5)?)\b`),
		regexp.MustCompile(`\b` + numberWord + `\s+` + bathWords + `\b`),
	}
	garagePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(\d{1,3})\s*` + garageWords + `\b`),
		regexp.MustCompile(`\b` + garageWords + `\s*:\s*(\d{1,3})\b`),
		regexp.MustCompile(`\b(?:garaje|parqueo|cochera)\s+para\s+(\d{1,3})\s+(?:autos?|vehiculos?|coches?|movilidades)\b`),
		regexp.MustCompile(`\b` + numberWord + `\s+` + garageWords + `\b`),
	}
	lotAreaPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b` + lotWords + separatorOpt + areaNumber + `\s*` + areaUnit),
		regexp.MustCompile(areaNumber + `\s*` + areaUnit + `\s*(?:de\s+)?` + lotWords + `\b`),
	}
	builtAreaPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b` + builtWords + separatorOpt + areaNumber + `\s*` + areaUnit),
		regexp.MustCompile(areaNumber + `\s*` + areaUnit + `\s*(?:de\s+)?` + builtWords + `\b`),
	}
	totalAreaPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\bsuperficie(?:\s+total)?` + separatorOpt + areaNumber + `\s*(?:` + areaUnit + `)?`),
		regexp.MustCompile(areaNumber + `\s*` + areaUnit),
	}
)

// amenityCatalog maps a canonical characteristic to its normalised aliases.
var amenityCatalog = map[string][]string{
	"piscina":                 {"piscina", "pileta", "alberca"},
	"churrasquera":            {"churrasquera", "parrillero", "parrilla"},
	"gimnasio":                {"gimnasio", "gym"},
	"seguridad 24h":           {"seguridad 24", "seguridad las 24", "vigilancia", "guardia de seguridad"},
	"condominio cerrado":      {"condominio cerrado", "condominio privado"},
	"ascensor":                {"ascensor", "elevador"},
	"jardin":                  {"jardin", "patio"},
	"terraza":                 {"terraza"},
	"balcon":                  {"balcon"},
	"amoblado":                {"amoblado", "amueblado", "amoblada", "amueblada"},
	"aire acondicionado":      {"aire acondicionado", "climatizado", "a/a"},
	"lavanderia":              {"lavanderia"},
	"quincho":                 {"quincho"},
	"area social":             {"area social", "salon de eventos", "salon social"},
	"sauna":                   {"sauna"},
	"dependencia de servicio": {"dependencia de servicio", "cuarto de servicio", "dependencias de servicio"},
	"cocina equipada":         {"cocina equipada", "cocina americana"},
	"walk-in closet":          {"walk in closet", "walk-in closet", "vestidor"},
	"parque infantil":         {"parque infantil", "area de juegos", "juegos infantiles"},
}

type amenityPattern struct {
	name string
	re   *regexp.Regexp
}

var amenityPatterns = compileAmenities()

func compileAmenities() []amenityPattern {
	names := make([]string, 0, len(amenityCatalog))
	for name := range amenityCatalog {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []amenityPattern
	for _, name := range names {
		quoted := make([]string, 0, len(amenityCatalog[name]))
		for _, alias := range amenityCatalog[name] {
			quoted = append(quoted, regexp.QuoteMeta(alias))
		}
		out = append(out, amenityPattern{
			name: name,
			re:   regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)`),
		})
	}
	return out
}

// FieldExtractor is the regex layer: it pulls structured fields out of free text.
type FieldExtractor struct {
	logger *utils.Logger
	zones  *ZoneCatalog
}

// NewFieldExtractor creates a FieldExtractor. A nil zone catalog selects DefaultZones.
func NewFieldExtractor(logger *utils.Logger, zones *ZoneCatalog) *FieldExtractor {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	if zones == nil {
		zones = defaultCatalog
	}
	return &FieldExtractor{logger: logger, zones: zones}
}

// Zones returns the catalog used to resolve zone names.
func (e *FieldExtractor) Zones() *ZoneCatalog { return e.zones }

// ExtractAll runs every field pattern over the description and falls back to
// the title for fields the description does not yield. RegexFieldsFound holds
// the number of fields that were filled.
func (e *FieldExtractor) ExtractAll(description, title string) models.ExtractedFields {
	var f models.ExtractedFields
	texts := []string{Normalize(description), Normalize(title)}

	for _, t := range texts {
		if f.Price != nil || t == "" {
			continue
		}
		if p, ok := ExtractPrice(t); ok {
			amount := p.Amount
			f.Price = &amount
			f.Currency = p.Currency
			f.CurrencyGuess = p.Inferred
		}
	}

	for _, t := range texts {
		if t == "" {
			continue
		}
		if f.Bedrooms == nil {
			f.Bedrooms = e.matchInt(serviceRoomRegexp.ReplaceAllString(t, " "), "habitaciones", roomPatterns, ValidRooms)
		}
		if f.Bathrooms == nil {
			f.Bathrooms = e.matchFloat(t, "banos", bathPatterns, ValidBaths)
		}
		if f.Garages == nil {
			f.Garages = e.matchInt(t, "garajes", garagePatterns, ValidGarages)
		}
		if !f.HasArea() {
			f.LotArea = e.matchFloat(t, "superficie_terreno", lotAreaPatterns, ValidArea)
			f.BuiltArea = e.matchFloat(t, "superficie_construida", builtAreaPatterns, ValidArea)
			if !f.HasArea() {
				f.TotalArea = e.matchFloat(t, "superficie_total", totalAreaPatterns, ValidArea)
			}
		}
		if f.Zone == "" {
			f.Zone = e.zones.Main(t)
		}
	}

	f.Amenities = Amenities(description + " " + title)
	f.RegexFieldsFound = f.CountFound()
	return f
}

func (e *FieldExtractor) matchInt(text, field string, patterns []*regexp.Regexp, valid func(int) bool) *int {
	for _, re := range patterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			n, ok := numberWords[m[1]]
			if !ok {
				v, err := strconv.Atoi(m[1])
				if err != nil {
					continue
				}
				n = v
			}
			if !valid(n) {
				e.logger.Warn("[extractor] %s out of range: %d in %q", field, n, m[0])
				continue
			}
			return &n
		}
	}
	return nil
}

func (e *FieldExtractor) matchFloat(text, field string, patterns []*regexp.Regexp, valid func(float64) bool) *float64 {
	for _, re := range patterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			var v float64
			if n, ok := numberWords[m[1]]; ok {
				v = float64(n)
			} else {
				parsed, ok := ParseMeasure(m[1])
				if !ok {
					continue
				}
				v = parsed
			}
			if !valid(v) {
				e.logger.Warn("[extractor] %s out of range: %g in %q", field, v, m[0])
				continue
			}
			return &v
		}
	}
	return nil
}

// Amenities returns the sorted set of catalog characteristics mentioned in text.
func Amenities(text string) []string {
	norm := Normalize(text)
	out := []string{}
	if norm == "" {
		return out
	}
	for _, a := range amenityPatterns {
		if a.re.MatchString(norm) {
			out = append(out, a.name)
		}
	}
	return out
}

// SplitAmenities parses an amenities column ("Piscina, Gym; Terraza") into a
// sorted set. Catalog aliases are mapped to their canonical name; unknown items
// are kept in normalised form.
func SplitAmenities(text string) []string {
	set := make(map[string]struct{})
	for _, item := range strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ';' || r == '|' || r == '\n' || r == '•'
	}) {
		norm := Normalize(item)
		if norm == "" {
			continue
		}
		if known := Amenities(norm); len(known) > 0 {
			for _, k := range known {
				set[k] = struct{}{}
			}
			continue
		}
		set[norm] = struct{}{}
	}
	return sortedSet(set)
}

// UnionAmenities merges amenity lists into one sorted set.
func UnionAmenities(lists ...[]string) []string {
	set := make(map[string]struct{})
	for _, l := range lists {
		for _, a := range l {
			if a = strings.TrimSpace(a); a != "" {
				set[a] = struct{}{}
			}
		}
	}
	return sortedSet(set)
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

var propertyTypes = []struct {
	name    string
	aliases []string
}{
	{"departamento", []string{"departamento", "depto", "dpto", "apartamento", "monoambiente"}},
	{"penthouse", []string{"penthouse", "pent house"}},
	{"duplex", []string{"duplex"}},
	{"casa", []string{"casa", "chalet", "vivienda"}},
	{"terreno", []string{"terreno", "lote"}},
	{"oficina", []string{"oficina"}},
	{"local comercial", []string{"local comercial", "local"}},
	{"galpon", []string{"galpon", "deposito", "almacen"}},
	{"quinta", []string{"quinta", "propiedad rural", "finca"}},
	{"edificio", []string{"edificio"}},
}

// NormalizePropertyType maps a property type column value onto the canonical
// type names. Unknown values are returned normalised.
func NormalizePropertyType(raw string) string {
	norm := NormalizeKey(raw)
	if norm == "" {
		return ""
	}
	for _, pt := range propertyTypes {
		for _, alias := range pt.aliases {
			if norm == alias || strings.HasPrefix(norm, alias+" ") {
				return pt.name
			}
		}
	}
	return norm
}
