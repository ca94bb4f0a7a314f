package extractor

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ZoneDef declares one canonical zone and the text variants that refer to it.
// Generic zones are directional districts that lose against any specific name.
type ZoneDef struct {
	Name    string
	Aliases []string
	Generic bool
}

// DefaultZones is the Santa Cruz de la Sierra neighbourhood catalog.
var DefaultZones = []ZoneDef{
	{Name: "Equipetrol", Aliases: []string{"equipetrol", "equipe trol", "equipetrol sur"}},
	{Name: "Equipetrol Norte", Aliases: []string{"equipetrol norte", "eq. norte", "equipetrol nte"}},
	{Name: "Urubó", Aliases: []string{"urubo", "zona urubo", "colinas del urubo"}},
	{Name: "Urbarí", Aliases: []string{"urbari", "barrio urbari"}},
	{Name: "Las Palmas", Aliases: []string{"las palmas", "barrio las palmas"}},
	{Name: "Sirari", Aliases: []string{"sirari", "barrio sirari"}},
	{Name: "Las Hamacas", Aliases: []string{"hamacas", "las hamacas"}},
	{Name: "Centro", Aliases: []string{"casco viejo", "zona centro", "centro historico", "plaza 24 de septiembre"}},
	{Name: "Plan 3000", Aliases: []string{"plan 3000", "plan tres mil", "plan 3 mil"}},
	{Name: "Villa 1ro de Mayo", Aliases: []string{"villa 1ro de mayo", "villa primero de mayo", "villa 1 de mayo"}},
	{Name: "Pampa de la Isla", Aliases: []string{"pampa de la isla"}},
	{Name: "El Trompillo", Aliases: []string{"el trompillo", "trompillo"}},
	{Name: "Los Lotes", Aliases: []string{"los lotes"}},
	{Name: "Remanso", Aliases: []string{"remanso", "el remanso"}},
	{Name: "Cotoca", Aliases: []string{"cotoca"}},
	{Name: "Warnes", Aliases: []string{"warnes"}},
	{Name: "Porongo", Aliases: []string{"porongo"}},
	{Name: "La Guardia", Aliases: []string{"la guardia"}},
	{Name: "Zona Norte", Aliases: []string{"zona norte", "norte de la ciudad"}, Generic: true},
	{Name: "Zona Sur", Aliases: []string{"zona sur", "sur de la ciudad"}, Generic: true},
	{Name: "Zona Este", Aliases: []string{"zona este", "este de la ciudad"}, Generic: true},
	{Name: "Zona Oeste", Aliases: []string{"zona oeste", "oeste de la ciudad"}, Generic: true},
}

type zoneAlias struct {
	name    string
	generic bool
	re      *regexp.Regexp
}

// ZoneCatalog resolves free text to canonical zone names.
type ZoneCatalog struct {
	aliases []zoneAlias
}

// NewZoneCatalog compiles the alias patterns of defs. Aliases are matched on
// normalised text at word boundaries. The zone name itself is matched only
// when a definition lists no aliases, so a catalog can leave out an ambiguous
// bare name such as "centro".
func NewZoneCatalog(defs []ZoneDef) *ZoneCatalog {
	c := &ZoneCatalog{}
	for _, d := range defs {
		variants := d.Aliases
		if len(variants) == 0 {
			variants = []string{d.Name}
		}
		seen := make(map[string]struct{}, len(variants))
		for _, v := range variants {
			norm := Normalize(v)
			if norm == "" {
				continue
			}
			if _, ok := seen[norm]; ok {
				continue
			}
			seen[norm] = struct{}{}
			c.aliases = append(c.aliases, zoneAlias{
				name:    d.Name,
				generic: d.Generic,
				re:      regexp.MustCompile(`\b` + regexp.QuoteMeta(norm) + `\b`),
			})
		}
	}
	return c
}

var defaultCatalog = NewZoneCatalog(DefaultZones)

type zoneMatch struct {
	name    string
	generic bool
	pos     int
	length  int
}

// better orders candidates: specific over generic, then earliest position,
// then the longest alias at that position.
func (m zoneMatch) better(o zoneMatch) bool {
	if m.generic != o.generic {
		return !m.generic
	}
	if m.pos != o.pos {
		return m.pos < o.pos
	}
	return m.length > o.length
}

func (c *ZoneCatalog) matches(norm string) []zoneMatch {
	var out []zoneMatch
	for _, a := range c.aliases {
		for _, loc := range a.re.FindAllStringIndex(norm, -1) {
			out = append(out, zoneMatch{name: a.name, generic: a.generic, pos: loc[0], length: loc[1] - loc[0]})
		}
	}
	return out
}

// Main returns the principal zone mentioned in text, or "" when none is.
func (c *ZoneCatalog) Main(text string) string {
	norm := Normalize(text)
	if norm == "" {
		return ""
	}
	var best zoneMatch
	found := false
	for _, m := range c.matches(norm) {
		if !found || m.better(best) {
			best, found = m, true
		}
	}
	return best.name
}

// All returns every zone mentioned in text in order of first appearance. A
// longer alias hides shorter aliases starting at the same position.
func (c *ZoneCatalog) All(text string) []string {
	ms := c.matches(Normalize(text))
	sort.SliceStable(ms, func(i, j int) bool {
		if ms[i].pos != ms[j].pos {
			return ms[i].pos < ms[j].pos
		}
		return ms[i].length > ms[j].length
	})
	var out []string
	seen := make(map[string]struct{})
	lastPos := -1
	for _, m := range ms {
		if m.pos == lastPos {
			continue
		}
		lastPos = m.pos
		if _, ok := seen[m.name]; ok {
			continue
		}
		seen[m.name] = struct{}{}
		out = append(out, m.name)
	}
	return out
}

// Canonicalize maps a zone name from an untrusted source (a column or an LLM
// answer) onto the catalog. Unknown names are returned cleaned.
func (c *ZoneCatalog) Canonicalize(raw string) string {
	if z := c.Main(raw); z != "" {
		return z
	}
	return titleCase(CleanText(raw))
}

// MainZone resolves the principal zone of text against the default catalog.
func MainZone(text string) string { return defaultCatalog.Main(text) }

// References holds the auxiliary location context found in a description.
type References struct {
	Zones   []string `json:"zonas"`
	Rings   []string `json:"anillos"`
	Radials []string `json:"radiales"`
	Avenues []string `json:"avenidas"`
}

const ordinalSuffix = `(?:er|ero|do|ro|to|vo|mo|no|o)?`

var (
	ringRegexp        = regexp.MustCompile(`\b(\d{1,2})\s*` + ordinalSuffix + `\.?\s*anillos?\b`)
	ringBetweenRegexp = regexp.MustCompile(`\bentre\s+(?:el\s+)?(\d{1,2})\s*` + ordinalSuffix + `\s*(?:anillo\s+)?y\s+(?:el\s+)?(\d{1,2})\s*` + ordinalSuffix + `\s*anillos?\b`)
	ringWordRegexp    = regexp.MustCompile(`\b(primer|segundo|tercer|cuarto|quinto|sexto|septimo|octavo|noveno|decimo)\s+anillos?\b`)
	radialRegexp      = regexp.MustCompile(`\bradial\s*(\d{1,3})\b`)
	avenueRegexp      = regexp.MustCompile(`\b(?:avenida|av)\.?\s+([a-z0-9]+(?:\s+[a-z0-9]+){0,4})`)

	ringWords = map[string]int{
		"primer": 1, "segundo": 2, "tercer": 3, "cuarto": 4, "quinto": 5,
		"sexto": 6, "septimo": 7, "octavo": 8, "noveno": 9, "decimo": 10,
	}

	avenueStopWords = map[string]struct{}{
		"y": {}, "con": {}, "entre": {}, "esq": {}, "esquina": {}, "casi": {}, "cerca": {},
		"en": {}, "a": {}, "al": {}, "zona": {}, "anillo": {}, "frente": {}, "sobre": {},
	}
)

type positioned struct {
	pos   int
	value string
}

// LocationReferences extracts zones, ring roads, radials and avenues from text
// against the default catalog. Every list is deduplicated and keeps the order
// of first appearance.
func LocationReferences(text string) References {
	return defaultCatalog.References(text)
}

// References is LocationReferences against c.
func (c *ZoneCatalog) References(text string) References {
	norm := Normalize(text)
	refs := References{Zones: c.All(text)}
	if norm == "" {
		return refs
	}

	var rings []positioned
	for _, m := range ringBetweenRegexp.FindAllStringSubmatchIndex(norm, -1) {
		rings = append(rings,
			positioned{m[2], ringName(norm[m[2]:m[3]])},
			positioned{m[4], ringName(norm[m[4]:m[5]])})
	}
	for _, m := range ringRegexp.FindAllStringSubmatchIndex(norm, -1) {
		rings = append(rings, positioned{m[2], ringName(norm[m[2]:m[3]])})
	}
	for _, m := range ringWordRegexp.FindAllStringSubmatchIndex(norm, -1) {
		rings = append(rings, positioned{m[2], fmt.Sprintf("%dº Anillo", ringWords[norm[m[2]:m[3]]])})
	}
	refs.Rings = orderedUnique(rings)

	var radials []positioned
	for _, m := range radialRegexp.FindAllStringSubmatchIndex(norm, -1) {
		n, _ := strconv.Atoi(norm[m[2]:m[3]])
		radials = append(radials, positioned{m[2], fmt.Sprintf("Radial %d", n)})
	}
	refs.Radials = orderedUnique(radials)

	var avenues []positioned
	for _, m := range avenueRegexp.FindAllStringSubmatchIndex(norm, -1) {
		if name := avenueName(norm[m[2]:m[3]]); name != "" {
			avenues = append(avenues, positioned{m[2], "Av. " + name})
		}
	}
	refs.Avenues = orderedUnique(avenues)
	return refs
}

func ringName(digits string) string {
	n, _ := strconv.Atoi(digits)
	return fmt.Sprintf("%dº Anillo", n)
}

func avenueName(raw string) string {
	var words []string
	for _, w := range strings.Fields(raw) {
		if _, stop := avenueStopWords[w]; stop {
			break
		}
		words = append(words, w)
	}
	for len(words) > 0 && (words[len(words)-1] == "de" || words[len(words)-1] == "del") {
		words = words[:len(words)-1]
	}
	return titleCase(strings.Join(words, " "))
}

func orderedUnique(items []positioned) []string {
	sort.SliceStable(items, func(i, j int) bool { return items[i].pos < items[j].pos })
	var out []string
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if _, ok := seen[it.value]; ok {
			continue
		}
		seen[it.value] = struct{}{}
		out = append(out, it.value)
	}
	return out
}
