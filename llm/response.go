package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"scz-inmuebles/extractor"
	"scz-inmuebles/models"
	"scz-inmuebles/utils"
)

// ErrNoJSON is returned when a response holds no JSON object.
var ErrNoJSON = errors.New("llm: no JSON object in response")

var (
	fenceRegexp  = regexp.MustCompile("(?m)^\\s*```[a-zA-Z]*\\s*$")
	numberRegexp = regexp.MustCompile(`\d[\d.,]*`)
)

// flexNumber accepts a JSON number, a numeric string ("180.000 USD") or null.
type flexNumber struct {
	v *float64
}

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		n.v = &f
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// booleans, arrays and objects are treated as no answer
		return nil
	}
	tok := numberRegexp.FindString(s)
	if tok == "" {
		return nil
	}
	if v, ok := extractor.ParseMeasure(tok); ok {
		n.v = &v
	}
	return nil
}

// flexString accepts a JSON string, a scalar rendered as text, or null.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = flexString(strings.TrimSpace(str))
		return nil
	}
	*s = flexString(strings.Trim(string(data), `"`))
	return nil
}

type answer struct {
	Price        flexNumber `json:"precio"`
	Currency     flexString `json:"moneda"`
	Rooms        flexNumber `json:"habitaciones"`
	Baths        flexNumber `json:"banos"`
	Zone         flexString `json:"zona"`
	Area         flexNumber `json:"superficie"`
	PropertyType flexString `json:"tipo_propiedad"`
	Amenities    []string   `json:"caracteristicas"`
}

// ResponseParser turns raw model output into validated fields.
type ResponseParser struct {
	zones  *extractor.ZoneCatalog
	logger *utils.Logger
}

// NewResponseParser creates a parser. Nil arguments select the default zone
// catalog and a silent logger.
func NewResponseParser(zones *extractor.ZoneCatalog, logger *utils.Logger) *ResponseParser {
	if zones == nil {
		zones = extractor.NewZoneCatalog(extractor.DefaultZones)
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &ResponseParser{zones: zones, logger: logger}
}

// ParseResponse parses raw with a default ResponseParser.
func ParseResponse(raw string) (models.ExtractedFields, error) {
	return NewResponseParser(nil, nil).Parse(raw)
}

// Parse strips markdown fences, decodes the outermost JSON object and checks
// every value against the plausibility ranges. Out-of-range values are
// dropped, not reported as errors. The surface lands in TotalArea.
func (p *ResponseParser) Parse(raw string) (models.ExtractedFields, error) {
	var f models.ExtractedFields

	body := fenceRegexp.ReplaceAllString(raw, "")
	start := strings.Index(body, "{")
	end := strings.LastIndex(body, "}")
	if start == -1 || end <= start {
		return f, ErrNoJSON
	}

	var a answer
	if err := json.Unmarshal([]byte(body[start:end+1]), &a); err != nil {
		return f, fmt.Errorf("llm: parse response: %w", err)
	}

	if a.Price.v != nil {
		cur, guessed := parseCurrency(string(a.Currency), *a.Price.v)
		if extractor.ValidPrice(*a.Price.v, cur) {
			f.Price = a.Price.v
			f.Currency = cur
			f.CurrencyGuess = guessed
		} else {
			p.logger.Warn("[llm] Dropping out-of-range precio %.2f %s", *a.Price.v, cur)
		}
	}

	if a.Rooms.v != nil {
		n := int(math.Round(*a.Rooms.v))
		if extractor.ValidRooms(n) {
			f.Bedrooms = &n
		} else {
			p.logger.Warn("[llm] Dropping out-of-range habitaciones %v", *a.Rooms.v)
		}
	}

	if a.Baths.v != nil {
		v := math.Round(*a.Baths.v*2) / 2
		if extractor.ValidBaths(v) {
			f.Bathrooms = &v
		} else {
			p.logger.Warn("[llm] Dropping out-of-range banos %v", *a.Baths.v)
		}
	}

	if a.Area.v != nil {
		if extractor.ValidArea(*a.Area.v) {
			f.TotalArea = a.Area.v
		} else {
			p.logger.Warn("[llm] Dropping out-of-range superficie %v", *a.Area.v)
		}
	}

	if z := string(a.Zone); z != "" && !isNullWord(z) {
		f.Zone = p.zones.Canonicalize(z)
	}
	if t := string(a.PropertyType); t != "" && !isNullWord(t) {
		f.PropertyType = extractor.NormalizePropertyType(t)
	}
	if len(a.Amenities) > 0 {
		f.Amenities = extractor.SplitAmenities(strings.Join(a.Amenities, ","))
	}

	return f, nil
}

// parseCurrency maps a currency answer to a code. Unknown answers fall back to
// the magnitude heuristic and are flagged as guessed.
func parseCurrency(raw string, amount float64) (models.Currency, bool) {
	switch extractor.NormalizeKey(raw) {
	case "usd", "us", "dolares", "dolar", "us dolares":
		return models.USD, false
	case "bob", "bs", "bolivianos", "boliviano":
		return models.BOB, false
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "$", "$us", "us$", "u$s":
		return models.USD, false
	}
	return extractor.InferCurrency(amount), true
}

func isNullWord(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "null", "none", "n/a", "desconocido", "no especificado", "-":
		return true
	}
	return false
}
