package extractor

import (
	"regexp"
	"strconv"
	"strings"

	"scz-inmuebles/models"
)

// Price is a parsed (amount, currency) pair. Inferred is set when the text had
// no currency marker and the currency was guessed from the magnitude.
type Price struct {
	Amount   float64
	Currency models.Currency
	Inferred bool
}

// String renders the pair in a form ExtractPrice parses back to the same pair.
func (p Price) String() string {
	amount := strconv.FormatFloat(p.Amount, 'f', 2, 64)
	if p.Currency == models.BOB {
		return "Bs " + amount
	}
	return "$us " + amount
}

const amountPattern = `(\d[\d.,]*)`

type pricePattern struct {
	re       *regexp.Regexp
	currency models.Currency
}

var (
	pricePatterns = []pricePattern{
		{regexp.MustCompile(`(?:\$\s?us|us\s?\$|u\$s|u\$d|\busd|\$)\s*` + amountPattern), models.USD},
		{regexp.MustCompile(amountPattern + `\s*(?:\$\s?us|us\s?\$|u\$s|usd\b|dolares\b|dolar\b)`), models.USD},
		{regexp.MustCompile(`\b(?:bs|bob|bolivianos)\.?\s*` + amountPattern), models.BOB},
		{regexp.MustCompile(amountPattern + `\s*(?:bs|bob|bolivianos)\b`), models.BOB},
	}

	// keywordPriceRegexp captures "precio: 150000" style amounts without marker.
	keywordPriceRegexp = regexp.MustCompile(`\b(?:precio|valor|costo)\b[^\d$]{0,15}?` + amountPattern)
	barePriceRegexp    = regexp.MustCompile(`^` + amountPattern + `$`)
)

// ExtractPrice finds the first plausible price in text. Amounts outside the
// plausibility ranges are skipped as if absent.
func ExtractPrice(text string) (Price, bool) {
	norm := Normalize(text)
	if norm == "" {
		return Price{}, false
	}

	for _, p := range pricePatterns {
		for _, m := range p.re.FindAllStringSubmatch(norm, -1) {
			amount, ok := parseAmount(m[1])
			if ok && ValidPrice(amount, p.currency) {
				return Price{Amount: amount, Currency: p.currency}, true
			}
		}
	}

	for _, re := range []*regexp.Regexp{keywordPriceRegexp, barePriceRegexp} {
		for _, m := range re.FindAllStringSubmatch(norm, -1) {
			amount, ok := parseAmount(m[1])
			if !ok {
				continue
			}
			cur := InferCurrency(amount)
			if ValidPrice(amount, cur) {
				return Price{Amount: amount, Currency: cur, Inferred: true}, true
			}
		}
	}
	return Price{}, false
}

// parseAmount converts a price token to a number. A trailing group of exactly
// two digits after the last separator is the decimal part; every other
// separator is a thousands separator ("1.234" is 1234).
func parseAmount(tok string) (float64, bool) {
	tok = strings.Trim(tok, ".,")
	if tok == "" {
		return 0, false
	}
	digits := tok
	if i := strings.LastIndexAny(tok, ".,"); i >= 0 {
		frac := tok[i+1:]
		if len(frac) == 2 {
			digits = stripSeparators(tok[:i]) + "." + frac
		} else {
			digits = stripSeparators(tok)
		}
	}
	v, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseMeasure converts a surface or count token. Unlike prices, a single
// separator followed by one or two digits is decimal, and a three digit
// trailing group is a thousands group ("1.200" is 1200, "85,5" is 85.5).
func ParseMeasure(tok string) (float64, bool) {
	tok = strings.Trim(tok, ".,")
	if tok == "" {
		return 0, false
	}
	digits := tok
	if i := strings.LastIndexAny(tok, ".,"); i >= 0 {
		frac := tok[i+1:]
		if len(frac) == 3 {
			digits = stripSeparators(tok)
		} else {
			digits = stripSeparators(tok[:i]) + "." + frac
		}
	}
	v, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func stripSeparators(s string) string {
	return strings.NewReplacer(".", "", ",", "").Replace(s)
}
