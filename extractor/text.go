package extractor

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/mozillazg/go-unidecode"
)

var (
	spacesRegexp = regexp.MustCompile(`\s+`)
	punctRegexp  = regexp.MustCompile(`[^a-z0-9\s]`)

	ordinalMarks = strings.NewReplacer("º", "", "°", "", "ª", "", "²", "2")
)

// Normalize lowercases text and folds accents so patterns can be written in
// plain ASCII. Whitespace is collapsed.
func Normalize(s string) string {
	s = ordinalMarks.Replace(s)
	s = strings.ToLower(unidecode.Unidecode(s))
	return strings.TrimSpace(spacesRegexp.ReplaceAllString(s, " "))
}

// NormalizeKey is Normalize plus punctuation stripping. It is used for
// comparisons such as title similarity and identity keys.
func NormalizeKey(s string) string {
	s = punctRegexp.ReplaceAllString(Normalize(s), " ")
	return strings.TrimSpace(spacesRegexp.ReplaceAllString(s, " "))
}

// CleanText trims and collapses internal whitespace without changing case.
func CleanText(s string) string {
	fields := strings.FieldsFunc(s, unicode.IsSpace)
	return strings.Join(fields, " ")
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
