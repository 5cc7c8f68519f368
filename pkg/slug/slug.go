package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var slugRegexp = regexp.MustCompile(`[^a-z0-9]+`)

// Letters that do not decompose into base + combining mark under NFD.
var special = strings.NewReplacer(
	"ı", "i", "ß", "ss", "ø", "o", "æ", "ae", "œ", "oe", "ł", "l", "đ", "d",
)

// Generate creates a URL-friendly slug from a product or category name.
// Diacritics are stripped after canonical decomposition.
//
// Examples:
//   - "Kadın Giyim" → "kadin-giyim"
//   - "Crème Brûlée Mug" → "creme-brulee-mug"
//   - "Hello   World!" → "hello-world"
func Generate(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = special.Replace(s)

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if out, _, err := transform.String(t, s); err == nil {
		s = out
	}

	s = slugRegexp.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
