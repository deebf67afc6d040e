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

// stripAccents removes diacritical marks so accented letters collapse to
// their ASCII base form ("Å" -> "a", "é" -> "e").
var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Generate creates a URL-friendly slug from the given name. Accented
// characters are folded to ASCII; anything else non-alphanumeric becomes a
// hyphen.
//
// Examples:
//   - "Match Highlights!" → "match-highlights"
//   - "Séance d'entraînement" → "seance-d-entrainement"
func Generate(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))

	if folded, _, err := transform.String(stripAccents, slug); err == nil {
		slug = folded
	}

	slug = slugRegexp.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")

	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}

	return slug
}
