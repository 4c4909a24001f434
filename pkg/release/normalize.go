package release

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// yearSuffixRe matches a trailing year such as "(2019)" or " 2019".
var yearSuffixRe = regexp.MustCompile(`\s*\(?(?:19|20)\d{2}\)?$`)

var leadingArticles = []string{"the ", "a ", "an "}

// CleanTitle reduces a series title to a comparable key.
// It lower-cases, strips accents, drops leading articles and punctuation,
// and collapses whitespace, so "The Office (US)" and "office us" compare equal.
func CleanTitle(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = stripAccents(s)

	s = strings.NewReplacer("&", " and ", "-", " ", "'", "", ".", " ", "_", " ").Replace(s)

	parts := strings.Split(s, ":")
	for i, part := range parts {
		parts[i] = trimArticle(strings.TrimSpace(part))
	}
	s = strings.Join(parts, " ")

	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// SortTitle returns the title used for alphabetical ordering:
// lower-cased with a leading article removed.
func SortTitle(title string) string {
	return trimArticle(strings.ToLower(strings.TrimSpace(title)))
}

// StripYear removes a trailing release year from a series title.
func StripYear(title string) string {
	stripped := yearSuffixRe.ReplaceAllString(title, "")
	if stripped == "" {
		return title
	}
	return stripped
}

func stripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func trimArticle(s string) string {
	for _, art := range leadingArticles {
		if strings.HasPrefix(s, art) {
			return strings.TrimPrefix(s, art)
		}
	}
	return s
}
