// Package names canonicalizes player display names into profile slugs and
// affiliation strings into comparison keys.
package names

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	// Generational suffixes as whole words, with or without a trailing period.
	suffixPattern = regexp.MustCompile(`(?i)\b(jr|sr|ii|iii|iv|v)\b\.?`)
	whitespace    = regexp.MustCompile(`\s+`)
	// Periods plus ASCII and typographic apostrophes.
	dropFromSlug = strings.NewReplacer(".", "", "'", "", "’", "", "‘", "")
)

// StripSuffixes removes generational suffixes (Jr., Sr., II-V) and tidies the
// remaining whitespace and dangling commas.
func StripSuffixes(name string) string {
	out := suffixPattern.ReplaceAllString(name, "")
	out = whitespace.ReplaceAllString(out, " ")
	return strings.Trim(out, " ,")
}

// Slug converts a display name to the URL slug used by profile pages.
// "John Smith Jr." -> "john-smith", "Ja'Marr Chase" -> "jamarr-chase".
// Degenerate input yields "".
func Slug(name string) string {
	s := foldASCII(StripSuffixes(name))
	s = strings.ToLower(s)
	s = dropFromSlug.Replace(s)
	s = strings.TrimSpace(s)
	return whitespace.ReplaceAllString(s, "-")
}

// AlphaKey keeps only letters, lower-cased, so "Texas A&M" and "texas a & m"
// compare equal.
func AlphaKey(s string) string {
	s = foldASCII(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r <= unicode.MaxASCII && unicode.IsLetter(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// SameAffiliation reports whether two affiliation strings match after
// alpha-key normalization. Empty keys never match.
func SameAffiliation(a, b string) bool {
	ka := AlphaKey(a)
	return ka != "" && ka == AlphaKey(b)
}

// foldASCII decomposes accented characters and drops what remains outside
// ASCII, so "José" becomes "Jose".
func foldASCII(s string) string {
	s = norm.NFKD.String(s)
	return strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII && r != '’' && r != '‘' {
			return -1
		}
		return r
	}, s)
}
