package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var accentStripper = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// StripAccents removes combining marks so accented letters compare equal to
// their base form ("José" -> "Jose").
func StripAccents(value string) string {
	out, _, err := transform.String(accentStripper, value)
	if err != nil {
		return value
	}
	return out
}

// SanitizeToken normalizes a value into a filesystem-safe token: accents are
// stripped, letters lowercased, and runs of spaces, hyphens, and underscores
// collapse into the separator. Digits are kept only when allowDigits is set;
// every other character is dropped. Returns "na" when nothing survives.
func SanitizeToken(value, separator string, allowDigits bool) string {
	value = strings.ToLower(StripAccents(value))
	var b strings.Builder
	pendingSep := false
	for _, r := range value {
		switch {
		case unicode.IsLetter(r) && r <= unicode.MaxASCII:
			if pendingSep && b.Len() > 0 {
				b.WriteString(separator)
			}
			pendingSep = false
			b.WriteRune(r)
		case allowDigits && r >= '0' && r <= '9':
			if pendingSep && b.Len() > 0 {
				b.WriteString(separator)
			}
			pendingSep = false
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			pendingSep = true
		}
	}
	out := b.String()
	if out == "" {
		return "na"
	}
	return out
}

// NormalizeName reduces a free-text patient name to its canonical comparison
// form: accent-free lowercase letter tokens joined by single spaces.
func NormalizeName(value string) string {
	return SanitizeToken(value, " ", false)
}

// Slugify derives a patient directory slug from a display name. Idempotent on
// strings that are already slugs.
func Slugify(value string) string {
	return SanitizeToken(value, "_", true)
}
