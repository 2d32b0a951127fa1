package textutil

import (
	"regexp"
	"strings"
	"time"
)

const (
	descriptionMaxTerms  = 4
	descriptionMaxLength = 60
	fallbackDescription  = "documento"
)

var wordPattern = regexp.MustCompile(`[A-Za-zÀ-ÖØ-öø-ÿ]+`)

var datePatterns = []*regexp.Regexp{
	// ISO-style year first.
	regexp.MustCompile(`(20\d{2})[-/](0[1-9]|1[0-2])[-/](0[1-9]|[12]\d|3[01])`),
	// Brazilian day first.
	regexp.MustCompile(`(0[1-9]|[12]\d|3[01])[-/](0[1-9]|1[0-2])[-/](20\d{2})`),
}

// ShortDescription derives a compact description token from document text:
// the first few words, sanitized and joined by hyphens, capped at 60
// characters. Returns "documento" when the text yields nothing usable.
func ShortDescription(text string) string {
	words := wordPattern.FindAllString(text, descriptionMaxTerms)
	parts := make([]string, 0, len(words))
	for _, word := range words {
		token := SanitizeToken(word, "_", false)
		if token != "na" {
			parts = append(parts, token)
		}
	}
	if len(parts) == 0 {
		return fallbackDescription
	}
	description := strings.Join(parts, "-")
	if len(description) > descriptionMaxLength {
		description = description[:descriptionMaxLength]
	}
	if description == "" {
		return fallbackDescription
	}
	return description
}

// FirstDateFromText scans text for the first recognizable document date,
// accepting YYYY-MM-DD and DD-MM-YYYY forms with "-" or "/" separators.
func FirstDateFromText(text string) (time.Time, bool) {
	for i, pattern := range datePatterns {
		match := pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		var value string
		if i == 0 {
			value = match[1] + "-" + match[2] + "-" + match[3]
		} else {
			value = match[3] + "-" + match[2] + "-" + match[1]
		}
		parsed, err := time.Parse("2006-01-02", value)
		if err != nil {
			continue
		}
		return parsed, true
	}
	return time.Time{}, false
}
