package placement

import (
	"strings"
	"time"

	"clinikondo/internal/textutil"
)

const (
	maxNameLength        = 150
	maxDescriptionLength = 60
	fallbackSegment      = "documento"
	defaultSpecialty     = "geral"
)

// NameParts carries the metadata segments that compose a canonical filename.
type NameParts struct {
	Date        time.Time
	PatientName string
	PatientSlug string
	TypeLabel   string
	Specialty   string
	Description string
	Extension   string
}

// BuildFinalName assembles the canonical filename: a YYYY-MM prefix, the
// slugified patient name, sanitized type, specialty, and description tokens
// joined by hyphens, plus the lower-cased original extension. When the result
// exceeds the length ceiling only the description segment is shortened,
// always by taking a prefix, so the output is deterministic.
func BuildFinalName(parts NameParts) string {
	datePrefix := parts.Date.Format("2006-01")

	patientSource := parts.PatientName
	if strings.TrimSpace(patientSource) == "" {
		patientSource = parts.PatientSlug
	}
	patientPart := textutil.Slugify(patientSource)

	typePart := sanitizeSegment(parts.TypeLabel)
	specialtyPart := parts.Specialty
	if strings.TrimSpace(specialtyPart) == "" {
		specialtyPart = defaultSpecialty
	}
	specialtyPart = sanitizeSegment(specialtyPart)

	description := sanitizeSegment(parts.Description)
	if len(description) > maxDescriptionLength {
		description = description[:maxDescriptionLength]
	}

	extension := strings.ToLower(parts.Extension)

	assemble := func(desc string) string {
		return strings.Join([]string{datePrefix, patientPart, typePart, specialtyPart, desc}, "-") + extension
	}

	fullName := assemble(description)
	if len(fullName) > maxNameLength {
		excess := len(fullName) - maxNameLength
		if excess < len(description) {
			description = description[:len(description)-excess]
		} else {
			description = description[:1]
		}
		fullName = assemble(description)
	}
	return fullName
}

func sanitizeSegment(value string) string {
	if strings.TrimSpace(value) == "" {
		value = fallbackSegment
	}
	token := textutil.SanitizeToken(value, "-", true)
	if token == "na" {
		return fallbackSegment
	}
	return token
}
