package extraction

import (
	"context"
	"strings"
	"time"
)

// Input carries the text payload handed to an extractor along with the
// source path for logging.
type Input struct {
	SourcePath string
	Text       string
}

// Metadata is the structured result produced by an extractor. Empty
// string fields mean the extractor could not determine the value; the
// pipeline decides how to fall back. Shared marks documents that
// belong to the household bucket rather than a single patient; Extras
// carries any additional key/value pairs the extractor surfaced.
type Metadata struct {
	PatientName  string
	DocumentDate time.Time
	TypeLabel    string
	Specialty    string
	Description  string
	Shared       bool
	Extras       map[string]string
	Confidence   float64
	Raw          string
}

// Extractor produces filing metadata for a document.
type Extractor interface {
	Extract(ctx context.Context, input Input) (Metadata, error)
}

const (
	confidenceRequiredPenalty = 0.3
	confidenceOptionalBonus   = 0.1
)

// scoreConfidence starts at 1.0, subtracts for each missing required
// field (patient name, date, type) and adds a bonus for each optional
// field present (specialty, description), clamped to [0, 1].
func scoreConfidence(patientName, dateValue, typeLabel, specialty, description string) float64 {
	confidence := 1.0
	for _, required := range []string{patientName, dateValue, typeLabel} {
		if strings.TrimSpace(required) == "" {
			confidence -= confidenceRequiredPenalty
		}
	}
	for _, optional := range []string{specialty, description} {
		if strings.TrimSpace(optional) != "" {
			confidence += confidenceOptionalBonus
		}
	}
	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}
