package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks files rejected by the pre-extraction gate
	// (missing, oversized, unsupported extension, unsafe filename).
	ErrValidation = errors.New("validation error")
	// ErrExtraction marks an external extractor that failed after its own
	// retries. Recoverable per file.
	ErrExtraction = errors.New("extraction failure")
	// ErrMissingField marks extraction output lacking a required field
	// (patient name, date, or type). Fatal for the file.
	ErrMissingField = errors.New("missing required field")
	// ErrPatientResolution marks an unmatched patient with auto-create
	// disabled.
	ErrPatientResolution = errors.New("patient resolution error")
	// ErrAliasConflict marks an alias already owned by another patient. The
	// operation is refused, never auto-resolved.
	ErrAliasConflict = errors.New("alias conflict")
	// ErrUnsafePath marks a destination resolving outside the output root.
	// Fatal for the file, never silently corrected.
	ErrUnsafePath = errors.New("unsafe path")
	// ErrPersistence marks a corrupt store file. Recovered locally by
	// treating the store as empty.
	ErrPersistence = errors.New("persistence corruption")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExtraction
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns the stable taxonomy name for an error, used in journal rows
// and run summaries. Unclassified errors report as "internal".
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrExtraction):
		return "extraction"
	case errors.Is(err, ErrMissingField):
		return "missing_field"
	case errors.Is(err, ErrPatientResolution):
		return "patient_resolution"
	case errors.Is(err, ErrAliasConflict):
		return "alias_conflict"
	case errors.Is(err, ErrUnsafePath):
		return "unsafe_path"
	case errors.Is(err, ErrPersistence):
		return "persistence"
	default:
		return "internal"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
