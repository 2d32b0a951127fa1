package extraction

import (
	"bufio"
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"clinikondo/internal/doctype"
	"clinikondo/internal/logging"
	"clinikondo/internal/services"
	"clinikondo/internal/textutil"
)

// patientLinePattern matches the label prefixes that typically precede
// a patient name in scanned documents.
var patientLinePattern = regexp.MustCompile(`(?i)^\s*(?:paciente|nome|cliente)\s*[:\-]\s*(.+)$`)

// RuleBasedExtractor derives metadata from local heuristics only. It
// exists for offline runs and as a fallback when no API key is
// configured.
type RuleBasedExtractor struct {
	catalog *doctype.Catalog
	logger  *slog.Logger
	now     func() time.Time
}

// RuleOption customizes the extractor.
type RuleOption func(*RuleBasedExtractor)

// WithRuleClock overrides the clock used for the date fallback.
func WithRuleClock(now func() time.Time) RuleOption {
	return func(e *RuleBasedExtractor) {
		if now != nil {
			e.now = now
		}
	}
}

// NewRuleBasedExtractor constructs an extractor backed by the supplied
// document type catalog.
func NewRuleBasedExtractor(catalog *doctype.Catalog, logger *slog.Logger, opts ...RuleOption) *RuleBasedExtractor {
	if catalog == nil {
		catalog = doctype.NewCatalog()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	extractor := &RuleBasedExtractor{
		catalog: catalog,
		logger:  logger.With(logging.String(logging.FieldComponent, "rule-extractor")),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(extractor)
	}
	return extractor
}

// Extract scans the text for a labelled patient name line, the first
// recognizable date, and a document type keyword.
func (e *RuleBasedExtractor) Extract(ctx context.Context, input Input) (Metadata, error) {
	var empty Metadata
	if err := ctx.Err(); err != nil {
		return empty, err
	}
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return empty, services.Wrap(services.ErrExtraction, "extraction", "rule_extract", "document text is empty", nil)
	}

	meta := Metadata{
		PatientName: findPatientLine(text),
		Description: textutil.ShortDescription(text),
	}

	docType := e.catalog.InferFromText(text)
	meta.TypeLabel = docType.TypeName

	dateValue := ""
	if parsed, ok := textutil.FirstDateFromText(text); ok {
		meta.DocumentDate = parsed
		dateValue = parsed.Format("2006-01-02")
	} else {
		meta.DocumentDate = e.now()
	}

	meta.Confidence = scoreConfidence(meta.PatientName, dateValue, meta.TypeLabel, meta.Specialty, meta.Description)
	e.logger.Debug("rule extraction completed",
		logging.String(logging.FieldSourceFile, input.SourcePath),
		logging.String("type", meta.TypeLabel),
		logging.Float64("confidence", meta.Confidence),
	)
	return meta, nil
}

func findPatientLine(text string) string {
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		if match := patientLinePattern.FindStringSubmatch(scanner.Text()); match != nil {
			name := strings.TrimSpace(match[1])
			if name != "" {
				return name
			}
		}
	}
	return ""
}
