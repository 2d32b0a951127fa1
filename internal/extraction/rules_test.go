package extraction_test

import (
	"context"
	"testing"
	"time"

	"clinikondo/internal/doctype"
	"clinikondo/internal/extraction"
)

func TestRuleExtractFindsPatientDateAndType(t *testing.T) {
	text := "LABORATÓRIO CENTRAL\nPaciente: José da Silva\nData da coleta: 15/03/2023\nHemograma completo dentro dos valores de referência."
	extractor := extraction.NewRuleBasedExtractor(doctype.NewCatalog(), nil)

	meta, err := extractor.Extract(context.Background(), extraction.Input{SourcePath: "exame.txt", Text: text})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if meta.PatientName != "José da Silva" {
		t.Errorf("PatientName = %q", meta.PatientName)
	}
	if got := meta.DocumentDate.Format("2006-01-02"); got != "2023-03-15" {
		t.Errorf("DocumentDate = %s", got)
	}
	if meta.TypeLabel != "exame" {
		t.Errorf("TypeLabel = %q", meta.TypeLabel)
	}
	if meta.Description == "" {
		t.Error("want non-empty description")
	}
}

func TestRuleExtractLabelVariants(t *testing.T) {
	cases := []struct {
		line string
		want string
	}{
		{line: "Paciente: Maria Souza", want: "Maria Souza"},
		{line: "NOME: Maria Souza", want: "Maria Souza"},
		{line: "Cliente - Maria Souza", want: "Maria Souza"},
		{line: "Responsável: Maria Souza", want: ""},
	}
	extractor := extraction.NewRuleBasedExtractor(nil, nil)
	for _, tc := range cases {
		meta, err := extractor.Extract(context.Background(), extraction.Input{Text: tc.line})
		if err != nil {
			t.Fatalf("Extract(%q): %v", tc.line, err)
		}
		if meta.PatientName != tc.want {
			t.Errorf("Extract(%q).PatientName = %q, want %q", tc.line, meta.PatientName, tc.want)
		}
	}
}

func TestRuleExtractMissingDateUsesClock(t *testing.T) {
	fixed := time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC)
	extractor := extraction.NewRuleBasedExtractor(nil, nil,
		extraction.WithRuleClock(func() time.Time { return fixed }))

	meta, err := extractor.Extract(context.Background(), extraction.Input{Text: "Receita de dipirona para uso contínuo"})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !meta.DocumentDate.Equal(fixed) {
		t.Errorf("DocumentDate = %v, want clock value", meta.DocumentDate)
	}
	if meta.TypeLabel != "receita" {
		t.Errorf("TypeLabel = %q", meta.TypeLabel)
	}
}

func TestRuleExtractEmptyTextFails(t *testing.T) {
	extractor := extraction.NewRuleBasedExtractor(nil, nil)
	if _, err := extractor.Extract(context.Background(), extraction.Input{Text: "   "}); err == nil {
		t.Fatal("want error for empty text")
	}
}

func TestRuleExtractConfidencePenalizesMissingName(t *testing.T) {
	extractor := extraction.NewRuleBasedExtractor(nil, nil)
	withName, err := extractor.Extract(context.Background(), extraction.Input{Text: "Paciente: Ana\nExame de sangue em 2023-01-10"})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	withoutName, err := extractor.Extract(context.Background(), extraction.Input{Text: "Exame de sangue em 2023-01-10"})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if withoutName.Confidence >= withName.Confidence {
		t.Errorf("confidence without name (%v) should be below with name (%v)", withoutName.Confidence, withName.Confidence)
	}
}
