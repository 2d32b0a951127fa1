package extraction_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"clinikondo/internal/extraction"
)

func completionBody(content string) string {
	payload := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
	encoded, _ := json.Marshal(payload)
	return string(encoded)
}

func newTestExtractor(t *testing.T, baseURL string, opts ...extraction.LLMOption) *extraction.LLMExtractor {
	t.Helper()
	fixedNow := func() time.Time { return time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC) }
	opts = append([]extraction.LLMOption{
		extraction.WithSleeper(func(time.Duration) {}),
		extraction.WithLLMClock(fixedNow),
	}, opts...)
	extractor, err := extraction.NewLLMExtractor(extraction.LLMConfig{
		APIKey:  "test-key",
		BaseURL: baseURL,
		Model:   "gpt-4o-mini",
	}, nil, opts...)
	if err != nil {
		t.Fatalf("NewLLMExtractor: %v", err)
	}
	return extractor
}

func TestLLMExtractParsesFencedJSON(t *testing.T) {
	content := "```json\n{\"nome_paciente\":\"José da Silva\",\"data_documento\":\"2023-03-15\",\"tipo_documento\":\"exame\",\"especialidade\":\"laboratorial\",\"descricao_curta\":\"hemograma completo\"}\n```"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		fmt.Fprint(w, completionBody(content))
	}))
	defer server.Close()

	extractor := newTestExtractor(t, server.URL)
	meta, err := extractor.Extract(context.Background(), extraction.Input{SourcePath: "exame.pdf", Text: "Paciente: José da Silva"})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if meta.PatientName != "José da Silva" {
		t.Errorf("PatientName = %q", meta.PatientName)
	}
	if got := meta.DocumentDate.Format("2006-01-02"); got != "2023-03-15" {
		t.Errorf("DocumentDate = %s", got)
	}
	if meta.TypeLabel != "exame" || meta.Specialty != "laboratorial" {
		t.Errorf("TypeLabel = %q, Specialty = %q", meta.TypeLabel, meta.Specialty)
	}
	// All required and optional fields present: 1.0 capped.
	if meta.Confidence != 1.0 {
		t.Errorf("Confidence = %v", meta.Confidence)
	}
	if meta.Shared {
		t.Error("Shared should default to false")
	}
}

func TestLLMExtractCarriesSharedFlagAndExtras(t *testing.T) {
	content := `{"nome_paciente":"Família Silva","data_documento":"2023-03-15",` +
		`"tipo_documento":"documento","classificar_como_compartilhado":true,` +
		`"extras":{"convenio":"unimed"}}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, completionBody(content))
	}))
	defer server.Close()

	extractor := newTestExtractor(t, server.URL)
	meta, err := extractor.Extract(context.Background(), extraction.Input{SourcePath: "plano.pdf", Text: "Contrato do plano familiar"})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !meta.Shared {
		t.Error("Shared = false, want true")
	}
	if got := meta.Extras["convenio"]; got != "unimed" {
		t.Errorf("Extras[convenio] = %q", got)
	}
}

func TestLLMExtractRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "overloaded", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, completionBody(`{"nome_paciente":"Ana","data_documento":"2024-01-02","tipo_documento":"laudo","especialidade":"","descricao_curta":""}`))
	}))
	defer server.Close()

	extractor := newTestExtractor(t, server.URL)
	meta, err := extractor.Extract(context.Background(), extraction.Input{Text: "Laudo de Ana"})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
	// Three required present, no optional bonus.
	if meta.Confidence != 1.0 {
		t.Errorf("Confidence = %v", meta.Confidence)
	}
}

func TestLLMExtractGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer server.Close()

	extractor := newTestExtractor(t, server.URL)
	if _, err := extractor.Extract(context.Background(), extraction.Input{Text: "qualquer"}); err == nil {
		t.Fatal("want error after exhausted retries")
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestLLMExtractInvalidDateFallsBackToNow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, completionBody(`{"nome_paciente":"Ana","data_documento":"amanhã","tipo_documento":"exame","especialidade":"","descricao_curta":""}`))
	}))
	defer server.Close()

	extractor := newTestExtractor(t, server.URL)
	meta, err := extractor.Extract(context.Background(), extraction.Input{Text: "Exame de Ana"})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got := meta.DocumentDate.Format("2006-01-02"); got != "2024-05-20" {
		t.Errorf("DocumentDate = %s, want clock fallback", got)
	}
}

func TestLLMExtractorRequiresAPIKey(t *testing.T) {
	if _, err := extraction.NewLLMExtractor(extraction.LLMConfig{}, nil); err == nil {
		t.Fatal("want error without api key")
	}
}

func TestDecodeModelJSON(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr bool
	}{
		{name: "plain object", content: `{"tipo_documento":"exame"}`},
		{name: "fenced json", content: "```json\n{\"tipo_documento\":\"exame\"}\n```"},
		{name: "bare fence", content: "```\n{\"tipo_documento\":\"exame\"}\n```"},
		{name: "prose wrapper", content: `Segue o resultado: {"tipo_documento":"exame"} conforme pedido.`},
		{name: "empty", content: "   ", wantErr: true},
		{name: "not json", content: "não sei", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var parsed struct {
				TypeLabel string `json:"tipo_documento"`
			}
			err := extraction.DecodeModelJSON(tc.content, &parsed)
			if tc.wantErr {
				if err == nil {
					t.Fatal("want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeModelJSON: %v", err)
			}
			if parsed.TypeLabel != "exame" {
				t.Errorf("TypeLabel = %q", parsed.TypeLabel)
			}
		})
	}
}
