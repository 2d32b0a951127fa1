package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"clinikondo/internal/logging"
	"clinikondo/internal/services"
)

const (
	defaultHTTPTimeout   = 30 * time.Second
	defaultRetryAttempts = 3
	defaultRetryBase     = 1 * time.Second
	completionsPath      = "/v1/chat/completions"
)

// LLMConfig captures the runtime settings required to talk to the
// chat completions API.
type LLMConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Temperature    float64
	MaxTokens      int
	TimeoutSeconds int
}

// LLMExtractor asks an OpenAI-compatible chat completions endpoint for
// filing metadata. Failed requests are retried with a progressively
// longer delay.
type LLMExtractor struct {
	cfg        LLMConfig
	httpClient *http.Client
	logger     *slog.Logger

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	sleeper          func(time.Duration)
	now              func() time.Time
}

// LLMOption customizes the extractor.
type LLMOption func(*LLMExtractor)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) LLMOption {
	return func(e *LLMExtractor) {
		if client != nil {
			e.httpClient = client
		}
	}
}

// WithRetryMaxAttempts overrides the default retry count (defaults to 3).
func WithRetryMaxAttempts(attempts int) LLMOption {
	return func(e *LLMExtractor) {
		if attempts > 0 {
			e.retryMaxAttempts = attempts
		}
	}
}

// WithRetryBaseDelay overrides the backoff unit between attempts.
func WithRetryBaseDelay(delay time.Duration) LLMOption {
	return func(e *LLMExtractor) {
		if delay >= 0 {
			e.retryBaseDelay = delay
		}
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) LLMOption {
	return func(e *LLMExtractor) {
		if sleeper != nil {
			e.sleeper = sleeper
		}
	}
}

// WithLLMClock overrides the clock used for the date fallback.
func WithLLMClock(now func() time.Time) LLMOption {
	return func(e *LLMExtractor) {
		if now != nil {
			e.now = now
		}
	}
}

// NewLLMExtractor constructs an extractor using the supplied configuration.
func NewLLMExtractor(cfg LLMConfig, logger *slog.Logger, opts ...LLMOption) (*LLMExtractor, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, services.Wrap(services.ErrValidation, "extraction", "new_llm_extractor", "api key required", nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.With(logging.String(logging.FieldComponent, "llm-extractor"))
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	extractor := &LLMExtractor{
		cfg: LLMConfig{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Model:          strings.TrimSpace(cfg.Model),
			Temperature:    cfg.Temperature,
			MaxTokens:      cfg.MaxTokens,
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient:       &http.Client{Timeout: timeout},
		logger:           logger,
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBase,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(extractor)
	}
	if extractor.cfg.BaseURL == "" {
		extractor.cfg.BaseURL = "https://api.openai.com"
	}
	return extractor, nil
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type extractionPayload struct {
	PatientName  string            `json:"nome_paciente"`
	DocumentDate string            `json:"data_documento"`
	DocumentType string            `json:"tipo_documento"`
	Specialty    string            `json:"especialidade"`
	Description  string            `json:"descricao_curta"`
	Shared       bool              `json:"classificar_como_compartilhado"`
	Extras       map[string]string `json:"extras"`
}

// Extract sends the document text to the model and decodes the JSON
// payload it returns.
func (e *LLMExtractor) Extract(ctx context.Context, input Input) (Metadata, error) {
	var empty Metadata
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return empty, services.Wrap(services.ErrExtraction, "extraction", "llm_extract", "document text is empty", nil)
	}

	start := time.Now()
	content, err := e.completeWithRetry(ctx, fmt.Sprintf(userPromptTemplate, text))
	elapsed := time.Since(start)
	if err != nil {
		return empty, services.Wrap(services.ErrExtraction, "extraction", "llm_extract", "completion request failed", err)
	}

	var payload extractionPayload
	if err := DecodeModelJSON(content, &payload); err != nil {
		return empty, services.Wrap(services.ErrExtraction, "extraction", "llm_extract", "model payload is not valid JSON", err)
	}

	meta := e.buildMetadata(payload, content)
	e.logger.Info("llm extraction completed",
		logging.String(logging.FieldSourceFile, input.SourcePath),
		logging.String("model", e.cfg.Model),
		logging.Duration("elapsed", elapsed),
		logging.Float64("confidence", meta.Confidence),
	)
	return meta, nil
}

func (e *LLMExtractor) buildMetadata(payload extractionPayload, raw string) Metadata {
	meta := Metadata{
		PatientName: strings.TrimSpace(payload.PatientName),
		TypeLabel:   strings.TrimSpace(payload.DocumentType),
		Specialty:   strings.TrimSpace(payload.Specialty),
		Description: strings.TrimSpace(payload.Description),
		Shared:      payload.Shared,
		Extras:      payload.Extras,
		Raw:         raw,
	}
	meta.Confidence = scoreConfidence(
		payload.PatientName,
		payload.DocumentDate,
		payload.DocumentType,
		payload.Specialty,
		payload.Description,
	)
	dateValue := strings.TrimSpace(payload.DocumentDate)
	if parsed, err := time.Parse("2006-01-02", dateValue); err == nil {
		meta.DocumentDate = parsed
	} else {
		// An unusable date falls back to now so filing never stalls on it.
		meta.DocumentDate = e.now()
	}
	return meta
}

func (e *LLMExtractor) completeWithRetry(ctx context.Context, prompt string) (string, error) {
	attempts := e.retryMaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		content, err := e.completeOnce(ctx, prompt)
		if err == nil {
			return content, nil
		}
		lastErr = err
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		if attempt == attempts {
			break
		}
		e.logger.Warn("llm request failed, retrying",
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", attempts),
			logging.Error(err),
		)
		if err := e.sleep(ctx, e.retryBaseDelay*time.Duration(attempt)); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

func (e *LLMExtractor) completeOnce(ctx context.Context, prompt string) (string, error) {
	payload := chatCompletionRequest{
		Model: e.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: e.cfg.Temperature,
		MaxTokens:   e.cfg.MaxTokens,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode body: %w", err)
	}
	endpoint, err := url.JoinPath(e.cfg.BaseURL, completionsPath)
	if err != nil {
		return "", fmt.Errorf("build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http error: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if completion.Error != nil {
		return "", fmt.Errorf("api error: %s", strings.TrimSpace(completion.Error.Message))
	}
	if len(completion.Choices) == 0 || strings.TrimSpace(completion.Choices[0].Message.Content) == "" {
		return "", errors.New("empty completion content")
	}
	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}

func (e *LLMExtractor) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if e.sleeper != nil {
		e.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// DecodeModelJSON decodes JSON from a model response, stripping code
// fences and extracting the first JSON object when the model wraps its
// answer in prose.
func DecodeModelJSON(content string, target any) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return errors.New("empty payload")
	}
	directErr := json.Unmarshal([]byte(trimmed), target)
	if directErr == nil {
		return nil
	}
	sanitized := sanitizeModelJSON(trimmed)
	if sanitized == "" || sanitized == trimmed {
		return directErr
	}
	if err := json.Unmarshal([]byte(sanitized), target); err != nil {
		return err
	}
	return nil
}

func sanitizeModelJSON(content string) string {
	trimmed := strings.TrimSpace(stripCodeFence(content))
	if trimmed == "" {
		return ""
	}
	if trimmed[0] == '{' || trimmed[0] == '[' {
		return trimmed
	}
	if start := strings.Index(trimmed, "{"); start >= 0 {
		if end := strings.LastIndex(trimmed, "}"); end > start {
			return strings.TrimSpace(trimmed[start : end+1])
		}
	}
	return trimmed
}

func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	body := trimmed[3:]
	body = strings.TrimLeft(body, " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = strings.TrimLeft(body[4:], " \t\r\n")
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}
