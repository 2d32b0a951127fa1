package services

import "context"

type contextKey string

const (
	runIDKey      contextKey = "run_id"
	stageKey      contextKey = "stage"
	sourceFileKey contextKey = "source_file"
)

// WithRunID stamps the pipeline run identifier onto the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	if runID == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, runID)
}

// RunIDFromContext extracts the run identifier, if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	value, ok := ctx.Value(runIDKey).(string)
	return value, ok && value != ""
}

// WithStage stamps the current pipeline stage name onto the context.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext extracts the stage name, if present.
func StageFromContext(ctx context.Context) (string, bool) {
	value, ok := ctx.Value(stageKey).(string)
	return value, ok && value != ""
}

// WithSourceFile stamps the document source path onto the context.
func WithSourceFile(ctx context.Context, path string) context.Context {
	if path == "" {
		return ctx
	}
	return context.WithValue(ctx, sourceFileKey, path)
}

// SourceFileFromContext extracts the document source path, if present.
func SourceFileFromContext(ctx context.Context) (string, bool) {
	value, ok := ctx.Value(sourceFileKey).(string)
	return value, ok && value != ""
}
