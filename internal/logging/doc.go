// Package logging centralises slog construction and the structured field
// vocabulary used across the pipeline.
//
// Loggers are built from Options (level, format, output paths) or directly
// from application config. Console output uses a text handler, "json" switches
// to machine-readable output. Attr helpers (String, Int, Error, ...) keep call
// sites terse, and WithContext augments a logger with run, stage, and source
// file fields carried on the context.
package logging
