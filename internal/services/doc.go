// Package services defines shared error semantics consumed by the document
// pipeline and the patient registry.
//
// Key responsibilities:
//   - Structured error markers plus the Wrap helper that tag failures with a
//     stable kind for logging, journaling, and per-file outcome reporting.
//   - Classification helpers that decide whether a failure aborts a single
//     document or is recovered in place.
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability, recovery) stays uniform across stages.
package services
