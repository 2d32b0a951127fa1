// Package pipeline orchestrates the filing run: it collects documents
// from the input directory, walks each one through validation,
// extraction, patient resolution, naming, and placement, and records
// the outcome in the hash ledger and the run journal.
package pipeline
