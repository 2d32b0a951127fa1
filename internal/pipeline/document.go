package pipeline

import (
	"clinikondo/internal/doctype"
	"clinikondo/internal/extraction"
	"clinikondo/internal/patients"
)

// State tracks how far a document advanced through the run. Documents
// move strictly forward; a failure at any stage parks the document in
// StateFailed with the error kind preserved.
type State string

const (
	StatePending         State = "pending"
	StateValidated       State = "validated"
	StateExtracted       State = "extracted"
	StatePatientResolved State = "patient_resolved"
	StateTypeResolved    State = "type_resolved"
	StateNamed           State = "named"
	StatePlaced          State = "placed"
	StateRecorded        State = "recorded"
	StateSkipped         State = "skipped_duplicate"
	StateFailed          State = "failed"
)

// Document carries one source file through the pipeline.
type Document struct {
	SourcePath string
	Size       int64
	Hash       string
	State      State

	Text     string
	Metadata extraction.Metadata

	Patient *patients.Patient
	Shared  bool
	DocType doctype.DocumentType

	FinalName       string
	DestinationPath string

	// Duplicate is set when the hash was already in the ledger and the
	// run was configured to record rather than skip.
	Duplicate bool

	Err error
}
