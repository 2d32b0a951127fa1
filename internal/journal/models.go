package journal

import "time"

// Outcome classifies what happened to a single document during a run.
type Outcome string

const (
	OutcomeFiled     Outcome = "filed"
	OutcomeDryRun    Outcome = "dry_run"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeFailed    Outcome = "failed"
)

// Run is one invocation of the processing pipeline.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt *time.Time
	DryRun     bool
	Processed  int
	Filed      int
	Failed     int
	Duplicates int
}

// DocumentEntry is the outcome recorded for one source document.
type DocumentEntry struct {
	ID              int64
	RunID           string
	SourcePath      string
	Outcome         Outcome
	DestinationPath string
	PatientSlug     string
	DocumentType    string
	FailureKind     string
	Detail          string
	RecordedAt      time.Time
}
