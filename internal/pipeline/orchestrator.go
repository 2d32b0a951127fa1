package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"clinikondo/internal/config"
	"clinikondo/internal/doctype"
	"clinikondo/internal/extraction"
	"clinikondo/internal/fileutil"
	"clinikondo/internal/hashledger"
	"clinikondo/internal/journal"
	"clinikondo/internal/logging"
	"clinikondo/internal/patients"
	"clinikondo/internal/placement"
	"clinikondo/internal/services"
	"clinikondo/internal/textutil"
)

// sharedPatientName is the registry entry that owns the shared bucket.
const sharedPatientName = "Compartilhado"

// ErrRunInProgress is returned when another process holds the run lock.
var ErrRunInProgress = errors.New("another run is already in progress")

// Orchestrator drives a full processing run.
type Orchestrator struct {
	cfg       *config.Config
	logger    *slog.Logger
	extractor extraction.Extractor
	registry  *patients.Registry
	catalog   *doctype.Catalog
	ledger    *hashledger.Ledger
	resolver  *placement.Resolver
	journal   *journal.Store
	now       func() time.Time
}

// Option customizes the orchestrator.
type Option func(*Orchestrator)

// WithClock overrides the time source (useful for tests).
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// New wires an orchestrator from its collaborators. The journal store
// may be nil, in which case run outcomes are only logged.
func New(
	cfg *config.Config,
	extractor extraction.Extractor,
	registry *patients.Registry,
	catalog *doctype.Catalog,
	ledger *hashledger.Ledger,
	journalStore *journal.Store,
	logger *slog.Logger,
	opts ...Option,
) (*Orchestrator, error) {
	if cfg == nil {
		return nil, errors.New("pipeline: config required")
	}
	if extractor == nil {
		return nil, errors.New("pipeline: extractor required")
	}
	if registry == nil {
		return nil, errors.New("pipeline: patient registry required")
	}
	if catalog == nil {
		catalog = doctype.NewCatalog()
	}
	if ledger == nil {
		return nil, errors.New("pipeline: hash ledger required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	orchestrator := &Orchestrator{
		cfg:       cfg,
		logger:    logger.With(logging.String(logging.FieldComponent, "pipeline")),
		extractor: extractor,
		registry:  registry,
		catalog:   catalog,
		ledger:    ledger,
		resolver:  placement.NewResolver(cfg.Paths.OutputDir),
		journal:   journalStore,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(orchestrator)
	}
	return orchestrator, nil
}

// Result summarizes one processing run.
type Result struct {
	RunID      string
	DryRun     bool
	StartedAt  time.Time
	FinishedAt time.Time
	Documents  []*Document
	Filed      int
	Failed     int
	Duplicates int
}

// Processed returns how many documents the run looked at.
func (r *Result) Processed() int {
	return len(r.Documents)
}

// CollectDocuments lists the supported files in the input directory in
// lexicographic order. Subdirectories are not descended into.
func (o *Orchestrator) CollectDocuments() ([]string, error) {
	entries, err := os.ReadDir(o.cfg.Paths.InputDir)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "collect", "read_input_dir", "input directory unavailable", err)
	}
	var documents []string
	for _, entry := range entries {
		if entry.IsDir() || !SupportedExtension(entry.Name()) {
			continue
		}
		documents = append(documents, filepath.Join(o.cfg.Paths.InputDir, entry.Name()))
	}
	sort.Strings(documents)
	return documents, nil
}

// Run processes every document currently in the input directory. The
// state directory lock guards against concurrent runs over the same
// output tree.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	if err := o.cfg.EnsureDirectories(); err != nil {
		return nil, services.Wrap(services.ErrPersistence, "run", "ensure_directories", "prepare directories", err)
	}

	lock := flock.New(filepath.Join(o.cfg.StateDir(), "run.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "run", "acquire_lock", "acquire run lock", err)
	}
	if !locked {
		return nil, ErrRunInProgress
	}
	defer func() { _ = lock.Unlock() }()

	result := &Result{
		DryRun:    o.cfg.Processing.DryRun,
		StartedAt: o.now(),
	}

	var journalRun *journal.Run
	if o.journal != nil {
		journalRun, err = o.journal.BeginRun(ctx, result.DryRun)
		if err != nil {
			return nil, err
		}
		result.RunID = journalRun.ID
	} else {
		result.RunID = uuid.NewString()
	}
	ctx = services.WithRunID(ctx, result.RunID)
	logger := o.logger.With(logging.String(logging.FieldRunID, result.RunID))
	logger.Info("run started",
		logging.String("input_dir", o.cfg.Paths.InputDir),
		logging.Bool("dry_run", result.DryRun),
	)

	sources, err := o.CollectDocuments()
	if err != nil {
		return nil, err
	}

	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		document := o.processOne(ctx, logger, source)
		result.Documents = append(result.Documents, document)
		o.tally(result, document)
		o.journalDocument(ctx, result.RunID, document)
	}

	if !result.DryRun {
		if err := o.registry.Save(); err != nil {
			return nil, err
		}
		if err := o.ledger.Save(); err != nil {
			return nil, err
		}
	}

	result.FinishedAt = o.now()
	if o.journal != nil && journalRun != nil {
		journalRun.Processed = result.Processed()
		journalRun.Filed = result.Filed
		journalRun.Failed = result.Failed
		journalRun.Duplicates = result.Duplicates
		if err := o.journal.FinishRun(ctx, journalRun); err != nil {
			logger.Warn("journal finish failed", logging.Error(err))
		}
	}

	logger.Info("run finished",
		logging.Int("processed", result.Processed()),
		logging.Int("filed", result.Filed),
		logging.Int("failed", result.Failed),
		logging.Int("duplicates", result.Duplicates),
	)
	return result, nil
}

func (o *Orchestrator) tally(result *Result, document *Document) {
	switch document.State {
	case StateRecorded, StatePlaced:
		result.Filed++
		if document.Duplicate {
			result.Duplicates++
		}
	case StateSkipped:
		result.Duplicates++
	case StateFailed:
		result.Failed++
	}
}

func (o *Orchestrator) journalDocument(ctx context.Context, runID string, document *Document) {
	if o.journal == nil {
		return
	}
	entry := journal.DocumentEntry{
		RunID:           runID,
		SourcePath:      document.SourcePath,
		DestinationPath: document.DestinationPath,
		DocumentType:    document.DocType.TypeName,
	}
	if document.Patient != nil {
		entry.PatientSlug = document.Patient.Slug
	}
	switch document.State {
	case StateSkipped:
		entry.Outcome = journal.OutcomeDuplicate
	case StateFailed:
		entry.Outcome = journal.OutcomeFailed
		entry.FailureKind = services.Kind(document.Err)
		if document.Err != nil {
			entry.Detail = document.Err.Error()
		}
	default:
		if o.cfg.Processing.DryRun {
			entry.Outcome = journal.OutcomeDryRun
		} else if document.Duplicate {
			entry.Outcome = journal.OutcomeDuplicate
		} else {
			entry.Outcome = journal.OutcomeFiled
		}
	}
	if err := o.journal.RecordDocument(ctx, entry); err != nil {
		o.logger.Warn("journal record failed",
			logging.String(logging.FieldSourceFile, document.SourcePath),
			logging.Error(err),
		)
	}
}

func (o *Orchestrator) processOne(ctx context.Context, logger *slog.Logger, source string) *Document {
	document := &Document{SourcePath: source, State: StatePending}
	docLogger := logger.With(logging.String(logging.FieldSourceFile, filepath.Base(source)))
	docLogger.Info("processing document")

	if err := o.advance(ctx, document); err != nil {
		document.State = StateFailed
		document.Err = err
		docLogger.Error("document failed",
			logging.String("kind", services.Kind(err)),
			logging.Error(err),
		)
		if o.cfg.Processing.PreserveOnError && !o.cfg.Processing.DryRun {
			if preserveErr := o.preserveOnError(source); preserveErr != nil {
				docLogger.Warn("dead letter copy failed", logging.Error(preserveErr))
			}
		}
		return document
	}

	if document.State == StateSkipped {
		docLogger.Info("document skipped, content already filed")
		return document
	}
	action := o.actionDescription()
	docLogger.Info("document "+action, logging.String("destination", document.DestinationPath))
	return document
}

func (o *Orchestrator) actionDescription() string {
	verb := "copied to"
	if o.cfg.Processing.MoveOriginal {
		verb = "moved to"
	}
	if o.cfg.Processing.DryRun {
		return "would be " + verb
	}
	return verb
}

func (o *Orchestrator) advance(ctx context.Context, document *Document) error {
	size, err := validateSource(document.SourcePath, o.cfg.MaxFileBytes())
	if err != nil {
		return err
	}
	document.Size = size
	document.State = StateValidated

	hash, err := hashledger.CalculateHash(document.SourcePath)
	if err != nil {
		return services.Wrap(services.ErrValidation, "validate", "hash", "hash source file", err)
	}
	document.Hash = hash
	if o.ledger.IsProcessed(hash) {
		previous, _ := o.ledger.GetRecord(hash)
		if o.cfg.Processing.OnDuplicate == config.OnDuplicateSkip {
			document.State = StateSkipped
			o.logger.Info("duplicate skipped",
				logging.String(logging.FieldSourceFile, document.SourcePath),
				logging.String("previous_destination", previous.DestinationPath),
			)
			return nil
		}
		document.Duplicate = true
		o.logger.Warn("duplicate content, filing anyway",
			logging.String(logging.FieldSourceFile, document.SourcePath),
			logging.String("previous_destination", previous.DestinationPath),
		)
	}

	document.Text = documentText(document.SourcePath)
	metadata, err := o.extractor.Extract(ctx, extraction.Input{
		SourcePath: document.SourcePath,
		Text:       document.Text,
	})
	if err != nil {
		return err
	}
	if strings.TrimSpace(metadata.Description) == "" {
		metadata.Description = textutil.ShortDescription(document.Text)
	}
	if metadata.DocumentDate.IsZero() {
		metadata.DocumentDate = o.now()
	}
	if err := requireMetadata(metadata); err != nil {
		return err
	}
	document.Metadata = metadata
	document.Shared = metadata.Shared
	document.State = StateExtracted

	if err := o.resolvePatient(document); err != nil {
		return err
	}
	document.State = StatePatientResolved

	document.DocType = o.catalog.Resolve(document.Metadata.TypeLabel)
	document.State = StateTypeResolved

	document.FinalName = placement.BuildFinalName(placement.NameParts{
		Date:        document.Metadata.DocumentDate,
		PatientName: document.Metadata.PatientName,
		PatientSlug: document.Patient.Slug,
		TypeLabel:   document.Metadata.TypeLabel,
		Specialty:   document.Metadata.Specialty,
		Description: document.Metadata.Description,
		Extension:   filepath.Ext(document.SourcePath),
	})
	document.State = StateNamed

	destinationDir := o.resolver.DestinationDir(document.Patient.Slug, document.DocType.DestinationSubfolder, document.Shared)
	target := filepath.Join(destinationDir, document.FinalName)
	if err := o.resolver.EnsureWithinRoot(target); err != nil {
		return err
	}
	if !o.cfg.Processing.DryRun {
		if err := os.MkdirAll(destinationDir, 0o755); err != nil {
			return services.Wrap(services.ErrPersistence, "place", "mkdir", "create destination directory", err)
		}
	}
	target = o.resolver.UniqueDestination(target)
	document.DestinationPath = target

	if !o.cfg.Processing.DryRun {
		if err := o.placeFile(document.SourcePath, target); err != nil {
			return err
		}
	}
	document.State = StatePlaced

	if !o.cfg.Processing.DryRun {
		o.ledger.AddRecord(document.Hash, document.SourcePath, target, document.Patient.Slug, document.DocType.TypeName)
		document.State = StateRecorded
	}
	return nil
}

// requireMetadata rejects a document whose extraction left a required
// filing field empty. Description and date already had their fallbacks
// applied; patient name and document type have none.
func requireMetadata(metadata extraction.Metadata) error {
	if strings.TrimSpace(metadata.PatientName) == "" {
		return services.Wrap(services.ErrMissingField, "extract", "require_fields", "patient name could not be inferred", nil)
	}
	if metadata.DocumentDate.IsZero() {
		return services.Wrap(services.ErrMissingField, "extract", "require_fields", "document date not found", nil)
	}
	if strings.TrimSpace(metadata.TypeLabel) == "" {
		return services.Wrap(services.ErrMissingField, "extract", "require_fields", "document type not identified", nil)
	}
	return nil
}

// resolvePatient widens the search the way the registry allows it:
// direct match on the inferred name, then containment in the document
// text, then the configured fallback (shared bucket, auto-create, or
// failure). The inferred name is guaranteed non-empty by the earlier
// required-field check.
func (o *Orchestrator) resolvePatient(document *Document) error {
	inferredName := strings.TrimSpace(document.Metadata.PatientName)

	var patient *patients.Patient
	if o.cfg.Matching.AutoMatch {
		patient = o.registry.Match(inferredName)
		if patient == nil {
			patient = o.registry.MatchInText(document.Text)
		}
	}
	if patient != nil {
		document.Patient = patient
		return nil
	}
	if o.cfg.Matching.RouteUnmatchedToShared {
		document.Shared = true
		document.Patient = o.registry.EnsurePatient(sharedPatientName, true, patients.OriginManualAdd)
		return nil
	}
	if !o.cfg.Matching.AutoCreate {
		return services.Wrap(services.ErrPatientResolution, "resolve_patient", "match",
			fmt.Sprintf("no registered patient matches %q and auto-create is disabled", inferredName), nil)
	}
	document.Patient = o.registry.EnsurePatient(inferredName, true, patients.OriginLLMExtraction)
	if document.Patient == nil {
		return services.Wrap(services.ErrPatientResolution, "resolve_patient", "ensure",
			fmt.Sprintf("could not register patient %q", inferredName), nil)
	}
	return nil
}

func (o *Orchestrator) placeFile(source, destination string) error {
	if o.cfg.Processing.MoveOriginal {
		if err := fileutil.MoveFile(source, destination); err != nil {
			return services.Wrap(services.ErrPersistence, "place", "move", "move document", err)
		}
		return nil
	}
	if err := fileutil.CopyFileVerified(source, destination); err != nil {
		return services.Wrap(services.ErrPersistence, "place", "copy", "copy document", err)
	}
	return nil
}
// preserveOnError copies the failed source into the dead letter
// directory, numbering the copy when the name is taken.
func (o *Orchestrator) preserveOnError(source string) error {
	deadLetterDir := o.cfg.DeadLetterDir()
	if err := os.MkdirAll(deadLetterDir, 0o755); err != nil {
		return err
	}
	name := filepath.Base(source)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	destination := filepath.Join(deadLetterDir, name)
	for counter := 1; ; counter++ {
		if _, err := os.Lstat(destination); errors.Is(err, os.ErrNotExist) {
			break
		}
		destination = filepath.Join(deadLetterDir, stem+"-"+strconv.Itoa(counter)+ext)
	}
	return fileutil.CopyFileVerified(source, destination)
}
