package hashledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"clinikondo/internal/fileutil"
	"clinikondo/internal/logging"
)

// Record describes one placed file. Field names match the hashes.json layout
// consumed by other tooling.
type Record struct {
	HashSHA256      string `json:"hash_sha256"`
	SourcePath      string `json:"arquivo_original"`
	DestinationPath string `json:"arquivo_destino"`
	Timestamp       string `json:"timestamp"`
	PatientSlug     string `json:"paciente_slug"`
	DocumentType    string `json:"tipo_documento"`
}

// Statistics aggregates ledger contents for reporting.
type Statistics struct {
	Total     int
	ByType    map[string]int
	ByPatient map[string]int
}

// Ledger is the content-hash index of processed files. Not safe for
// concurrent use; the pipeline owns it from a single goroutine.
type Ledger struct {
	path    string
	logger  *slog.Logger
	now     func() time.Time
	records map[string]Record
}

// Option customizes the ledger.
type Option func(*Ledger)

// WithClock overrides the time source (used in tests).
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// Open loads the ledger at path, recovering an empty ledger from missing or
// corrupt storage.
func Open(path string, logger *slog.Logger, opts ...Option) *Ledger {
	if logger == nil {
		logger = logging.NewNop()
	}
	l := &Ledger{
		path:    path,
		logger:  logger.With(logging.String(logging.FieldComponent, "hash-ledger")),
		now:     time.Now,
		records: make(map[string]Record),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.load()
	return l
}

func (l *Ledger) load() {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			l.logger.Warn("hash ledger unreadable, starting empty", logging.Error(err))
		}
		return
	}
	var records map[string]Record
	if err := json.Unmarshal(data, &records); err != nil {
		l.logger.Warn("hash ledger corrupt, starting empty",
			logging.String("path", l.path),
			logging.Error(err),
		)
		return
	}
	l.records = records
	if l.records == nil {
		l.records = make(map[string]Record)
	}
}

// Save persists the ledger atomically, overwriting the whole file.
func (l *Ledger) Save() error {
	data, err := json.MarshalIndent(l.records, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return err
	}
	return fileutil.WriteFileAtomic(l.path, data, 0o644)
}

// CalculateHash streams the file at path through SHA-256 and returns the hex
// digest. The file is never fully buffered in memory.
func CalculateHash(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open for hashing: %w", err)
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// IsProcessed reports whether a file with this content hash was placed before.
func (l *Ledger) IsProcessed(hash string) bool {
	_, ok := l.records[hash]
	return ok
}

// GetRecord returns the record for hash, if any.
func (l *Ledger) GetRecord(hash string) (Record, bool) {
	record, ok := l.records[hash]
	return record, ok
}

// AddRecord registers a placement under its content hash. Re-adding an
// existing hash overwrites the stored record with the latest placement.
func (l *Ledger) AddRecord(hash, sourcePath, destinationPath, patientSlug, documentType string) {
	l.records[hash] = Record{
		HashSHA256:      hash,
		SourcePath:      sourcePath,
		DestinationPath: destinationPath,
		Timestamp:       l.now().Format(time.RFC3339),
		PatientSlug:     patientSlug,
		DocumentType:    documentType,
	}
}

// Records lists every record sorted by hash for deterministic audit output.
func (l *Ledger) Records() []Record {
	out := make([]Record, 0, len(l.records))
	for _, record := range l.records {
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HashSHA256 < out[j].HashSHA256 })
	return out
}

// GetStatistics aggregates counts by document type and patient.
func (l *Ledger) GetStatistics() Statistics {
	stats := Statistics{
		Total:     len(l.records),
		ByType:    make(map[string]int),
		ByPatient: make(map[string]int),
	}
	for _, record := range l.records {
		stats.ByType[record.DocumentType]++
		stats.ByPatient[record.PatientSlug]++
	}
	return stats
}
