package patients

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"clinikondo/internal/fileutil"
	"clinikondo/internal/logging"
)

// Store persists the patient list as an ordered flat record set.
type Store interface {
	Load() ([]*Patient, error)
	Save([]*Patient) error
}

// patientRecord is the on-disk JSON shape, kept compatible with the
// patients.json layout consumed by other tooling.
type patientRecord struct {
	NomeCompleto      string   `json:"nome_completo"`
	SlugDiretorio     string   `json:"slug_diretorio"`
	NomesAlternativos []string `json:"nomes_alternativos"`
	Genero            string   `json:"genero,omitempty"`
	DataNascimento    string   `json:"data_nascimento,omitempty"`
	CriadoEm          string   `json:"criado_em,omitempty"`
	AtualizadoEm      string   `json:"atualizado_em,omitempty"`
	ConfiancaNome     float64  `json:"confianca_nome,omitempty"`
	OrigemCriacao     string   `json:"origem_criacao,omitempty"`
}

// FileStore reads and writes the registry as pretty-printed JSON. Loads are
// permissive: a missing file yields an empty registry and a corrupt file is
// logged and treated as empty. Saves overwrite the whole file atomically.
type FileStore struct {
	path   string
	logger *slog.Logger
}

// NewFileStore constructs a store at path.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &FileStore{path: path, logger: logger.With(logging.String(logging.FieldComponent, "patient-store"))}
}

func (s *FileStore) Load() ([]*Patient, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		s.logger.Warn("patient store unreadable, starting empty", logging.Error(err))
		return nil, nil
	}

	var records []patientRecord
	if err := json.Unmarshal(data, &records); err != nil {
		s.logger.Warn("patient store corrupt, starting empty",
			logging.String("path", s.path),
			logging.Error(err),
		)
		return nil, nil
	}

	loaded := make([]*Patient, 0, len(records))
	for i, record := range records {
		if record.SlugDiretorio == "" || record.NomeCompleto == "" {
			s.logger.Warn("skipping malformed patient entry", logging.Int("index", i))
			continue
		}
		loaded = append(loaded, recordToPatient(record))
	}
	return loaded, nil
}

func (s *FileStore) Save(list []*Patient) error {
	records := make([]patientRecord, 0, len(list))
	for _, patient := range list {
		records = append(records, patientToRecord(patient))
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	return fileutil.WriteFileAtomic(s.path, data, 0o644)
}

func recordToPatient(record patientRecord) *Patient {
	patient := &Patient{
		CanonicalName: record.NomeCompleto,
		Slug:          record.SlugDiretorio,
		Aliases:       record.NomesAlternativos,
		Gender:        Gender(record.Genero),
		Confidence:    record.ConfiancaNome,
		Origin:        Origin(record.OrigemCriacao),
	}
	if record.DataNascimento != "" {
		if parsed, err := time.Parse("2006-01-02", record.DataNascimento); err == nil {
			patient.BirthDate = &parsed
		}
	}
	if record.CriadoEm != "" {
		if parsed, err := time.Parse(time.RFC3339, record.CriadoEm); err == nil {
			patient.CreatedAt = parsed
		}
	}
	if record.AtualizadoEm != "" {
		if parsed, err := time.Parse(time.RFC3339, record.AtualizadoEm); err == nil {
			patient.UpdatedAt = parsed
		}
	}
	return patient
}

func patientToRecord(patient *Patient) patientRecord {
	record := patientRecord{
		NomeCompleto:      patient.CanonicalName,
		SlugDiretorio:     patient.Slug,
		NomesAlternativos: patient.Aliases,
		Genero:            string(patient.Gender),
		ConfiancaNome:     patient.Confidence,
		OrigemCriacao:     string(patient.Origin),
	}
	if record.NomesAlternativos == nil {
		record.NomesAlternativos = []string{}
	}
	if patient.BirthDate != nil {
		record.DataNascimento = patient.BirthDate.Format("2006-01-02")
	}
	if !patient.CreatedAt.IsZero() {
		record.CriadoEm = patient.CreatedAt.UTC().Format(time.RFC3339)
	}
	if !patient.UpdatedAt.IsZero() {
		record.AtualizadoEm = patient.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return record
}

// MemoryStore keeps patients in memory. Used by tests and dry runs.
type MemoryStore struct {
	patients []*Patient
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Load() ([]*Patient, error) {
	out := make([]*Patient, len(s.patients))
	copy(out, s.patients)
	return out, nil
}

func (s *MemoryStore) Save(list []*Patient) error {
	s.patients = make([]*Patient, len(list))
	copy(s.patients, list)
	return nil
}
