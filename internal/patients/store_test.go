package patients_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"clinikondo/internal/logging"
	"clinikondo/internal/patients"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "patients.json")
	store := patients.NewFileStore(path, logging.NewNop())

	birth := time.Date(1960, 5, 1, 0, 0, 0, 0, time.UTC)
	input := []*patients.Patient{
		{
			CanonicalName: "José da Silva",
			Slug:          "jose_da_silva",
			Aliases:       []string{"Zé"},
			Gender:        patients.GenderMale,
			BirthDate:     &birth,
			CreatedAt:     time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
			Confidence:    1.0,
			Origin:        patients.OriginManualAdd,
		},
		{CanonicalName: "Compartilhado", Slug: "compartilhado"},
	}
	if err := store.Save(input); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("loaded %d patients, want 2", len(loaded))
	}
	got := loaded[0]
	if got.CanonicalName != "José da Silva" || got.Slug != "jose_da_silva" {
		t.Errorf("first patient = %+v", got)
	}
	if len(got.Aliases) != 1 || got.Aliases[0] != "Zé" {
		t.Errorf("aliases = %v", got.Aliases)
	}
	if got.BirthDate == nil || !got.BirthDate.Equal(birth) {
		t.Errorf("birth date = %v, want %v", got.BirthDate, birth)
	}
	if got.Origin != patients.OriginManualAdd {
		t.Errorf("origin = %q", got.Origin)
	}
}

func TestFileStoreWritesLegacyFieldNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patients.json")
	store := patients.NewFileStore(path, logging.NewNop())
	if err := store.Save([]*patients.Patient{{CanonicalName: "Ana", Slug: "ana"}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	for _, field := range []string{"nome_completo", "slug_diretorio", "nomes_alternativos"} {
		if !strings.Contains(string(data), field) {
			t.Errorf("expected field %q in %s", field, data)
		}
	}
}

func TestFileStoreMissingFileIsEmpty(t *testing.T) {
	store := patients.NewFileStore(filepath.Join(t.TempDir(), "absent.json"), logging.NewNop())
	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("expected empty registry, got %d", len(loaded))
	}
}

func TestFileStoreCorruptFileRecoversEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patients.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	store := patients.NewFileStore(path, logging.NewNop())
	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("corrupt store must not be fatal: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("expected empty registry, got %d", len(loaded))
	}
}

func TestFileStoreSkipsMalformedEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patients.json")
	payload := `[
  {"nome_completo": "Ana", "slug_diretorio": "ana", "nomes_alternativos": []},
  {"nome_completo": "", "slug_diretorio": "vazio", "nomes_alternativos": []},
  {"slug_diretorio": "", "nome_completo": "Sem Slug"}
]`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	store := patients.NewFileStore(path, logging.NewNop())
	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 1 || loaded[0].Slug != "ana" {
		t.Errorf("expected only the valid entry, got %+v", loaded)
	}
}
