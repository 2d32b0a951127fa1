package patients_test

import (
	"errors"
	"testing"

	"clinikondo/internal/logging"
	"clinikondo/internal/patients"
	"clinikondo/internal/services"
)

func newRegistry(t *testing.T) *patients.Registry {
	t.Helper()
	registry, err := patients.NewRegistry(patients.NewMemoryStore(), logging.NewNop())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return registry
}

func TestMatchExactIgnoresCaseAndAccents(t *testing.T) {
	registry := newRegistry(t)
	created := registry.EnsurePatient("José da Silva", true, patients.OriginManualAdd)
	if created == nil {
		t.Fatal("expected patient")
	}

	for _, name := range []string{"josé da silva", "JOSE DA SILVA", "Jose  da  Silva"} {
		if got := registry.MatchExact(name); got != created {
			t.Errorf("MatchExact(%q) = %v, want %s", name, got, created.Slug)
		}
	}
	if got := registry.MatchExact("Maria Souza"); got != nil {
		t.Errorf("MatchExact(unknown) = %v, want nil", got)
	}
}

func TestMatchMatchesAliases(t *testing.T) {
	registry := newRegistry(t)
	created := registry.EnsurePatient("José da Silva", true, patients.OriginManualAdd)
	if err := registry.AddAlias(created.Slug, "Zé da Silva"); err != nil {
		t.Fatalf("AddAlias: %v", err)
	}
	if got := registry.Match("ze da silva"); got != created {
		t.Errorf("Match(alias) = %v, want %s", got, created.Slug)
	}
}

func TestMatchWidensToFuzzy(t *testing.T) {
	registry := newRegistry(t)
	created := registry.EnsurePatient("José da Silva Santos", true, patients.OriginManualAdd)

	// One dropped letter stays above the 0.90 threshold.
	if got := registry.Match("José da Silva Santo"); got != created {
		t.Error("expected fuzzy fallback to resolve near match")
	}
	if got := registry.Match("Carlos Pereira"); got != nil {
		t.Errorf("Match(distant name) = %v, want nil", got)
	}
}

func TestFuzzyMatchScoresAndOrder(t *testing.T) {
	registry := newRegistry(t)
	exact := registry.EnsurePatient("Maria Clara", true, patients.OriginManualAdd)
	registry.EnsurePatient("Mario Claro", true, patients.OriginManualAdd)

	matches := registry.FuzzyMatch("Maria Clara", 0.5)
	if len(matches) < 2 {
		t.Fatalf("expected both candidates, got %d", len(matches))
	}
	if matches[0].Patient != exact || matches[0].Score != 1.0 {
		t.Errorf("best match = %s score %v, want %s score 1.0", matches[0].Patient.Slug, matches[0].Score, exact.Slug)
	}
	if matches[1].Score > matches[0].Score {
		t.Error("matches not sorted by descending score")
	}
}

func TestMatchInText(t *testing.T) {
	registry := newRegistry(t)
	created := registry.EnsurePatient("José da Silva", true, patients.OriginManualAdd)

	text := "Paciente: José da Silva\nData: 12/03/2023\nExame de sangue realizado."
	if got := registry.MatchInText(text); got != created {
		t.Errorf("MatchInText = %v, want %s", got, created.Slug)
	}
	if got := registry.MatchInText("laudo sem nome reconhecível"); got != nil {
		t.Errorf("MatchInText(no names) = %v, want nil", got)
	}
}

func TestEnsurePatientSlugCollisions(t *testing.T) {
	registry := newRegistry(t)
	// Distinct people whose names slugify identically.
	first := registry.EnsurePatient("Ana Souza", true, patients.OriginManualAdd)
	second := registry.EnsurePatient("Ana! Souza?", false, patients.OriginManualAdd)
	if second != first {
		t.Fatal("punctuation variant should match the existing patient")
	}

	// Force collisions by removing matchability: register, rename, repeat.
	slugs := []string{first.Slug}
	for i := 0; i < 2; i++ {
		previous := registry.GetBySlug(slugs[len(slugs)-1])
		registry.UpdatePatient(previous.Slug, patients.PatientUpdate{CanonicalName: "Renomeada"})
		created := registry.EnsurePatient("Ana Souza", true, patients.OriginManualAdd)
		slugs = append(slugs, created.Slug)
	}
	want := []string{"ana_souza", "ana_souza-2", "ana_souza-3"}
	for i, slug := range slugs {
		if slug != want[i] {
			t.Errorf("slug[%d] = %q, want %q", i, slug, want[i])
		}
	}
}

func TestEnsurePatientNoCreate(t *testing.T) {
	registry := newRegistry(t)
	if got := registry.EnsurePatient("Desconhecido Total", false, patients.OriginManualAdd); got != nil {
		t.Errorf("expected nil without creation, got %v", got)
	}
	if registry.Count() != 0 {
		t.Errorf("registry should stay empty, has %d", registry.Count())
	}
}

func TestAddAliasExclusivity(t *testing.T) {
	registry := newRegistry(t)
	a := registry.EnsurePatient("José da Silva", true, patients.OriginManualAdd)
	b := registry.EnsurePatient("Carlos Pereira", true, patients.OriginManualAdd)

	if err := registry.AddAlias(a.Slug, "Zé"); err != nil {
		t.Fatalf("AddAlias: %v", err)
	}
	// Same alias on the same patient is a no-op.
	if err := registry.AddAlias(a.Slug, "Zé"); err != nil {
		t.Fatalf("re-adding alias should succeed: %v", err)
	}
	if len(a.Aliases) != 1 {
		t.Errorf("alias duplicated: %v", a.Aliases)
	}

	err := registry.AddAlias(b.Slug, "Zé")
	if !errors.Is(err, services.ErrAliasConflict) {
		t.Fatalf("expected alias conflict, got %v", err)
	}
	if len(b.Aliases) != 0 {
		t.Errorf("conflicting alias must leave patient unchanged: %v", b.Aliases)
	}
}

func TestMergePatients(t *testing.T) {
	registry := newRegistry(t)
	source := registry.EnsurePatient("Jose Silva", true, patients.OriginManualAdd)
	target := registry.EnsurePatient("Carlos Distinto", true, patients.OriginManualAdd)
	if err := registry.AddAlias(source.Slug, "Zeca"); err != nil {
		t.Fatalf("AddAlias: %v", err)
	}

	if err := registry.MergePatients(source.Slug, target.Slug); err != nil {
		t.Fatalf("MergePatients: %v", err)
	}
	if registry.GetBySlug(source.Slug) != nil {
		t.Error("source should be deleted after merge")
	}
	if !target.HasAlias("Zeca") || !target.HasAlias("Jose Silva") {
		t.Errorf("target aliases incomplete: %v", target.Aliases)
	}
	seen := map[string]bool{}
	for _, alias := range target.Aliases {
		if seen[alias] {
			t.Errorf("duplicate alias after merge: %q", alias)
		}
		seen[alias] = true
	}

	if err := registry.MergePatients("unknown", target.Slug); err == nil {
		t.Error("expected error merging unknown slug")
	}
}

func TestDetectPossibleDuplicates(t *testing.T) {
	registry := newRegistry(t)
	registry.EnsurePatient("Jose da Silva", true, patients.OriginManualAdd)
	// Bypass matching so the near-identical name actually gets registered.
	twin := registry.EnsurePatient("Temporario", true, patients.OriginManualAdd)
	registry.UpdatePatient(twin.Slug, patients.PatientUpdate{CanonicalName: "Jose da Silvas"})
	registry.EnsurePatient("Carlos Pereira", true, patients.OriginManualAdd)

	pairs := registry.DetectPossibleDuplicates(0.85)
	if len(pairs) != 1 {
		t.Fatalf("expected one duplicate pair, got %d", len(pairs))
	}
	if pairs[0].Score < 0.85 {
		t.Errorf("pair score %v below threshold", pairs[0].Score)
	}
}

func TestRemovePatient(t *testing.T) {
	registry := newRegistry(t)
	created := registry.EnsurePatient("Ana Souza", true, patients.OriginManualAdd)
	if !registry.RemovePatient(created.Slug) {
		t.Fatal("expected removal to succeed")
	}
	if registry.RemovePatient(created.Slug) {
		t.Error("second removal should report false")
	}
	if registry.Count() != 0 {
		t.Errorf("registry should be empty, has %d", registry.Count())
	}
}
