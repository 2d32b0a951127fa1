package hashledger_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"clinikondo/internal/hashledger"
	"clinikondo/internal/logging"
)

func TestCalculateHashMatchesKnownDigest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.txt")
	if err := os.WriteFile(path, []byte("abc"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := hashledger.CalculateHash(path)
	if err != nil {
		t.Fatalf("CalculateHash: %v", err)
	}
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Errorf("hash = %s, want %s", got, want)
	}
}

func TestCalculateHashIdenticalContent(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.pdf")
	b := filepath.Join(dir, "b.pdf")
	payload := []byte("mesmo conteudo de documento")
	for _, path := range []string{a, b} {
		if err := os.WriteFile(path, payload, 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	hashA, err := hashledger.CalculateHash(a)
	if err != nil {
		t.Fatalf("hash a: %v", err)
	}
	hashB, err := hashledger.CalculateHash(b)
	if err != nil {
		t.Fatalf("hash b: %v", err)
	}
	if hashA != hashB {
		t.Errorf("identical bytes must hash equal: %s vs %s", hashA, hashB)
	}
}

func TestLedgerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hashes.json")
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ledger := hashledger.Open(path, logging.NewNop(), hashledger.WithClock(func() time.Time { return fixed }))

	ledger.AddRecord("deadbeef", "/in/a.pdf", "/out/jose/exames/a.pdf", "jose_da_silva", "exame")
	if !ledger.IsProcessed("deadbeef") {
		t.Error("expected hash to be recorded")
	}
	if err := ledger.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reopened := hashledger.Open(path, logging.NewNop())
	record, ok := reopened.GetRecord("deadbeef")
	if !ok {
		t.Fatal("record missing after reload")
	}
	if record.PatientSlug != "jose_da_silva" || record.DocumentType != "exame" {
		t.Errorf("record = %+v", record)
	}
	if record.Timestamp != fixed.Format(time.RFC3339) {
		t.Errorf("timestamp = %q", record.Timestamp)
	}
}

func TestLedgerCorruptStorageRecoversEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hashes.json")
	if err := os.WriteFile(path, []byte("corrupted!"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	ledger := hashledger.Open(path, logging.NewNop())
	if ledger.IsProcessed("anything") {
		t.Error("corrupt ledger must start empty")
	}
	if stats := ledger.GetStatistics(); stats.Total != 0 {
		t.Errorf("stats total = %d, want 0", stats.Total)
	}
}

func TestLedgerStatistics(t *testing.T) {
	ledger := hashledger.Open(filepath.Join(t.TempDir(), "hashes.json"), logging.NewNop())
	ledger.AddRecord("h1", "/in/a", "/out/a", "ana", "exame")
	ledger.AddRecord("h2", "/in/b", "/out/b", "ana", "laudo")
	ledger.AddRecord("h3", "/in/c", "/out/c", "jose", "exame")

	stats := ledger.GetStatistics()
	if stats.Total != 3 {
		t.Errorf("total = %d, want 3", stats.Total)
	}
	if stats.ByType["exame"] != 2 || stats.ByType["laudo"] != 1 {
		t.Errorf("by type = %v", stats.ByType)
	}
	if stats.ByPatient["ana"] != 2 || stats.ByPatient["jose"] != 1 {
		t.Errorf("by patient = %v", stats.ByPatient)
	}
}
