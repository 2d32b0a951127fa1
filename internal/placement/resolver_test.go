package placement_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"clinikondo/internal/placement"
	"clinikondo/internal/services"
)

func TestDestinationDir(t *testing.T) {
	resolver := placement.NewResolver("/out")
	if got := resolver.DestinationDir("jose_da_silva", "exames", false); got != filepath.Join("/out", "jose_da_silva", "exames") {
		t.Errorf("DestinationDir = %q", got)
	}
	if got := resolver.DestinationDir("compartilhado", "laudos", true); got != filepath.Join("/out", "compartilhado", "compartilhado", "laudos") {
		t.Errorf("shared DestinationDir = %q", got)
	}
}

func TestUniqueDestinationProbesSuffixes(t *testing.T) {
	dir := t.TempDir()
	resolver := placement.NewResolver(dir)
	target := filepath.Join(dir, "2023-03-ana-exame-geral-hemograma.pdf")

	if got := resolver.UniqueDestination(target); got != target {
		t.Errorf("unused target should pass through, got %q", got)
	}

	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	first := resolver.UniqueDestination(target)
	want := filepath.Join(dir, "2023-03-ana-exame-geral-hemograma-1.pdf")
	if first != want {
		t.Errorf("first collision = %q, want %q", first, want)
	}

	if err := os.WriteFile(first, []byte("y"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	second := resolver.UniqueDestination(target)
	want = filepath.Join(dir, "2023-03-ana-exame-geral-hemograma-2.pdf")
	if second != want {
		t.Errorf("second collision = %q, want %q", second, want)
	}
}

func TestEnsureWithinRoot(t *testing.T) {
	root := t.TempDir()
	resolver := placement.NewResolver(root)

	if err := resolver.EnsureWithinRoot(filepath.Join(root, "ana", "exames", "doc.pdf")); err != nil {
		t.Errorf("inside root rejected: %v", err)
	}

	err := resolver.EnsureWithinRoot(filepath.Join(root, "..", "escape.pdf"))
	if !errors.Is(err, services.ErrUnsafePath) {
		t.Errorf("traversal should be unsafe, got %v", err)
	}

	err = resolver.EnsureWithinRoot("/etc/passwd")
	if !errors.Is(err, services.ErrUnsafePath) {
		t.Errorf("absolute escape should be unsafe, got %v", err)
	}
}

func TestEnsureWithinRootRejectsSymlinkEscape(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "out")
	outside := filepath.Join(base, "elsewhere")
	for _, dir := range []string{root, outside} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	link := filepath.Join(root, "paciente")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	resolver := placement.NewResolver(root)
	err := resolver.EnsureWithinRoot(filepath.Join(link, "exames", "doc.pdf"))
	if !errors.Is(err, services.ErrUnsafePath) {
		t.Errorf("symlink escape should be unsafe, got %v", err)
	}
}
