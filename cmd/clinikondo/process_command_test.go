package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	inputDir := filepath.Join(base, "entrada")
	outputDir := filepath.Join(base, "saida")
	logDir := filepath.Join(base, "logs")
	if err := os.MkdirAll(inputDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	configPath := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[paths]
input_dir = %q
output_dir = %q
log_dir = %q

[processing]
extractor = "rules"
`, inputDir, outputDir, logDir)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return configPath
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestProcessCommandFilesDocument(t *testing.T) {
	configPath := writeTestConfig(t)
	base := filepath.Dir(configPath)
	inputDir := filepath.Join(base, "entrada")
	outputDir := filepath.Join(base, "saida")

	document := "Paciente: Ana Souza\nExame laboratorial em 2023-01-10\nHemograma completo"
	if err := os.WriteFile(filepath.Join(inputDir, "exame.txt"), []byte(document), 0o644); err != nil {
		t.Fatalf("write document: %v", err)
	}

	output, err := runCommand(t, "--config", configPath, "process")
	if err != nil {
		t.Fatalf("execute: %v\n%s", err, output)
	}
	if !strings.Contains(output, "1 arquivados") {
		t.Errorf("output = %s", output)
	}

	destDir := filepath.Join(outputDir, "ana_souza", "exames")
	entries, err := os.ReadDir(destDir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("destination entries = %v, err = %v", entries, err)
	}
	if !strings.HasPrefix(entries[0].Name(), "2023-01-ana_souza-exame-") {
		t.Errorf("destination name = %s", entries[0].Name())
	}
}

func TestProcessCommandDryRun(t *testing.T) {
	configPath := writeTestConfig(t)
	base := filepath.Dir(configPath)
	inputDir := filepath.Join(base, "entrada")
	outputDir := filepath.Join(base, "saida")

	if err := os.WriteFile(filepath.Join(inputDir, "exame.txt"), []byte("Paciente: Ana\nExame"), 0o644); err != nil {
		t.Fatalf("write document: %v", err)
	}

	output, err := runCommand(t, "--config", configPath, "process", "--dry-run")
	if err != nil {
		t.Fatalf("execute: %v\n%s", err, output)
	}
	if !strings.Contains(output, "seria arquivado") {
		t.Errorf("output = %s", output)
	}
	if _, err := os.Stat(filepath.Join(outputDir, "ana")); !os.IsNotExist(err) {
		t.Errorf("dry run must not create patient folders, stat err = %v", err)
	}
}

func TestPatientsAddAndList(t *testing.T) {
	configPath := writeTestConfig(t)

	output, err := runCommand(t, "--config", configPath, "patients", "add", "Maria Auxiliadora", "--alias", "Maria A.")
	if err != nil {
		t.Fatalf("add: %v\n%s", err, output)
	}
	if !strings.Contains(output, "maria_auxiliadora") {
		t.Errorf("add output = %s", output)
	}

	output, err = runCommand(t, "--config", configPath, "patients", "list")
	if err != nil {
		t.Fatalf("list: %v\n%s", err, output)
	}
	if !strings.Contains(output, "Maria Auxiliadora") || !strings.Contains(output, "Maria A.") {
		t.Errorf("list output = %s", output)
	}
}
