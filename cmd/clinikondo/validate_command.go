package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"clinikondo/internal/doctype"
	"clinikondo/internal/placement"
)

// newValidateCommand checks that the output tree still matches the
// layout the pipeline produces: patient folders at the root, known type
// subfolders inside them, and no stray files between levels.
func newValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the output tree for structural problems",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			registry, err := ctx.openRegistry()
			if err != nil {
				return err
			}

			catalog := doctype.NewCatalog()
			knownSubfolders := map[string]struct{}{}
			for _, docType := range catalog.Types() {
				knownSubfolders[docType.DestinationSubfolder] = struct{}{}
			}

			var problems []string
			report := func(format string, args ...any) {
				problems = append(problems, fmt.Sprintf(format, args...))
			}

			entries, err := os.ReadDir(cfg.Paths.OutputDir)
			if err != nil {
				return fmt.Errorf("read output dir: %w", err)
			}
			for _, entry := range entries {
				name := entry.Name()
				switch name {
				case filepath.Base(cfg.StateDir()), filepath.Base(cfg.DeadLetterDir()):
					continue
				}
				if !entry.IsDir() {
					report("arquivo solto na raiz: %s", name)
					continue
				}
				if name == placement.SharedRootDir {
					validateSharedTree(cfg.Paths.OutputDir, knownSubfolders, report)
					continue
				}
				if registry.GetBySlug(name) == nil {
					report("pasta sem paciente registrado: %s", name)
				}
				validatePatientTree(filepath.Join(cfg.Paths.OutputDir, name), knownSubfolders, report)
			}

			out := cmd.OutOrStdout()
			if len(problems) == 0 {
				fmt.Fprintln(out, "Estrutura de saída sem problemas.")
				return nil
			}
			for _, problem := range problems {
				fmt.Fprintln(out, problem)
			}
			return fmt.Errorf("%d problema(s) encontrado(s)", len(problems))
		},
	}
}

func validateSharedTree(outputDir string, knownSubfolders map[string]struct{}, report func(string, ...any)) {
	sharedDir := filepath.Join(outputDir, placement.SharedRootDir)
	entries, err := os.ReadDir(sharedDir)
	if err != nil {
		report("pasta compartilhada ilegível: %v", err)
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			report("arquivo solto em %s: %s", placement.SharedRootDir, entry.Name())
			continue
		}
		validatePatientTree(filepath.Join(sharedDir, entry.Name()), knownSubfolders, report)
	}
}

func validatePatientTree(patientDir string, knownSubfolders map[string]struct{}, report func(string, ...any)) {
	entries, err := os.ReadDir(patientDir)
	if err != nil {
		report("pasta de paciente ilegível %s: %v", patientDir, err)
		return
	}
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() {
			report("arquivo fora de subpasta de tipo: %s", filepath.Join(patientDir, name))
			continue
		}
		if _, ok := knownSubfolders[name]; !ok {
			report("subpasta de tipo desconhecida: %s", filepath.Join(patientDir, name))
		}
	}
}
