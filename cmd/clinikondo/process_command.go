package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"clinikondo/internal/doctype"
	"clinikondo/internal/pipeline"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool
	var moveOriginal bool

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Process the input directory and file every document",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if dryRun {
				cfg.Processing.DryRun = true
			}
			if moveOriginal {
				cfg.Processing.MoveOriginal = true
			}

			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			registry, err := ctx.openRegistry()
			if err != nil {
				return err
			}
			ledger, err := ctx.openLedger()
			if err != nil {
				return err
			}
			journalStore, err := ctx.openJournal()
			if err != nil {
				return err
			}
			defer journalStore.Close()

			catalog := doctype.NewCatalog()
			extractor, err := ctx.buildExtractor(catalog)
			if err != nil {
				return err
			}

			orchestrator, err := pipeline.New(cfg, extractor, registry, catalog, ledger, journalStore, logger)
			if err != nil {
				return err
			}
			result, err := orchestrator.Run(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, document := range result.Documents {
				name := filepath.Base(document.SourcePath)
				switch document.State {
				case pipeline.StateFailed:
					fmt.Fprintf(out, "FALHA   %s: %v\n", name, document.Err)
				case pipeline.StateSkipped:
					fmt.Fprintf(out, "REPETIDO %s (conteúdo já arquivado)\n", name)
				default:
					verb := "arquivado em"
					if result.DryRun {
						verb = "seria arquivado em"
					}
					fmt.Fprintf(out, "OK      %s %s %s\n", name, verb, document.DestinationPath)
				}
			}
			fmt.Fprintf(out, "\n%d processados: %d arquivados, %d falhas, %d repetidos\n",
				result.Processed(), result.Filed, result.Failed, result.Duplicates)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Compute destinations without touching any file")
	cmd.Flags().BoolVar(&moveOriginal, "move", false, "Move originals instead of copying them")
	return cmd
}
