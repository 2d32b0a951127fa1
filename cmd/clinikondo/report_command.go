package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"clinikondo/internal/journal"
)

func newReportCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var showDocuments bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize filed documents and recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := ctx.openLedger()
			if err != nil {
				return err
			}
			journalStore, err := ctx.openJournal()
			if err != nil {
				return err
			}
			defer journalStore.Close()

			out := cmd.OutOrStdout()
			stats := ledger.GetStatistics()
			fmt.Fprintf(out, "Documentos arquivados: %d\n\n", stats.Total)

			if len(stats.ByType) > 0 {
				rows := make([][]string, 0, len(stats.ByType))
				for _, typeName := range sortedKeys(stats.ByType) {
					rows = append(rows, []string{typeName, strconv.Itoa(stats.ByType[typeName])})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Tipo", "Total"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				))
			}
			if len(stats.ByPatient) > 0 {
				rows := make([][]string, 0, len(stats.ByPatient))
				for _, slug := range sortedKeys(stats.ByPatient) {
					rows = append(rows, []string{slug, strconv.Itoa(stats.ByPatient[slug])})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Paciente", "Total"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				))
			}

			runs, err := journalStore.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "Nenhuma execução registrada.")
				return nil
			}
			runRows := make([][]string, 0, len(runs))
			for _, run := range runs {
				runRows = append(runRows, []string{
					run.StartedAt.Local().Format(time.DateTime),
					boolLabel(run.DryRun, "simulação", "real"),
					strconv.Itoa(run.Processed),
					strconv.Itoa(run.Filed),
					strconv.Itoa(run.Failed),
					strconv.Itoa(run.Duplicates),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Início", "Modo", "Processados", "Arquivados", "Falhas", "Repetidos"},
				runRows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
			))

			if showDocuments {
				if err := printRunDocuments(cmd, journalStore, runs[0]); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "runs", 10, "How many recent runs to list")
	cmd.Flags().BoolVar(&showDocuments, "documents", false, "List the documents of the most recent run")
	return cmd
}

func printRunDocuments(cmd *cobra.Command, store *journal.Store, run journal.Run) error {
	documents, err := store.RunDocuments(cmd.Context(), run.ID)
	if err != nil {
		return err
	}
	if len(documents) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(documents))
	for _, document := range documents {
		detail := document.DestinationPath
		if document.Outcome == journal.OutcomeFailed {
			detail = document.Detail
		}
		rows = append(rows, []string{
			filepath.Base(document.SourcePath),
			string(document.Outcome),
			detail,
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"Documento", "Resultado", "Detalhe"},
		rows,
		nil,
	))
	return nil
}

func sortedKeys(values map[string]int) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func boolLabel(value bool, whenTrue, whenFalse string) string {
	if value {
		return whenTrue
	}
	return whenFalse
}
