package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"clinikondo/internal/patients"
)

func newPatientsCommand(ctx *commandContext) *cobra.Command {
	patientsCmd := &cobra.Command{
		Use:   "patients",
		Short: "Manage the patient registry",
	}

	patientsCmd.AddCommand(newPatientsListCommand(ctx))
	patientsCmd.AddCommand(newPatientsAddCommand(ctx))
	patientsCmd.AddCommand(newPatientsEditCommand(ctx))
	patientsCmd.AddCommand(newPatientsRemoveCommand(ctx))
	patientsCmd.AddCommand(newPatientsAliasCommand(ctx))
	patientsCmd.AddCommand(newPatientsMergeCommand(ctx))
	patientsCmd.AddCommand(newPatientsDuplicatesCommand(ctx))

	return patientsCmd
}

func newPatientsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered patients",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := ctx.openRegistry()
			if err != nil {
				return err
			}
			entries := registry.List()
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nenhum paciente registrado.")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, patient := range entries {
				rows = append(rows, []string{
					patient.Slug,
					patient.CanonicalName,
					strings.Join(patient.Aliases, ", "),
					string(patient.Origin),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Slug", "Nome", "Nomes alternativos", "Origem"},
				rows,
				nil,
			))
			return nil
		},
	}
}

func newPatientsAddCommand(ctx *commandContext) *cobra.Command {
	var aliases []string

	cmd := &cobra.Command{
		Use:   "add <nome completo>",
		Short: "Register a patient manually",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := ctx.openRegistry()
			if err != nil {
				return err
			}
			name := strings.Join(args, " ")
			patient := registry.EnsurePatient(name, true, patients.OriginManualAdd)
			if patient == nil {
				return fmt.Errorf("could not register %q", name)
			}
			for _, alias := range aliases {
				if err := registry.AddAlias(patient.Slug, alias); err != nil {
					return err
				}
			}
			if err := registry.Save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Paciente %s registrado como %s\n", patient.CanonicalName, patient.Slug)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&aliases, "alias", nil, "Alternate name (repeatable)")
	return cmd
}

func newPatientsEditCommand(ctx *commandContext) *cobra.Command {
	var name string
	var gender string

	cmd := &cobra.Command{
		Use:   "edit <slug>",
		Short: "Edit a registered patient",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := ctx.openRegistry()
			if err != nil {
				return err
			}
			slug := args[0]
			update := patients.PatientUpdate{
				CanonicalName: strings.TrimSpace(name),
				Gender:        patients.Gender(strings.ToUpper(strings.TrimSpace(gender))),
			}
			if !registry.UpdatePatient(slug, update) {
				return fmt.Errorf("patient %q not found", slug)
			}
			if err := registry.Save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Paciente %s atualizado\n", slug)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New canonical name")
	cmd.Flags().StringVar(&gender, "gender", "", "Gender (M, F or O)")
	return cmd
}

func newPatientsRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <slug>",
		Short: "Remove a patient from the registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := ctx.openRegistry()
			if err != nil {
				return err
			}
			if !registry.RemovePatient(args[0]) {
				return fmt.Errorf("patient %q not found", args[0])
			}
			if err := registry.Save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Paciente %s removido\n", args[0])
			return nil
		},
	}
}

func newPatientsAliasCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "alias <slug> <nome alternativo>",
		Short: "Attach an alternate name to a patient",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := ctx.openRegistry()
			if err != nil {
				return err
			}
			slug := args[0]
			alias := strings.Join(args[1:], " ")
			if err := registry.AddAlias(slug, alias); err != nil {
				return err
			}
			if err := registry.Save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Nome %q associado a %s\n", alias, slug)
			return nil
		},
	}
}

func newPatientsMergeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "merge <slug origem> <slug destino>",
		Short: "Merge one patient into another",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := ctx.openRegistry()
			if err != nil {
				return err
			}
			if err := registry.MergePatients(args[0], args[1]); err != nil {
				return err
			}
			if err := registry.Save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Paciente %s incorporado em %s\n", args[0], args[1])
			return nil
		},
	}
}

func newPatientsDuplicatesCommand(ctx *commandContext) *cobra.Command {
	var threshold float64

	cmd := &cobra.Command{
		Use:   "duplicates",
		Short: "Report possible duplicate identities",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := ctx.openRegistry()
			if err != nil {
				return err
			}
			pairs := registry.DetectPossibleDuplicates(threshold)
			if len(pairs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nenhuma possível duplicata encontrada.")
				return nil
			}
			rows := make([][]string, 0, len(pairs))
			for _, pair := range pairs {
				rows = append(rows, []string{
					pair.A.Slug,
					pair.B.Slug,
					strconv.FormatFloat(pair.Score, 'f', 2, 64),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Paciente A", "Paciente B", "Similaridade"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", 0.85, "Similarity threshold")
	return cmd
}
