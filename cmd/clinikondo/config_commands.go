package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"clinikondo/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}
			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}
			if err := config.CreateSample(target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sample configuration written to %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVar(&targetPath, "path", "", "Where to write the sample configuration")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "input_dir   = %s\n", cfg.Paths.InputDir)
			fmt.Fprintf(out, "output_dir  = %s\n", cfg.Paths.OutputDir)
			fmt.Fprintf(out, "log_dir     = %s\n", cfg.Paths.LogDir)
			fmt.Fprintf(out, "extractor   = %s\n", cfg.Processing.Extractor)
			fmt.Fprintf(out, "move        = %t\n", cfg.Processing.MoveOriginal)
			fmt.Fprintf(out, "dry_run     = %t\n", cfg.Processing.DryRun)
			fmt.Fprintf(out, "on_duplicate = %s\n", cfg.Processing.OnDuplicate)
			fmt.Fprintf(out, "fuzzy_threshold = %.2f\n", cfg.Matching.FuzzyThreshold)
			if cfg.LLM.APIKey != "" {
				fmt.Fprintf(out, "llm.model   = %s\n", cfg.LLM.Model)
				fmt.Fprintln(out, "llm.api_key = (set)")
			}
			return nil
		},
	}
}
