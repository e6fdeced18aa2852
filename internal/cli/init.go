package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/imyousuf/metricscarpet/internal/config"
)

func newInitCmd() *cobra.Command {
	var (
		storage   string
		expName   string
		toolsRoot string
		dbPath    string
		force     bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a .mcarpet.yaml config file",
		Long: `Initialize mcarpet in the current directory.

Creates .mcarpet.yaml holding the default configuration, adjusted by the
flags below. With badger storage the experiment is also registered in
~/.mcarpet.conf so 'mcarpet experiment' can find it from anywhere.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("get working directory: %w", err)
			}
			configPath := filepath.Join(cwd, config.DefaultConfigFile+"."+config.DefaultConfigType)
			if _, err := os.Stat(configPath); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", configPath)
			}

			cfg := config.Default()
			cfg.Experiment.Storage = storage
			if expName != "" {
				cfg.Experiment.Name = expName
			}
			if toolsRoot != "" {
				abs, err := filepath.Abs(toolsRoot)
				if err != nil {
					return fmt.Errorf("resolve tools root: %w", err)
				}
				cfg.Tools.Root = abs
			}
			if dbPath != "" {
				cfg.Experiment.DBPath = dbPath
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			if err := config.WriteConfig(cfg, configPath); err != nil {
				return fmt.Errorf("write config file: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created %s\n", configPath)

			if cfg.Experiment.Storage == config.StorageBadger {
				if err := config.RegisterExperiment(cfg.Experiment.Name, cfg.Experiment.DBPath); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to register experiment in %s: %v\n", config.RegistryPath(), err)
				} else {
					fmt.Fprintf(out, "Registered experiment %q in %s\n", cfg.Experiment.Name, config.RegistryPath())
				}
			}

			fmt.Fprintln(out)
			fmt.Fprintln(out, "Next steps:")
			fmt.Fprintln(out, "  1. Run 'mcarpet tools' to check the tool installations")
			fmt.Fprintln(out, "  2. Run 'mcarpet measure <path>' to measure a product")
			return nil
		},
	}

	cmd.Flags().StringVar(&storage, "storage", config.StorageBadger, "experiment storage: memory or badger")
	cmd.Flags().StringVar(&expName, "experiment", "", "experiment name (default: \"default\")")
	cmd.Flags().StringVar(&toolsRoot, "tools-root", "", "directory holding tool installations")
	cmd.Flags().StringVar(&dbPath, "db-path", "", "badger directory for experiments")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")

	return cmd
}
