package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/imyousuf/metricscarpet/internal/config"
	"github.com/imyousuf/metricscarpet/internal/toolset"
)

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long: `Display the configuration mcarpet would run with: the config file,
MCARPET_* environment variables and built-in defaults, merged.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out)
			printTitle(out, "mcarpet Configuration")
			fmt.Fprintln(out)

			if f := viper.GetString("config_file"); f != "" {
				printKV(out, "Config file", f)
				fmt.Fprintln(out)
			}

			printSection(out, "Tools")
			root := cfg.Tools.Root
			if root == "" {
				root = toolset.DefaultToolsRoot() + " (default)"
			}
			printKV(out, "Root", root)
			printKV(out, "Timeout", cfg.Tools.Timeout.String())
			if cfg.Tools.TempDir != "" {
				printKV(out, "Temp dir", cfg.Tools.TempDir)
			}
			fmt.Fprintln(out)

			printSection(out, "PMD")
			printKV(out, "Extra args", orNone(cfg.PMD.Args))
			fmt.Fprintln(out)

			printSection(out, "MATLAB")
			printKV(out, "Executable", cfg.Matlab.Executable)
			printKV(out, "Field positions", fmt.Sprint(cfg.Matlab.FieldPositions))
			fmt.Fprintln(out)

			printSection(out, "Experiment")
			printKV(out, "Name", cfg.Experiment.Name)
			printKV(out, "Storage", cfg.Experiment.Storage)
			if cfg.Experiment.Storage == config.StorageBadger {
				printKV(out, "DB path", cfg.Experiment.DBPath)
			}
			fmt.Fprintln(out)

			printSection(out, "Estimator Exclusions")
			if len(cfg.Estimator.Exclude) == 0 {
				fmt.Fprintln(out, "    (none)")
			}
			for _, pattern := range cfg.Estimator.Exclude {
				fmt.Fprintf(out, "    %s\n", pattern)
			}
			fmt.Fprintln(out)

			if err := cfg.Validate(); err != nil {
				fmt.Fprintf(out, "  %s %v\n", headerStyle.Render("Invalid:"), err)
			}
			return nil
		},
	}
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none)"
	}
	return s
}
