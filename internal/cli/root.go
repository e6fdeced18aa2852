// Package cli implements the command-line interface for mcarpet.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// globalFlags holds the persistent flags shared by every subcommand.
type globalFlags struct {
	cfgFile   string
	verbosity int
	logJSON   bool
}

// NewRootCmd builds the mcarpet command tree.
func NewRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "mcarpet",
		Short: "mcarpet - run static-analysis tools and collect their measures",
		Long: `mcarpet runs external static-analysis tools (PMD, MATLAB, a built-in
estimator) against a software product, converts each tool's raw output into
a uniform measurement table and aggregates the tables into an experiment.

Commands:
  tools       List the available tools and what they measure
  measure     Measure a product with one or more tools
  experiment  Inspect, export or drop stored experiments
  watch       Re-measure a product whenever its sources change
  init        Write a .mcarpet.yaml config file
  config      Show the effective configuration`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&g.cfgFile, "config", "", "config file (default: .mcarpet.yaml)")
	root.PersistentFlags().CountVarP(&g.verbosity, "verbose", "v", "increase log verbosity (-v, -vv)")
	root.PersistentFlags().BoolVar(&g.logJSON, "log-json", false, "emit logs as JSON")

	if err := viper.BindPFlag("config_file", root.PersistentFlags().Lookup("config")); err != nil {
		panic(fmt.Sprintf("failed to bind config flag: %v", err))
	}

	root.AddCommand(newToolsCmd(g))
	root.AddCommand(newMeasureCmd(g))
	root.AddCommand(newExperimentCmd(g))
	root.AddCommand(newWatchCmd(g))
	root.AddCommand(newInitCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newVersionCmd())

	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
