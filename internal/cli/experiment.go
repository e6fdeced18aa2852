package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/imyousuf/metricscarpet/internal/config"
	"github.com/imyousuf/metricscarpet/internal/matfile"
	"github.com/imyousuf/metricscarpet/internal/table"
)

func newExperimentCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "experiment",
		Short: "Inspect, export or drop stored experiments",
		Long: `Work with experiments persisted in a badger store.

Experiments are created by 'mcarpet measure' when experiment.storage is
'badger'. Each measurement appends one batch; the experiment frame is the
merge of all its batches in measurement order.`,
	}

	cmd.AddCommand(newExperimentListCmd(g))
	cmd.AddCommand(newExperimentShowCmd(g))
	cmd.AddCommand(newExperimentExportCmd(g))
	cmd.AddCommand(newExperimentDropCmd(g))

	return cmd
}

func newExperimentListCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the experiments in the configured store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(g)
			if err != nil {
				return err
			}
			store, dbPath, err := e.openStore("")
			if err != nil {
				return err
			}
			defer store.Close()

			infos, err := store.Experiments(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out)
			printTitle(out, "Experiments")
			printKV(out, "Store", dbPath)
			fmt.Fprintln(out)
			if len(infos) == 0 {
				fmt.Fprintln(out, "    (none)")
			}
			for _, info := range infos {
				printSection(out, info.Name)
				printKV(out, "Created", info.Created.Local().Format(time.RFC3339))
				printKV(out, "Batches", fmt.Sprintf("%d", info.Batches))
			}

			// Registered experiments living in other stores.
			var others []config.ExperimentEntry
			for _, entry := range config.ListExperiments() {
				if entry.DBPath != dbPath {
					others = append(others, entry)
				}
			}
			if len(others) > 0 {
				fmt.Fprintln(out)
				printSection(out, "Elsewhere")
				for _, entry := range others {
					printKV(out, entry.Name, entry.DBPath)
				}
			}
			fmt.Fprintln(out)
			return nil
		},
	}
}

func newExperimentShowCmd(g *globalFlags) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Print the merged frame of an experiment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			frame, err := loadFrame(cmd, g, args[0])
			if err != nil {
				return err
			}
			return renderTable(cmd.OutOrStdout(), frame, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "output format: table, csv or json")
	return cmd
}

// Export formats.
const (
	exportCSV = "csv"
	exportMAT = "mat"
)

// matVariable names the struct array written by a MAT export.
const matVariable = "measures"

func newExperimentExportCmd(g *globalFlags) *cobra.Command {
	var output, format string

	cmd := &cobra.Command{
		Use:   "export <name>",
		Short: "Write the merged frame of an experiment as CSV or a MAT-file",
		Long: `Write the merged frame of an experiment.

With --format mat the frame becomes an Nx1 struct array named 'measures'
in a compressed MAT-file, one element per row and one field per column.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != exportCSV && format != exportMAT {
				return fmt.Errorf("unknown export format %q (want csv or mat)", format)
			}
			frame, err := loadFrame(cmd, g, args[0])
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				return writeExport(cmd.OutOrStdout(), frame, format)
			}

			if err := exportFile(output, frame, format); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d rows to %s\n", frame.Len(), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "destination file (default: stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", exportCSV, "export format: csv or mat")
	return cmd
}

func writeExport(w io.Writer, frame *table.Table, format string) error {
	if format == exportMAT {
		return matfile.NewWriter(w, true).Write(table.StructArray(matVariable, frame))
	}
	return table.WriteCSV(w, frame)
}

func exportFile(path string, frame *table.Table, format string) error {
	if format == exportMAT {
		return matfile.WriteFile(path, true, table.StructArray(matVariable, frame))
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := table.WriteCSV(f, frame); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func newExperimentDropCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "drop <name>",
		Short: "Delete an experiment and all of its batches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(g)
			if err != nil {
				return err
			}
			name := args[0]
			store, _, err := e.openStore(name)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Drop(cmd.Context(), name); err != nil {
				return fmt.Errorf("drop %s: %w", name, err)
			}
			if err := config.UnregisterExperiment(name); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to unregister %q from %s: %v\n", name, config.RegistryPath(), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Dropped experiment %q\n", name)
			return nil
		},
	}
}

func loadFrame(cmd *cobra.Command, g *globalFlags, name string) (*table.Table, error) {
	e, err := loadEnv(g)
	if err != nil {
		return nil, err
	}
	store, _, err := e.openStore(name)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	batches, err := store.Batches(cmd.Context(), name)
	if err != nil {
		return nil, err
	}
	if len(batches) == 0 {
		return nil, fmt.Errorf("experiment %q has no measurements", name)
	}
	tables := make([]*table.Table, len(batches))
	for i, b := range batches {
		tables[i] = b.Table
	}
	return table.Merge(tables...), nil
}
