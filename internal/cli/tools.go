package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/imyousuf/metricscarpet/internal/measures"
	"github.com/imyousuf/metricscarpet/internal/toolset"
)

func newToolsCmd(g *globalFlags) *cobra.Command {
	var measure string

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the available tools, their languages and measures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var want measures.Measure
			if measure != "" {
				m, err := measures.Parse(measure)
				if err != nil {
					return errors.WithHintf(err, "known measures: %s", strings.Join(measureNames(), ", "))
				}
				want = m
			}
			e, err := loadEnv(g)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out)
			printTitle(out, "Tools")
			fmt.Fprintln(out)
			printKV(out, "Tools root", e.opts.ToolsRoot)
			fmt.Fprintln(out)

			for _, t := range toolset.ListTools(e.opts) {
				if want != "" && !slices.Contains(t.Measures(), want) {
					continue
				}
				printSection(out, t.Name())
				printKV(out, "Languages", strings.Join(t.Languages(), ", "))
				for _, m := range t.Measures() {
					id, err := t.ResolveNativeIdentifier(m)
					if err != nil {
						return err
					}
					printKV(out, string(m), id)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&measure, "measure", "m", "", "only list tools producing this measure")
	return cmd
}

func measureNames() []string {
	all := measures.All()
	names := make([]string, len(all))
	for i, m := range all {
		names[i] = string(m)
	}
	return names
}
