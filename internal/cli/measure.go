package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/imyousuf/metricscarpet/internal/experiment"
	"github.com/imyousuf/metricscarpet/internal/languages"
	"github.com/imyousuf/metricscarpet/internal/toolset"
)

// target is what one measurement run analyzes.
type target struct {
	product toolset.Product
	// file scopes the run to product.Location as a single source file.
	file bool
}

func newMeasureCmd(g *globalFlags) *cobra.Command {
	var (
		toolNames  []string
		language   string
		singleFile bool
		expName    string
		format     string
	)

	cmd := &cobra.Command{
		Use:   "measure <path>",
		Short: "Measure a product with one or more tools",
		Long: `Run the selected tools against a product and print the merged
measurement table.

Without --tool every tool supporting the product language runs. Tools run
concurrently; the first failure cancels the rest. With badger storage the
tables are also appended to the experiment named by --experiment.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			e, err := loadEnv(g)
			if err != nil {
				return err
			}

			tgt, err := newTarget(args[0], language, singleFile)
			if err != nil {
				return err
			}

			sess, err := e.openSession(expName)
			if err != nil {
				return err
			}
			defer sess.Close()

			tools, err := selectTools(e.opts, sess.Sink(), toolNames, tgt.product.Language)
			if err != nil {
				return err
			}

			if err := runTools(cmd.Context(), tools, tgt); err != nil {
				return err
			}
			e.log.Infow("measurement complete",
				"experiment", sess.run.Name(),
				"tables", sess.run.Len(),
				"persisted", sess.store != nil)

			return renderTable(cmd.OutOrStdout(), sess.run.Frame(), format)
		},
	}

	cmd.Flags().StringSliceVarP(&toolNames, "tool", "t", nil, "tool to run (repeatable; default: all tools for the language)")
	cmd.Flags().StringVarP(&language, "language", "l", "", "product language (default: detected)")
	cmd.Flags().BoolVar(&singleFile, "file", false, "treat <path> as a single source file")
	cmd.Flags().StringVarP(&expName, "experiment", "e", "", "experiment name (default: experiment.name from config)")
	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "output format: table, csv or json")

	return cmd
}

func newTarget(path, language string, file bool) (target, error) {
	if !file {
		p, err := toolset.NewProduct(path, language)
		if err != nil {
			return target{}, err
		}
		return target{product: p}, nil
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return target{}, fmt.Errorf("resolve %s: %w", path, err)
	}
	lang := languages.Normalize(language)
	if lang == "" {
		lang = languages.FromPath(abs)
	}
	return target{
		product: toolset.Product{Name: filepath.Base(abs), Location: abs, Language: lang},
		file:    true,
	}, nil
}

// selectTools builds the named tools, or every tool supporting language
// when no names are given, all attached to sink.
func selectTools(opts toolset.Options, sink experiment.Sink, names []string, language string) ([]toolset.Tool, error) {
	opts.Sink = sink
	if len(names) == 0 {
		reg := toolset.Builtin(opts)
		tools := reg.ForLanguage(language)
		if len(tools) == 0 {
			return nil, errors.WithHintf(
				errors.Newf("no tool supports language %q", language),
				"supported languages: %s", strings.Join(reg.SupportedLanguages(), ", "))
		}
		return tools, nil
	}

	seen := make(map[string]bool, len(names))
	var tools []toolset.Tool
	for _, name := range names {
		t, err := toolset.Lookup(name, opts)
		if err != nil {
			return nil, err
		}
		if seen[t.Name()] {
			continue
		}
		seen[t.Name()] = true
		tools = append(tools, t)
	}
	return tools, nil
}

// runTools measures tgt with every tool concurrently.
func runTools(ctx context.Context, tools []toolset.Tool, tgt target) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, t := range tools {
		g.Go(func() error {
			var err error
			if tgt.file {
				err = t.MeasureFile(gctx, tgt.product.Location)
			} else {
				err = t.Measure(gctx, tgt.product)
			}
			if err != nil {
				return fmt.Errorf("%s: %w", t.Name(), err)
			}
			return nil
		})
	}
	return g.Wait()
}
