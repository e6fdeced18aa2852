package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/imyousuf/metricscarpet/internal/languages"
	"github.com/imyousuf/metricscarpet/internal/watcher"
)

func newWatchCmd(g *globalFlags) *cobra.Command {
	var (
		toolNames []string
		language  string
		expName   string
		format    string
	)

	cmd := &cobra.Command{
		Use:   "watch <path>",
		Short: "Re-measure a product whenever its sources change",
		Long: `Measure a product once, then watch its sources and measure it again
after every burst of changes to files the selected tools can analyze.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			e, err := loadEnv(g)
			if err != nil {
				return err
			}
			tgt, err := newTarget(args[0], language, false)
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

			w, err := watcher.New(watcher.Config{
				Paths:   []string{tgt.product.Location},
				Exclude: e.cfg.Estimator.Exclude,
				Filter: func(path string) bool {
					lang := languages.FromPath(path)
					for _, t := range tools {
						if t.Supports(lang) {
							return true
						}
					}
					return false
				},
				Logger: e.log,
			})
			if err != nil {
				return fmt.Errorf("create watcher: %w", err)
			}
			defer w.Close()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			out := cmd.OutOrStdout()
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)
			go func() {
				select {
				case <-sigCh:
					fmt.Fprintln(cmd.ErrOrStderr(), "\nShutting down...")
					cancel()
				case <-ctx.Done():
				}
			}()

			measure := func(reason string) error {
				before := sess.run.Len()
				if err := runTools(ctx, tools, tgt); err != nil {
					return err
				}
				e.log.Infow("measured", "product", tgt.product.Name, "reason", reason, "tables", sess.run.Len()-before)
				return renderTable(out, latest(sess, before), format)
			}

			if err := measure("initial"); err != nil {
				return err
			}

			changes, err := w.Start(ctx)
			if err != nil {
				return fmt.Errorf("start watcher: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s. Press Ctrl+C to stop.\n", tgt.product.Location)

			for change := range changes {
				if err := measure(fmt.Sprintf("%d changed files", len(change.Paths))); err != nil {
					if ctx.Err() != nil {
						break
					}
					// A broken intermediate state of the sources should not end the watch.
					e.log.Errorw("measurement failed", "error", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&toolNames, "tool", "t", nil, "tool to run (repeatable; default: all tools for the language)")
	cmd.Flags().StringVarP(&language, "language", "l", "", "product language (default: detected)")
	cmd.Flags().StringVarP(&expName, "experiment", "e", "", "experiment name (default: experiment.name from config)")
	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "output format: table, csv or json")

	return cmd
}
