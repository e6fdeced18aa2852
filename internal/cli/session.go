package cli

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/imyousuf/metricscarpet/internal/config"
	"github.com/imyousuf/metricscarpet/internal/experiment"
	"github.com/imyousuf/metricscarpet/internal/invoke"
	"github.com/imyousuf/metricscarpet/internal/logging"
	"github.com/imyousuf/metricscarpet/internal/table"
	"github.com/imyousuf/metricscarpet/internal/toolset"
)

// env is the loaded configuration plus everything derived from it.
type env struct {
	cfg  *config.Config
	log  *zap.SugaredLogger
	opts toolset.Options
}

func loadEnv(g *globalFlags) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log := logging.New(logging.Options{
		Verbosity: g.verbosity,
		JSON:      g.logJSON,
		Output:    os.Stderr,
	})

	root := cfg.Tools.Root
	if root == "" {
		root = toolset.DefaultToolsRoot()
	}
	manifest, err := toolset.LoadManifest(root)
	if err != nil {
		return nil, fmt.Errorf("load tools manifest: %w", err)
	}

	return &env{
		cfg: cfg,
		log: log,
		opts: toolset.Options{
			Invoker:              &invoke.ExecInvoker{Timeout: cfg.Tools.Timeout},
			ToolsRoot:            root,
			Manifest:             manifest,
			TempDir:              cfg.Tools.TempDir,
			Logger:               log,
			PMDArgs:              cfg.PMD.Args,
			MatlabExecutable:     cfg.Matlab.Executable,
			MatlabFieldPositions: cfg.Matlab.FieldPositions,
			EstimatorExclude:     cfg.Estimator.Exclude,
		},
	}, nil
}

// session collects the tables of one command run. With badger storage
// every table is also appended to the persistent experiment.
type session struct {
	run   *experiment.Experiment
	store *experiment.Store
}

func (e *env) openSession(name string) (*session, error) {
	if name == "" {
		name = e.cfg.Experiment.Name
	}
	s := &session{run: experiment.New(name)}
	if e.cfg.Experiment.Storage != config.StorageBadger {
		return s, nil
	}

	store, err := experiment.OpenStore(e.cfg.Experiment.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open experiment store: %w", err)
	}
	s.store = store
	if err := config.RegisterExperiment(name, e.cfg.Experiment.DBPath); err != nil {
		e.log.Warnw("could not register experiment", "experiment", name, "registry", config.RegistryPath(), "error", err)
	}
	return s, nil
}

// Sink returns the sink tools of this session are attached to.
func (s *session) Sink() experiment.Sink {
	if s.store == nil {
		return s.run
	}
	persist := s.store.Sink(s.run.Name())
	return experiment.SinkFunc(func(ctx context.Context, t *table.Table) error {
		if err := persist.Aggregate(ctx, t); err != nil {
			return err
		}
		return s.run.Aggregate(ctx, t)
	})
}

func (s *session) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}

// openStore opens the badger store holding the named experiment, preferring
// the path recorded in the experiment registry.
func (e *env) openStore(name string) (*experiment.Store, string, error) {
	dbPath := e.cfg.Experiment.DBPath
	if entry, ok := config.LookupExperiment(name); ok && entry.DBPath != "" {
		dbPath = entry.DBPath
	}
	store, err := experiment.OpenStore(dbPath)
	if err != nil {
		return nil, "", fmt.Errorf("open experiment store %s: %w", dbPath, err)
	}
	return store, dbPath, nil
}

// latest merges the tables the session received after the first n.
func latest(s *session, n int) *table.Table {
	tables := s.run.Tables()
	if n > len(tables) {
		n = len(tables)
	}
	return table.Merge(tables[n:]...)
}
