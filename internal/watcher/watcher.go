// Package watcher reports batches of source changes below a product so it
// can be measured again.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/imyousuf/metricscarpet/internal/ignore"
)

// EventOp represents the type of file system operation.
type EventOp int

const (
	Create EventOp = iota
	Write
	Remove
	Rename
)

// String returns the string representation of EventOp.
func (op EventOp) String() string {
	switch op {
	case Create:
		return "Create"
	case Write:
		return "Write"
	case Remove:
		return "Remove"
	case Rename:
		return "Rename"
	default:
		return "Unknown"
	}
}

// Change is a settled batch of file events: nothing else changed for the
// quiet period after the last one.
type Change struct {
	// Paths lists every changed file once, sorted.
	Paths []string
	// Ops holds the last operation seen per path.
	Ops  map[string]EventOp
	Time time.Time
}

// DefaultQuiet is the settle time used when Config.Quiet is zero.
const DefaultQuiet = 500 * time.Millisecond

// Config holds configuration for the watcher.
type Config struct {
	Paths   []string
	Exclude []string
	// Quiet is how long the tree must stay unchanged before a batch is
	// reported.
	Quiet time.Duration
	// Filter, when set, drops files it returns false for.
	Filter func(path string) bool
	Logger *zap.SugaredLogger
}

// Watcher watches product trees for changes and emits settled batches.
type Watcher struct {
	cfg     Config
	matcher *ignore.Matcher
	log     *zap.SugaredLogger

	mu     sync.Mutex
	fsw    *fsnotify.Watcher
	closed bool
}

// New creates a watcher. Ignore rules are read once, at construction.
func New(cfg Config) (*Watcher, error) {
	matcher := ignore.New(cfg.Paths, cfg.Exclude)
	if err := matcher.Load(); err != nil {
		return nil, err
	}
	if cfg.Quiet <= 0 {
		cfg.Quiet = DefaultQuiet
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Watcher{cfg: cfg, matcher: matcher, log: log}, nil
}

// Start begins watching and returns the channel of batches. The channel is
// closed when ctx is cancelled or the watcher is closed.
func (w *Watcher) Start(ctx context.Context) (<-chan Change, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	w.fsw = fsw
	w.mu.Unlock()

	for _, root := range w.cfg.Paths {
		if err := w.addRecursive(root); err != nil {
			fsw.Close()
			return nil, err
		}
	}

	out := make(chan Change, 16)
	go w.loop(ctx, fsw, out)
	return out, nil
}

// Close shuts down the watcher and releases resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if w.fsw != nil {
		return w.fsw.Close()
	}
	return nil
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip inaccessible entries
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && (d.Name() == ".git" || w.matcher.MatchDir(path)) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

// relevant reports whether a file event should count toward a batch.
func (w *Watcher) relevant(path string) bool {
	if w.matcher.Match(path) {
		return false
	}
	return w.cfg.Filter == nil || w.cfg.Filter(path)
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher, out chan<- Change) {
	defer close(out)

	pending := make(map[string]EventOp)
	settle := time.NewTimer(w.cfg.Quiet)
	settle.Stop()
	defer settle.Stop()

	flush := func() bool {
		if len(pending) == 0 {
			return true
		}
		c := Change{Ops: pending, Time: time.Now()}
		for p := range pending {
			c.Paths = append(c.Paths, p)
		}
		sort.Strings(c.Paths)
		pending = make(map[string]EventOp)
		select {
		case out <- c:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		select {
		case <-ctx.Done():
			return

		case <-settle.C:
			if !flush() {
				return
			}

		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			op, valid := convertOp(ev.Op)
			if !valid {
				continue
			}
			if op == Create {
				if isDir(ev.Name) {
					if !w.matcher.MatchDir(ev.Name) {
						_ = w.addRecursive(ev.Name)
					}
					continue
				}
			}
			if !w.relevant(ev.Name) {
				continue
			}
			pending[ev.Name] = op
			settle.Reset(w.cfg.Quiet)

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.log.Warnw("watch error", "error", err)
		}
	}
}

func convertOp(op fsnotify.Op) (EventOp, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return Create, true
	case op.Has(fsnotify.Write):
		return Write, true
	case op.Has(fsnotify.Remove):
		return Remove, true
	case op.Has(fsnotify.Rename):
		return Rename, true
	default:
		return 0, false
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
