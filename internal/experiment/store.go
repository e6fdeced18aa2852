package experiment

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/imyousuf/metricscarpet/internal/table"
)

// Key prefixes for the BadgerDB key scheme.
const (
	prefixBatch      = "b:"
	prefixExperiment = "x:"
)

// Batch is one persisted measurement table.
type Batch struct {
	ID         string       `json:"id"`
	Experiment string       `json:"experiment"`
	MeasuredAt time.Time    `json:"measured_at"`
	Table      *table.Table `json:"table"`
}

// Info summarizes a persisted experiment.
type Info struct {
	Name    string    `json:"name"`
	Created time.Time `json:"created"`
	Batches int       `json:"batches"`
}

// Store persists experiments in BadgerDB. Several experiments share one
// database; batches are keyed by experiment name and arrival time.
type Store struct {
	db  *badger.DB
	now func() time.Time
}

// OpenStore opens (or creates) a BadgerDB-backed experiment store at dbPath.
func OpenStore(dbPath string) (*Store, error) {
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // suppress badger logs
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "open badger db")
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func experimentKey(name string) []byte { return []byte(prefixExperiment + name) }

func batchPrefix(name string) []byte { return []byte(prefixBatch + name + ":") }

// batchKey sorts by arrival time; the uuid keeps concurrent arrivals apart.
func batchKey(name string, at time.Time, id string) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d:%s", prefixBatch, name, at.UnixNano(), id))
}

func validName(name string) error {
	if name == "" || strings.Contains(name, ":") {
		return errors.Newf("invalid experiment name %q", name)
	}
	return nil
}

// Append stores t as a new batch of experiment name.
func (s *Store) Append(_ context.Context, name string, t *table.Table) (*Batch, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	if t == nil {
		return nil, errors.New("nil table")
	}
	if err := t.Validate(); err != nil {
		return nil, errors.Wrapf(err, "experiment %s: rejected table from %s", name, t.Tool)
	}

	b := &Batch{
		ID:         uuid.NewString(),
		Experiment: name,
		MeasuredAt: s.now().UTC(),
		Table:      t,
	}
	data, err := json.Marshal(b)
	if err != nil {
		return nil, errors.Wrap(err, "marshal batch")
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(experimentKey(name)); errors.Is(err, badger.ErrKeyNotFound) {
			created, _ := b.MeasuredAt.MarshalText()
			if err := txn.Set(experimentKey(name), created); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		return txn.Set(batchKey(name, b.MeasuredAt, b.ID), data)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "store batch for experiment %s", name)
	}
	return b, nil
}

// Batches returns every batch of experiment name in arrival order.
func (s *Store) Batches(_ context.Context, name string) ([]*Batch, error) {
	var out []*Batch
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := batchPrefix(name)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.Valid(); it.Next() {
			var b Batch
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &b)
			})
			if err != nil {
				return errors.Wrapf(err, "decode batch %s", it.Item().Key())
			}
			out = append(out, &b)
		}
		return nil
	})
	return out, err
}

// Frame merges all batches of experiment name into one table.
func (s *Store) Frame(ctx context.Context, name string) (*table.Table, error) {
	batches, err := s.Batches(ctx, name)
	if err != nil {
		return nil, err
	}
	tables := make([]*table.Table, len(batches))
	for i, b := range batches {
		tables[i] = b.Table
	}
	return table.Merge(tables...), nil
}

// Experiments lists the experiments in the store, sorted by name.
func (s *Store) Experiments(ctx context.Context) ([]Info, error) {
	var infos []Info
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixExperiment)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(opts.Prefix); it.Valid(); it.Next() {
			info := Info{Name: string(it.Item().Key()[len(prefixExperiment):])}
			err := it.Item().Value(func(val []byte) error {
				return info.Created.UnmarshalText(val)
			})
			if err != nil {
				return errors.Wrapf(err, "decode experiment %s", info.Name)
			}
			infos = append(infos, info)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for i := range infos {
		n, err := s.countBatches(infos[i].Name)
		if err != nil {
			return nil, err
		}
		infos[i].Batches = n
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

func (s *Store) countBatches(name string) (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := batchPrefix(name)
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// Drop removes experiment name and all its batches.
func (s *Store) Drop(_ context.Context, name string) error {
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := batchPrefix(name)
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return err
	}
	keys = append(keys, experimentKey(name))

	// Delete in batches to avoid transaction size limits.
	const batchSize = 1000
	for i := 0; i < len(keys); i += batchSize {
		end := min(i+batchSize, len(keys))
		chunk := keys[i:end]
		err := s.db.Update(func(txn *badger.Txn) error {
			for _, key := range chunk {
				if err := txn.Delete(key); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return errors.Wrapf(err, "drop experiment %s", name)
		}
	}
	return nil
}

// Sink returns a sink that appends to experiment name.
func (s *Store) Sink(name string) Sink {
	return SinkFunc(func(ctx context.Context, t *table.Table) error {
		_, err := s.Append(ctx, name, t)
		return err
	})
}
