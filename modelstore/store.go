// Package modelstore persists trained classifiers in a
// BadgerDB database.
package modelstore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/unixpickle/hmm/v2"
	"github.com/unixpickle/serializer"
)

// ErrNotFound is returned when no classifier has the
// requested name.
var ErrNotFound = errors.New("modelstore: classifier not found")

const keyPrefix = "classifier:"

// Options configures a Store.
type Options struct {
	// Dir is the directory for BadgerDB data files.
	// Required unless InMemory is set.
	Dir string

	// InMemory keeps the database in memory only.
	InMemory bool

	// Logger sets the badger logger.
	// If nil, only warnings and errors are logged.
	Logger badger.Logger
}

// A Store maps names to classifiers.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) a Store.
func Open(opts Options) (*Store, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("modelstore: Options.Dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = dbOpts.WithDir("").WithValueDir("").WithInMemory(true)
	}
	if opts.Logger != nil {
		dbOpts = dbOpts.WithLogger(opts.Logger)
	} else {
		dbOpts = dbOpts.WithLogger(defaultLogger{})
	}
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("modelstore: open: %w", err)
	}
	return &Store{db: db}, nil
}

// Save stores the classifier under the name, replacing
// any existing one.
func (s *Store) Save(_ context.Context, name string, c *hmm.Classifier) error {
	if name == "" {
		return errors.New("modelstore: empty name")
	}
	data, err := serializer.SerializeAny(c)
	if err != nil {
		return fmt.Errorf("modelstore: save %q: %w", name, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(name), data)
	})
}

// Load reads the classifier with the name.
func (s *Store) Load(_ context.Context, name string) (*hmm.Classifier, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(name))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}
	var c *hmm.Classifier
	if err := serializer.DeserializeAny(data, &c); err != nil {
		return nil, fmt.Errorf("modelstore: load %q: %w", name, err)
	}
	return c, nil
}

// Delete removes the classifier with the name.
// Deleting a missing name is not an error.
func (s *Store) Delete(_ context.Context, name string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(name))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	return err
}

// List returns the names of the stored classifiers in
// sorted order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	var names []string
	prefix := []byte(keyPrefix)
	err := s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = prefix
		iterOpts.PrefetchValues = false
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			k := string(it.Item().KeyCopy(nil))
			names = append(names, strings.TrimPrefix(k, keyPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func key(name string) []byte {
	return []byte(keyPrefix + name)
}

// defaultLogger wraps the standard log package for badger, suppressing
// debug and info level messages.
type defaultLogger struct{}

func (defaultLogger) Errorf(f string, v ...interface{}) { log.Printf("[badger] ERROR: "+f, v...) }
func (defaultLogger) Warningf(f string, v ...interface{}) {
	log.Printf("[badger] WARN: "+f, v...)
}
func (defaultLogger) Infof(string, ...interface{})  {}
func (defaultLogger) Debugf(string, ...interface{}) {}
