// Package bolt persists scripts in a BoltDB file, one JSON document per key.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/tessera/internal/logging"
	"github.com/aretw0/tessera/pkg/domain"
	bolt "go.etcd.io/bbolt"
)

// DefaultBucket holds the scripts unless WithBucket says otherwise.
const DefaultBucket = "scripts"

// Store implements ports.ScriptStore on top of bbolt.
type Store struct {
	db     *bolt.DB
	bucket []byte
	logger *slog.Logger
}

// Option configures the Store.
type Option func(*Store)

// WithBucket sets the bucket name.
func WithBucket(name string) Option {
	return func(s *Store) { s.bucket = []byte(name) }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// Open opens (or creates) the database file and its bucket.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{bucket: []byte(DefaultBucket), logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt store %s: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(s.bucket)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	s.db = db
	return s, nil
}

// Close releases the database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save persists the script under its ID.
func (s *Store) Save(ctx context.Context, script *domain.Script) error {
	js, err := json.Marshal(script)
	if err != nil {
		return fmt.Errorf("marshal script %q: %w", script.ID, err)
	}
	s.logger.Debug("bolt save", "script", script.ID, "bytes", len(js))
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(script.ID), js)
	})
}

// Load retrieves a script by ID.
func (s *Store) Load(ctx context.Context, id string) (*domain.Script, error) {
	var script *domain.Script
	err := s.db.View(func(tx *bolt.Tx) error {
		bs := tx.Bucket(s.bucket).Get([]byte(id))
		if bs == nil {
			return domain.ErrScriptNotFound
		}
		script = &domain.Script{}
		return json.Unmarshal(bs, script)
	})
	if err != nil {
		return nil, err
	}
	return script, nil
}

// Delete removes the script.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Delete([]byte(id))
	})
}

// List returns the stored IDs; bbolt keeps keys in byte order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, 32)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).ForEach(func(k, _ []byte) error {
			ids = append(ids, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}
