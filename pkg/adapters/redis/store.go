// Package redis backs the global variable scope and distributed locks with Redis.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/aretw0/tessera/internal/logging"
	"github.com/aretw0/tessera/pkg/scope"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by this package.
const DefaultPrefix = "tessera:"

// Store implements scope.Store with a local cache and a Redis hash.
// Reads never leave the process; writes go through to Redis and other
// replicas observe them after their next Refresh.
type Store struct {
	client  backend.UniversalClient
	prefix  string
	timeout time.Duration
	logger  *slog.Logger
	cache   *scope.MemoryStore
}

// Option configures the Store.
type Option func(*Store)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// WithTimeout bounds every write-through round trip.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) { s.timeout = d }
}

// WithLogger sets the logger used for write-through failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// New connects to addr.
func New(addr, password string, db int, opts ...Option) *Store {
	client := backend.NewClient(&backend.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, opts...)
}

// NewFromClient wraps an existing client.
func NewFromClient(client backend.UniversalClient, opts ...Option) *Store {
	s := &Store{
		client:  client,
		prefix:  DefaultPrefix,
		timeout: 2 * time.Second,
		logger:  logging.NewNop(),
		cache:   scope.NewMemoryStore(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key() string { return s.prefix + "globals" }

// Client returns the underlying client, e.g. to share it with a Locker.
func (s *Store) Client() backend.UniversalClient { return s.client }

// Prefix returns the key prefix.
func (s *Store) Prefix() string { return s.prefix }

// Close closes the client.
func (s *Store) Close() error { return s.client.Close() }

// Load reads from the local cache.
func (s *Store) Load(name string) (any, bool) { return s.cache.Load(name) }

// Range iterates the local cache.
func (s *Store) Range(fn func(name string, value any) bool) { s.cache.Range(fn) }

// Store updates the cache and writes the value through to Redis.
func (s *Store) Store(name string, value any) {
	s.cache.Store(name, value)

	js, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("redis global not persisted", "name", name, "err", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.client.HSet(ctx, s.key(), name, js).Err(); err != nil {
		s.logger.Warn("redis write-through failed", "name", name, "err", err)
	}
}

// Delete removes the value locally and in Redis.
func (s *Store) Delete(name string) {
	s.cache.Delete(name)

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.client.HDel(ctx, s.key(), name).Err(); err != nil {
		s.logger.Warn("redis delete failed", "name", name, "err", err)
	}
}

// Refresh replaces the cache with the content of the Redis hash.
func (s *Store) Refresh(ctx context.Context) error {
	raw, err := s.client.HGetAll(ctx, s.key()).Result()
	if err != nil {
		return fmt.Errorf("redis refresh: %w", err)
	}

	fresh := make(map[string]any, len(raw))
	for name, js := range raw {
		v, err := decodeValue(js)
		if err != nil {
			s.logger.Warn("redis global skipped", "name", name, "err", err)
			continue
		}
		fresh[name] = v
	}

	for name, v := range fresh {
		s.cache.Store(name, v)
	}
	s.cache.Range(func(name string, _ any) bool {
		if _, ok := fresh[name]; !ok {
			s.cache.Delete(name)
		}
		return true
	})
	return nil
}

// Run refreshes the cache every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) error {
	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn("initial redis refresh failed", "err", err)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				s.logger.Warn("redis refresh failed", "err", err)
			}
		}
	}
}

// decodeValue reverses json.Marshal, restoring whole numbers as int.
func decodeValue(js string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(js))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return normalize(v), nil
}

func normalize(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil && i >= math.MinInt && i <= math.MaxInt {
			return int(i)
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		for k, e := range t {
			t[k] = normalize(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = normalize(e)
		}
		return t
	}
	return v
}

var _ scope.Store = (*Store)(nil)
