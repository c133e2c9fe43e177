// Package cron fires timer.tick events for the schedules of registered timer scripts.
package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/gorhill/cronexpr"

	"github.com/aretw0/tessera/internal/logging"
	"github.com/aretw0/tessera/pkg/catalog"
	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/ports"
)

// Engine is the part of the engine the scheduler needs.
type Engine interface {
	Scripts() []*domain.Script
	Dispatch(ctx context.Context, ev domain.Event) *domain.Report
}

// Scheduler polls the registered timer schedules and dispatches due ticks.
// Missed fire times between two polls coalesce into one tick.
type Scheduler struct {
	engine   Engine
	logger   *slog.Logger
	locker   ports.DistributedLocker
	interval time.Duration

	mu    sync.Mutex
	last  time.Time
	exprs map[string]*cronexpr.Expression
}

// Option configures the Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

// WithLocker makes replicas sharing the locker fire each tick once.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(s *Scheduler) { s.locker = locker }
}

// WithInterval sets the polling interval (default one second).
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.interval = d }
}

// New creates a scheduler.
func New(engine Engine, opts ...Option) *Scheduler {
	s := &Scheduler{
		engine:   engine,
		logger:   logging.NewNop(),
		interval: time.Second,
		exprs:    make(map[string]*cronexpr.Expression),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedules returns the distinct schedules of the registered timer scripts.
func (s *Scheduler) Schedules() []string {
	seen := make(map[string]bool)
	for _, script := range s.engine.Scripts() {
		if script.Root == nil || script.Root.Type != "timer" {
			continue
		}
		seen[script.Root.Params.String("schedule")] = true
	}
	out := make([]string, 0, len(seen))
	for sched := range seen {
		out = append(out, sched)
	}
	sort.Strings(out)
	return out
}

func (s *Scheduler) expr(schedule string) (*cronexpr.Expression, error) {
	if e, ok := s.exprs[schedule]; ok {
		return e, nil
	}
	e, err := cronexpr.Parse(schedule)
	if err != nil {
		return nil, err
	}
	s.exprs[schedule] = e
	return e, nil
}

// Tick dispatches every schedule with a fire time in (last tick, now].
// The first call only records now.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) []*domain.Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.last.IsZero() {
		s.last = now
		return nil
	}
	since := s.last
	s.last = now

	var reports []*domain.Report
	for _, schedule := range s.Schedules() {
		e, err := s.expr(schedule)
		if err != nil {
			s.logger.Warn("invalid schedule", "schedule", schedule, "err", err)
			continue
		}
		due := e.Next(since)
		if due.IsZero() || due.After(now) {
			continue
		}
		if !s.claim(ctx, schedule, due) {
			continue
		}
		ev := domain.Event{
			Category: catalog.CategoryTimer,
			Fields:   map[string]any{"schedule": schedule, "time": due.Format(time.RFC3339)},
			Time:     due,
		}
		s.logger.Debug("timer tick", "schedule", schedule, "time", due)
		reports = append(reports, s.engine.Dispatch(ctx, ev))
	}
	return reports
}

// claim takes the tick lock and leaves it to expire, so a replica polling
// later cannot fire the same tick.
func (s *Scheduler) claim(ctx context.Context, schedule string, due time.Time) bool {
	if s.locker == nil {
		return true
	}
	key := fmt.Sprintf("timer:%s:%d", schedule, due.Unix())
	_, ok, err := s.locker.TryLock(ctx, key, time.Minute)
	if err != nil {
		s.logger.Warn("timer lock failed", "schedule", schedule, "err", err)
		return false
	}
	return ok
}

// Run polls until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	s.Tick(ctx, time.Now())
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			s.Tick(ctx, now)
		}
	}
}
