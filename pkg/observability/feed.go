package observability

import (
	"context"
	"sync"

	"github.com/aretw0/tessera/pkg/domain"
)

// Feed keeps the most recent reports and fans new ones out to subscribers.
// It implements ports.ReportSink.
type Feed struct {
	mu      sync.RWMutex
	size    int
	reports []*domain.Report
	index   int
	full    bool
	subs    map[chan *domain.Report]struct{}
}

// NewFeed creates a feed that remembers size reports.
func NewFeed(size int) *Feed {
	if size <= 0 {
		size = 100
	}
	return &Feed{
		size:    size,
		reports: make([]*domain.Report, size),
		subs:    make(map[chan *domain.Report]struct{}),
	}
}

// Record stores the report and broadcasts it.
// Slow subscribers with a full buffer miss the report.
func (f *Feed) Record(_ context.Context, r *domain.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.reports[f.index] = r
	f.index = (f.index + 1) % f.size
	if f.index == 0 {
		f.full = true
	}

	for sub := range f.subs {
		select {
		case sub <- r:
		default:
		}
	}
	return nil
}

// Hooks records every dispatch through OnDispatch.
func (f *Feed) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnDispatch: func(ctx context.Context, r *domain.Report) { _ = f.Record(ctx, r) },
	}
}

// Subscribe returns a buffered channel of new reports and a function that
// unsubscribes and closes it.
func (f *Feed) Subscribe() (<-chan *domain.Report, func()) {
	ch := make(chan *domain.Report, 64)
	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, ch)
			f.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the current number of subscribers.
func (f *Feed) Subscribers() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}

// Recent returns up to n reports, oldest first. n <= 0 returns all.
func (f *Feed) Recent(n int) []*domain.Report {
	f.mu.RLock()
	var all []*domain.Report
	if !f.full {
		all = append(all, f.reports[:f.index]...)
	} else {
		all = make([]*domain.Report, 0, f.size)
		all = append(all, f.reports[f.index:]...)
		all = append(all, f.reports[:f.index]...)
	}
	f.mu.RUnlock()

	if n <= 0 || n >= len(all) {
		return all
	}
	return all[len(all)-n:]
}
