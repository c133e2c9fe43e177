package observability

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/tessera/pkg/domain"
)

func report(category string) *domain.Report {
	return &domain.Report{Event: domain.Event{Category: category}}
}

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	hooks := m.Hooks()
	ctx := context.Background()
	s := &domain.Script{ID: "greet"}

	hooks.OnScriptFinish(ctx, s, domain.Outcome{ScriptID: "greet", Signal: domain.Success(), Duration: time.Millisecond})
	hooks.OnScriptFinish(ctx, s, domain.Outcome{ScriptID: "greet", Signal: domain.Error("x"), Panicked: true})
	hooks.OnDispatch(ctx, report("actor.join"))
	hooks.OnDispatch(ctx, report("actor.join"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.outcomes.WithLabelValues("greet", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.outcomes.WithLabelValues("greet", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.panics.WithLabelValues("greet")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.dispatches.WithLabelValues("actor.join")))

	_, err = NewMetrics(reg)
	assert.Error(t, err, "registering twice must fail")
}

func TestFeed_RingBuffer(t *testing.T) {
	f := NewFeed(3)
	ctx := context.Background()
	for _, c := range []string{"a", "b", "c", "d"} {
		require.NoError(t, f.Record(ctx, report(c)))
	}

	var got []string
	for _, r := range f.Recent(0) {
		got = append(got, r.Event.Category)
	}
	assert.Equal(t, []string{"b", "c", "d"}, got)
	require.Len(t, f.Recent(1), 1)
	assert.Equal(t, "d", f.Recent(1)[0].Event.Category)
	assert.Empty(t, NewFeed(2).Recent(5))
}

func TestFeed_Subscribe(t *testing.T) {
	f := NewFeed(10)
	ch, unsubscribe := f.Subscribe()
	assert.Equal(t, 1, f.Subscribers())

	f.Hooks().OnDispatch(context.Background(), report("actor.chat"))

	select {
	case r := <-ch:
		assert.Equal(t, "actor.chat", r.Event.Category)
	case <-time.After(time.Second):
		t.Fatal("no report delivered")
	}

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, f.Subscribers())
	_, open := <-ch
	assert.False(t, open)
}

func TestFeed_SlowSubscriberDoesNotBlock(t *testing.T) {
	f := NewFeed(10)
	_, unsubscribe := f.Subscribe()
	defer unsubscribe()

	for i := 0; i < 200; i++ {
		require.NoError(t, f.Record(context.Background(), report("x")))
	}
	assert.Len(t, f.Recent(0), 10)
}
