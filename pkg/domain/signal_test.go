package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignal_Predicates(t *testing.T) {
	assert.True(t, Success().IsSuccess())
	assert.True(t, Error("x").IsError())
	assert.True(t, Error("x").Aborts())
	assert.True(t, Return(1).Aborts())
	assert.False(t, Break().Aborts())
	assert.True(t, Break().IsLoopControl())
	assert.True(t, Continue().IsLoopControl())
	assert.False(t, Return(nil).IsLoopControl())
}

func TestSignal_WithOriginKeepsFirst(t *testing.T) {
	s := Error("boom").WithOrigin("inner").WithOrigin("outer")
	assert.Equal(t, "inner", s.Origin)
	assert.Equal(t, "error(inner): boom", s.String())

	// Only errors carry an origin.
	assert.Empty(t, Success().WithOrigin("x").Origin)
}

func TestSignal_String(t *testing.T) {
	assert.Equal(t, "success", Success().String())
	assert.Equal(t, "break", Break().String())
	assert.Equal(t, "return(7)", Return(7).String())
	assert.Equal(t, "return", Return(nil).String())
	assert.Equal(t, "error: bad 3", Errorf("bad %d", 3).String())
	assert.Equal(t, "signal(42)", SignalKind(42).String())
}

func TestOutcome_Status(t *testing.T) {
	assert.Equal(t, StatusSuccess, Outcome{Signal: Success()}.Status())
	assert.Equal(t, StatusReturned, Outcome{Signal: Return("x")}.Status())
	assert.Equal(t, StatusError, Outcome{Signal: Error("x")}.Status())

	r := &Report{Outcomes: []Outcome{
		{ScriptID: "a", Signal: Success()},
		{ScriptID: "b", Signal: Error("x")},
	}}
	assert.Equal(t, 2, r.Matched())
	assert.Len(t, r.Errors(), 1)
	o, ok := r.Outcome("b")
	assert.True(t, ok)
	assert.Equal(t, "x", o.Signal.Message)
	_, ok = r.Outcome("zzz")
	assert.False(t, ok)
}
