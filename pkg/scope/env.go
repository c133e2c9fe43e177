package scope

import (
	"log/slog"

	"github.com/aretw0/tessera/internal/logging"
)

// Env is the process-wide state shared by every script run: the global
// variables, the system scope and the logging sink.
// It is created once by the engine owner and torn down with it.
type Env struct {
	Global Store
	System *SystemVars
	Logger *slog.Logger
	// Debug makes every context trace block execution.
	Debug bool
}

// NewEnv creates an Env. A nil global store gets an in-memory one.
func NewEnv(global Store) *Env {
	if global == nil {
		global = NewMemoryStore()
	}
	return &Env{
		Global: global,
		System: NewSystemVars(),
		Logger: logging.NewNop(),
	}
}

func (e *Env) logger() *slog.Logger {
	if e == nil || e.Logger == nil {
		return logging.NewNop()
	}
	return e.Logger
}
