// Package host defines the side-effect surface that blocks call into.
//
// The engine never talks to a concrete host world. Catalog blocks receive an
// API at construction and report its failures as Error signals.
package host

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/aretw0/tessera/pkg/domain"
)

// ErrNoSubject is returned when an operation needs a subject and has none.
var ErrNoSubject = errors.New("no subject")

// Location is a position in a host world.
type Location struct {
	World string  `json:"world,omitempty" yaml:"world,omitempty"`
	X     float64 `json:"x" yaml:"x"`
	Y     float64 `json:"y" yaml:"y"`
	Z     float64 `json:"z" yaml:"z"`
}

// Distance returns the euclidean distance, or +Inf across worlds.
func (l Location) Distance(o Location) float64 {
	if l.World != o.World {
		return math.Inf(1)
	}
	dx, dy, dz := l.X-o.X, l.Y-o.Y, l.Z-o.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

func (l Location) String() string {
	return fmt.Sprintf("%s(%g, %g, %g)", l.World, l.X, l.Y, l.Z)
}

// CommandRunner executes host commands. A nil subject means the console.
type CommandRunner interface {
	RunCommand(ctx context.Context, as *domain.Subject, command string) error
}

// API is the capability injected into catalog blocks.
type API interface {
	CommandRunner
	SendMessage(ctx context.Context, to *domain.Subject, text string) error
	Broadcast(ctx context.Context, text string) error
	// Nearest returns the closest subject of kind ("" for any) within radius
	// of from, or nil when there is none.
	Nearest(ctx context.Context, from *domain.Subject, kind string, radius float64) (*domain.Subject, error)
	Teleport(ctx context.Context, who *domain.Subject, to Location) error
}
