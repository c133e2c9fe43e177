package ports

import (
	"context"

	"github.com/aretw0/tessera/pkg/domain"
)

// ScriptStore defines the interface for persisting authored scripts.
// Stored scripts survive restarts and are registered again on startup.
type ScriptStore interface {
	// Save persists the script under its ID, replacing any previous version.
	Save(ctx context.Context, script *domain.Script) error

	// Load retrieves a script by ID.
	// Returns domain.ErrScriptNotFound if the script does not exist.
	Load(ctx context.Context, id string) (*domain.Script, error)

	// Delete removes the script. Deleting an unknown ID is not an error.
	Delete(ctx context.Context, id string) error

	// List returns the IDs of all stored scripts in ascending order.
	List(ctx context.Context) ([]string, error)
}

// ReportSink receives the report of every dispatched event.
type ReportSink interface {
	Record(ctx context.Context, report *domain.Report) error
}
