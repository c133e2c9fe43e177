package domain

import "errors"

// ErrScriptNotFound is returned when a script ID is not registered or stored.
var ErrScriptNotFound = errors.New("script not found")

// ErrUnknownBlockType is returned when a block names a type with no registered handler.
var ErrUnknownBlockType = errors.New("unknown block type")

// ErrReadOnlyScope is returned on writes to the system scope.
var ErrReadOnlyScope = errors.New("scope is read-only")

// ErrDuplicateScript is returned when a script ID is registered twice without replacement.
var ErrDuplicateScript = errors.New("duplicate script")

// ErrInvalidScript wraps every structural validation failure.
var ErrInvalidScript = errors.New("invalid script")
