package domain

import (
	"github.com/dsorch/orchestrator/internal/errors"
)

// Orchestration-specific error definitions.
var (
	// ErrProcessNotFound indicates no process exists for the orchestration id.
	ErrProcessNotFound = errors.Wrap(errors.ErrNotFound, "orchestration process not found")

	// ErrProcessAlreadyExists indicates the orchestration id is already taken.
	ErrProcessAlreadyExists = errors.Wrap(errors.ErrConflict, "orchestration process already exists")

	// ErrProcessTerminal indicates a change was attempted on a COMPLETED or FAILED process.
	ErrProcessTerminal = errors.Wrap(errors.ErrConflict, "orchestration process is in a terminal state")

	// ErrUnsupportedType indicates the request type is not one of the workflow variants.
	ErrUnsupportedType = errors.Wrap(
		errors.ErrInvalidInput,
		"only 'service', 'data' or 'combined' types are supported",
	)
)
