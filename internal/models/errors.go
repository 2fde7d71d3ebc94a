package models

import "errors"

// Domain error taxonomy. The pure lifecycle code never catches these; the
// layers above decide with errors.Is whether to surface or map them.
var (
	// ErrValidation marks a malformed report draft. User-correctable.
	ErrValidation = errors.New("validation failed")

	// ErrForbidden marks an actor whose role lacks permission. Should be
	// unreachable if the client gates correctly.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidTransition marks a status/target pair outside the lifecycle
	// table, including self-transitions (double submits are surfaced, not
	// swallowed).
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrConflict marks a lost race: another responder changed the incident
	// between read and conditional write. Never retried automatically.
	ErrConflict = errors.New("incident was modified by another responder")

	// ErrNotFound marks a missing incident, or one the actor may not see.
	ErrNotFound = errors.New("incident not found")

	// ErrPersistence marks a backend failure. Callers may retry manually.
	ErrPersistence = errors.New("persistence failure")

	// ErrInvariant marks a corrupted record, e.g. an incident with no
	// categories. Signals a bug, not a user error.
	ErrInvariant = errors.New("invariant violation")
)
