// Package lifecycle holds the pure incident lifecycle rules: the status
// transition engine, the role-scoped visibility filter and the append-only
// timeline. Nothing here performs I/O; functions take snapshots and return
// new values, which keeps the rules deterministic under test and pushes all
// race handling to the repository's conditional writes.
package lifecycle

import (
	"fmt"
	"time"

	"github.com/openrescue/emergency_dispatch_system/internal/models"
)

// Timeline messages written by the engine. Fixed for accept/in_progress,
// caller-overridable for complete/cancel.
const (
	MessageAccepted         = "Incident accepted by responder"
	MessageInProgress       = "Responder is on the way to the location"
	DefaultCompleteMessage  = "Incident completed"
	DefaultCancelledMessage = "Incident cancelled"
)

// Transition validates and applies a role-gated status change, returning a
// new incident value with the relevant timestamp set and one timeline entry
// appended. The input incident is never mutated; the caller persists the
// result through the repository, whose compare-and-swap on status is the
// only thing that resolves concurrent responders.
//
// An empty note selects the default message for complete and cancel.
func Transition(incident models.Incident, target models.Status, actor models.Actor, note string) (models.Incident, error) {
	if !actor.Role.CanRespond() {
		return models.Incident{}, fmt.Errorf("%w: role %s may not change incident status", models.ErrForbidden, actor.Role)
	}
	if !target.Valid() {
		return models.Incident{}, fmt.Errorf("%w: unknown status %q", models.ErrInvalidTransition, target)
	}
	if !allowed(incident.Status, target) {
		return models.Incident{}, fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, incident.Status, target)
	}

	now := time.Now().UTC()
	next := incident
	next.Status = target

	var message string
	switch target {
	case models.StatusAccepted:
		responder := actor.ID
		next.ResponderID = &responder
		next.AcceptedAt = &now
		if actor.StationID != "" && next.StationID == nil {
			station := actor.StationID
			next.StationID = &station
		}
		message = MessageAccepted
	case models.StatusInProgress:
		message = MessageInProgress
	case models.StatusCompleted:
		next.CompletedAt = &now
		message = note
		if message == "" {
			message = DefaultCompleteMessage
		}
	case models.StatusCancelled:
		message = note
		if message == "" {
			message = DefaultCancelledMessage
		}
	}

	author := actor.ID
	return Append(next, models.IncidentUpdate{
		ID:        newEntryID(),
		Status:    target,
		Message:   message,
		AuthorID:  &author,
		CreatedAt: now,
	}), nil
}

// allowed is the lifecycle table: strictly forward along
// pending -> accepted -> in_progress -> completed, plus cancelled from any
// non-terminal state. Everything else, self-transitions included, is rejected.
func allowed(from, to models.Status) bool {
	if to == models.StatusCancelled {
		return !from.Terminal()
	}
	switch from {
	case models.StatusPending:
		return to == models.StatusAccepted
	case models.StatusAccepted:
		return to == models.StatusInProgress
	case models.StatusInProgress:
		return to == models.StatusCompleted
	case models.StatusCompleted, models.StatusCancelled:
		return false
	}
	return false
}
