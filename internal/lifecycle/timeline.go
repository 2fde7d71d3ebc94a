package lifecycle

import (
	"github.com/google/uuid"

	"github.com/openrescue/emergency_dispatch_system/internal/models"
)

// Append returns a copy of the incident with the entry added at the tail of
// its timeline. Prior entries are never mutated, reordered or removed;
// insertion order is authoritative for display.
func Append(incident models.Incident, entry models.IncidentUpdate) models.Incident {
	next := incident
	timeline := make([]models.IncidentUpdate, len(incident.Timeline), len(incident.Timeline)+1)
	copy(timeline, incident.Timeline)
	next.Timeline = append(timeline, entry)
	return next
}

// newEntryID mints a unique timeline entry id. Entries are ordered by
// insertion position, with created_at as the human-facing timestamp.
func newEntryID() uuid.UUID {
	return uuid.New()
}
