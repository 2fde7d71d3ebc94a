package service

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/openrescue/emergency_dispatch_system/internal/models"
)

// Snapshot is the in-memory incident set the service holds between backend
// round trips. It is owned by whoever constructs the service and is only
// ever written with values the repository returned, so a confirmed write is
// the only thing that changes what dashboards see.
type Snapshot struct {
	mu   sync.RWMutex
	byID map[uuid.UUID]models.Incident
}

func NewSnapshot() *Snapshot {
	return &Snapshot{
		byID: make(map[uuid.UUID]models.Incident),
	}
}

// Replace swaps the whole held set for a fresh fetch.
func (s *Snapshot) Replace(incidents []models.Incident) {
	byID := make(map[uuid.UUID]models.Incident, len(incidents))
	for _, incident := range incidents {
		byID[incident.ID] = incident
	}
	s.mu.Lock()
	s.byID = byID
	s.mu.Unlock()
}

// Merge folds one authoritative incident value into the held set. Called
// after a confirmed write, never with a locally guessed value.
func (s *Snapshot) Merge(incident models.Incident) {
	s.mu.Lock()
	s.byID[incident.ID] = incident
	s.mu.Unlock()
}

// All returns the held incidents newest first.
func (s *Snapshot) All() []models.Incident {
	s.mu.RLock()
	incidents := make([]models.Incident, 0, len(s.byID))
	for _, incident := range s.byID {
		incidents = append(incidents, incident)
	}
	s.mu.RUnlock()

	sort.Slice(incidents, func(i, j int) bool {
		return incidents[i].CreatedAt.After(incidents[j].CreatedAt)
	})
	return incidents
}

// Len reports how many incidents are held.
func (s *Snapshot) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
