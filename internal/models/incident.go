package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Category is one of the emergency services an incident can be routed to.
type Category string

const (
	CategoryPolice    Category = "police"
	CategoryFire      Category = "fire"
	CategoryAmbulance Category = "ambulance"
)

// Valid reports whether the category is part of the closed set.
func (c Category) Valid() bool {
	switch c {
	case CategoryPolice, CategoryFire, CategoryAmbulance:
		return true
	}
	return false
}

// Status is the lifecycle state of an incident.
type Status string

const (
	StatusPending    Status = "pending"
	StatusAccepted   Status = "accepted"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Valid reports whether the status is part of the closed set.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Severity is an informational classification assigned downstream; the
// lifecycle only defaults it at creation and never interprets it.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// DefaultPriorityScore is assigned to every new report until a downstream
// scorer overrides it.
const DefaultPriorityScore = 50

// Location is the spot an incident was reported at, captured once at
// creation and never recomputed.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

// Media holds stable URI references produced by the media collaborator.
// Attached at creation, immutable afterwards.
type Media struct {
	PhotoURLs []string `json:"photo_urls,omitempty"`
	VideoURL  string   `json:"video_url,omitempty"`
}

// Incident is a single reported emergency tracked through its lifecycle.
type Incident struct {
	ID            uuid.UUID        `json:"id"`
	ReporterID    uuid.UUID        `json:"reporter_id"`
	Categories    []Category       `json:"categories"`
	Title         string           `json:"title"`
	Description   string           `json:"description"`
	Media         Media            `json:"media"`
	Location      Location         `json:"location"`
	Status        Status           `json:"status"`
	Severity      Severity         `json:"severity"`
	PriorityScore int              `json:"priority_score"`
	AIAnalysis    json.RawMessage  `json:"ai_analysis,omitempty"`
	StationID     *string          `json:"station_id,omitempty"`
	ResponderID   *uuid.UUID       `json:"responder_id,omitempty"`
	Timeline      []IncidentUpdate `json:"timeline"`
	CreatedAt     time.Time        `json:"created_at"`
	AcceptedAt    *time.Time       `json:"accepted_at,omitempty"`
	CompletedAt   *time.Time       `json:"completed_at,omitempty"`
}

// IncidentUpdate is one timeline entry: the status the incident transitioned
// into (or a freeform note marker) plus the human-readable message.
type IncidentUpdate struct {
	ID        uuid.UUID  `json:"id"`
	Status    Status     `json:"status"`
	Message   string     `json:"message"`
	AuthorID  *uuid.UUID `json:"author_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// GenesisMessage is the timeline message written when a report is created.
const GenesisMessage = "Incident reported"

// NewDraft builds a new pending incident from a report submission. The
// returned incident carries a single genesis timeline entry; the caller is
// responsible for persisting it.
func NewDraft(reporterID uuid.UUID, categories []Category, title, description string, loc Location, media Media) (*Incident, error) {
	if reporterID == uuid.Nil {
		return nil, fmt.Errorf("%w: reporter id is required", ErrValidation)
	}
	if len(categories) == 0 {
		return nil, fmt.Errorf("%w: at least one category is required", ErrValidation)
	}
	seen := make(map[Category]struct{}, len(categories))
	for _, cat := range categories {
		if !cat.Valid() {
			return nil, fmt.Errorf("%w: unknown category %q", ErrValidation, cat)
		}
		if _, dup := seen[cat]; dup {
			return nil, fmt.Errorf("%w: duplicate category %q", ErrValidation, cat)
		}
		seen[cat] = struct{}{}
	}
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if err := validateLocation(loc); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	reporter := reporterID
	incident := &Incident{
		ID:            uuid.New(),
		ReporterID:    reporterID,
		Categories:    append([]Category(nil), categories...),
		Title:         title,
		Description:   description,
		Media:         media,
		Location:      loc,
		Status:        StatusPending,
		Severity:      SeverityMedium,
		PriorityScore: DefaultPriorityScore,
		CreatedAt:     now,
		Timeline: []IncidentUpdate{
			{
				ID:        uuid.New(),
				Status:    StatusPending,
				Message:   GenesisMessage,
				AuthorID:  &reporter,
				CreatedAt: now,
			},
		},
	}
	return incident, nil
}

// PrimaryCategory returns the first category, used for badge color and
// default routing. An incident with no categories cannot exist, so hitting
// that case means a corrupted record rather than a user error.
func (i *Incident) PrimaryCategory() (Category, error) {
	if len(i.Categories) == 0 {
		return "", fmt.Errorf("%w: incident %s has no categories", ErrInvariant, i.ID)
	}
	return i.Categories[0], nil
}

// HasCategory reports whether the incident is tagged with the given service.
func (i *Incident) HasCategory(cat Category) bool {
	for _, c := range i.Categories {
		if c == cat {
			return true
		}
	}
	return false
}

// ResponseTimeMinutes is derived from creation to completion; nil until the
// incident completes.
func (i *Incident) ResponseTimeMinutes() *int64 {
	if i.CompletedAt == nil {
		return nil
	}
	minutes := int64(i.CompletedAt.Sub(i.CreatedAt).Minutes())
	return &minutes
}

func validateLocation(loc Location) error {
	// A zero-valued pair is treated as absent: reports always carry real
	// device coordinates, never the null island.
	if loc.Latitude == 0 && loc.Longitude == 0 {
		return fmt.Errorf("%w: location latitude/longitude is required", ErrValidation)
	}
	if loc.Latitude < -90 || loc.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v out of range", ErrValidation, loc.Latitude)
	}
	if loc.Longitude < -180 || loc.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v out of range", ErrValidation, loc.Longitude)
	}
	return nil
}
