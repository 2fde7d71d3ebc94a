package v1

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// CreateIncidentRequest is a civilian report submission.
// @Description Incident report submission
type CreateIncidentRequest struct {
	Title       string   `json:"title" validate:"required,min=2,max=255"`
	Description string   `json:"description,omitempty"`
	Categories  []string `json:"categories" validate:"required,min=1,dive,oneof=police fire ambulance"`
	// Pointers so a report on the equator or prime meridian is not mistaken
	// for a missing coordinate.
	Latitude  *float64 `json:"latitude" validate:"required,latitude"`
	Longitude *float64 `json:"longitude" validate:"required,longitude"`
	Address     string   `json:"address,omitempty"`
	PhotoURLs   []string `json:"photo_urls,omitempty" validate:"omitempty,dive,uri"`
	VideoURL    string   `json:"video_url,omitempty" validate:"omitempty,uri"`
}

// UpdateStatusRequest is a generic transition request.
// @Description Incident status transition request
type UpdateStatusRequest struct {
	Status  string `json:"status" validate:"required,oneof=accepted in_progress completed cancelled"`
	Message string `json:"message,omitempty"`
}

// CompleteIncidentRequest carries the resolution note for completion.
// @Description Incident completion request
type CompleteIncidentRequest struct {
	ResolutionNotes string `json:"resolution_notes,omitempty"`
}

// CancelIncidentRequest carries the reason an incident is cancelled.
// @Description Incident cancellation request
type CancelIncidentRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// LocationResponse is the report location.
// @Description Incident location
type LocationResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

// TimelineEntryResponse is one audit log entry.
// @Description Incident timeline entry
type TimelineEntryResponse struct {
	ID        uuid.UUID  `json:"id"`
	Status    string     `json:"status"`
	Message   string     `json:"message"`
	AuthorID  *uuid.UUID `json:"author_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// IncidentResponse is the full incident view.
// @Description Incident with its timeline
type IncidentResponse struct {
	ID                  uuid.UUID               `json:"id"`
	ReporterID          uuid.UUID               `json:"reporter_id"`
	Categories          []string                `json:"categories"`
	Title               string                  `json:"title"`
	Description         string                  `json:"description,omitempty"`
	PhotoURLs           []string                `json:"photo_urls,omitempty"`
	VideoURL            string                  `json:"video_url,omitempty"`
	Location            LocationResponse        `json:"location"`
	Status              string                  `json:"status"`
	Severity            string                  `json:"severity"`
	PriorityScore       int                     `json:"priority_score"`
	AIAnalysis          json.RawMessage         `json:"ai_analysis,omitempty"`
	StationID           *string                 `json:"station_id,omitempty"`
	ResponderID         *uuid.UUID              `json:"responder_id,omitempty"`
	Timeline            []TimelineEntryResponse `json:"timeline"`
	CreatedAt           time.Time               `json:"created_at"`
	AcceptedAt          *time.Time              `json:"accepted_at,omitempty"`
	CompletedAt         *time.Time              `json:"completed_at,omitempty"`
	ResponseTimeMinutes *int64                  `json:"response_time_minutes,omitempty"`
}

// StatsResponse is the dashboard bucket tally for the calling actor.
// @Description Dashboard counts
type StatsResponse struct {
	Open     int `json:"open"`
	Progress int `json:"progress"`
	Resolved int `json:"resolved"`
}
