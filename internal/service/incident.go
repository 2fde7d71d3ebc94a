package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/openrescue/emergency_dispatch_system/internal/lifecycle"
	"github.com/openrescue/emergency_dispatch_system/internal/models"
	"github.com/openrescue/emergency_dispatch_system/internal/webhook"
)

// IncidentRepository is the boundary to the persistence collaborator.
type IncidentRepository interface {
	Create(ctx context.Context, incident *models.Incident) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	List(ctx context.Context) ([]models.Incident, error)
	UpdateStatusCAS(ctx context.Context, incident *models.Incident, expected models.Status) error
	GetIncidentFromCache(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	SetIncidentCache(ctx context.Context, incident *models.Incident) error
	InvalidateIncidentCache(ctx context.Context, id uuid.UUID) error
}

// CreateIncidentInput is a report submission as received from the transport
// layer, before domain validation.
type CreateIncidentInput struct {
	Categories  []models.Category
	Title       string
	Description string
	Location    models.Location
	Media       models.Media
}

// IncidentService drives the incident lifecycle on behalf of one actor per
// call. All rules live in the pure lifecycle package; this layer sequences
// reads, conditional writes, cache and snapshot upkeep, and notifications.
type IncidentService interface {
	Submit(ctx context.Context, actor models.Actor, input CreateIncidentInput) (*models.Incident, error)
	Get(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Incident, error)
	ListVisible(ctx context.Context, actor models.Actor, bucket lifecycle.Bucket) ([]models.Incident, error)
	ApplyTransition(ctx context.Context, actor models.Actor, id uuid.UUID, target models.Status, note string) (*models.Incident, error)
	DashboardCounts(ctx context.Context, actor models.Actor) (lifecycle.BucketCounts, error)
}

type incidentService struct {
	repo      IncidentRepository
	snapshot  *Snapshot
	logger    *logrus.Logger
	publisher webhook.Publisher
}

func NewIncidentService(repo IncidentRepository, snapshot *Snapshot, logger *logrus.Logger, publisher webhook.Publisher) IncidentService {
	return &incidentService{
		repo:      repo,
		snapshot:  snapshot,
		logger:    logger,
		publisher: publisher,
	}
}

// Submit validates a report draft and persists it together with its genesis
// timeline entry. Only civilians file reports.
func (s *incidentService) Submit(ctx context.Context, actor models.Actor, input CreateIncidentInput) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":  "incident",
		"method":   "Submit",
		"actor_id": actor.ID,
	})
	log.Info("Submitting a new incident report")

	if actor.Role != models.RoleUser {
		log.WithField("role", actor.Role).Warn("Non-civilian role attempted to file a report")
		return nil, fmt.Errorf("service: %w: only civilians file reports, got role %s", models.ErrForbidden, actor.Role)
	}

	incident, err := models.NewDraft(actor.ID, input.Categories, input.Title, input.Description, input.Location, input.Media)
	if err != nil {
		log.WithError(err).Warn("Report draft failed validation")
		return nil, fmt.Errorf("service: %w", err)
	}

	if err := s.repo.Create(ctx, incident); err != nil {
		log.WithError(err).Error("Failed to create incident in repository")
		return nil, fmt.Errorf("service: could not create incident: %w", err)
	}

	s.snapshot.Merge(*incident)
	s.notify(ctx, log, webhook.EventIncidentReported, incident, actor, models.GenesisMessage)

	log.WithField("incident_id", incident.ID).Info("Incident reported successfully")
	return incident, nil
}

// Get returns one incident with its timeline, visibility-checked. Incidents
// outside the actor's scope read as not found, never as forbidden, so their
// existence leaks nothing.
func (s *incidentService) Get(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "Get",
		"incident_id": id,
		"actor_id":    actor.ID,
	})
	log.Info("Fetching incident by ID")

	incident, err := s.load(ctx, log, id)
	if err != nil {
		return nil, err
	}

	if !lifecycle.CanSee(*incident, actor) {
		log.WithField("role", actor.Role).Warn("Actor requested an incident outside their visibility scope")
		return nil, fmt.Errorf("service: %w: id %s", models.ErrNotFound, id)
	}
	return incident, nil
}

// ListVisible fetches the full set, refreshes the held snapshot and filters
// it down to the actor's scope, optionally narrowed to one dashboard bucket.
func (s *incidentService) ListVisible(ctx context.Context, actor models.Actor, bucket lifecycle.Bucket) ([]models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":  "incident",
		"method":   "ListVisible",
		"actor_id": actor.ID,
		"role":     actor.Role,
	})
	log.Info("Listing visible incidents")

	if bucket != "" && !bucket.Valid() {
		return nil, fmt.Errorf("service: %w: unknown bucket %q", models.ErrValidation, bucket)
	}

	all, err := s.repo.List(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to list incidents from repository")
		return nil, fmt.Errorf("service: could not list incidents: %w", err)
	}
	s.snapshot.Replace(all)
	log = log.WithField("held", s.snapshot.Len())

	visible := lifecycle.VisibleIncidents(all, actor)
	if bucket == "" {
		log.WithField("count", len(visible)).Info("Incidents listed successfully")
		return visible, nil
	}

	filtered := make([]models.Incident, 0, len(visible))
	for _, incident := range visible {
		if b, ok := lifecycle.BucketOf(incident.Status); ok && b == bucket {
			filtered = append(filtered, incident)
		}
	}
	log.WithField("count", len(filtered)).Info("Incidents listed successfully")
	return filtered, nil
}

// ApplyTransition loads the current incident, runs the pure transition
// engine and persists the result behind a compare-and-swap on status. When
// two responders race, exactly one write lands; the loser surfaces
// models.ErrConflict and nothing here retries it.
func (s *incidentService) ApplyTransition(ctx context.Context, actor models.Actor, id uuid.UUID, target models.Status, note string) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "ApplyTransition",
		"incident_id": id,
		"actor_id":    actor.ID,
		"target":      target,
	})
	log.Info("Applying incident transition")

	current, err := s.load(ctx, log, id)
	if err != nil {
		return nil, err
	}

	next, err := lifecycle.Transition(*current, target, actor, note)
	if err != nil {
		log.WithError(err).Warn("Transition rejected by lifecycle rules")
		return nil, fmt.Errorf("service: %w", err)
	}

	if err := s.repo.UpdateStatusCAS(ctx, &next, current.Status); err != nil {
		log.WithError(err).Warn("Failed to persist incident transition")
		return nil, fmt.Errorf("service: could not apply transition: %w", err)
	}

	// Cache and snapshot only move after the conditional write confirmed.
	if err := s.repo.InvalidateIncidentCache(ctx, id); err != nil {
		log.WithError(err).Warn("Failed to invalidate incident cache")
	}
	s.snapshot.Merge(next)

	entry := next.Timeline[len(next.Timeline)-1]
	s.notify(ctx, log, webhook.EventStatusChanged, &next, actor, entry.Message)

	log.Info("Incident transition applied successfully")
	return &next, nil
}

// DashboardCounts recomputes the actor's open/progress/resolved tallies from
// a fresh fetch on every call.
func (s *incidentService) DashboardCounts(ctx context.Context, actor models.Actor) (lifecycle.BucketCounts, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":  "incident",
		"method":   "DashboardCounts",
		"actor_id": actor.ID,
		"role":     actor.Role,
	})
	log.Info("Computing dashboard counts")

	all, err := s.repo.List(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to list incidents from repository")
		return lifecycle.BucketCounts{}, fmt.Errorf("service: could not compute dashboard counts: %w", err)
	}
	s.snapshot.Replace(all)

	visible := lifecycle.VisibleIncidents(s.snapshot.All(), actor)
	return lifecycle.CountBuckets(visible), nil
}

// load is the cache-first incident read shared by Get and ApplyTransition.
func (s *incidentService) load(ctx context.Context, log *logrus.Entry, id uuid.UUID) (*models.Incident, error) {
	cached, err := s.repo.GetIncidentFromCache(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Failed to read incident cache, falling back to database")
	}
	if cached != nil {
		return cached, nil
	}

	incident, err := s.repo.GetByID(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Failed to get incident from repository")
		return nil, fmt.Errorf("service: could not get incident: %w", err)
	}

	if err := s.repo.SetIncidentCache(ctx, incident); err != nil {
		log.WithError(err).Warn("Failed to cache incident")
	}
	return incident, nil
}

// notify enqueues a lifecycle event. Delivery is best effort: a queue outage
// is logged, never surfaced to the caller whose write already committed.
func (s *incidentService) notify(ctx context.Context, log *logrus.Entry, eventType webhook.EventType, incident *models.Incident, actor models.Actor, message string) {
	event := webhook.Event{
		Type:       eventType,
		IncidentID: incident.ID,
		Status:     incident.Status,
		Categories: incident.Categories,
		ActorID:    actor.ID,
		Message:    message,
		Timestamp:  incident.CreatedAt,
	}
	if len(incident.Timeline) > 0 {
		event.Timestamp = incident.Timeline[len(incident.Timeline)-1].CreatedAt
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.WithError(err).Warn("Failed to publish incident event")
	}
}
