package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/openrescue/emergency_dispatch_system/internal/models"
	"github.com/openrescue/emergency_dispatch_system/internal/service"
)

// cacheTTL bounds how stale a cached incident may get between invalidations.
const cacheTTL = 5 * time.Minute

type IncidentRepository struct {
	db          *pgxpool.Pool
	redisClient *redis.Client
}

func NewIncidentRepository(db *pgxpool.Pool, redisClient *redis.Client) service.IncidentRepository {
	return &IncidentRepository{
		db:          db,
		redisClient: redisClient,
	}
}

const incidentColumns = `
	id,
	reporter_id,
	categories,
	title,
	description,
	photo_urls,
	video_url,
	latitude,
	longitude,
	address,
	status,
	severity,
	priority_score,
	ai_analysis,
	station_id,
	responder_id,
	created_at,
	accepted_at,
	completed_at`

// Create persists a new incident together with its genesis timeline rows in
// one transaction, so a report never exists without its first entry.
func (r *IncidentRepository) Create(ctx context.Context, incident *models.Incident) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin create incident: %v", models.ErrPersistence, err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO incidents (
			id, reporter_id, categories, title, description, photo_urls, video_url,
			latitude, longitude, address, status, severity, priority_score,
			ai_analysis, station_id, responder_id, created_at, accepted_at, completed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19);
	`
	_, err = tx.Exec(ctx, query,
		incident.ID,
		incident.ReporterID,
		categoriesToStrings(incident.Categories),
		incident.Title,
		incident.Description,
		incident.Media.PhotoURLs,
		nullableString(incident.Media.VideoURL),
		incident.Location.Latitude,
		incident.Location.Longitude,
		nullableString(incident.Location.Address),
		string(incident.Status),
		string(incident.Severity),
		incident.PriorityScore,
		rawJSONOrNil(incident.AIAnalysis),
		incident.StationID,
		incident.ResponderID,
		incident.CreatedAt,
		incident.AcceptedAt,
		incident.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: insert incident: %v", models.ErrPersistence, err)
	}

	for position, entry := range incident.Timeline {
		if err := insertTimelineEntry(ctx, tx, incident.ID, entry, position); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit create incident: %v", models.ErrPersistence, err)
	}
	return nil
}

// GetByID loads one incident with its full timeline in insertion order.
func (r *IncidentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE id = $1;`
	row := r.db.QueryRow(ctx, query, id)
	incident, err := scanIncident(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %s", models.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: get incident by id: %v", models.ErrPersistence, err)
	}

	timeline, err := r.loadTimeline(ctx, id)
	if err != nil {
		return nil, err
	}
	incident.Timeline = timeline
	return incident, nil
}

// List returns every incident newest first, each with its timeline attached.
// Role scoping happens above in the visibility filter, not in SQL, so the
// service always works from one consistent snapshot.
func (r *IncidentRepository) List(ctx context.Context) ([]models.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents ORDER BY created_at DESC;`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: list incidents: %v", models.ErrPersistence, err)
	}
	defer rows.Close()

	incidents := make([]models.Incident, 0)
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan incident row: %v", models.ErrPersistence, err)
		}
		index[incident.ID] = len(incidents)
		incidents = append(incidents, *incident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list iteration: %v", models.ErrPersistence, err)
	}

	if err := r.attachTimelines(ctx, incidents, index); err != nil {
		return nil, err
	}
	return incidents, nil
}

// UpdateStatusCAS persists a transitioned incident with a compare-and-swap on
// status: the row is only written when it still holds the status the engine
// transitioned from. The new timeline entry lands in the same transaction.
// A losing racer gets models.ErrConflict and no rows change.
func (r *IncidentRepository) UpdateStatusCAS(ctx context.Context, incident *models.Incident, expected models.Status) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin transition: %v", models.ErrPersistence, err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE incidents SET
			status = $1,
			station_id = $2,
			responder_id = $3,
			accepted_at = $4,
			completed_at = $5
		WHERE id = $6 AND status = $7;
	`
	cmdTag, err := tx.Exec(ctx, query,
		string(incident.Status),
		incident.StationID,
		incident.ResponderID,
		incident.AcceptedAt,
		incident.CompletedAt,
		incident.ID,
		string(expected),
	)
	if err != nil {
		return fmt.Errorf("%w: update incident status: %v", models.ErrPersistence, err)
	}
	if cmdTag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM incidents WHERE id = $1);`, incident.ID).Scan(&exists); err != nil {
			return fmt.Errorf("%w: check incident existence: %v", models.ErrPersistence, err)
		}
		if !exists {
			return fmt.Errorf("%w: id %s", models.ErrNotFound, incident.ID)
		}
		return fmt.Errorf("%w: id %s no longer %s", models.ErrConflict, incident.ID, expected)
	}

	if len(incident.Timeline) == 0 {
		return fmt.Errorf("%w: transitioned incident %s has an empty timeline", models.ErrInvariant, incident.ID)
	}
	position := len(incident.Timeline) - 1
	if err := insertTimelineEntry(ctx, tx, incident.ID, incident.Timeline[position], position); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit transition: %v", models.ErrPersistence, err)
	}
	return nil
}

func insertTimelineEntry(ctx context.Context, tx pgx.Tx, incidentID uuid.UUID, entry models.IncidentUpdate, position int) error {
	query := `
		INSERT INTO incident_updates (id, incident_id, status, message, author_id, position, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`
	_, err := tx.Exec(ctx, query,
		entry.ID,
		incidentID,
		string(entry.Status),
		entry.Message,
		entry.AuthorID,
		position,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: insert timeline entry: %v", models.ErrPersistence, err)
	}
	return nil
}

func (r *IncidentRepository) loadTimeline(ctx context.Context, incidentID uuid.UUID) ([]models.IncidentUpdate, error) {
	query := `
		SELECT id, status, message, author_id, created_at
		FROM incident_updates
		WHERE incident_id = $1
		ORDER BY position ASC;
	`
	rows, err := r.db.Query(ctx, query, incidentID)
	if err != nil {
		return nil, fmt.Errorf("%w: load timeline: %v", models.ErrPersistence, err)
	}
	defer rows.Close()

	timeline := make([]models.IncidentUpdate, 0)
	for rows.Next() {
		var entry models.IncidentUpdate
		var status string
		if err := rows.Scan(&entry.ID, &status, &entry.Message, &entry.AuthorID, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan timeline entry: %v", models.ErrPersistence, err)
		}
		entry.Status = models.Status(status)
		timeline = append(timeline, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: timeline iteration: %v", models.ErrPersistence, err)
	}
	return timeline, nil
}

func (r *IncidentRepository) attachTimelines(ctx context.Context, incidents []models.Incident, index map[uuid.UUID]int) error {
	if len(incidents) == 0 {
		return nil
	}
	query := `
		SELECT incident_id, id, status, message, author_id, created_at
		FROM incident_updates
		ORDER BY incident_id, position ASC;
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("%w: load timelines: %v", models.ErrPersistence, err)
	}
	defer rows.Close()

	for rows.Next() {
		var incidentID uuid.UUID
		var entry models.IncidentUpdate
		var status string
		if err := rows.Scan(&incidentID, &entry.ID, &status, &entry.Message, &entry.AuthorID, &entry.CreatedAt); err != nil {
			return fmt.Errorf("%w: scan timeline entry: %v", models.ErrPersistence, err)
		}
		entry.Status = models.Status(status)
		if i, ok := index[incidentID]; ok {
			incidents[i].Timeline = append(incidents[i].Timeline, entry)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: timelines iteration: %v", models.ErrPersistence, err)
	}
	return nil
}

// scanIncident reads one incident row; the timeline is loaded separately.
func scanIncident(row pgx.Row) (*models.Incident, error) {
	incident := &models.Incident{}
	var categories []string
	var videoURL, address *string
	var status, severity string
	var aiAnalysis []byte
	err := row.Scan(
		&incident.ID,
		&incident.ReporterID,
		&categories,
		&incident.Title,
		&incident.Description,
		&incident.Media.PhotoURLs,
		&videoURL,
		&incident.Location.Latitude,
		&incident.Location.Longitude,
		&address,
		&status,
		&severity,
		&incident.PriorityScore,
		&aiAnalysis,
		&incident.StationID,
		&incident.ResponderID,
		&incident.CreatedAt,
		&incident.AcceptedAt,
		&incident.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	incident.Categories = stringsToCategories(categories)
	incident.Status = models.Status(status)
	incident.Severity = models.Severity(severity)
	if videoURL != nil {
		incident.Media.VideoURL = *videoURL
	}
	if address != nil {
		incident.Location.Address = *address
	}
	if len(aiAnalysis) > 0 {
		incident.AIAnalysis = json.RawMessage(aiAnalysis)
	}
	return incident, nil
}

func categoriesToStrings(categories []models.Category) []string {
	out := make([]string, len(categories))
	for i, c := range categories {
		out[i] = string(c)
	}
	return out
}

func stringsToCategories(values []string) []models.Category {
	out := make([]models.Category, len(values))
	for i, v := range values {
		out[i] = models.Category(v)
	}
	return out
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func rawJSONOrNil(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

// GetIncidentFromCache tries Redis first; a miss returns (nil, nil).
func (r *IncidentRepository) GetIncidentFromCache(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	val, err := r.redisClient.Get(ctx, cacheKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get incident from cache: %w", err)
	}

	incident := &models.Incident{}
	if err := json.Unmarshal(val, incident); err != nil {
		return nil, fmt.Errorf("failed to unmarshal incident from cache: %w", err)
	}
	return incident, nil
}

// SetIncidentCache stores the incident, timeline included, for cacheTTL.
func (r *IncidentRepository) SetIncidentCache(ctx context.Context, incident *models.Incident) error {
	val, err := json.Marshal(incident)
	if err != nil {
		return fmt.Errorf("failed to marshal incident for cache: %w", err)
	}
	if err := r.redisClient.Set(ctx, cacheKey(incident.ID), val, cacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to set incident in cache: %w", err)
	}
	return nil
}

// InvalidateIncidentCache drops the cached copy after a confirmed write.
func (r *IncidentRepository) InvalidateIncidentCache(ctx context.Context, id uuid.UUID) error {
	if err := r.redisClient.Del(ctx, cacheKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate incident cache: %w", err)
	}
	return nil
}

func cacheKey(id uuid.UUID) string {
	return fmt.Sprintf("incident:%s", id.String())
}
