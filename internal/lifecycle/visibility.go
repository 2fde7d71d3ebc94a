package lifecycle

import (
	"github.com/openrescue/emergency_dispatch_system/internal/models"
)

// Bucket is a dashboard grouping derived from status.
type Bucket string

const (
	BucketOpen     Bucket = "open"
	BucketProgress Bucket = "progress"
	BucketResolved Bucket = "resolved"
)

// Valid reports whether the bucket is one of the dashboard groupings.
func (b Bucket) Valid() bool {
	switch b {
	case BucketOpen, BucketProgress, BucketResolved:
		return true
	}
	return false
}

// BucketOf maps a status to its dashboard bucket. Cancelled incidents belong
// to no bucket under current policy and return false.
func BucketOf(status models.Status) (Bucket, bool) {
	switch status {
	case models.StatusPending, models.StatusAccepted:
		return BucketOpen, true
	case models.StatusInProgress:
		return BucketProgress, true
	case models.StatusCompleted:
		return BucketResolved, true
	case models.StatusCancelled:
		return "", false
	}
	return "", false
}

// CanSee decides whether one actor may see one incident. Civilians only ever
// see their own reports: they must never learn the location of someone
// else's active incident. Station roles see their service's category; admins
// see everything.
func CanSee(incident models.Incident, actor models.Actor) bool {
	switch actor.Role {
	case models.RoleUser:
		return incident.ReporterID == actor.ID
	case models.RolePoliceStation, models.RoleFireStation, models.RoleAmbulance:
		category, ok := actor.Role.ServiceCategory()
		return ok && incident.HasCategory(category)
	case models.RoleAdmin:
		return true
	}
	return false
}

// VisibleIncidents filters the full incident set down to what the actor may
// see, preserving input order. Never returns nil.
func VisibleIncidents(all []models.Incident, actor models.Actor) []models.Incident {
	visible := make([]models.Incident, 0, len(all))
	for _, incident := range all {
		if CanSee(incident, actor) {
			visible = append(visible, incident)
		}
	}
	return visible
}

// BucketCounts are the dashboard tallies for one actor's visible set.
// Recomputed from scratch on every call; never cached.
type BucketCounts struct {
	Open     int `json:"open"`
	Progress int `json:"progress"`
	Resolved int `json:"resolved"`
}

// CountBuckets groups a visible incident set by dashboard bucket.
func CountBuckets(incidents []models.Incident) BucketCounts {
	var counts BucketCounts
	for _, incident := range incidents {
		bucket, ok := BucketOf(incident.Status)
		if !ok {
			continue
		}
		switch bucket {
		case BucketOpen:
			counts.Open++
		case BucketProgress:
			counts.Progress++
		case BucketResolved:
			counts.Resolved++
		}
	}
	return counts
}
