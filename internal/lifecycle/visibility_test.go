package lifecycle

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openrescue/emergency_dispatch_system/internal/models"
)

func incidentWith(reporter uuid.UUID, status models.Status, categories ...models.Category) models.Incident {
	return models.Incident{
		ID:         uuid.New(),
		ReporterID: reporter,
		Categories: categories,
		Status:     status,
	}
}

func TestCanSee_UserOnlyOwnReports(t *testing.T) {
	reporter := uuid.New()
	actor := models.Actor{ID: reporter, Role: models.RoleUser}

	own := incidentWith(reporter, models.StatusPending, models.CategoryFire)
	someoneElses := incidentWith(uuid.New(), models.StatusPending, models.CategoryFire)

	assert.True(t, CanSee(own, actor))
	assert.False(t, CanSee(someoneElses, actor))
}

func TestCanSee_StationRolesMatchCategory(t *testing.T) {
	reporter := uuid.New()
	crash := incidentWith(reporter, models.StatusPending, models.CategoryPolice, models.CategoryAmbulance)

	assert.True(t, CanSee(crash, models.Actor{ID: uuid.New(), Role: models.RolePoliceStation}))
	assert.True(t, CanSee(crash, models.Actor{ID: uuid.New(), Role: models.RoleAmbulance}))
	assert.False(t, CanSee(crash, models.Actor{ID: uuid.New(), Role: models.RoleFireStation}))
}

func TestCanSee_AdminSeesEverything(t *testing.T) {
	admin := models.Actor{ID: uuid.New(), Role: models.RoleAdmin}

	assert.True(t, CanSee(incidentWith(uuid.New(), models.StatusPending, models.CategoryFire), admin))
	assert.True(t, CanSee(incidentWith(uuid.New(), models.StatusCancelled, models.CategoryPolice), admin))
}

func TestCanSee_UnknownRoleSeesNothing(t *testing.T) {
	stranger := models.Actor{ID: uuid.New(), Role: models.Role("dispatcher")}
	assert.False(t, CanSee(incidentWith(uuid.New(), models.StatusPending, models.CategoryFire), stranger))
}

func TestVisibleIncidents(t *testing.T) {
	reporter := uuid.New()
	all := []models.Incident{
		incidentWith(reporter, models.StatusPending, models.CategoryFire),
		incidentWith(uuid.New(), models.StatusPending, models.CategoryPolice),
		incidentWith(reporter, models.StatusInProgress, models.CategoryAmbulance),
		incidentWith(uuid.New(), models.StatusCompleted, models.CategoryFire),
	}

	t.Run("user sees only own, order preserved", func(t *testing.T) {
		visible := VisibleIncidents(all, models.Actor{ID: reporter, Role: models.RoleUser})
		require.Len(t, visible, 2)
		assert.Equal(t, all[0].ID, visible[0].ID)
		assert.Equal(t, all[2].ID, visible[1].ID)
	})

	t.Run("fire station sees fire incidents", func(t *testing.T) {
		visible := VisibleIncidents(all, models.Actor{ID: uuid.New(), Role: models.RoleFireStation})
		require.Len(t, visible, 2)
		assert.Equal(t, all[0].ID, visible[0].ID)
		assert.Equal(t, all[3].ID, visible[1].ID)
	})

	t.Run("admin sees all", func(t *testing.T) {
		visible := VisibleIncidents(all, models.Actor{ID: uuid.New(), Role: models.RoleAdmin})
		assert.Len(t, visible, 4)
	})

	t.Run("no matches yields empty non-nil slice", func(t *testing.T) {
		onlyFire := []models.Incident{incidentWith(uuid.New(), models.StatusPending, models.CategoryFire)}
		visible := VisibleIncidents(onlyFire, models.Actor{ID: uuid.New(), Role: models.RolePoliceStation})
		require.NotNil(t, visible)
		assert.Empty(t, visible)
	})
}

func TestVisibleIncidents_EmptySetForEveryRole(t *testing.T) {
	roles := []models.Role{
		models.RoleUser,
		models.RolePoliceStation,
		models.RoleFireStation,
		models.RoleAmbulance,
		models.RoleAdmin,
	}
	for _, role := range roles {
		t.Run(string(role), func(t *testing.T) {
			visible := VisibleIncidents(nil, models.Actor{ID: uuid.New(), Role: role})
			require.NotNil(t, visible)
			assert.Empty(t, visible)
		})
	}
}

func TestBucketOf(t *testing.T) {
	tests := []struct {
		status models.Status
		bucket Bucket
		ok     bool
	}{
		{models.StatusPending, BucketOpen, true},
		{models.StatusAccepted, BucketOpen, true},
		{models.StatusInProgress, BucketProgress, true},
		{models.StatusCompleted, BucketResolved, true},
		{models.StatusCancelled, "", false},
		{models.Status("archived"), "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			bucket, ok := BucketOf(tt.status)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.bucket, bucket)
		})
	}
}

func TestBucketValid(t *testing.T) {
	assert.True(t, BucketOpen.Valid())
	assert.True(t, BucketProgress.Valid())
	assert.True(t, BucketResolved.Valid())
	assert.False(t, Bucket("cancelled").Valid())
	assert.False(t, Bucket("").Valid())
}

func TestCountBuckets(t *testing.T) {
	reporter := uuid.New()
	incidents := []models.Incident{
		incidentWith(reporter, models.StatusPending, models.CategoryFire),
		incidentWith(reporter, models.StatusAccepted, models.CategoryFire),
		incidentWith(reporter, models.StatusInProgress, models.CategoryPolice),
		incidentWith(reporter, models.StatusCompleted, models.CategoryAmbulance),
		incidentWith(reporter, models.StatusCancelled, models.CategoryFire),
	}

	counts := CountBuckets(incidents)

	assert.Equal(t, 2, counts.Open)
	assert.Equal(t, 1, counts.Progress)
	assert.Equal(t, 1, counts.Resolved)
}

func TestCountBuckets_Empty(t *testing.T) {
	assert.Equal(t, BucketCounts{}, CountBuckets(nil))
}
