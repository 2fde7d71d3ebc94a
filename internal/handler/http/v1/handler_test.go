package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/openrescue/emergency_dispatch_system/internal/config"
	"github.com/openrescue/emergency_dispatch_system/internal/identity"
	"github.com/openrescue/emergency_dispatch_system/internal/lifecycle"
	"github.com/openrescue/emergency_dispatch_system/internal/models"
	"github.com/openrescue/emergency_dispatch_system/internal/service"
	"github.com/openrescue/emergency_dispatch_system/internal/service/mocks"
)

const (
	civilianKey    = "civilian-key"
	fireStationKey = "fire-key"
)

var (
	civilianCredID    = uuid.New()
	fireStationCredID = uuid.New()
)

// newTestHandler builds a Handler backed by a mocked service and a real
// static identity provider, plus a gin engine with routes registered.
func newTestHandler(t *testing.T) (*mocks.MockIncidentService, *gin.Engine) {
	ctrl := gomock.NewController(t)
	mockService := mocks.NewMockIncidentService(ctrl)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	provider, err := identity.NewStaticProvider([]config.ActorCredential{
		{APIKey: civilianKey, ActorID: civilianCredID.String(), Role: string(models.RoleUser)},
		{APIKey: fireStationKey, ActorID: fireStationCredID.String(), Role: string(models.RoleFireStation), StationID: "fs-01"},
	})
	require.NoError(t, err)

	handler := NewHandler(mockService, provider, logger, &config.Config{})

	gin.SetMode(gin.TestMode)
	router := gin.New()
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)

	return mockService, router
}

// makeRequest performs one request against the test router.
func makeRequest(router *gin.Engine, method, url string, body io.Reader, headers ...map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, h := range headers {
		for key, value := range h {
			req.Header.Set(key, value)
		}
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func asCivilian() map[string]string {
	return map[string]string{"X-API-Key": civilianKey}
}

func asFireStation() map[string]string {
	return map[string]string{"X-API-Key": fireStationKey}
}

func sampleIncident(reporter uuid.UUID, status models.Status) *models.Incident {
	incident, err := models.NewDraft(
		reporter,
		[]models.Category{models.CategoryFire},
		"Warehouse fire",
		"Smoke visible from the highway",
		models.Location{Latitude: 14.60, Longitude: 120.98, Address: "Dock 4"},
		models.Media{},
	)
	if err != nil {
		panic(err)
	}
	incident.Status = status
	return incident
}

func TestCreateIncident_Success(t *testing.T) {
	mockService, router := newTestHandler(t)
	incident := sampleIncident(civilianCredID, models.StatusPending)

	mockService.EXPECT().
		Submit(gomock.Any(), models.Actor{ID: civilianCredID, Role: models.RoleUser}, gomock.Any()).
		Return(incident, nil).
		Times(1)

	body := bytes.NewBufferString(`{
		"categories": ["fire"],
		"title": "Warehouse fire",
		"description": "Smoke visible from the highway",
		"latitude": 14.60,
		"longitude": 120.98,
		"address": "Dock 4"
	}`)
	w := makeRequest(router, http.MethodPost, "/api/v1/incidents", body, asCivilian())

	require.Equal(t, http.StatusCreated, w.Code)

	var resp IncidentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, incident.ID, resp.ID)
	assert.Equal(t, string(models.StatusPending), resp.Status)
	require.Len(t, resp.Timeline, 1)
	assert.Equal(t, models.GenesisMessage, resp.Timeline[0].Message)
}

func TestCreateIncident_ZeroCoordinateAccepted(t *testing.T) {
	mockService, router := newTestHandler(t)
	incident := sampleIncident(civilianCredID, models.StatusPending)

	mockService.EXPECT().
		Submit(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ models.Actor, input service.CreateIncidentInput) (*models.Incident, error) {
			// Greenwich sits on the prime meridian; longitude 0 is a real place.
			assert.Equal(t, 51.48, input.Location.Latitude)
			assert.Equal(t, 0.0, input.Location.Longitude)
			return incident, nil
		}).
		Times(1)

	body := bytes.NewBufferString(`{"categories": ["police"], "title": "Observatory break-in", "latitude": 51.48, "longitude": 0}`)
	w := makeRequest(router, http.MethodPost, "/api/v1/incidents", body, asCivilian())

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestCreateIncident_MissingCoordinateRejected(t *testing.T) {
	_, router := newTestHandler(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing latitude", `{"categories": ["fire"], "title": "Warehouse fire", "longitude": 120.98}`},
		{"missing longitude", `{"categories": ["fire"], "title": "Warehouse fire", "latitude": 14.60}`},
		{"latitude out of range", `{"categories": ["fire"], "title": "Warehouse fire", "latitude": 91, "longitude": 120.98}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := makeRequest(router, http.MethodPost, "/api/v1/incidents", bytes.NewBufferString(tt.body), asCivilian())
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestCreateIncident_MissingAPIKey(t *testing.T) {
	_, router := newTestHandler(t)

	w := makeRequest(router, http.MethodPost, "/api/v1/incidents", bytes.NewBufferString(`{}`))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateIncident_InvalidAPIKey(t *testing.T) {
	_, router := newTestHandler(t)

	w := makeRequest(router, http.MethodPost, "/api/v1/incidents", bytes.NewBufferString(`{}`),
		map[string]string{"X-API-Key": "no-such-key"})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateIncident_BearerTokenAccepted(t *testing.T) {
	mockService, router := newTestHandler(t)
	incident := sampleIncident(civilianCredID, models.StatusPending)

	mockService.EXPECT().
		Submit(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(incident, nil)

	body := bytes.NewBufferString(`{"categories": ["fire"], "title": "Warehouse fire", "latitude": 14.60, "longitude": 120.98}`)
	w := makeRequest(router, http.MethodPost, "/api/v1/incidents", body,
		map[string]string{"Authorization": "Bearer " + civilianKey})

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestCreateIncident_InvalidBody(t *testing.T) {
	_, router := newTestHandler(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"categories": [`},
		{"missing categories", `{"title": "x", "latitude": 1, "longitude": 1}`},
		{"unknown category", `{"categories": ["coast_guard"], "title": "x", "latitude": 1, "longitude": 1}`},
		{"missing title", `{"categories": ["fire"], "latitude": 1, "longitude": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := makeRequest(router, http.MethodPost, "/api/v1/incidents", bytes.NewBufferString(tt.body), asCivilian())
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestCreateIncident_ForbiddenRole(t *testing.T) {
	mockService, router := newTestHandler(t)

	mockService.EXPECT().
		Submit(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("service: %w: only civilians file reports", models.ErrForbidden))

	body := bytes.NewBufferString(`{"categories": ["fire"], "title": "Warehouse fire", "latitude": 14.60, "longitude": 120.98}`)
	w := makeRequest(router, http.MethodPost, "/api/v1/incidents", body, asFireStation())

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestListIncidents_Success(t *testing.T) {
	mockService, router := newTestHandler(t)
	incidents := []models.Incident{
		*sampleIncident(civilianCredID, models.StatusPending),
		*sampleIncident(civilianCredID, models.StatusInProgress),
	}

	mockService.EXPECT().
		ListVisible(gomock.Any(), gomock.Any(), lifecycle.Bucket("")).
		Return(incidents, nil)

	w := makeRequest(router, http.MethodGet, "/api/v1/incidents", nil, asCivilian())

	require.Equal(t, http.StatusOK, w.Code)

	var resp []IncidentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp, 2)
}

func TestListIncidents_BucketQuery(t *testing.T) {
	mockService, router := newTestHandler(t)

	mockService.EXPECT().
		ListVisible(gomock.Any(), gomock.Any(), lifecycle.BucketOpen).
		Return([]models.Incident{}, nil)

	w := makeRequest(router, http.MethodGet, "/api/v1/incidents?bucket=open", nil, asFireStation())

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestListIncidents_UnknownBucket(t *testing.T) {
	mockService, router := newTestHandler(t)

	mockService.EXPECT().
		ListVisible(gomock.Any(), gomock.Any(), lifecycle.Bucket("archived")).
		Return(nil, fmt.Errorf("service: %w: unknown bucket", models.ErrValidation))

	w := makeRequest(router, http.MethodGet, "/api/v1/incidents?bucket=archived", nil, asFireStation())

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetIncident_Success(t *testing.T) {
	mockService, router := newTestHandler(t)
	incident := sampleIncident(civilianCredID, models.StatusPending)

	mockService.EXPECT().
		Get(gomock.Any(), gomock.Any(), incident.ID).
		Return(incident, nil)

	w := makeRequest(router, http.MethodGet, "/api/v1/incidents/"+incident.ID.String(), nil, asCivilian())

	require.Equal(t, http.StatusOK, w.Code)

	var resp IncidentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, incident.ID, resp.ID)
}

func TestGetIncident_InvalidID(t *testing.T) {
	_, router := newTestHandler(t)

	w := makeRequest(router, http.MethodGet, "/api/v1/incidents/not-a-uuid", nil, asCivilian())

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetIncident_NotFound(t *testing.T) {
	mockService, router := newTestHandler(t)
	id := uuid.New()

	mockService.EXPECT().
		Get(gomock.Any(), gomock.Any(), id).
		Return(nil, fmt.Errorf("service: %w: id %s", models.ErrNotFound, id))

	w := makeRequest(router, http.MethodGet, "/api/v1/incidents/"+id.String(), nil, asCivilian())

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAcceptIncident_Success(t *testing.T) {
	mockService, router := newTestHandler(t)
	incident := sampleIncident(civilianCredID, models.StatusAccepted)

	mockService.EXPECT().
		ApplyTransition(gomock.Any(), models.Actor{ID: fireStationCredID, Role: models.RoleFireStation, StationID: "fs-01"},
			incident.ID, models.StatusAccepted, "").
		Return(incident, nil)

	w := makeRequest(router, http.MethodPost, "/api/v1/incidents/"+incident.ID.String()+"/accept", nil, asFireStation())

	require.Equal(t, http.StatusOK, w.Code)

	var resp IncidentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, string(models.StatusAccepted), resp.Status)
}

func TestAcceptIncident_Conflict(t *testing.T) {
	mockService, router := newTestHandler(t)
	id := uuid.New()

	mockService.EXPECT().
		ApplyTransition(gomock.Any(), gomock.Any(), id, models.StatusAccepted, "").
		Return(nil, fmt.Errorf("service: %w: id %s", models.ErrConflict, id))

	w := makeRequest(router, http.MethodPost, "/api/v1/incidents/"+id.String()+"/accept", nil, asFireStation())

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAcceptIncident_ForbiddenForCivilian(t *testing.T) {
	mockService, router := newTestHandler(t)
	id := uuid.New()

	mockService.EXPECT().
		ApplyTransition(gomock.Any(), gomock.Any(), id, models.StatusAccepted, "").
		Return(nil, fmt.Errorf("service: %w: role user may not change incident status", models.ErrForbidden))

	w := makeRequest(router, http.MethodPost, "/api/v1/incidents/"+id.String()+"/accept", nil, asCivilian())

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUpdateStatus_Success(t *testing.T) {
	mockService, router := newTestHandler(t)
	incident := sampleIncident(civilianCredID, models.StatusInProgress)

	mockService.EXPECT().
		ApplyTransition(gomock.Any(), gomock.Any(), incident.ID, models.StatusInProgress, "").
		Return(incident, nil)

	body := bytes.NewBufferString(`{"status": "in_progress"}`)
	w := makeRequest(router, http.MethodPost, "/api/v1/incidents/"+incident.ID.String()+"/update-status", body, asFireStation())

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUpdateStatus_UnknownStatus(t *testing.T) {
	_, router := newTestHandler(t)
	id := uuid.New()

	body := bytes.NewBufferString(`{"status": "archived"}`)
	w := makeRequest(router, http.MethodPost, "/api/v1/incidents/"+id.String()+"/update-status", body, asFireStation())

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateStatus_InvalidTransition(t *testing.T) {
	mockService, router := newTestHandler(t)
	id := uuid.New()

	mockService.EXPECT().
		ApplyTransition(gomock.Any(), gomock.Any(), id, models.StatusCompleted, "").
		Return(nil, fmt.Errorf("service: %w: pending -> completed", models.ErrInvalidTransition))

	body := bytes.NewBufferString(`{"status": "completed"}`)
	w := makeRequest(router, http.MethodPost, "/api/v1/incidents/"+id.String()+"/update-status", body, asFireStation())

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestCompleteIncident_Success(t *testing.T) {
	mockService, router := newTestHandler(t)
	incident := sampleIncident(civilianCredID, models.StatusCompleted)

	mockService.EXPECT().
		ApplyTransition(gomock.Any(), gomock.Any(), incident.ID, models.StatusCompleted, "Fire extinguished").
		Return(incident, nil)

	body := bytes.NewBufferString(`{"resolution_notes": "Fire extinguished"}`)
	w := makeRequest(router, http.MethodPost, "/api/v1/incidents/"+incident.ID.String()+"/complete", body, asFireStation())

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCompleteIncident_EmptyBodyUsesDefaultNote(t *testing.T) {
	mockService, router := newTestHandler(t)
	incident := sampleIncident(civilianCredID, models.StatusCompleted)

	mockService.EXPECT().
		ApplyTransition(gomock.Any(), gomock.Any(), incident.ID, models.StatusCompleted, "").
		Return(incident, nil)

	w := makeRequest(router, http.MethodPost, "/api/v1/incidents/"+incident.ID.String()+"/complete", nil, asFireStation())

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCancelIncident_Success(t *testing.T) {
	mockService, router := newTestHandler(t)
	incident := sampleIncident(civilianCredID, models.StatusCancelled)

	mockService.EXPECT().
		ApplyTransition(gomock.Any(), gomock.Any(), incident.ID, models.StatusCancelled, "False alarm").
		Return(incident, nil)

	body := bytes.NewBufferString(`{"reason": "False alarm"}`)
	w := makeRequest(router, http.MethodPost, "/api/v1/incidents/"+incident.ID.String()+"/cancel", body, asFireStation())

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCancelIncident_MissingReason(t *testing.T) {
	_, router := newTestHandler(t)
	id := uuid.New()

	w := makeRequest(router, http.MethodPost, "/api/v1/incidents/"+id.String()+"/cancel",
		bytes.NewBufferString(`{}`), asFireStation())

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetStats_Success(t *testing.T) {
	mockService, router := newTestHandler(t)

	mockService.EXPECT().
		DashboardCounts(gomock.Any(), gomock.Any()).
		Return(lifecycle.BucketCounts{Open: 3, Progress: 1, Resolved: 7}, nil)

	w := makeRequest(router, http.MethodGet, "/api/v1/incidents/stats", nil, asFireStation())

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"open": 3, "progress": 1, "resolved": 7}`, w.Body.String())
}

func TestGetStats_PersistenceErrorMapsTo503(t *testing.T) {
	mockService, router := newTestHandler(t)

	mockService.EXPECT().
		DashboardCounts(gomock.Any(), gomock.Any()).
		Return(lifecycle.BucketCounts{}, fmt.Errorf("service: %w: select failed", models.ErrPersistence))

	w := makeRequest(router, http.MethodGet, "/api/v1/incidents/stats", nil, asFireStation())

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

// newDemoModeRouter is like newTestHandler but with DEMO_MODE enabled so the
// X-Demo-Role header takes effect.
func newDemoModeRouter(t *testing.T) (*mocks.MockIncidentService, *gin.Engine) {
	ctrl := gomock.NewController(t)
	mockService := mocks.NewMockIncidentService(ctrl)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	provider, err := identity.NewStaticProvider([]config.ActorCredential{
		{APIKey: civilianKey, ActorID: civilianCredID.String(), Role: string(models.RoleUser)},
	})
	require.NoError(t, err)

	handler := NewHandler(mockService, provider, logger, &config.Config{DemoMode: true})

	gin.SetMode(gin.TestMode)
	router := gin.New()
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)

	return mockService, router
}

func TestDemoRoleOverride(t *testing.T) {
	mockService, router := newDemoModeRouter(t)

	mockService.EXPECT().
		DashboardCounts(gomock.Any(), models.Actor{ID: civilianCredID, Role: models.RoleAdmin}).
		Return(lifecycle.BucketCounts{}, nil)

	w := makeRequest(router, http.MethodGet, "/api/v1/incidents/stats", nil,
		map[string]string{"X-API-Key": civilianKey, "X-Demo-Role": "admin"})

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDemoRoleOverride_UnknownRole(t *testing.T) {
	_, router := newDemoModeRouter(t)

	w := makeRequest(router, http.MethodGet, "/api/v1/incidents/stats", nil,
		map[string]string{"X-API-Key": civilianKey, "X-Demo-Role": "dispatcher"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDemoRoleOverride_IgnoredWhenDisabled(t *testing.T) {
	mockService, router := newTestHandler(t)

	// Without DEMO_MODE the header must be ignored and the credential role used.
	mockService.EXPECT().
		DashboardCounts(gomock.Any(), models.Actor{ID: civilianCredID, Role: models.RoleUser}).
		Return(lifecycle.BucketCounts{}, nil)

	w := makeRequest(router, http.MethodGet, "/api/v1/incidents/stats", nil,
		map[string]string{"X-API-Key": civilianKey, "X-Demo-Role": "admin"})

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthCheck_NoAuthRequired(t *testing.T) {
	_, router := newTestHandler(t)

	w := makeRequest(router, http.MethodGet, "/api/v1/system/health", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "ok"}`, w.Body.String())
}
