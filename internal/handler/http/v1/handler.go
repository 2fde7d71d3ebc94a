package v1

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/openrescue/emergency_dispatch_system/internal/config"
	"github.com/openrescue/emergency_dispatch_system/internal/identity"
	"github.com/openrescue/emergency_dispatch_system/internal/lifecycle"
	"github.com/openrescue/emergency_dispatch_system/internal/models"
	"github.com/openrescue/emergency_dispatch_system/internal/service"
)

type Handler struct {
	incidentService service.IncidentService
	identity        identity.Provider
	logger          *logrus.Logger
	validate        *validator.Validate
	cfg             *config.Config
}

func NewHandler(incidentService service.IncidentService, provider identity.Provider, logger *logrus.Logger, cfg *config.Config) *Handler {
	return &Handler{
		incidentService: incidentService,
		identity:        provider,
		logger:          logger,
		validate:        validator.New(),
		cfg:             cfg,
	}
}

// @Summary Report a new incident
// @Description Submit a new emergency report. Only civilian (user role) credentials may report.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param incident body CreateIncidentRequest true "Incident report"
// @Success 201 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid request body or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Role may not report incidents"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents [post]
func (h *Handler) createIncident(c *gin.Context) {
	log := h.logger.WithField("method", "createIncident")
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	var input CreateIncidentRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	incident, err := h.incidentService.Submit(c.Request.Context(), actor, DTOToCreateInput(input))
	if err != nil {
		h.respondDomainError(c, log, err)
		return
	}
	c.JSON(http.StatusCreated, ModelToIncidentResponse(incident))
}

// @Summary List visible incidents
// @Description List the incidents the calling actor may see, newest first. Civilians see their own reports; station roles see their service's category; admins see everything.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param bucket query string false "Dashboard bucket filter" Enums(open, progress, resolved)
// @Success 200 {array} IncidentResponse
// @Failure 400 {object} map[string]string "Unknown bucket"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents [get]
func (h *Handler) listIncidents(c *gin.Context) {
	log := h.logger.WithField("method", "listIncidents")
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	bucket := lifecycle.Bucket(c.Query("bucket"))
	incidents, err := h.incidentService.ListVisible(c.Request.Context(), actor, bucket)
	if err != nil {
		h.respondDomainError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelsToIncidentResponses(incidents))
}

// @Summary Get incident by ID
// @Description Get a single incident with its full timeline. Incidents outside the actor's visibility scope read as not found.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Incident ID"
// @Success 200 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid incident ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Incident not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents/{id} [get]
func (h *Handler) getIncident(c *gin.Context) {
	log := h.logger.WithField("method", "getIncident")
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid incident ID"})
		return
	}

	incident, err := h.incidentService.Get(c.Request.Context(), actor, id)
	if err != nil {
		h.respondDomainError(c, log.WithField("id", id), err)
		return
	}
	c.JSON(http.StatusOK, ModelToIncidentResponse(incident))
}

// @Summary Accept a pending incident
// @Description Accept a pending incident as the responding actor. Exactly one of two racing responders wins; the other receives a conflict.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Incident ID"
// @Success 200 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid incident ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Civilian roles may not respond"
// @Failure 404 {object} map[string]string "Incident not found"
// @Failure 409 {object} map[string]string "Already handled by another responder"
// @Failure 422 {object} map[string]string "Transition not allowed from the current status"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents/{id}/accept [post]
func (h *Handler) acceptIncident(c *gin.Context) {
	h.applyTransition(c, "acceptIncident", models.StatusAccepted, "")
}

// @Summary Update incident status
// @Description Apply an arbitrary lifecycle transition with an optional note.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Incident ID"
// @Param transition body UpdateStatusRequest true "Target status and optional message"
// @Success 200 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid incident ID or request body"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Civilian roles may not respond"
// @Failure 404 {object} map[string]string "Incident not found"
// @Failure 409 {object} map[string]string "Already handled by another responder"
// @Failure 422 {object} map[string]string "Transition not allowed from the current status"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents/{id}/update-status [post]
func (h *Handler) updateStatus(c *gin.Context) {
	log := h.logger.WithField("method", "updateStatus")

	var input UpdateStatusRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.applyTransition(c, "updateStatus", models.Status(input.Status), input.Message)
}

// @Summary Complete an incident
// @Description Mark an in-progress incident as completed with a resolution note.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Incident ID"
// @Param completion body CompleteIncidentRequest true "Resolution notes"
// @Success 200 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid incident ID or request body"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Civilian roles may not respond"
// @Failure 404 {object} map[string]string "Incident not found"
// @Failure 409 {object} map[string]string "Already handled by another responder"
// @Failure 422 {object} map[string]string "Transition not allowed from the current status"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents/{id}/complete [post]
func (h *Handler) completeIncident(c *gin.Context) {
	log := h.logger.WithField("method", "completeIncident")

	// An empty body selects the engine's default resolution note.
	var input CompleteIncidentRequest
	if err := c.ShouldBindJSON(&input); err != nil && !errors.Is(err, io.EOF) {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	h.applyTransition(c, "completeIncident", models.StatusCompleted, input.ResolutionNotes)
}

// @Summary Cancel an incident
// @Description Cancel a non-terminal incident with a reason.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Incident ID"
// @Param cancellation body CancelIncidentRequest true "Cancellation reason"
// @Success 200 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid incident ID or request body"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Civilian roles may not respond"
// @Failure 404 {object} map[string]string "Incident not found"
// @Failure 409 {object} map[string]string "Already handled by another responder"
// @Failure 422 {object} map[string]string "Transition not allowed from the current status"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents/{id}/cancel [post]
func (h *Handler) cancelIncident(c *gin.Context) {
	log := h.logger.WithField("method", "cancelIncident")

	var input CancelIncidentRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.applyTransition(c, "cancelIncident", models.StatusCancelled, input.Reason)
}

// applyTransition is the shared body of the transition endpoints.
func (h *Handler) applyTransition(c *gin.Context, method string, target models.Status, note string) {
	log := h.logger.WithField("method", method)
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid incident ID"})
		return
	}

	incident, err := h.incidentService.ApplyTransition(c.Request.Context(), actor, id, target, note)
	if err != nil {
		h.respondDomainError(c, log.WithField("id", id), err)
		return
	}
	c.JSON(http.StatusOK, ModelToIncidentResponse(incident))
}

// @Summary Get dashboard statistics
// @Description Get the open/progress/resolved counts for the calling actor's visible incidents.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} StatsResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents/stats [get]
func (h *Handler) getStats(c *gin.Context) {
	log := h.logger.WithField("method", "getStats")
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	counts, err := h.incidentService.DashboardCounts(c.Request.Context(), actor)
	if err != nil {
		h.respondDomainError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, StatsResponse{
		Open:     counts.Open,
		Progress: counts.Progress,
		Resolved: counts.Resolved,
	})
}

// @Summary Get application health status
// @Description Get health status of the application
// @Tags System
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string "Status OK"
// @Router /system/health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// respondDomainError maps the domain error taxonomy to HTTP statuses.
// Forbidden and invalid-transition responses should never appear in normal
// operation; seeing one means a client gated a button wrong.
func (h *Handler) respondDomainError(c *gin.Context, log *logrus.Entry, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		log.WithError(err).Warn("Request rejected by domain validation")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrForbidden):
		log.WithError(err).Warn("Request rejected by role gate")
		c.JSON(http.StatusForbidden, gin.H{"error": "role does not permit this operation"})
	case errors.Is(err, models.ErrInvalidTransition):
		log.WithError(err).Warn("Request rejected by lifecycle table")
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "transition not allowed from the current status"})
	case errors.Is(err, models.ErrConflict):
		log.WithError(err).Info("Transition lost a race to another responder")
		c.JSON(http.StatusConflict, gin.H{"error": "incident already handled by another responder"})
	case errors.Is(err, models.ErrNotFound):
		log.WithError(err).Warn("Incident not found")
		c.JSON(http.StatusNotFound, gin.H{"error": "incident not found"})
	case errors.Is(err, models.ErrPersistence):
		log.WithError(err).Error("Backend unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable, retry the request"})
	default:
		log.WithError(err).Error("Unhandled service error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
