package v1

import (
	"github.com/openrescue/emergency_dispatch_system/internal/models"
	"github.com/openrescue/emergency_dispatch_system/internal/service"
)

// DTOToCreateInput converts a report submission into the service input.
func DTOToCreateInput(dto CreateIncidentRequest) service.CreateIncidentInput {
	categories := make([]models.Category, len(dto.Categories))
	for i, cat := range dto.Categories {
		categories[i] = models.Category(cat)
	}
	return service.CreateIncidentInput{
		Categories:  categories,
		Title:       dto.Title,
		Description: dto.Description,
		Location: models.Location{
			Latitude:  floatValue(dto.Latitude),
			Longitude: floatValue(dto.Longitude),
			Address:   dto.Address,
		},
		Media: models.Media{
			PhotoURLs: dto.PhotoURLs,
			VideoURL:  dto.VideoURL,
		},
	}
}

func floatValue(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

// ModelToIncidentResponse converts the domain model into the response DTO.
func ModelToIncidentResponse(model *models.Incident) *IncidentResponse {
	categories := make([]string, len(model.Categories))
	for i, cat := range model.Categories {
		categories[i] = string(cat)
	}
	timeline := make([]TimelineEntryResponse, len(model.Timeline))
	for i, entry := range model.Timeline {
		timeline[i] = TimelineEntryResponse{
			ID:        entry.ID,
			Status:    string(entry.Status),
			Message:   entry.Message,
			AuthorID:  entry.AuthorID,
			CreatedAt: entry.CreatedAt,
		}
	}
	return &IncidentResponse{
		ID:            model.ID,
		ReporterID:    model.ReporterID,
		Categories:    categories,
		Title:         model.Title,
		Description:   model.Description,
		PhotoURLs:     model.Media.PhotoURLs,
		VideoURL:      model.Media.VideoURL,
		Location: LocationResponse{
			Latitude:  model.Location.Latitude,
			Longitude: model.Location.Longitude,
			Address:   model.Location.Address,
		},
		Status:              string(model.Status),
		Severity:            string(model.Severity),
		PriorityScore:       model.PriorityScore,
		AIAnalysis:          model.AIAnalysis,
		StationID:           model.StationID,
		ResponderID:         model.ResponderID,
		Timeline:            timeline,
		CreatedAt:           model.CreatedAt,
		AcceptedAt:          model.AcceptedAt,
		CompletedAt:         model.CompletedAt,
		ResponseTimeMinutes: model.ResponseTimeMinutes(),
	}
}

// ModelsToIncidentResponses converts a slice of models into response DTOs.
func ModelsToIncidentResponses(incidents []models.Incident) []*IncidentResponse {
	responses := make([]*IncidentResponse, len(incidents))
	for i := range incidents {
		responses[i] = ModelToIncidentResponse(&incidents[i])
	}
	return responses
}
