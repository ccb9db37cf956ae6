package dto

import (
	"time"

	"github.com/noah-isme/lms-portal-api/internal/models"
)

// OfficeHourCreateRequest publishes a bookable slot.
type OfficeHourCreateRequest struct {
	StartsAt string `json:"starts_at" validate:"required"`
	EndsAt   string `json:"ends_at" validate:"required"`
	Location string `json:"location" validate:"omitempty,max=255"`
}

// OfficeHourResponse serializes a slot with its booking state.
type OfficeHourResponse struct {
	ID          uint      `json:"id"`
	TeacherID   uint      `json:"teacher_id"`
	TeacherName string    `json:"teacher_name,omitempty"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	Location    string    `json:"location,omitempty"`
	BookedBy    *uint     `json:"booked_by"`
}

// NewOfficeHourResponse converts an OfficeHourSlot model into a DTO.
func NewOfficeHourResponse(model models.OfficeHourSlot) OfficeHourResponse {
	response := OfficeHourResponse{
		ID:        model.ID,
		TeacherID: model.TeacherID,
		StartsAt:  model.StartsAt,
		EndsAt:    model.EndsAt,
		Location:  model.Location,
		BookedBy:  model.BookedBy,
	}

	if model.Teacher.ID != 0 {
		response.TeacherName = model.Teacher.Name
	}

	return response
}

// NewOfficeHourResponseSlice converts slot models into DTOs.
func NewOfficeHourResponseSlice(slots []models.OfficeHourSlot) []OfficeHourResponse {
	responses := make([]OfficeHourResponse, 0, len(slots))
	for _, slot := range slots {
		responses = append(responses, NewOfficeHourResponse(slot))
	}

	return responses
}
