package dto

import (
	"time"

	"github.com/noah-isme/lms-portal-api/internal/models"
)

// GradeUpsertRequest sets or replaces the grade for one submission. Points
// and feedback are always written together; there is no partial grade write.
type GradeUpsertRequest struct {
	PointsEarned float64 `json:"points_earned" validate:"gte=0"`
	Feedback     string  `json:"feedback"`
}

// GradeResponse is returned to API clients when viewing grades. Percentage is
// derived at serialization time, never read from storage.
type GradeResponse struct {
	ID           uint      `json:"id"`
	SubmissionID uint      `json:"submission_id"`
	AssignmentID uint      `json:"assignment_id"`
	StudentID    uint      `json:"student_id"`
	PointsEarned float64   `json:"points_earned"`
	MaxPoints    float64   `json:"max_points"`
	Percentage   float64   `json:"percentage"`
	Feedback     string    `json:"feedback"`
	AutoGraded   bool      `json:"auto_graded"`
	GradedBy     *uint     `json:"graded_by"`
	GradedAt     time.Time `json:"graded_at"`
}

// NewGradeResponse converts a Grade model into a DTO.
func NewGradeResponse(model models.Grade) GradeResponse {
	return GradeResponse{
		ID:           model.ID,
		SubmissionID: model.SubmissionID,
		AssignmentID: model.AssignmentID,
		StudentID:    model.StudentID,
		PointsEarned: model.PointsEarned,
		MaxPoints:    model.MaxPoints,
		Percentage:   model.Percentage(),
		Feedback:     model.Feedback,
		AutoGraded:   model.AutoGraded,
		GradedBy:     model.GradedBy,
		GradedAt:     model.GradedAt,
	}
}

// NewGradeResponseSlice converts grade models into DTOs.
func NewGradeResponseSlice(grades []models.Grade) []GradeResponse {
	responses := make([]GradeResponse, 0, len(grades))
	for _, grade := range grades {
		responses = append(responses, NewGradeResponse(grade))
	}

	return responses
}

// GradebookEntry pairs a submission with its current grade for the teacher's
// grading interface.
type GradebookEntry struct {
	Submission SubmissionResponse `json:"submission"`
	Grade      *GradeResponse     `json:"grade"`
}
