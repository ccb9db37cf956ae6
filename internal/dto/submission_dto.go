package dto

import (
	"time"

	"github.com/noah-isme/lms-portal-api/internal/models"
)

// AnswerInput carries one answer in a submit payload. Later duplicates for
// the same question win, mirroring how clients overwrite answers in place.
type AnswerInput struct {
	QuestionID uint   `json:"question_id" validate:"required,gt=0"`
	AnswerText string `json:"answer_text"`
}

// SubmitRequest finalises the active attempt with the collected answers.
type SubmitRequest struct {
	Answers []AnswerInput `json:"answers" validate:"dive"`
}

// AnswerResponse serializes one answer with its grading state.
type AnswerResponse struct {
	ID           uint     `json:"id"`
	QuestionID   uint     `json:"question_id"`
	AnswerText   string   `json:"answer_text"`
	IsCorrect    *bool    `json:"is_correct"`
	PointsEarned *float64 `json:"points_earned"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
type SubmissionResponse struct {
	ID               uint             `json:"id"`
	AssignmentID     uint             `json:"assignment_id"`
	StudentID        uint             `json:"student_id"`
	AttemptNumber    int              `json:"attempt_number"`
	Status           string           `json:"status"`
	GradingStatus    string           `json:"grading_status"`
	StartedAt        time.Time        `json:"started_at"`
	Deadline         *time.Time       `json:"deadline,omitempty"`
	SubmittedAt      *time.Time       `json:"submitted_at"`
	TimeSpentMinutes *int             `json:"time_spent_minutes"`
	IsLate           bool             `json:"is_late"`
	Answers          []AnswerResponse `json:"answers,omitempty"`
	Assignment       AssignmentLite   `json:"assignment"`
	Student          UserLite         `json:"student"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// AssignmentLite summarizes an assignment in submission responses.
type AssignmentLite struct {
	ID               uint       `json:"id"`
	Title            string     `json:"title"`
	DueDate          *time.Time `json:"due_date"`
	TimeLimitMinutes *int       `json:"time_limit_minutes"`
	GradingMode      string     `json:"grading_mode"`
	MaxPoints        float64    `json:"max_points"`
}

// UserLite summarizes an account without exposing full profile data.
type UserLite struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// NewAnswerResponse converts an Answer model into a DTO.
func NewAnswerResponse(model models.Answer) AnswerResponse {
	return AnswerResponse{
		ID:           model.ID,
		QuestionID:   model.QuestionID,
		AnswerText:   model.AnswerText,
		IsCorrect:    model.IsCorrect,
		PointsEarned: model.PointsEarned,
	}
}

// NewSubmissionResponse converts a Submission model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	response := SubmissionResponse{
		ID:               model.ID,
		AssignmentID:     model.AssignmentID,
		StudentID:        model.StudentID,
		AttemptNumber:    model.AttemptNumber,
		Status:           model.Status,
		GradingStatus:    model.GradingStatus,
		StartedAt:        model.StartedAt,
		SubmittedAt:      model.SubmittedAt,
		TimeSpentMinutes: model.TimeSpentMinutes,
		IsLate:           model.IsLate,
		CreatedAt:        model.CreatedAt,
		UpdatedAt:        model.UpdatedAt,
	}

	if model.Assignment.ID != 0 {
		response.Assignment = AssignmentLite{
			ID:               model.Assignment.ID,
			Title:            model.Assignment.Title,
			DueDate:          model.Assignment.DueDate,
			TimeLimitMinutes: model.Assignment.TimeLimitMinutes,
			GradingMode:      model.Assignment.GradingMode,
			MaxPoints:        model.Assignment.MaxPoints,
		}

		if !model.IsSubmitted() {
			if deadline, ok := model.Assignment.Deadline(model.StartedAt); ok {
				response.Deadline = &deadline
			}
		}
	}

	if model.Student.ID != 0 {
		response.Student = UserLite{
			ID:    model.Student.ID,
			Name:  model.Student.Name,
			Email: model.Student.Email,
		}
	}

	for _, answer := range model.Answers {
		response.Answers = append(response.Answers, NewAnswerResponse(answer))
	}

	return response
}

// NewSubmissionResponseSlice converts submission models into DTOs.
func NewSubmissionResponseSlice(submissions []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, NewSubmissionResponse(submission))
	}

	return responses
}
