package dto

import (
	"encoding/json"
	"time"

	"github.com/noah-isme/lms-portal-api/internal/models"
)

// QuestionInput describes one question within an assignment payload.
type QuestionInput struct {
	QuestionType  string   `json:"question_type" validate:"required,oneof=multiple_choice short_answer essay file_upload"`
	Prompt        string   `json:"prompt" validate:"required"`
	Points        float64  `json:"points" validate:"required,gt=0"`
	Options       []string `json:"options" validate:"omitempty,dive,required"`
	CorrectOption *int     `json:"correct_option"`
	QuestionOrder int      `json:"question_order" validate:"gte=0"`
}

// AssignmentCreateRequest describes the payload for authoring an assignment.
type AssignmentCreateRequest struct {
	CourseID          uint            `json:"course_id" validate:"required,gt=0"`
	Title             string          `json:"title" validate:"required,min=3,max=255"`
	Description       string          `json:"description"`
	AssignmentType    string          `json:"assignment_type" validate:"omitempty,oneof=homework quiz exam assignment"`
	DueDate           *string         `json:"due_date"`
	TimeLimitMinutes  *int            `json:"time_limit_minutes" validate:"omitempty,gt=0"`
	GradingMode       string          `json:"grading_mode" validate:"omitempty,oneof=manual auto"`
	MaxPoints         float64         `json:"max_points" validate:"required,gt=0"`
	AllowResubmission bool            `json:"allow_resubmission"`
	Questions         []QuestionInput `json:"questions" validate:"required,min=1,dive"`
}

// AssignmentUpdateRequest allows partial assignment edits.
type AssignmentUpdateRequest struct {
	Title             *string         `json:"title" validate:"omitempty,min=3,max=255"`
	Description       *string         `json:"description"`
	DueDate           *string         `json:"due_date"`
	TimeLimitMinutes  *int            `json:"time_limit_minutes" validate:"omitempty,gt=0"`
	GradingMode       *string         `json:"grading_mode" validate:"omitempty,oneof=manual auto"`
	MaxPoints         *float64        `json:"max_points" validate:"omitempty,gt=0"`
	AllowResubmission *bool           `json:"allow_resubmission"`
	IsPublished       *bool           `json:"is_published"`
	Questions         []QuestionInput `json:"questions" validate:"omitempty,min=1,dive"`
}

// AssignmentFilter describes query string filters for listing assignments.
type AssignmentFilter struct {
	CourseID *uint   `query:"course_id"`
	Type     *string `query:"type" validate:"omitempty,oneof=homework quiz exam assignment"`
}

// QuestionResponse serializes a question. CorrectOption is only populated for
// staff views.
type QuestionResponse struct {
	ID            uint     `json:"id"`
	QuestionType  string   `json:"question_type"`
	Prompt        string   `json:"prompt"`
	Points        float64  `json:"points"`
	Options       []string `json:"options,omitempty"`
	CorrectOption *int     `json:"correct_option,omitempty"`
	QuestionOrder int      `json:"question_order"`
}

// AssignmentResponse is returned to API clients when viewing assignments.
type AssignmentResponse struct {
	ID                uint               `json:"id"`
	CourseID          uint               `json:"course_id"`
	Title             string             `json:"title"`
	Description       string             `json:"description"`
	AssignmentType    string             `json:"assignment_type"`
	DueDate           *time.Time         `json:"due_date"`
	TimeLimitMinutes  *int               `json:"time_limit_minutes"`
	GradingMode       string             `json:"grading_mode"`
	MaxPoints         float64            `json:"max_points"`
	AllowResubmission bool               `json:"allow_resubmission"`
	IsPublished       bool               `json:"is_published"`
	Questions         []QuestionResponse `json:"questions,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// DecodeOptions unpacks the stored option list of a question.
func DecodeOptions(question models.Question) []string {
	if len(question.Options) == 0 {
		return nil
	}

	var options []string
	if err := json.Unmarshal(question.Options, &options); err != nil {
		return nil
	}

	return options
}

// NewQuestionResponse converts a Question model into a DTO. Set includeAnswer
// for teacher/admin views; student views never see the correct option.
func NewQuestionResponse(model models.Question, includeAnswer bool) QuestionResponse {
	response := QuestionResponse{
		ID:            model.ID,
		QuestionType:  model.QuestionType,
		Prompt:        model.Prompt,
		Points:        model.Points,
		Options:       DecodeOptions(model),
		QuestionOrder: model.QuestionOrder,
	}

	if includeAnswer {
		response.CorrectOption = model.CorrectOption
	}

	return response
}

// NewAssignmentResponse converts an Assignment model into a DTO.
func NewAssignmentResponse(model models.Assignment, includeAnswers bool) AssignmentResponse {
	response := AssignmentResponse{
		ID:                model.ID,
		CourseID:          model.CourseID,
		Title:             model.Title,
		Description:       model.Description,
		AssignmentType:    model.AssignmentType,
		DueDate:           model.DueDate,
		TimeLimitMinutes:  model.TimeLimitMinutes,
		GradingMode:       model.GradingMode,
		MaxPoints:         model.MaxPoints,
		AllowResubmission: model.AllowResubmission,
		IsPublished:       model.IsPublished,
		CreatedAt:         model.CreatedAt,
		UpdatedAt:         model.UpdatedAt,
	}

	for _, question := range model.SortedQuestions() {
		response.Questions = append(response.Questions, NewQuestionResponse(question, includeAnswers))
	}

	return response
}

// NewAssignmentResponseSlice converts assignment models into DTOs.
func NewAssignmentResponseSlice(assignments []models.Assignment, includeAnswers bool) []AssignmentResponse {
	responses := make([]AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		responses = append(responses, NewAssignmentResponse(assignment, includeAnswers))
	}

	return responses
}
