package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/lms-portal-api/internal/dto"
	"github.com/noah-isme/lms-portal-api/internal/models"
	"github.com/noah-isme/lms-portal-api/internal/repository"
)

// ErrAssignmentNotFound indicates the requested assignment does not exist.
var ErrAssignmentNotFound = errors.New("assignment not found")

// ErrQuestionImportInvalid indicates the uploaded question document failed
// schema or content validation.
var ErrQuestionImportInvalid = errors.New("question import document invalid")

// questionImportSchema validates bulk question uploads before any row is
// touched. Rejecting the whole document keeps imports all-or-nothing.
const questionImportSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["questions"],
  "properties": {
    "questions": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["question_type", "prompt", "points"],
        "properties": {
          "question_type": {"enum": ["multiple_choice", "short_answer", "essay", "file_upload"]},
          "prompt": {"type": "string", "minLength": 1},
          "points": {"type": "number", "exclusiveMinimum": 0},
          "options": {"type": "array", "items": {"type": "string", "minLength": 1}},
          "correct_option": {"type": "integer", "minimum": 0},
          "question_order": {"type": "integer", "minimum": 0}
        }
      }
    }
  }
}`

// AssignmentService exposes assignment authoring and listing use cases.
type AssignmentService interface {
	List(ctx context.Context, actor Actor, filter dto.AssignmentFilter) ([]dto.AssignmentResponse, error)
	Get(ctx context.Context, actor Actor, id uint) (dto.AssignmentResponse, error)
	Create(ctx context.Context, actor Actor, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error)
	Update(ctx context.Context, actor Actor, id uint, payload dto.AssignmentUpdateRequest) (dto.AssignmentResponse, error)
	Delete(ctx context.Context, actor Actor, id uint) error
	ImportQuestions(ctx context.Context, actor Actor, assignmentID uint, document []byte) (dto.AssignmentResponse, error)
}

type assignmentService struct {
	assignments  repository.AssignmentRepository
	courses      repository.CourseRepository
	validator    *validator.Validate
	importSchema *jsonschema.Schema
	logger       zerolog.Logger
	now          func() time.Time
}

// NewAssignmentService builds the assignment service.
func NewAssignmentService(assignments repository.AssignmentRepository, courses repository.CourseRepository, validate *validator.Validate, logger zerolog.Logger) AssignmentService {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("questions.schema.json", bytes.NewReader([]byte(questionImportSchema))); err != nil {
		panic(fmt.Sprintf("invalid question import schema: %v", err))
	}
	schema := compiler.MustCompile("questions.schema.json")

	return &assignmentService{
		assignments:  assignments,
		courses:      courses,
		validator:    validate,
		importSchema: schema,
		logger:       logger.With().Str("component", "assignment_service").Logger(),
		now:          time.Now,
	}
}

func (s *assignmentService) List(ctx context.Context, actor Actor, filter dto.AssignmentFilter) ([]dto.AssignmentResponse, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, err
	}

	repoFilter := repository.AssignmentFilter{
		CourseID: filter.CourseID,
		Type:     filter.Type,
	}
	if !actor.IsStaff() {
		repoFilter.PublishedOnly = true
	}

	assignments, err := s.assignments.List(ctx, repoFilter)
	if err != nil {
		return nil, err
	}

	return dto.NewAssignmentResponseSlice(assignments, actor.IsStaff()), nil
}

func (s *assignmentService) Get(ctx context.Context, actor Actor, id uint) (dto.AssignmentResponse, error) {
	assignment, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrAssignmentNotFound
		}

		return dto.AssignmentResponse{}, err
	}

	if !assignment.IsPublished && !actor.IsStaff() {
		return dto.AssignmentResponse{}, ErrAssignmentNotFound
	}

	return dto.NewAssignmentResponse(assignment, actor.IsStaff()), nil
}

func (s *assignmentService) Create(ctx context.Context, actor Actor, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	if _, err := s.ownedCourse(ctx, actor, payload.CourseID); err != nil {
		return dto.AssignmentResponse{}, err
	}

	dueDate, err := parseOptionalTime(payload.DueDate)
	if err != nil {
		return dto.AssignmentResponse{}, fmt.Errorf("invalid due date: %w", err)
	}

	gradingMode := models.NormalizeGradingMode(payload.GradingMode)

	questions, err := buildQuestions(payload.Questions, gradingMode)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	assignment := models.Assignment{
		CourseID:          payload.CourseID,
		Title:             payload.Title,
		Description:       payload.Description,
		AssignmentType:    models.NormalizeAssignmentType(payload.AssignmentType),
		DueDate:           dueDate,
		TimeLimitMinutes:  payload.TimeLimitMinutes,
		GradingMode:       gradingMode,
		MaxPoints:         payload.MaxPoints,
		AllowResubmission: payload.AllowResubmission,
		Questions:         questions,
	}

	if err := s.assignments.Create(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.logger.Info().
		Uint("assignment_id", assignment.ID).
		Uint("course_id", assignment.CourseID).
		Str("grading_mode", assignment.GradingMode).
		Msg("assignment created")

	return dto.NewAssignmentResponse(assignment, true), nil
}

func (s *assignmentService) Update(ctx context.Context, actor Actor, id uint, payload dto.AssignmentUpdateRequest) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	assignment, err := s.ownedAssignment(ctx, actor, id)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	if payload.Title != nil {
		assignment.Title = *payload.Title
	}
	if payload.Description != nil {
		assignment.Description = *payload.Description
	}
	if payload.DueDate != nil {
		dueDate, err := parseOptionalTime(payload.DueDate)
		if err != nil {
			return dto.AssignmentResponse{}, fmt.Errorf("invalid due date: %w", err)
		}
		assignment.DueDate = dueDate
	}
	if payload.TimeLimitMinutes != nil {
		assignment.TimeLimitMinutes = payload.TimeLimitMinutes
	}
	if payload.GradingMode != nil {
		assignment.GradingMode = models.NormalizeGradingMode(*payload.GradingMode)
	}
	if payload.MaxPoints != nil {
		assignment.MaxPoints = *payload.MaxPoints
	}
	if payload.AllowResubmission != nil {
		assignment.AllowResubmission = *payload.AllowResubmission
	}
	if payload.IsPublished != nil {
		assignment.IsPublished = *payload.IsPublished
	}

	if len(payload.Questions) > 0 {
		questions, err := buildQuestions(payload.Questions, assignment.GradingMode)
		if err != nil {
			return dto.AssignmentResponse{}, err
		}

		if err := s.assignments.ReplaceQuestions(ctx, assignment.ID, questions); err != nil {
			return dto.AssignmentResponse{}, err
		}
		assignment.Questions = nil
	}

	if err := s.assignments.Update(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	refreshed, err := s.assignments.GetByID(ctx, assignment.ID)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	return dto.NewAssignmentResponse(refreshed, true), nil
}

func (s *assignmentService) Delete(ctx context.Context, actor Actor, id uint) error {
	if _, err := s.ownedAssignment(ctx, actor, id); err != nil {
		return err
	}

	if err := s.assignments.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info().Uint("assignment_id", id).Msg("assignment deleted")

	return nil
}

// ImportQuestions replaces the assignment's question set from an uploaded
// JSON document. The document is schema-validated before any write happens.
func (s *assignmentService) ImportQuestions(ctx context.Context, actor Actor, assignmentID uint, document []byte) (dto.AssignmentResponse, error) {
	assignment, err := s.ownedAssignment(ctx, actor, assignmentID)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	var decoded interface{}
	if err := json.Unmarshal(document, &decoded); err != nil {
		return dto.AssignmentResponse{}, fmt.Errorf("%w: %v", ErrQuestionImportInvalid, err)
	}

	if err := s.importSchema.Validate(decoded); err != nil {
		return dto.AssignmentResponse{}, fmt.Errorf("%w: %v", ErrQuestionImportInvalid, err)
	}

	var payload struct {
		Questions []dto.QuestionInput `json:"questions"`
	}
	if err := json.Unmarshal(document, &payload); err != nil {
		return dto.AssignmentResponse{}, fmt.Errorf("%w: %v", ErrQuestionImportInvalid, err)
	}

	questions, err := buildQuestions(payload.Questions, assignment.GradingMode)
	if err != nil {
		return dto.AssignmentResponse{}, fmt.Errorf("%w: %v", ErrQuestionImportInvalid, err)
	}

	if err := s.assignments.ReplaceQuestions(ctx, assignment.ID, questions); err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.logger.Info().
		Uint("assignment_id", assignment.ID).
		Int("question_count", len(questions)).
		Msg("question set imported")

	refreshed, err := s.assignments.GetByID(ctx, assignment.ID)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	return dto.NewAssignmentResponse(refreshed, true), nil
}

func (s *assignmentService) ownedAssignment(ctx context.Context, actor Actor, id uint) (models.Assignment, error) {
	assignment, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Assignment{}, ErrAssignmentNotFound
		}

		return models.Assignment{}, err
	}

	if _, err := s.ownedCourse(ctx, actor, assignment.CourseID); err != nil {
		return models.Assignment{}, err
	}

	return assignment, nil
}

func (s *assignmentService) ownedCourse(ctx context.Context, actor Actor, courseID uint) (models.Course, error) {
	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Course{}, ErrCourseNotFound
		}

		return models.Course{}, err
	}

	if !actor.IsAdmin() && course.TeacherID != actor.UserID {
		return models.Course{}, ErrNotCourseOwner
	}

	return course, nil
}

// buildQuestions converts inputs to models and enforces the structural rules
// auto grading depends on: a multiple choice question must carry options and
// a correct option index inside their range.
func buildQuestions(inputs []dto.QuestionInput, gradingMode string) ([]models.Question, error) {
	questions := make([]models.Question, 0, len(inputs))
	for i, input := range inputs {
		question := models.Question{
			QuestionType:  input.QuestionType,
			Prompt:        input.Prompt,
			Points:        input.Points,
			CorrectOption: input.CorrectOption,
			QuestionOrder: input.QuestionOrder,
		}
		if question.QuestionOrder == 0 {
			question.QuestionOrder = i
		}

		if input.QuestionType == models.QuestionTypeMultipleChoice {
			if len(input.Options) < 2 {
				return nil, fmt.Errorf("question %d: multiple choice needs at least two options", i+1)
			}
			if gradingMode == models.GradingModeAuto {
				if input.CorrectOption == nil {
					return nil, fmt.Errorf("question %d: auto graded multiple choice needs a correct option", i+1)
				}
				if *input.CorrectOption < 0 || *input.CorrectOption >= len(input.Options) {
					return nil, fmt.Errorf("question %d: correct option out of range", i+1)
				}
			}

			encoded, err := json.Marshal(input.Options)
			if err != nil {
				return nil, fmt.Errorf("question %d: %w", i+1, err)
			}
			question.Options = datatypes.JSON(encoded)
		}

		questions = append(questions, question)
	}

	return questions, nil
}

func parseOptionalTime(value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}

	parsed, err := time.Parse(time.RFC3339, *value)
	if err != nil {
		return nil, err
	}

	return &parsed, nil
}
