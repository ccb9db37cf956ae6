package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/lms-portal-api/internal/dto"
	"github.com/noah-isme/lms-portal-api/internal/models"
	"github.com/noah-isme/lms-portal-api/internal/repository"
	"github.com/noah-isme/lms-portal-api/pkg/ai"
)

// ErrGradeNotFound indicates no grade exists for the requested submission.
var ErrGradeNotFound = errors.New("grade not found")

// ErrPointsOutOfRange indicates the awarded points fall outside [0, max_points].
var ErrPointsOutOfRange = errors.New("points outside the assignment's range")

// ErrNotYetSubmitted indicates an attempt cannot be graded before it is submitted.
var ErrNotYetSubmitted = errors.New("attempt not yet submitted")

// ErrDraftingUnavailable indicates no feedback drafter is configured.
var ErrDraftingUnavailable = errors.New("feedback drafting unavailable")

// GradeService exposes manual grading and gradebook use cases.
type GradeService interface {
	UpsertGrade(ctx context.Context, actor Actor, submissionID uint, payload dto.GradeUpsertRequest) (dto.GradeResponse, error)
	GetForSubmission(ctx context.Context, actor Actor, submissionID uint) (dto.GradeResponse, error)
	Gradebook(ctx context.Context, actor Actor, assignmentID uint) ([]dto.GradebookEntry, error)
	MyGrades(ctx context.Context, studentID uint) ([]dto.GradeResponse, error)
	DraftFeedback(ctx context.Context, actor Actor, submissionID uint) (ai.FeedbackDraft, error)
}

type gradeService struct {
	grades      repository.GradeRepository
	submissions repository.SubmissionRepository
	drafter     ai.Drafter
	notifier    Notifier
	dashboards  DashboardInvalidator
	validator   *validator.Validate
	logger      zerolog.Logger
	now         func() time.Time
}

// NewGradeService builds the manual grading service. The drafter is optional;
// without one, feedback drafting reports ErrDraftingUnavailable.
func NewGradeService(
	grades repository.GradeRepository,
	submissions repository.SubmissionRepository,
	drafter ai.Drafter,
	notifier Notifier,
	dashboards DashboardInvalidator,
	validate *validator.Validate,
	logger zerolog.Logger,
) GradeService {
	return &gradeService{
		grades:      grades,
		submissions: submissions,
		drafter:     drafter,
		notifier:    notifier,
		dashboards:  dashboards,
		validator:   validate,
		logger:      logger.With().Str("component", "grade_service").Logger(),
		now:         time.Now,
	}
}

// UpsertGrade sets or replaces the grade for one submission. Awarded points
// are validated against the assignment's max before anything is written;
// regrading simply replaces the previous row.
func (s *gradeService) UpsertGrade(ctx context.Context, actor Actor, submissionID uint, payload dto.GradeUpsertRequest) (dto.GradeResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.GradeResponse{}, err
	}

	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.GradeResponse{}, ErrSubmissionNotFound
		}

		return dto.GradeResponse{}, err
	}

	if !submission.IsSubmitted() {
		return dto.GradeResponse{}, ErrNotYetSubmitted
	}

	maxPoints := submission.Assignment.MaxPoints
	if payload.PointsEarned < 0 || payload.PointsEarned > maxPoints {
		return dto.GradeResponse{}, ErrPointsOutOfRange
	}

	gradedBy := actor.UserID
	grade := models.Grade{
		SubmissionID: submission.ID,
		AssignmentID: submission.AssignmentID,
		StudentID:    submission.StudentID,
		PointsEarned: payload.PointsEarned,
		MaxPoints:    maxPoints,
		Feedback:     payload.Feedback,
		AutoGraded:   false,
		GradedBy:     &gradedBy,
		GradedAt:     s.now(),
	}

	if err := s.grades.Upsert(ctx, &grade); err != nil {
		return dto.GradeResponse{}, err
	}

	// A manual grade settles anything automatic grading left behind.
	if submission.GradingStatus == models.GradingStatusPending || submission.GradingStatus == models.GradingStatusFailed {
		submission.GradingStatus = models.GradingStatusCompleted
		if err := s.submissions.Update(ctx, &submission); err != nil {
			s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("failed to settle grading status")
		}
	}

	s.logger.Info().
		Uint("submission_id", submission.ID).
		Uint("graded_by", actor.UserID).
		Float64("points_earned", grade.PointsEarned).
		Msg("submission graded")

	if s.notifier != nil {
		_, err := s.notifier.Publish(ctx, dto.NotificationCreateRequest{
			UserID: submission.StudentID,
			Type:   models.NotificationTypeGradePosted,
			Title:  "Grade posted",
			Body:   "Your submission for \"" + submission.Assignment.Title + "\" has been graded.",
		})
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to notify student of posted grade")
		}
	}

	if s.dashboards != nil {
		s.dashboards.InvalidateStudent(ctx, submission.StudentID)
	}

	return dto.NewGradeResponse(grade), nil
}

func (s *gradeService) GetForSubmission(ctx context.Context, actor Actor, submissionID uint) (dto.GradeResponse, error) {
	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.GradeResponse{}, ErrSubmissionNotFound
		}

		return dto.GradeResponse{}, err
	}

	if !actor.IsStaff() && submission.StudentID != actor.UserID {
		return dto.GradeResponse{}, ErrNotSubmissionOwner
	}

	grade, err := s.grades.GetBySubmission(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.GradeResponse{}, ErrGradeNotFound
		}

		return dto.GradeResponse{}, err
	}

	return dto.NewGradeResponse(grade), nil
}

// Gradebook pairs every submitted attempt on the assignment with its current
// grade, ungraded attempts included, for the teacher grading view.
func (s *gradeService) Gradebook(ctx context.Context, actor Actor, assignmentID uint) ([]dto.GradebookEntry, error) {
	status := models.SubmissionStatusSubmitted
	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{
		AssignmentID: &assignmentID,
		Status:       &status,
	})
	if err != nil {
		return nil, err
	}

	grades, err := s.grades.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	gradeBySubmission := make(map[uint]models.Grade, len(grades))
	for _, grade := range grades {
		gradeBySubmission[grade.SubmissionID] = grade
	}

	entries := make([]dto.GradebookEntry, 0, len(submissions))
	for _, submission := range submissions {
		entry := dto.GradebookEntry{Submission: dto.NewSubmissionResponse(submission)}
		if grade, ok := gradeBySubmission[submission.ID]; ok {
			response := dto.NewGradeResponse(grade)
			entry.Grade = &response
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

func (s *gradeService) MyGrades(ctx context.Context, studentID uint) ([]dto.GradeResponse, error) {
	grades, err := s.grades.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	return dto.NewGradeResponseSlice(grades), nil
}

// DraftFeedback asks the language model for a starting point when grading
// free-text answers. The draft is advisory; nothing is stored until the
// teacher submits the grade themselves.
func (s *gradeService) DraftFeedback(ctx context.Context, actor Actor, submissionID uint) (ai.FeedbackDraft, error) {
	if s.drafter == nil {
		return ai.FeedbackDraft{}, ErrDraftingUnavailable
	}

	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ai.FeedbackDraft{}, ErrSubmissionNotFound
		}

		return ai.FeedbackDraft{}, err
	}

	if !submission.IsSubmitted() {
		return ai.FeedbackDraft{}, ErrNotYetSubmitted
	}

	// Draft against the first free-text answer; objective questions are
	// already scored by the grading engine.
	var prompt, answerText string
	for _, answer := range submission.Answers {
		if answer.Question.IsAutoGradable() {
			continue
		}
		prompt = answer.Question.Prompt
		answerText = answer.AnswerText
		break
	}

	if answerText == "" {
		return ai.FeedbackDraft{}, errors.New("no free-text answer to draft feedback for")
	}

	draft, err := s.drafter.Draft(ctx, ai.FeedbackInput{
		AssignmentTitle: submission.Assignment.Title,
		QuestionPrompt:  prompt,
		AnswerText:      answerText,
		MaxPoints:       submission.Assignment.MaxPoints,
	})
	if err != nil {
		return ai.FeedbackDraft{}, err
	}

	s.logger.Info().
		Uint("submission_id", submission.ID).
		Uint("teacher_id", actor.UserID).
		Msg("feedback draft generated")

	return draft, nil
}
