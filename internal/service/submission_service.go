package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/lms-portal-api/internal/dto"
	"github.com/noah-isme/lms-portal-api/internal/models"
	"github.com/noah-isme/lms-portal-api/internal/observability"
	"github.com/noah-isme/lms-portal-api/internal/repository"
)

// ErrSubmissionNotFound indicates the requested submission does not exist.
var ErrSubmissionNotFound = errors.New("submission not found")

// ErrAlreadySubmitted indicates the attempt was already finalised; submitting
// twice is rejected rather than silently overwriting.
var ErrAlreadySubmitted = errors.New("attempt already submitted")

// ErrNoActiveAttempt indicates the student has no in-progress attempt to submit.
var ErrNoActiveAttempt = errors.New("no active attempt")

// ErrResubmissionNotAllowed indicates the assignment permits a single attempt.
var ErrResubmissionNotAllowed = errors.New("resubmission not allowed")

// ErrNotSubmissionOwner indicates the caller may not view this submission.
var ErrNotSubmissionOwner = errors.New("caller does not own this submission")

// ErrUnknownQuestion flags an answer referencing a question outside the assignment.
var ErrUnknownQuestion = errors.New("answer references a question outside this assignment")

// GradingEnqueuer hands a finalised submission to the grading engine.
type GradingEnqueuer interface {
	Enqueue(ctx context.Context, submissionID uint) error
}

// DashboardInvalidator drops cached dashboard aggregates after a mutation.
type DashboardInvalidator interface {
	InvalidateStudent(ctx context.Context, studentID uint)
}

// SubmissionService drives the attempt state machine: start, submit, expire.
type SubmissionService interface {
	StartAttempt(ctx context.Context, actor Actor, assignmentID uint) (dto.SubmissionResponse, error)
	Submit(ctx context.Context, actor Actor, assignmentID uint, payload dto.SubmitRequest) (dto.SubmissionResponse, error)
	GetCurrent(ctx context.Context, actor Actor, assignmentID uint) (dto.SubmissionResponse, error)
	Get(ctx context.Context, actor Actor, id uint) (dto.SubmissionResponse, error)
	List(ctx context.Context, actor Actor, filter repository.SubmissionFilter) ([]dto.SubmissionResponse, error)
	SweepExpired(ctx context.Context) (int, error)
	Start(ctx context.Context)
}

type submissionService struct {
	submissions repository.SubmissionRepository
	assignments repository.AssignmentRepository
	enrollments repository.EnrollmentRepository
	grader      GradingEnqueuer
	dashboards  DashboardInvalidator
	validator   *validator.Validate
	sweepEvery  time.Duration
	grace       time.Duration
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewSubmissionService builds the submission workflow service. The grace
// duration gives slow clients a short window past a timed deadline before
// the sweeper force-submits their attempt.
func NewSubmissionService(
	submissions repository.SubmissionRepository,
	assignments repository.AssignmentRepository,
	enrollments repository.EnrollmentRepository,
	grader GradingEnqueuer,
	dashboards DashboardInvalidator,
	validate *validator.Validate,
	sweepEvery, grace time.Duration,
	logger zerolog.Logger,
) SubmissionService {
	return &submissionService{
		submissions: submissions,
		assignments: assignments,
		enrollments: enrollments,
		grader:      grader,
		dashboards:  dashboards,
		validator:   validate,
		sweepEvery:  sweepEvery,
		grace:       grace,
		logger:      logger.With().Str("component", "submission_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/lms-portal-api/internal/service/submission"),
		now:         time.Now,
	}
}

// StartAttempt opens a new attempt, or returns the existing open one. Calling
// start twice never creates a second concurrent attempt.
func (s *submissionService) StartAttempt(ctx context.Context, actor Actor, assignmentID uint) (dto.SubmissionResponse, error) {
	assignment, err := s.openAssignment(ctx, actor, assignmentID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	latest, err := s.submissions.GetLatestAttempt(ctx, assignmentID, actor.UserID)
	switch {
	case err == nil:
		if !latest.IsSubmitted() {
			return dto.NewSubmissionResponse(latest), nil
		}
		if !assignment.AllowResubmission {
			return dto.SubmissionResponse{}, ErrResubmissionNotAllowed
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		latest = models.Submission{}
	default:
		return dto.SubmissionResponse{}, err
	}

	attempt := models.Submission{
		AssignmentID:  assignmentID,
		StudentID:     actor.UserID,
		AttemptNumber: latest.AttemptNumber + 1,
		Status:        models.SubmissionStatusInProgress,
		GradingStatus: models.GradingStatusNone,
		StartedAt:     s.now(),
	}

	if err := s.submissions.Create(ctx, &attempt); err != nil {
		return dto.SubmissionResponse{}, err
	}

	s.logger.Info().
		Uint("submission_id", attempt.ID).
		Uint("assignment_id", assignmentID).
		Uint("student_id", actor.UserID).
		Int("attempt_number", attempt.AttemptNumber).
		Msg("attempt started")

	created, err := s.submissions.GetByID(ctx, attempt.ID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	return dto.NewSubmissionResponse(created), nil
}

// Submit finalises the open attempt with the collected answers. Submitted
// attempts are immutable; a second submit returns ErrAlreadySubmitted.
func (s *submissionService) Submit(ctx context.Context, actor Actor, assignmentID uint, payload dto.SubmitRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	attempt, err := s.submissions.GetLatestAttempt(ctx, assignmentID, actor.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrNoActiveAttempt
		}

		return dto.SubmissionResponse{}, err
	}

	if attempt.IsSubmitted() {
		return dto.SubmissionResponse{}, ErrAlreadySubmitted
	}

	spanCtx, span := s.tracer.Start(ctx, "submissions.submit", trace.WithAttributes(
		attribute.Int64("submission.id", int64(attempt.ID)),
		attribute.Int64("assignment.id", int64(assignmentID)),
	))
	defer span.End()

	answers, err := s.buildAnswers(attempt, payload.Answers)
	if err != nil {
		span.RecordError(err)
		return dto.SubmissionResponse{}, err
	}

	if err := s.submissions.CreateAnswers(spanCtx, answers); err != nil {
		span.RecordError(err)
		return dto.SubmissionResponse{}, err
	}

	if err := s.finalise(spanCtx, &attempt, s.now()); err != nil {
		span.RecordError(err)
		return dto.SubmissionResponse{}, err
	}

	submitted, err := s.submissions.GetByID(spanCtx, attempt.ID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	return dto.NewSubmissionResponse(submitted), nil
}

func (s *submissionService) GetCurrent(ctx context.Context, actor Actor, assignmentID uint) (dto.SubmissionResponse, error) {
	attempt, err := s.submissions.GetLatestAttempt(ctx, assignmentID, actor.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}

		return dto.SubmissionResponse{}, err
	}

	return dto.NewSubmissionResponse(attempt), nil
}

func (s *submissionService) Get(ctx context.Context, actor Actor, id uint) (dto.SubmissionResponse, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}

		return dto.SubmissionResponse{}, err
	}

	if !actor.IsStaff() && submission.StudentID != actor.UserID {
		return dto.SubmissionResponse{}, ErrNotSubmissionOwner
	}

	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionService) List(ctx context.Context, actor Actor, filter repository.SubmissionFilter) ([]dto.SubmissionResponse, error) {
	// Students only ever see their own attempts regardless of filter.
	if !actor.IsStaff() {
		studentID := actor.UserID
		filter.StudentID = &studentID
	}

	submissions, err := s.submissions.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	return dto.NewSubmissionResponseSlice(submissions), nil
}

// SweepExpired force-submits timed attempts whose deadline plus grace has
// passed. It returns the number of attempts closed.
func (s *submissionService) SweepExpired(ctx context.Context) (int, error) {
	open, err := s.submissions.ListInProgressTimed(ctx)
	if err != nil {
		return 0, err
	}

	swept := 0
	now := s.now()
	for _, attempt := range open {
		deadline, ok := attempt.Assignment.Deadline(attempt.StartedAt)
		if !ok || now.Before(deadline.Add(s.grace)) {
			continue
		}

		if err := s.finalise(ctx, &attempt, deadline); err != nil {
			s.logger.Error().Err(err).Uint("submission_id", attempt.ID).Msg("failed to sweep expired attempt")
			continue
		}

		observability.SubmissionsSwept().Inc()
		swept++

		s.logger.Info().
			Uint("submission_id", attempt.ID).
			Uint("assignment_id", attempt.AssignmentID).
			Time("deadline", deadline).
			Msg("expired attempt auto-submitted")
	}

	return swept, nil
}

// Start runs the expiry sweeper until the context is cancelled.
func (s *submissionService) Start(ctx context.Context) {
	if s.sweepEvery <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(s.sweepEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.SweepExpired(ctx); err != nil {
					s.logger.Error().Err(err).Msg("submission sweep failed")
				}
			}
		}
	}()
}

// finalise flips the attempt to submitted and records timing. effectiveAt is
// clamped to the timed deadline so a late or swept submit never reports more
// time than the limit allows.
func (s *submissionService) finalise(ctx context.Context, attempt *models.Submission, effectiveAt time.Time) error {
	assignment := attempt.Assignment

	submittedAt := effectiveAt
	isLate := assignment.IsPastDue(submittedAt)

	if deadline, ok := assignment.Deadline(attempt.StartedAt); ok {
		if submittedAt.After(deadline) {
			submittedAt = deadline
		}
	}

	// Whole minutes only; a partial minute does not count as spent.
	spent := int(submittedAt.Sub(attempt.StartedAt) / time.Minute)
	if spent < 0 {
		spent = 0
	}
	if assignment.IsTimed() && spent > *assignment.TimeLimitMinutes {
		spent = *assignment.TimeLimitMinutes
	}

	attempt.Status = models.SubmissionStatusSubmitted
	attempt.SubmittedAt = &submittedAt
	attempt.TimeSpentMinutes = &spent
	attempt.IsLate = isLate

	autoGrade := assignment.GradingMode == models.GradingModeAuto
	if autoGrade {
		attempt.GradingStatus = models.GradingStatusPending
	}

	if err := s.submissions.Update(ctx, attempt); err != nil {
		return err
	}

	if autoGrade && s.grader != nil {
		if err := s.grader.Enqueue(ctx, attempt.ID); err != nil {
			s.logger.Error().Err(err).Uint("submission_id", attempt.ID).Msg("failed to enqueue grading job")
		}
	}

	if s.dashboards != nil {
		s.dashboards.InvalidateStudent(ctx, attempt.StudentID)
	}

	return nil
}

// buildAnswers maps submitted answers onto the assignment's questions. Unknown
// question ids are rejected; when the same question appears twice the last
// answer wins. Entries left blank produce no Answer row, so an untouched
// question stays unanswered rather than scored wrong.
func (s *submissionService) buildAnswers(attempt models.Submission, inputs []dto.AnswerInput) ([]models.Answer, error) {
	known := make(map[uint]struct{}, len(attempt.Assignment.Questions))
	for _, question := range attempt.Assignment.Questions {
		known[question.ID] = struct{}{}
	}

	byQuestion := make(map[uint]string, len(inputs))
	order := make([]uint, 0, len(inputs))
	for _, input := range inputs {
		if _, ok := known[input.QuestionID]; !ok {
			return nil, ErrUnknownQuestion
		}
		if _, seen := byQuestion[input.QuestionID]; !seen {
			order = append(order, input.QuestionID)
		}
		byQuestion[input.QuestionID] = input.AnswerText
	}

	answers := make([]models.Answer, 0, len(order))
	for _, questionID := range order {
		text := byQuestion[questionID]
		if strings.TrimSpace(text) == "" {
			continue
		}

		answers = append(answers, models.Answer{
			SubmissionID: attempt.ID,
			QuestionID:   questionID,
			AnswerText:   text,
		})
	}

	return answers, nil
}

// openAssignment checks the assignment is published and the student enrolled
// in its course before an attempt may start.
func (s *submissionService) openAssignment(ctx context.Context, actor Actor, assignmentID uint) (models.Assignment, error) {
	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Assignment{}, ErrAssignmentNotFound
		}

		return models.Assignment{}, err
	}

	if !assignment.IsPublished {
		return models.Assignment{}, ErrAssignmentNotFound
	}

	enrolled, err := s.enrollments.IsEnrolled(ctx, assignment.CourseID, actor.UserID)
	if err != nil {
		return models.Assignment{}, err
	}
	if !enrolled {
		return models.Assignment{}, ErrNotEnrolled
	}

	return assignment, nil
}
