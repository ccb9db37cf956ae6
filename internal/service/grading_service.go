package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
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

const gradingQueueGroup = "lms-grading"

// Notifier delivers a notification to a user. Satisfied by NotificationService.
type Notifier interface {
	Publish(ctx context.Context, payload dto.NotificationCreateRequest) (dto.NotificationResponse, error)
}

// GradingService scores submitted attempts. Jobs flow through a NATS queue
// group so any node can pick them up; without a broker the job runs in
// process with the same retry behaviour.
type GradingService interface {
	GradingEnqueuer
	GradeSubmission(ctx context.Context, submissionID uint) error
	Start(ctx context.Context)
}

type gradingJob struct {
	SubmissionID uint      `json:"submission_id"`
	Attempt      int       `json:"attempt"`
	EnqueuedAt   time.Time `json:"enqueued_at"`
}

type gradingService struct {
	submissions repository.SubmissionRepository
	grades      repository.GradeRepository
	nats        *nats.Conn
	subject     string
	maxAttempts int
	notifier    Notifier
	dashboards  DashboardInvalidator
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewGradingService builds the grading engine.
func NewGradingService(
	submissions repository.SubmissionRepository,
	grades repository.GradeRepository,
	natsConn *nats.Conn,
	channelBase string,
	maxAttempts int,
	notifier Notifier,
	dashboards DashboardInvalidator,
	logger zerolog.Logger,
) GradingService {
	subject := ""
	if channelBase != "" {
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".grading.jobs"
	}

	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	return &gradingService{
		submissions: submissions,
		grades:      grades,
		nats:        natsConn,
		subject:     subject,
		maxAttempts: maxAttempts,
		notifier:    notifier,
		dashboards:  dashboards,
		logger:      logger.With().Str("component", "grading_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/lms-portal-api/internal/service/grading"),
		now:         time.Now,
	}
}

// Enqueue schedules a grading job for the submission. With no broker wired
// the job runs inline on a fresh goroutine so the caller never blocks.
func (s *gradingService) Enqueue(ctx context.Context, submissionID uint) error {
	job := gradingJob{SubmissionID: submissionID, Attempt: 1, EnqueuedAt: s.now().UTC()}

	if s.nats != nil && s.subject != "" {
		return s.publish(job)
	}

	go s.runJob(context.Background(), job)

	return nil
}

// Start subscribes the node to the grading queue group.
func (s *gradingService) Start(ctx context.Context) {
	if s.nats == nil || s.subject == "" {
		return
	}

	sub, err := s.nats.QueueSubscribe(s.subject, gradingQueueGroup, func(msg *nats.Msg) {
		var job gradingJob
		if err := json.Unmarshal(msg.Data, &job); err != nil {
			s.logger.Warn().Err(err).Msg("invalid grading job payload")
			return
		}
		s.runJob(ctx, job)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to grading subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain grading subscription")
		}
	}()
}

func (s *gradingService) runJob(ctx context.Context, job gradingJob) {
	err := s.GradeSubmission(ctx, job.SubmissionID)
	if err == nil {
		observability.GradingJobs().WithLabelValues("completed").Inc()
		return
	}

	s.logger.Warn().Err(err).
		Uint("submission_id", job.SubmissionID).
		Int("attempt", job.Attempt).
		Msg("grading job failed")

	if job.Attempt < s.maxAttempts {
		observability.GradingRetries().Inc()
		job.Attempt++

		if s.nats != nil && s.subject != "" {
			if pubErr := s.publish(job); pubErr == nil {
				return
			}
			s.logger.Error().Uint("submission_id", job.SubmissionID).Msg("failed to requeue grading job, retrying inline")
		}

		s.runJob(ctx, job)
		return
	}

	observability.GradingJobs().WithLabelValues("failed").Inc()
	s.markFailed(ctx, job.SubmissionID)
}

// GradeSubmission scores one submitted attempt. The operation is idempotent:
// rescoring recomputes the same result and replaces the existing grade row.
func (s *gradingService) GradeSubmission(ctx context.Context, submissionID uint) error {
	spanCtx, span := s.tracer.Start(ctx, "grading.score", trace.WithAttributes(
		attribute.Int64("submission.id", int64(submissionID)),
	))
	defer span.End()

	submission, err := s.submissions.GetByID(spanCtx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubmissionNotFound
		}

		span.RecordError(err)
		return err
	}

	if !submission.IsSubmitted() {
		return fmt.Errorf("submission %d is not submitted", submissionID)
	}

	assignment := submission.Assignment

	answersByQuestion := make(map[uint]models.Answer, len(submission.Answers))
	for _, answer := range submission.Answers {
		answersByQuestion[answer.QuestionID] = answer
	}

	var earned float64
	for _, question := range assignment.SortedQuestions() {
		if !question.IsAutoGradable() || question.CorrectOption == nil {
			continue
		}

		answer, answered := answersByQuestion[question.ID]
		correct := false
		points := 0.0

		if answered {
			if choice, convErr := strconv.Atoi(strings.TrimSpace(answer.AnswerText)); convErr == nil {
				correct = choice == *question.CorrectOption
			}
			if correct {
				points = question.Points
			}

			answer.IsCorrect = &correct
			answer.PointsEarned = &points
			if err := s.submissions.UpdateAnswer(spanCtx, &answer); err != nil {
				span.RecordError(err)
				return err
			}
		}

		earned += points
	}

	if earned > assignment.MaxPoints {
		earned = assignment.MaxPoints
	}

	grade := models.Grade{
		SubmissionID: submission.ID,
		AssignmentID: submission.AssignmentID,
		StudentID:    submission.StudentID,
		PointsEarned: earned,
		MaxPoints:    assignment.MaxPoints,
		AutoGraded:   true,
		GradedAt:     s.now(),
	}

	if err := s.grades.Upsert(spanCtx, &grade); err != nil {
		span.RecordError(err)
		return err
	}

	submission.GradingStatus = models.GradingStatusCompleted
	if err := s.submissions.Update(spanCtx, &submission); err != nil {
		span.RecordError(err)
		return err
	}

	s.logger.Info().
		Uint("submission_id", submission.ID).
		Float64("points_earned", earned).
		Float64("max_points", assignment.MaxPoints).
		Msg("submission auto-graded")

	s.notifyGraded(spanCtx, submission, grade)

	if s.dashboards != nil {
		s.dashboards.InvalidateStudent(spanCtx, submission.StudentID)
	}

	return nil
}

func (s *gradingService) publish(job gradingJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}

	return s.nats.Publish(s.subject, payload)
}

// markFailed records the terminal failure so staff can rescore manually; the
// student learns their result is delayed rather than silently missing.
func (s *gradingService) markFailed(ctx context.Context, submissionID uint) {
	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		s.logger.Error().Err(err).Uint("submission_id", submissionID).Msg("failed to load submission for failure marking")
		return
	}

	submission.GradingStatus = models.GradingStatusFailed
	if err := s.submissions.Update(ctx, &submission); err != nil {
		s.logger.Error().Err(err).Uint("submission_id", submissionID).Msg("failed to mark grading failure")
		return
	}

	if s.notifier != nil {
		_, err := s.notifier.Publish(ctx, dto.NotificationCreateRequest{
			UserID: submission.StudentID,
			Type:   models.NotificationTypeGradingFailed,
			Title:  "Grading delayed",
			Body:   fmt.Sprintf("Automatic grading for %q did not complete. Your teacher will grade it manually.", submission.Assignment.Title),
		})
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to notify student of grading failure")
		}
	}
}

func (s *gradingService) notifyGraded(ctx context.Context, submission models.Submission, grade models.Grade) {
	if s.notifier == nil {
		return
	}

	_, err := s.notifier.Publish(ctx, dto.NotificationCreateRequest{
		UserID: submission.StudentID,
		Type:   models.NotificationTypeGradePosted,
		Title:  "Grade posted",
		Body:   fmt.Sprintf("Your submission for %q scored %.1f%%.", submission.Assignment.Title, grade.Percentage()),
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to notify student of posted grade")
	}
}
