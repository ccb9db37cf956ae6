package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lms-portal-api/internal/dto"
	"github.com/noah-isme/lms-portal-api/internal/models"
	"github.com/noah-isme/lms-portal-api/internal/repository"
)

// DashboardService produces the cached per-student progress aggregate.
type DashboardService interface {
	StudentDashboard(ctx context.Context, studentID uint) (dto.StudentDashboardResponse, error)
	InvalidateStudent(ctx context.Context, studentID uint)
}

type dashboardService struct {
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	grades      repository.GradeRepository
	enrollments repository.EnrollmentRepository
	cache       *redis.Client
	cacheTTL    time.Duration
	logger      zerolog.Logger
	now         func() time.Time
}

// NewDashboardService builds the dashboard aggregator.
func NewDashboardService(
	assignments repository.AssignmentRepository,
	submissions repository.SubmissionRepository,
	grades repository.GradeRepository,
	enrollments repository.EnrollmentRepository,
	cache *redis.Client,
	ttl time.Duration,
	logger zerolog.Logger,
) DashboardService {
	return &dashboardService{
		assignments: assignments,
		submissions: submissions,
		grades:      grades,
		enrollments: enrollments,
		cache:       cache,
		cacheTTL:    ttl,
		logger:      logger.With().Str("component", "dashboard_service").Logger(),
		now:         time.Now,
	}
}

func dashboardCacheKey(studentID uint) string {
	return fmt.Sprintf("dashboard:student:%d", studentID)
}

func (s *dashboardService) StudentDashboard(ctx context.Context, studentID uint) (dto.StudentDashboardResponse, error) {
	cacheKey := dashboardCacheKey(studentID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.StudentDashboardResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Uint("student_id", studentID).Msg("dashboard cache hit")
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read dashboard cache")
		}
	}

	response, err := s.buildResponse(ctx, studentID)
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	if s.cache != nil {
		payload, err := json.Marshal(response)
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store dashboard cache")
			}
		}
	}

	return response, nil
}

// InvalidateStudent drops the cached aggregate; the next read rebuilds it.
func (s *dashboardService) InvalidateStudent(ctx context.Context, studentID uint) {
	if s.cache == nil {
		return
	}

	if err := s.cache.Del(ctx, dashboardCacheKey(studentID)).Err(); err != nil {
		s.logger.Warn().Err(err).Uint("student_id", studentID).Msg("failed to invalidate dashboard cache")
	}
}

func (s *dashboardService) buildResponse(ctx context.Context, studentID uint) (dto.StudentDashboardResponse, error) {
	enrollments, err := s.enrollments.ListByStudent(ctx, studentID)
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	var assignments []models.Assignment
	for _, enrollment := range enrollments {
		courseID := enrollment.CourseID
		courseAssignments, err := s.assignments.List(ctx, repository.AssignmentFilter{
			CourseID:      &courseID,
			PublishedOnly: true,
		})
		if err != nil {
			return dto.StudentDashboardResponse{}, err
		}
		assignments = append(assignments, courseAssignments...)
	}

	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{StudentID: &studentID})
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	grades, err := s.grades.ListByStudent(ctx, studentID)
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	return s.assemble(assignments, submissions, grades), nil
}

// assemble folds assignments, attempts and grades into the dashboard rows.
// The latest attempt per assignment decides the row's status.
func (s *dashboardService) assemble(assignments []models.Assignment, submissions []models.Submission, grades []models.Grade) dto.StudentDashboardResponse {
	latestByAssignment := make(map[uint]models.Submission, len(submissions))
	for _, submission := range submissions {
		current, ok := latestByAssignment[submission.AssignmentID]
		if !ok || submission.AttemptNumber > current.AttemptNumber {
			latestByAssignment[submission.AssignmentID] = submission
		}
	}

	gradeBySubmission := make(map[uint]models.Grade, len(grades))
	for _, grade := range grades {
		gradeBySubmission[grade.SubmissionID] = grade
	}

	now := s.now()
	summary := dto.ProgressSummary{TotalAssignments: len(assignments)}
	rows := make([]dto.AssignmentProgress, 0, len(assignments))
	pending := make([]dto.AssignmentProgress, 0)

	var percentageSum float64
	for _, assignment := range assignments {
		row := dto.AssignmentProgress{
			AssignmentID: assignment.ID,
			Title:        assignment.Title,
			DueDate:      assignment.DueDate,
			Status:       "not_started",
			Overdue:      assignment.IsPastDue(now),
			UpdatedAt:    assignment.UpdatedAt,
		}

		if attempt, ok := latestByAssignment[assignment.ID]; ok {
			submissionID := attempt.ID
			row.SubmissionID = &submissionID
			row.AttemptNumber = attempt.AttemptNumber
			row.Status = attempt.Status
			row.UpdatedAt = attempt.UpdatedAt

			if attempt.IsSubmitted() {
				summary.Submitted++
				row.Overdue = false

				if grade, graded := gradeBySubmission[attempt.ID]; graded {
					percentage := grade.Percentage()
					row.Percentage = &percentage
					row.Feedback = grade.Feedback
					row.Status = "graded"

					summary.Graded++
					percentageSum += percentage
				}
			}
		}

		if row.Status != "graded" && row.Status != models.SubmissionStatusSubmitted {
			summary.Pending++
			pending = append(pending, row)
		}
		if row.Overdue {
			summary.Overdue++
		}

		rows = append(rows, row)
	}

	if summary.Graded > 0 {
		summary.AveragePercentage = roundToTenth(percentageSum / float64(summary.Graded))
	}

	return dto.StudentDashboardResponse{
		Summary:            summary,
		Assignments:        rows,
		PendingAssignments: pending,
		GeneratedAt:        now.UTC(),
	}
}

func roundToTenth(value float64) float64 {
	return math.Round(value*10) / 10
}
