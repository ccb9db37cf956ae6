package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/lms-portal-api/internal/dto"
	"github.com/noah-isme/lms-portal-api/internal/models"
	"github.com/noah-isme/lms-portal-api/internal/repository"
)

// ErrAttendanceForbidden indicates the caller may not read the requested history.
var ErrAttendanceForbidden = errors.New("not allowed to view this attendance history")

// ErrInvalidSessionDate indicates a session date that is not YYYY-MM-DD.
var ErrInvalidSessionDate = errors.New("invalid session date")

// AttendanceService records and reports class session attendance.
type AttendanceService interface {
	RecordSession(ctx context.Context, actor Actor, payload dto.AttendanceRecordRequest) ([]dto.AttendanceResponse, error)
	SessionSheet(ctx context.Context, actor Actor, courseID uint, day string) ([]dto.AttendanceResponse, error)
	StudentHistory(ctx context.Context, actor Actor, studentID uint, courseID *uint) ([]dto.AttendanceResponse, error)
	CourseSummary(ctx context.Context, actor Actor, courseID uint) ([]dto.AttendanceSummary, error)
}

type attendanceService struct {
	attendance repository.AttendanceRepository
	courses    repository.CourseRepository
	validator  *validator.Validate
	logger     zerolog.Logger
	now        func() time.Time
}

// NewAttendanceService builds the attendance service.
func NewAttendanceService(attendance repository.AttendanceRepository, courses repository.CourseRepository, validate *validator.Validate, logger zerolog.Logger) AttendanceService {
	return &attendanceService{
		attendance: attendance,
		courses:    courses,
		validator:  validate,
		logger:     logger.With().Str("component", "attendance_service").Logger(),
		now:        time.Now,
	}
}

// RecordSession writes a whole class session in one batch. Re-recording the
// same day replaces each student's status rather than duplicating rows.
func (s *attendanceService) RecordSession(ctx context.Context, actor Actor, payload dto.AttendanceRecordRequest) ([]dto.AttendanceResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return nil, err
	}

	if _, err := s.managedCourse(ctx, actor, payload.CourseID); err != nil {
		return nil, err
	}

	day, err := parseSessionDate(payload.SessionDate)
	if err != nil {
		return nil, err
	}

	records := make([]models.AttendanceRecord, 0, len(payload.Entries))
	for _, entry := range payload.Entries {
		records = append(records, models.AttendanceRecord{
			CourseID:    payload.CourseID,
			StudentID:   entry.StudentID,
			SessionDate: day,
			Status:      models.NormalizeAttendanceStatus(entry.Status),
			RecordedBy:  actor.UserID,
			Note:        entry.Note,
		})
	}

	if err := s.attendance.UpsertBatch(ctx, records); err != nil {
		return nil, err
	}

	s.logger.Info().
		Uint("course_id", payload.CourseID).
		Time("session_date", day).
		Int("student_count", len(records)).
		Msg("attendance recorded")

	saved, err := s.attendance.ListByCourseAndDate(ctx, payload.CourseID, day)
	if err != nil {
		return nil, err
	}

	return dto.NewAttendanceResponseSlice(saved), nil
}

func (s *attendanceService) SessionSheet(ctx context.Context, actor Actor, courseID uint, day string) ([]dto.AttendanceResponse, error) {
	if _, err := s.managedCourse(ctx, actor, courseID); err != nil {
		return nil, err
	}

	sessionDay, err := parseSessionDate(day)
	if err != nil {
		return nil, err
	}

	records, err := s.attendance.ListByCourseAndDate(ctx, courseID, sessionDay)
	if err != nil {
		return nil, err
	}

	return dto.NewAttendanceResponseSlice(records), nil
}

func (s *attendanceService) StudentHistory(ctx context.Context, actor Actor, studentID uint, courseID *uint) ([]dto.AttendanceResponse, error) {
	// Students only read their own history.
	if !actor.IsStaff() && actor.UserID != studentID {
		return nil, ErrAttendanceForbidden
	}

	records, err := s.attendance.ListByStudent(ctx, studentID, courseID)
	if err != nil {
		return nil, err
	}

	return dto.NewAttendanceResponseSlice(records), nil
}

func (s *attendanceService) CourseSummary(ctx context.Context, actor Actor, courseID uint) ([]dto.AttendanceSummary, error) {
	if _, err := s.managedCourse(ctx, actor, courseID); err != nil {
		return nil, err
	}

	records, err := s.attendance.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	return dto.SummarizeAttendance(records), nil
}

func (s *attendanceService) managedCourse(ctx context.Context, actor Actor, courseID uint) (models.Course, error) {
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

// parseSessionDate accepts date-only input and normalises it to midnight UTC
// so the uniqueness key is stable regardless of the caller's timezone.
func parseSessionDate(value string) (time.Time, error) {
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidSessionDate, err)
	}

	return parsed.UTC(), nil
}
