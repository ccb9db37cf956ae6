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
)

// ErrCourseNotFound indicates the requested course does not exist.
var ErrCourseNotFound = errors.New("course not found")

// ErrLessonNotFound indicates the requested lesson does not exist.
var ErrLessonNotFound = errors.New("lesson not found")

// ErrNotCourseOwner indicates the caller does not own the course they tried to modify.
var ErrNotCourseOwner = errors.New("caller does not own this course")

// ErrNotEnrolled indicates the student is not a member of the course.
var ErrNotEnrolled = errors.New("student not enrolled in course")

// CourseService exposes course, lesson and enrolment use cases.
type CourseService interface {
	List(ctx context.Context, actor Actor) ([]dto.CourseResponse, error)
	Get(ctx context.Context, actor Actor, id uint) (dto.CourseResponse, error)
	Create(ctx context.Context, actor Actor, payload dto.CourseCreateRequest) (dto.CourseResponse, error)
	Update(ctx context.Context, actor Actor, id uint, payload dto.CourseUpdateRequest) (dto.CourseResponse, error)
	Delete(ctx context.Context, actor Actor, id uint) error
	AddLesson(ctx context.Context, actor Actor, courseID uint, payload dto.LessonCreateRequest) (dto.LessonResponse, error)
	UpdateLesson(ctx context.Context, actor Actor, lessonID uint, payload dto.LessonUpdateRequest) (dto.LessonResponse, error)
	DeleteLesson(ctx context.Context, actor Actor, lessonID uint) error
	Enroll(ctx context.Context, actor Actor, courseID, studentID uint) (dto.EnrollmentResponse, error)
	Unenroll(ctx context.Context, actor Actor, courseID, studentID uint) error
	Roster(ctx context.Context, actor Actor, courseID uint) ([]dto.EnrollmentResponse, error)
	MyCourses(ctx context.Context, studentID uint) ([]dto.EnrollmentResponse, error)
}

// Actor identifies the authenticated caller for authorisation decisions.
type Actor struct {
	UserID uint
	Role   string
}

// IsStaff reports whether the actor may author content and grade work.
func (a Actor) IsStaff() bool {
	return a.Role == models.RoleTeacher || a.Role == models.RoleAdmin
}

// IsAdmin reports whether the actor has operator privileges.
func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

type courseService struct {
	courses     repository.CourseRepository
	enrollments repository.EnrollmentRepository
	validator   *validator.Validate
	logger      zerolog.Logger
	now         func() time.Time
}

// NewCourseService builds the course service.
func NewCourseService(courses repository.CourseRepository, enrollments repository.EnrollmentRepository, validate *validator.Validate, logger zerolog.Logger) CourseService {
	return &courseService{
		courses:     courses,
		enrollments: enrollments,
		validator:   validate,
		logger:      logger.With().Str("component", "course_service").Logger(),
		now:         time.Now,
	}
}

func (s *courseService) List(ctx context.Context, actor Actor) ([]dto.CourseResponse, error) {
	filter := repository.CourseFilter{}
	if !actor.IsStaff() {
		filter.PublishedOnly = true
	}

	courses, err := s.courses.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	return dto.NewCourseResponseSlice(courses), nil
}

func (s *courseService) Get(ctx context.Context, actor Actor, id uint) (dto.CourseResponse, error) {
	course, err := s.courses.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CourseResponse{}, ErrCourseNotFound
		}

		return dto.CourseResponse{}, err
	}

	// Unpublished courses are only visible to staff.
	if !course.IsPublished && !actor.IsStaff() {
		return dto.CourseResponse{}, ErrCourseNotFound
	}

	return dto.NewCourseResponse(course), nil
}

func (s *courseService) Create(ctx context.Context, actor Actor, payload dto.CourseCreateRequest) (dto.CourseResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CourseResponse{}, err
	}

	course := models.Course{
		Title:       payload.Title,
		Description: payload.Description,
		TeacherID:   actor.UserID,
	}

	if err := s.courses.Create(ctx, &course); err != nil {
		return dto.CourseResponse{}, err
	}

	s.logger.Info().Uint("course_id", course.ID).Uint("teacher_id", actor.UserID).Msg("course created")

	return dto.NewCourseResponse(course), nil
}

func (s *courseService) Update(ctx context.Context, actor Actor, id uint, payload dto.CourseUpdateRequest) (dto.CourseResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CourseResponse{}, err
	}

	course, err := s.ownedCourse(ctx, actor, id)
	if err != nil {
		return dto.CourseResponse{}, err
	}

	if payload.Title != nil {
		course.Title = *payload.Title
	}
	if payload.Description != nil {
		course.Description = *payload.Description
	}
	if payload.IsPublished != nil {
		course.IsPublished = *payload.IsPublished
	}

	if err := s.courses.Update(ctx, &course); err != nil {
		return dto.CourseResponse{}, err
	}

	return dto.NewCourseResponse(course), nil
}

func (s *courseService) Delete(ctx context.Context, actor Actor, id uint) error {
	if _, err := s.ownedCourse(ctx, actor, id); err != nil {
		return err
	}

	if err := s.courses.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info().Uint("course_id", id).Msg("course deleted")

	return nil
}

func (s *courseService) AddLesson(ctx context.Context, actor Actor, courseID uint, payload dto.LessonCreateRequest) (dto.LessonResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.LessonResponse{}, err
	}

	if _, err := s.ownedCourse(ctx, actor, courseID); err != nil {
		return dto.LessonResponse{}, err
	}

	lesson := models.Lesson{
		CourseID:    courseID,
		Title:       payload.Title,
		Content:     payload.Content,
		LessonOrder: payload.LessonOrder,
	}

	if err := s.courses.CreateLesson(ctx, &lesson); err != nil {
		return dto.LessonResponse{}, err
	}

	return dto.NewLessonResponse(lesson), nil
}

func (s *courseService) UpdateLesson(ctx context.Context, actor Actor, lessonID uint, payload dto.LessonUpdateRequest) (dto.LessonResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.LessonResponse{}, err
	}

	lesson, err := s.courses.GetLesson(ctx, lessonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.LessonResponse{}, ErrLessonNotFound
		}

		return dto.LessonResponse{}, err
	}

	if _, err := s.ownedCourse(ctx, actor, lesson.CourseID); err != nil {
		return dto.LessonResponse{}, err
	}

	if payload.Title != nil {
		lesson.Title = *payload.Title
	}
	if payload.Content != nil {
		lesson.Content = *payload.Content
	}
	if payload.LessonOrder != nil {
		lesson.LessonOrder = *payload.LessonOrder
	}

	if err := s.courses.UpdateLesson(ctx, &lesson); err != nil {
		return dto.LessonResponse{}, err
	}

	return dto.NewLessonResponse(lesson), nil
}

func (s *courseService) DeleteLesson(ctx context.Context, actor Actor, lessonID uint) error {
	lesson, err := s.courses.GetLesson(ctx, lessonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrLessonNotFound
		}

		return err
	}

	if _, err := s.ownedCourse(ctx, actor, lesson.CourseID); err != nil {
		return err
	}

	return s.courses.DeleteLesson(ctx, lessonID)
}

func (s *courseService) Enroll(ctx context.Context, actor Actor, courseID, studentID uint) (dto.EnrollmentResponse, error) {
	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.EnrollmentResponse{}, ErrCourseNotFound
		}

		return dto.EnrollmentResponse{}, err
	}

	// Students self-enrol into published courses only; staff can place anyone.
	if !actor.IsStaff() {
		if actor.UserID != studentID || !course.IsPublished {
			return dto.EnrollmentResponse{}, ErrNotCourseOwner
		}
	}

	enrollment := models.Enrollment{CourseID: courseID, StudentID: studentID}
	if err := s.enrollments.Enroll(ctx, &enrollment); err != nil {
		return dto.EnrollmentResponse{}, err
	}

	s.logger.Info().Uint("course_id", courseID).Uint("student_id", studentID).Msg("student enrolled")

	return dto.NewEnrollmentResponse(enrollment), nil
}

func (s *courseService) Unenroll(ctx context.Context, actor Actor, courseID, studentID uint) error {
	if !actor.IsStaff() && actor.UserID != studentID {
		return ErrNotCourseOwner
	}

	return s.enrollments.Unenroll(ctx, courseID, studentID)
}

func (s *courseService) Roster(ctx context.Context, actor Actor, courseID uint) ([]dto.EnrollmentResponse, error) {
	if _, err := s.ownedCourse(ctx, actor, courseID); err != nil {
		return nil, err
	}

	enrollments, err := s.enrollments.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.EnrollmentResponse, 0, len(enrollments))
	for _, enrollment := range enrollments {
		responses = append(responses, dto.NewEnrollmentResponse(enrollment))
	}

	return responses, nil
}

func (s *courseService) MyCourses(ctx context.Context, studentID uint) ([]dto.EnrollmentResponse, error) {
	enrollments, err := s.enrollments.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.EnrollmentResponse, 0, len(enrollments))
	for _, enrollment := range enrollments {
		responses = append(responses, dto.NewEnrollmentResponse(enrollment))
	}

	return responses, nil
}

// ownedCourse loads the course and verifies the actor may manage it. Admins
// manage every course; teachers only their own.
func (s *courseService) ownedCourse(ctx context.Context, actor Actor, id uint) (models.Course, error) {
	course, err := s.courses.GetByID(ctx, id)
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
