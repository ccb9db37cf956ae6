package dto

import (
	"time"

	"github.com/noah-isme/lms-portal-api/internal/models"
)

// CourseCreateRequest describes the payload for creating a course.
type CourseCreateRequest struct {
	Title       string `json:"title" validate:"required,min=3,max=255"`
	Description string `json:"description"`
}

// CourseUpdateRequest allows partial course edits.
type CourseUpdateRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=3,max=255"`
	Description *string `json:"description"`
	IsPublished *bool   `json:"is_published"`
}

// LessonCreateRequest describes the payload for adding a lesson.
type LessonCreateRequest struct {
	Title       string `json:"title" validate:"required,min=3,max=255"`
	Content     string `json:"content"`
	LessonOrder int    `json:"lesson_order" validate:"gte=0"`
}

// LessonUpdateRequest allows partial lesson edits.
type LessonUpdateRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=3,max=255"`
	Content     *string `json:"content"`
	LessonOrder *int    `json:"lesson_order" validate:"omitempty,gte=0"`
}

// CourseResponse is returned to API clients when viewing courses.
type CourseResponse struct {
	ID          uint             `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	TeacherID   uint             `json:"teacher_id"`
	TeacherName string           `json:"teacher_name,omitempty"`
	IsPublished bool             `json:"is_published"`
	Lessons     []LessonResponse `json:"lessons,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// LessonResponse serializes a lesson.
type LessonResponse struct {
	ID          uint      `json:"id"`
	CourseID    uint      `json:"course_id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	LessonOrder int       `json:"lesson_order"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// EnrollmentResponse serializes course membership.
type EnrollmentResponse struct {
	ID        uint      `json:"id"`
	CourseID  uint      `json:"course_id"`
	StudentID uint      `json:"student_id"`
	Student   string    `json:"student,omitempty"`
	Course    string    `json:"course,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewCourseResponse converts a Course model into a DTO.
func NewCourseResponse(model models.Course) CourseResponse {
	response := CourseResponse{
		ID:          model.ID,
		Title:       model.Title,
		Description: model.Description,
		TeacherID:   model.TeacherID,
		IsPublished: model.IsPublished,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}

	if model.Teacher.ID != 0 {
		response.TeacherName = model.Teacher.Name
	}

	for _, lesson := range model.Lessons {
		response.Lessons = append(response.Lessons, NewLessonResponse(lesson))
	}

	return response
}

// NewLessonResponse converts a Lesson model into a DTO.
func NewLessonResponse(model models.Lesson) LessonResponse {
	return LessonResponse{
		ID:          model.ID,
		CourseID:    model.CourseID,
		Title:       model.Title,
		Content:     model.Content,
		LessonOrder: model.LessonOrder,
		UpdatedAt:   model.UpdatedAt,
	}
}

// NewCourseResponseSlice converts course models into DTOs.
func NewCourseResponseSlice(courses []models.Course) []CourseResponse {
	responses := make([]CourseResponse, 0, len(courses))
	for _, course := range courses {
		responses = append(responses, NewCourseResponse(course))
	}

	return responses
}

// NewEnrollmentResponse converts an Enrollment model into a DTO.
func NewEnrollmentResponse(model models.Enrollment) EnrollmentResponse {
	response := EnrollmentResponse{
		ID:        model.ID,
		CourseID:  model.CourseID,
		StudentID: model.StudentID,
		CreatedAt: model.CreatedAt,
	}

	if model.Student.ID != 0 {
		response.Student = model.Student.Name
	}

	if model.Course.ID != 0 {
		response.Course = model.Course.Title
	}

	return response
}
