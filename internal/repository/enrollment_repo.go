package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/lms-portal-api/internal/models"
)

// EnrollmentRepository defines data operations for course membership.
type EnrollmentRepository interface {
	Enroll(ctx context.Context, enrollment *models.Enrollment) error
	Unenroll(ctx context.Context, courseID, studentID uint) error
	IsEnrolled(ctx context.Context, courseID, studentID uint) (bool, error)
	ListByCourse(ctx context.Context, courseID uint) ([]models.Enrollment, error)
	ListByStudent(ctx context.Context, studentID uint) ([]models.Enrollment, error)
}

type enrollmentRepository struct {
	db *gorm.DB
}

// NewEnrollmentRepository instantiates the repository.
func NewEnrollmentRepository(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (r *enrollmentRepository) Enroll(ctx context.Context, enrollment *models.Enrollment) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "course_id"}, {Name: "student_id"}},
			DoNothing: true,
		}).
		Create(enrollment).Error
}

func (r *enrollmentRepository) Unenroll(ctx context.Context, courseID, studentID uint) error {
	return r.db.WithContext(ctx).
		Where("course_id = ? AND student_id = ?", courseID, studentID).
		Delete(&models.Enrollment{}).Error
}

func (r *enrollmentRepository) IsEnrolled(ctx context.Context, courseID, studentID uint) (bool, error) {
	var enrollment models.Enrollment
	err := r.db.WithContext(ctx).
		Where("course_id = ? AND student_id = ?", courseID, studentID).
		First(&enrollment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

func (r *enrollmentRepository) ListByCourse(ctx context.Context, courseID uint) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	if err := r.db.WithContext(ctx).
		Preload("Student").
		Where("course_id = ?", courseID).
		Find(&enrollments).Error; err != nil {
		return nil, err
	}

	return enrollments, nil
}

func (r *enrollmentRepository) ListByStudent(ctx context.Context, studentID uint) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	if err := r.db.WithContext(ctx).
		Preload("Course").
		Where("student_id = ?", studentID).
		Find(&enrollments).Error; err != nil {
		return nil, err
	}

	return enrollments, nil
}
