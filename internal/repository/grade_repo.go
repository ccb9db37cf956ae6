package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/lms-portal-api/internal/models"
)

// GradeRepository defines data operations for grades. Writes are upserts
// keyed by submission so repeated grading always replaces.
type GradeRepository interface {
	Upsert(ctx context.Context, grade *models.Grade) error
	GetBySubmission(ctx context.Context, submissionID uint) (models.Grade, error)
	GetByAssignmentAndStudent(ctx context.Context, assignmentID, studentID uint) (models.Grade, error)
	ListByAssignment(ctx context.Context, assignmentID uint) ([]models.Grade, error)
	ListByStudent(ctx context.Context, studentID uint) ([]models.Grade, error)
}

type gradeRepository struct {
	db *gorm.DB
}

// NewGradeRepository instantiates the repository.
func NewGradeRepository(db *gorm.DB) GradeRepository {
	return &gradeRepository{db: db}
}

func (r *gradeRepository) Upsert(ctx context.Context, grade *models.Grade) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "submission_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"points_earned", "max_points", "feedback", "auto_graded", "graded_by", "graded_at", "updated_at",
			}),
		}).
		Omit("Submission").
		Create(grade).Error
}

func (r *gradeRepository) GetBySubmission(ctx context.Context, submissionID uint) (models.Grade, error) {
	var grade models.Grade
	if err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		First(&grade).Error; err != nil {
		return models.Grade{}, err
	}

	return grade, nil
}

// GetByAssignmentAndStudent returns the grade for the student's most recent
// graded attempt on the assignment.
func (r *gradeRepository) GetByAssignmentAndStudent(ctx context.Context, assignmentID, studentID uint) (models.Grade, error) {
	var grade models.Grade
	if err := r.db.WithContext(ctx).
		Where("assignment_id = ? AND student_id = ?", assignmentID, studentID).
		Order("graded_at DESC").
		First(&grade).Error; err != nil {
		return models.Grade{}, err
	}

	return grade, nil
}

func (r *gradeRepository) ListByAssignment(ctx context.Context, assignmentID uint) ([]models.Grade, error) {
	var grades []models.Grade
	if err := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("graded_at DESC").
		Find(&grades).Error; err != nil {
		return nil, err
	}

	return grades, nil
}

func (r *gradeRepository) ListByStudent(ctx context.Context, studentID uint) ([]models.Grade, error) {
	var grades []models.Grade
	if err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("graded_at DESC").
		Find(&grades).Error; err != nil {
		return nil, err
	}

	return grades, nil
}
