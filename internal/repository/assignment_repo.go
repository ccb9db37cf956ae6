package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/lms-portal-api/internal/models"
)

// AssignmentFilter narrows assignment listings.
type AssignmentFilter struct {
	CourseID      *uint
	Type          *string
	PublishedOnly bool
}

// AssignmentRepository defines data operations for assignments and their questions.
type AssignmentRepository interface {
	List(ctx context.Context, filter AssignmentFilter) ([]models.Assignment, error)
	GetByID(ctx context.Context, id uint) (models.Assignment, error)
	Create(ctx context.Context, assignment *models.Assignment) error
	Update(ctx context.Context, assignment *models.Assignment) error
	Delete(ctx context.Context, id uint) error
	ReplaceQuestions(ctx context.Context, assignmentID uint, questions []models.Question) error
}

type assignmentRepository struct {
	db *gorm.DB
}

// NewAssignmentRepository instantiates the repository.
func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

func (r *assignmentRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Assignment{}).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("question_order ASC, id ASC")
		})
}

func (r *assignmentRepository) List(ctx context.Context, filter AssignmentFilter) ([]models.Assignment, error) {
	query := r.baseQuery(ctx)

	if filter.CourseID != nil {
		query = query.Where("course_id = ?", *filter.CourseID)
	}

	if filter.Type != nil {
		query = query.Where("assignment_type = ?", *filter.Type)
	}

	if filter.PublishedOnly {
		query = query.Where("is_published = ?", true)
	}

	var assignments []models.Assignment
	if err := query.Order("due_date ASC NULLS LAST, id ASC").Find(&assignments).Error; err != nil {
		return nil, err
	}

	return assignments, nil
}

func (r *assignmentRepository) GetByID(ctx context.Context, id uint) (models.Assignment, error) {
	var assignment models.Assignment
	if err := r.baseQuery(ctx).First(&assignment, id).Error; err != nil {
		return models.Assignment{}, err
	}

	return assignment, nil
}

func (r *assignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

func (r *assignmentRepository) Update(ctx context.Context, assignment *models.Assignment) error {
	return r.db.WithContext(ctx).Session(&gorm.Session{FullSaveAssociations: false}).Save(assignment).Error
}

func (r *assignmentRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Assignment{}, id).Error
}

// ReplaceQuestions swaps the full question set atomically. Used by assignment
// edits before any submission exists.
func (r *assignmentRepository) ReplaceQuestions(ctx context.Context, assignmentID uint, questions []models.Question) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("assignment_id = ?", assignmentID).Delete(&models.Question{}).Error; err != nil {
			return err
		}

		for i := range questions {
			questions[i].ID = 0
			questions[i].AssignmentID = assignmentID
		}

		if len(questions) == 0 {
			return nil
		}

		return tx.Create(&questions).Error
	})
}
