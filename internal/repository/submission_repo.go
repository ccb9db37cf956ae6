package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/lms-portal-api/internal/models"
)

// SubmissionFilter narrows submission listings.
type SubmissionFilter struct {
	AssignmentID *uint
	StudentID    *uint
	Status       *string
}

// SubmissionRepository defines data operations for submissions and answers.
type SubmissionRepository interface {
	List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error)
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	GetLatestAttempt(ctx context.Context, assignmentID, studentID uint) (models.Submission, error)
	Create(ctx context.Context, submission *models.Submission) error
	Update(ctx context.Context, submission *models.Submission) error
	CreateAnswers(ctx context.Context, answers []models.Answer) error
	UpdateAnswer(ctx context.Context, answer *models.Answer) error
	ListInProgressTimed(ctx context.Context) ([]models.Submission, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Submission{}).
		Preload("Assignment").
		Preload("Assignment.Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("question_order ASC, id ASC")
		}).
		Preload("Student").
		Preload("Answers").
		Preload("Answers.Question")
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error) {
	query := r.baseQuery(ctx)

	if filter.AssignmentID != nil {
		query = query.Where("assignment_id = ?", *filter.AssignmentID)
	}

	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var submissions []models.Submission
	if err := query.Order("created_at DESC").Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

// GetLatestAttempt returns the highest-numbered attempt for the
// (assignment, student) pair.
func (r *submissionRepository) GetLatestAttempt(ctx context.Context, assignmentID, studentID uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).
		Where("assignment_id = ?", assignmentID).
		Where("student_id = ?", studentID).
		Order("attempt_number DESC").
		First(&submission).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *submissionRepository) Update(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Omit("Assignment", "Student", "Answers").Save(submission).Error
}

// CreateAnswers upserts on (submission_id, question_id) so a submit retried
// after a partial failure overwrites the rows it already wrote.
func (r *submissionRepository) CreateAnswers(ctx context.Context, answers []models.Answer) error {
	if len(answers) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "submission_id"}, {Name: "question_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"answer_text", "updated_at"}),
		}).
		Create(&answers).Error
}

func (r *submissionRepository) UpdateAnswer(ctx context.Context, answer *models.Answer) error {
	return r.db.WithContext(ctx).Omit("Question").Save(answer).Error
}

// ListInProgressTimed fetches open attempts on timed assignments so the
// expiry sweeper can finalise the overdue ones.
func (r *submissionRepository) ListInProgressTimed(ctx context.Context) ([]models.Submission, error) {
	var submissions []models.Submission
	err := r.db.WithContext(ctx).Model(&models.Submission{}).
		Joins("JOIN assignments ON assignments.id = submissions.assignment_id").
		Where("submissions.status = ?", models.SubmissionStatusInProgress).
		Where("assignments.time_limit_minutes IS NOT NULL AND assignments.time_limit_minutes > 0").
		Preload("Assignment").
		Find(&submissions).Error
	if err != nil {
		return nil, err
	}

	return submissions, nil
}
