package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/lms-portal-api/internal/models"
)

// CourseFilter narrows course listings.
type CourseFilter struct {
	TeacherID     *uint
	PublishedOnly bool
}

// CourseRepository defines data operations for courses and lessons.
type CourseRepository interface {
	List(ctx context.Context, filter CourseFilter) ([]models.Course, error)
	GetByID(ctx context.Context, id uint) (models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id uint) error
	CreateLesson(ctx context.Context, lesson *models.Lesson) error
	UpdateLesson(ctx context.Context, lesson *models.Lesson) error
	DeleteLesson(ctx context.Context, id uint) error
	GetLesson(ctx context.Context, id uint) (models.Lesson, error)
}

type courseRepository struct {
	db *gorm.DB
}

// NewCourseRepository instantiates the repository.
func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &courseRepository{db: db}
}

func (r *courseRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Course{}).
		Preload("Teacher").
		Preload("Lessons", func(db *gorm.DB) *gorm.DB {
			return db.Order("lesson_order ASC, id ASC")
		})
}

func (r *courseRepository) List(ctx context.Context, filter CourseFilter) ([]models.Course, error) {
	query := r.baseQuery(ctx)

	if filter.TeacherID != nil {
		query = query.Where("teacher_id = ?", *filter.TeacherID)
	}

	if filter.PublishedOnly {
		query = query.Where("is_published = ?", true)
	}

	var courses []models.Course
	if err := query.Order("created_at DESC").Find(&courses).Error; err != nil {
		return nil, err
	}

	return courses, nil
}

func (r *courseRepository) GetByID(ctx context.Context, id uint) (models.Course, error) {
	var course models.Course
	if err := r.baseQuery(ctx).First(&course, id).Error; err != nil {
		return models.Course{}, err
	}

	return course, nil
}

func (r *courseRepository) Create(ctx context.Context, course *models.Course) error {
	return r.db.WithContext(ctx).Create(course).Error
}

func (r *courseRepository) Update(ctx context.Context, course *models.Course) error {
	return r.db.WithContext(ctx).Save(course).Error
}

func (r *courseRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Course{}, id).Error
}

func (r *courseRepository) CreateLesson(ctx context.Context, lesson *models.Lesson) error {
	return r.db.WithContext(ctx).Create(lesson).Error
}

func (r *courseRepository) UpdateLesson(ctx context.Context, lesson *models.Lesson) error {
	return r.db.WithContext(ctx).Save(lesson).Error
}

func (r *courseRepository) DeleteLesson(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Lesson{}, id).Error
}

func (r *courseRepository) GetLesson(ctx context.Context, id uint) (models.Lesson, error) {
	var lesson models.Lesson
	if err := r.db.WithContext(ctx).First(&lesson, id).Error; err != nil {
		return models.Lesson{}, err
	}

	return lesson, nil
}
