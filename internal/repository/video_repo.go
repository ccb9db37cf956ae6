package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/lms-portal-api/internal/models"
)

// VideoRepository defines data operations for the video library and watch progress.
type VideoRepository interface {
	Create(ctx context.Context, video *models.Video) error
	GetByID(ctx context.Context, id uint) (models.Video, error)
	ListByCourse(ctx context.Context, courseID uint) ([]models.Video, error)
	Delete(ctx context.Context, id uint) error
	UpsertProgress(ctx context.Context, progress *models.VideoProgress) error
	GetProgress(ctx context.Context, videoID, studentID uint) (models.VideoProgress, error)
	ListProgressByStudent(ctx context.Context, studentID uint) ([]models.VideoProgress, error)
}

type videoRepository struct {
	db *gorm.DB
}

// NewVideoRepository instantiates the repository.
func NewVideoRepository(db *gorm.DB) VideoRepository {
	return &videoRepository{db: db}
}

func (r *videoRepository) Create(ctx context.Context, video *models.Video) error {
	return r.db.WithContext(ctx).Create(video).Error
}

func (r *videoRepository) GetByID(ctx context.Context, id uint) (models.Video, error) {
	var video models.Video
	if err := r.db.WithContext(ctx).First(&video, id).Error; err != nil {
		return models.Video{}, err
	}

	return video, nil
}

func (r *videoRepository) ListByCourse(ctx context.Context, courseID uint) ([]models.Video, error) {
	var videos []models.Video
	if err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("created_at ASC").
		Find(&videos).Error; err != nil {
		return nil, err
	}

	return videos, nil
}

func (r *videoRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Video{}, id).Error
}

func (r *videoRepository) UpsertProgress(ctx context.Context, progress *models.VideoProgress) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "video_id"}, {Name: "student_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"watched_seconds", "completed", "updated_at",
			}),
		}).
		Create(progress).Error
}

func (r *videoRepository) GetProgress(ctx context.Context, videoID, studentID uint) (models.VideoProgress, error) {
	var progress models.VideoProgress
	if err := r.db.WithContext(ctx).
		Where("video_id = ? AND student_id = ?", videoID, studentID).
		First(&progress).Error; err != nil {
		return models.VideoProgress{}, err
	}

	return progress, nil
}

func (r *videoRepository) ListProgressByStudent(ctx context.Context, studentID uint) ([]models.VideoProgress, error) {
	var progress []models.VideoProgress
	if err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Find(&progress).Error; err != nil {
		return nil, err
	}

	return progress, nil
}
