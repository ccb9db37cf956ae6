package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/lms-portal-api/internal/models"
)

// ActivityLogRepository persists audit trail entries.
type ActivityLogRepository interface {
	Create(ctx context.Context, entry *models.ActivityLog) error
	ListRecent(ctx context.Context, limit int) ([]models.ActivityLog, error)
}

type activityLogRepository struct {
	db *gorm.DB
}

// NewActivityLogRepository instantiates the repository.
func NewActivityLogRepository(db *gorm.DB) ActivityLogRepository {
	return &activityLogRepository{db: db}
}

func (r *activityLogRepository) Create(ctx context.Context, entry *models.ActivityLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *activityLogRepository) ListRecent(ctx context.Context, limit int) ([]models.ActivityLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var entries []models.ActivityLog
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}

	return entries, nil
}
