package service

import (
	"context"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/noah-isme/lms-portal-api/internal/models"
	"github.com/noah-isme/lms-portal-api/internal/repository"
)

// ActivityService records the staff audit trail. Recording never fails a
// request: write errors are logged and swallowed.
type ActivityService interface {
	Record(ctx context.Context, actor Actor, action, entityType string, entityID *uint, metadata map[string]interface{})
	Recent(ctx context.Context, limit int) ([]models.ActivityLog, error)
}

type activityService struct {
	repo   repository.ActivityLogRepository
	logger zerolog.Logger
}

// NewActivityService builds the audit trail recorder.
func NewActivityService(repo repository.ActivityLogRepository, logger zerolog.Logger) ActivityService {
	return &activityService{
		repo:   repo,
		logger: logger.With().Str("component", "activity_service").Logger(),
	}
}

func (s *activityService) Record(ctx context.Context, actor Actor, action, entityType string, entityID *uint, metadata map[string]interface{}) {
	entry := models.ActivityLog{
		ActorID:    actor.UserID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Metadata:   datatypes.JSONMap(metadata),
	}

	if err := s.repo.Create(ctx, &entry); err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("failed to record activity")
	}
}

func (s *activityService) Recent(ctx context.Context, limit int) ([]models.ActivityLog, error) {
	return s.repo.ListRecent(ctx, limit)
}
