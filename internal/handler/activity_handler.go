package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lms-portal-api/internal/service"
	"github.com/noah-isme/lms-portal-api/internal/utils"
)

// ActivityHandler exposes the admin audit trail feed.
type ActivityHandler struct {
	service service.ActivityService
	logger  zerolog.Logger
}

// NewActivityHandler builds an activity handler instance.
func NewActivityHandler(service service.ActivityService, logger zerolog.Logger) *ActivityHandler {
	return &ActivityHandler{
		service: service,
		logger:  logger.With().Str("component", "activity_handler").Logger(),
	}
}

// Register attaches the activity feed route.
func (h *ActivityHandler) Register(router fiber.Router) {
	router.Get("", h.recent)
}

func (h *ActivityHandler) recent(c *fiber.Ctx) error {
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}

	entries, err := h.service.Recent(requestContext(c), limit)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("activity feed request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "activity retrieved", entries)
}
