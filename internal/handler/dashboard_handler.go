package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lms-portal-api/internal/service"
	"github.com/noah-isme/lms-portal-api/internal/utils"
)

// DashboardHandler serves the cached student progress dashboard.
type DashboardHandler struct {
	service service.DashboardService
	logger  zerolog.Logger
}

// NewDashboardHandler builds a dashboard handler instance.
func NewDashboardHandler(service service.DashboardService, logger zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		service: service,
		logger:  logger.With().Str("component", "dashboard_handler").Logger(),
	}
}

// Register attaches the dashboard routes to the provided router group.
func (h *DashboardHandler) Register(router fiber.Router) {
	router.Get("/student", h.ownDashboard)
	router.Get("/student/:id", h.studentDashboard)
}

func (h *DashboardHandler) ownDashboard(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	dashboard, err := h.service.StudentDashboard(requestContext(c), userID)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("dashboard request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "dashboard retrieved", dashboard)
}

// studentDashboard lets staff inspect any student's dashboard.
func (h *DashboardHandler) studentDashboard(c *fiber.Ctx) error {
	actor := actorFromContext(c)
	if !actor.IsStaff() {
		return utils.SendError(c, fiber.StatusForbidden, "staff access required")
	}

	studentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	dashboard, err := h.service.StudentDashboard(requestContext(c), studentID)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("dashboard request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "dashboard retrieved", dashboard)
}
