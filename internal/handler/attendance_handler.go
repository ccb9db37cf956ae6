package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lms-portal-api/internal/dto"
	"github.com/noah-isme/lms-portal-api/internal/service"
	"github.com/noah-isme/lms-portal-api/internal/utils"
)

// AttendanceHandler manages attendance recording and reporting endpoints.
type AttendanceHandler struct {
	service   service.AttendanceService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAttendanceHandler builds an attendance handler instance.
func NewAttendanceHandler(service service.AttendanceService, validator *validator.Validate, logger zerolog.Logger) *AttendanceHandler {
	return &AttendanceHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "attendance_handler").Logger(),
	}
}

// Register attaches the attendance routes to the provided router group.
func (h *AttendanceHandler) Register(router fiber.Router) {
	router.Post("", h.record)
	router.Get("/courses/:course_id", h.sheet)
	router.Get("/courses/:course_id/summary", h.summary)
	router.Get("/students/:student_id", h.history)
}

func (h *AttendanceHandler) record(c *fiber.Ctx) error {
	var payload dto.AttendanceRecordRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	records, err := h.service.RecordSession(requestContext(c), actorFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendCreated(c, "attendance recorded", records)
}

func (h *AttendanceHandler) sheet(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "course_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	day := c.Query("date")
	if day == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "date query parameter required")
	}

	records, err := h.service.SessionSheet(requestContext(c), actorFromContext(c), courseID, day)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "attendance sheet retrieved", records)
}

func (h *AttendanceHandler) summary(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "course_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	summary, err := h.service.CourseSummary(requestContext(c), actorFromContext(c), courseID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "attendance summary retrieved", summary)
}

func (h *AttendanceHandler) history(c *fiber.Ctx) error {
	studentID, err := parseUintParam(c, "student_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	courseID, err := parseQueryUint(c, "course_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid course_id")
	}

	records, err := h.service.StudentHistory(requestContext(c), actorFromContext(c), studentID, courseID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "attendance history retrieved", records)
}

func (h *AttendanceHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrCourseNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "course not found")
	case errors.Is(err, service.ErrNotCourseOwner):
		return utils.SendError(c, fiber.StatusForbidden, "course belongs to another teacher")
	case errors.Is(err, service.ErrAttendanceForbidden):
		return utils.SendError(c, fiber.StatusForbidden, "not allowed to view this attendance history")
	case errors.Is(err, service.ErrInvalidSessionDate):
		return utils.SendError(c, fiber.StatusBadRequest, "invalid session date, expected YYYY-MM-DD")
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("attendance request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
