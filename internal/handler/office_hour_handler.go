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

// OfficeHourHandler manages office hour slot publication and booking.
type OfficeHourHandler struct {
	service   service.OfficeHourService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewOfficeHourHandler builds an office hour handler instance.
func NewOfficeHourHandler(service service.OfficeHourService, validator *validator.Validate, logger zerolog.Logger) *OfficeHourHandler {
	return &OfficeHourHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "office_hour_handler").Logger(),
	}
}

// Register attaches the office hour routes to the provided router group.
func (h *OfficeHourHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Post("/:id/book", h.book)
	router.Delete("/:id/book", h.cancel)
	router.Delete("/:id", h.delete)
}

func (h *OfficeHourHandler) list(c *fiber.Ctx) error {
	teacherID, err := parseQueryUint(c, "teacher_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid teacher_id")
	}

	slots, err := h.service.ListUpcoming(requestContext(c), teacherID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "office hours retrieved", slots)
}

func (h *OfficeHourHandler) create(c *fiber.Ctx) error {
	var payload dto.OfficeHourCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	slot, err := h.service.CreateSlot(requestContext(c), actorFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendCreated(c, "office hour published", slot)
}

func (h *OfficeHourHandler) book(c *fiber.Ctx) error {
	slotID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	slot, err := h.service.Book(requestContext(c), actorFromContext(c), slotID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "office hour booked", slot)
}

func (h *OfficeHourHandler) cancel(c *fiber.Ctx) error {
	slotID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Cancel(requestContext(c), actorFromContext(c), slotID); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "booking cancelled", nil)
}

func (h *OfficeHourHandler) delete(c *fiber.Ctx) error {
	slotID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.DeleteSlot(requestContext(c), actorFromContext(c), slotID); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "office hour deleted", nil)
}

func (h *OfficeHourHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrSlotNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "office hour slot not found")
	case errors.Is(err, service.ErrSlotTaken):
		return utils.SendError(c, fiber.StatusConflict, "office hour slot already booked")
	case errors.Is(err, service.ErrSlotNotHeld):
		return utils.SendError(c, fiber.StatusConflict, "office hour slot not held by caller")
	case errors.Is(err, service.ErrInvalidSlotWindow):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("office hour request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
