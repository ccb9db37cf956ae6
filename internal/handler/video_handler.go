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

// VideoHandler manages video library uploads and watch progress.
type VideoHandler struct {
	service   service.VideoService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewVideoHandler builds a video handler instance.
func NewVideoHandler(service service.VideoService, validator *validator.Validate, logger zerolog.Logger) *VideoHandler {
	return &VideoHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "video_handler").Logger(),
	}
}

// Register attaches the video routes to the provided router group.
func (h *VideoHandler) Register(router fiber.Router) {
	router.Post("", h.upload)
	router.Get("/courses/:course_id", h.listByCourse)
	router.Get("/:id", h.get)
	router.Delete("/:id", h.delete)
	router.Post("/:id/progress", h.reportProgress)
}

func (h *VideoHandler) upload(c *fiber.Ctx) error {
	var payload dto.VideoCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid form data")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	video, err := h.service.Upload(requestContext(c), actorFromContext(c), payload, file)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendCreated(c, "video uploaded", video)
}

func (h *VideoHandler) listByCourse(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "course_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	videos, err := h.service.ListByCourse(requestContext(c), actorFromContext(c), courseID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "videos retrieved", videos)
}

func (h *VideoHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	video, err := h.service.Get(requestContext(c), actorFromContext(c), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "video retrieved", video)
}

func (h *VideoHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(requestContext(c), actorFromContext(c), id); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "video deleted", nil)
}

func (h *VideoHandler) reportProgress(c *fiber.Ctx) error {
	videoID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.VideoProgressRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	progress, err := h.service.ReportProgress(requestContext(c), actorFromContext(c), videoID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "progress recorded", progress)
}

func (h *VideoHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrVideoNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "video not found")
	case errors.Is(err, service.ErrCourseNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "course not found")
	case errors.Is(err, service.ErrNotCourseOwner):
		return utils.SendError(c, fiber.StatusForbidden, "course belongs to another teacher")
	case errors.Is(err, service.ErrUploadTooLarge):
		return utils.SendError(c, fiber.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, service.ErrUploadTypeNotAllowed):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("video request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
