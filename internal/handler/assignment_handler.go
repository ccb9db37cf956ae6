package handler

import (
	"errors"
	"io"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lms-portal-api/internal/dto"
	"github.com/noah-isme/lms-portal-api/internal/service"
	"github.com/noah-isme/lms-portal-api/internal/utils"
)

// AssignmentHandler manages assignment authoring and question import endpoints.
type AssignmentHandler struct {
	service   service.AssignmentService
	activity  service.ActivityService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAssignmentHandler builds an assignment handler instance.
func NewAssignmentHandler(service service.AssignmentService, activity service.ActivityService, validator *validator.Validate, logger zerolog.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		service:   service,
		activity:  activity,
		validator: validator,
		logger:    logger.With().Str("component", "assignment_handler").Logger(),
	}
}

// Register attaches the assignment routes to the provided router group.
func (h *AssignmentHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.delete)
	router.Post("/:id/questions/import", h.importQuestions)
}

func (h *AssignmentHandler) list(c *fiber.Ctx) error {
	filter := dto.AssignmentFilter{}
	if courseID, err := parseQueryUint(c, "course_id"); err == nil && courseID != nil {
		filter.CourseID = courseID
	}
	if kind := c.Query("type"); kind != "" {
		filter.Type = &kind
	}

	assignments, err := h.service.List(requestContext(c), actorFromContext(c), filter)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "assignments retrieved", assignments)
}

func (h *AssignmentHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	assignment, err := h.service.Get(requestContext(c), actorFromContext(c), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "assignment retrieved", assignment)
}

func (h *AssignmentHandler) create(c *fiber.Ctx) error {
	var payload dto.AssignmentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	ctx := requestContext(c)
	actor := actorFromContext(c)
	assignment, err := h.service.Create(ctx, actor, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	if h.activity != nil {
		h.activity.Record(ctx, actor, "assignment.created", "assignment", &assignment.ID, map[string]interface{}{
			"course_id": assignment.CourseID,
		})
	}

	return utils.SendCreated(c, "assignment created", assignment)
}

func (h *AssignmentHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.AssignmentUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	assignment, err := h.service.Update(requestContext(c), actorFromContext(c), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "assignment updated", assignment)
}

func (h *AssignmentHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(requestContext(c), actorFromContext(c), id); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "assignment deleted", nil)
}

// importQuestions accepts either a JSON document in the request body or an
// uploaded file under the "file" form field.
func (h *AssignmentHandler) importQuestions(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	document := c.Body()
	if file, err := c.FormFile("file"); err == nil && file != nil {
		opened, err := file.Open()
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "unable to read uploaded file")
		}
		defer opened.Close()

		document, err = io.ReadAll(opened)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "unable to read uploaded file")
		}
	}

	if len(document) == 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "question document required")
	}

	assignment, err := h.service.ImportQuestions(requestContext(c), actorFromContext(c), id, document)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "questions imported", assignment)
}

func (h *AssignmentHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrAssignmentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "assignment not found")
	case errors.Is(err, service.ErrCourseNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "course not found")
	case errors.Is(err, service.ErrNotCourseOwner):
		return utils.SendError(c, fiber.StatusForbidden, "course belongs to another teacher")
	case errors.Is(err, service.ErrQuestionImportInvalid):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("assignment request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
