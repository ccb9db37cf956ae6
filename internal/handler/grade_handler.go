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

// GradeHandler manages manual grading, gradebooks and feedback drafting.
type GradeHandler struct {
	service   service.GradeService
	activity  service.ActivityService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewGradeHandler builds a grade handler instance.
func NewGradeHandler(service service.GradeService, activity service.ActivityService, validator *validator.Validate, logger zerolog.Logger) *GradeHandler {
	return &GradeHandler{
		service:   service,
		activity:  activity,
		validator: validator,
		logger:    logger.With().Str("component", "grade_handler").Logger(),
	}
}

// Register attaches the grade routes to the provided router group.
func (h *GradeHandler) Register(router fiber.Router) {
	router.Get("/mine", h.myGrades)
	router.Put("/submissions/:submission_id", h.upsert)
	router.Get("/submissions/:submission_id", h.get)
	router.Post("/submissions/:submission_id/draft", h.draftFeedback)
	router.Get("/assignments/:assignment_id", h.gradebook)
}

func (h *GradeHandler) upsert(c *fiber.Ctx) error {
	submissionID, err := parseUintParam(c, "submission_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.GradeUpsertRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	ctx := requestContext(c)
	actor := actorFromContext(c)
	grade, err := h.service.UpsertGrade(ctx, actor, submissionID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	if h.activity != nil {
		h.activity.Record(ctx, actor, "grade.posted", "submission", &submissionID, map[string]interface{}{
			"points_earned": grade.PointsEarned,
		})
	}

	return utils.SendSuccess(c, "grade recorded", grade)
}

func (h *GradeHandler) get(c *fiber.Ctx) error {
	submissionID, err := parseUintParam(c, "submission_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	grade, err := h.service.GetForSubmission(requestContext(c), actorFromContext(c), submissionID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "grade retrieved", grade)
}

func (h *GradeHandler) gradebook(c *fiber.Ctx) error {
	assignmentID, err := parseUintParam(c, "assignment_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	entries, err := h.service.Gradebook(requestContext(c), actorFromContext(c), assignmentID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "gradebook retrieved", entries)
}

func (h *GradeHandler) myGrades(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	grades, err := h.service.MyGrades(requestContext(c), userID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "grades retrieved", grades)
}

func (h *GradeHandler) draftFeedback(c *fiber.Ctx) error {
	submissionID, err := parseUintParam(c, "submission_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	draft, err := h.service.DraftFeedback(requestContext(c), actorFromContext(c), submissionID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "feedback drafted", draft)
}

func (h *GradeHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrSubmissionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "submission not found")
	case errors.Is(err, service.ErrAssignmentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "assignment not found")
	case errors.Is(err, service.ErrGradeNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "grade not found")
	case errors.Is(err, service.ErrPointsOutOfRange):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrNotYetSubmitted):
		return utils.SendError(c, fiber.StatusConflict, "attempt not yet submitted")
	case errors.Is(err, service.ErrNotSubmissionOwner):
		return utils.SendError(c, fiber.StatusForbidden, "submission belongs to another student")
	case errors.Is(err, service.ErrDraftingUnavailable):
		return utils.SendError(c, fiber.StatusServiceUnavailable, "feedback drafting unavailable")
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("grade request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
