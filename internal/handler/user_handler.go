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

// UserHandler manages admin-side account provisioning.
type UserHandler struct {
	service   service.UserService
	activity  service.ActivityService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewUserHandler builds a user handler instance.
func NewUserHandler(service service.UserService, activity service.ActivityService, validator *validator.Validate, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		service:   service,
		activity:  activity,
		validator: validator,
		logger:    logger.With().Str("component", "user_handler").Logger(),
	}
}

// Register binds the account routes. The caller is expected to place this
// group behind admin role enforcement.
func (h *UserHandler) Register(router fiber.Router) {
	router.Post("", h.create)
	router.Get("", h.list)
	router.Get("/:id", h.get)
}

func (h *UserHandler) create(c *fiber.Ctx) error {
	var payload dto.UserCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	ctx := requestContext(c)
	user, err := h.service.Create(ctx, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	if h.activity != nil {
		h.activity.Record(ctx, actorFromContext(c), "user.created", "user", &user.ID, map[string]interface{}{
			"role": user.Role,
		})
	}

	return utils.SendCreated(c, "user created", user)
}

func (h *UserHandler) list(c *fiber.Ctx) error {
	users, err := h.service.List(requestContext(c), c.Query("role"))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "users retrieved", users)
}

func (h *UserHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	user, err := h.service.Get(requestContext(c), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "user retrieved", user)
}

func (h *UserHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrEmailTaken):
		return utils.SendError(c, fiber.StatusConflict, "email already registered")
	case errors.Is(err, service.ErrUserNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "user not found")
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("user request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
