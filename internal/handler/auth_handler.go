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

// AuthHandler manages login, token refresh and the caller's own profile.
type AuthHandler struct {
	service   service.AuthService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAuthHandler builds an auth handler instance.
func NewAuthHandler(service service.AuthService, validator *validator.Validate, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "auth_handler").Logger(),
	}
}

// Register binds the public auth routes.
func (h *AuthHandler) Register(router fiber.Router) {
	router.Post("/login", h.login)
	router.Post("/refresh", h.refresh)
}

// RegisterProtected binds routes that require an authenticated caller.
func (h *AuthHandler) RegisterProtected(router fiber.Router) {
	router.Get("/me", h.profile)
}

func (h *AuthHandler) login(c *fiber.Ctx) error {
	var payload dto.LoginRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	tokens, err := h.service.Login(requestContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "login successful", tokens)
}

func (h *AuthHandler) refresh(c *fiber.Ctx) error {
	var payload dto.RefreshRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	tokens, err := h.service.Refresh(requestContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "token refreshed", tokens)
}

func (h *AuthHandler) profile(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	profile, err := h.service.Profile(requestContext(c), userID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "profile retrieved", profile)
}

func (h *AuthHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return utils.SendError(c, fiber.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, service.ErrInvalidRefreshToken):
		return utils.SendError(c, fiber.StatusUnauthorized, "invalid refresh token")
	case errors.Is(err, service.ErrUserNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "user not found")
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("auth request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
