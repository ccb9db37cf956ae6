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

// PaymentHandler manages invoices and gateway status callbacks.
type PaymentHandler struct {
	service   service.PaymentService
	activity  service.ActivityService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewPaymentHandler builds a payment handler instance.
func NewPaymentHandler(service service.PaymentService, activity service.ActivityService, validator *validator.Validate, logger zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{
		service:   service,
		activity:  activity,
		validator: validator,
		logger:    logger.With().Str("component", "payment_handler").Logger(),
	}
}

// Register attaches the authenticated payment routes.
func (h *PaymentHandler) Register(router fiber.Router) {
	router.Post("/invoices", h.createInvoice)
	router.Get("/invoices", h.listInvoices)
}

// RegisterWebhook binds the gateway callback. The gateway authenticates via
// its server key, not a user token, so this stays outside the JWT group.
func (h *PaymentHandler) RegisterWebhook(router fiber.Router) {
	router.Post("/webhook", h.webhook)
}

func (h *PaymentHandler) createInvoice(c *fiber.Ctx) error {
	var payload dto.InvoiceCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	ctx := requestContext(c)
	actor := actorFromContext(c)
	checkout, err := h.service.CreateInvoice(ctx, actor, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	if h.activity != nil {
		h.activity.Record(ctx, actor, "invoice.created", "invoice", &checkout.InvoiceID, map[string]interface{}{
			"order_id": checkout.OrderID,
		})
	}

	return utils.SendCreated(c, "invoice created", checkout)
}

func (h *PaymentHandler) listInvoices(c *fiber.Ctx) error {
	actor := actorFromContext(c)
	studentID := actor.UserID
	if override, err := parseQueryUint(c, "student_id"); err == nil && override != nil {
		studentID = *override
	}

	invoices, err := h.service.ListInvoices(requestContext(c), actor, studentID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "invoices retrieved", invoices)
}

func (h *PaymentHandler) webhook(c *fiber.Ctx) error {
	var payload dto.PaymentWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	invoice, err := h.service.HandleWebhook(requestContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "payment status processed", invoice)
}

func (h *PaymentHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrInvoiceNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "invoice not found")
	case errors.Is(err, service.ErrUserNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "student not found")
	case errors.Is(err, service.ErrNotInvoiceOwner):
		return utils.SendError(c, fiber.StatusForbidden, "not allowed to view these invoices")
	case errors.Is(err, service.ErrGatewayUnavailable):
		return utils.SendError(c, fiber.StatusServiceUnavailable, "payment gateway unavailable")
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("payment request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
