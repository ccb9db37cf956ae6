package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/lms-portal-api/internal/dto"
	"github.com/noah-isme/lms-portal-api/internal/models"
	"github.com/noah-isme/lms-portal-api/internal/repository"
	"github.com/noah-isme/lms-portal-api/pkg/midtrans"
)

// ErrInvoiceNotFound indicates the requested invoice does not exist.
var ErrInvoiceNotFound = errors.New("invoice not found")

// ErrGatewayUnavailable indicates no payment gateway is configured.
var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

// ErrNotInvoiceOwner indicates the caller may not read the requested invoices.
var ErrNotInvoiceOwner = errors.New("not allowed to view these invoices")

// PaymentGateway registers transactions with the external payment provider.
type PaymentGateway interface {
	CreateTransaction(orderID string, amount int64, customer midtrans.Customer) (token string, redirectURL string, err error)
}

// PaymentService bills students and processes gateway callbacks.
type PaymentService interface {
	CreateInvoice(ctx context.Context, actor Actor, payload dto.InvoiceCreateRequest) (dto.CheckoutResponse, error)
	ListInvoices(ctx context.Context, actor Actor, studentID uint) ([]dto.InvoiceResponse, error)
	HandleWebhook(ctx context.Context, payload dto.PaymentWebhookPayload) (dto.InvoiceResponse, error)
}

type paymentService struct {
	invoices  repository.InvoiceRepository
	users     repository.UserRepository
	gateway   PaymentGateway
	notifier  Notifier
	validator *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
}

// NewPaymentService builds the payment service.
func NewPaymentService(invoices repository.InvoiceRepository, users repository.UserRepository, gateway PaymentGateway, notifier Notifier, validate *validator.Validate, logger zerolog.Logger) PaymentService {
	return &paymentService{
		invoices:  invoices,
		users:     users,
		gateway:   gateway,
		notifier:  notifier,
		validator: validate,
		logger:    logger.With().Str("component", "payment_service").Logger(),
		now:       time.Now,
	}
}

// CreateInvoice bills a student and registers the order with the gateway.
// The generated order id is the correlation key for the webhook later.
func (s *paymentService) CreateInvoice(ctx context.Context, actor Actor, payload dto.InvoiceCreateRequest) (dto.CheckoutResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CheckoutResponse{}, err
	}

	if s.gateway == nil {
		return dto.CheckoutResponse{}, ErrGatewayUnavailable
	}

	student, err := s.users.GetByID(ctx, payload.StudentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CheckoutResponse{}, ErrUserNotFound
		}

		return dto.CheckoutResponse{}, err
	}

	orderID := fmt.Sprintf("LMS-%s", uuid.NewString())

	token, redirectURL, err := s.gateway.CreateTransaction(orderID, payload.Amount, midtrans.Customer{
		Name:  student.Name,
		Email: student.Email,
	})
	if err != nil {
		return dto.CheckoutResponse{}, fmt.Errorf("failed to register transaction: %w", err)
	}

	invoice := models.Invoice{
		StudentID:   student.ID,
		OrderID:     orderID,
		Description: payload.Description,
		Amount:      payload.Amount,
		Status:      models.InvoiceStatusPending,
		SnapToken:   token,
	}

	if err := s.invoices.Create(ctx, &invoice); err != nil {
		return dto.CheckoutResponse{}, err
	}

	s.logger.Info().
		Uint("invoice_id", invoice.ID).
		Str("order_id", orderID).
		Int64("amount", payload.Amount).
		Msg("invoice created")

	return dto.CheckoutResponse{
		InvoiceID:   invoice.ID,
		OrderID:     orderID,
		SnapToken:   token,
		RedirectURL: redirectURL,
	}, nil
}

func (s *paymentService) ListInvoices(ctx context.Context, actor Actor, studentID uint) ([]dto.InvoiceResponse, error) {
	if !actor.IsStaff() && actor.UserID != studentID {
		return nil, ErrNotInvoiceOwner
	}

	invoices, err := s.invoices.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	return dto.NewInvoiceResponseSlice(invoices), nil
}

// HandleWebhook applies the gateway's status callback. Settled invoices are
// never reopened, so replayed callbacks are harmless.
func (s *paymentService) HandleWebhook(ctx context.Context, payload dto.PaymentWebhookPayload) (dto.InvoiceResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.InvoiceResponse{}, err
	}

	invoice, err := s.invoices.GetByOrderID(ctx, payload.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.InvoiceResponse{}, ErrInvoiceNotFound
		}

		return dto.InvoiceResponse{}, err
	}

	if invoice.IsSettled() {
		return dto.NewInvoiceResponse(invoice), nil
	}

	status := mapTransactionStatus(payload.TransactionStatus, payload.FraudStatus)
	if status == models.InvoiceStatusPending {
		return dto.NewInvoiceResponse(invoice), nil
	}

	invoice.Status = status
	if status == models.InvoiceStatusPaid {
		paidAt := s.now()
		invoice.PaidAt = &paidAt
	}

	if err := s.invoices.Update(ctx, &invoice); err != nil {
		return dto.InvoiceResponse{}, err
	}

	s.logger.Info().
		Str("order_id", invoice.OrderID).
		Str("status", invoice.Status).
		Msg("invoice status updated from webhook")

	if s.notifier != nil {
		title := "Payment received"
		body := fmt.Sprintf("Your payment for %q was received.", invoice.Description)
		if status == models.InvoiceStatusFailed {
			title = "Payment failed"
			body = fmt.Sprintf("Your payment for %q did not complete.", invoice.Description)
		}

		_, err := s.notifier.Publish(ctx, dto.NotificationCreateRequest{
			UserID: invoice.StudentID,
			Type:   models.NotificationTypePayment,
			Title:  title,
			Body:   body,
		})
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to notify student of payment status")
		}
	}

	return dto.NewInvoiceResponse(invoice), nil
}

// mapTransactionStatus folds the gateway's status vocabulary onto invoice
// states. Anything ambiguous stays pending until a later callback settles it.
func mapTransactionStatus(transactionStatus, fraudStatus string) string {
	switch transactionStatus {
	case "capture":
		if fraudStatus == "accept" {
			return models.InvoiceStatusPaid
		}
		return models.InvoiceStatusPending
	case "settlement":
		return models.InvoiceStatusPaid
	case "deny", "cancel", "expire", "failure":
		return models.InvoiceStatusFailed
	default:
		return models.InvoiceStatusPending
	}
}
