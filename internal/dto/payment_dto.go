package dto

import (
	"time"

	"github.com/noah-isme/lms-portal-api/internal/models"
)

// InvoiceCreateRequest bills a student.
type InvoiceCreateRequest struct {
	StudentID   uint   `json:"student_id" validate:"required,gt=0"`
	Description string `json:"description" validate:"required,min=3,max=255"`
	Amount      int64  `json:"amount" validate:"required,gt=0"`
}

// CheckoutResponse returns the gateway token the client uses to pay.
type CheckoutResponse struct {
	InvoiceID   uint   `json:"invoice_id"`
	OrderID     string `json:"order_id"`
	SnapToken   string `json:"snap_token"`
	RedirectURL string `json:"redirect_url,omitempty"`
}

// PaymentWebhookPayload is the gateway's server-to-server status callback.
type PaymentWebhookPayload struct {
	OrderID           string `json:"order_id" validate:"required"`
	TransactionStatus string `json:"transaction_status" validate:"required"`
	FraudStatus       string `json:"fraud_status"`
}

// InvoiceResponse serializes an invoice.
type InvoiceResponse struct {
	ID          uint       `json:"id"`
	StudentID   uint       `json:"student_id"`
	OrderID     string     `json:"order_id"`
	Description string     `json:"description"`
	Amount      int64      `json:"amount"`
	Status      string     `json:"status"`
	PaidAt      *time.Time `json:"paid_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NewInvoiceResponse converts an Invoice model into a DTO.
func NewInvoiceResponse(model models.Invoice) InvoiceResponse {
	return InvoiceResponse{
		ID:          model.ID,
		StudentID:   model.StudentID,
		OrderID:     model.OrderID,
		Description: model.Description,
		Amount:      model.Amount,
		Status:      model.Status,
		PaidAt:      model.PaidAt,
		CreatedAt:   model.CreatedAt,
	}
}

// NewInvoiceResponseSlice converts invoice models into DTOs.
func NewInvoiceResponseSlice(invoices []models.Invoice) []InvoiceResponse {
	responses := make([]InvoiceResponse, 0, len(invoices))
	for _, invoice := range invoices {
		responses = append(responses, NewInvoiceResponse(invoice))
	}

	return responses
}
