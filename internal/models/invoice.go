package models

import "time"

const (
	// InvoiceStatusPending awaits payment.
	InvoiceStatusPending = "pending"
	// InvoiceStatusPaid is a settled invoice.
	InvoiceStatusPaid = "paid"
	// InvoiceStatusFailed is a payment that was denied or expired.
	InvoiceStatusFailed = "failed"
)

// Invoice bills a student for tuition or fees. OrderID is the external
// payment gateway order reference and must be unique.
type Invoice struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	StudentID   uint      `gorm:"not null;index" json:"student_id"`
	OrderID     string    `gorm:"size:64;uniqueIndex;not null" json:"order_id"`
	Description string    `gorm:"size:255;not null" json:"description"`
	Amount      int64     `gorm:"not null" json:"amount"`
	Status      string    `gorm:"size:16;not null;default:pending" json:"status"`
	SnapToken   string    `gorm:"size:255" json:"snap_token,omitempty"`
	PaidAt      *time.Time `json:"paid_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Student     User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"student"`
}

// IsSettled reports whether the invoice reached a terminal state.
func (i Invoice) IsSettled() bool {
	return i.Status == InvoiceStatusPaid || i.Status == InvoiceStatusFailed
}
