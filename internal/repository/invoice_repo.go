package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/lms-portal-api/internal/models"
)

// InvoiceRepository defines data operations for billing.
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *models.Invoice) error
	GetByID(ctx context.Context, id uint) (models.Invoice, error)
	GetByOrderID(ctx context.Context, orderID string) (models.Invoice, error)
	Update(ctx context.Context, invoice *models.Invoice) error
	ListByStudent(ctx context.Context, studentID uint) ([]models.Invoice, error)
}

type invoiceRepository struct {
	db *gorm.DB
}

// NewInvoiceRepository instantiates the repository.
func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

func (r *invoiceRepository) Create(ctx context.Context, invoice *models.Invoice) error {
	return r.db.WithContext(ctx).Create(invoice).Error
}

func (r *invoiceRepository) GetByID(ctx context.Context, id uint) (models.Invoice, error) {
	var invoice models.Invoice
	if err := r.db.WithContext(ctx).Preload("Student").First(&invoice, id).Error; err != nil {
		return models.Invoice{}, err
	}

	return invoice, nil
}

func (r *invoiceRepository) GetByOrderID(ctx context.Context, orderID string) (models.Invoice, error) {
	var invoice models.Invoice
	if err := r.db.WithContext(ctx).Preload("Student").Where("order_id = ?", orderID).First(&invoice).Error; err != nil {
		return models.Invoice{}, err
	}

	return invoice, nil
}

func (r *invoiceRepository) Update(ctx context.Context, invoice *models.Invoice) error {
	return r.db.WithContext(ctx).Omit("Student").Save(invoice).Error
}

func (r *invoiceRepository) ListByStudent(ctx context.Context, studentID uint) ([]models.Invoice, error) {
	var invoices []models.Invoice
	if err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("created_at DESC").
		Find(&invoices).Error; err != nil {
		return nil, err
	}

	return invoices, nil
}
