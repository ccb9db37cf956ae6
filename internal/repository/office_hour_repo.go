package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/lms-portal-api/internal/models"
)

// OfficeHourRepository defines data operations for office hour slots.
type OfficeHourRepository interface {
	Create(ctx context.Context, slot *models.OfficeHourSlot) error
	GetByID(ctx context.Context, id uint) (models.OfficeHourSlot, error)
	ListUpcoming(ctx context.Context, teacherID *uint, from time.Time) ([]models.OfficeHourSlot, error)
	Book(ctx context.Context, slotID, studentID uint) (bool, error)
	Release(ctx context.Context, slotID, studentID uint) (bool, error)
	Delete(ctx context.Context, id uint) error
}

type officeHourRepository struct {
	db *gorm.DB
}

// NewOfficeHourRepository instantiates the repository.
func NewOfficeHourRepository(db *gorm.DB) OfficeHourRepository {
	return &officeHourRepository{db: db}
}

func (r *officeHourRepository) Create(ctx context.Context, slot *models.OfficeHourSlot) error {
	return r.db.WithContext(ctx).Create(slot).Error
}

func (r *officeHourRepository) GetByID(ctx context.Context, id uint) (models.OfficeHourSlot, error) {
	var slot models.OfficeHourSlot
	if err := r.db.WithContext(ctx).Preload("Teacher").First(&slot, id).Error; err != nil {
		return models.OfficeHourSlot{}, err
	}

	return slot, nil
}

func (r *officeHourRepository) ListUpcoming(ctx context.Context, teacherID *uint, from time.Time) ([]models.OfficeHourSlot, error) {
	query := r.db.WithContext(ctx).Preload("Teacher").Where("starts_at >= ?", from)
	if teacherID != nil {
		query = query.Where("teacher_id = ?", *teacherID)
	}

	var slots []models.OfficeHourSlot
	if err := query.Order("starts_at ASC").Find(&slots).Error; err != nil {
		return nil, err
	}

	return slots, nil
}

// Book claims the slot for the student. The conditional update makes the
// claim atomic: a false return means someone else got there first.
func (r *officeHourRepository) Book(ctx context.Context, slotID, studentID uint) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.OfficeHourSlot{}).
		Where("id = ? AND booked_by IS NULL", slotID).
		Update("booked_by", studentID)
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

// Release frees the slot, but only for the student who holds it.
func (r *officeHourRepository) Release(ctx context.Context, slotID, studentID uint) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.OfficeHourSlot{}).
		Where("id = ? AND booked_by = ?", slotID, studentID).
		Update("booked_by", nil)
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

func (r *officeHourRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.OfficeHourSlot{}, id).Error
}
