package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/lms-portal-api/internal/dto"
	"github.com/noah-isme/lms-portal-api/internal/models"
	"github.com/noah-isme/lms-portal-api/internal/repository"
)

// ErrSlotNotFound indicates the requested office hour slot does not exist.
var ErrSlotNotFound = errors.New("office hour slot not found")

// ErrSlotTaken indicates another student booked the slot first.
var ErrSlotTaken = errors.New("office hour slot already booked")

// ErrSlotNotHeld indicates the caller holds no booking on the slot.
var ErrSlotNotHeld = errors.New("office hour slot not held by caller")

// ErrInvalidSlotWindow indicates the requested slot times cannot be scheduled.
var ErrInvalidSlotWindow = errors.New("invalid office hour window")

// OfficeHourService publishes and books teacher meeting slots.
type OfficeHourService interface {
	CreateSlot(ctx context.Context, actor Actor, payload dto.OfficeHourCreateRequest) (dto.OfficeHourResponse, error)
	ListUpcoming(ctx context.Context, teacherID *uint) ([]dto.OfficeHourResponse, error)
	Book(ctx context.Context, actor Actor, slotID uint) (dto.OfficeHourResponse, error)
	Cancel(ctx context.Context, actor Actor, slotID uint) error
	DeleteSlot(ctx context.Context, actor Actor, slotID uint) error
}

type officeHourService struct {
	slots     repository.OfficeHourRepository
	validator *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
}

// NewOfficeHourService builds the office hour service.
func NewOfficeHourService(slots repository.OfficeHourRepository, validate *validator.Validate, logger zerolog.Logger) OfficeHourService {
	return &officeHourService{
		slots:     slots,
		validator: validate,
		logger:    logger.With().Str("component", "office_hour_service").Logger(),
		now:       time.Now,
	}
}

func (s *officeHourService) CreateSlot(ctx context.Context, actor Actor, payload dto.OfficeHourCreateRequest) (dto.OfficeHourResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.OfficeHourResponse{}, err
	}

	startsAt, err := time.Parse(time.RFC3339, payload.StartsAt)
	if err != nil {
		return dto.OfficeHourResponse{}, fmt.Errorf("%w: invalid start time: %v", ErrInvalidSlotWindow, err)
	}

	endsAt, err := time.Parse(time.RFC3339, payload.EndsAt)
	if err != nil {
		return dto.OfficeHourResponse{}, fmt.Errorf("%w: invalid end time: %v", ErrInvalidSlotWindow, err)
	}

	if !endsAt.After(startsAt) {
		return dto.OfficeHourResponse{}, fmt.Errorf("%w: slot must end after it starts", ErrInvalidSlotWindow)
	}

	if startsAt.Before(s.now()) {
		return dto.OfficeHourResponse{}, fmt.Errorf("%w: slot must start in the future", ErrInvalidSlotWindow)
	}

	slot := models.OfficeHourSlot{
		TeacherID: actor.UserID,
		StartsAt:  startsAt,
		EndsAt:    endsAt,
		Location:  payload.Location,
	}

	if err := s.slots.Create(ctx, &slot); err != nil {
		return dto.OfficeHourResponse{}, err
	}

	s.logger.Info().
		Uint("slot_id", slot.ID).
		Uint("teacher_id", actor.UserID).
		Time("starts_at", startsAt).
		Msg("office hour slot published")

	return dto.NewOfficeHourResponse(slot), nil
}

func (s *officeHourService) ListUpcoming(ctx context.Context, teacherID *uint) ([]dto.OfficeHourResponse, error) {
	slots, err := s.slots.ListUpcoming(ctx, teacherID, s.now())
	if err != nil {
		return nil, err
	}

	return dto.NewOfficeHourResponseSlice(slots), nil
}

// Book claims the slot for the calling student. The claim is atomic at the
// database level; when two students race, exactly one wins and the other
// receives ErrSlotTaken.
func (s *officeHourService) Book(ctx context.Context, actor Actor, slotID uint) (dto.OfficeHourResponse, error) {
	claimed, err := s.slots.Book(ctx, slotID, actor.UserID)
	if err != nil {
		return dto.OfficeHourResponse{}, err
	}
	if !claimed {
		if _, err := s.slots.GetByID(ctx, slotID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return dto.OfficeHourResponse{}, ErrSlotNotFound
			}
			return dto.OfficeHourResponse{}, err
		}
		return dto.OfficeHourResponse{}, ErrSlotTaken
	}

	slot, err := s.slots.GetByID(ctx, slotID)
	if err != nil {
		return dto.OfficeHourResponse{}, err
	}

	s.logger.Info().Uint("slot_id", slotID).Uint("student_id", actor.UserID).Msg("office hour slot booked")

	return dto.NewOfficeHourResponse(slot), nil
}

func (s *officeHourService) Cancel(ctx context.Context, actor Actor, slotID uint) error {
	released, err := s.slots.Release(ctx, slotID, actor.UserID)
	if err != nil {
		return err
	}
	if !released {
		return ErrSlotNotHeld
	}

	s.logger.Info().Uint("slot_id", slotID).Uint("student_id", actor.UserID).Msg("office hour booking cancelled")

	return nil
}

func (s *officeHourService) DeleteSlot(ctx context.Context, actor Actor, slotID uint) error {
	slot, err := s.slots.GetByID(ctx, slotID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSlotNotFound
		}

		return err
	}

	if !actor.IsAdmin() && slot.TeacherID != actor.UserID {
		return ErrNotCourseOwner
	}

	return s.slots.Delete(ctx, slotID)
}
