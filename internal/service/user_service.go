package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/noah-isme/lms-portal-api/internal/dto"
	"github.com/noah-isme/lms-portal-api/internal/models"
	"github.com/noah-isme/lms-portal-api/internal/repository"
)

// ErrEmailTaken indicates another account already uses the email address.
var ErrEmailTaken = errors.New("email already registered")

// UserService provisions and lists portal accounts.
type UserService interface {
	Create(ctx context.Context, payload dto.UserCreateRequest) (dto.UserResponse, error)
	List(ctx context.Context, role string) ([]dto.UserResponse, error)
	Get(ctx context.Context, id uint) (dto.UserResponse, error)
}

type userService struct {
	users     repository.UserRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewUserService builds the account service.
func NewUserService(users repository.UserRepository, validate *validator.Validate, logger zerolog.Logger) UserService {
	return &userService{
		users:     users,
		validator: validate,
		logger:    logger.With().Str("component", "user_service").Logger(),
	}
}

func (s *userService) Create(ctx context.Context, payload dto.UserCreateRequest) (dto.UserResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.UserResponse{}, err
	}

	email := strings.ToLower(strings.TrimSpace(payload.Email))
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return dto.UserResponse{}, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.UserResponse{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
	if err != nil {
		return dto.UserResponse{}, err
	}

	user := models.User{
		Name:         payload.Name,
		Email:        email,
		Role:         payload.Role,
		PasswordHash: string(hash),
	}

	if err := s.users.Create(ctx, &user); err != nil {
		return dto.UserResponse{}, err
	}

	s.logger.Info().Uint("user_id", user.ID).Str("role", user.Role).Msg("account created")

	return dto.NewUserResponse(user), nil
}

func (s *userService) List(ctx context.Context, role string) ([]dto.UserResponse, error) {
	users, err := s.users.List(ctx, role)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.UserResponse, 0, len(users))
	for _, user := range users {
		responses = append(responses, dto.NewUserResponse(user))
	}

	return responses, nil
}

func (s *userService) Get(ctx context.Context, id uint) (dto.UserResponse, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrUserNotFound
		}

		return dto.UserResponse{}, err
	}

	return dto.NewUserResponse(user), nil
}
