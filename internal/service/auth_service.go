package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/noah-isme/lms-portal-api/internal/dto"
	"github.com/noah-isme/lms-portal-api/internal/models"
	"github.com/noah-isme/lms-portal-api/internal/repository"
)

// ErrInvalidCredentials indicates the email/password pair does not match an account.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrInvalidRefreshToken indicates the refresh token is expired or malformed.
var ErrInvalidRefreshToken = errors.New("invalid refresh token")

// ErrUserNotFound indicates the requested account does not exist.
var ErrUserNotFound = errors.New("user not found")

// TokenConfig carries the signing material and lifetimes for issued tokens.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// AuthService issues and refreshes portal token pairs.
type AuthService interface {
	Login(ctx context.Context, payload dto.LoginRequest) (dto.TokenResponse, error)
	Refresh(ctx context.Context, payload dto.RefreshRequest) (dto.TokenResponse, error)
	Profile(ctx context.Context, userID uint) (dto.UserResponse, error)
}

type authService struct {
	users     repository.UserRepository
	tokens    TokenConfig
	validator *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
}

// NewAuthService builds the authentication service.
func NewAuthService(users repository.UserRepository, tokens TokenConfig, validate *validator.Validate, logger zerolog.Logger) AuthService {
	return &authService{
		users:     users,
		tokens:    tokens,
		validator: validate,
		logger:    logger.With().Str("component", "auth_service").Logger(),
		now:       time.Now,
	}
}

func (s *authService) Login(ctx context.Context, payload dto.LoginRequest) (dto.TokenResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TokenResponse{}, err
	}

	user, err := s.users.GetByEmail(ctx, payload.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TokenResponse{}, ErrInvalidCredentials
		}

		return dto.TokenResponse{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(payload.Password)); err != nil {
		return dto.TokenResponse{}, ErrInvalidCredentials
	}

	s.logger.Info().Uint("user_id", user.ID).Str("role", user.Role).Msg("user logged in")

	return s.issuePair(user)
}

func (s *authService) Refresh(ctx context.Context, payload dto.RefreshRequest) (dto.TokenResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TokenResponse{}, err
	}

	token, err := jwt.Parse(payload.RefreshToken, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.tokens.RefreshSecret), nil
	})
	if err != nil || !token.Valid {
		return dto.TokenResponse{}, ErrInvalidRefreshToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return dto.TokenResponse{}, ErrInvalidRefreshToken
	}

	subject, err := claims.GetSubject()
	if err != nil {
		return dto.TokenResponse{}, ErrInvalidRefreshToken
	}

	userID, err := strconv.ParseUint(subject, 10, 64)
	if err != nil {
		return dto.TokenResponse{}, ErrInvalidRefreshToken
	}

	user, err := s.users.GetByID(ctx, uint(userID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TokenResponse{}, ErrInvalidRefreshToken
		}

		return dto.TokenResponse{}, err
	}

	return s.issuePair(user)
}

func (s *authService) Profile(ctx context.Context, userID uint) (dto.UserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrUserNotFound
		}

		return dto.UserResponse{}, err
	}

	return dto.NewUserResponse(user), nil
}

func (s *authService) issuePair(user models.User) (dto.TokenResponse, error) {
	issuedAt := s.now()
	accessExpiry := issuedAt.Add(s.tokens.AccessTTL)

	access := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  strconv.FormatUint(uint64(user.ID), 10),
		"role": user.Role,
		"name": user.Name,
		"iat":  issuedAt.Unix(),
		"exp":  accessExpiry.Unix(),
	})

	accessToken, err := access.SignedString([]byte(s.tokens.AccessSecret))
	if err != nil {
		return dto.TokenResponse{}, fmt.Errorf("failed to sign access token: %w", err)
	}

	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(user.ID), 10),
		"iat": issuedAt.Unix(),
		"exp": issuedAt.Add(s.tokens.RefreshTTL).Unix(),
	})

	refreshToken, err := refresh.SignedString([]byte(s.tokens.RefreshSecret))
	if err != nil {
		return dto.TokenResponse{}, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    accessExpiry,
		User:         dto.NewUserResponse(user),
	}, nil
}
