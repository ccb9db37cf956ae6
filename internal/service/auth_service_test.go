package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/noah-isme/lms-portal-api/internal/dto"
	"github.com/noah-isme/lms-portal-api/internal/models"
	"github.com/noah-isme/lms-portal-api/internal/repository"
)

func newAuthService(t *testing.T, db *gorm.DB, tokens TokenConfig) AuthService {
	t.Helper()
	return NewAuthService(repository.NewUserRepository(db), tokens, newTestValidator(), zerolog.Nop())
}

func createCredentialedUser(t *testing.T, db *gorm.DB, email, password, role string) models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	user := models.User{
		Name:         "Login Test User",
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func TestLoginIssuesTokenPairForValidCredentials(t *testing.T) {
	db := newTestDB(t)
	user := createCredentialedUser(t, db, "teacher@example.com", "correct horse", models.RoleTeacher)
	service := newAuthService(t, db, TokenConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
	})

	tokens, err := service.Login(context.Background(), dto.LoginRequest{Email: "teacher@example.com", Password: "correct horse"})
	require.NoError(t, err)
	require.NotEmpty(t, tokens.AccessToken)
	require.NotEmpty(t, tokens.RefreshToken)
	require.NotEqual(t, tokens.AccessToken, tokens.RefreshToken)
	require.Equal(t, user.ID, tokens.User.ID)
	require.Equal(t, models.RoleTeacher, tokens.User.Role)
	require.WithinDuration(t, time.Now().Add(15*time.Minute), tokens.ExpiresAt, time.Minute)
}

func TestLoginRejectsWrongPasswordAndUnknownEmail(t *testing.T) {
	db := newTestDB(t)
	createCredentialedUser(t, db, "teacher@example.com", "correct horse", models.RoleTeacher)
	service := newAuthService(t, db, TokenConfig{AccessSecret: "a", RefreshSecret: "r", AccessTTL: time.Minute, RefreshTTL: time.Hour})

	_, err := service.Login(context.Background(), dto.LoginRequest{Email: "teacher@example.com", Password: "wrong password"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = service.Login(context.Background(), dto.LoginRequest{Email: "nobody@example.com", Password: "correct horse"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefreshExchangesAValidRefreshToken(t *testing.T) {
	db := newTestDB(t)
	user := createCredentialedUser(t, db, "student@example.com", "correct horse", models.RoleStudent)
	service := newAuthService(t, db, TokenConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	})

	tokens, err := service.Login(context.Background(), dto.LoginRequest{Email: "student@example.com", Password: "correct horse"})
	require.NoError(t, err)

	refreshed, err := service.Refresh(context.Background(), dto.RefreshRequest{RefreshToken: tokens.RefreshToken})
	require.NoError(t, err)
	require.NotEmpty(t, refreshed.AccessToken)
	require.Equal(t, user.ID, refreshed.User.ID)
}

func TestRefreshRejectsForgedAndForeignTokens(t *testing.T) {
	db := newTestDB(t)
	createCredentialedUser(t, db, "student@example.com", "correct horse", models.RoleStudent)
	service := newAuthService(t, db, TokenConfig{AccessSecret: "access-secret", RefreshSecret: "refresh-secret", AccessTTL: time.Minute, RefreshTTL: time.Hour})

	_, err := service.Refresh(context.Background(), dto.RefreshRequest{RefreshToken: "not.a.token"})
	require.ErrorIs(t, err, ErrInvalidRefreshToken)

	// A token signed with a different secret must be rejected too.
	other := newAuthService(t, db, TokenConfig{AccessSecret: "access-secret", RefreshSecret: "someone-elses-secret", AccessTTL: time.Minute, RefreshTTL: time.Hour})
	foreign, err := other.Login(context.Background(), dto.LoginRequest{Email: "student@example.com", Password: "correct horse"})
	require.NoError(t, err)

	_, err = service.Refresh(context.Background(), dto.RefreshRequest{RefreshToken: foreign.RefreshToken})
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestProfileReturnsTheAccount(t *testing.T) {
	db := newTestDB(t)
	user := createCredentialedUser(t, db, "admin@example.com", "correct horse", models.RoleAdmin)
	service := newAuthService(t, db, TokenConfig{AccessSecret: "a", RefreshSecret: "r", AccessTTL: time.Minute, RefreshTTL: time.Hour})

	profile, err := service.Profile(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, "admin@example.com", profile.Email)

	_, err = service.Profile(context.Background(), user.ID+100)
	require.ErrorIs(t, err, ErrUserNotFound)
}
