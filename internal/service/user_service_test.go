package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/lms-portal-api/internal/dto"
	"github.com/noah-isme/lms-portal-api/internal/models"
	"github.com/noah-isme/lms-portal-api/internal/repository"
)

func TestCreateUserHashesPasswordAndNormalisesEmail(t *testing.T) {
	db := newTestDB(t)
	service := NewUserService(repository.NewUserRepository(db), newTestValidator(), zerolog.Nop())

	created, err := service.Create(context.Background(), dto.UserCreateRequest{
		Name:     "New Teacher",
		Email:    "  New.Teacher@Example.COM ",
		Password: "long enough password",
		Role:     models.RoleTeacher,
	})
	require.NoError(t, err)
	require.Equal(t, "new.teacher@example.com", created.Email)

	var stored models.User
	require.NoError(t, db.First(&stored, created.ID).Error)
	require.NotEqual(t, "long enough password", stored.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("long enough password")))
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	service := NewUserService(repository.NewUserRepository(db), newTestValidator(), zerolog.Nop())

	payload := dto.UserCreateRequest{
		Name:     "First Account",
		Email:    "shared@example.com",
		Password: "long enough password",
		Role:     models.RoleStudent,
	}
	_, err := service.Create(context.Background(), payload)
	require.NoError(t, err)

	payload.Name = "Second Account"
	_, err = service.Create(context.Background(), payload)
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestCreateUserRejectsWeakPayloads(t *testing.T) {
	db := newTestDB(t)
	service := NewUserService(repository.NewUserRepository(db), newTestValidator(), zerolog.Nop())

	cases := map[string]dto.UserCreateRequest{
		"short password": {Name: "Someone", Email: "someone@example.com", Password: "short", Role: models.RoleStudent},
		"bad role":       {Name: "Someone", Email: "someone@example.com", Password: "long enough password", Role: "janitor"},
		"bad email":      {Name: "Someone", Email: "not-an-email", Password: "long enough password", Role: models.RoleStudent},
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := service.Create(context.Background(), payload)
			require.Error(t, err)
		})
	}
}

func TestListUsersFiltersByRole(t *testing.T) {
	db := newTestDB(t)
	service := NewUserService(repository.NewUserRepository(db), newTestValidator(), zerolog.Nop())
	createUser(t, db, "Roster Teacher", models.RoleTeacher)
	createUser(t, db, "Roster Student One", models.RoleStudent)
	createUser(t, db, "Roster Student Two", models.RoleStudent)

	students, err := service.List(context.Background(), models.RoleStudent)
	require.NoError(t, err)
	require.Len(t, students, 2)

	everyone, err := service.List(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, everyone, 3)
}
