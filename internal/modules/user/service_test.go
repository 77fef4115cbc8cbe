package user

import (
	"context"
	"testing"

	"github.com/georgemunganga/shopdesk-backend/internal/platform/logging"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestRegisterUserHashesAndNormalizes(t *testing.T) {
	svc := NewService(NewMemoryRepository(), logging.Discard())

	u, err := svc.RegisterUser(context.Background(), "  Ada@Example.COM ", "correct horse", "Ada", "Lovelace")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("correct horse")))

	got, err := svc.GetUserByEmail(context.Background(), "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestRegisterUserValidation(t *testing.T) {
	svc := NewService(NewMemoryRepository(), logging.Discard())
	ctx := context.Background()

	_, err := svc.RegisterUser(ctx, "not-an-email", "longenough", "", "")
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = svc.RegisterUser(ctx, "a@b.co", "short", "", "")
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestRegisterUserDuplicateEmail(t *testing.T) {
	svc := NewService(NewMemoryRepository(), logging.Discard())
	ctx := context.Background()

	_, err := svc.RegisterUser(ctx, "dup@shop.test", "password1", "", "")
	require.NoError(t, err)
	_, err = svc.RegisterUser(ctx, "DUP@shop.test", "password2", "", "")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestGetUserNotFound(t *testing.T) {
	svc := NewService(NewMemoryRepository(), logging.Discard())
	_, err := svc.GetUser(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
}
