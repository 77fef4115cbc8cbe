package user

import (
	"context"

	"github.com/georgemunganga/shopdesk-backend/internal/platform/apperr"
	"github.com/google/uuid"
)

var (
	ErrUserNotFound = apperr.New(apperr.NotFound, "USER_NOT_FOUND", "user not found")
	ErrEmailTaken   = apperr.New(apperr.Conflict, "EMAIL_TAKEN", "email is already registered")
	ErrInvalidEmail = apperr.New(apperr.Invalid, "INVALID_EMAIL", "a valid email is required")
	ErrWeakPassword = apperr.New(apperr.Invalid, "WEAK_PASSWORD", "password must be at least 8 characters")
)

// Service defines the interface for user-related business logic.
type Service interface {
	RegisterUser(ctx context.Context, email, password, firstName, lastName string) (*User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
}
