package auth

import (
	"context"
	"errors"

	"github.com/georgemunganga/shopdesk-backend/internal/modules/user"
	"github.com/georgemunganga/shopdesk-backend/internal/platform/apperr"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for any unknown email or wrong password.
var ErrInvalidCredentials = apperr.New(apperr.Unauthorized, "INVALID_CREDENTIALS", "invalid credentials")

type service struct {
	users  user.Service
	tokens *TokenIssuer
	log    logrus.FieldLogger
}

// NewService creates a new auth service.
func NewService(users user.Service, tokens *TokenIssuer, log logrus.FieldLogger) Service {
	return &service{users: users, tokens: tokens, log: log.WithField("module", "auth")}
}

func (s *service) Login(ctx context.Context, email, password string) (*Token, error) {
	u, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, user.ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		s.log.WithField("user_id", u.ID).Warn("login rejected")
		return nil, ErrInvalidCredentials
	}

	signed, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, err
	}
	return &Token{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.tokens.TTL().Seconds()),
	}, nil
}
