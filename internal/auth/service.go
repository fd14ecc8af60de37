// Package auth registers and authenticates admins and guards protected routes.
//
// Sessions are stateless: a token is a signed HS256 JWT that is valid for
// TokenLifetime after issuance. Nothing is stored server-side, so a token
// cannot be revoked before it expires.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/markb/shopdash/internal/admin"
	"github.com/markb/shopdash/internal/apperr"
	"github.com/markb/shopdash/internal/log"
)

// Client-facing messages.
const (
	MsgFieldsRequired      = "All fields are required"
	MsgPasswordTooLong     = "Password must be at most 72 bytes"
	MsgEmailInUse          = "Email already in use"
	MsgRegisterFailed      = "Error registering admin"
	MsgCredentialsRequired = "Email and password required"
	MsgInvalidCredentials  = "Invalid credentials"
	MsgLoginFailed         = "Error logging in"
	MsgUnauthorized        = "Unauthorized"
)

// Config configures a Service.
type Config struct {
	// Secret signs session tokens. Use ResolveSecret to pick it.
	Secret string
	// TokenLifetime defaults to TokenLifetime.
	TokenLifetime time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

type LoginResult struct {
	Admin     admin.PublicView
	Token     string
	ExpiresAt time.Time
}

// Service is the authentication service.
type Service struct {
	store  admin.Store
	tokens *TokenManager

	// dummyHash is compared against for unknown emails. No submitted
	// password matches it.
	dummyHash string
}

func NewService(store admin.Store, cfg Config) (*Service, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingSecret
	}

	dummy, err := newDummyHash()
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy hash: %w", err)
	}

	return &Service{
		store:     store,
		tokens:    NewTokenManager([]byte(cfg.Secret), cfg.TokenLifetime, cfg.Now),
		dummyHash: dummy,
	}, nil
}

// Register creates an admin and returns its public view.
//
// Missing fields fail before the store is touched. A taken email fails
// with a Conflict, whether caught by the lookup or by the store's unique
// constraint.
func (s *Service) Register(ctx context.Context, in RegisterInput) (admin.PublicView, error) {
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return admin.PublicView{}, apperr.Validation(MsgFieldsRequired)
	}
	if len(in.Password) > admin.MaxPasswordBytes {
		return admin.PublicView{}, apperr.Validation(MsgPasswordTooLong)
	}

	_, err := s.store.FindByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return admin.PublicView{}, apperr.Conflict(MsgEmailInUse)
	case !errors.Is(err, admin.ErrNotFound):
		return admin.PublicView{}, apperr.Storage(MsgRegisterFailed, err)
	}

	hash, err := admin.HashPassword(in.Password)
	if err != nil {
		return admin.PublicView{}, apperr.Storage(MsgRegisterFailed, err)
	}

	a, err := s.store.Create(ctx, in.Username, in.Email, hash)
	if err != nil {
		if errors.Is(err, admin.ErrDuplicateEmail) {
			return admin.PublicView{}, apperr.Conflict(MsgEmailInUse)
		}
		return admin.PublicView{}, apperr.Storage(MsgRegisterFailed, err)
	}

	log.Info("admin registered", "id", a.ID, "email", a.Email)
	return a.Public(), nil
}

// Login verifies credentials and issues a session token.
//
// An unknown email and a wrong password produce the same error, and both
// paths run one bcrypt comparison.
func (s *Service) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	if in.Email == "" || in.Password == "" {
		return nil, apperr.Validation(MsgCredentialsRequired)
	}

	a, err := s.store.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, admin.ErrNotFound) {
			_ = admin.VerifyPassword(in.Password, s.dummyHash)
			return nil, apperr.Authentication(MsgInvalidCredentials)
		}
		return nil, apperr.Storage(MsgLoginFailed, err)
	}

	if err := admin.VerifyPassword(in.Password, a.PasswordHash); err != nil {
		return nil, apperr.Authentication(MsgInvalidCredentials)
	}

	view := a.Public()
	token, expiresAt, err := s.tokens.GenerateToken(view)
	if err != nil {
		return nil, apperr.Storage(MsgLoginFailed, err)
	}

	log.Info("admin logged in", "id", a.ID, "email", a.Email)
	return &LoginResult{Admin: view, Token: token, ExpiresAt: expiresAt}, nil
}

// Authenticate validates a session token. Every failure, whatever the
// cause, is the same Authentication error.
func (s *Service) Authenticate(token string) (*Claims, error) {
	if token == "" {
		return nil, apperr.Authentication(MsgUnauthorized)
	}
	claims, err := s.tokens.VerifyToken(token)
	if err != nil {
		log.Debug("token rejected", "error", err)
		return nil, apperr.Authentication(MsgUnauthorized)
	}
	return claims, nil
}

// newDummyHash hashes a random secret that is then discarded.
func newDummyHash() (string, error) {
	secret, err := GenerateSecret(24)
	if err != nil {
		return "", err
	}
	return admin.HashPassword(secret)
}
