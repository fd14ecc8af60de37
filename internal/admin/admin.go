package admin

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no admin matches the lookup.
	ErrNotFound = errors.New("admin not found")

	// ErrDuplicateEmail is returned by Create when the email is taken,
	// including when a concurrent Create won the race.
	ErrDuplicateEmail = errors.New("email already in use")
)

// Admin represents an admin user
type Admin struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// PublicView is the part of an Admin that may leave the service.
type PublicView struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (a *Admin) Public() PublicView {
	return PublicView{ID: a.ID, Username: a.Username, Email: a.Email}
}

// Store persists admin records.
type Store interface {
	// Create inserts a new admin. It returns ErrDuplicateEmail if email is taken.
	Create(ctx context.Context, username, email, passwordHash string) (*Admin, error)
	// FindByEmail returns ErrNotFound when no admin has email.
	FindByEmail(ctx context.Context, email string) (*Admin, error)
	// List returns all admins, oldest first.
	List(ctx context.Context) ([]Admin, error)
}
