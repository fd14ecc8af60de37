// Package admin provides the admin identity record, password hashing and
// the credential store.
//
// # Security
//
// Passwords are hashed using bcrypt with a cost factor of 10 (bcrypt.DefaultCost).
// bcrypt salts every hash, so equal passwords produce different hashes, and
// CompareHashAndPassword compares in constant time.
//
// # Database Schema
//
// Admins live in the admins table (see pg.Schema). email is UNIQUE; that
// constraint, not the service's pre-check, is what rejects a concurrent
// duplicate registration.
package admin

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const (
	// BcryptCost is the cost factor for bcrypt hashing.
	// Each increment doubles the time required to hash a password.
	BcryptCost = bcrypt.DefaultCost

	// MaxPasswordBytes is the longest password bcrypt accepts.
	MaxPasswordBytes = 72
)

// ErrPasswordTooLong is returned by HashPassword for passwords over
// MaxPasswordBytes bytes.
var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

// HashPassword hashes a plain-text password using bcrypt.
//
// The returned string embeds the salt and cost and can be stored as is.
func HashPassword(password string) (string, error) {
	if len(password) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword verifies a plain-text password against a bcrypt hash.
//
// Returns nil if the password matches, or an error if it doesn't or the
// hash is malformed.
func VerifyPassword(password string, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
