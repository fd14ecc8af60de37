package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"

	"github.com/markb/shopdash/internal/log"
)

// DevSecret is the signing secret used in development when none is configured.
const DevSecret = "dev_secret"

// ErrMissingSecret is returned by ResolveSecret in production without a secret.
var ErrMissingSecret = errors.New("jwt secret is required in production")

// ResolveSecret returns the secret to sign tokens with. An empty secret is
// fatal in production and replaced by DevSecret, with a warning, otherwise.
func ResolveSecret(secret string, production bool) (string, error) {
	if secret != "" {
		return secret, nil
	}
	if production {
		return "", ErrMissingSecret
	}
	log.Warn("no jwt secret configured, using the development default; set SHOPDASH_JWT_SECRET before exposing this server")
	return DevSecret, nil
}

// GenerateSecret returns a random URL-safe secret of n bytes of entropy.
func GenerateSecret(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
