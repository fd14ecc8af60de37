package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/markb/shopdash/internal/admin"
)

const (
	// TokenLifetime is the validity window of a session token.
	TokenLifetime = time.Hour

	// Issuer is the JWT issuer claim for session tokens.
	Issuer = "shopdash"
)

// Claims is the payload of a session token: the admin's public identity
// plus the registered claims (iss, sub, iat, exp, jti).
type Claims struct {
	AdminID  int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

// Admin returns the identity carried by the token.
func (c *Claims) Admin() admin.PublicView {
	return admin.PublicView{ID: c.AdminID, Username: c.Username, Email: c.Email}
}

// TokenManager signs and verifies HS256 session tokens.
type TokenManager struct {
	secretKey []byte
	lifetime  time.Duration
	now       func() time.Time
}

// NewTokenManager creates a manager. A zero lifetime means TokenLifetime
// and a nil now means time.Now.
func NewTokenManager(secretKey []byte, lifetime time.Duration, now func() time.Time) *TokenManager {
	if lifetime <= 0 {
		lifetime = TokenLifetime
	}
	if now == nil {
		now = time.Now
	}
	return &TokenManager{secretKey: secretKey, lifetime: lifetime, now: now}
}

// GenerateToken issues a token for a and returns it with its expiry.
func (m *TokenManager) GenerateToken(a admin.PublicView) (string, time.Time, error) {
	if len(m.secretKey) == 0 {
		return "", time.Time{}, errors.New("secret key is empty")
	}

	now := m.now()
	expiresAt := now.Add(m.lifetime)

	claims := &Claims{
		AdminID:  a.ID,
		Username: a.Username,
		Email:    a.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   strconv.FormatInt(a.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// VerifyToken checks signature, algorithm, issuer and expiry and returns
// the claims.
func (m *TokenManager) VerifyToken(tokenString string) (*Claims, error) {
	if len(m.secretKey) == 0 {
		return nil, errors.New("secret key is empty")
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}
