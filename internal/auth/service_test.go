package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/markb/shopdash/internal/admin"
	"github.com/markb/shopdash/internal/admin/repofake"
	"github.com/markb/shopdash/internal/apperr"
	"github.com/markb/shopdash/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	repo  *repofake.FakeAdminRepo
	clock *clock
	svc   *auth.Service
}

func setup(t *testing.T) *fixture {
	t.Helper()

	repo := repofake.NewFakeAdminRepo()
	c := &clock{now: time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)}
	svc, err := auth.NewService(repo, auth.Config{Secret: testSecret, Now: c.Now})
	require.NoError(t, err)

	return &fixture{repo: repo, clock: c, svc: svc}
}

func TestNewService_RequiresSecret(t *testing.T) {
	_, err := auth.NewService(repofake.NewFakeAdminRepo(), auth.Config{})
	require.ErrorIs(t, err, auth.ErrMissingSecret)
}

func TestRegisterThenLogin(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	view, err := f.svc.Register(ctx, auth.RegisterInput{Username: "alice", Email: "a@x.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, admin.PublicView{ID: 1, Username: "alice", Email: "a@x.com"}, view)

	stored, err := f.repo.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", stored.PasswordHash)
	assert.True(t, strings.HasPrefix(stored.PasswordHash, "$2a$10$"), "hash %q is not bcrypt cost 10", stored.PasswordHash)

	res, err := f.svc.Login(ctx, auth.LoginInput{Email: "a@x.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, view, res.Admin)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, f.clock.Now().Add(time.Hour), res.ExpiresAt)

	claims, err := f.svc.Authenticate(res.Token)
	require.NoError(t, err)
	assert.Equal(t, view, claims.Admin())
	assert.Equal(t, "1", claims.Subject)
	assert.Equal(t, auth.Issuer, claims.Issuer)
	assert.NotEmpty(t, claims.ID, "jti")
}

func TestRegister_MissingFields(t *testing.T) {
	tests := []struct {
		name string
		in   auth.RegisterInput
	}{
		{"no username", auth.RegisterInput{Email: "a@x.com", Password: "p"}},
		{"no email", auth.RegisterInput{Username: "alice", Password: "p"}},
		{"no password", auth.RegisterInput{Username: "alice", Email: "a@x.com"}},
		{"nothing", auth.RegisterInput{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			// Any store access would surface this error instead.
			f.repo.FailWith = errors.New("store must not be called")

			_, err := f.svc.Register(context.Background(), tt.in)
			require.Error(t, err)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
			assert.Equal(t, auth.MsgFieldsRequired, apperr.PublicMessage(err, ""))
		})
	}
}

func TestRegister_PasswordTooLong(t *testing.T) {
	f := setup(t)
	f.repo.FailWith = errors.New("store must not be called")

	_, err := f.svc.Register(context.Background(), auth.RegisterInput{
		Username: "alice",
		Email:    "a@x.com",
		Password: strings.Repeat("x", admin.MaxPasswordBytes+1),
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Equal(t, auth.MsgPasswordTooLong, apperr.PublicMessage(err, ""))
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, auth.RegisterInput{Username: "alice", Email: "a@x.com", Password: "secret123"})
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, auth.RegisterInput{Username: "mallory", Email: "a@x.com", Password: "other"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Equal(t, auth.MsgEmailInUse, apperr.PublicMessage(err, ""))
}

// racyStore misses the duplicate on lookup, as a concurrent registration
// would, and only the insert reports it.
type racyStore struct {
	admin.Store
}

func (racyStore) FindByEmail(context.Context, string) (*admin.Admin, error) {
	return nil, admin.ErrNotFound
}

func (racyStore) Create(context.Context, string, string, string) (*admin.Admin, error) {
	return nil, admin.ErrDuplicateEmail
}

func TestRegister_DuplicateDetectedByStore(t *testing.T) {
	svc, err := auth.NewService(racyStore{}, auth.Config{Secret: testSecret})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), auth.RegisterInput{Username: "a", Email: "a@x.com", Password: "p"})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestRegister_ConcurrentSameEmail(t *testing.T) {
	f := setup(t)

	const n = 4
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Register(context.Background(), auth.RegisterInput{Username: "u", Email: "same@x.com", Password: "p"})
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	}
	assert.Equal(t, 1, ok)

	admins, err := f.repo.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, admins, 1)
}

func TestRegister_StorageError(t *testing.T) {
	f := setup(t)
	f.repo.FailWith = errors.New(`relation "admins" does not exist`)

	_, err := f.svc.Register(context.Background(), auth.RegisterInput{Username: "a", Email: "a@x.com", Password: "p"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindStorage, apperr.KindOf(err))
	assert.Equal(t, auth.MsgRegisterFailed, apperr.PublicMessage(err, ""))
	assert.NotContains(t, apperr.PublicMessage(err, ""), "relation")
}

func TestLogin_MissingFields(t *testing.T) {
	f := setup(t)
	for _, in := range []auth.LoginInput{{Email: "a@x.com"}, {Password: "p"}, {}} {
		_, err := f.svc.Login(context.Background(), in)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		assert.Equal(t, auth.MsgCredentialsRequired, apperr.PublicMessage(err, ""))
	}
}

func TestLogin_WrongPasswordIndistinguishableFromUnknownEmail(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, auth.RegisterInput{Username: "alice", Email: "a@x.com", Password: "secret123"})
	require.NoError(t, err)

	_, wrongPassword := f.svc.Login(ctx, auth.LoginInput{Email: "a@x.com", Password: "wrong"})
	_, unknownEmail := f.svc.Login(ctx, auth.LoginInput{Email: "nobody@x.com", Password: "secret123"})

	require.Error(t, wrongPassword)
	require.Error(t, unknownEmail)
	assert.Equal(t, apperr.KindAuthentication, apperr.KindOf(wrongPassword))
	assert.Equal(t, apperr.KindOf(wrongPassword), apperr.KindOf(unknownEmail))
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
	assert.Equal(t, auth.MsgInvalidCredentials, apperr.PublicMessage(wrongPassword, ""))
}

func TestLogin_StorageError(t *testing.T) {
	f := setup(t)
	f.repo.FailWith = errors.New("connection refused")

	_, err := f.svc.Login(context.Background(), auth.LoginInput{Email: "a@x.com", Password: "p"})
	assert.Equal(t, apperr.KindStorage, apperr.KindOf(err))
	assert.Equal(t, auth.MsgLoginFailed, apperr.PublicMessage(err, ""))
}

func TestAuthenticate_Expiry(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, auth.RegisterInput{Username: "alice", Email: "a@x.com", Password: "secret123"})
	require.NoError(t, err)
	res, err := f.svc.Login(ctx, auth.LoginInput{Email: "a@x.com", Password: "secret123"})
	require.NoError(t, err)

	f.clock.Advance(59 * time.Minute)
	_, err = f.svc.Authenticate(res.Token)
	require.NoError(t, err, "token should still be valid before one hour")

	f.clock.Advance(time.Minute + time.Second)
	_, err = f.svc.Authenticate(res.Token)
	require.Error(t, err)
	assert.Equal(t, apperr.KindAuthentication, apperr.KindOf(err))
	assert.Equal(t, auth.MsgUnauthorized, apperr.PublicMessage(err, ""))
}

func TestAuthenticate_RejectsForgedTokens(t *testing.T) {
	f := setup(t)
	now := f.clock.Now()

	claims := &auth.Claims{
		AdminID:  1,
		Username: "alice",
		Email:    "a@x.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    auth.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}

	otherSecret, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("not-the-secret"))
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &auth.Claims{
		AdminID:          1,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: auth.Issuer},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := map[string]string{
		"empty":        "",
		"garbage":      "not.a.jwt",
		"wrong secret": otherSecret,
		"alg none":     unsigned,
		"wrong alg":    hs512,
		"no expiry":    noExpiry,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Authenticate(token)
			assert.Equal(t, apperr.KindAuthentication, apperr.KindOf(err))
		})
	}
}

func TestGuard(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, auth.RegisterInput{Username: "alice", Email: "a@x.com", Password: "secret123"})
	require.NoError(t, err)
	res, err := f.svc.Login(ctx, auth.LoginInput{Email: "a@x.com", Password: "secret123"})
	require.NoError(t, err)

	var seen *auth.Claims
	protected := f.svc.Guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + res.Token, http.StatusUnauthorized},
		{"empty bearer", "Bearer ", http.StatusUnauthorized},
		{"invalid token", "Bearer abc.def.ghi", http.StatusUnauthorized},
		{"valid token", "Bearer " + res.Token, http.StatusNoContent},
		{"lowercase scheme", "bearer " + res.Token, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodPost, "/api/products", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			protected.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusUnauthorized {
				assert.JSONEq(t, `{"message":"Unauthorized"}`, rec.Body.String())
				assert.Nil(t, seen)
				return
			}
			require.NotNil(t, seen)
			assert.Equal(t, res.Admin, seen.Admin())
		})
	}

	t.Run("expired token", func(t *testing.T) {
		f.clock.Advance(time.Hour + time.Second)
		req := httptest.NewRequest(http.MethodDelete, "/api/products/1", nil)
		req.Header.Set("Authorization", "Bearer "+res.Token)
		rec := httptest.NewRecorder()

		protected.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestResolveSecret(t *testing.T) {
	s, err := auth.ResolveSecret("configured", true)
	require.NoError(t, err)
	assert.Equal(t, "configured", s)

	_, err = auth.ResolveSecret("", true)
	assert.ErrorIs(t, err, auth.ErrMissingSecret)

	s, err = auth.ResolveSecret("", false)
	require.NoError(t, err)
	assert.Equal(t, auth.DevSecret, s)
}

func TestGenerateSecret(t *testing.T) {
	a, err := auth.GenerateSecret(32)
	require.NoError(t, err)
	b, err := auth.GenerateSecret(32)
	require.NoError(t, err)

	assert.Len(t, a, 43)
	assert.NotEqual(t, a, b)
}
