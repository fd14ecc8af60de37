package dashboard_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adminfake "github.com/markb/shopdash/internal/admin/repofake"
	"github.com/markb/shopdash/internal/auth"
	"github.com/markb/shopdash/internal/catalog"
	catalogfake "github.com/markb/shopdash/internal/catalog/repofake"
	"github.com/markb/shopdash/internal/dashboard"
	"github.com/markb/shopdash/internal/metrics"
)

type testEnv struct {
	handler  http.Handler
	admins   *adminfake.FakeAdminRepo
	products *catalogfake.FakeCatalogRepo
	metrics  *metrics.Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	admins := adminfake.NewFakeAdminRepo()
	products := catalogfake.NewFakeCatalogRepo()
	authSvc, err := auth.NewService(admins, auth.Config{Secret: "test-secret"})
	require.NoError(t, err)

	m := metrics.NewTestManager()
	srv := dashboard.NewServer(dashboard.Config{
		Auth:    authSvc,
		Catalog: catalog.NewService(products),
		Metrics: m,
	})
	return &testEnv{handler: srv.Handler(), admins: admins, products: products, metrics: m}
}

// do sends a request with an optional JSON body and bearer token and
// decodes the JSON response into a generic map.
func (e *testEnv) do(t *testing.T, method, path string, body any, token string) (int, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)

	var out map[string]any
	if rr.Body.Len() > 0 && rr.Body.Bytes()[0] == '{' {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	}
	return rr.Code, out
}

// login registers alice and returns a token for her.
func (e *testEnv) login(t *testing.T) string {
	t.Helper()
	status, _ := e.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"username": "alice", "email": "a@x.com", "password": "secret123",
	}, "")
	require.Equal(t, http.StatusCreated, status)

	status, body := e.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "a@x.com", "password": "secret123",
	}, "")
	require.Equal(t, http.StatusOK, status)
	return body["token"].(string)
}

func TestRegisterLoginScenario(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"username": "alice", "email": "a@x.com", "password": "secret123",
	}, "")
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "Admin registered", body["message"])
	assert.Equal(t, map[string]any{"id": 1.0, "username": "alice", "email": "a@x.com"}, body["admin"])

	status, body = env.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "a@x.com", "password": "secret123",
	}, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Login successful", body["message"])
	assert.NotEmpty(t, body["token"])
	assert.Equal(t, map[string]any{"id": 1.0, "username": "alice", "email": "a@x.com"}, body["admin"])

	status, body = env.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "a@x.com", "password": "wrong",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, map[string]any{"message": "Invalid credentials"}, body)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.CounterLoginFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.CounterRegistrations))
}

func TestRegister_Errors(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	tests := []struct {
		name string
		body any
		want string
	}{
		{"missing password", map[string]string{"username": "bob", "email": "b@x.com"}, "All fields are required"},
		{"empty body", nil, "All fields are required"},
		{"malformed json", `{"username":`, "All fields are required"},
		{"duplicate email", map[string]string{"username": "bob", "email": "a@x.com", "password": "p"}, "Email already in use"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := env.do(t, http.MethodPost, "/api/auth/register", tt.body, "")
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, tt.want, body["message"])
		})
	}
}

func TestRegister_StorageErrorIsOpaque(t *testing.T) {
	env := newTestEnv(t)
	env.admins.FailWith = errors.New("pq: connection refused at 10.0.0.5")

	status, body := env.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"username": "alice", "email": "a@x.com", "password": "secret123",
	}, "")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, map[string]any{"message": "Error registering admin"}, body)
}

func TestLogin_Errors(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	status, body := env.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "a@x.com"}, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Email and password required", body["message"])

	_, wrongPassword := env.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "a@x.com", "password": "nope",
	}, "")
	status, unknownEmail := env.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "ghost@x.com", "password": "nope",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, wrongPassword, unknownEmail)

	env.admins.FailWith = errors.New("boom")
	status, body = env.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "a@x.com", "password": "secret123",
	}, "")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Error logging in", body["message"])
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	status, body := env.do(t, http.MethodGet, "/api/auth/me", nil, token)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]any{"id": 1.0, "username": "alice", "email": "a@x.com"}, body["admin"])

	status, body = env.do(t, http.MethodGet, "/api/auth/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Unauthorized", body["message"])

	status, _ = env.do(t, http.MethodGet, "/api/auth/me", nil, token+"x")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestGuardedRoutesRejectMissingToken(t *testing.T) {
	env := newTestEnv(t)

	routes := []struct {
		method, path string
	}{
		{http.MethodPost, "/api/products"},
		{http.MethodPut, "/api/products/1"},
		{http.MethodDelete, "/api/products/1"},
		{http.MethodPost, "/api/categories"},
		{http.MethodPut, "/api/categories/1"},
		{http.MethodDelete, "/api/categories/1"},
	}

	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			status, body := env.do(t, rt.method, rt.path, map[string]string{"name": "x"}, "")
			assert.Equal(t, http.StatusUnauthorized, status)
			assert.Equal(t, "Unauthorized", body["message"])
		})
	}

	// Nothing reached the store.
	categories, err := env.products.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Empty(t, categories)
}

func TestUnknownAPIRoute(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, http.MethodGet, "/api/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Not found", body["message"])
}
