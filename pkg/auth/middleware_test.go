package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// mockJWKSClient returns canned claims or an error.
type mockJWKSClient struct {
	claims *Claims
	err    error
}

func (m *mockJWKSClient) ValidateToken(tokenString string) (*Claims, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.claims, nil
}

func (m *mockJWKSClient) Close() {}

func okHandler(called *bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	}
}

func authedRequest() *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/api/languages", nil)
	r.Header.Set("Authorization", "Bearer some.jwt.token")
	return r
}

func TestRequireAuthRejectsMissingHeader(t *testing.T) {
	m := NewMiddleware(&mockJWKSClient{claims: &Claims{}}, zap.NewNop())

	var called bool
	w := httptest.NewRecorder()
	m.RequireAuth(okHandler(&called))(w, httptest.NewRequest(http.MethodGet, "/api/languages", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, called)
}

func TestRequireAuthRejectsInvalidToken(t *testing.T) {
	m := NewMiddleware(&mockJWKSClient{err: errors.New("expired")}, zap.NewNop())

	var called bool
	w := httptest.NewRecorder()
	m.RequireAuth(okHandler(&called))(w, authedRequest())

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, called)
}

func TestRequireAuthSetsClaimsInContext(t *testing.T) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
		Email:            "editor@example.com",
	}
	m := NewMiddleware(&mockJWKSClient{claims: claims}, zap.NewNop())

	w := httptest.NewRecorder()
	m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		got, ok := GetClaims(r.Context())
		assert.True(t, ok)
		assert.Equal(t, "user-1", got.Subject)
		assert.Equal(t, "editor@example.com", ReviewerFromContext(r.Context()))
		w.WriteHeader(http.StatusOK)
	})(w, authedRequest())

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRoleForbidsMissingRole(t *testing.T) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
		Roles:            []string{RoleTranslator},
	}
	m := NewMiddleware(&mockJWKSClient{claims: claims}, zap.NewNop())

	var called bool
	w := httptest.NewRecorder()
	m.RequireRole(RoleReviewer)(okHandler(&called))(w, authedRequest())

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, called)
}

func TestRequireRoleAdminPassesAnyCheck(t *testing.T) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "admin-1"},
		Roles:            []string{RoleAdmin},
	}
	m := NewMiddleware(&mockJWKSClient{claims: claims}, zap.NewNop())

	var called bool
	w := httptest.NewRecorder()
	m.RequireRole(RoleReviewer)(okHandler(&called))(w, authedRequest())

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, called)
}

func TestHasRole(t *testing.T) {
	tests := []struct {
		name  string
		roles []string
		check string
		want  bool
	}{
		{"exact match", []string{RoleReviewer}, RoleReviewer, true},
		{"admin superset", []string{RoleAdmin}, RoleTranslator, true},
		{"missing", []string{RoleTranslator}, RoleReviewer, false},
		{"empty", nil, RoleReviewer, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Claims{Roles: tt.roles}
			assert.Equal(t, tt.want, c.HasRole(tt.check))
		})
	}
}
