package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

var errMissingToken = errors.New("missing or malformed bearer token")

// Middleware provides HTTP authentication middleware. It extracts the bearer
// token, validates it against the JWKS client, and stores the claims in the
// request context for downstream handlers.
type Middleware struct {
	jwks   JWKSClientInterface
	logger *zap.Logger
}

// NewMiddleware creates a new auth middleware with the given JWKS client.
func NewMiddleware(jwks JWKSClientInterface, logger *zap.Logger) *Middleware {
	return &Middleware{
		jwks:   jwks,
		logger: logger,
	}
}

// RequireAuth validates the bearer JWT and sets claims and token in the
// context. Use this for endpoints that need authentication without a
// particular role.
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, token, err := m.validateRequest(r)
		if err != nil {
			m.unauthorized(w, "Authentication required")
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsKey, claims)
		ctx = context.WithValue(ctx, TokenKey, token)
		next(w, r.WithContext(ctx))
	}
}

// RequireRole validates the bearer JWT and additionally requires the given
// role. Admins pass every role check. Use for editorial endpoints such as
// review approval or language administration.
func (m *Middleware) RequireRole(role string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			claims, token, err := m.validateRequest(r)
			if err != nil {
				m.unauthorized(w, "Authentication required")
				return
			}

			if !claims.HasRole(role) {
				m.logger.Warn("role check failed",
					zap.String("subject", claims.Subject),
					zap.String("required_role", role),
					zap.String("path", r.URL.Path))
				m.forbidden(w, "Insufficient permissions")
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsKey, claims)
			ctx = context.WithValue(ctx, TokenKey, token)
			next(w, r.WithContext(ctx))
		}
	}
}

// validateRequest extracts and validates the bearer token from the request.
func (m *Middleware) validateRequest(r *http.Request) (*Claims, string, error) {
	token, err := extractBearerToken(r)
	if err != nil {
		return nil, "", err
	}

	claims, err := m.jwks.ValidateToken(token)
	if err != nil {
		return nil, "", err
	}

	return claims, token, nil
}

// extractBearerToken pulls the JWT out of the Authorization header.
func extractBearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errMissingToken
	}

	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", errMissingToken
	}

	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if token == "" {
		return "", errMissingToken
	}
	return token, nil
}

// unauthorized returns a 401 response with JSON error body.
func (m *Middleware) unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   "unauthorized",
		"message": message,
	})
}

// forbidden returns a 403 response with JSON error body.
func (m *Middleware) forbidden(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   "forbidden",
		"message": message,
	})
}
