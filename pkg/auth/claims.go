// Package auth provides JWT-based authentication for lingua-engine.
// It validates tokens issued by the property identity service using JWKS
// endpoints and exposes role checks for the editorial endpoints.
package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// ClaimsKey is the context key for storing JWT claims.
	ClaimsKey contextKey = "claims"
	// TokenKey is the context key for storing the raw JWT token string.
	TokenKey contextKey = "token"
)

// Role names recognized by the authorization layer.
const (
	RoleAdmin      = "admin"
	RoleReviewer   = "reviewer"
	RoleTranslator = "translator"
)

// Claims represents the JWT claims structure issued by the identity service.
// It embeds RegisteredClaims for standard JWT fields (sub, iss, exp, etc.)
// and adds the custom claims used for authorization.
type Claims struct {
	jwt.RegisteredClaims
	Email string   `json:"email,omitempty"` // User email address
	Roles []string `json:"roles,omitempty"` // Roles within the property
}

// HasRole reports whether the claims carry the given role.
// Admins implicitly hold every role.
func (c *Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role || r == RoleAdmin {
			return true
		}
	}
	return false
}

// GetClaims retrieves JWT claims from the request context.
// Returns nil and false if claims are not present.
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	return claims, ok
}

// GetToken retrieves the raw JWT token string from the request context.
// Returns empty string and false if token is not present.
func GetToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(TokenKey).(string)
	return token, ok
}
