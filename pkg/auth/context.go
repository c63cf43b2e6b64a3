package auth

import (
	"context"
	"fmt"
)

// GetUserIDFromContext extracts the user ID from JWT claims in the context.
// Returns empty string if not authenticated or claims are missing.
// Use this when you only need the user ID and can handle empty string gracefully.
func GetUserIDFromContext(ctx context.Context) string {
	claims, ok := GetClaims(ctx)
	if !ok || claims == nil {
		return ""
	}
	return claims.Subject
}

// RequireUserIDFromContext extracts the user ID from context and returns an
// error if not found. Use this when user ID is required for the operation.
func RequireUserIDFromContext(ctx context.Context) (string, error) {
	userID := GetUserIDFromContext(ctx)
	if userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// ReviewerFromContext resolves the reviewer identity recorded on review
// actions. Prefers the email claim and falls back to the subject.
func ReviewerFromContext(ctx context.Context) string {
	claims, ok := GetClaims(ctx)
	if !ok || claims == nil {
		return ""
	}
	if claims.Email != "" {
		return claims.Email
	}
	return claims.Subject
}
