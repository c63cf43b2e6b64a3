package testhelpers

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// GenerateTestJWT creates a test JWT token for use when verification is
// disabled. The token has a valid structure but no signature (alg: none).
func GenerateTestJWT(sub, email string, roles ...string) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))

	claims := map[string]any{"sub": sub}
	if email != "" {
		claims["email"] = email
	}
	if len(roles) > 0 {
		claims["roles"] = roles
	}

	payload, _ := json.Marshal(claims)
	encodedPayload := base64.RawURLEncoding.EncodeToString(payload)
	return fmt.Sprintf("%s.%s.", header, encodedPayload)
}

// GenerateTestJWTWithBearer returns the token with the "Bearer " prefix for
// the Authorization header.
func GenerateTestJWTWithBearer(sub, email string, roles ...string) string {
	return "Bearer " + GenerateTestJWT(sub, email, roles...)
}
