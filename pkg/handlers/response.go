package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hotelier-tech/lingua-engine/pkg/apperrors"
)

// ApiResponse wraps data in the format expected by the frontend.
type ApiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// WriteError maps a service error onto the HTTP surface. Error kinds carry
// their own status codes; anything unclassified is an internal error.
func WriteError(w http.ResponseWriter, err error) {
	kind := apperrors.KindInternal
	message := "internal server error"

	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		kind = appErr.Kind
		message = appErr.Message
	}

	_ = ErrorResponse(w, statusForKind(kind), string(kind), message)
}

func statusForKind(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindValidation:
		return http.StatusBadRequest
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindConflict:
		return http.StatusConflict
	case apperrors.KindWorkflowState:
		return http.StatusUnprocessableEntity
	case apperrors.KindProviderUnavailable:
		return http.StatusBadGateway
	case apperrors.KindTimeout:
		return http.StatusGatewayTimeout
	case apperrors.KindPermission:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
