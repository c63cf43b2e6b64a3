package repositories

import (
	"encoding/json"
	"time"
)

// nullString returns nil if the string is empty, otherwise returns the string pointer.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nullTime returns nil for a zero time so NULL is stored in the database.
func nullTime(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	return t
}

// jsonbValue marshals a value for JSONB insertion. Returns nil for nil input
// to store NULL in the database.
func jsonbValue(v any) any {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}

// jsonUnmarshal unmarshals JSONB data from the database, tolerating NULL.
func jsonUnmarshal(data []byte, v any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	return json.Unmarshal(data, v)
}
