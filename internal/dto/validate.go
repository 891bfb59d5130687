// Package dto holds the JSON payloads exchanged with the remote API and the
// conversions between them and the domain types.
package dto

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks the `validate` tags of a payload or request struct.
func Validate(v interface{}) error {
	return validate.Struct(v)
}

func parseTimestamp(field, value string) (time.Time, error) {
	// RFC 3339 parsing also accepts the optional fractional seconds the API sends.
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("field %s: %w", field, err)
	}
	return t, nil
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
