package models

import (
	"errors"
	"fmt"

	"grocery-tracker/internal/week"
)

// ErrInvalidRecord marks a record that breaks a field-level invariant.
var ErrInvalidRecord = errors.New("invalid record")

func validateWeekID(s string) error {
	if _, err := week.Parse(s); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	return nil
}
