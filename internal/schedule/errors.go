package schedule

import (
	"errors"
	"fmt"
)

// SchemaViolation reports a canonical-model invariant broken by carrier data.
type SchemaViolation struct {
	Field  string
	Value  any
	Reason string
}

func (e *SchemaViolation) Error() string {
	return fmt.Sprintf("schema violation on %s (%v): %s", e.Field, e.Value, e.Reason)
}

func violation(field string, value any, reason string) error {
	return &SchemaViolation{Field: field, Value: value, Reason: reason}
}

// IsSchemaViolation reports whether err wraps a SchemaViolation.
func IsSchemaViolation(err error) bool {
	var sv *SchemaViolation
	return errors.As(err, &sv)
}
