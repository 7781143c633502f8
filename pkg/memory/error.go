package memory

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a record id does not exist in its table.
	ErrNotFound = errors.New("record not found")

	// ErrCompressionRegression is returned when a compression level update
	// would lower the stored level.
	ErrCompressionRegression = errors.New("compression level cannot decrease")
)

// ValidationError reports a caller-supplied identifier or value outside its
// allow-list. It is a programming error and is never swallowed by the
// pipelines.
type ValidationError struct {
	Field string
	Value any
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Value)
}

// IsValidationError reports whether err wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
