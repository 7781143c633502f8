package structured

import (
	"errors"
	"fmt"
)

// ErrParse marks a response that carried no usable JSON, failed to parse,
// violated its schema or could not be decoded.
var ErrParse = errors.New("structured response could not be parsed")

// Kind classifies a GenerationError.
type Kind int

const (
	// KindParse wraps ErrParse.
	KindParse Kind = iota + 1
	// KindConnectivity wraps llm.ErrUnavailable.
	KindConnectivity
)

func (k Kind) String() string {
	switch k {
	case KindParse:
		return "parse"
	case KindConnectivity:
		return "connectivity"
	default:
		return "unknown"
	}
}

// GenerationError is returned for every recoverable failure of a structured
// call. Callers degrade to empty results on it.
type GenerationError struct {
	Kind  Kind
	Stage string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("structured generation %s failed at %s: %v", e.Kind, e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// IsGenerationError reports whether err is, or wraps, a *GenerationError.
func IsGenerationError(err error) bool {
	var ge *GenerationError
	return errors.As(err, &ge)
}
