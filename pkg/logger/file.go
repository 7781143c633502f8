package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// File opens path for appending and returns a JSON logger writing to it.
// The returned closer closes the file.
func File(path string, opts ...Option) (*slog.Logger, io.Closer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	opts = append(opts, WithWriter(f), WithJSON(true))
	return New(opts...), f, nil
}
