// Package logging configures the zerolog logger shared across mqttui.
//
// The terminal belongs to the TUI, so log events go to a file. Until
// Init is called with a path, everything is discarded.
package logging

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the process-wide logger.
var Logger = zerolog.Nop()

// Init directs Logger at the given file, appending JSON events. An
// empty path leaves logging disabled. The returned func closes the log
// file.
func Init(path string) (func() error, error) {
	if path == "" {
		return func() error { return nil }, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	Logger = zerolog.New(f).With().Timestamp().Logger()
	return f.Close, nil
}
