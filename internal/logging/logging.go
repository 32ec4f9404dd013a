// internal/logging/logging.go
package logging

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// New returns the process logger writing to out. Development gets a human
// readable console writer at debug level; otherwise JSON lines at info level.
// A valid level overrides either default.
func New(out io.Writer, dev bool, level string) zerolog.Logger {
	lvl := zerolog.InfoLevel
	if dev {
		lvl = zerolog.DebugLevel
	}
	if level != "" {
		if parsed, err := zerolog.ParseLevel(level); err == nil && parsed != zerolog.NoLevel {
			lvl = parsed
		}
	}

	if dev {
		return zerolog.New(zerolog.ConsoleWriter{Out: out, FormatTimestamp: func(i any) string {
			return time.Now().Format(time.Kitchen)
		}}).Level(lvl).With().Timestamp().Logger()
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}
