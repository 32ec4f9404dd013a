package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		name  string
		dev   bool
		level string
		want  zerolog.Level
	}{
		{"production default", false, "", zerolog.InfoLevel},
		{"development default", true, "", zerolog.DebugLevel},
		{"explicit level", false, "warn", zerolog.WarnLevel},
		{"invalid level keeps default", false, "loud", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New(&bytes.Buffer{}, tt.dev, tt.level)
			assert.Equal(t, tt.want, logger.GetLevel())
		})
	}
}

func TestNewWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, false, "")
	logger.Info().Str("page", "home").Msg("rendered")

	assert.Contains(t, buf.String(), `"page":"home"`)
	assert.Contains(t, buf.String(), `"message":"rendered"`)
}
