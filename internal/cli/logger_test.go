package cli

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	ctx := context.Background()

	t.Run("level_from_config", func(t *testing.T) {
		l, err := NewLogger(&bytes.Buffer{}, LogConfig{Level: "warn"}, 0, false)
		require.NoError(t, err)
		assert.False(t, l.Enabled(ctx, slog.LevelInfo))
		assert.True(t, l.Enabled(ctx, slog.LevelWarn))
	})

	t.Run("verbose_lowers_level", func(t *testing.T) {
		l, err := NewLogger(&bytes.Buffer{}, LogConfig{Level: "info"}, 1, false)
		require.NoError(t, err)
		assert.True(t, l.Enabled(ctx, slog.LevelDebug))
	})

	t.Run("quiet_wins", func(t *testing.T) {
		l, err := NewLogger(&bytes.Buffer{}, LogConfig{Level: "debug"}, 2, true)
		require.NoError(t, err)
		assert.False(t, l.Enabled(ctx, slog.LevelWarn))
		assert.True(t, l.Enabled(ctx, slog.LevelError))
	})

	t.Run("json_format", func(t *testing.T) {
		var buf bytes.Buffer
		l, err := NewLogger(&buf, LogConfig{Format: "json"}, 0, false)
		require.NoError(t, err)
		l.Info("hello", slog.String("k", "v"))
		assert.Contains(t, buf.String(), `"msg":"hello"`)
		assert.Contains(t, buf.String(), `"k":"v"`)
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := NewLogger(&bytes.Buffer{}, LogConfig{Level: "loud"}, 0, false)
		assert.Error(t, err)
		_, err = NewLogger(&bytes.Buffer{}, LogConfig{Format: "xml"}, 0, false)
		assert.Error(t, err)
	})
}
