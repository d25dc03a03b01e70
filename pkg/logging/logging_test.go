package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_ContextAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := Logger(&buf, true, slog.LevelInfo)

	ctx := AppendCtx(context.Background(), slog.String("app", "dicomctl"))
	ctx = AppendCtx(ctx, slog.Int("frame", 3))
	log.InfoContext(ctx, "rendered", slog.String("mode", "cpu"))
	log.DebugContext(ctx, "dropped")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &rec))
	assert.Equal(t, "rendered", rec["msg"])
	assert.Equal(t, "dicomctl", rec["app"])
	assert.Equal(t, float64(3), rec["frame"])
	assert.Equal(t, "cpu", rec["mode"])
}

func TestLogger_WithKeepsContext(t *testing.T) {
	var buf bytes.Buffer
	log := Logger(&buf, false, slog.LevelDebug).With(slog.String("session", "abc"))

	ctx := AppendCtx(context.Background(), slog.String("app", "dicomctl"))
	log.DebugContext(ctx, "hello")
	out := buf.String()
	assert.Contains(t, out, "level=DEBUG")
	assert.Contains(t, out, "session=abc")
	assert.Contains(t, out, "app=dicomctl")

	// the parent context is untouched
	buf.Reset()
	log.DebugContext(context.Background(), "bare")
	assert.NotContains(t, buf.String(), "app=")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
		ok   bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{" Warn ", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"loud", slog.LevelInfo, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.ok {
				require.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRotatingWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "dicomctl.log")
	w := RotatingWriter(path, 1, 2)
	log := Logger(w, false, slog.LevelInfo)
	log.Info("first")
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "msg=first")
}
