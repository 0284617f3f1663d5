package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/marmistrz/ipu6-camera-hal/internal/aiq"
	"github.com/marmistrz/ipu6-camera-hal/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), "level %q", in)
	}
}

func TestTraditionalHandlerFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewTraditionalHandler(&buf, slog.LevelInfo))

	logger.Debug("hidden")
	logger.With("camera", 2).WithGroup("ae").Info("limits", "iso_max", 1600)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[INFO] limits [camera=2 ae.iso_max=1600]")
}

func TestNewWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriter(&buf, "debug", "json")
	LogFrameTranslated(logger, 7, aiq.Snapshot{CameraID: 1, AfPhase: "locked"}, time.Millisecond)

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "{"), out)
	assert.Contains(t, out, `"msg":"frame translated"`)
	assert.Contains(t, out, `"sequence":7`)
	assert.Contains(t, out, `"af_phase":"locked"`)
}

func TestSetupWritesLogFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	dir := t.TempDir()
	cfg := &config.Config{Logging: config.Logging{Level: "info", Format: "text", FileOutput: true, LogDir: dir}}

	logger, err := Setup(cfg)
	require.NoError(t, err)
	LogOverrideApplied(logger, 0, 3, "awb", aiq.AwbOverrideManualGain)

	data, err := os.ReadFile(filepath.Join(dir, "hal3a-current.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "engine result overridden")
	assert.Contains(t, string(data), "source=manual_gain")
}
