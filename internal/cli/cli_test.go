package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmistrz/ipu6-camera-hal/internal/config"
	"github.com/marmistrz/ipu6-camera-hal/internal/storage"
)

const captureLog = `{"camera_id":0,"results":{"ae":{"analog_gain":[2.0]}}}
{"camera_id":0,"request":{"af_mode":"continuous_video","af_trigger":"start"},"results":{"ae":{"analog_gain":[4.0]}}}
{"camera_id":1,"request":{"awb_mode":"manual_gain","awb_manual_gain":{"r":10,"g":10,"b":10}}}
`

func newTestRoot(t *testing.T) (*config.Config, *slog.Logger, *storage.Store) {
	t.Helper()
	cfg, err := config.LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)

	store, err := storage.New(filepath.Join(t.TempDir(), "hal3a.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), store
}

func run(t *testing.T, cfg *config.Config, log *slog.Logger, store *storage.Store, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd(cfg, log, store)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeCapture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "run.jsonl"), []byte(captureLog), 0o644))
	return dir
}

func summaryRow(t *testing.T, out, camera string) []string {
	t.Helper()
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) > 0 && fields[0] == camera {
			return fields
		}
	}
	t.Fatalf("no summary row for camera %s in:\n%s", camera, out)
	return nil
}

func TestReplaySummary(t *testing.T) {
	cfg, log, store := newTestRoot(t)
	dir := writeCapture(t)

	out, err := run(t, cfg, log, store, "replay", dir)
	require.NoError(t, err)

	// CAMERA FRAMES LOCKED OVERRIDES FAILED AE_TICKS GAIN_MEAN GAIN_STDDEV
	assert.Equal(t, []string{"0", "2", "1", "0", "0", "1.0", "3.000", "1.414"}, summaryRow(t, out, "0"))
	assert.Equal(t, []string{"1", "1", "0", "1", "0", "1.0", "-", "-"}, summaryRow(t, out, "1"))

	sessions, err := store.RecentSessions(5)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, 3, sessions[0].FrameCount)
	assert.Contains(t, out, "session "+sessions[0].ID)
}

func TestReplayCameraFilter(t *testing.T) {
	cfg, log, store := newTestRoot(t)
	out, err := run(t, cfg, log, store, "replay", writeCapture(t), "--camera", "1")
	require.NoError(t, err)
	assert.NotContains(t, out, "\n0 ")
	summaryRow(t, out, "1")
}

func TestReplayWithCapabilities(t *testing.T) {
	cfg, log, store := newTestRoot(t)
	dir := writeCapture(t)
	caps := filepath.Join(t.TempDir(), "caps.yaml")
	require.NoError(t, os.WriteFile(caps, []byte("cameras:\n  - id: 0\n    gain_db: {min: 0, max: 24}\n"), 0o644))

	_, err := run(t, cfg, log, store, "replay", dir, "--capabilities", caps)
	require.NoError(t, err)

	_, err = run(t, cfg, log, store, "replay", dir, "--capabilities", filepath.Join(dir, "absent.yaml"))
	assert.Error(t, err)
}

func TestReplayErrors(t *testing.T) {
	cfg, log, store := newTestRoot(t)

	_, err := run(t, cfg, log, store, "replay", filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)

	_, err = run(t, cfg, log, store, "replay", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no capture logs")

	bad := filepath.Join(t.TempDir(), "bad.jsonl")
	require.NoError(t, os.WriteFile(bad, []byte("{\n"), 0o644))
	_, err = run(t, cfg, log, store, "replay", bad)
	assert.Error(t, err)

	_, err = run(t, cfg, log, store, "replay")
	assert.Error(t, err)
}

func TestSessionsCommand(t *testing.T) {
	cfg, log, store := newTestRoot(t)
	_, err := run(t, cfg, log, store, "replay", writeCapture(t))
	require.NoError(t, err)

	out, err := run(t, cfg, log, store, "sessions")
	require.NoError(t, err)
	assert.Contains(t, out, "ID")
	sessions, err := store.RecentSessions(1)
	require.NoError(t, err)
	assert.Contains(t, out, sessions[0].ID)

	out, err = run(t, cfg, log, store, "sessions", "--frames", sessions[0].ID)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 3)
}

func TestSessionsWithoutStore(t *testing.T) {
	cfg, log, _ := newTestRoot(t)
	_, err := run(t, cfg, log, nil, "sessions")
	assert.ErrorIs(t, err, storage.ErrNotInitialized)
}

func TestConfigCommands(t *testing.T) {
	cfg, log, store := newTestRoot(t)

	out, err := run(t, cfg, log, store, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, `"queue_depth": 64`)
	assert.Contains(t, out, `"awb_ticks"`)

	out, err = run(t, cfg, log, store, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "configuration ok")

	cfg.Pipeline.QueueDepth = 0
	_, err = run(t, cfg, log, store, "config", "validate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue_depth")

	out, err = run(t, cfg, log, store, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, `"queue_depth": 0`)
}

func TestInvalidConfigRejectedBeforeRunning(t *testing.T) {
	cfg, log, store := newTestRoot(t)
	cfg.Pipeline.QueueDepth = 0

	_, err := run(t, cfg, log, store, "replay", writeCapture(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")

	sessions, err := store.RecentSessions(5)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestVersion(t *testing.T) {
	cfg, log, store := newTestRoot(t)
	out, err := run(t, cfg, log, store, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "hal3a "+Version)
}
