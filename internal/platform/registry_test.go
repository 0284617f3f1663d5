package platform

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmistrz/ipu6-camera-hal/internal/aiq"
)

const capabilitiesYAML = `
cameras:
  - id: 0
    name: ov13b10
    exposure_num: 1
    multi_exposure_num: 2
    exposure_time_us: {min: 100, max: 33000}
    gain_db: {min: 0, max: 24}
    scenes:
      hdr:
        exposure_time_us: {min: 50, max: 16000}
    calibration:
      base_iso: 100
      tuning_modes:
        still_capture: {base_iso: 50}
  - id: 1
    name: front
`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestRegistry(t *testing.T) *Registry {
	t.Helper()
	path := writeFile(t, t.TempDir(), "caps.yaml", capabilitiesYAML)
	r, err := Open(path, WithLogger(quietLogger()))
	require.NoError(t, err)
	return r
}

func TestRanges(t *testing.T) {
	r := openTestRegistry(t)
	assert.Equal(t, []int{0, 1}, r.Cameras())

	got, ok := r.ExposureTimeRange(0, aiq.SceneModeAuto)
	require.True(t, ok)
	assert.Equal(t, aiq.Range{Min: 100, Max: 33000}, got)

	got, ok = r.ExposureTimeRange(0, aiq.SceneModeHDR)
	require.True(t, ok)
	assert.Equal(t, aiq.Range{Min: 50, Max: 16000}, got)

	got, ok = r.GainRange(0, aiq.SceneModeHDR)
	require.True(t, ok, "scene without gain override falls back to the camera range")
	assert.Equal(t, aiq.Range{Min: 0, Max: 24}, got)

	_, ok = r.GainRange(1, aiq.SceneModeAuto)
	assert.False(t, ok)
	_, ok = r.ExposureTimeRange(7, aiq.SceneModeAuto)
	assert.False(t, ok)
}

func TestExposureNum(t *testing.T) {
	r := openTestRegistry(t)
	assert.Equal(t, 1, r.ExposureNum(0, false))
	assert.Equal(t, 2, r.ExposureNum(0, true))
	assert.Equal(t, 1, r.ExposureNum(1, true))
	assert.Equal(t, 1, r.ExposureNum(42, false))
}

func TestCalibration(t *testing.T) {
	r := openTestRegistry(t)

	d, err := r.Calibration(0, aiq.TuningModeVideo)
	require.NoError(t, err)
	assert.Equal(t, 100, d.BaseISO)

	d, err = r.Calibration(0, aiq.TuningModeStillCapture)
	require.NoError(t, err)
	assert.Equal(t, 50, d.BaseISO)

	_, err = r.Calibration(1, aiq.TuningModeVideo)
	assert.True(t, errors.Is(err, aiq.ErrNoCalibration))

	_, err = r.Calibration(9, aiq.TuningModeVideo)
	assert.True(t, errors.Is(err, ErrUnknownCamera))
	assert.True(t, errors.Is(err, aiq.ErrNoCalibration))
}

func TestJSONCapabilityFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "caps.json",
		`{"cameras":[{"id":3,"gain_db":{"min":1,"max":2},"calibration":{"base_iso":200}}]}`)
	r, err := Open(path, WithLogger(quietLogger()))
	require.NoError(t, err)

	got, ok := r.GainRange(3, aiq.SceneModeAuto)
	require.True(t, ok)
	assert.Equal(t, aiq.Range{Min: 1, Max: 2}, got)

	_, err = Open(writeFile(t, t.TempDir(), "bad.json", `{"cameras":[],"bogus":1}`))
	assert.Error(t, err)
}

func TestOpenRejectsDuplicateCamera(t *testing.T) {
	path := writeFile(t, t.TempDir(), "caps.yaml", "cameras:\n  - id: 0\n  - id: 0\n")
	_, err := Open(path, WithLogger(quietLogger()))
	assert.Error(t, err)
}

func TestCameraLookup(t *testing.T) {
	r := openTestRegistry(t)
	c, err := r.Camera(0)
	require.NoError(t, err)
	assert.Equal(t, "ov13b10", c.Name)

	_, err = r.Camera(5)
	assert.True(t, errors.Is(err, ErrUnknownCamera))
}

func TestFromFileHasNoReload(t *testing.T) {
	r, err := FromFile(File{Cameras: []Camera{{ID: 2, ExposureNum: 3}}})
	require.NoError(t, err)
	assert.Equal(t, 3, r.ExposureNum(2, false))
	assert.Error(t, r.Reload())
	assert.Error(t, r.Watch(context.Background()))
}

func TestFailedReloadKeepsSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "caps.yaml", capabilitiesYAML)
	r, err := Open(path, WithLogger(quietLogger()))
	require.NoError(t, err)

	writeFile(t, dir, "caps.yaml", "cameras: [\n")
	assert.Error(t, r.Reload())
	assert.Equal(t, 2, r.ExposureNum(0, true))
}

func TestWatchPicksUpChanges(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "caps.yaml", capabilitiesYAML)
	r, err := Open(path, WithLogger(quietLogger()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Watch(ctx) }()

	// Keep rewriting until the watcher is registered and sees a write.
	require.Eventually(t, func() bool {
		writeFile(t, dir, "caps.yaml", "cameras:\n  - id: 0\n    multi_exposure_num: 3\n")
		return r.ExposureNum(0, true) == 3
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
