package fsutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmistrz/ipu6-camera-hal/internal/aiq"
)

func TestListCaptureLogs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.jsonl", "a.NDJSON", "notes.txt", "sub/c.jsonl"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, nil, 0o644))
	}

	files, err := ListCaptureLogs(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.NDJSON"),
		filepath.Join(dir, "b.jsonl"),
		filepath.Join(dir, "sub/c.jsonl"),
	}, files)

	single := filepath.Join(dir, "notes.txt")
	files, err = ListCaptureLogs(single)
	require.NoError(t, err)
	assert.Equal(t, []string{single}, files)

	_, err = ListCaptureLogs(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestDecodeFrames(t *testing.T) {
	in := strings.Join([]string{
		`# camera 0 warmup`,
		`{"camera_id":0,"request":{"af_mode":"continuous_video","af_trigger":"start"}}`,
		``,
		`{"camera_id":1,"sequence":4,"results":{"af":{"status":3}}}`,
	}, "\n")

	frames, err := DecodeFrames(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, frames, 2)

	assert.Equal(t, aiq.AfModeContinuousVideo, frames[0].Request.AfMode)
	assert.Equal(t, aiq.AfTriggerStart, frames[0].Request.AfTrigger)
	assert.Equal(t, aiq.DefaultRequest().Resolution, frames[0].Request.Resolution)

	assert.Equal(t, int64(4), frames[1].Sequence)
	require.NotNil(t, frames[1].Results)
	assert.Equal(t, aiq.AfStatusSuccess, frames[1].Results.Af.Status)
	assert.Equal(t, aiq.DefaultRequest(), frames[1].Request)
}

func TestDecodeFramesReportsLine(t *testing.T) {
	_, err := DecodeFrames(strings.NewReader("{\"camera_id\":0}\n{oops}\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestReadFrames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cap.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"camera_id":5}`+"\n"), 0o644))

	frames, err := ReadFrames(path)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, 5, frames[0].CameraID)
}

func TestFirstExisting(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, dir, FirstExisting("", filepath.Join(dir, "nope"), dir))
	assert.Empty(t, FirstExisting(filepath.Join(dir, "nope")))
}
