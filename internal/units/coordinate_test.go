package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowArea(t *testing.T) {
	assert.True(t, Window{Left: 0, Top: 0, Right: 10, Bottom: 10}.HasArea())
	assert.False(t, Window{Left: 10, Top: 0, Right: 10, Bottom: 10}.HasArea())
	assert.False(t, Window{Left: 0, Top: 5, Right: 10, Bottom: 2}.HasArea())
	assert.Equal(t, Coordinate{X: 15, Y: 25}, Window{Left: 10, Top: 20, Right: 20, Bottom: 30}.Center())
}

func TestToEngineCoordinate(t *testing.T) {
	frame := FrameCoordinateSystem(1920, 1080)

	c, ok := ToEngineCoordinate(frame, Coordinate{X: 960, Y: 540})
	require.True(t, ok)
	assert.Equal(t, Coordinate{X: 4096, Y: 4096}, c)

	c, ok = ToEngineCoordinate(frame, Coordinate{X: 1920, Y: 1080})
	require.True(t, ok)
	assert.Equal(t, Coordinate{X: 8192, Y: 8192}, c)
}

func TestToEngineCoordinateDegenerateFrame(t *testing.T) {
	_, ok := ToEngineCoordinate(FrameCoordinateSystem(0, 1080), Coordinate{X: 1, Y: 1})
	assert.False(t, ok)
}

func TestToEngineWindow(t *testing.T) {
	w, ok := ToEngineWindow(FrameCoordinateSystem(1000, 1000), Window{Left: 250, Top: 500, Right: 750, Bottom: 1000})
	require.True(t, ok)
	assert.Equal(t, Window{Left: 2048, Top: 4096, Right: 6144, Bottom: 8192}, w)
}
