package aiq

import (
	"math"
	"testing"

	"github.com/marmistrz/ipu6-camera-hal/internal/units"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func afRequest(mode AfMode, trigger AfTrigger) Request {
	req := DefaultRequest()
	req.AfMode = mode
	req.AfTrigger = trigger
	return req
}

func TestAfInitialState(t *testing.T) {
	tr := newTestTranslator(t, nil)
	assert.Equal(t, AfModeAuto, tr.AfMode())
	assert.False(t, tr.ForceLock())
	assert.False(t, tr.DuringTriggerScan())
	assert.Equal(t, AfOperationInfinity, tr.AfParams().FocusMode)
}

func TestAfModeChangeDropsInFlightTrigger(t *testing.T) {
	tr := newTestTranslator(t, nil)
	tr.UpdateParameter(afRequest(AfModeContinuousVideo, AfTriggerStart))
	require.True(t, tr.ForceLock())

	tr.UpdateParameter(afRequest(AfModeContinuousPicture, AfTriggerIdle))
	assert.False(t, tr.ForceLock())
	assert.False(t, tr.DuringTriggerScan())
	assert.Equal(t, AfOperationAuto, tr.AfParams().FocusMode)
	assert.False(t, tr.AfParams().TriggerNewSearch)

	tr.UpdateParameter(afRequest(AfModeMacro, AfTriggerIdle))
	assert.Equal(t, AfOperationInfinity, tr.AfParams().FocusMode)
}

func TestAfContinuousVideoStartLocksImmediately(t *testing.T) {
	tr := newTestTranslator(t, nil)
	tr.UpdateParameter(afRequest(AfModeContinuousVideo, AfTriggerIdle))
	tr.UpdateParameter(afRequest(AfModeContinuousVideo, AfTriggerStart))

	assert.True(t, tr.ForceLock())
	assert.True(t, tr.DuringTriggerScan())
	assert.False(t, tr.AfParams().TriggerNewSearch)
}

func TestAfAutoStartRequestsSearchWithoutLock(t *testing.T) {
	for _, mode := range []AfMode{AfModeAuto, AfModeMacro} {
		t.Run(string(mode), func(t *testing.T) {
			tr := newTestTranslator(t, nil)
			tr.UpdateParameter(afRequest(mode, AfTriggerIdle))
			tr.UpdateParameter(afRequest(mode, AfTriggerStart))

			af := tr.AfParams()
			assert.True(t, af.TriggerNewSearch)
			assert.Equal(t, AfOperationAuto, af.FocusMode)
			assert.False(t, tr.ForceLock())
			assert.True(t, tr.DuringTriggerScan())

			// Holding the trigger is not a new edge.
			tr.UpdateParameter(afRequest(mode, AfTriggerStart))
			assert.False(t, tr.AfParams().TriggerNewSearch)
			assert.Equal(t, AfOperationAuto, tr.AfParams().FocusMode)
		})
	}
}

func TestAfContinuousPictureStartLeavesScanRunning(t *testing.T) {
	tr := newTestTranslator(t, nil)
	tr.UpdateParameter(afRequest(AfModeContinuousPicture, AfTriggerIdle))
	before := tr.AfParams()

	tr.UpdateParameter(afRequest(AfModeContinuousPicture, AfTriggerStart))
	after := tr.AfParams()
	assert.Equal(t, before.FocusMode, after.FocusMode)
	assert.False(t, after.TriggerNewSearch)
	assert.False(t, tr.ForceLock())
	assert.True(t, tr.DuringTriggerScan())
}

func TestAfStartThenCancel(t *testing.T) {
	tr := newTestTranslator(t, nil)
	tr.UpdateParameter(afRequest(AfModeAuto, AfTriggerIdle))

	tr.UpdateParameter(afRequest(AfModeAuto, AfTriggerStart))
	assert.True(t, tr.AfParams().TriggerNewSearch)
	assert.True(t, tr.DuringTriggerScan())

	tr.UpdateParameter(afRequest(AfModeAuto, AfTriggerCancel))
	assert.Equal(t, AfOperationInfinity, tr.AfParams().FocusMode)
	assert.False(t, tr.AfParams().TriggerNewSearch)
	assert.False(t, tr.DuringTriggerScan())
	assert.False(t, tr.ForceLock())
}

func TestAfCancelLeavesContinuousModeAlone(t *testing.T) {
	tr := newTestTranslator(t, nil)
	tr.UpdateParameter(afRequest(AfModeContinuousVideo, AfTriggerStart))
	require.True(t, tr.ForceLock())

	tr.UpdateParameter(afRequest(AfModeContinuousVideo, AfTriggerCancel))
	assert.False(t, tr.ForceLock())
	assert.False(t, tr.DuringTriggerScan())
	assert.Equal(t, AfOperationAuto, tr.AfParams().FocusMode)
}

func TestFillAfTriggerResultIsNoopWithoutLock(t *testing.T) {
	tr := newTestTranslator(t, nil)
	tr.UpdateParameter(afRequest(AfModeAuto, AfTriggerStart))
	before := tr.Snapshot()

	tr.FillAfTriggerResult(&AfResults{Status: AfStatusSuccess})
	tr.FillAfTriggerResult(nil)
	assert.Equal(t, before, tr.Snapshot())
}

func TestAfResultReleasesLockOnceSettled(t *testing.T) {
	for _, mode := range []AfMode{AfModeAuto, AfModeMacro, AfModeContinuousPicture} {
		t.Run(string(mode), func(t *testing.T) {
			st := afState{mode: mode, trigger: AfTriggerStart, phase: afLocked}

			for _, status := range []AfStatus{AfStatusLocalSearch, AfStatusExtendedSearch} {
				assert.Equal(t, afLocked, st.resultReported(status).phase, "status %d", status)
			}
			for _, status := range []AfStatus{AfStatusIdle, AfStatusSuccess, AfStatusFail, AfStatusDepthSearch} {
				next := st.resultReported(status)
				assert.False(t, next.forceLock(), "status %d", status)
				assert.True(t, next.duringTriggerScan(), "status %d", status)
			}
		})
	}
}

func TestAfResultIgnoredInContinuousVideo(t *testing.T) {
	tr := newTestTranslator(t, nil)
	tr.UpdateParameter(afRequest(AfModeContinuousVideo, AfTriggerStart))
	tr.FillAfTriggerResult(&AfResults{Status: AfStatusSuccess})
	assert.True(t, tr.ForceLock())
}

func TestAfManualFocus(t *testing.T) {
	tr := newTestTranslator(t, nil)
	req := afRequest(AfModeOff, AfTriggerIdle)
	req.MinFocusDistance = 10

	for _, d := range []float64{0.1, 0.5, 1, 2.5, 3, 7, 10} {
		req.FocusDistance = d
		tr.UpdateParameter(req)

		af := tr.AfParams()
		require.Equal(t, AfOperationManual, af.FocusMode)
		require.Equal(t, ManualFocusActionSetDistance, af.ManualFocus.Action)
		recovered := 1000 / float64(af.ManualFocus.DistanceMm)
		assert.InDelta(t, d, recovered, d*d/500+1e-9, "d=%v", d)
	}
}

func TestAfManualFocusClamping(t *testing.T) {
	tr := newTestTranslator(t, nil)
	req := afRequest(AfModeOff, AfTriggerIdle)
	req.MinFocusDistance = 5

	req.FocusDistance = 20
	tr.UpdateParameter(req)
	assert.Equal(t, 200, tr.AfParams().ManualFocus.DistanceMm)

	req.FocusDistance = -3
	tr.UpdateParameter(req)
	af := tr.AfParams()
	assert.Equal(t, AfOperationInfinity, af.FocusMode)
	assert.Equal(t, ManualFocusActionNone, af.ManualFocus.Action)
	assert.Zero(t, af.ManualFocus.DistanceMm)
}

func TestAfZeroDistanceMeansInfinity(t *testing.T) {
	tr := newTestTranslator(t, nil)
	req := afRequest(AfModeOff, AfTriggerIdle)
	req.MinFocusDistance = 10
	tr.UpdateParameter(req)

	af := tr.AfParams()
	assert.Equal(t, AfOperationInfinity, af.FocusMode)
	assert.Equal(t, ManualFocusActionNone, af.ManualFocus.Action)
}

func TestAfUnrepresentableDistanceMeansInfinity(t *testing.T) {
	tests := []struct {
		name     string
		distance float64
		wantMode AfOperationMode
		wantMm   int
	}{
		{"tiny", 1e-20, AfOperationInfinity, 0},
		{"smallest positive", math.SmallestNonzeroFloat64, AfOperationInfinity, 0},
		{"far but representable", 0.0078125, AfOperationManual, 128000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTestTranslator(t, nil)
			req := afRequest(AfModeOff, AfTriggerIdle)
			req.MinFocusDistance = 10
			req.FocusDistance = tt.distance
			tr.UpdateParameter(req)

			af := tr.AfParams()
			assert.Equal(t, tt.wantMode, af.FocusMode)
			assert.Equal(t, tt.wantMm, af.ManualFocus.DistanceMm)
			assert.GreaterOrEqual(t, af.ManualFocus.DistanceMm, 0)
		})
	}
}

func TestAfManualParamsClearedOutsideOffMode(t *testing.T) {
	tr := newTestTranslator(t, nil)
	req := afRequest(AfModeOff, AfTriggerIdle)
	req.MinFocusDistance = 10
	req.FocusDistance = 2
	tr.UpdateParameter(req)
	require.NotZero(t, tr.AfParams().ManualFocus)

	tr.UpdateParameter(afRequest(AfModeAuto, AfTriggerIdle))
	assert.Zero(t, tr.AfParams().ManualFocus)
}

func TestAfRegionAndLens(t *testing.T) {
	tr := newTestTranslator(t, nil)
	req := afRequest(AfModeAuto, AfTriggerIdle)
	req.Resolution = Resolution{Width: 1000, Height: 1000}
	req.LensPosition = 321
	req.LensMovementStartTimestamp = 99
	req.AfRegions = []units.Window{{Left: 250, Top: 500, Right: 750, Bottom: 1000}}
	tr.UpdateParameter(req)

	af := tr.AfParams()
	want := units.Window{Left: 2048, Top: 4096, Right: 6144, Bottom: 8192}
	assert.Equal(t, want, af.FocusRect)
	assert.Equal(t, 321, af.LensPosition)
	assert.Equal(t, uint64(99), af.LensMovementStartTimestamp)

	req.AfRegions = []units.Window{{Left: 10, Top: 10, Right: 5, Bottom: 20}}
	tr.UpdateParameter(req)
	assert.Equal(t, want, tr.AfParams().FocusRect, "an empty region keeps the previous rectangle")

	tr.UpdateParameter(afRequest(AfModeMacro, AfTriggerIdle))
	assert.Zero(t, tr.AfParams().FocusRect, "a mode change resets the rectangle")
}
