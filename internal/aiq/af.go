package aiq

import (
	"log/slog"

	"github.com/marmistrz/ipu6-camera-hal/internal/units"
)

// afPhase is the lifecycle of a user focus trigger. The lock implies an
// active trigger scan, so "locked but not scanning" has no representation.
type afPhase int

const (
	afIdle     afPhase = iota // no trigger in flight
	afScanning                // trigger started, focus not locked
	afLocked                  // trigger started and focus force-locked
)

func (p afPhase) String() string {
	switch p {
	case afScanning:
		return "scanning"
	case afLocked:
		return "locked"
	default:
		return "idle"
	}
}

// afState is the persistent AF trigger state of a camera.
type afState struct {
	mode    AfMode
	trigger AfTrigger // trigger seen on the previous frame
	phase   afPhase
}

func initialAfState() afState {
	return afState{mode: AfModeAuto, trigger: AfTriggerIdle, phase: afIdle}
}

func (s afState) forceLock() bool         { return s.phase == afLocked }
func (s afState) duringTriggerScan() bool { return s.phase != afIdle }

// afModeChanged resets every piece of AF state for the new mode. An
// in-flight trigger is dropped.
func afModeChanged(mode AfMode) (afState, AfParams) {
	params := DefaultAfParams()
	if mode == AfModeContinuousPicture || mode == AfModeContinuousVideo {
		params.FocusMode = AfOperationAuto
	}
	return afState{mode: mode, trigger: AfTriggerIdle, phase: afIdle}, params
}

// triggerStarted handles the rising edge of a start trigger.
func (s afState) triggerStarted(params AfParams) (afState, AfParams) {
	s.phase = afScanning
	switch s.mode {
	case AfModeAuto, AfModeMacro:
		params.FocusMode = AfOperationAuto
		params.TriggerNewSearch = true
	case AfModeContinuousVideo:
		s.phase = afLocked
	case AfModeContinuousPicture:
		// The running continuous scan is left to finish; the engine's AF
		// status decides the outcome.
	}
	return s, params
}

// triggerCancelled handles the rising edge of a cancel trigger.
func (s afState) triggerCancelled(params AfParams) (afState, AfParams) {
	s.phase = afIdle
	switch s.mode {
	case AfModeAuto, AfModeMacro:
		params.FocusMode = AfOperationInfinity
	}
	return s, params
}

// resultReported folds the engine's AF status into the lock. Only a locked
// state reacts; the lock is released once the scan has settled.
func (s afState) resultReported(status AfStatus) afState {
	if s.phase != afLocked {
		return s
	}
	switch s.mode {
	case AfModeAuto, AfModeMacro, AfModeContinuousPicture:
		if !status.Searching() {
			s.phase = afScanning
		}
	}
	return s
}

type afPolicy struct {
	cameraID int
	log      *slog.Logger
}

// update runs one frame of the AF state machine.
func (p afPolicy) update(st afState, prev AfParams, req Request) (afState, AfParams) {
	params := prev
	if st.mode != req.AfMode {
		p.log.Debug("af mode changed", "camera", p.cameraID, "from", st.mode, "to", req.AfMode)
		st, params = afModeChanged(req.AfMode)
	}
	params.LensPosition = req.LensPosition
	params.LensMovementStartTimestamp = req.LensMovementStartTimestamp
	params.FrameUse = engineFrameUse(req.FrameUsage)

	params.TriggerNewSearch = false
	if st.trigger != AfTriggerStart && req.AfTrigger == AfTriggerStart {
		p.log.Debug("af trigger start", "camera", p.cameraID, "mode", st.mode)
		st, params = st.triggerStarted(params)
	} else if st.trigger != AfTriggerCancel && req.AfTrigger == AfTriggerCancel {
		p.log.Debug("af trigger cancel", "camera", p.cameraID, "mode", st.mode)
		st, params = st.triggerCancelled(params)
	}
	st.trigger = req.AfTrigger

	// Only one focus window is supported; the latest one wins.
	if n := len(req.AfRegions); n > 0 && req.AfRegions[n-1].HasArea() {
		if w, ok := units.ToEngineWindow(req.frameCoordinates(), req.AfRegions[n-1]); ok {
			params.FocusRect = w
		}
	}

	if st.mode == AfModeOff {
		params = manualFocus(params, req)
	} else {
		params.ManualFocus = ManualFocus{}
	}

	p.log.Debug("af updated", "camera", p.cameraID, "phase", st.phase,
		"focus_mode", params.FocusMode, "new_search", params.TriggerNewSearch)
	return st, params
}

// manualFocus fills the manual focus fields. The requested distance is in
// diopters; zero means focus at infinity.
func manualFocus(params AfParams, req Request) AfParams {
	params.FocusMode = AfOperationManual
	params.ManualFocus = ManualFocus{Action: ManualFocusActionNone}

	d := req.FocusDistance
	if d > req.MinFocusDistance {
		d = req.MinFocusDistance
	}
	if d < 0 {
		d = 0
	}

	// A distance too far to represent in millimeters is focused at infinity.
	mm, ok := units.ToInt32(1000 / d)
	if d == 0 || !ok {
		params.FocusMode = AfOperationInfinity
		return params
	}
	params.ManualFocus.DistanceMm = int(mm)
	params.ManualFocus.Action = ManualFocusActionSetDistance
	return params
}
