package aiq

import (
	"log/slog"

	"github.com/marmistrz/ipu6-camera-hal/internal/units"
)

// AwbOverrideKind names the source that overrides the engine's AWB result.
type AwbOverrideKind int

const (
	// AwbOverrideNone leaves the engine result alone, apart from gain shift.
	AwbOverrideNone AwbOverrideKind = iota
	// AwbOverrideManualGain replaces the chroma ratios with manual gains.
	AwbOverrideManualGain
	// AwbOverrideColorTransform replaces the color matrix and gains.
	AwbOverrideColorTransform
)

func (k AwbOverrideKind) String() string {
	switch k {
	case AwbOverrideManualGain:
		return "manual_gain"
	case AwbOverrideColorTransform:
		return "color_transform"
	default:
		return "none"
	}
}

// AwbOverride is the active result override. Only the fields belonging to
// Kind carry data; the others are zero.
type AwbOverride struct {
	Kind       AwbOverrideKind `json:"kind"`
	Gains      AwbGains        `json:"gains"`
	Matrix     ColorTransform  `json:"matrix"`
	ColorGains ColorGains      `json:"color_gains"`
}

func manualGainOverride(g AwbGains) AwbOverride {
	return AwbOverride{Kind: AwbOverrideManualGain, Gains: g}
}

func colorTransformOverride(m ColorTransform, g ColorGains) AwbOverride {
	return AwbOverride{Kind: AwbOverrideColorTransform, Matrix: m, ColorGains: g}
}

// awbState is everything the AWB policy produces for one frame.
type awbState struct {
	params    AwbParams
	override  AwbOverride
	gainShift AwbGains
	ticks     int
}

type awbPolicy struct {
	cameraID int
	tuning   Tuning
	log      *slog.Logger
}

var presetAwbModes = map[AwbMode]AwbOperationMode{
	AwbModeIncandescent:    AwbOperationIncandescent,
	AwbModeFluorescent:     AwbOperationFluorescent,
	AwbModeDaylight:        AwbOperationDaylight,
	AwbModeFullOvercast:    AwbOperationFullyOvercast,
	AwbModePartlyOvercast:  AwbOperationPartlyOvercast,
	AwbModeSunset:          AwbOperationSunset,
	AwbModeVideoConference: AwbOperationVideoConference,
}

// update derives the AWB block and the result override for a request. The
// override always starts from none, so at most one source is ever active.
func (p awbPolicy) update(prev AwbParams, req Request) awbState {
	st := awbState{params: prev}

	if mode, ok := presetAwbModes[req.AwbMode]; ok {
		st.params.SceneMode = mode
	} else {
		switch req.AwbMode {
		case AwbModeManualCCTRange:
			st.params.SceneMode = AwbOperationManualCCTRange
			lo, hi := req.CCTRange.Min, req.CCTRange.Max
			if lo > hi {
				lo, hi = hi, lo
			}
			st.params.ManualCCTRange = CCTRange{Min: int(lo), Max: int(hi)}
		case AwbModeManualWhitePoint:
			st.params.SceneMode = AwbOperationManualWhite
			if c, ok := units.ToEngineCoordinate(req.frameCoordinates(), req.WhitePoint); ok {
				st.params.ManualWhiteCoordinate = c
			} else {
				p.log.Warn("white point ignored, invalid frame resolution",
					"camera", p.cameraID, "width", req.Resolution.Width, "height", req.Resolution.Height)
			}
		case AwbModeManualGain:
			st.params.SceneMode = AwbOperationAuto
			st.override = manualGainOverride(req.AwbManualGain)
		case AwbModeManualColorTransform:
			st.params.SceneMode = AwbOperationAuto
			st.override = colorTransformOverride(req.ManualColorMatrix, req.ManualColorGains)
		default:
			st.params.SceneMode = AwbOperationAuto
		}
	}
	st.gainShift = req.AwbGainShift

	conv := MapConvergence(req.AwbConvergeSpeed, req.AwbConvergeSpeedMode, p.tuning.ConvergenceTime, p.tuning.AwbTicks)
	st.params.ManualConvergenceTime = conv.Time
	st.ticks = conv.Ticks
	return st
}
