package aiq

import "github.com/marmistrz/ipu6-camera-hal/internal/units"

// MaxExposures is the number of per-exposure slots in the AE block.
const MaxExposures = 3

// Sentinels understood by the engine.
const (
	// Unset marks a manual slot or limit the engine should decide itself.
	Unset = -1
	// EngineDecides is the convergence time that lets the engine pick.
	EngineDecides = -1.0
	// MaxFocusDistanceMm is the manual focus distance reported when no manual
	// distance has been requested.
	MaxFocusDistanceMm = 10000
)

// EngineFrameUse is the engine's notion of frame usage.
type EngineFrameUse int

const (
	EngineFrameUsePreview EngineFrameUse = iota
	EngineFrameUseStill
	EngineFrameUseContinuous
	EngineFrameUseVideo
)

// FlickerReduction is the engine's anti-flicker mode.
type FlickerReduction int

const (
	FlickerReductionOff FlickerReduction = iota
	FlickerReduction50Hz
	FlickerReduction60Hz
	FlickerReductionAuto
)

// ExposureDistribution is the engine's manual-exposure priority.
type ExposureDistribution int

const (
	ExposureDistributionAuto ExposureDistribution = iota
	ExposureDistributionShutter
	ExposureDistributionISO
	ExposureDistributionAperture
)

// AfOperationMode is the engine's focus operation.
type AfOperationMode int

const (
	AfOperationAuto AfOperationMode = iota
	AfOperationInfinity
	AfOperationManual
)

func (m AfOperationMode) String() string {
	switch m {
	case AfOperationAuto:
		return "auto"
	case AfOperationInfinity:
		return "infinity"
	case AfOperationManual:
		return "manual"
	default:
		return "unknown"
	}
}

// ManualFocusAction tells the engine what to do with the manual focus fields.
type ManualFocusAction int

const (
	ManualFocusActionNone ManualFocusAction = iota
	ManualFocusActionSetDistance
	ManualFocusActionSetLensPosition
)

// AwbOperationMode is the engine's white-balance scene mode.
type AwbOperationMode int

const (
	AwbOperationAuto AwbOperationMode = iota
	AwbOperationManualCCTRange
	AwbOperationManualWhite
	AwbOperationDaylight
	AwbOperationPartlyOvercast
	AwbOperationFullyOvercast
	AwbOperationFluorescent
	AwbOperationIncandescent
	AwbOperationSunset
	AwbOperationVideoConference
)

// AfStatus is the scan status the engine reports with its AF results.
type AfStatus int

const (
	AfStatusIdle AfStatus = iota
	AfStatusLocalSearch
	AfStatusExtendedSearch
	AfStatusSuccess
	AfStatusFail
	AfStatusDepthSearch
)

// Searching reports whether the engine is still scanning.
func (s AfStatus) Searching() bool {
	return s == AfStatusLocalSearch || s == AfStatusExtendedSearch
}

// SensorDescriptor carries the fixed timing of the current sensor mode.
type SensorDescriptor struct {
	PixelClockFreqMHz              float64 `json:"pixel_clock_freq_mhz"`
	PixelPeriodsPerLine            uint32  `json:"pixel_periods_per_line"`
	LinePeriodsPerField            uint32  `json:"line_periods_per_field"`
	LinePeriodsVerticalBlanking    uint32  `json:"line_periods_vertical_blanking"`
	FineIntegrationTimeMin         uint32  `json:"fine_integration_time_min"`
	FineIntegrationTimeMaxMargin   uint32  `json:"fine_integration_time_max_margin"`
	CoarseIntegrationTimeMin       uint32  `json:"coarse_integration_time_min"`
	CoarseIntegrationTimeMaxMargin uint32  `json:"coarse_integration_time_max_margin"`
}

// ManualLimits bound what the engine may choose. Unset fields are -1.
type ManualLimits struct {
	ExposureTimeMinUs int32 `json:"exposure_time_min_us"`
	ExposureTimeMaxUs int32 `json:"exposure_time_max_us"`
	FrameTimeMinUs    int32 `json:"frame_time_min_us"`
	FrameTimeMaxUs    int32 `json:"frame_time_max_us"`
	ISOMin            int32 `json:"iso_min"`
	ISOMax            int32 `json:"iso_max"`
}

func unsetLimits() ManualLimits {
	return ManualLimits{
		ExposureTimeMinUs: Unset,
		ExposureTimeMaxUs: Unset,
		FrameTimeMinUs:    Unset,
		FrameTimeMaxUs:    Unset,
		ISOMin:            Unset,
		ISOMax:            Unset,
	}
}

// AeParams is the AE input block of the engine.
type AeParams struct {
	FrameUse              EngineFrameUse        `json:"frame_use"`
	NumExposures          int                   `json:"num_exposures"`
	FlickerReduction      FlickerReduction      `json:"flicker_reduction"`
	EvShift               float64               `json:"ev_shift"`
	ManualExposureTimeUs  [MaxExposures]int64   `json:"manual_exposure_time_us"`
	ManualAnalogGain      [MaxExposures]float64 `json:"manual_analog_gain"`
	ManualISO             [MaxExposures]int32   `json:"manual_iso"`
	ManualLimits          ManualLimits          `json:"manual_limits"`
	ExposureDistribution  ExposureDistribution  `json:"exposure_distribution"`
	ExposureCoordinate    units.Coordinate      `json:"exposure_coordinate"`
	ManualConvergenceTime float64               `json:"manual_convergence_time"`
	SensorDescriptor      SensorDescriptor      `json:"sensor_descriptor"`
}

// DefaultAeParams returns the AE block a freshly opened camera starts with.
func DefaultAeParams() AeParams {
	return AeParams{
		FrameUse:              EngineFrameUseVideo,
		NumExposures:          1,
		FlickerReduction:      FlickerReductionAuto,
		ManualLimits:          unsetLimits(),
		ExposureDistribution:  ExposureDistributionAuto,
		ManualConvergenceTime: EngineDecides,
	}
}

// ManualFocus carries the manual focus request to the engine.
type ManualFocus struct {
	Action       ManualFocusAction `json:"action"`
	DistanceMm   int               `json:"distance_mm"`
	LensPosition int               `json:"lens_position"`
}

// AfParams is the AF input block of the engine.
type AfParams struct {
	FrameUse                   EngineFrameUse  `json:"frame_use"`
	LensPosition               int             `json:"lens_position"`
	LensMovementStartTimestamp uint64          `json:"lens_movement_start_timestamp"`
	FocusMode                  AfOperationMode `json:"focus_mode"`
	FocusRect                  units.Window    `json:"focus_rect"`
	ManualFocus                ManualFocus     `json:"manual_focus"`
	TriggerNewSearch           bool            `json:"trigger_new_search"`
}

// DefaultAfParams returns the AF block in its off state.
func DefaultAfParams() AfParams {
	return AfParams{
		FrameUse:  EngineFrameUseVideo,
		FocusMode: AfOperationInfinity,
		ManualFocus: ManualFocus{
			Action:     ManualFocusActionNone,
			DistanceMm: MaxFocusDistanceMm,
		},
	}
}

// CCTRange is a correlated color temperature interval in Kelvin.
type CCTRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// AwbParams is the AWB input block of the engine.
type AwbParams struct {
	SceneMode             AwbOperationMode `json:"scene_mode"`
	ManualCCTRange        CCTRange         `json:"manual_cct_range"`
	ManualWhiteCoordinate units.Coordinate `json:"manual_white_coordinate"`
	ManualConvergenceTime float64          `json:"manual_convergence_time"`
}

// DefaultAwbParams returns the AWB block in auto mode.
func DefaultAwbParams() AwbParams {
	return AwbParams{
		SceneMode:             AwbOperationAuto,
		ManualConvergenceTime: EngineDecides,
	}
}

// AeResults is the engine's AE output. No manual override is defined for it.
type AeResults struct {
	ExposureTimeUs []int64   `json:"exposure_time_us"`
	AnalogGain     []float64 `json:"analog_gain"`
	ISO            []int32   `json:"iso"`
	Converged      bool      `json:"converged"`
}

// AfResults is the engine's AF output.
type AfResults struct {
	Status                   AfStatus `json:"status"`
	NextLensPosition         int      `json:"next_lens_position"`
	FinalLensPositionReached bool     `json:"final_lens_position_reached"`
}

// AwbResults is the engine's AWB output in chroma-ratio form.
type AwbResults struct {
	AccurateRPerG float64 `json:"accurate_r_per_g"`
	AccurateBPerG float64 `json:"accurate_b_per_g"`
	FinalRPerG    float64 `json:"final_r_per_g"`
	FinalBPerG    float64 `json:"final_b_per_g"`
	CCTEstimate   int     `json:"cct_estimate"`
}

// PaColorGains are the per-channel gains of the pixel-analysis result.
type PaColorGains struct {
	R  float64 `json:"r"`
	Gr float64 `json:"gr"`
	Gb float64 `json:"gb"`
	B  float64 `json:"b"`
}

// PaResults is the engine's pixel-analysis output.
type PaResults struct {
	ColorConversionMatrix ColorTransform `json:"color_conversion_matrix"`
	ColorGains            PaColorGains   `json:"color_gains"`
	EnableManualSettings  bool           `json:"enable_manual_settings"`
}
