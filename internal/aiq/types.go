// Package aiq translates per-frame capture-control requests into the
// parameter blocks consumed by the 3A (AE/AF/AWB) engine, and post-processes
// the engine's results when the caller asked for manual overrides.
//
// A Translator holds the state of a single camera. It performs no locking;
// callers must serialize access per camera.
package aiq

import "github.com/marmistrz/ipu6-camera-hal/internal/units"

// FrameUsage describes what the captured frames are used for.
type FrameUsage string

const (
	FrameUsagePreview    FrameUsage = "preview"
	FrameUsageStill      FrameUsage = "still"
	FrameUsageContinuous FrameUsage = "continuous"
	FrameUsageVideo      FrameUsage = "video"
)

// SceneMode keys the platform's supported ranges.
type SceneMode string

const (
	SceneModeAuto      SceneMode = "auto"
	SceneModeHDR       SceneMode = "hdr"
	SceneModeULL       SceneMode = "ull"
	SceneModeVideoLL   SceneMode = "video_ll"
	SceneModeNormal    SceneMode = "normal"
	SceneModeCustomAIC SceneMode = "custom_aic"
)

// TuningMode selects the engine tuning set.
type TuningMode string

const (
	TuningModeVideo        TuningMode = "video"
	TuningModeVideoULL     TuningMode = "video_ull"
	TuningModeVideoHDR     TuningMode = "video_hdr"
	TuningModeVideoHDR2    TuningMode = "video_hdr2"
	TuningModeVideoHLC     TuningMode = "video_hlc"
	TuningModeStillCapture TuningMode = "still_capture"
)

// IsMultiExposure reports whether the tuning mode drives more than one
// exposure per frame.
func (m TuningMode) IsMultiExposure() bool {
	switch m {
	case TuningModeVideoHDR, TuningModeVideoHDR2, TuningModeVideoHLC:
		return true
	default:
		return false
	}
}

// AeMode selects automatic or manual exposure.
type AeMode string

const (
	AeModeAuto   AeMode = "auto"
	AeModeManual AeMode = "manual"
)

// AntibandingMode selects flicker reduction.
type AntibandingMode string

const (
	AntibandingModeAuto AntibandingMode = "auto"
	AntibandingMode50Hz AntibandingMode = "50hz"
	AntibandingMode60Hz AntibandingMode = "60hz"
	AntibandingModeOff  AntibandingMode = "off"
)

// DistributionPriority resolves conflicts between manual exposure fields.
type DistributionPriority string

const (
	DistributionAuto     DistributionPriority = "auto"
	DistributionShutter  DistributionPriority = "shutter"
	DistributionISO      DistributionPriority = "iso"
	DistributionAperture DistributionPriority = "aperture"
)

// AwbMode selects the white-balance source.
type AwbMode string

const (
	AwbModeAuto                 AwbMode = "auto"
	AwbModeIncandescent         AwbMode = "incandescent"
	AwbModeFluorescent          AwbMode = "fluorescent"
	AwbModeDaylight             AwbMode = "daylight"
	AwbModeFullOvercast         AwbMode = "full_overcast"
	AwbModePartlyOvercast       AwbMode = "partly_overcast"
	AwbModeSunset               AwbMode = "sunset"
	AwbModeVideoConference      AwbMode = "video_conference"
	AwbModeManualCCTRange       AwbMode = "manual_cct_range"
	AwbModeManualWhitePoint     AwbMode = "manual_white_point"
	AwbModeManualGain           AwbMode = "manual_gain"
	AwbModeManualColorTransform AwbMode = "manual_color_transform"
)

// AfMode selects the focus behaviour. AfModeOff means manual focus.
type AfMode string

const (
	AfModeOff               AfMode = "off"
	AfModeAuto              AfMode = "auto"
	AfModeMacro             AfMode = "macro"
	AfModeContinuousVideo   AfMode = "continuous_video"
	AfModeContinuousPicture AfMode = "continuous_picture"
)

// AfTrigger is the user's per-frame focus trigger.
type AfTrigger string

const (
	AfTriggerIdle   AfTrigger = "idle"
	AfTriggerStart  AfTrigger = "start"
	AfTriggerCancel AfTrigger = "cancel"
)

// ConvergeSpeed is the abstract convergence preference.
type ConvergeSpeed string

const (
	ConvergeNormal ConvergeSpeed = "normal"
	ConvergeMid    ConvergeSpeed = "mid"
	ConvergeLow    ConvergeSpeed = "low"
)

// ConvergeSpeedMode selects how the speed preference is realized.
type ConvergeSpeedMode string

const (
	// ConvergeSpeedModeTime hands the engine a target convergence time.
	ConvergeSpeedModeTime ConvergeSpeedMode = "time"
	// ConvergeSpeedModeEngine lets the engine decide its convergence time and
	// throttles it by running it every N frames instead.
	ConvergeSpeedModeEngine ConvergeSpeedMode = "engine"
)

// Range is a closed numeric interval. A negative bound means unset.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// UnsetRange has both bounds at the sentinel -1.
var UnsetRange = Range{Min: -1, Max: -1}

// Resolution of the frame, used as the application coordinate domain.
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// AwbGains are raw user white-balance gains in the [0,255] user range.
type AwbGains struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// IsZero reports whether no gain is set.
func (g AwbGains) IsZero() bool { return g.R == 0 && g.G == 0 && g.B == 0 }

// ColorTransform is a 3x3 color conversion matrix.
type ColorTransform [3][3]float64

// ColorGains are per-channel gains in R, Gr, Gb, B order.
type ColorGains [4]float64

// Valid reports whether all four channel gains are strictly positive.
func (g ColorGains) Valid() bool {
	return g[0] > 0 && g[1] > 0 && g[2] > 0 && g[3] > 0
}

// Request is the per-frame capture-control request. It is owned by the
// caller and never modified by the translator.
type Request struct {
	FrameUsage FrameUsage `json:"frame_usage"`
	SceneMode  SceneMode  `json:"scene_mode"`
	TuningMode TuningMode `json:"tuning_mode"`

	AeMode               AeMode               `json:"ae_mode"`
	Antibanding          AntibandingMode      `json:"antibanding"`
	DistributionPriority DistributionPriority `json:"distribution_priority"`
	EvShift              float64              `json:"ev_shift"`
	ManualExpTimeUs      int64                `json:"manual_exp_time_us"`
	ManualGainDB         float64              `json:"manual_gain_db"`
	ManualISO            int32                `json:"manual_iso"`
	ExposureTimeRange    Range                `json:"exposure_time_range"`
	GainRangeDB          Range                `json:"gain_range_db"`
	FpsRange             Range                `json:"fps_range"`
	Fps                  float64              `json:"fps"`
	AeConvergeSpeed      ConvergeSpeed        `json:"ae_converge_speed"`
	AeConvergeSpeedMode  ConvergeSpeedMode    `json:"ae_converge_speed_mode"`
	AeRegions            []units.Window       `json:"ae_regions,omitempty"`

	AwbMode              AwbMode           `json:"awb_mode"`
	CCTRange             Range             `json:"cct_range"`
	WhitePoint           units.Coordinate  `json:"white_point"`
	AwbManualGain        AwbGains          `json:"awb_manual_gain"`
	AwbGainShift         AwbGains          `json:"awb_gain_shift"`
	ManualColorMatrix    ColorTransform    `json:"manual_color_matrix"`
	ManualColorGains     ColorGains        `json:"manual_color_gains"`
	AwbConvergeSpeed     ConvergeSpeed     `json:"awb_converge_speed"`
	AwbConvergeSpeedMode ConvergeSpeedMode `json:"awb_converge_speed_mode"`

	AfMode                     AfMode         `json:"af_mode"`
	AfTrigger                  AfTrigger      `json:"af_trigger"`
	AfRegions                  []units.Window `json:"af_regions,omitempty"`
	LensPosition               int            `json:"lens_position"`
	LensMovementStartTimestamp uint64         `json:"lens_movement_start_timestamp"`
	MinFocusDistance           float64        `json:"min_focus_distance"`
	FocusDistance              float64        `json:"focus_distance"`

	Resolution Resolution `json:"resolution"`
}

// DefaultRequest returns a fully automatic request for a 1080p video stream.
func DefaultRequest() Request {
	return Request{
		FrameUsage:           FrameUsageVideo,
		SceneMode:            SceneModeAuto,
		TuningMode:           TuningModeVideo,
		AeMode:               AeModeAuto,
		Antibanding:          AntibandingModeAuto,
		DistributionPriority: DistributionAuto,
		ManualGainDB:         -1,
		ExposureTimeRange:    UnsetRange,
		GainRangeDB:          UnsetRange,
		AeConvergeSpeed:      ConvergeNormal,
		AeConvergeSpeedMode:  ConvergeSpeedModeEngine,
		AwbMode:              AwbModeAuto,
		AwbConvergeSpeed:     ConvergeNormal,
		AwbConvergeSpeedMode: ConvergeSpeedModeEngine,
		AfMode:               AfModeAuto,
		AfTrigger:            AfTriggerIdle,
		Resolution:           Resolution{Width: 1920, Height: 1080},
	}
}

func (r Request) frameCoordinates() units.CoordinateSystem {
	return units.FrameCoordinateSystem(r.Resolution.Width, r.Resolution.Height)
}
