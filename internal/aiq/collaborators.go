package aiq

import "errors"

var (
	// ErrInvalidArgument is returned when a result passed for override is nil.
	ErrInvalidArgument = errors.New("aiq: invalid argument")
	// ErrNoCalibration is returned by calibration sources that have no record
	// for the camera.
	ErrNoCalibration = errors.New("aiq: no calibration data")
)

// Platform answers capability queries about a camera. A false return means
// the range is unsupported and no clipping should be applied.
type Platform interface {
	ExposureTimeRange(cameraID int, scene SceneMode) (Range, bool)
	GainRange(cameraID int, scene SceneMode) (Range, bool)
	ExposureNum(cameraID int, multiExposure bool) int
}

// CalibrationData is the subset of the engine's static calibration record the
// translator needs.
type CalibrationData struct {
	BaseISO int `json:"base_iso" yaml:"base_iso"`
}

// Calibration looks up static calibration data for a camera.
type Calibration interface {
	Calibration(cameraID int, mode TuningMode) (CalibrationData, error)
}

// NoPlatform reports every range as unsupported and a single exposure.
type NoPlatform struct{}

func (NoPlatform) ExposureTimeRange(int, SceneMode) (Range, bool) { return Range{}, false }
func (NoPlatform) GainRange(int, SceneMode) (Range, bool) { return Range{}, false }
func (NoPlatform) ExposureNum(int, bool) int { return 1 }
