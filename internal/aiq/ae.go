package aiq

import (
	"log/slog"

	"github.com/marmistrz/ipu6-camera-hal/internal/units"
)

// aePolicy derives the AE block from the previous block and a request.
type aePolicy struct {
	cameraID int
	platform Platform
	calib    Calibration
	tuning   Tuning
	log      *slog.Logger
}

// update returns the next AE block and the AE tick interval.
func (p aePolicy) update(prev AeParams, req Request) (AeParams, int) {
	ae := prev
	ae.FrameUse = engineFrameUse(req.FrameUsage)
	ae.NumExposures = units.ClipInt(p.platform.ExposureNum(p.cameraID, req.TuningMode.IsMultiExposure()), 1, MaxExposures)
	ae.ManualLimits = p.manualLimits(req)

	switch req.Antibanding {
	case AntibandingModeAuto:
		ae.FlickerReduction = FlickerReductionAuto
	case AntibandingMode50Hz:
		ae.FlickerReduction = FlickerReduction50Hz
	case AntibandingMode60Hz:
		ae.FlickerReduction = FlickerReduction60Hz
	case AntibandingModeOff:
		ae.FlickerReduction = FlickerReductionOff
	}

	switch req.DistributionPriority {
	case DistributionShutter:
		ae.ExposureDistribution = ExposureDistributionShutter
	case DistributionISO:
		ae.ExposureDistribution = ExposureDistributionISO
	case DistributionAperture:
		ae.ExposureDistribution = ExposureDistributionAperture
	default:
		ae.ExposureDistribution = ExposureDistributionAuto
	}

	ae.ManualExposureTimeUs = [MaxExposures]int64{}
	ae.ManualAnalogGain = [MaxExposures]float64{}
	ae.ManualISO = [MaxExposures]int32{}

	if req.AeMode == AeModeManual {
		p.applyManualGain(&ae, req)
		p.applyManualISO(&ae, req)
		p.applyManualExposure(&ae, req)
	} else {
		ae.EvShift = req.EvShift
	}

	conv := MapConvergence(req.AeConvergeSpeed, req.AeConvergeSpeedMode, p.tuning.ConvergenceTime, p.tuning.AeTicks)
	ae.ManualConvergenceTime = conv.Time

	// Only one metering window is supported; the latest one wins.
	if n := len(req.AeRegions); n > 0 {
		window := req.AeRegions[n-1]
		if window.HasArea() {
			if c, ok := units.ToEngineCoordinate(req.frameCoordinates(), window.Center()); ok {
				ae.ExposureCoordinate = c
			} else {
				p.log.Warn("metering region ignored, invalid frame resolution",
					"camera", p.cameraID, "width", req.Resolution.Width, "height", req.Resolution.Height)
			}
		}
	}

	return ae, conv.Ticks
}

// applyManualExposure writes the manual exposure time into the last exposure
// slot, leaving earlier slots unset. ISO priority suppresses it.
func (p aePolicy) applyManualExposure(ae *AeParams, req Request) {
	expUs := req.ManualExpTimeUs
	if expUs <= 0 || req.DistributionPriority == DistributionISO {
		return
	}
	if r, ok := p.platform.ExposureTimeRange(p.cameraID, req.SceneMode); ok {
		expUs = int64(units.Clip(float64(expUs), r.Min, r.Max))
	}
	last := ae.NumExposures - 1
	for i := 0; i < last; i++ {
		ae.ManualExposureTimeUs[i] = Unset
	}
	ae.ManualExposureTimeUs[last] = expUs
	p.log.Debug("manual exposure", "camera", p.cameraID, "exposure_us", expUs)
}

// applyManualGain converts the manual dB gain to analog gain for every
// exposure slot. Shutter priority suppresses it.
func (p aePolicy) applyManualGain(ae *AeParams, req Request) {
	gainDB := req.ManualGainDB
	if gainDB < 0 || req.DistributionPriority == DistributionShutter {
		return
	}
	if r, ok := p.platform.GainRange(p.cameraID, req.SceneMode); ok {
		gainDB = units.Clip(gainDB, r.Min, r.Max)
	}
	analog := units.DBToLinear(gainDB)
	for i := 0; i < ae.NumExposures; i++ {
		ae.ManualAnalogGain[i] = analog
	}
	p.log.Debug("manual gain", "camera", p.cameraID, "gain_db", gainDB, "analog_gain", analog)
}

// applyManualISO sets the manual ISO for every exposure slot. ISO takes
// precedence over a manual gain, so the analog gain slots are reset.
func (p aePolicy) applyManualISO(ae *AeParams, req Request) {
	iso := req.ManualISO
	if iso <= 0 || req.DistributionPriority == DistributionShutter {
		return
	}
	for i := 0; i < ae.NumExposures; i++ {
		ae.ManualISO[i] = iso
		ae.ManualAnalogGain[i] = 0
	}
	p.log.Debug("manual iso", "camera", p.cameraID, "iso", iso)
}

// manualLimits derives frame-time, exposure-time and ISO bounds from the
// requested ranges and the platform capabilities.
func (p aePolicy) manualLimits(req Request) ManualLimits {
	limits := unsetLimits()

	if req.FpsRange.Min > 0.01 && req.FpsRange.Max >= req.FpsRange.Min {
		limits.FrameTimeMinUs, limits.FrameTimeMaxUs = boundsToInt32(1e6/req.FpsRange.Max, 1e6/req.FpsRange.Min)
	} else if req.Fps > 0.01 {
		limits.FrameTimeMinUs, limits.FrameTimeMaxUs = boundsToInt32(1e6/req.Fps, 1e6/req.Fps)
	}

	platExp, ok := p.platform.ExposureTimeRange(p.cameraID, req.SceneMode)
	expRange := intersectRange(req.ExposureTimeRange,
		req.ExposureTimeRange.Min > 0 && req.ExposureTimeRange.Max >= req.ExposureTimeRange.Min,
		platExp, ok)
	limits.ExposureTimeMinUs, limits.ExposureTimeMaxUs = boundsToInt32(expRange.Min, expRange.Max)
	if expRange != UnsetRange && limits.ExposureTimeMaxUs == Unset {
		p.log.Warn("exposure time range overflows, limits left unset", "camera", p.cameraID,
			"min_us", expRange.Min, "max_us", expRange.Max)
	}

	platGain, ok := p.platform.GainRange(p.cameraID, req.SceneMode)
	gainRange := intersectRange(req.GainRangeDB,
		req.GainRangeDB.Min >= 0 && req.GainRangeDB.Max >= req.GainRangeDB.Min,
		platGain, ok)
	if gainRange.Min >= 0 && gainRange.Max >= gainRange.Min {
		limits.ISOMin, limits.ISOMax = p.isoLimits(req, gainRange)
	}

	p.log.Debug("manual limits", "camera", p.cameraID,
		"iso_min", limits.ISOMin, "iso_max", limits.ISOMax,
		"exposure_min_us", limits.ExposureTimeMinUs, "exposure_max_us", limits.ExposureTimeMaxUs,
		"frame_time_min_us", limits.FrameTimeMinUs, "frame_time_max_us", limits.FrameTimeMaxUs)
	return limits
}

// isoLimits converts a dB gain range to ISO bounds using the sensor base ISO.
// Bounds stay unset when calibration is unavailable or the result overflows.
func (p aePolicy) isoLimits(req Request, gainRange Range) (int32, int32) {
	if p.calib == nil {
		p.log.Error("no calibration source, iso limits left unset", "camera", p.cameraID)
		return Unset, Unset
	}
	cmc, err := p.calib.Calibration(p.cameraID, req.TuningMode)
	if err != nil {
		p.log.Warn("calibration lookup failed, iso limits left unset",
			"camera", p.cameraID, "tuning_mode", req.TuningMode, "error", err)
		return Unset, Unset
	}
	isoMin, okMin := units.ISOToInt32(units.DBGainToISO(gainRange.Min, cmc.BaseISO))
	isoMax, okMax := units.ISOToInt32(units.DBGainToISO(gainRange.Max, cmc.BaseISO))
	if !okMin || !okMax {
		return Unset, Unset
	}
	return isoMin, isoMax
}

// boundsToInt32 converts both bounds, leaving the pair unset when either
// does not fit in an int32.
func boundsToInt32(lo, hi float64) (int32, int32) {
	l, okLo := units.ToInt32(lo)
	h, okHi := units.ToInt32(hi)
	if !okLo || !okHi {
		return Unset, Unset
	}
	return l, h
}

// intersectRange clips a requested range into the platform range. Without a
// valid request the platform range is used as is; without a platform range
// the request passes through; with neither, both bounds are unset.
func intersectRange(requested Range, requestedValid bool, platform Range, platformOK bool) Range {
	out := UnsetRange
	if platformOK {
		out = platform
	}
	if !requestedValid {
		return out
	}
	if !platformOK {
		return requested
	}
	return Range{
		Min: units.Clip(requested.Min, platform.Min, platform.Max),
		Max: units.Clip(requested.Max, platform.Min, platform.Max),
	}
}

func engineFrameUse(u FrameUsage) EngineFrameUse {
	switch u {
	case FrameUsagePreview:
		return EngineFrameUsePreview
	case FrameUsageStill:
		return EngineFrameUseStill
	case FrameUsageContinuous:
		return EngineFrameUseContinuous
	default:
		return EngineFrameUseVideo
	}
}
