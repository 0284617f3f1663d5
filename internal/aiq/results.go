package aiq

import (
	"fmt"
	"math"

	"github.com/marmistrz/ipu6-camera-hal/internal/units"
)

// UpdateAeResult validates the engine's AE result. No manual override is
// applied to it.
func (t *Translator) UpdateAeResult(res *AeResults) error {
	if res == nil {
		t.log.Error("no ae result provided", "camera", t.cameraID)
		return fmt.Errorf("ae result: %w", ErrInvalidArgument)
	}
	return nil
}

// UpdatePaResult replaces the engine's color conversion matrix, and the
// color gains when they are all positive, while a manual color transform is
// active.
func (t *Translator) UpdatePaResult(res *PaResults) error {
	if res == nil {
		t.log.Error("no pa result provided", "camera", t.cameraID)
		return fmt.Errorf("pa result: %w", ErrInvalidArgument)
	}

	res.EnableManualSettings = false
	ov := t.awbOverride
	if ov.Kind != AwbOverrideColorTransform {
		return nil
	}
	if ov.ColorGains.Valid() {
		res.ColorGains = PaColorGains{
			R:  ov.ColorGains[0],
			Gr: ov.ColorGains[1],
			Gb: ov.ColorGains[2],
			B:  ov.ColorGains[3],
		}
	}
	res.ColorConversionMatrix = ov.Matrix
	res.EnableManualSettings = true
	return nil
}

// UpdateAwbResult rewrites the engine's chroma ratios according to the
// active override: a manual color transform, manual gains, or a gain shift,
// in that order of precedence. With none of them the result is untouched.
func (t *Translator) UpdateAwbResult(res *AwbResults) error {
	if res == nil {
		t.log.Error("no awb result provided", "camera", t.cameraID)
		return fmt.Errorf("awb result: %w", ErrInvalidArgument)
	}

	ov := t.awbOverride
	var source string
	switch {
	case ov.Kind == AwbOverrideColorTransform && ov.ColorGains.Valid():
		source = "color_gain"
		maxChroma := math.Max(1.0, ov.ColorGains[1])
		res.AccurateRPerG = maxChroma / ov.ColorGains[0]
		res.AccurateBPerG = maxChroma / ov.ColorGains[3]
	case ov.Kind == AwbOverrideManualGain:
		source = "manual_gain"
		res.AccurateRPerG, res.AccurateBPerG = t.normalizedRatios(ov.Gains)
	case !t.gainShift.IsZero():
		source = "gain_shift"
		r, b := t.normalizedRatios(t.gainShift)
		res.AccurateRPerG *= r
		res.AccurateBPerG *= b
	default:
		return nil
	}

	t.log.Debug("awb result overridden", "camera", t.cameraID, "source", source,
		"r_per_g", res.AccurateRPerG, "b_per_g", res.AccurateBPerG)
	return nil
}

// FillAfTriggerResult feeds the engine's AF status into the trigger state.
// It does nothing unless focus is force-locked.
func (t *Translator) FillAfTriggerResult(res *AfResults) {
	if res == nil {
		t.log.Error("no af result provided", "camera", t.cameraID)
		return
	}
	if !t.afState.forceLock() {
		return
	}
	t.afState = t.afState.resultReported(res.Status)
	t.log.Debug("af trigger result", "camera", t.cameraID, "status", res.Status,
		"force_lock", t.afState.forceLock())
}

// normalizedRatios maps user gains onto the engine gain scale and returns
// R/G and B/G, each bounded by the normalization range.
func (t *Translator) normalizedRatios(g AwbGains) (float64, float64) {
	n := t.tuning.AwbGainNormalization
	norm := func(v int) float64 {
		v = units.ClipInt(v, n.UserMin, n.UserMax)
		return n.NormalizedStart + float64(v-n.UserMin)*(n.NormalizedEnd-n.NormalizedStart)/float64(n.UserMax-n.UserMin)
	}
	maxPerG := n.NormalizedEnd / n.NormalizedStart
	minPerG := 1 / maxPerG

	r, gr, b := norm(g.R), norm(g.G), norm(g.B)
	return units.Clip(r/gr, minPerG, maxPerG), units.Clip(b/gr, minPerG, maxPerG)
}
