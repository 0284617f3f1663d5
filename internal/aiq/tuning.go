package aiq

import (
	"errors"
	"fmt"
)

// ConvergenceTimes maps each speed preference to a target time in seconds.
type ConvergenceTimes struct {
	Normal float64 `json:"normal"`
	Mid    float64 `json:"mid"`
	Low    float64 `json:"low"`
}

// ConvergenceTicks maps each speed preference to a frame interval.
type ConvergenceTicks struct {
	Normal int `json:"normal"`
	Mid    int `json:"mid"`
	Low    int `json:"low"`
}

// AwbGainNormalization maps user AWB gains onto the engine's gain scale.
type AwbGainNormalization struct {
	UserMin         int     `json:"user_min"`
	UserMax         int     `json:"user_max"`
	NormalizedStart float64 `json:"normalized_start"`
	NormalizedEnd   float64 `json:"normalized_end"`
}

// Tuning holds the translator constants that integrators commonly adjust.
type Tuning struct {
	ConvergenceTime      ConvergenceTimes     `json:"convergence_time"`
	AeTicks              ConvergenceTicks     `json:"ae_ticks"`
	AwbTicks             ConvergenceTicks     `json:"awb_ticks"`
	AwbGainNormalization AwbGainNormalization `json:"awb_gain_normalization"`
}

// DefaultTuning returns the stock constants.
func DefaultTuning() Tuning {
	ticks := ConvergenceTicks{Normal: 1, Mid: 30, Low: 60}
	return Tuning{
		ConvergenceTime: ConvergenceTimes{Normal: 0.3, Mid: 0.9, Low: 1.5},
		AeTicks:         ticks,
		AwbTicks:        ticks,
		AwbGainNormalization: AwbGainNormalization{
			UserMin:         0,
			UserMax:         255,
			NormalizedStart: 0.5,
			NormalizedEnd:   4.0,
		},
	}
}

// Validate checks that the constants can be used without dividing by zero or
// producing a throttle below one frame.
func (t Tuning) Validate() error {
	var errs []error
	for name, v := range map[string]ConvergenceTicks{"ae_ticks": t.AeTicks, "awb_ticks": t.AwbTicks} {
		if v.Normal < 1 || v.Mid < 1 || v.Low < 1 {
			errs = append(errs, fmt.Errorf("%s must be >= 1, got %+v", name, v))
		}
	}
	ct := t.ConvergenceTime
	if ct.Normal <= 0 || ct.Mid <= 0 || ct.Low <= 0 {
		errs = append(errs, fmt.Errorf("convergence_time must be positive, got %+v", ct))
	}
	n := t.AwbGainNormalization
	if n.UserMax <= n.UserMin {
		errs = append(errs, fmt.Errorf("awb_gain_normalization user range [%d,%d] is empty", n.UserMin, n.UserMax))
	}
	if n.NormalizedStart <= 0 || n.NormalizedEnd <= n.NormalizedStart {
		errs = append(errs, fmt.Errorf("awb_gain_normalization range [%g,%g] is invalid", n.NormalizedStart, n.NormalizedEnd))
	}
	return errors.Join(errs...)
}
