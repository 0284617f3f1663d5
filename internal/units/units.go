// Package units provides the numeric helpers shared by the 3A translator:
// gain and ISO conversion, clamping, and coordinate remapping.
package units

import "math"

// Clip clamps v into the closed interval spanned by a and b. The bounds may be
// given in either order.
func Clip(v, a, b float64) float64 {
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClipInt is Clip for integers.
func ClipInt(v, a, b int) int {
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// DBToLinear converts a sensor gain in dB to a linear multiplier.
func DBToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

// LinearToDB is the inverse of DBToLinear. Non-positive gains map to -Inf.
func LinearToDB(gain float64) float64 {
	if gain <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(gain)
}

// DBGainToISO converts a gain in dB to ISO using the sensor base ISO.
func DBGainToISO(db float64, baseISO int) float64 {
	return DBToLinear(db) * float64(baseISO)
}

// ToInt32 truncates v to an int32. ok is false for NaN or a value that
// does not fit.
func ToInt32(v float64) (int32, bool) {
	if math.IsNaN(v) || v > math.MaxInt32 || v < math.MinInt32 {
		return 0, false
	}
	return int32(v), true
}

// ISOToInt32 truncates iso to an int32. ok is false when the value does not
// fit, in which case the caller should leave its bound unset.
func ISOToInt32(iso float64) (int32, bool) {
	return ToInt32(iso)
}
