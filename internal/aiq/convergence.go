package aiq

// Convergence is the pair the speed mapper produces: a target time handed to
// the engine and the frame interval at which the engine is run.
type Convergence struct {
	Time  float64
	Ticks int
}

// MapConvergence turns a speed preference into a Convergence. In time mode
// the engine gets a target time and runs every frame; otherwise the engine
// picks its own time and is throttled to run every Ticks frames.
func MapConvergence(speed ConvergeSpeed, mode ConvergeSpeedMode, times ConvergenceTimes, ticks ConvergenceTicks) Convergence {
	if mode == ConvergeSpeedModeTime {
		return Convergence{Time: speedTime(speed, times), Ticks: 1}
	}
	n := ticks.Normal
	switch speed {
	case ConvergeMid:
		n = ticks.Mid
	case ConvergeLow:
		n = ticks.Low
	}
	if n < 1 {
		n = 1
	}
	return Convergence{Time: EngineDecides, Ticks: n}
}

func speedTime(speed ConvergeSpeed, times ConvergenceTimes) float64 {
	switch speed {
	case ConvergeMid:
		return times.Mid
	case ConvergeLow:
		return times.Low
	default:
		return times.Normal
	}
}
