package aiq

import "log/slog"

// Translator owns the engine parameter blocks of one camera and updates them
// once per frame. It is not safe for concurrent use.
type Translator struct {
	cameraID int
	platform Platform
	calib    Calibration
	tuning   Tuning
	log      *slog.Logger

	ae          AeParams
	af          AfParams
	awb         AwbParams
	aePerTicks  int
	awbPerTicks int

	afState     afState
	awbOverride AwbOverride
	gainShift   AwbGains
}

// Option configures a Translator.
type Option func(*Translator)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(t *Translator) { t.log = l }
}

// WithTuning replaces the stock tuning constants.
func WithTuning(tuning Tuning) Option {
	return func(t *Translator) { t.tuning = tuning }
}

// WithCalibration sets the calibration source used for ISO limits. Without
// one, ISO limits are always left unset.
func WithCalibration(c Calibration) Option {
	return func(t *Translator) { t.calib = c }
}

// New returns a Translator for cameraID in its initial state. A nil platform
// reports every range as unsupported.
func New(cameraID int, platform Platform, opts ...Option) *Translator {
	if platform == nil {
		platform = NoPlatform{}
	}
	t := &Translator{
		cameraID: cameraID,
		platform: platform,
		tuning:   DefaultTuning(),
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.Init()
	return t
}

// Init resets every block and all persistent state to defaults. The sensor
// descriptor survives, since it only changes through SetSensorInfo.
func (t *Translator) Init() {
	sensor := t.ae.SensorDescriptor
	t.ae = DefaultAeParams()
	t.ae.SensorDescriptor = sensor
	t.af = DefaultAfParams()
	t.awb = DefaultAwbParams()
	t.aePerTicks = 1
	t.awbPerTicks = 1
	t.afState = initialAfState()
	t.awbOverride = AwbOverride{}
	t.gainShift = AwbGains{}
}

// CameraID returns the camera this translator serves.
func (t *Translator) CameraID() int { return t.cameraID }

// SetSensorInfo records the timing descriptor of a new sensor mode.
func (t *Translator) SetSensorInfo(desc SensorDescriptor) {
	t.log.Debug("sensor info updated", "camera", t.cameraID,
		"pixel_clock_mhz", desc.PixelClockFreqMHz, "line_periods", desc.LinePeriodsPerField)
	t.ae.SensorDescriptor = desc
}

// UpdateParameter folds one frame's request into the AE, AWB and AF blocks,
// in that order.
func (t *Translator) UpdateParameter(req Request) {
	ae := aePolicy{cameraID: t.cameraID, platform: t.platform, calib: t.calib, tuning: t.tuning, log: t.log}
	t.ae, t.aePerTicks = ae.update(t.ae, req)

	awb := awbPolicy{cameraID: t.cameraID, tuning: t.tuning, log: t.log}
	st := awb.update(t.awb, req)
	t.awb, t.awbOverride, t.gainShift, t.awbPerTicks = st.params, st.override, st.gainShift, st.ticks

	af := afPolicy{cameraID: t.cameraID, log: t.log}
	t.afState, t.af = af.update(t.afState, t.af, req)
}

// AeParams returns a copy of the AE block.
func (t *Translator) AeParams() AeParams { return t.ae }

// AfParams returns a copy of the AF block.
func (t *Translator) AfParams() AfParams { return t.af }

// AwbParams returns a copy of the AWB block.
func (t *Translator) AwbParams() AwbParams { return t.awb }

// AePerTicks is the frame interval at which AE should run.
func (t *Translator) AePerTicks() int { return t.aePerTicks }

// AwbPerTicks is the frame interval at which AWB should run.
func (t *Translator) AwbPerTicks() int { return t.awbPerTicks }

// AfMode is the focus mode currently tracked.
func (t *Translator) AfMode() AfMode { return t.afState.mode }

// ForceLock reports whether focus is held regardless of the engine.
func (t *Translator) ForceLock() bool { return t.afState.forceLock() }

// DuringTriggerScan reports whether a user-triggered scan is in flight.
func (t *Translator) DuringTriggerScan() bool { return t.afState.duringTriggerScan() }

// AwbOverride returns the active AWB result override.
func (t *Translator) AwbOverride() AwbOverride { return t.awbOverride }

// GainShift returns the AWB gain shift captured from the last request.
func (t *Translator) GainShift() AwbGains { return t.gainShift }

// Snapshot is a point-in-time copy of everything the translator exposes.
type Snapshot struct {
	CameraID          int             `json:"camera_id"`
	Ae                AeParams        `json:"ae"`
	Af                AfParams        `json:"af"`
	Awb               AwbParams       `json:"awb"`
	AePerTicks        int             `json:"ae_per_ticks"`
	AwbPerTicks       int             `json:"awb_per_ticks"`
	AfMode            AfMode          `json:"af_mode"`
	AfPhase           string          `json:"af_phase"`
	ForceLock         bool            `json:"force_lock"`
	DuringTriggerScan bool            `json:"during_trigger_scan"`
	AwbOverride       AwbOverrideKind `json:"awb_override"`
}

// Snapshot copies the current state.
func (t *Translator) Snapshot() Snapshot {
	return Snapshot{
		CameraID:          t.cameraID,
		Ae:                t.ae,
		Af:                t.af,
		Awb:               t.awb,
		AePerTicks:        t.aePerTicks,
		AwbPerTicks:       t.awbPerTicks,
		AfMode:            t.afState.mode,
		AfPhase:           t.afState.phase.String(),
		ForceLock:         t.afState.forceLock(),
		DuringTriggerScan: t.afState.duringTriggerScan(),
		AwbOverride:       t.awbOverride.Kind,
	}
}
