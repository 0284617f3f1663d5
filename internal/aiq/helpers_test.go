package aiq

import (
	"io"
	"log/slog"
	"testing"
)

type fakePlatform struct {
	exposure    *Range
	gain        *Range
	exposureNum int
	multiNum    int
}

func (f fakePlatform) ExposureTimeRange(int, SceneMode) (Range, bool) {
	if f.exposure == nil {
		return Range{}, false
	}
	return *f.exposure, true
}

func (f fakePlatform) GainRange(int, SceneMode) (Range, bool) {
	if f.gain == nil {
		return Range{}, false
	}
	return *f.gain, true
}

func (f fakePlatform) ExposureNum(_ int, multi bool) int {
	if multi && f.multiNum > 0 {
		return f.multiNum
	}
	return f.exposureNum
}

type fakeCalibration struct {
	baseISO int
	err     error
	calls   int
}

func (f *fakeCalibration) Calibration(int, TuningMode) (CalibrationData, error) {
	f.calls++
	if f.err != nil {
		return CalibrationData{}, f.err
	}
	return CalibrationData{BaseISO: f.baseISO}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestTranslator(t *testing.T, p Platform, opts ...Option) *Translator {
	t.Helper()
	opts = append([]Option{WithLogger(discardLogger())}, opts...)
	return New(0, p, opts...)
}

func rangePtr(min, max float64) *Range {
	return &Range{Min: min, Max: max}
}
