// Package platform serves camera capabilities and calibration data to the
// translator from a capability file that can be edited while running.
package platform

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"github.com/marmistrz/ipu6-camera-hal/internal/aiq"
)

// ErrUnknownCamera is returned for a camera id absent from the capability file.
var ErrUnknownCamera = errors.New("platform: unknown camera")

// File is the on-disk capability document.
type File struct {
	Cameras []Camera `json:"cameras" yaml:"cameras"`
}

// Camera describes one sensor. Ranges left out are unsupported.
type Camera struct {
	ID               int                          `json:"id" yaml:"id"`
	Name             string                       `json:"name" yaml:"name"`
	ExposureNum      int                          `json:"exposure_num" yaml:"exposure_num"`
	MultiExposureNum int                          `json:"multi_exposure_num" yaml:"multi_exposure_num"`
	ExposureTimeUs   *aiq.Range                   `json:"exposure_time_us" yaml:"exposure_time_us"`
	GainDB           *aiq.Range                   `json:"gain_db" yaml:"gain_db"`
	Scenes           map[aiq.SceneMode]SceneRange `json:"scenes" yaml:"scenes"`
	Calibration      CameraCalibration            `json:"calibration" yaml:"calibration"`
}

// SceneRange overrides the camera ranges for one scene mode.
type SceneRange struct {
	ExposureTimeUs *aiq.Range `json:"exposure_time_us" yaml:"exposure_time_us"`
	GainDB         *aiq.Range `json:"gain_db" yaml:"gain_db"`
}

// CameraCalibration holds the calibration record, with optional per tuning
// mode replacements.
type CameraCalibration struct {
	BaseISO     int                                    `json:"base_iso" yaml:"base_iso"`
	TuningModes map[aiq.TuningMode]aiq.CalibrationData `json:"tuning_modes" yaml:"tuning_modes"`
}

type snapshot struct {
	cameras map[int]Camera
}

// Registry implements aiq.Platform and aiq.Calibration. Lookups read an
// immutable snapshot, so they are safe from any goroutine while a reload
// swaps in a new one.
type Registry struct {
	path string
	log  *slog.Logger
	snap atomic.Pointer[snapshot]
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.log = l }
}

// Open loads the capability file at path.
func Open(path string, opts ...Option) (*Registry, error) {
	r := &Registry{path: path, log: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// FromFile builds a Registry around an in-memory capability document. It
// has no backing file, so Reload and Watch are not available.
func FromFile(f File) (*Registry, error) {
	snap, err := newSnapshot(f)
	if err != nil {
		return nil, err
	}
	r := &Registry{log: slog.Default()}
	r.snap.Store(snap)
	return r, nil
}

// Path returns the capability file path.
func (r *Registry) Path() string { return r.path }

// Reload re-reads the capability file. On error the previous snapshot stays
// in place.
func (r *Registry) Reload() error {
	if r.path == "" {
		return errors.New("platform: registry has no capability file")
	}
	f, err := ReadFile(r.path)
	if err != nil {
		return err
	}
	snap, err := newSnapshot(f)
	if err != nil {
		return fmt.Errorf("%s: %w", r.path, err)
	}
	r.snap.Store(snap)
	r.log.Info("capabilities loaded", "path", r.path, "cameras", len(snap.cameras))
	return nil
}

// ReadFile decodes a capability file. Files ending in .json are read as JSON,
// anything else as YAML.
func ReadFile(path string) (File, error) {
	var f File
	data, err := os.ReadFile(path)
	if err != nil {
		return f, err
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&f)
	} else {
		err = yaml.Unmarshal(data, &f)
	}
	if err != nil {
		return File{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return f, nil
}

func newSnapshot(f File) (*snapshot, error) {
	s := &snapshot{cameras: make(map[int]Camera, len(f.Cameras))}
	for _, c := range f.Cameras {
		if _, dup := s.cameras[c.ID]; dup {
			return nil, fmt.Errorf("camera %d listed twice", c.ID)
		}
		if c.ExposureNum < 0 || c.MultiExposureNum < 0 {
			return nil, fmt.Errorf("camera %d: negative exposure count", c.ID)
		}
		s.cameras[c.ID] = c
	}
	return s, nil
}

// Camera returns the capability record of a camera.
func (r *Registry) Camera(cameraID int) (Camera, error) {
	c, ok := r.snap.Load().cameras[cameraID]
	if !ok {
		return Camera{}, fmt.Errorf("camera %d: %w", cameraID, ErrUnknownCamera)
	}
	return c, nil
}

// Cameras lists the known camera ids in ascending order.
func (r *Registry) Cameras() []int {
	cams := r.snap.Load().cameras
	ids := make([]int, 0, len(cams))
	for id := range cams {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// ExposureTimeRange returns the supported exposure time in microseconds.
func (r *Registry) ExposureTimeRange(cameraID int, scene aiq.SceneMode) (aiq.Range, bool) {
	c, ok := r.snap.Load().cameras[cameraID]
	if !ok {
		return aiq.Range{}, false
	}
	if s, ok := c.Scenes[scene]; ok && s.ExposureTimeUs != nil {
		return *s.ExposureTimeUs, true
	}
	if c.ExposureTimeUs == nil {
		return aiq.Range{}, false
	}
	return *c.ExposureTimeUs, true
}

// GainRange returns the supported sensor gain in dB.
func (r *Registry) GainRange(cameraID int, scene aiq.SceneMode) (aiq.Range, bool) {
	c, ok := r.snap.Load().cameras[cameraID]
	if !ok {
		return aiq.Range{}, false
	}
	if s, ok := c.Scenes[scene]; ok && s.GainDB != nil {
		return *s.GainDB, true
	}
	if c.GainDB == nil {
		return aiq.Range{}, false
	}
	return *c.GainDB, true
}

// ExposureNum returns how many exposures the camera drives per frame.
func (r *Registry) ExposureNum(cameraID int, multiExposure bool) int {
	c, ok := r.snap.Load().cameras[cameraID]
	if !ok {
		return 1
	}
	if multiExposure && c.MultiExposureNum > 0 {
		return c.MultiExposureNum
	}
	if c.ExposureNum > 0 {
		return c.ExposureNum
	}
	return 1
}

// Calibration returns the calibration record for a camera and tuning mode.
func (r *Registry) Calibration(cameraID int, mode aiq.TuningMode) (aiq.CalibrationData, error) {
	c, ok := r.snap.Load().cameras[cameraID]
	if !ok {
		return aiq.CalibrationData{}, fmt.Errorf("camera %d: %w: %w", cameraID, aiq.ErrNoCalibration, ErrUnknownCamera)
	}
	if d, ok := c.Calibration.TuningModes[mode]; ok && d.BaseISO > 0 {
		return d, nil
	}
	if c.Calibration.BaseISO <= 0 {
		return aiq.CalibrationData{}, fmt.Errorf("camera %d mode %s: %w", cameraID, mode, aiq.ErrNoCalibration)
	}
	return aiq.CalibrationData{BaseISO: c.Calibration.BaseISO}, nil
}
