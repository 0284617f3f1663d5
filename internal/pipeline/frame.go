package pipeline

import (
	"encoding/json"
	"time"

	"github.com/marmistrz/ipu6-camera-hal/internal/aiq"
)

// EngineResults are the 3A engine outputs that arrived with a frame. Any of
// them may be absent.
type EngineResults struct {
	Ae  *aiq.AeResults  `json:"ae,omitempty"`
	Af  *aiq.AfResults  `json:"af,omitempty"`
	Awb *aiq.AwbResults `json:"awb,omitempty"`
	Pa  *aiq.PaResults  `json:"pa,omitempty"`
}

func (r *EngineResults) clone() *EngineResults {
	if r == nil {
		return nil
	}
	out := &EngineResults{}
	if r.Ae != nil {
		ae := *r.Ae
		ae.ExposureTimeUs = append([]int64(nil), r.Ae.ExposureTimeUs...)
		ae.AnalogGain = append([]float64(nil), r.Ae.AnalogGain...)
		ae.ISO = append([]int32(nil), r.Ae.ISO...)
		out.Ae = &ae
	}
	if r.Af != nil {
		af := *r.Af
		out.Af = &af
	}
	if r.Awb != nil {
		awb := *r.Awb
		out.Awb = &awb
	}
	if r.Pa != nil {
		pa := *r.Pa
		out.Pa = &pa
	}
	return out
}

// Frame is one unit of work for a camera: the capture request, plus an
// optional sensor mode change and engine results to post-process.
type Frame struct {
	CameraID int                   `json:"camera_id"`
	Sequence int64                 `json:"sequence,omitempty"`
	Sensor   *aiq.SensorDescriptor `json:"sensor,omitempty"`
	Request  aiq.Request           `json:"request"`
	Results  *EngineResults        `json:"results,omitempty"`
}

// UnmarshalJSON decodes a frame whose request fields default to
// aiq.DefaultRequest when left out.
func (f *Frame) UnmarshalJSON(data []byte) error {
	type plain Frame
	v := plain{Request: aiq.DefaultRequest()}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Frame(v)
	return nil
}

// Result is the translator state after a frame, with the engine results as
// rewritten by any active override.
type Result struct {
	CameraID  int            `json:"camera_id"`
	Sequence  int64          `json:"sequence"`
	SessionID string         `json:"session_id,omitempty"`
	Snapshot  aiq.Snapshot   `json:"snapshot"`
	Results   *EngineResults `json:"results,omitempty"`
	Error     error          `json:"-"`
	Duration  time.Duration  `json:"duration_ns"`
}

// MarshalJSON adds the error text, if any.
func (r Result) MarshalJSON() ([]byte, error) {
	type plain Result
	out := struct {
		plain
		Error string `json:"error,omitempty"`
	}{plain: plain(r)}
	if r.Error != nil {
		out.Error = r.Error.Error()
	}
	return json.Marshal(out)
}
