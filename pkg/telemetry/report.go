// Package telemetry publishes per-frame detection results to the robot
// telemetry bus and to dashboard clients.
package telemetry

import (
	"fmt"
	"time"

	"github.com/teslashibe/go-frcvision/pkg/detection"
)

// Report is the payload published once per frame. Detections is the raw
// detector output for that frame; publishers must not modify it.
type Report struct {
	Frame      uint64
	Detections []detection.Detection
	Labels     detection.LabelMap
	FPS        float64
	Width      int
	Height     int
	Timestamp  time.Time
}

// MLBox is a bounding box in the key order used by the WPILib ML
// detections format.
type MLBox struct {
	YMin int `json:"ymin"`
	XMin int `json:"xmin"`
	YMax int `json:"ymax"`
	XMax int `json:"xmax"`
}

// Object is one detection as published to dashboards and the robot.
type Object struct {
	Label      string  `json:"label"`
	ClassID    int     `json:"class_id"`
	Box        MLBox   `json:"box"`
	Confidence float64 `json:"confidence"`
}

// Snapshot is the JSON form of a Report.
type Snapshot struct {
	Frame      uint64   `json:"frame"`
	Timestamp  int64    `json:"timestamp_ms"`
	FPS        float64  `json:"fps"`
	Resolution string   `json:"resolution"`
	NumObjects int      `json:"num_objects"`
	Objects    []Object `json:"detections"`
}

// Objects resolves labels and converts boxes, keeping detector order.
func (r Report) Objects() []Object {
	out := make([]Object, len(r.Detections))
	for i, d := range r.Detections {
		out[i] = Object{
			Label:   r.Labels.Name(d.ClassID),
			ClassID: d.ClassID,
			Box: MLBox{
				YMin: d.Box.YMin,
				XMin: d.Box.XMin,
				YMax: d.Box.YMax,
				XMax: d.Box.XMax,
			},
			Confidence: d.Confidence,
		}
	}
	return out
}

// Resolution returns "WxH", or an empty string when the size is unknown.
func (r Report) Resolution() string {
	if r.Width <= 0 || r.Height <= 0 {
		return ""
	}
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// Snapshot converts the report into its JSON form.
func (r Report) Snapshot() Snapshot {
	return Snapshot{
		Frame:      r.Frame,
		Timestamp:  r.Timestamp.UnixMilli(),
		FPS:        r.FPS,
		Resolution: r.Resolution(),
		NumObjects: len(r.Detections),
		Objects:    r.Objects(),
	}
}
