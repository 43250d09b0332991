package telemetry

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/teslashibe/go-frcvision/pkg/detection"
)

func sampleReport() Report {
	return Report{
		Frame: 42,
		Detections: []detection.Detection{
			{Box: detection.Box{XMin: 10, YMin: 20, XMax: 110, YMax: 220}, Confidence: 0.8, ClassID: 1},
			{Box: detection.Box{XMin: 0, YMin: 0, XMax: 5, YMax: 5}, Confidence: 0.4, ClassID: 7},
		},
		Labels:    detection.NewLabelMap([]string{"cone", "cube"}),
		FPS:       29.5,
		Width:     320,
		Height:    240,
		Timestamp: time.UnixMilli(1700000000123),
	}
}

func TestReport_Objects(t *testing.T) {
	want := []Object{
		{Label: "cube", ClassID: 1, Box: MLBox{YMin: 20, XMin: 10, YMax: 220, XMax: 110}, Confidence: 0.8},
		{Label: "CLS7", ClassID: 7, Box: MLBox{YMin: 0, XMin: 0, YMax: 5, XMax: 5}, Confidence: 0.4},
	}
	if diff := cmp.Diff(want, sampleReport().Objects()); diff != "" {
		t.Errorf("objects mismatch (-want +got):\n%s", diff)
	}
}

func TestReport_Resolution(t *testing.T) {
	tests := []struct {
		name string
		w, h int
		want string
	}{
		{"known", 640, 480, "640x480"},
		{"unknown", 0, 0, ""},
		{"partial", 640, 0, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := Report{Width: tc.w, Height: tc.h}
			if got := r.Resolution(); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestReport_Snapshot(t *testing.T) {
	snap := sampleReport().Snapshot()

	if snap.Frame != 42 || snap.NumObjects != 2 || snap.FPS != 29.5 {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	if snap.Timestamp != 1700000000123 {
		t.Errorf("timestamp: got %d", snap.Timestamp)
	}
	if snap.Resolution != "320x240" {
		t.Errorf("resolution: got %q", snap.Resolution)
	}
}

func TestReport_Struct(t *testing.T) {
	s, err := sampleReport().Struct()
	if err != nil {
		t.Fatalf("Struct: %v", err)
	}

	if got := s.Fields["num_objects"].GetNumberValue(); got != 2 {
		t.Errorf("num_objects: got %v", got)
	}
	if got := s.Fields["resolution"].GetStringValue(); got != "320x240" {
		t.Errorf("resolution: got %q", got)
	}

	dets := s.Fields["detections"].GetListValue().GetValues()
	if len(dets) != 2 {
		t.Fatalf("detections: got %d", len(dets))
	}
	first := dets[0].GetStructValue()
	if got := first.Fields["label"].GetStringValue(); got != "cube" {
		t.Errorf("label: got %q", got)
	}
	if got := first.Fields["box"].GetStructValue().Fields["xmax"].GetNumberValue(); got != 110 {
		t.Errorf("xmax: got %v", got)
	}

	if _, err := sampleReport().MarshalProto(); err != nil {
		t.Errorf("MarshalProto: %v", err)
	}
}
