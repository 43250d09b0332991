package pipeline

import (
	"context"

	"github.com/teslashibe/go-frcvision/pkg/detection"
	"github.com/teslashibe/go-frcvision/pkg/telemetry"
)

// Source yields successive frames. Read returns false at end of stream or
// when the device is gone; it may block until a frame is ready.
type Source[F any] interface {
	Read() (F, bool)
	IsOpen() bool
	Release() error
}

// Detector finds objects in a frame.
type Detector[F any] interface {
	Detect(frame F, threshold float64) ([]detection.Detection, error)
}

// Annotator draws detections and the frame rate onto a copy of frame.
// The input frame must not be modified.
type Annotator[F any] interface {
	Annotate(frame F, dets []detection.Detection, fps float64) (F, error)
}

// Publisher receives the raw detections of every frame.
type Publisher interface {
	PutData(ctx context.Context, r telemetry.Report) error
}

// WindowSink is an interactive desktop display.
type WindowSink[F any] interface {
	Show(frame F) error
	Poll() Event
	Close() error
}

// StreamSink is an unattended network video output.
type StreamSink[F any] interface {
	SendFrame(frame F) error
	Close() error
}

// Observer receives per-frame measurements.
type Observer interface {
	ObserveFrame(FrameStats)
	ObserveError(stage string)
}
