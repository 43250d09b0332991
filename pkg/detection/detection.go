// Package detection holds the detector-agnostic result types shared by the
// YOLO backend, the overlay and the telemetry publishers.
package detection

import "errors"

// ErrClassMismatch is returned when a network's class dimension does not
// match the configured category count.
var ErrClassMismatch = errors.New("detection: class count mismatch")

// Box is an axis-aligned bounding box in source-frame pixel coordinates.
type Box struct {
	XMin, YMin int
	XMax, YMax int
}

// Width returns the width of the box
func (b Box) Width() int {
	return b.XMax - b.XMin
}

// Height returns the height of the box
func (b Box) Height() int {
	return b.YMax - b.YMin
}

// Clip clamps the box to a w x h frame.
func (b Box) Clip(w, h int) Box {
	return Box{
		XMin: clamp(b.XMin, 0, w-1),
		YMin: clamp(b.YMin, 0, h-1),
		XMax: clamp(b.XMax, 0, w-1),
		YMax: clamp(b.YMax, 0, h-1),
	}
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Detection is one predicted object instance.
type Detection struct {
	Box        Box
	Confidence float64 // 0-1
	ClassID    int
}
