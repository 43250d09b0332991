// Package overlay draws detection boxes, labels and the frame rate onto
// video frames.
package overlay

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-frcvision/pkg/detection"
)

// ErrEmptyFrame is returned when there is nothing to draw on.
var ErrEmptyFrame = errors.New("overlay: empty frame")

var (
	textColor   = color.RGBA{R: 240, G: 240, B: 240, A: 255}
	shadowColor = color.RGBA{R: 32, G: 32, B: 32, A: 255}
)

const (
	font          = gocv.FontHersheyPlain
	labelScale    = 1.0
	labelMargin   = 3
	boxThickness  = 2
	fpsScale      = 1.0
	fpsFont       = gocv.FontHersheyPlain
	fpsThickness  = 1
	fpsShadowSize = 4
)

// Annotator renders detections with per-class colours.
type Annotator struct {
	labels  detection.LabelMap
	palette Palette
}

// New creates an annotator for the given labels
func New(labels detection.LabelMap) *Annotator {
	return &Annotator{
		labels:  labels,
		palette: NewPalette(labels.Len()),
	}
}

// Label formats the caption drawn above a box.
func (a *Annotator) Label(d detection.Detection) string {
	return fmt.Sprintf("%s %.2f", a.labels.Name(d.ClassID), d.Confidence)
}

// FPSText formats the frame-rate caption.
func FPSText(fps float64) string {
	return fmt.Sprintf("FPS: %.2f", fps)
}

// Annotate returns a copy of frame with boxes, labels and the frame rate
// drawn on it. frame itself is not modified. The caller owns the result.
func (a *Annotator) Annotate(frame *gocv.Mat, dets []detection.Detection, fps float64) (*gocv.Mat, error) {
	if frame == nil || frame.Empty() {
		return nil, ErrEmptyFrame
	}

	out := frame.Clone()
	for _, d := range dets {
		a.drawBox(&out, d)
	}
	drawFPS(&out, fps)
	return &out, nil
}

func (a *Annotator) drawBox(img *gocv.Mat, d detection.Detection) {
	c := a.palette.Color(d.ClassID)
	rect := image.Rect(d.Box.XMin, d.Box.YMin, d.Box.XMax, d.Box.YMax)
	gocv.Rectangle(img, rect, c, boxThickness)

	text := a.Label(d)
	size := gocv.GetTextSize(text, font, labelScale, 1)

	// Caption sits on a filled patch just inside the top-left corner,
	// clamped to the frame.
	x := clamp(d.Box.XMin, 0, img.Cols()-size.X-2*labelMargin)
	y := clamp(d.Box.YMin, 0, img.Rows()-size.Y-2*labelMargin)
	patch := image.Rect(x, y, x+size.X+2*labelMargin, y+size.Y+2*labelMargin)
	gocv.Rectangle(img, patch, c, -1)
	gocv.PutText(img, text, image.Pt(x+labelMargin, y+labelMargin+size.Y), font, labelScale, textColor, 1)
}

func drawFPS(img *gocv.Mat, fps float64) {
	text := FPSText(fps)
	gocv.PutText(img, text, image.Pt(11, 20), fpsFont, fpsScale, shadowColor, fpsShadowSize)
	gocv.PutText(img, text, image.Pt(10, 20), fpsFont, fpsScale, textColor, fpsThickness)
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
