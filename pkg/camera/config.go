// Package camera opens the frame source: a USB camera, a video file, an
// RTSP stream or a still image.
package camera

import (
	"fmt"
	"os"
)

// Kind selects the capture backend.
type Kind string

// Supported source kinds.
const (
	KindUSB   Kind = "usb"
	KindVideo Kind = "video"
	KindRTSP  Kind = "rtsp"
	KindImage Kind = "image"
)

// Frame size limits accepted by Validate.
const (
	MinWidth  = 160
	MinHeight = 120
	MaxWidth  = 4096
	MaxHeight = 2160
)

// Config describes where frames come from.
type Config struct {
	Kind Kind `json:"kind"`

	// Device is the V4L2 index for KindUSB.
	Device int `json:"device"`

	// Path is the file name for KindVideo and KindImage, or the URI for
	// KindRTSP.
	Path string `json:"path"`

	// Requested capture size. Zero keeps the device default.
	Width  int `json:"width"`
	Height int `json:"height"`

	// Loop rewinds a video at end of file and repeats a still image.
	Loop bool `json:"loop"`
}

// DefaultConfig returns the first USB camera at 640x480.
func DefaultConfig() Config {
	return Config{
		Kind:   KindUSB,
		Device: 0,
		Width:  640,
		Height: 480,
	}
}

// Describe returns a short human-readable name for the source.
func (c *Config) Describe() string {
	switch c.Kind {
	case KindUSB:
		return fmt.Sprintf("usb:%d", c.Device)
	default:
		return fmt.Sprintf("%s:%s", c.Kind, c.Path)
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	switch c.Kind {
	case KindUSB:
		if c.Device < 0 {
			errors = append(errors, "device must be >= 0")
		}
	case KindVideo, KindImage:
		if c.Path == "" {
			errors = append(errors, fmt.Sprintf("%s source needs a path", c.Kind))
		} else if _, err := os.Stat(c.Path); err != nil {
			errors = append(errors, fmt.Sprintf("%s file not found: %s", c.Kind, c.Path))
		}
	case KindRTSP:
		if c.Path == "" {
			errors = append(errors, "rtsp source needs a uri")
		}
	default:
		errors = append(errors, "kind must be usb, video, rtsp, or image")
	}

	// Resolution
	if c.Width != 0 && (c.Width < MinWidth || c.Width > MaxWidth) {
		errors = append(errors, fmt.Sprintf("width must be 0 or between %d and %d", MinWidth, MaxWidth))
	}
	if c.Height != 0 && (c.Height < MinHeight || c.Height > MaxHeight) {
		errors = append(errors, fmt.Sprintf("height must be 0 or between %d and %d", MinHeight, MaxHeight))
	}

	if c.Loop && (c.Kind == KindUSB || c.Kind == KindRTSP) {
		errors = append(errors, "loop only applies to video and image sources")
	}

	return errors
}
