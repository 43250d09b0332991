package display

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// DefaultJPEGQuality is the stream encoding quality when none is set.
const DefaultJPEGQuality = 80

// ErrStreamClosed is returned by SendFrame after Close.
var ErrStreamClosed = errors.New("display: stream closed")

// FramePublisher receives encoded JPEG frames.
type FramePublisher interface {
	Publish(frame []byte)
	Close() error
}

// StreamConfig holds MJPEG output settings
type StreamConfig struct {
	// Output size. Zero keeps the frame size.
	Width  int
	Height int

	Quality int // JPEG quality 1-100
}

// Stream encodes annotated frames as JPEG for network viewers.
type Stream struct {
	cfg StreamConfig
	out FramePublisher

	mu     sync.Mutex
	closed bool
}

// NewStream creates a stream sink feeding out.
func NewStream(cfg StreamConfig, out FramePublisher) *Stream {
	if cfg.Quality <= 0 || cfg.Quality > 100 {
		cfg.Quality = DefaultJPEGQuality
	}
	return &Stream{cfg: cfg, out: out}
}

// Encode resizes frame to the stream size if needed and returns JPEG bytes.
func (s *Stream) Encode(frame *gocv.Mat) ([]byte, error) {
	img := *frame
	if s.cfg.Width > 0 && s.cfg.Height > 0 && (frame.Cols() != s.cfg.Width || frame.Rows() != s.cfg.Height) {
		resized := gocv.NewMat()
		defer resized.Close()
		gocv.Resize(*frame, &resized, image.Pt(s.cfg.Width, s.cfg.Height), 0, 0, gocv.InterpolationLinear)
		img = resized
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, []int{gocv.IMWriteJpegQuality, s.cfg.Quality})
	if err != nil {
		return nil, fmt.Errorf("display: encode jpeg: %w", err)
	}
	defer buf.Close()

	// GetBytes aliases native memory freed by Close.
	return bytes.Clone(buf.GetBytes()), nil
}

// SendFrame encodes frame and hands it to the publisher.
func (s *Stream) SendFrame(frame *gocv.Mat) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrStreamClosed
	}

	data, err := s.Encode(frame)
	if err != nil {
		return err
	}
	s.out.Publish(data)
	return nil
}

// Close shuts down the publisher. It is safe to call more than once.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.out.Close()
}
