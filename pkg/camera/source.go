package camera

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"gocv.io/x/gocv"
)

// ErrNotOpen is returned when the capture device or file cannot be opened.
var ErrNotOpen = errors.New("camera: source not open")

// Source reads frames from a gocv capture or a still image. Frames returned
// by Read belong to the caller, who must Close them.
type Source struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	capture  *gocv.VideoCapture
	still    gocv.Mat
	hasStill bool
	served   bool
	released bool
}

// Open starts the capture described by cfg.
func Open(cfg Config) (*Source, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("camera: invalid config: %v", errs)
	}

	s := &Source{
		cfg:    cfg,
		logger: slog.Default().With("component", "camera", "source", cfg.Describe()),
	}

	if cfg.Kind == KindImage {
		img := gocv.IMRead(cfg.Path, gocv.IMReadColor)
		if img.Empty() {
			img.Close()
			return nil, fmt.Errorf("%w: cannot decode %s", ErrNotOpen, cfg.Path)
		}
		s.still = img
		s.hasStill = true
		s.logger.Info("image loaded", "width", img.Cols(), "height", img.Rows())
		return s, nil
	}

	var device interface{} = cfg.Path
	if cfg.Kind == KindUSB {
		device = cfg.Device
	}

	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotOpen, cfg.Describe(), err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w: %s", ErrNotOpen, cfg.Describe())
	}

	if cfg.Width > 0 && cfg.Height > 0 && cfg.Kind == KindUSB {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	}
	s.capture = vc

	s.logger.Info("capture opened",
		"width", int(vc.Get(gocv.VideoCaptureFrameWidth)),
		"height", int(vc.Get(gocv.VideoCaptureFrameHeight)),
		"loop", cfg.Loop,
	)
	return s, nil
}

// Config returns the configuration the source was opened with
func (s *Source) Config() Config {
	return s.cfg
}

// IsOpen reports whether frames can still be read.
func (s *Source) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return false
	}
	if s.hasStill {
		return s.cfg.Loop || !s.served
	}
	return s.capture.IsOpened()
}

// Read returns the next frame, or false at end of stream. It blocks until
// the device delivers a frame.
func (s *Source) Read() (*gocv.Mat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return nil, false
	}

	if s.hasStill {
		if s.served && !s.cfg.Loop {
			return nil, false
		}
		s.served = true
		img := s.still.Clone()
		return &img, true
	}

	frame := gocv.NewMat()
	if s.capture.Read(&frame) && !frame.Empty() {
		return &frame, true
	}

	if s.cfg.Kind == KindVideo && s.cfg.Loop {
		s.logger.Debug("rewinding video")
		s.capture.Set(gocv.VideoCapturePosFrames, 0)
		if s.capture.Read(&frame) && !frame.Empty() {
			return &frame, true
		}
	}

	frame.Close()
	return nil, false
}

// Release closes the capture. It is safe to call more than once.
func (s *Source) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return nil
	}
	s.released = true

	var err error
	if s.capture != nil {
		err = s.capture.Close()
	}
	if s.hasStill {
		s.still.Close()
	}
	s.logger.Info("source released")
	return err
}
