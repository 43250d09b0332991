// Package pipeline runs the capture, detect, annotate, display and publish
// loop one frame at a time and keeps the smoothed frame rate.
//
// The loop is single-threaded. Blocking in Source.Read is the only
// backpressure point; no stage has a timeout. Any stage failure ends the
// loop, and the source and display are released exactly once on every
// exit path.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"

	"github.com/teslashibe/go-frcvision/pkg/detection"
	"github.com/teslashibe/go-frcvision/pkg/telemetry"
)

// Config wires the stages of a Pipeline.
type Config[F any] struct {
	Source    Source[F]
	Detector  Detector[F]
	Annotator Annotator[F]
	Display   Display[F]
	Publisher Publisher

	// Labels are forwarded with every report.
	Labels    detection.LabelMap
	Threshold float64

	// FrameSize reports frame dimensions for telemetry. Optional.
	FrameSize func(F) (w, h int)

	// Optional
	Observer Observer
	Logger   *slog.Logger

	// Now is the clock used for frame-rate measurement. Defaults to time.Now.
	Now func() time.Time
}

// FrameStats describes one completed iteration.
type FrameStats struct {
	Index      uint64
	Detections int
	FPS        float64

	Detect   time.Duration
	Annotate time.Duration
	Display  time.Duration
	Publish  time.Duration
}

// Stats is a snapshot of loop progress, safe to read from any goroutine.
type Stats struct {
	Display        string  `json:"display"`
	Running        bool    `json:"running"`
	Frames         uint64  `json:"frames"`
	FPS            float64 `json:"fps"`
	LastDetections int     `json:"last_detections"`
}

// Pipeline sequences the stages once per frame.
type Pipeline[F any] struct {
	cfg    Config[F]
	logger *slog.Logger
	now    func() time.Time

	// Owned by the loop goroutine.
	fps   FPSMeter
	index uint64

	// Snapshot for Stats.
	frames         atomic.Uint64
	fpsBits        atomic.Uint64
	lastDetections atomic.Int64
	running        atomic.Bool

	closeOnce sync.Once
	closeErr  error
}

// New validates cfg and returns a Pipeline ready to Run.
func New[F any](cfg Config[F]) (*Pipeline[F], error) {
	switch {
	case cfg.Source == nil:
		return nil, fmt.Errorf("%w: source", ErrMissingStage)
	case cfg.Detector == nil:
		return nil, fmt.Errorf("%w: detector", ErrMissingStage)
	case cfg.Annotator == nil:
		return nil, fmt.Errorf("%w: annotator", ErrMissingStage)
	case cfg.Publisher == nil:
		return nil, fmt.Errorf("%w: publisher", ErrMissingStage)
	}
	if err := cfg.Display.validate(); err != nil {
		return nil, err
	}

	p := &Pipeline[F]{
		cfg:    cfg,
		logger: cfg.Logger,
		now:    cfg.Now,
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	p.logger = p.logger.With("component", "pipeline")
	if p.now == nil {
		p.now = time.Now
	}
	return p, nil
}

// Run processes frames until the source is exhausted, the window is closed
// or quit, ctx is cancelled, or a stage fails. Only stage failures are
// returned as errors. The source and display are released before Run
// returns, and release errors are combined with the loop error.
func (p *Pipeline[F]) Run(ctx context.Context) (err error) {
	p.running.Store(true)
	defer func() {
		p.running.Store(false)
		err = multierr.Append(err, p.Close())
	}()

	p.logger.Info("pipeline started",
		"display", p.cfg.Display.Mode(),
		"threshold", p.cfg.Threshold,
		"labels", p.cfg.Labels.Len(),
	)
	p.fps.Start(p.now())

	for {
		if ctx.Err() != nil {
			p.logger.Info("pipeline stopped", "reason", "cancelled", "frames", p.index)
			return nil
		}

		reason, err := p.step(ctx)
		if err != nil {
			p.logger.Error("pipeline failed", "error", err, "frames", p.index)
			return err
		}
		if reason != "" {
			p.logger.Info("pipeline stopped", "reason", reason, "frames", p.index)
			return nil
		}
	}
}

// step runs one iteration. A non-empty reason ends the loop cleanly.
func (p *Pipeline[F]) step(ctx context.Context) (reason string, err error) {
	frame, ok := p.cfg.Source.Read()
	if !ok {
		return "end of stream", nil
	}
	defer closeFrame(frame)

	index := p.index
	p.index++
	st := FrameStats{Index: index}

	var dets []detection.Detection
	err = p.stage(StageDetect, index, &st.Detect, func() (err error) {
		dets, err = p.cfg.Detector.Detect(frame, p.cfg.Threshold)
		return err
	})
	if err != nil {
		return "", err
	}

	var annotated F
	err = p.stage(StageAnnotate, index, &st.Annotate, func() (err error) {
		annotated, err = p.cfg.Annotator.Annotate(frame, dets, p.fps.FPS())
		return err
	})
	if err != nil {
		return "", err
	}
	defer closeFrame(annotated)

	err = p.stage(StageDisplay, index, &st.Display, func() error {
		return p.cfg.Display.send(annotated)
	})
	if err != nil {
		return "", err
	}

	now := p.now()
	fps := p.fps.Tick(now)

	report := telemetry.Report{
		Frame:      index,
		Detections: dets,
		Labels:     p.cfg.Labels,
		FPS:        fps,
		Timestamp:  now,
	}
	if p.cfg.FrameSize != nil {
		report.Width, report.Height = p.cfg.FrameSize(frame)
	}

	err = p.stage(StagePublish, index, &st.Publish, func() error {
		return p.cfg.Publisher.PutData(ctx, report)
	})
	if err != nil {
		return "", err
	}

	st.Detections = len(dets)
	st.FPS = fps
	p.frames.Add(1)
	p.fpsBits.Store(math.Float64bits(fps))
	p.lastDetections.Store(int64(len(dets)))
	if p.cfg.Observer != nil {
		p.cfg.Observer.ObserveFrame(st)
	}

	ev := p.cfg.Display.poll()
	if ev != EventNone {
		p.logger.Debug("window event", "event", ev.String())
	}
	if ev.Stops() {
		return ev.String(), nil
	}
	return "", nil
}

// stage times fn, converts a panic into an error and tags failures with
// the stage name and frame index.
func (p *Pipeline[F]) stage(name string, index uint64, took *time.Duration, fn func() error) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
		*took = time.Since(start)
		if err != nil {
			if p.cfg.Observer != nil {
				p.cfg.Observer.ObserveError(name)
			}
			err = &StageError{Stage: name, Frame: index, Err: err}
		}
	}()
	return fn()
}

// Close releases the source and the display sink. It runs once; later
// calls return the first result.
func (p *Pipeline[F]) Close() error {
	p.closeOnce.Do(func() {
		p.logger.Info("releasing camera and display", "display", p.cfg.Display.Mode())
		p.closeErr = multierr.Combine(
			p.cfg.Source.Release(),
			p.cfg.Display.close(),
		)
	})
	return p.closeErr
}

// Stats returns a snapshot of loop progress.
func (p *Pipeline[F]) Stats() Stats {
	return Stats{
		Display:        p.cfg.Display.Mode(),
		Running:        p.running.Load(),
		Frames:         p.frames.Load(),
		FPS:            math.Float64frombits(p.fpsBits.Load()),
		LastDetections: int(p.lastDetections.Load()),
	}
}

// closeFrame releases frames that hold native memory.
func closeFrame(frame any) {
	if c, ok := frame.(io.Closer); ok {
		c.Close()
	}
}
