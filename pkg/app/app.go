// Package app wires the camera, detector, overlay, display, telemetry and
// web server into one vision process.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gocv.io/x/gocv"
	"golang.org/x/sync/errgroup"

	"github.com/teslashibe/go-frcvision/internal/config"
	"github.com/teslashibe/go-frcvision/pkg/camera"
	"github.com/teslashibe/go-frcvision/pkg/detection"
	"github.com/teslashibe/go-frcvision/pkg/detection/yolo"
	"github.com/teslashibe/go-frcvision/pkg/display"
	"github.com/teslashibe/go-frcvision/pkg/metrics"
	"github.com/teslashibe/go-frcvision/pkg/networktables"
	"github.com/teslashibe/go-frcvision/pkg/overlay"
	"github.com/teslashibe/go-frcvision/pkg/pipeline"
	"github.com/teslashibe/go-frcvision/pkg/telemetry"
	"github.com/teslashibe/go-frcvision/pkg/web"
)

// ErrNotInitialized is returned by Run before a successful Init.
var ErrNotInitialized = errors.New("app: not initialized")

// shutdownTimeout bounds web server shutdown.
const shutdownTimeout = 5 * time.Second

// Option customizes an App.
type Option func(*App)

// WithPublisher adds a telemetry publisher alongside the built-in ones.
func WithPublisher(p telemetry.Publisher) Option {
	return func(a *App) {
		a.extra = append(a.extra, p)
	}
}

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		a.logger = l
	}
}

// App owns every long-lived resource of the vision process.
type App struct {
	cfg    Config
	runID  string
	logger *slog.Logger
	extra  []telemetry.Publisher

	frc       *config.FRCConfig
	model     *config.ModelConfig
	labels    detection.LabelMap
	threshold float64

	source    *camera.Source
	detector  *yolo.Detector
	metrics   *metrics.Metrics
	server    *web.Server
	nt        *networktables.Client
	async     *telemetry.Async
	publisher *telemetry.Multi
	pipeline  *pipeline.Pipeline[*gocv.Mat]

	served       bool
	shutdownOnce sync.Once
	shutdownErr  error
}

// New validates cfg. A missing or unreadable model is reported as a
// *ConfigError before any device is opened.
func New(cfg Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{
		cfg:   cfg,
		runID: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	a.logger = a.logger.With("component", "app", "run_id", a.runID)
	return a, nil
}

// Init loads descriptors and opens the camera, detector, display,
// telemetry and web server. On error everything opened so far is released
// by Shutdown.
func (a *App) Init(ctx context.Context) error {
	if err := a.loadDescriptors(ctx); err != nil {
		return err
	}

	labels, categories, err := ResolveLabels(a.cfg, a.model)
	if err != nil {
		return err
	}
	a.labels = labels

	threshold, from := ResolveThreshold(a.cfg, a.model)
	a.threshold = threshold
	a.logger.Info("confidence threshold", "value", threshold, "source", from)

	camCfg := a.cameraConfig()
	a.source, err = camera.Open(camCfg)
	if err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	if !a.source.IsOpen() {
		return fmt.Errorf("open camera: %w", camera.ErrNotOpen)
	}

	yoloCfg := yolo.DefaultConfig()
	yoloCfg.ModelDir = a.cfg.ModelDir
	yoloCfg.Model = a.cfg.Model
	yoloCfg.Categories = categories
	yoloCfg.Letterbox = a.cfg.Letterbox
	yoloCfg.Backend = a.cfg.Backend
	yoloCfg.Target = a.cfg.Target
	yoloCfg.Logger = a.logger
	a.detector, err = yolo.New(yoloCfg)
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}

	a.metrics = metrics.New()
	latest := telemetry.NewLatest()

	a.server, err = web.NewServer(web.Config{
		Port:    a.cfg.MJPEGPort,
		Title:   a.cfg.Title,
		Latest:  latest,
		Status:  a.status,
		Metrics: a.metrics.Handler(),
		Logger:  a.logger,
	})
	if err != nil {
		return err
	}

	a.publisher = telemetry.NewMulti(
		latest,
		telemetry.NewHub(a.server.Hub(), a.cfg.TelemetryRate),
		telemetry.NewLog(a.logger),
	)
	for _, p := range a.extra {
		a.publisher.Add(p)
	}
	if err := a.initNetworkTables(); err != nil {
		return err
	}

	disp := a.buildDisplay(camCfg)

	a.pipeline, err = pipeline.New(pipeline.Config[*gocv.Mat]{
		Source:    a.source,
		Detector:  a.detector,
		Annotator: overlay.New(labels),
		Display:   disp,
		Publisher: a.publisher,
		Labels:    labels,
		Threshold: threshold,
		FrameSize: func(m *gocv.Mat) (int, int) { return m.Cols(), m.Rows() },
		Observer:  a.metrics,
		Logger:    a.logger,
	})
	if err != nil {
		return err
	}

	a.registerGauges()
	a.logger.Info("initialized",
		"model", a.cfg.Model,
		"camera", camCfg.Describe(),
		"display", disp.Mode(),
		"labels", labels.Len(),
		"networktables", a.nt != nil,
	)
	return nil
}

func (a *App) loadDescriptors(ctx context.Context) error {
	var err error
	if a.cfg.FRCConfig != "" {
		a.frc, err = config.LoadFRC(ctx, a.cfg.FRCConfig)
		if err != nil {
			return &ConfigError{Field: "frc-config", Message: err.Error()}
		}
		a.logger.Info("team descriptor loaded", "team", a.frc.Team, "ntmode", a.frc.NTMode, "cameras", len(a.frc.Cameras))
	}
	if a.cfg.ModelConfig != "" {
		a.model, err = config.LoadModel(ctx, a.cfg.ModelConfig)
		if err != nil {
			return &ConfigError{Field: "model-config", Message: err.Error()}
		}
		attrs := []any{"labels", a.model.LabelMap, "classes", a.model.Classes}
		if a.model.ConfidenceThreshold != nil {
			attrs = append(attrs, "confidence_threshold", *a.model.ConfidenceThreshold)
		}
		a.logger.Info("model descriptor loaded", attrs...)
	}
	return nil
}

// cameraConfig takes the USB capture size from the first frc.json camera
// unless a size was given explicitly.
func (a *App) cameraConfig() camera.Config {
	c := a.cfg.Camera
	if a.frc == nil || len(a.frc.Cameras) == 0 || c.Kind != camera.KindUSB || a.cfg.CameraSized {
		return c
	}
	if cam := a.frc.Cameras[0]; cam.Width > 0 && cam.Height > 0 {
		c.Width, c.Height = cam.Width, cam.Height
	}
	return c
}

// ntConfig resolves where to connect. The flag server wins, then a team
// descriptor in server mode (the server runs on this host), then the team
// number. It reports false when there is nothing to connect to.
func (a *App) ntConfig() (networktables.Config, bool) {
	cfg := networktables.DefaultConfig()
	cfg.Logger = a.logger
	cfg.Server = a.cfg.NTServer
	cfg.Team = a.cfg.Team
	if a.frc == nil {
		return cfg, cfg.Server != "" || cfg.Team != 0
	}

	if cfg.Team == 0 {
		cfg.Team = a.frc.Team
	}
	if cfg.Server == "" && a.frc.NTMode == config.NTModeServer {
		cfg.Server = "localhost"
		a.logger.Info("frc.json requests server mode; connecting to local server", "server", cfg.Server)
	}
	return cfg, cfg.Server != "" || cfg.Team != 0
}

func (a *App) initNetworkTables() error {
	if a.cfg.NoNT {
		a.logger.Info("networktables disabled")
		return nil
	}

	ntCfg, ok := a.ntConfig()
	if !ok {
		a.logger.Warn("no team number or server; networktables disabled")
		return nil
	}

	client, err := networktables.New(ntCfg)
	if err != nil {
		return &ConfigError{Field: "nt-server", Message: err.Error()}
	}
	if _, err := client.Subscribe(networktables.FMSInfoPrefix); err != nil {
		return err
	}
	a.nt = client
	a.async = telemetry.NewAsync(telemetry.NewNT(client, a.cfg.Table, a.cfg.Hardware), telemetry.DefaultQueueSize, a.logger)
	a.publisher.Add(a.async)
	return nil
}

func (a *App) buildDisplay(camCfg camera.Config) pipeline.Display[*gocv.Mat] {
	if a.cfg.GUI {
		return pipeline.WindowDisplay[*gocv.Mat](display.NewWindow(display.WindowConfig{
			Name:   "frcvision",
			Title:  a.cfg.Title,
			Width:  camCfg.Width,
			Height: camCfg.Height,
		}))
	}
	return pipeline.StreamDisplay[*gocv.Mat](display.NewStream(display.StreamConfig{
		Width:   a.cfg.StreamWidth,
		Height:  a.cfg.StreamHeight,
		Quality: a.cfg.JPEGQuality,
	}, a.server.Frames()))
}

func (a *App) registerGauges() {
	a.metrics.GaugeFunc("telemetry_clients", "Connected dashboard websockets", func() float64 {
		return float64(a.server.Hub().ClientCount())
	})
	a.metrics.GaugeFunc("stream_clients", "Connected MJPEG viewers", func() float64 {
		return float64(a.server.Frames().Clients())
	})
	if a.nt != nil {
		a.metrics.GaugeFunc("networktables_connected", "1 when the NT4 session is live", func() float64 {
			if a.nt.Connected() {
				return 1
			}
			return 0
		})
		a.metrics.GaugeFunc("networktables_dropped", "Reports dropped by the NT publish queue", func() float64 {
			return float64(a.async.Stats().Dropped)
		})
	}
}

// status feeds /api/status.
func (a *App) status() interface{} {
	s := map[string]interface{}{
		"run_id":    a.runID,
		"model":     a.cfg.Model,
		"threshold": a.threshold,
		"labels":    a.labels.Names(),
	}
	if a.detector != nil {
		spec := a.detector.Spec()
		s["input"] = fmt.Sprintf("%dx%d", spec.Width, spec.Height)
	}
	if a.pipeline != nil {
		s["pipeline"] = a.pipeline.Stats()
	}
	if a.nt != nil {
		s["networktables"] = a.nt.Stats()
		s["nt_queue"] = a.async.Stats()
		fms := make(map[string]interface{})
		for name, v := range a.nt.Values(networktables.FMSInfoPrefix) {
			fms[strings.TrimPrefix(name, networktables.FMSInfoPrefix)] = v.Data
		}
		s["fms"] = fms
	}
	return s
}

// Run processes frames until the source ends, the window is closed, the
// pipeline fails or ctx is cancelled. The end of the pipeline stops the
// web server and the NetworkTables client.
func (a *App) Run(ctx context.Context) error {
	if a.pipeline == nil {
		return ErrNotInitialized
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		return a.pipeline.Run(gctx)
	})

	a.served = true
	g.Go(func() error {
		return a.server.Run(gctx)
	})

	if a.nt != nil {
		g.Go(func() error {
			// A missing robot must not stop the vision loop.
			if err := a.nt.Run(gctx); err != nil {
				a.logger.Warn("networktables stopped", "error", err)
			}
			return nil
		})
	}

	return g.Wait()
}

// Shutdown releases everything Init opened. It is safe to call more than
// once and after a failed Init.
func (a *App) Shutdown() error {
	a.shutdownOnce.Do(func() {
		var err error
		if a.pipeline != nil {
			err = multierr.Append(err, a.pipeline.Close())
		} else if a.source != nil {
			err = multierr.Append(err, a.source.Release())
		}
		if a.publisher != nil {
			err = multierr.Append(err, a.publisher.Close())
		}
		if a.nt != nil {
			err = multierr.Append(err, a.nt.Close())
		}
		if a.detector != nil {
			err = multierr.Append(err, a.detector.Close())
		}
		if a.server != nil && !a.served {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			err = multierr.Append(err, a.server.Shutdown(ctx))
			cancel()
		}
		a.shutdownErr = err
		a.logger.Info("shutdown complete", "error", err)
	})
	return a.shutdownErr
}
