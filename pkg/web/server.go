// Package web serves the MJPEG stream, the status API, the telemetry
// websocket and Prometheus metrics.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	jsoniter "github.com/json-iterator/go"

	"github.com/teslashibe/go-frcvision/pkg/hub"
	"github.com/teslashibe/go-frcvision/pkg/telemetry"
)

// Config holds web server dependencies. Frames and Hub are created when
// nil; Latest, Status and Metrics are optional.
type Config struct {
	Port  int
	Title string

	Frames  *Broadcaster
	Hub     *hub.Hub
	Latest  *telemetry.Latest
	Status  func() interface{}
	Metrics http.Handler

	// Keepalive is the blank-frame interval for idle streams.
	Keepalive time.Duration

	Logger *slog.Logger
}

// Server is the dashboard and MJPEG server
type Server struct {
	app       *fiber.App
	port      int
	frames    *Broadcaster
	hub       *hub.Hub
	latest    *telemetry.Latest
	status    func() interface{}
	blank     []byte
	keepalive time.Duration
	title     string
	logger    *slog.Logger
}

// NewServer creates the fiber app and registers routes.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("web: invalid port %d", cfg.Port)
	}
	if cfg.Title == "" {
		cfg.Title = "FRC Vision"
	}
	if cfg.Frames == nil {
		cfg.Frames = NewBroadcaster()
	}
	if cfg.Hub == nil {
		cfg.Hub = hub.New("telemetry")
	}
	if cfg.Keepalive <= 0 {
		cfg.Keepalive = DefaultKeepalive
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	blank, err := blankJPEG(320, 240)
	if err != nil {
		return nil, fmt.Errorf("web: render placeholder: %w", err)
	}

	s := &Server{
		port:      cfg.Port,
		frames:    cfg.Frames,
		hub:       cfg.Hub,
		latest:    cfg.Latest,
		status:    cfg.Status,
		blank:     blank,
		keepalive: cfg.Keepalive,
		title:     cfg.Title,
		logger:    logger.With("component", "web"),
	}

	app := fiber.New(fiber.Config{
		AppName:               cfg.Title,
		DisableStartupMessage: true,
		JSONEncoder:           jsoniter.Marshal,
		JSONDecoder:           jsoniter.Unmarshal,
	})

	app.Use(cors.New())

	app.Get("/", s.handleIndex)
	app.Get("/stream", s.handleStream)
	app.Get("/stream.mjpg", s.handleStream)
	app.Get("/snapshot.jpg", s.handleSnapshot)

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/detections", s.handleDetections)

	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics))
	}

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/telemetry", websocket.New(s.handleTelemetryWS))

	s.app = app
	return s, nil
}

// Frames returns the frame broadcaster fed by the stream sink
func (s *Server) Frames() *Broadcaster {
	return s.frames
}

// Hub returns the telemetry websocket hub
func (s *Server) Hub() *hub.Hub {
	return s.hub
}

// App returns the underlying fiber app
func (s *Server) App() *fiber.App {
	return s.app
}

// Run serves until ctx is cancelled, then shuts down.
func (s *Server) Run(ctx context.Context) error {
	go s.hub.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("web server listening", "addr", fmt.Sprintf("http://localhost:%d", s.port))
		errCh <- s.app.Listen(fmt.Sprintf(":%d", s.port))
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("web: listen: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	}
}

// Shutdown disconnects stream clients and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.frames.Close()
	err := s.app.ShutdownWithContext(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		s.logger.Warn("web shutdown timed out")
	}
	return err
}
