package web

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-frcvision/pkg/hub"
)

// ContentTypeProtobuf selects the protobuf form of /api/detections.
const ContentTypeProtobuf = "application/x-protobuf"

// handleIndex serves the dashboard page
func (s *Server) handleIndex(c *fiber.Ctx) error {
	c.Type("html")
	return c.SendString(renderDashboard(s.title))
}

// handleSnapshot returns the latest annotated frame
func (s *Server) handleSnapshot(c *fiber.Ctx) error {
	frame, ok := s.frames.Latest()
	if !ok {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "no frame available",
		})
	}
	c.Set(fiber.HeaderContentType, "image/jpeg")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	return c.Send(frame)
}

// handleStatus returns pipeline, stream and websocket state
func (s *Server) handleStatus(c *fiber.Ctx) error {
	resp := fiber.Map{
		"stream":    s.frames.Stats(),
		"telemetry": s.hub.Stats(),
	}
	if s.status != nil {
		resp["pipeline"] = s.status()
	}
	return c.JSON(resp)
}

// handleDetections returns the latest report as JSON or protobuf
func (s *Server) handleDetections(c *fiber.Ctx) error {
	if s.latest == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "detections not published",
		})
	}

	report, ok := s.latest.Get()
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "no detections yet",
		})
	}

	if strings.Contains(c.Get(fiber.HeaderAccept), ContentTypeProtobuf) {
		data, err := report.MarshalProto()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		c.Set(fiber.HeaderContentType, ContentTypeProtobuf)
		return c.Send(data)
	}

	return c.JSON(report.Snapshot())
}

// handleTelemetryWS streams report snapshots to a dashboard client
func (s *Server) handleTelemetryWS(c *websocket.Conn) {
	hub.NewClient(s.hub, c).Serve()
}
