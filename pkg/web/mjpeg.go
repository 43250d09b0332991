package web

import (
	"bufio"
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Boundary separates MJPEG parts.
const Boundary = "frame"

// DefaultKeepalive is how long a stream waits before repeating a blank frame.
const DefaultKeepalive = 5 * time.Second

// blankJPEG renders a grey placeholder frame.
func blankJPEG(w, h int) ([]byte, error) {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 64
	}
	// Thin border so the placeholder is visibly not a camera frame
	for x := 0; x < w; x++ {
		img.SetGray(x, 0, color.Gray{Y: 200})
		img.SetGray(x, h-1, color.Gray{Y: 200})
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 75}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writePart writes one multipart JPEG section and flushes it.
func writePart(w *bufio.Writer, frame []byte) error {
	if _, err := fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", Boundary, len(frame)); err != nil {
		return err
	}
	if _, err := w.Write(frame); err != nil {
		return err
	}
	if _, err := w.WriteString("\r\n"); err != nil {
		return err
	}
	return w.Flush()
}

// handleStream serves the annotated video as multipart/x-mixed-replace.
func (s *Server) handleStream(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "multipart/x-mixed-replace; boundary="+Boundary)
	c.Set(fiber.HeaderCacheControl, "no-cache, no-store, must-revalidate")
	c.Set(fiber.HeaderConnection, "keep-alive")

	id, frames := s.frames.Subscribe()
	latest, hasLatest := s.frames.Latest()

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer s.frames.Unsubscribe(id)

		if hasLatest {
			if err := writePart(w, latest); err != nil {
				return
			}
		}

		timer := time.NewTimer(s.keepalive)
		defer timer.Stop()

		for {
			var frame []byte
			select {
			case f, ok := <-frames:
				if !ok {
					return
				}
				frame = f
			case <-timer.C:
				frame = s.blank
			}

			if err := writePart(w, frame); err != nil {
				s.logger.Debug("stream client gone", "id", id, "error", err)
				return
			}

			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(s.keepalive)
		}
	})
	return nil
}
