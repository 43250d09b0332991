// Package display shows annotated frames in a desktop window or encodes
// them for the MJPEG stream.
package display

import (
	"log/slog"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-frcvision/pkg/pipeline"
)

// Key codes understood by the window.
const (
	KeyEsc = 27
	KeyQ   = 'q'
	KeyF   = 'f'
)

// pollDelay is how long Poll waits for a key, in milliseconds. HighGUI
// only repaints while waiting, so this must be at least 1.
const pollDelay = 1

// KeyEvent maps a key code from WaitKey to a loop event.
func KeyEvent(key int) pipeline.Event {
	if key < 0 {
		return pipeline.EventNone
	}
	switch key & 0xff {
	case KeyEsc, KeyQ:
		return pipeline.EventQuit
	case KeyF, 'F':
		return pipeline.EventToggleFullscreen
	default:
		return pipeline.EventNone
	}
}

// highgui is the subset of gocv.Window the display needs.
type highgui interface {
	IMShow(img gocv.Mat)
	WaitKey(delay int) int
	GetWindowProperty(flag gocv.WindowPropertyFlag) float64
	SetWindowProperty(flag gocv.WindowPropertyFlag, value gocv.WindowFlag)
	Close() error
}

// WindowConfig holds desktop window settings
type WindowConfig struct {
	Name   string
	Title  string
	Width  int
	Height int
}

// Window is an interactive desktop display.
type Window struct {
	win        highgui
	fullscreen bool
	logger     *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// NewWindow opens a HighGUI window sized to the camera frame.
func NewWindow(cfg WindowConfig) *Window {
	if cfg.Name == "" {
		cfg.Name = "frcvision"
	}
	w := gocv.NewWindow(cfg.Name)
	if cfg.Title != "" {
		w.SetWindowTitle(cfg.Title)
	}
	if cfg.Width > 0 && cfg.Height > 0 {
		w.ResizeWindow(cfg.Width, cfg.Height)
	}
	return newWindow(&gocvWindow{w})
}

func newWindow(win highgui) *Window {
	return &Window{
		win:    win,
		logger: slog.Default().With("component", "display.window"),
	}
}

// Show draws frame in the window.
func (w *Window) Show(frame *gocv.Mat) error {
	w.win.IMShow(*frame)
	return nil
}

// Poll waits briefly for a key and reports what the user did. A window the
// user has closed reports EventClosed. Every HighGUI backend answers the
// fullscreen property with -1 once the window is gone.
func (w *Window) Poll() pipeline.Event {
	ev := KeyEvent(w.win.WaitKey(pollDelay))

	if w.win.GetWindowProperty(gocv.WindowPropertyFullscreen) < 0 {
		return pipeline.EventClosed
	}

	if ev == pipeline.EventToggleFullscreen {
		w.fullscreen = !w.fullscreen
		mode := gocv.WindowNormal
		if w.fullscreen {
			mode = gocv.WindowFullscreen
		}
		w.win.SetWindowProperty(gocv.WindowPropertyFullscreen, mode)
		w.logger.Debug("fullscreen toggled", "fullscreen", w.fullscreen)
	}
	return ev
}

// Close destroys the window. It is safe to call more than once.
func (w *Window) Close() error {
	w.closeOnce.Do(func() {
		w.closeErr = w.win.Close()
	})
	return w.closeErr
}

// gocvWindow adapts *gocv.Window to highgui, discarding the status
// results newer gocv releases attach to drawing calls.
type gocvWindow struct {
	w *gocv.Window
}

func (g *gocvWindow) IMShow(img gocv.Mat) { g.w.IMShow(img) }

func (g *gocvWindow) WaitKey(delay int) int { return g.w.WaitKey(delay) }

func (g *gocvWindow) GetWindowProperty(flag gocv.WindowPropertyFlag) float64 {
	return g.w.GetWindowProperty(flag)
}

func (g *gocvWindow) SetWindowProperty(flag gocv.WindowPropertyFlag, value gocv.WindowFlag) {
	g.w.SetWindowProperty(flag, value)
}

func (g *gocvWindow) Close() error { return g.w.Close() }
