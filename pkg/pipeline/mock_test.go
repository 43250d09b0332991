package pipeline

import (
	"sync"

	"github.com/teslashibe/go-frcvision/pkg/detection"
)

// frame is the test frame type. Closing counts so tests can check that
// annotated copies are released.
type frame struct {
	id     int
	closed int
}

func (f *frame) Close() error {
	f.closed++
	return nil
}

type mockSource struct {
	mu       sync.Mutex
	frames   []*frame
	pos      int
	released int

	ReadFunc func() (*frame, bool)
}

func newSource(n int) *mockSource {
	s := &mockSource{}
	for i := 0; i < n; i++ {
		s.frames = append(s.frames, &frame{id: i})
	}
	return s
}

func (s *mockSource) Read() (*frame, bool) {
	if s.ReadFunc != nil {
		return s.ReadFunc()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos >= len(s.frames) {
		return nil, false
	}
	f := s.frames[s.pos]
	s.pos++
	return f, true
}

func (s *mockSource) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released == 0
}

func (s *mockSource) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released++
	return nil
}

type mockDetector struct {
	DetectFunc func(f *frame, threshold float64) ([]detection.Detection, error)
	calls      int
	thresholds []float64
}

func (d *mockDetector) Detect(f *frame, threshold float64) ([]detection.Detection, error) {
	d.calls++
	d.thresholds = append(d.thresholds, threshold)
	if d.DetectFunc != nil {
		return d.DetectFunc(f, threshold)
	}
	return nil, nil
}

type mockAnnotator struct {
	AnnotateFunc func(f *frame, dets []detection.Detection, fps float64) (*frame, error)
	fps          []float64
	out          []*frame
}

func (a *mockAnnotator) Annotate(f *frame, dets []detection.Detection, fps float64) (*frame, error) {
	a.fps = append(a.fps, fps)
	if a.AnnotateFunc != nil {
		return a.AnnotateFunc(f, dets, fps)
	}
	out := &frame{id: f.id}
	a.out = append(a.out, out)
	return out, nil
}

type mockWindow struct {
	events []Event
	shown  []*frame
	closed int
}

func (w *mockWindow) Show(f *frame) error {
	w.shown = append(w.shown, f)
	return nil
}

func (w *mockWindow) Poll() Event {
	if len(w.events) == 0 {
		return EventNone
	}
	ev := w.events[0]
	w.events = w.events[1:]
	return ev
}

func (w *mockWindow) Close() error {
	w.closed++
	return nil
}

type mockStream struct {
	SendFunc func(f *frame) error
	sent     []*frame
	closed   int
}

func (s *mockStream) SendFrame(f *frame) error {
	s.sent = append(s.sent, f)
	if s.SendFunc != nil {
		return s.SendFunc(f)
	}
	return nil
}

func (s *mockStream) Close() error {
	s.closed++
	return nil
}

type mockObserver struct {
	frames []FrameStats
	errors []string
}

func (o *mockObserver) ObserveFrame(st FrameStats) { o.frames = append(o.frames, st) }
func (o *mockObserver) ObserveError(stage string)  { o.errors = append(o.errors, stage) }
