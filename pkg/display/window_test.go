package display

import (
	"errors"
	"testing"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-frcvision/pkg/pipeline"
)

type fakeWindow struct {
	keys []int
	// fullscreen is the answer to property queries; -1 once destroyed.
	fullscreen float64
	queried    []gocv.WindowPropertyFlag
	shown      int
	props      []gocv.WindowFlag
	closeCount int
	closeErr   error
}

func (f *fakeWindow) IMShow(gocv.Mat) { f.shown++ }

func (f *fakeWindow) WaitKey(int) int {
	if len(f.keys) == 0 {
		return -1
	}
	k := f.keys[0]
	f.keys = f.keys[1:]
	return k
}

func (f *fakeWindow) GetWindowProperty(flag gocv.WindowPropertyFlag) float64 {
	f.queried = append(f.queried, flag)
	return f.fullscreen
}

func (f *fakeWindow) SetWindowProperty(_ gocv.WindowPropertyFlag, v gocv.WindowFlag) {
	f.props = append(f.props, v)
}

func (f *fakeWindow) Close() error {
	f.closeCount++
	return f.closeErr
}

func TestKeyEvent(t *testing.T) {
	tests := []struct {
		name string
		key  int
		want pipeline.Event
	}{
		{"no key", -1, pipeline.EventNone},
		{"esc", 27, pipeline.EventQuit},
		{"q", 'q', pipeline.EventQuit},
		{"f", 'f', pipeline.EventToggleFullscreen},
		{"F", 'F', pipeline.EventToggleFullscreen},
		{"other", 'x', pipeline.EventNone},
		{"q with modifier bits", 0x100000 | 'q', pipeline.EventQuit},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := KeyEvent(tc.key); got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestWindow_Poll(t *testing.T) {
	fake := &fakeWindow{keys: []int{'f', -1, 'F', 27}}
	w := newWindow(fake)

	want := []pipeline.Event{
		pipeline.EventToggleFullscreen,
		pipeline.EventNone,
		pipeline.EventToggleFullscreen,
		pipeline.EventQuit,
	}
	for i, ev := range want {
		if got := w.Poll(); got != ev {
			t.Errorf("poll %d: got %v, want %v", i, got, ev)
		}
	}

	if len(fake.props) != 2 || fake.props[0] != gocv.WindowFullscreen || fake.props[1] != gocv.WindowNormal {
		t.Errorf("fullscreen changes: got %v", fake.props)
	}
	if w.fullscreen {
		t.Error("window should be back to normal")
	}
}

func TestWindow_ClosedByUser(t *testing.T) {
	tests := []struct {
		name     string
		property float64
		want     pipeline.Event
	}{
		{"normal", 0, pipeline.EventNone},
		{"fullscreen", 1, pipeline.EventNone},
		{"destroyed", -1, pipeline.EventClosed},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fake := &fakeWindow{fullscreen: tc.property}
			w := newWindow(fake)

			if got := w.Poll(); got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
			// Some backends answer -1 for the visible property.
			for _, flag := range fake.queried {
				if flag != gocv.WindowPropertyFullscreen {
					t.Errorf("queried property %v", flag)
				}
			}
		})
	}
}

func TestWindow_CloseOnce(t *testing.T) {
	errDestroy := errors.New("destroy failed")
	fake := &fakeWindow{closeErr: errDestroy}
	w := newWindow(fake)

	for i := 0; i < 3; i++ {
		if err := w.Close(); !errors.Is(err, errDestroy) {
			t.Errorf("Close %d: got %v", i, err)
		}
	}
	if fake.closeCount != 1 {
		t.Errorf("closed %d times, want 1", fake.closeCount)
	}
}

func TestWindow_Show(t *testing.T) {
	fake := &fakeWindow{}
	w := newWindow(fake)

	frame := gocv.NewMat()
	defer frame.Close()

	if err := w.Show(&frame); err != nil {
		t.Fatalf("Show: %v", err)
	}
	if fake.shown != 1 {
		t.Errorf("shown %d, want 1", fake.shown)
	}
}
