package camera

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"gocv.io/x/gocv"
)

func writeTestImage(t *testing.T) string {
	t.Helper()
	img := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	defer img.Close()

	path := filepath.Join(t.TempDir(), "still.png")
	if !gocv.IMWrite(path, img) {
		t.Skip("image codecs unavailable")
	}
	return path
}

func TestOpen_Image(t *testing.T) {
	tests := []struct {
		name  string
		loop  bool
		reads int
		want  int
	}{
		{name: "once", loop: false, reads: 3, want: 1},
		{name: "looping", loop: true, reads: 3, want: 3},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			src, err := Open(Config{Kind: KindImage, Path: writeTestImage(t), Loop: tc.loop})
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer src.Release()

			got := 0
			for i := 0; i < tc.reads; i++ {
				frame, ok := src.Read()
				if !ok {
					break
				}
				if frame.Cols() != 64 || frame.Rows() != 48 {
					t.Errorf("frame size: got %dx%d", frame.Cols(), frame.Rows())
				}
				frame.Close()
				got++
			}
			if got != tc.want {
				t.Errorf("frames: got %d, want %d", got, tc.want)
			}
		})
	}
}

func TestSource_ReleaseIdempotent(t *testing.T) {
	src, err := Open(Config{Kind: KindImage, Path: writeTestImage(t), Loop: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if !src.IsOpen() {
		t.Fatal("source should be open")
	}
	for i := 0; i < 2; i++ {
		if err := src.Release(); err != nil {
			t.Fatalf("Release %d: %v", i, err)
		}
	}
	if src.IsOpen() {
		t.Error("source should be closed after Release")
	}
	if _, ok := src.Read(); ok {
		t.Error("Read after Release should fail")
	}
}

func TestOpen_MissingVideo(t *testing.T) {
	_, err := Open(Config{Kind: KindVideo, Path: "/nonexistent/match.mp4"})
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestOpen_UndecodableImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.jpg")
	if err := os.WriteFile(path, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Open(Config{Kind: KindImage, Path: path})
	if !errors.Is(err, ErrNotOpen) {
		t.Errorf("got %v, want ErrNotOpen", err)
	}
}
