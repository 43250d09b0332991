package detection

import (
	"errors"
	"testing"
)

func TestParseModelName(t *testing.T) {
	tests := []struct {
		name       string
		model      string
		wantFamily string
		wantW      int
		wantH      int
		wantErr    bool
	}{
		{name: "square", model: "yolov4-416", wantFamily: "yolov4", wantW: 416, wantH: 416},
		{name: "tiny square", model: "yolov4-tiny-288", wantFamily: "yolov4-tiny", wantW: 288, wantH: 288},
		{name: "wxh", model: "yolov4-tiny-416x256", wantFamily: "yolov4-tiny", wantW: 416, wantH: 256},
		{name: "no suffix", model: "yolov4", wantErr: true},
		{name: "trailing dash", model: "yolov4-", wantErr: true},
		{name: "not a number", model: "yolov4-tiny", wantErr: true},
		{name: "half dimension", model: "yolov4-416x", wantErr: true},
		{name: "not multiple of 32", model: "yolov4-300", wantErr: true},
		{name: "zero", model: "yolov4-0", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			spec, err := ParseModelName(tc.model)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidModelName) {
					t.Fatalf("expected ErrInvalidModelName, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if spec.Family != tc.wantFamily || spec.Width != tc.wantW || spec.Height != tc.wantH {
				t.Errorf("got %s %dx%d, want %s %dx%d",
					spec.Family, spec.Width, spec.Height, tc.wantFamily, tc.wantW, tc.wantH)
			}
			if spec.Name != tc.model {
				t.Errorf("Name: got %q, want %q", spec.Name, tc.model)
			}
		})
	}
}
