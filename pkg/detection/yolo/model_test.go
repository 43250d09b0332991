package yolo

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFindModel(t *testing.T) {
	tests := []struct {
		name    string
		files   []string
		want    Files
		wantErr bool
	}{
		{
			name:  "onnx",
			files: []string{"yolov8n-640.onnx"},
			want:  Files{Format: FormatONNX, Model: "yolov8n-640.onnx"},
		},
		{
			name:  "darknet pair",
			files: []string{"yolov8n-640.cfg", "yolov8n-640.weights"},
			want:  Files{Format: FormatDarknet, Model: "yolov8n-640.weights", Config: "yolov8n-640.cfg"},
		},
		{
			name:  "onnx preferred over darknet",
			files: []string{"yolov8n-640.onnx", "yolov8n-640.cfg", "yolov8n-640.weights"},
			want:  Files{Format: FormatONNX, Model: "yolov8n-640.onnx"},
		},
		{
			name:    "cfg without weights",
			files:   []string{"yolov8n-640.cfg"},
			wantErr: true,
		},
		{
			name:    "nothing",
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			for _, f := range tc.files {
				touch(t, filepath.Join(dir, f))
			}

			got, err := FindModel(dir, "yolov8n-640")
			if tc.wantErr {
				if !errors.Is(err, ErrModelNotFound) {
					t.Errorf("got %v, want ErrModelNotFound", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("FindModel: %v", err)
			}

			want := tc.want
			want.Model = filepath.Join(dir, want.Model)
			if want.Config != "" {
				want.Config = filepath.Join(dir, want.Config)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("files mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
