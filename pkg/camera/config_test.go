package camera

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfig_Validate(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "match.mp4")
	if err := os.WriteFile(video, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "default", cfg: DefaultConfig()},
		{name: "video", cfg: Config{Kind: KindVideo, Path: video, Loop: true}},
		{name: "rtsp", cfg: Config{Kind: KindRTSP, Path: "rtsp://10.2.54.11/stream"}},
		{name: "unknown kind", cfg: Config{Kind: "gige"}, wantErr: true},
		{name: "negative device", cfg: Config{Kind: KindUSB, Device: -1}, wantErr: true},
		{name: "video without path", cfg: Config{Kind: KindVideo}, wantErr: true},
		{name: "missing image", cfg: Config{Kind: KindImage, Path: filepath.Join(dir, "nope.jpg")}, wantErr: true},
		{name: "rtsp without uri", cfg: Config{Kind: KindRTSP}, wantErr: true},
		{name: "too narrow", cfg: Config{Kind: KindUSB, Width: 100, Height: 240}, wantErr: true},
		{name: "too tall", cfg: Config{Kind: KindUSB, Width: 640, Height: 4000}, wantErr: true},
		{name: "loop on usb", cfg: Config{Kind: KindUSB, Loop: true}, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			errs := tc.cfg.Validate()
			if tc.wantErr && len(errs) == 0 {
				t.Error("expected validation errors")
			}
			if !tc.wantErr && len(errs) > 0 {
				t.Errorf("unexpected errors: %v", errs)
			}
		})
	}
}

func TestConfig_Describe(t *testing.T) {
	tests := []struct {
		cfg  Config
		want string
	}{
		{Config{Kind: KindUSB, Device: 1}, "usb:1"},
		{Config{Kind: KindRTSP, Path: "rtsp://cam"}, "rtsp:rtsp://cam"},
	}
	for _, tc := range tests {
		if got := tc.cfg.Describe(); got != tc.want {
			t.Errorf("got %q, want %q", got, tc.want)
		}
	}
}

func TestPresets(t *testing.T) {
	for _, name := range PresetNames() {
		p, ok := LookupPreset(name)
		if !ok {
			t.Fatalf("preset %q missing", name)
		}
		cfg := p.Apply(DefaultConfig())
		if errs := cfg.Validate(); len(errs) > 0 {
			t.Errorf("preset %q invalid: %v", name, errs)
		}
	}

	tests := []struct {
		name          string
		wantOK        bool
		width, height int
	}{
		{name: "wpi", wantOK: true, width: 320, height: 240},
		{name: "720P", wantOK: true, width: 1280, height: 720},
		{name: "8k"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, ok := LookupPreset(tc.name)
			if ok != tc.wantOK {
				t.Fatalf("ok: got %v, want %v", ok, tc.wantOK)
			}
			if !ok {
				return
			}
			cfg := p.Apply(Config{Kind: KindUSB, Device: 1})
			if cfg.Width != tc.width || cfg.Height != tc.height || cfg.Device != 1 {
				t.Errorf("got %+v", cfg)
			}
		})
	}
}
