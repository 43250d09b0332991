package overlay

import (
	"image/color"
	"testing"
)

func TestNewPalette(t *testing.T) {
	tests := []struct {
		name string
		n    int
		want int
	}{
		{"coco", 80, 80},
		{"single", 1, 1},
		{"zero falls back to one", 0, 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := NewPalette(tc.n)
			if len(p) != tc.want {
				t.Fatalf("len: got %d, want %d", len(p), tc.want)
			}
			for i, c := range p {
				if c.A != 255 {
					t.Errorf("colour %d not opaque", i)
				}
			}
		})
	}
}

func TestNewPalette_FirstIsRed(t *testing.T) {
	// Hue 0, full saturation, value 0.7.
	want := color.RGBA{R: 179, G: 0, B: 0, A: 255}
	if got := NewPalette(4)[0]; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestNewPalette_Distinct(t *testing.T) {
	p := NewPalette(12)
	seen := make(map[color.RGBA]int)
	for i, c := range p {
		if j, ok := seen[c]; ok {
			t.Errorf("colours %d and %d are identical: %v", j, i, c)
		}
		seen[c] = i
	}
}

func TestPalette_Color(t *testing.T) {
	p := NewPalette(3)

	tests := []struct {
		id   int
		want color.RGBA
	}{
		{0, p[0]},
		{2, p[2]},
		{3, p[0]},
		{-1, p[2]},
	}
	for _, tc := range tests {
		if got := p.Color(tc.id); got != tc.want {
			t.Errorf("Color(%d): got %v, want %v", tc.id, got, tc.want)
		}
	}

	var empty Palette
	if got := empty.Color(5); got != (color.RGBA{A: 255}) {
		t.Errorf("empty palette: got %v", got)
	}
}
