package overlay

import (
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// Palette saturation and value. Value is kept below 1 so white label text
// stays readable on top of every colour.
const (
	paletteSaturation = 1.0
	paletteValue      = 0.7
)

// Palette holds one colour per class, evenly spaced around the hue wheel.
type Palette []color.RGBA

// NewPalette generates n colours.
func NewPalette(n int) Palette {
	if n <= 0 {
		n = 1
	}
	p := make(Palette, n)
	for i := range p {
		hue := 360 * float64(i) / float64(n)
		r, g, b := colorful.Hsv(hue, paletteSaturation, paletteValue).RGB255()
		p[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return p
}

// Color returns the colour for classID, wrapping ids outside the palette.
func (p Palette) Color(classID int) color.RGBA {
	if len(p) == 0 {
		return color.RGBA{A: 255}
	}
	i := classID % len(p)
	if i < 0 {
		i += len(p)
	}
	return p[i]
}
