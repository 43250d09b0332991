package detection

import "math"

// LetterboxPad is the grey value used to fill letterbox borders.
const LetterboxPad = 127

// Geometry maps between source-frame and network-input pixel coordinates.
// With letterboxing the source is scaled uniformly and centred with padding;
// without it the source is stretched to the input size.
type Geometry struct {
	SourceW, SourceH   int
	InputW, InputH     int
	ResizedW, ResizedH int // Size of the scaled image inside the input
	PadX, PadY         int // Left and top padding
	ScaleX, ScaleY     float64
	Letterboxed        bool
}

// NewGeometry computes the input mapping for a srcW x srcH frame feeding an
// inW x inH network.
func NewGeometry(srcW, srcH, inW, inH int, letterbox bool) Geometry {
	g := Geometry{
		SourceW:     srcW,
		SourceH:     srcH,
		InputW:      inW,
		InputH:      inH,
		Letterboxed: letterbox,
	}
	if srcW <= 0 || srcH <= 0 {
		return g
	}

	if !letterbox {
		g.ResizedW, g.ResizedH = inW, inH
		g.ScaleX = float64(inW) / float64(srcW)
		g.ScaleY = float64(inH) / float64(srcH)
		return g
	}

	s := math.Min(float64(inW)/float64(srcW), float64(inH)/float64(srcH))
	g.ResizedW = int(float64(srcW) * s)
	g.ResizedH = int(float64(srcH) * s)
	g.PadX = (inW - g.ResizedW) / 2
	g.PadY = (inH - g.ResizedH) / 2
	g.ScaleX, g.ScaleY = s, s
	return g
}

// ToSource converts an input-pixel point back to source pixels.
func (g Geometry) ToSource(x, y float64) (float64, float64) {
	if g.ScaleX == 0 || g.ScaleY == 0 {
		return 0, 0
	}
	return (x - float64(g.PadX)) / g.ScaleX, (y - float64(g.PadY)) / g.ScaleY
}

// BoxToSource converts a centre-format box in input pixels to a clipped
// corner-format box in source pixels.
func (g Geometry) BoxToSource(cx, cy, w, h float64) Box {
	x1, y1 := g.ToSource(cx-w/2, cy-h/2)
	x2, y2 := g.ToSource(cx+w/2, cy+h/2)
	b := Box{
		XMin: int(math.Round(x1)),
		YMin: int(math.Round(y1)),
		XMax: int(math.Round(x2)),
		YMax: int(math.Round(y2)),
	}
	return b.Clip(g.SourceW, g.SourceH)
}
