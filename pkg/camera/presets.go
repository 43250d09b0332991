package camera

import "strings"

// Preset is a named capture size.
type Preset struct {
	Name   string
	Width  int
	Height int
}

// Preset names.
const (
	PresetWPI   = "wpi"
	PresetVGA   = "vga"
	Preset720p  = "720p"
	Preset1080p = "1080p"
)

// wpi keeps the stream under the field bandwidth limit; 1080p is slow
// through the detector and mostly useful for recordings.
var presets = []Preset{
	{Name: PresetWPI, Width: 320, Height: 240},
	{Name: PresetVGA, Width: 640, Height: 480},
	{Name: Preset720p, Width: 1280, Height: 720},
	{Name: Preset1080p, Width: 1920, Height: 1080},
}

// PresetNames returns the preset names, smallest first.
func PresetNames() []string {
	names := make([]string, len(presets))
	for i, p := range presets {
		names[i] = p.Name
	}
	return names
}

// LookupPreset finds a preset by case-insensitive name.
func LookupPreset(name string) (Preset, bool) {
	for _, p := range presets {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Preset{}, false
}

// Apply returns cfg with the preset's capture size.
func (p Preset) Apply(cfg Config) Config {
	cfg.Width, cfg.Height = p.Width, p.Height
	return cfg
}
