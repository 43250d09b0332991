package detection

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidModelName is returned for model identifiers without a usable
// input dimension suffix.
var ErrInvalidModelName = errors.New("detection: invalid model name")

// ModelSpec describes a YOLO model identifier such as "yolov4-tiny-416" or
// "yolov4-416x256".
type ModelSpec struct {
	Name   string // Full identifier
	Family string // Everything before the dimension suffix
	Width  int    // Network input width
	Height int    // Network input height
}

// ParseModelName extracts the network input size from a model identifier.
// The last dash-separated token is either a single number (square input)
// or WxH. Both dimensions must be positive multiples of 32.
func ParseModelName(name string) (ModelSpec, error) {
	idx := strings.LastIndex(name, "-")
	if idx <= 0 || idx == len(name)-1 {
		return ModelSpec{}, fmt.Errorf("%w: %q has no dimension suffix", ErrInvalidModelName, name)
	}

	family, dim := name[:idx], name[idx+1:]

	var w, h int
	var err error
	if ws, hs, ok := strings.Cut(dim, "x"); ok {
		if w, err = strconv.Atoi(ws); err == nil {
			h, err = strconv.Atoi(hs)
		}
	} else {
		w, err = strconv.Atoi(dim)
		h = w
	}
	if err != nil {
		return ModelSpec{}, fmt.Errorf("%w: bad dimension %q in %q", ErrInvalidModelName, dim, name)
	}

	if w <= 0 || h <= 0 || w%32 != 0 || h%32 != 0 {
		return ModelSpec{}, fmt.Errorf("%w: dimension %dx%d must be positive multiples of 32", ErrInvalidModelName, w, h)
	}

	return ModelSpec{Name: name, Family: family, Width: w, Height: h}, nil
}
