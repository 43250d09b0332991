package yolo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrModelNotFound is returned when neither an ONNX file nor a darknet
// cfg/weights pair exists for the model.
var ErrModelNotFound = errors.New("yolo: model files not found")

// Format is the on-disk model format.
type Format string

// Supported model formats.
const (
	FormatONNX    Format = "onnx"
	FormatDarknet Format = "darknet"
)

// Files locates a model on disk.
type Files struct {
	Format Format
	Model  string // .onnx or .weights
	Config string // .cfg, darknet only
}

// FindModel looks for <dir>/<name>.onnx, then <dir>/<name>.cfg plus
// <dir>/<name>.weights.
func FindModel(dir, name string) (Files, error) {
	base := filepath.Join(dir, name)

	if fileExists(base + ".onnx") {
		return Files{Format: FormatONNX, Model: base + ".onnx"}, nil
	}

	cfg, weights := base+".cfg", base+".weights"
	if fileExists(cfg) && fileExists(weights) {
		return Files{Format: FormatDarknet, Model: weights, Config: cfg}, nil
	}

	return Files{}, fmt.Errorf("%w: expected %s.onnx or %s.cfg and %s.weights", ErrModelNotFound, base, base, base)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
