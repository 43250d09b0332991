package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/teslashibe/go-frcvision/internal/httpc"
)

// ErrInvalidDescriptor is returned for descriptors with missing or
// inconsistent fields.
var ErrInvalidDescriptor = errors.New("config: invalid descriptor")

// Default descriptor file names inside the model directory.
const (
	DefaultFRCFile = "frc.json"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// NT modes in frc.json.
const (
	NTModeClient = "client"
	NTModeServer = "server"
)

// CameraConfig is one entry of the frc.json cameras list.
type CameraConfig struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	FPS    int    `json:"fps"`
}

// FRCConfig is the team descriptor written by the WPILibPi image.
type FRCConfig struct {
	Team    int            `json:"team"`
	NTMode  string         `json:"ntmode"`
	Cameras []CameraConfig `json:"cameras"`
}

// ModelConfig describes the classes a model was trained on.
type ModelConfig struct {
	LabelMap []string `json:"labelMap"`
	Classes  int      `json:"classes"`

	// ConfidenceThreshold is nil when the descriptor does not set one.
	ConfidenceThreshold *float64 `json:"confidence_threshold"`
}

// LoadFRC reads and checks a team descriptor.
func LoadFRC(ctx context.Context, src string) (*FRCConfig, error) {
	var cfg FRCConfig
	if err := readJSON(ctx, src, &cfg); err != nil {
		return nil, err
	}

	if cfg.Team < 0 {
		return nil, fmt.Errorf("%w: %s: team must be >= 0", ErrInvalidDescriptor, src)
	}
	switch strings.ToLower(cfg.NTMode) {
	case "":
		cfg.NTMode = NTModeClient
	case NTModeClient, NTModeServer:
		cfg.NTMode = strings.ToLower(cfg.NTMode)
	default:
		return nil, fmt.Errorf("%w: %s: ntmode must be client or server", ErrInvalidDescriptor, src)
	}
	return &cfg, nil
}

// LoadModel reads and checks a model descriptor. A missing classes field
// is taken from the label count.
func LoadModel(ctx context.Context, src string) (*ModelConfig, error) {
	var cfg ModelConfig
	if err := readJSON(ctx, src, &cfg); err != nil {
		return nil, err
	}

	if len(cfg.LabelMap) == 0 {
		return nil, fmt.Errorf("%w: %s: labelMap is empty", ErrInvalidDescriptor, src)
	}
	if cfg.Classes == 0 {
		cfg.Classes = len(cfg.LabelMap)
	}
	if cfg.Classes < 0 {
		return nil, fmt.Errorf("%w: %s: classes must be positive", ErrInvalidDescriptor, src)
	}
	if t := cfg.ConfidenceThreshold; t != nil && (*t < 0 || *t > 1) {
		return nil, fmt.Errorf("%w: %s: confidence_threshold must be in [0, 1]", ErrInvalidDescriptor, src)
	}
	return &cfg, nil
}

// Read returns the contents of a local file or an http(s) URL.
func Read(ctx context.Context, src string) ([]byte, error) {
	if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
		return os.ReadFile(src)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", src, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", src, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, httpc.MaxBodySize))
}

func readJSON(ctx context.Context, src string, v interface{}) error {
	data, err := Read(ctx, src)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidDescriptor, src, err)
	}
	return nil
}
