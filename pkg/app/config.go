package app

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/teslashibe/go-frcvision/internal/config"
	"github.com/teslashibe/go-frcvision/pkg/camera"
	"github.com/teslashibe/go-frcvision/pkg/detection"
	"github.com/teslashibe/go-frcvision/pkg/detection/yolo"
)

// Defaults shared by the CLI and the orchestrator.
const (
	DefaultModelDir      = "FRC-Jetson-Deployment-Models"
	DefaultCategories    = 80
	DefaultThreshold     = 0.3
	DefaultMJPEGPort     = 8080
	DefaultStreamWidth   = 320
	DefaultStreamHeight  = 240
	DefaultTelemetryRate = 10
	DefaultTitle         = "Camera YOLO Demo"
)

// Threshold sources reported by ResolveThreshold.
const (
	ThresholdFromFlag        = "flag"
	ThresholdFromModelConfig = "model-config"
	ThresholdFromDefault     = "default"
)

// ConfigError reports an invalid setting, named by its command-line flag.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// Config holds everything needed to build the vision pipeline.
type Config struct {
	Model      string  `flag:"model" validate:"required"`
	ModelDir   string  `flag:"model-dir" validate:"required"`
	Categories int     `flag:"category-num" validate:"gte=1,lte=1000"`
	Threshold  float64 `flag:"conf-thresh" validate:"gte=0,lte=1"`

	// ThresholdSet records that Threshold was given explicitly.
	ThresholdSet bool
	Letterbox    bool

	// Backend and Target select the OpenCV DNN backend ("cuda", "cpu").
	Backend string
	Target  string

	Camera camera.Config

	// CameraSized records that the capture size was given explicitly, so a
	// team descriptor does not override it.
	CameraSized bool

	GUI          bool
	Title        string
	MJPEGPort    int `flag:"mjpeg-port" validate:"gte=1,lte=65535"`
	StreamWidth  int `flag:"stream-width" validate:"gte=0,lte=4096"`
	StreamHeight int `flag:"stream-height" validate:"gte=0,lte=2160"`
	JPEGQuality  int `flag:"jpeg-quality" validate:"gte=1,lte=100"`

	// TelemetryRate caps dashboard websocket updates per second.
	TelemetryRate float64 `flag:"telemetry-rate" validate:"gte=0"`

	FRCConfig   string `flag:"frc-config"`
	ModelConfig string `flag:"model-config"`

	NoNT     bool
	NTServer string `flag:"nt-server"`
	Team     int    `flag:"team" validate:"gte=0,lte=25599"`
	Table    string `flag:"nt-table"`
	Hardware string `flag:"hardware"`
}

// DefaultConfig returns CLI defaults. Model must still be set.
func DefaultConfig() Config {
	return Config{
		ModelDir:      DefaultModelDir,
		Categories:    DefaultCategories,
		Threshold:     DefaultThreshold,
		Camera:        camera.DefaultConfig(),
		Title:         DefaultTitle,
		MJPEGPort:     DefaultMJPEGPort,
		StreamWidth:   DefaultStreamWidth,
		StreamHeight:  DefaultStreamHeight,
		JPEGQuality:   80,
		TelemetryRate: DefaultTelemetryRate,
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("flag"); name != "" {
			return name
		}
		return strings.ToLower(f.Name)
	})
	return v
}

// Validate checks field ranges, the model name and that the model files
// exist. It touches nothing but the file system.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &ConfigError{Field: fe.Field(), Message: describe(fe)}
		}
		return &ConfigError{Field: "config", Message: err.Error()}
	}

	if _, err := detection.ParseModelName(c.Model); err != nil {
		return &ConfigError{Field: "model", Message: err.Error()}
	}
	if _, err := yolo.FindModel(c.ModelDir, c.Model); err != nil {
		return &ConfigError{Field: "model", Message: err.Error()}
	}

	if errs := c.Camera.Validate(); len(errs) > 0 {
		return &ConfigError{Field: "camera", Message: strings.Join(errs, "; ")}
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return fmt.Sprintf("must be >= %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be <= %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s check", fe.Tag())
	}
}

// ResolveThreshold picks the confidence threshold used in every display
// mode: the flag when set, then the model descriptor, then the default.
// The second result names the source for logging.
func ResolveThreshold(c Config, m *config.ModelConfig) (float64, string) {
	switch {
	case c.ThresholdSet:
		return c.Threshold, ThresholdFromFlag
	case m != nil && m.ConfidenceThreshold != nil:
		return *m.ConfidenceThreshold, ThresholdFromModelConfig
	default:
		return c.Threshold, ThresholdFromDefault
	}
}

// ResolveLabels returns the label map and category count. A model
// descriptor wins over the COCO defaults, and its class count overrides
// the category flag.
func ResolveLabels(c Config, m *config.ModelConfig) (detection.LabelMap, int, error) {
	if m == nil {
		return detection.DefaultLabels(c.Categories), c.Categories, nil
	}
	if len(m.LabelMap) != m.Classes {
		return detection.LabelMap{}, 0, &ConfigError{
			Field:   "model-config",
			Message: fmt.Sprintf("labelMap has %d entries but classes is %d", len(m.LabelMap), m.Classes),
		}
	}
	return detection.NewLabelMap(m.LabelMap), m.Classes, nil
}
