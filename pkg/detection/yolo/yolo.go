// Package yolo runs YOLO object detection through the OpenCV DNN module.
package yolo

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sort"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-frcvision/pkg/detection"
)

// DefaultNMSThreshold is the IoU above which overlapping boxes of the same
// class are suppressed.
const DefaultNMSThreshold = 0.5

// ErrEmptyFrame is returned when Detect is given no pixels.
var ErrEmptyFrame = errors.New("yolo: empty frame")

// Config holds detector configuration
type Config struct {
	ModelDir   string
	Model      string // Identifier such as "yolov4-tiny-416"
	Categories int    // Number of classes the network predicts
	Letterbox  bool   // Keep aspect ratio and pad instead of stretching

	NMSThreshold float32

	// Backend and Target are OpenCV DNN names ("cuda", "cpu", "cudafp16",
	// ...). Empty selects the default backend on the CPU.
	Backend string
	Target  string

	Logger *slog.Logger
}

// DefaultConfig returns production defaults for an 80-class COCO model
func DefaultConfig() Config {
	return Config{
		ModelDir:     "FRC-Jetson-Deployment-Models",
		Categories:   80,
		NMSThreshold: DefaultNMSThreshold,
	}
}

// Detector finds objects in BGR frames.
type Detector struct {
	net     gocv.Net
	cfg     Config
	spec    detection.ModelSpec
	files   Files
	outputs []string
	logger  *slog.Logger
	mu      sync.Mutex
}

// New loads the network and runs one warm-up pass to check that the
// network's class dimension matches cfg.Categories.
func New(cfg Config) (*Detector, error) {
	if cfg.Categories <= 0 {
		return nil, fmt.Errorf("yolo: category count must be positive, got %d", cfg.Categories)
	}
	if cfg.NMSThreshold <= 0 {
		cfg.NMSThreshold = DefaultNMSThreshold
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	spec, err := detection.ParseModelName(cfg.Model)
	if err != nil {
		return nil, err
	}

	files, err := FindModel(cfg.ModelDir, cfg.Model)
	if err != nil {
		return nil, err
	}

	var net gocv.Net
	switch files.Format {
	case FormatONNX:
		net = gocv.ReadNetFromONNX(files.Model)
	default:
		net = gocv.ReadNet(files.Model, files.Config)
	}
	if net.Empty() {
		return nil, fmt.Errorf("yolo: failed to load model from %s", files.Model)
	}

	backend, target := gocv.NetBackendDefault, gocv.NetTargetCPU
	if cfg.Backend != "" {
		backend = gocv.ParseNetBackend(cfg.Backend)
	}
	if cfg.Target != "" {
		target = gocv.ParseNetTarget(cfg.Target)
	}
	net.SetPreferableBackend(backend)
	net.SetPreferableTarget(target)

	d := &Detector{
		net:     net,
		cfg:     cfg,
		spec:    spec,
		files:   files,
		outputs: outputNames(&net),
		logger:  cfg.Logger.With("component", "yolo", "model", cfg.Model),
	}

	if err := d.warmup(); err != nil {
		net.Close()
		return nil, err
	}

	d.logger.Info("model loaded",
		"format", files.Format,
		"input", fmt.Sprintf("%dx%d", spec.Width, spec.Height),
		"categories", cfg.Categories,
		"letterbox", cfg.Letterbox,
		"outputs", d.outputs,
	)
	return d, nil
}

// outputNames lists the unconnected output layers so every YOLO head is
// forwarded.
func outputNames(net *gocv.Net) []string {
	var names []string
	for _, id := range net.GetUnconnectedOutLayers() {
		layer := net.GetLayer(id)
		if name := layer.GetName(); name != "_input" {
			names = append(names, name)
		}
	}
	return names
}

func (d *Detector) warmup() error {
	blank := gocv.NewMatWithSize(d.spec.Height, d.spec.Width, gocv.MatTypeCV8UC3)
	defer blank.Close()

	if _, err := d.Detect(&blank, 1); err != nil {
		return fmt.Errorf("yolo: warm-up: %w", err)
	}
	return nil
}

// Spec returns the parsed model identifier
func (d *Detector) Spec() detection.ModelSpec {
	return d.spec
}

// Detect returns the objects in frame scoring at least threshold, in
// source-frame pixels, highest confidence first.
func (d *Detector) Detect(frame *gocv.Mat, threshold float64) ([]detection.Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if frame == nil || frame.Empty() {
		return nil, ErrEmptyFrame
	}

	g := detection.NewGeometry(frame.Cols(), frame.Rows(), d.spec.Width, d.spec.Height, d.cfg.Letterbox)

	input := d.prepare(*frame, g)
	defer input.Close()

	blob := gocv.BlobFromImage(input, 1.0/255.0, image.Pt(d.spec.Width, d.spec.Height), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	outs := d.net.ForwardLayers(d.outputs)
	defer func() {
		for i := range outs {
			outs[i].Close()
		}
	}()

	var cands []detection.Candidate
	for _, out := range outs {
		c, err := d.decode(out, g, threshold)
		if err != nil {
			return nil, err
		}
		cands = append(cands, c...)
	}

	return d.suppress(cands, g, threshold), nil
}

// prepare produces the network-sized image: letterboxed onto a grey
// canvas, or stretched.
func (d *Detector) prepare(frame gocv.Mat, g detection.Geometry) gocv.Mat {
	if !g.Letterboxed {
		resized := gocv.NewMat()
		gocv.Resize(frame, &resized, image.Pt(g.InputW, g.InputH), 0, 0, gocv.InterpolationLinear)
		return resized
	}

	canvas := gocv.NewMatWithSize(g.InputH, g.InputW, gocv.MatTypeCV8UC3)
	canvas.SetTo(gocv.NewScalar(detection.LetterboxPad, detection.LetterboxPad, detection.LetterboxPad, 0))

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(frame, &resized, image.Pt(g.ResizedW, g.ResizedH), 0, 0, gocv.InterpolationLinear)

	roi := canvas.Region(image.Rect(g.PadX, g.PadY, g.PadX+g.ResizedW, g.PadY+g.ResizedH))
	defer roi.Close()
	resized.CopyTo(&roi)

	return canvas
}

// decode picks the layout from the output shape: 2-D darknet rows or the
// 3-D [1, 4+nc, N] anchor-free layout.
func (d *Detector) decode(out gocv.Mat, g detection.Geometry, threshold float64) ([]detection.Candidate, error) {
	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("yolo: read output: %w", err)
	}

	dims := out.Size()
	switch len(dims) {
	case 2:
		return detection.DecodeDarknet(data, dims[0], dims[1], d.cfg.Categories, g, threshold)
	case 3:
		return detection.DecodeYOLOv8(data, dims[1], dims[2], d.cfg.Categories, threshold)
	default:
		return nil, fmt.Errorf("yolo: unsupported output shape %v", dims)
	}
}

// suppress runs NMS per class in input space and maps survivors back to
// the source frame.
func (d *Detector) suppress(cands []detection.Candidate, g detection.Geometry, threshold float64) []detection.Detection {
	if len(cands) == 0 {
		return nil
	}

	groups := detection.GroupByClass(cands)
	classes := make([]int, 0, len(groups))
	for id := range groups {
		classes = append(classes, id)
	}
	sort.Ints(classes)

	var out []detection.Detection
	for _, id := range classes {
		idx := groups[id]
		boxes := make([]image.Rectangle, len(idx))
		scores := make([]float32, len(idx))
		for i, ci := range idx {
			c := cands[ci]
			boxes[i] = image.Rect(
				int(c.CX-c.W/2), int(c.CY-c.H/2),
				int(c.CX+c.W/2), int(c.CY+c.H/2),
			)
			scores[i] = float32(c.Score)
		}

		for _, keep := range gocv.NMSBoxes(boxes, scores, float32(threshold), d.cfg.NMSThreshold) {
			c := cands[idx[keep]]
			out = append(out, detection.Detection{
				Box:        g.BoxToSource(c.CX, c.CY, c.W, c.H),
				Confidence: c.Score,
				ClassID:    c.ClassID,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out
}

// Close releases the detector resources
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}
