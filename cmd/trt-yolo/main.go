// trt-yolo - real-time YOLO object detection for FRC robots
//
// Reads frames from a camera, video, RTSP stream or image, runs a YOLO
// model and shows the annotated result in a desktop window (-gui) or as
// an MJPEG stream. Detections are published to NetworkTables.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/teslashibe/go-frcvision/internal/config"
	"github.com/teslashibe/go-frcvision/internal/log"
	"github.com/teslashibe/go-frcvision/pkg/app"
	"github.com/teslashibe/go-frcvision/pkg/camera"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ .env: %v\n", err)
		return 1
	}

	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	cfg, logOpts, err := parseFlags(fs, os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		return 2
	}
	log.InitWithOptions(logOpts)
	defer log.Close()

	a, err := app.New(cfg, app.WithLogger(log.L()))
	if err != nil {
		log.Error("configuration error", "error", err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := a.Init(ctx); err != nil {
		log.Error("initialization failed", "error", err)
		a.Shutdown()
		return 1
	}

	runErr := a.Run(ctx)
	if err := a.Shutdown(); err != nil {
		log.Warn("shutdown", "error", err)
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("runtime error", "error", runErr)
		return 1
	}
	return 0
}

// parseFlags parses args and applies environment overrides.
func parseFlags(fs *flag.FlagSet, args []string) (app.Config, log.Options, error) {
	cfg := app.DefaultConfig()

	var (
		model, modelDir      string
		threshold            float64
		categories           int
		letterbox, gui, noNT bool
		port                 int
	)
	fs.StringVar(&model, "m", "", "YOLO model name, e.g. yolov4-tiny-416 (required)")
	fs.StringVar(&model, "model", "", "alias for -m")
	fs.StringVar(&modelDir, "model-dir", cfg.ModelDir, "Directory holding <model>.onnx or <model>.cfg/.weights")
	fs.Float64Var(&threshold, "t", cfg.Threshold, "Detection confidence threshold")
	fs.Float64Var(&threshold, "conf-thresh", cfg.Threshold, "alias for -t")
	fs.IntVar(&categories, "c", cfg.Categories, "Number of object categories")
	fs.IntVar(&categories, "category-num", cfg.Categories, "alias for -c")
	fs.BoolVar(&letterbox, "l", false, "Letterbox frames to the network input size")
	fs.BoolVar(&letterbox, "letter-box", false, "alias for -l")
	fs.BoolVar(&gui, "g", false, "Show a desktop window instead of the MJPEG stream")
	fs.BoolVar(&gui, "gui", false, "alias for -g")
	fs.IntVar(&port, "p", cfg.MJPEGPort, "MJPEG and dashboard port")
	fs.IntVar(&port, "mjpeg-port", cfg.MJPEGPort, "alias for -p")

	usb := fs.Int("usb", cfg.Camera.Device, "USB camera device index")
	video := fs.String("video", "", "Video file to read instead of a camera")
	videoLoop := fs.Bool("video-looping", false, "Rewind the video at end of file")
	rtsp := fs.String("rtsp", "", "RTSP stream URI")
	image := fs.String("image", "", "Still image to process repeatedly")
	width := fs.Int("width", cfg.Camera.Width, "Capture width")
	height := fs.Int("height", cfg.Camera.Height, "Capture height")
	preset := fs.String("preset", "", "Capture size preset: "+strings.Join(camera.PresetNames(), ", "))

	streamW := fs.Int("stream-width", cfg.StreamWidth, "MJPEG output width, 0 keeps the frame size")
	streamH := fs.Int("stream-height", cfg.StreamHeight, "MJPEG output height, 0 keeps the frame size")
	quality := fs.Int("jpeg-quality", cfg.JPEGQuality, "MJPEG JPEG quality 1-100")
	title := fs.String("title", cfg.Title, "Window and dashboard title")

	frcConfig := fs.String("frc-config", "", "Team descriptor (frc.json); defaults to <model-dir>/frc.json when present")
	modelConfig := fs.String("model-config", "", "Model descriptor with labelMap and confidence_threshold (file or URL)")
	ntServer := fs.String("nt-server", "", "NetworkTables server host (overrides NT_SERVER)")
	team := fs.Int("team", 0, "FRC team number (overrides FRC_TEAM)")
	table := fs.String("nt-table", "", "NetworkTables table for detections (default /ML)")
	hardware := fs.String("hardware", "", "Hardware name published to NetworkTables")
	fs.BoolVar(&noNT, "no-nt", false, "Disable NetworkTables publishing")

	backend := fs.String("backend", "", "OpenCV DNN backend: cuda, openvino, opencv, vulkan")
	target := fs.String("target", "", "OpenCV DNN target: cpu, cuda, cudafp16, fp16, vulkan")
	logLevel := fs.String("log-level", "", "Log level: debug, info, warn, error (overrides LOG_LEVEL)")
	logFile := fs.String("log-file", "", "Also write logs to this file, rotated by size")
	logJSON := fs.Bool("log-json", false, "Log as JSON")

	if err := fs.Parse(args); err != nil {
		return cfg, log.Options{}, err
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	cfg.Model, cfg.ModelDir = model, modelDir
	cfg.Threshold, cfg.ThresholdSet = threshold, set["t"] || set["conf-thresh"]
	cfg.Categories, cfg.Letterbox, cfg.GUI = categories, letterbox, gui
	cfg.Backend, cfg.Target = *backend, *target
	cfg.StreamWidth, cfg.StreamHeight, cfg.JPEGQuality = *streamW, *streamH, *quality
	cfg.Title = *title
	cfg.ModelConfig, cfg.Table, cfg.Hardware = *modelConfig, *table, *hardware
	cfg.NoNT = noNT

	// Camera
	cfg.Camera.Width, cfg.Camera.Height = *width, *height
	cfg.CameraSized = set["width"] || set["height"]
	if *preset != "" {
		p, ok := camera.LookupPreset(*preset)
		if !ok {
			return cfg, log.Options{}, fmt.Errorf("unknown preset %q, want one of %s", *preset, strings.Join(camera.PresetNames(), ", "))
		}
		if !cfg.CameraSized {
			cfg.Camera = p.Apply(cfg.Camera)
			cfg.CameraSized = true
		}
	}
	switch {
	case *image != "":
		cfg.Camera = camera.Config{Kind: camera.KindImage, Path: *image, Loop: true}
	case *video != "":
		cfg.Camera = camera.Config{Kind: camera.KindVideo, Path: *video, Loop: *videoLoop}
	case *rtsp != "":
		cfg.Camera = camera.Config{Kind: camera.KindRTSP, Path: *rtsp}
	default:
		cfg.Camera.Kind, cfg.Camera.Device = camera.KindUSB, *usb
	}

	// Descriptors
	cfg.FRCConfig = *frcConfig
	if cfg.FRCConfig == "" {
		if p := filepath.Join(cfg.ModelDir, config.DefaultFRCFile); fileExists(p) {
			cfg.FRCConfig = p
		}
	}

	// Environment variables
	cfg.MJPEGPort = port
	if !set["p"] && !set["mjpeg-port"] {
		cfg.MJPEGPort = config.MJPEGPort(port)
	}
	cfg.NTServer = *ntServer
	if cfg.NTServer == "" {
		cfg.NTServer = config.NTServer("")
	}
	cfg.Team = *team
	if cfg.Team == 0 {
		cfg.Team = config.Team(0)
	}

	level := *logLevel
	if level == "" {
		level = config.LogLevel("info")
	}
	return cfg, log.Options{Level: level, File: *logFile, JSON: *logJSON}, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
