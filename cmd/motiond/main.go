package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nvr-ai/go-motion/config"
	"github.com/nvr-ai/go-motion/opencv"
	"github.com/nvr-ai/go-motion/pipeline"
	"github.com/nvr-ai/go-motion/sink"
	"github.com/nvr-ai/go-motion/source"
)

const (
	// DefaultFrameInterval is the timestamp spacing of directory and demo frames.
	DefaultFrameInterval = 33 * time.Millisecond
	// shutdownTimeout bounds the websocket server shutdown.
	shutdownTimeout = 5 * time.Second
)

// options are the command line flags.
type options struct {
	videoPath  string
	dirPath    string
	demo       bool
	deviceID   int
	showWindow bool
	outputDir  string
	wsAddr     string
	envFile    string
	queue      int
	resize     string
	blur       float64
	gray       bool

	minDuration time.Duration
	eventGap    time.Duration
}

func main() {
	var opts options
	flag.StringVar(&opts.videoPath, "video", "", "Path or URL of a video (.mp4, .avi, .mov, .mkv, rtsp://...)")
	flag.StringVar(&opts.dirPath, "dir", "", "Directory of frame-N images to replay")
	flag.BoolVar(&opts.demo, "demo", false, "Run on a synthetic scene")
	flag.IntVar(&opts.deviceID, "device", 0, "Video capture device used when no other input is given")
	flag.BoolVar(&opts.showWindow, "show-window", false, "Show visualization window")
	flag.StringVar(&opts.outputDir, "output-dir", "", "Save annotated motion frames to this directory")
	flag.StringVar(&opts.wsAddr, "ws-addr", "", "Serve motion events over websocket on this address, e.g. :8080")
	flag.StringVar(&opts.envFile, "env-file", "", "Load settings from this .env file")
	flag.IntVar(&opts.queue, "queue", -1, "Capture queue capacity; 0 processes frames synchronously")
	flag.StringVar(&opts.resize, "resize", "", "Resize frames to WIDTHxHEIGHT or a named resolution (vga, 720p, ...) before detection")
	flag.Float64Var(&opts.blur, "blur", 0, "Gaussian blur radius applied before detection")
	flag.BoolVar(&opts.gray, "gray", false, "Convert frames to grayscale before detection")
	flag.DurationVar(&opts.minDuration, "min-duration", -1, "Minimum motion duration before reporting an event")
	flag.DurationVar(&opts.eventGap, "event-gap", -1, "How long motion may pause before an event ends")
	flag.Parse()

	if err := run(opts); err != nil {
		log.Fatal(err)
	}
}

func run(opts options) error {
	settings, err := config.Load(opts.envFile)
	if err != nil {
		return err
	}
	if opts.outputDir != "" {
		settings.OutputDir = opts.outputDir
	}
	if opts.wsAddr != "" {
		settings.WebSocketAddr = opts.wsAddr
	}
	if opts.queue >= 0 {
		settings.QueueCapacity = opts.queue
	}
	if opts.minDuration >= 0 {
		settings.MinMotionDuration = opts.minDuration
	}
	if opts.eventGap >= 0 {
		settings.EventGap = opts.eventGap
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: settings.LogLevel}))
	slog.SetDefault(logger)

	input, err := validateInputFlags(opts.videoPath, opts.dirPath, opts.demo, opts.deviceID)
	if err != nil {
		return err
	}
	size, err := parseSize(opts.resize)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, closeSource, err := openSource(input)
	if err != nil {
		return err
	}
	defer closeSource()

	var transforms []source.Transform
	if size.X > 0 || size.Y > 0 {
		resize, err := source.Resize(size.X, size.Y)
		if err != nil {
			return err
		}
		transforms = append(transforms, resize)
	}
	if opts.gray {
		transforms = append(transforms, source.Grayscale())
	}
	if opts.blur > 0 {
		blur, err := source.Blur(opts.blur)
		if err != nil {
			return err
		}
		transforms = append(transforms, blur)
	}
	var frames pipeline.FrameSource = src
	if len(transforms) > 0 {
		frames = source.WithTransforms(src, transforms...)
	}

	var hub *sink.WebSocket
	events := sink.NewEvents(settings.MinMotionDuration, settings.EventGap, func(ev sink.MotionEvent) error {
		log.Printf("%s #%d: %v, %d frames, peak area %d", ev.Kind, ev.ID,
			ev.Duration().Round(time.Millisecond), ev.Frames, ev.PeakArea)
		if hub != nil {
			hub.Broadcast(sink.NewMotionEvent(ev))
		}
		return nil
	})
	sinks := sink.Multi{sink.NewLog(logger), events}
	if settings.OutputDir != "" {
		files, err := sink.NewFiles(settings.OutputDir, sink.OnlyMotion())
		if err != nil {
			return err
		}
		sinks = append(sinks, files)
		log.Printf("saving motion frames to %s", settings.OutputDir)
	}
	if settings.WebSocketAddr != "" {
		hub = sink.NewWebSocket(logger, true)
		shutdown := serveWebSocket(settings.WebSocketAddr, hub)
		defer shutdown()
		sinks = append(sinks, hub)
	}
	if opts.showWindow {
		window := opencv.NewWindow("Motion", stop)
		defer window.Close()
		sinks = append(sinks, window)
	}

	if settings.QueueCapacity > 0 {
		q, err := pipeline.NewQueue(frames, settings.QueueCapacity)
		if err != nil {
			return err
		}
		q.Start(ctx)
		defer func() {
			q.Close()
			log.Printf("capture queue dropped %d frames", q.Drops())
		}()
		frames = q
	}

	p, err := pipeline.New(settings.Pipeline(), frames, sinks,
		pipeline.WithLogger(logger),
		pipeline.WithReportEvery(settings.ReportEvery),
	)
	if err != nil {
		return err
	}

	log.Printf("start processing %s", describe(input))
	err = p.Run(ctx)
	if flushErr := events.Flush(); flushErr != nil && err == nil {
		err = flushErr
	}
	snap := p.Stats().Snapshot()
	log.Printf("processed %d frames, %d skipped, %d regions, %d motion events in %v (%.1f FPS)",
		snap.Frames, snap.Skipped, snap.Regions, events.Count(),
		time.Since(snap.Started).Round(time.Millisecond), snap.FPS)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// openSource opens the selected input and returns the function releasing it.
func openSource(input *InputConfig) (source.Source, func(), error) {
	switch input.Type {
	case InputVideo:
		v, err := opencv.OpenFile(input.Path)
		if err != nil {
			return nil, nil, err
		}
		return v, func() { v.Close() }, nil
	case InputDirectory:
		d, err := source.NewDirectory(input.Path, DefaultFrameInterval)
		if err != nil {
			return nil, nil, err
		}
		return d, func() {}, nil
	case InputDemo:
		cfg := source.DefaultSyntheticConfig()
		cfg.Width, cfg.Height = 320, 240
		cfg.Object = cfg.Object.Add(cfg.Object.Min.Mul(2))
		cfg.Step.X = 2
		cfg.Noise = 2
		cfg.Frames = cfg.StaticFrames + 120
		s, err := source.NewSynthetic(cfg)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	default:
		v, err := opencv.OpenDevice(input.DeviceID)
		if err != nil {
			return nil, nil, err
		}
		return v, func() { v.Close() }, nil
	}
}

// serveWebSocket serves hub on addr under /ws and returns the shutdown function.
func serveWebSocket(addr string, hub *sink.WebSocket) func() {
	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","clients":%d}`, hub.Clients())
	})
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		log.Printf("websocket events on ws://%s/ws", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("websocket server failed: %v", err)
		}
	}()

	return func() {
		hub.Close()
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("websocket server shutdown: %v", err)
		}
	}
}

func describe(input *InputConfig) string {
	switch input.Type {
	case InputVideo:
		return "video " + input.Path
	case InputDirectory:
		return "directory " + input.Path
	case InputDemo:
		return "synthetic scene"
	default:
		return fmt.Sprintf("camera device %d", input.DeviceID)
	}
}
