// Command lane-overlay draws the detected lane onto road frames.
//
// Usage:
//
//	lane-overlay [-config lane.yaml] [-trace] [-camera calibration.json] [-out dir] frames...
//
// Each argument is a frame file or a directory of frame files. A directory
// is treated as one clip.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"lane-overlay/internal/calibration"
	"lane-overlay/internal/config"
	"lane-overlay/internal/display"
	"lane-overlay/internal/lane"
	"lane-overlay/internal/logger"
	"lane-overlay/internal/metrics"
	"lane-overlay/internal/pipeline"
	"lane-overlay/internal/runner"
	"lane-overlay/internal/telemetry"
	"lane-overlay/internal/tracesink"
	"lane-overlay/internal/version"

	"go.uber.org/zap"
)

const defaultConfigFile = "lane.yaml"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "settings file (default "+defaultConfigFile+" if present)")
	trace := flag.Bool("trace", false, "record intermediate images")
	camera := flag.String("camera", "", "camera calibration file")
	identity := flag.Bool("identity", false, "skip lens correction")
	out := flag.String("out", "", "output directory")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] frames...\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return 0
	}
	if flag.NArg() == 0 {
		flag.Usage()
		return 2
	}

	settings, err := config.Load(config.Resolve(*configPath, defaultConfigFile))
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 2
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "trace":
			settings.Pipeline.Trace = *trace
		case "camera":
			settings.Pipeline.CameraSource = *camera
		case "out":
			settings.Output.Dir = *out
		}
	})
	if err := settings.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 2
	}

	log, err := logger.New(settings.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		return 2
	}
	defer log.Sync()
	log.Info("starting", zap.String("version", version.Version), zap.Int("inputs", flag.NArg()))

	shutdown, err := initTracing(settings.Telemetry.SpanFile, log)
	if err != nil {
		log.Error("init tracing", zap.Error(err))
		return 1
	}
	defer shutdown()

	opts := settings.PipelineOptions(log)
	if *identity {
		opts = append(opts, pipeline.WithCalibrationLoader(func(string) (lane.Corrector, error) {
			return calibration.Identity(), nil
		}))
	}
	handler, err := traceHandler(settings, log)
	if err != nil {
		log.Error("create trace output", zap.Error(err))
		return 1
	}
	p, err := pipeline.New(settings.PipelineConfiguration(handler), opts...)
	if err != nil {
		log.Error("create pipeline", zap.Error(err))
		return 1
	}
	defer p.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	r := runner.New(p, runner.Options{
		OutDir:      settings.Output.Dir,
		StopOnError: settings.Runner.StopOnError,
	}, log)
	sum, runErr := r.Run(ctx, flag.Args())
	log.Info("run finished",
		zap.Int("processed", sum.Processed),
		zap.Int("failed", sum.Failed),
		zap.Int("clips", sum.Clips))

	if path := settings.Metrics.Textfile; path != "" {
		if err := metrics.WriteTextfile(path); err != nil {
			log.Error("write metrics", zap.String("path", path), zap.Error(err))
		}
	}

	if runErr != nil {
		log.Error("run stopped", zap.Error(runErr))
		return 1
	}
	return 0
}

// initTracing writes spans to path, or disables them when path is empty.
func initTracing(path string, log *zap.Logger) (func(), error) {
	if path == "" {
		_, err := telemetry.InitTracer("lane-overlay", nil, log)
		return func() {}, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	shutdown, err := telemetry.InitTracer("lane-overlay", f, log)
	if err != nil {
		f.Close()
		return nil, err
	}
	return func() {
		if err := shutdown(context.Background()); err != nil {
			log.Warn("flush spans", zap.Error(err))
		}
		f.Close()
	}, nil
}

// traceHandler builds the sinks for traced frames. It returns nil when
// tracing is off or nothing consumes the traces.
func traceHandler(s *config.Settings, log *zap.Logger) (pipeline.TraceHandler, error) {
	if !s.Pipeline.Trace {
		return nil, nil
	}
	var sinks tracesink.Multi
	if s.Output.TraceDir != "" {
		w := tracesink.NewDiskWriter(s.Output.TraceDir, log)
		log.Info("writing traces", zap.String("dir", w.RunDir()))
		sinks = append(sinks, w)
	}
	if s.Output.Sheet {
		dir := filepath.Join(s.Output.Dir, "sheets")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		sinks = append(sinks, tracesink.NewSheetSeries(func(n int) display.Target {
			return display.NewPlotTarget(filepath.Join(dir, fmt.Sprintf("sheet-%05d.png", n)))
		}))
	}
	switch len(sinks) {
	case 0:
		return nil, nil
	case 1:
		return sinks[0], nil
	default:
		return sinks, nil
	}
}
