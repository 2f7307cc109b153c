// Package runner drives a Pipeline over a list of frame files.
package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lane-overlay/internal/frame"
	"lane-overlay/internal/metrics"
	"lane-overlay/internal/pipeline"
	"lane-overlay/internal/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Options controls a Runner.
type Options struct {
	OutDir      string // overlays are written here as <name>.png
	StopOnError bool   // stop at the first frame that fails
}

// Summary counts the frames of a run.
type Summary struct {
	Processed int
	Failed    int
	Clips     int
}

// Runner processes frame files in order with one Pipeline.
//
// A frame that fails is logged and skipped, and the pipeline is reset so
// the next frame does not build on it. Each directory argument is a clip:
// its sorted frames are processed after a reset.
type Runner struct {
	p      *pipeline.Pipeline
	opts   Options
	logger *zap.Logger
	tracer trace.Tracer
}

// New creates a Runner.
func New(p *pipeline.Pipeline, opts Options, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{p: p, opts: opts, logger: logger, tracer: telemetry.Tracer()}
}

// Run processes every input. Inputs are frame files or directories of
// frame files.
func (r *Runner) Run(ctx context.Context, inputs []string) (Summary, error) {
	var sum Summary
	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		info, err := os.Stat(in)
		if err != nil {
			return sum, fmt.Errorf("input %s: %w", in, err)
		}
		if !info.IsDir() {
			if err := r.step(ctx, in, r.opts.OutDir, &sum); err != nil {
				return sum, err
			}
			continue
		}

		files, err := frame.ListDir(in)
		if err != nil {
			return sum, fmt.Errorf("input %s: %w", in, err)
		}
		sum.Clips++
		r.reset("clip boundary", in)
		outDir := filepath.Join(r.opts.OutDir, filepath.Base(filepath.Clean(in)))
		r.logger.Info("processing clip", zap.String("dir", in), zap.Int("frames", len(files)))
		for _, f := range files {
			if err := ctx.Err(); err != nil {
				return sum, err
			}
			if err := r.step(ctx, f, outDir, &sum); err != nil {
				return sum, err
			}
		}
	}
	return sum, nil
}

// step processes one file and applies the failure policy.
func (r *Runner) step(ctx context.Context, path, outDir string, sum *Summary) error {
	err := r.ProcessFile(ctx, path, outDir)
	if err == nil {
		sum.Processed++
		return nil
	}
	sum.Failed++
	r.logger.Warn("frame failed", zap.String("path", path), zap.Error(err))
	r.reset("frame failed", path)
	if r.opts.StopOnError {
		return fmt.Errorf("frame %s: %w", path, err)
	}
	return nil
}

func (r *Runner) reset(reason, path string) {
	r.p.Reset()
	metrics.PipelineResetsTotal.Inc()
	r.logger.Debug("pipeline reset", zap.String("reason", reason), zap.String("path", path))
}

// ProcessFile runs one frame file through the pipeline and writes the
// overlay to outDir. A trace handler failure is logged and does not fail
// the frame.
func (r *Runner) ProcessFile(ctx context.Context, path, outDir string) error {
	_, span := r.tracer.Start(ctx, "process frame", trace.WithAttributes(
		attribute.String("frame.path", path),
		attribute.Bool("frame.traced", r.p.HasTrace()),
	))
	defer span.End()

	err := r.processFile(span, path, outDir)
	result := metrics.ResultOK
	if err != nil {
		result = metrics.ResultFailed
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	metrics.FramesProcessedTotal.WithLabelValues(result).Inc()
	return err
}

func (r *Runner) processFile(span trace.Span, path, outDir string) error {
	img, err := frame.Load(path)
	if err != nil {
		return err
	}
	defer img.Close()

	mode := metrics.ModeFast
	if r.p.HasTrace() {
		mode = metrics.ModeTrace
	}
	start := time.Now()
	out, err := r.p.Process(img)
	metrics.FrameDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	defer out.Close()

	if err != nil && out.Empty() {
		return err
	}
	if err != nil {
		r.logger.Warn("trace handler failed", zap.String("path", path), zap.Error(err))
	}
	if r.p.HasTrace() {
		metrics.TraceArtifactsTotal.Add(float64(len(r.p.Trace())))
	}

	if _, fit := r.p.Previous(); fit != nil {
		span.SetAttributes(
			attribute.Float64("lane.curvature", fit.RealSpace().Curvature()),
			attribute.Float64("lane.deviation_m", fit.Deviation().Y),
		)
	}

	dst := OutputPath(outDir, path)
	if err := frame.Save(dst, out); err != nil {
		return err
	}
	r.logger.Debug("frame written", zap.String("path", dst))
	return nil
}

// OutputPath returns where the overlay for the frame at src is written.
func OutputPath(outDir, src string) string {
	base := filepath.Base(src)
	return filepath.Join(outDir, strings.TrimSuffix(base, filepath.Ext(base))+".png")
}
