// Package pipeline turns raw road frames into annotated lane overlays.
//
// A Pipeline sequences the correction, region, binary, path and drawing
// stages for each frame and carries the region and path of the last
// successful frame into the next one. With tracing enabled it also records
// every intermediate image of a call.
//
// A Pipeline is not safe for concurrent use. Use one per stream.
package pipeline

import (
	"errors"
	"fmt"

	"lane-overlay/internal/binary"
	"lane-overlay/internal/calibration"
	"lane-overlay/internal/lane"
	"lane-overlay/internal/overlay"
	"lane-overlay/internal/region"
	"lane-overlay/internal/search"

	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

var (
	// ErrNoConfiguration is returned by New when no configuration is given.
	ErrNoConfiguration = errors.New("pipeline configuration is required")

	// ErrCalibrationUnavailable is returned by New when the camera source
	// cannot be loaded.
	ErrCalibrationUnavailable = errors.New("calibration unavailable")
)

// CalibrationLoader resolves a camera source into a Corrector.
type CalibrationLoader func(source string) (lane.Corrector, error)

// Option replaces a default collaborator.
type Option func(*options)

type options struct {
	loader  CalibrationLoader
	regions lane.RegionBuilder
	paths   lane.PathBuilder
	binary  lane.BinaryExtractor
	drawer  lane.Drawer
	logger  *zap.Logger
}

// WithCalibrationLoader sets how the camera source is loaded.
func WithCalibrationLoader(l CalibrationLoader) Option {
	return func(o *options) { o.loader = l }
}

// WithRegionBuilder sets the region builder.
func WithRegionBuilder(b lane.RegionBuilder) Option {
	return func(o *options) { o.regions = b }
}

// WithPathBuilder sets the path builder.
func WithPathBuilder(b lane.PathBuilder) Option {
	return func(o *options) { o.paths = b }
}

// WithBinaryExtractor sets the binary extractor.
func WithBinaryExtractor(e lane.BinaryExtractor) Option {
	return func(o *options) { o.binary = e }
}

// WithDrawer sets the drawing primitives.
func WithDrawer(d lane.Drawer) Option {
	return func(o *options) { o.drawer = d }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

func loadCamera(source string) (lane.Corrector, error) {
	cam, err := calibration.Load(source)
	if err != nil {
		return nil, err
	}
	return cam, nil
}

// Pipeline processes frames one at a time.
type Pipeline struct {
	cfg    Configuration
	logger *zap.Logger

	corrector lane.Corrector
	regions   lane.RegionBuilder
	paths     lane.PathBuilder
	binary    lane.BinaryExtractor
	drawer    lane.Drawer

	prevRegion lane.Region
	prevPath   lane.PathFunction

	// nil iff tracing is disabled
	trace *Trace
}

// New loads the calibration named by cfg.CameraSource and builds a
// Pipeline around it.
func New(cfg *Configuration, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		return nil, ErrNoConfiguration
	}

	o := options{
		loader:  loadCamera,
		regions: region.NewBuilder(region.DefaultParams()),
		paths:   search.NewBuilder(search.DefaultParams()),
		binary:  binary.NewSobelSChannel(binary.DefaultParams()),
		drawer:  overlay.NewDrawer(overlay.DefaultStyle()),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	corrector, err := o.loader(cfg.CameraSource)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCalibrationUnavailable, cfg.CameraSource, err)
	}
	if corrector == nil {
		return nil, fmt.Errorf("%w: %s: loader returned no calibration", ErrCalibrationUnavailable, cfg.CameraSource)
	}

	p := &Pipeline{
		cfg:       *cfg,
		logger:    o.logger,
		corrector: corrector,
		regions:   o.regions,
		paths:     o.paths,
		binary:    o.binary,
		drawer:    o.drawer,
	}
	if cfg.Trace {
		p.trace = &Trace{}
	}

	p.logger.Debug("pipeline created",
		zap.String("camera_source", cfg.CameraSource),
		zap.Bool("trace", cfg.Trace),
		zap.Bool("trace_handler", cfg.TraceHandler != nil))
	return p, nil
}

// HasTrace reports whether the pipeline was created with tracing enabled.
func (p *Pipeline) HasTrace() bool {
	return p.trace != nil
}

// Trace returns the artifacts of the most recent traced call, or nil when
// tracing is disabled.
func (p *Pipeline) Trace() Trace {
	if p.trace == nil {
		return nil
	}
	return *p.trace
}

// Previous returns the region and path carried into the next call. Both
// are nil before the first successful call and after Reset.
func (p *Pipeline) Previous() (lane.Region, lane.PathFunction) {
	return p.prevRegion, p.prevPath
}

// Reset forgets the region and path of the previous frame. Use it at clip
// boundaries or after a frame that could not be processed.
func (p *Pipeline) Reset() {
	p.prevRegion = nil
	p.prevPath = nil
	p.logger.Debug("pipeline reset")
}

// Close releases the images held in the trace buffer.
func (p *Pipeline) Close() error {
	if p.trace != nil {
		p.trace.close()
		*p.trace = Trace{}
	}
	return nil
}

// Process runs one frame through the pipeline and returns the annotated
// overlay. frame is not modified. The returned Mat is owned by the caller
// and is empty when the frame could not be processed.
//
// When tracing is enabled the trace buffer is replaced by the artifacts of
// this call and passed to the configured TraceHandler. A handler error is
// returned together with the valid overlay.
func (p *Pipeline) Process(frame gocv.Mat) (gocv.Mat, error) {
	if p.trace == nil {
		return p.process(frame, nil)
	}
	return p.processTraced(frame)
}

func (p *Pipeline) processTraced(frame gocv.Mat) (gocv.Mat, error) {
	p.trace.close()
	*p.trace = make(Trace, 0, 8)

	out, err := p.process(frame, p.trace)
	if err != nil {
		return out, err
	}
	p.record(p.trace, LabelFinal, out)

	if p.cfg.TraceHandler == nil {
		return out, nil
	}
	if err := p.cfg.TraceHandler.Run(*p.trace); err != nil {
		return out, fmt.Errorf("trace handler: %w", err)
	}
	return out, nil
}

func (p *Pipeline) record(rec *Trace, label string, img gocv.Mat) {
	if rec == nil {
		return
	}
	*rec = append(*rec, Artifact{Image: img.Clone(), Label: label})
}

func (p *Pipeline) fail(stage string, err error) (gocv.Mat, error) {
	p.logger.Debug("stage failed", zap.String("stage", stage), zap.Error(err))
	return gocv.NewMat(), fmt.Errorf("%s: %w", stage, err)
}

// process runs every stage. rec is nil on the fast path.
func (p *Pipeline) process(frame gocv.Mat, rec *Trace) (gocv.Mat, error) {
	p.record(rec, LabelRaw, frame)

	corrected, err := p.corrector.ApplyCorrection(frame)
	if err != nil {
		return p.fail("correct frame", err)
	}
	defer corrected.Close()
	p.record(rec, LabelCorrected, corrected)

	roi, err := p.regions.BuildRegion(corrected, p.prevRegion)
	if err != nil {
		return p.fail("build region", err)
	}
	if roi == nil {
		return p.fail("build region", errors.New("no region"))
	}
	if rec != nil {
		view := corrected.Clone()
		p.drawer.DrawLinePath(&view, roi.Source())
		*rec = append(*rec, Artifact{Image: view, Label: LabelRegion})
	}

	mask, err := p.binary.MakeBinary(corrected)
	if err != nil {
		return p.fail("make binary", err)
	}
	defer mask.Close()
	p.record(rec, LabelBinary, mask)

	transform := roi.Transform()
	warped, err := transform.Apply(mask)
	if err != nil {
		return p.fail("warp binary", err)
	}
	defer warped.Close()
	p.record(rec, LabelBinaryTransform, warped)

	path, err := p.paths.BuildPath(warped, roi.Anchor(), p.prevPath)
	if err != nil {
		return p.fail("build path", err)
	}
	if path == nil {
		return p.fail("build path", errors.New("no path"))
	}

	drawn, err := path.Draw()
	if err != nil {
		return p.fail("draw path", err)
	}
	defer drawn.Close()
	p.record(rec, LabelPathTransform, drawn)

	normal, err := transform.Unapply(drawn)
	if err != nil {
		return p.fail("unwarp path", err)
	}
	defer normal.Close()
	p.record(rec, LabelPathNormal, normal)

	out, err := p.drawer.MakeOverlay(corrected, normal)
	if err != nil {
		out.Close()
		return p.fail("make overlay", err)
	}
	p.drawer.DrawTextPath(&out, FormatAnnotation(path.Deviation(), path.RealSpace().Curvature()))

	p.prevRegion, p.prevPath = roi, path
	return out, nil
}
