// Package tracesink provides TraceHandlers that consume pipeline traces.
package tracesink

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"lane-overlay/internal/display"
	"lane-overlay/internal/frame"
	"lane-overlay/internal/pipeline"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Collector keeps a copy of every trace it receives.
type Collector struct {
	runs []pipeline.Trace
}

var _ pipeline.TraceHandler = (*Collector)(nil)

// Run clones the artifacts of trace.
func (c *Collector) Run(trace pipeline.Trace) error {
	kept := make(pipeline.Trace, len(trace))
	for i, a := range trace {
		kept[i] = pipeline.Artifact{Image: a.Image.Clone(), Label: a.Label}
	}
	c.runs = append(c.runs, kept)
	return nil
}

// Calls returns how many traces have been received.
func (c *Collector) Calls() int { return len(c.runs) }

// Trace returns the i-th received trace.
func (c *Collector) Trace(i int) pipeline.Trace { return c.runs[i] }

// Last returns the most recent trace, or nil.
func (c *Collector) Last() pipeline.Trace {
	if len(c.runs) == 0 {
		return nil
	}
	return c.runs[len(c.runs)-1]
}

// Close releases every kept image.
func (c *Collector) Close() error {
	for _, t := range c.runs {
		for _, a := range t {
			a.Image.Close()
		}
	}
	c.runs = nil
	return nil
}

// DiskWriter writes every artifact as a PNG file:
//
//	<dir>/<run id>/frame-00001/00-raw.png
type DiskWriter struct {
	dir    string
	runID  string
	frames int
	logger *zap.Logger
}

var _ pipeline.TraceHandler = (*DiskWriter)(nil)

// NewDiskWriter creates a writer below dir with a fresh run id.
func NewDiskWriter(dir string, logger *zap.Logger) *DiskWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiskWriter{dir: dir, runID: uuid.NewString(), logger: logger}
}

// RunDir returns the directory the current run writes into.
func (w *DiskWriter) RunDir() string {
	return filepath.Join(w.dir, w.runID)
}

// Run writes the artifacts of one frame.
func (w *DiskWriter) Run(trace pipeline.Trace) error {
	w.frames++
	dir := filepath.Join(w.RunDir(), fmt.Sprintf("frame-%05d", w.frames))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create trace directory: %w", err)
	}
	for i, a := range trace {
		path := filepath.Join(dir, fmt.Sprintf("%02d-%s.png", i, a.Label))
		if err := frame.Save(path, a.Image); err != nil {
			return fmt.Errorf("trace %s: %w", a.Label, err)
		}
	}
	w.logger.Debug("trace written", zap.String("dir", dir), zap.Int("artifacts", len(trace)))
	return nil
}

// SheetRenderer shows a trace as a contact sheet of titled panels.
type SheetRenderer struct {
	targetFor func(n int) display.Target
	calls     int

	// Labels restricts the sheet to these artifacts, in trace order. Empty
	// means all.
	Labels []string
}

var _ pipeline.TraceHandler = (*SheetRenderer)(nil)

// NewSheetRenderer renders every trace to target.
func NewSheetRenderer(target display.Target) *SheetRenderer {
	return &SheetRenderer{targetFor: func(int) display.Target { return target }}
}

// NewSheetSeries renders the n-th trace (1-based) to targetFor(n).
func NewSheetSeries(targetFor func(n int) display.Target) *SheetRenderer {
	return &SheetRenderer{targetFor: targetFor}
}

// Run composes and renders the sheet.
func (s *SheetRenderer) Run(trace pipeline.Trace) error {
	s.calls++
	panels := make([]display.Panel, 0, len(trace))
	for _, a := range trace {
		if !s.wants(a.Label) {
			continue
		}
		panels = append(panels, display.Panel{Image: a.Image, Title: a.Label, Gray: display.GrayAuto})
	}
	sheet, err := display.Compose(panels...)
	if err != nil {
		return fmt.Errorf("compose sheet: %w", err)
	}
	return s.targetFor(s.calls).Render(sheet)
}

func (s *SheetRenderer) wants(label string) bool {
	return len(s.Labels) == 0 || slices.Contains(s.Labels, label)
}

// Multi passes each trace to every handler in order and joins their errors.
type Multi []pipeline.TraceHandler

// Run calls every handler, even after a failure.
func (m Multi) Run(trace pipeline.Trace) error {
	var errs []error
	for _, h := range m {
		if err := h.Run(trace); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
