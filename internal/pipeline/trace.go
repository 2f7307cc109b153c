package pipeline

import (
	"errors"

	"gocv.io/x/gocv"
)

// Trace labels, in the order a traced Process call records them.
const (
	LabelRaw             = "raw"
	LabelCorrected       = "corrected"
	LabelRegion          = "region"
	LabelBinary          = "binary"
	LabelBinaryTransform = "binary_transform"
	LabelPathTransform   = "path_transform"
	LabelPathNormal      = "path_normal"
	LabelFinal           = "final"
)

// ErrTraceHandlerNotImplemented is returned by UnimplementedTraceHandler.
var ErrTraceHandlerNotImplemented = errors.New("trace handler not implemented")

// Artifact is one labelled intermediate image.
type Artifact struct {
	Image gocv.Mat
	Label string
}

// Trace is the ordered list of artifacts captured during one Process call.
// The images belong to the Pipeline and stay valid until its next Process,
// Reset of the trace or Close. Handlers that keep images must Clone them.
type Trace []Artifact

// Labels returns the artifact labels in order.
func (t Trace) Labels() []string {
	labels := make([]string, len(t))
	for i, a := range t {
		labels[i] = a.Label
	}
	return labels
}

// Find returns the first artifact with the given label.
func (t Trace) Find(label string) (Artifact, bool) {
	for _, a := range t {
		if a.Label == label {
			return a, true
		}
	}
	return Artifact{}, false
}

func (t Trace) close() {
	for _, a := range t {
		a.Image.Close()
	}
}

// TraceHandler consumes a completed trace.
type TraceHandler interface {
	Run(trace Trace) error
}

// TraceHandlerFunc adapts a function to a TraceHandler.
type TraceHandlerFunc func(trace Trace) error

// Run calls f(trace).
func (f TraceHandlerFunc) Run(trace Trace) error {
	return f(trace)
}

// UnimplementedTraceHandler can be embedded by handlers that do not yet
// consume traces. Using it directly is reported as an error.
type UnimplementedTraceHandler struct{}

// Run always returns ErrTraceHandlerNotImplemented.
func (UnimplementedTraceHandler) Run(Trace) error {
	return ErrTraceHandlerNotImplemented
}
