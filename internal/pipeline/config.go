package pipeline

// DefaultCameraSource is the calibration file used when none is configured.
const DefaultCameraSource = "./calibration.json"

// Configuration holds the options a Pipeline is constructed with. It is
// copied into the Pipeline by New and not consulted again afterwards.
type Configuration struct {
	// Trace enables recording mode: every intermediate image of a Process
	// call is kept in the trace buffer.
	Trace bool
	// TraceHandler receives the completed trace buffer at the end of each
	// traced call. Nil means the buffer is kept but not dispatched.
	TraceHandler TraceHandler
	// CameraSource is handed to the calibration loader unchanged.
	CameraSource string
}

// DefaultConfiguration returns a configuration with tracing disabled and
// the default camera source.
func DefaultConfiguration() *Configuration {
	return &Configuration{CameraSource: DefaultCameraSource}
}
