// Package config loads run settings from an optional YAML file and the
// environment.
//
// Environment variables use the LANE_ prefix and a double underscore between
// section and key, for example LANE_PIPELINE__TRACE=true or
// LANE_SEARCH__MIN_PIXELS=200.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"lane-overlay/internal/binary"
	"lane-overlay/internal/overlay"
	"lane-overlay/internal/pipeline"
	"lane-overlay/internal/region"
	"lane-overlay/internal/search"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "LANE_"

// Settings is the full run configuration.
type Settings struct {
	Pipeline  PipelineSettings  `koanf:"pipeline"`
	Output    OutputSettings    `koanf:"output"`
	Log       LogSettings       `koanf:"log"`
	Metrics   MetricsSettings   `koanf:"metrics"`
	Telemetry TelemetrySettings `koanf:"telemetry"`
	Region    region.Params     `koanf:"region"`
	Binary    binary.Params     `koanf:"binary"`
	Search    search.Params     `koanf:"search"`
	Runner    RunnerSettings    `koanf:"runner"`
}

// PipelineSettings configures pipeline construction.
type PipelineSettings struct {
	Trace        bool   `koanf:"trace"`
	CameraSource string `koanf:"camera_source"`
}

// OutputSettings says where overlays and trace output go.
type OutputSettings struct {
	Dir      string `koanf:"dir"`       // overlay frames
	TraceDir string `koanf:"trace_dir"` // per-frame trace artifacts, empty disables
	Sheet    bool   `koanf:"sheet"`     // contact sheet per traced frame
}

// LogSettings configures the zap logger.
type LogSettings struct {
	Level string `koanf:"level"`
}

// MetricsSettings configures the metrics export.
type MetricsSettings struct {
	Textfile string `koanf:"textfile"` // prometheus text file written at exit
}

// TelemetrySettings configures span export.
type TelemetrySettings struct {
	SpanFile string `koanf:"span_file"` // JSON spans, empty disables
}

// RunnerSettings configures the batch failure policy.
type RunnerSettings struct {
	StopOnError bool `koanf:"stop_on_error"`
}

// Default returns the settings used when nothing is configured.
func Default() *Settings {
	return &Settings{
		Pipeline: PipelineSettings{CameraSource: pipeline.DefaultCameraSource},
		Output:   OutputSettings{Dir: "out"},
		Log:      LogSettings{Level: "info"},
		Region:   region.DefaultParams(),
		Binary:   binary.DefaultParams(),
		Search:   search.DefaultParams(),
	}
}

// Load reads settings from defaults, then the YAML file at path (skipped
// when path is empty), then LANE_ environment variables.
func Load(path string) (*Settings, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	s := Default()
	if err := k.Unmarshal("", s); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks every section.
func (s *Settings) Validate() error {
	var errs []error
	if _, err := zapcore.ParseLevel(s.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if s.Output.Dir == "" {
		errs = append(errs, errors.New("output.dir must be set"))
	}
	if s.Output.Sheet && !s.Pipeline.Trace {
		errs = append(errs, errors.New("output.sheet requires pipeline.trace"))
	}
	if err := s.Region.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("region: %w", err))
	}
	if err := s.Binary.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("binary: %w", err))
	}
	if err := s.Search.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("search: %w", err))
	}
	return errors.Join(errs...)
}

// PipelineConfiguration returns the pipeline configuration for these
// settings, dispatching traces to handler.
func (s *Settings) PipelineConfiguration(handler pipeline.TraceHandler) *pipeline.Configuration {
	return &pipeline.Configuration{
		Trace:        s.Pipeline.Trace,
		TraceHandler: handler,
		CameraSource: s.Pipeline.CameraSource,
	}
}

// PipelineOptions returns the default collaborators tuned by these settings.
func (s *Settings) PipelineOptions(logger *zap.Logger) []pipeline.Option {
	return []pipeline.Option{
		pipeline.WithRegionBuilder(region.NewBuilder(s.Region)),
		pipeline.WithBinaryExtractor(binary.NewSobelSChannel(s.Binary)),
		pipeline.WithPathBuilder(search.NewBuilder(s.Search)),
		pipeline.WithDrawer(overlay.NewDrawer(overlay.DefaultStyle())),
		pipeline.WithLogger(logger),
	}
}

// Resolve returns path if set, otherwise fallback when that file exists,
// otherwise the empty string.
func Resolve(path, fallback string) string {
	if path != "" {
		return path
	}
	if _, err := os.Stat(fallback); err == nil {
		return fallback
	}
	return ""
}
