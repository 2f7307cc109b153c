package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"lane-overlay/internal/calibration"
	"lane-overlay/internal/frame"
	"lane-overlay/internal/lane"
	"lane-overlay/internal/metrics"
	"lane-overlay/internal/pipeline"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// litMask marks every pixel of a lit frame as lane and nothing of a black one.
type litMask struct{}

func (litMask) MakeBinary(f gocv.Mat) (gocv.Mat, error) {
	v := 0.0
	if f.GetUCharAt(0, 0) > 0 {
		v = 255
	}
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(v, 0, 0, 0), f.Rows(), f.Cols(), gocv.MatTypeCV8UC1), nil
}

func newPipeline(t *testing.T) *pipeline.Pipeline {
	t.Helper()
	p, err := pipeline.New(pipeline.DefaultConfiguration(),
		pipeline.WithCalibrationLoader(func(string) (lane.Corrector, error) { return calibration.Identity(), nil }),
		pipeline.WithBinaryExtractor(litMask{}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

func writeFrame(t *testing.T, path string, lit bool) {
	t.Helper()
	v := 0.0
	if lit {
		v = 120
	}
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(v, v, v, 0), 48, 64, gocv.MatTypeCV8UC3)
	defer m.Close()
	require.NoError(t, frame.Save(path, m))
}

func TestRunFilesAndClips(t *testing.T) {
	in := t.TempDir()
	clip := filepath.Join(in, "clip1")
	for _, name := range []string{"f000.png", "f001.png", "f002.png"} {
		writeFrame(t, filepath.Join(clip, name), true)
	}
	loose := filepath.Join(in, "loose.png")
	writeFrame(t, loose, true)

	out := t.TempDir()
	p := newPipeline(t)
	sum, err := New(p, Options{OutDir: out}, nil).Run(context.Background(), []string{loose, clip})
	require.NoError(t, err)
	assert.Equal(t, Summary{Processed: 4, Clips: 1}, sum)

	for _, name := range []string{"loose.png", "clip1/f000.png", "clip1/f002.png"} {
		_, err := os.Stat(filepath.Join(out, name))
		assert.NoError(t, err, name)
	}
	r, path := p.Previous()
	assert.NotNil(t, r)
	assert.NotNil(t, path)
}

func TestRunSkipsFailedFrames(t *testing.T) {
	clip := filepath.Join(t.TempDir(), "clip")
	writeFrame(t, filepath.Join(clip, "a.png"), true)
	writeFrame(t, filepath.Join(clip, "b.png"), false)
	writeFrame(t, filepath.Join(clip, "c.png"), true)

	resets := testutil.ToFloat64(metrics.PipelineResetsTotal)
	failed := testutil.ToFloat64(metrics.FramesProcessedTotal.WithLabelValues(metrics.ResultFailed))

	out := t.TempDir()
	sum, err := New(newPipeline(t), Options{OutDir: out}, nil).Run(context.Background(), []string{clip})
	require.NoError(t, err)
	assert.Equal(t, Summary{Processed: 2, Failed: 1, Clips: 1}, sum)
	assert.Equal(t, resets+2, testutil.ToFloat64(metrics.PipelineResetsTotal))
	assert.Equal(t, failed+1, testutil.ToFloat64(metrics.FramesProcessedTotal.WithLabelValues(metrics.ResultFailed)))

	_, err = os.Stat(filepath.Join(out, "clip", "b.png"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunStopOnError(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.png")
	good := filepath.Join(dir, "good.png")
	writeFrame(t, bad, false)
	writeFrame(t, good, true)

	sum, err := New(newPipeline(t), Options{OutDir: t.TempDir(), StopOnError: true}, nil).
		Run(context.Background(), []string{bad, good})
	assert.ErrorContains(t, err, "bad.png")
	assert.Equal(t, Summary{Failed: 1}, sum)
}

func TestRunMissingInput(t *testing.T) {
	_, err := New(newPipeline(t), Options{OutDir: t.TempDir()}, nil).
		Run(context.Background(), []string{filepath.Join(t.TempDir(), "absent.png")})
	assert.Error(t, err)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(newPipeline(t), Options{OutDir: t.TempDir()}, nil).Run(ctx, []string{"x.png"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "f001.png"), OutputPath("out", "/data/clip/f001.jpg"))
	assert.Equal(t, filepath.Join("out", "a.b.png"), OutputPath("out", "a.b.tif"))
}
