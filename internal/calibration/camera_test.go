package calibration

import (
	"os"
	"path/filepath"
	"testing"

	"lane-overlay/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func writeCamera(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "calibration.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeCamera(t, `{
		"camera_matrix": [[1150, 0, 640], [0, 1150, 360], [0, 0, 1]],
		"distortion": [-0.24, -0.05, -0.001, 0.0001, 0.02],
		"image_size": {"width": 1280, "height": 720}
	}`)

	cam, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1150.0, cam.Matrix[0][0])
	assert.Len(t, cam.Distortion, 5)
	assert.Equal(t, geometry.Size{Width: 1280, Height: 720}, cam.ImageSize)
	assert.False(t, cam.IsIdentity())
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `not json`},
		{"zero focal length", `{"camera_matrix": [[0,0,0],[0,1,0],[0,0,1]]}`},
		{"bad last row", `{"camera_matrix": [[1,0,0],[0,1,0],[1,0,1]]}`},
		{"odd distortion", `{"camera_matrix": [[1,0,0],[0,1,0],[0,0,1]], "distortion": [1,2,3]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeCamera(t, tt.body))
			assert.ErrorIs(t, err, ErrUnavailable)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestApplyCorrectionIdentity(t *testing.T) {
	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(10, 20, 30, 0), 8, 12, gocv.MatTypeCV8UC3)
	defer frame.Close()

	out, err := Identity().ApplyCorrection(frame)
	require.NoError(t, err)
	defer out.Close()

	assert.Equal(t, frame.ToBytes(), out.ToBytes())
}

func TestApplyCorrectionShape(t *testing.T) {
	cam := Identity()
	cam.ImageSize = geometry.Size{Width: 64, Height: 48}

	frame := gocv.NewMatWithSize(10, 10, gocv.MatTypeCV8UC3)
	defer frame.Close()

	out, err := cam.ApplyCorrection(frame)
	defer out.Close()
	assert.ErrorIs(t, err, ErrShapeMismatch)

	empty := gocv.NewMat()
	defer empty.Close()
	out2, err := cam.ApplyCorrection(empty)
	defer out2.Close()
	assert.Error(t, err)
}

func TestApplyCorrectionDistorted(t *testing.T) {
	cam := &Camera{
		Matrix:     [3][3]float64{{40, 0, 16}, {0, 40, 12}, {0, 0, 1}},
		Distortion: []float64{-0.2, 0, 0, 0, 0},
	}
	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), 24, 32, gocv.MatTypeCV8UC3)
	defer frame.Close()

	out, err := cam.ApplyCorrection(frame)
	require.NoError(t, err)
	defer out.Close()
	assert.Equal(t, frame.Rows(), out.Rows())
	assert.Equal(t, frame.Cols(), out.Cols())
}
