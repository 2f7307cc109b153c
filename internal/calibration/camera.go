// Package calibration loads camera models and removes lens distortion from
// frames.
package calibration

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"lane-overlay/pkg/geometry"

	"gocv.io/x/gocv"
)

var (
	// ErrUnavailable is returned when a camera source cannot be resolved
	// or decoded.
	ErrUnavailable = errors.New("camera calibration unavailable")

	// ErrShapeMismatch is returned when a frame does not match the image
	// size the camera was calibrated for.
	ErrShapeMismatch = errors.New("frame does not match calibrated image size")
)

// Camera is a pinhole camera model with radial/tangential distortion.
type Camera struct {
	Matrix     [3][3]float64 `json:"camera_matrix"`
	Distortion []float64     `json:"distortion"`
	// ImageSize is the frame size the model was calibrated on. Zero means
	// any size is accepted.
	ImageSize geometry.Size `json:"image_size"`
}

// Identity returns a camera that leaves frames untouched.
func Identity() *Camera {
	return &Camera{
		Matrix: [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
	}
}

// Load reads a camera model from a JSON file.
func Load(source string) (*Camera, error) {
	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var cam Camera
	if err := json.Unmarshal(data, &cam); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrUnavailable, source, err)
	}
	if err := cam.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, source, err)
	}

	return &cam, nil
}

// Validate checks that the model can be used for correction.
func (c *Camera) Validate() error {
	if c.Matrix[0][0] <= 0 || c.Matrix[1][1] <= 0 {
		return fmt.Errorf("focal lengths must be positive, got fx=%g fy=%g", c.Matrix[0][0], c.Matrix[1][1])
	}
	if c.Matrix[2] != [3]float64{0, 0, 1} {
		return fmt.Errorf("camera matrix last row must be [0 0 1], got %v", c.Matrix[2])
	}
	switch len(c.Distortion) {
	case 0, 4, 5, 8, 12, 14:
	default:
		return fmt.Errorf("unsupported distortion coefficient count %d", len(c.Distortion))
	}
	return nil
}

// IsIdentity reports whether correction would leave frames unchanged.
func (c *Camera) IsIdentity() bool {
	for _, k := range c.Distortion {
		if k != 0 {
			return false
		}
	}
	return true
}

// ApplyCorrection returns an undistorted copy of frame.
func (c *Camera) ApplyCorrection(frame gocv.Mat) (gocv.Mat, error) {
	if frame.Empty() {
		return gocv.NewMat(), fmt.Errorf("empty frame")
	}
	if !c.ImageSize.Empty() && (frame.Cols() != c.ImageSize.Width || frame.Rows() != c.ImageSize.Height) {
		return gocv.NewMat(), fmt.Errorf("%w: got %dx%d, want %dx%d", ErrShapeMismatch,
			frame.Cols(), frame.Rows(), c.ImageSize.Width, c.ImageSize.Height)
	}
	if c.IsIdentity() {
		return frame.Clone(), nil
	}

	cameraMat := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)
	defer cameraMat.Close()
	for r := 0; r < 3; r++ {
		for col := 0; col < 3; col++ {
			cameraMat.SetDoubleAt(r, col, c.Matrix[r][col])
		}
	}

	distMat := gocv.NewMatWithSize(1, len(c.Distortion), gocv.MatTypeCV64F)
	defer distMat.Close()
	for i, k := range c.Distortion {
		distMat.SetDoubleAt(0, i, k)
	}

	dst := gocv.NewMat()
	// Reusing the camera matrix keeps the corrected frame at the same scale.
	gocv.Undistort(frame, &dst, cameraMat, distMat, cameraMat)
	return dst, nil
}
