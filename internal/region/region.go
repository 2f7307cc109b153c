// Package region derives the lane region of interest from a corrected frame
// and the perspective transform between the camera view and a top-down view.
package region

import (
	"errors"
	"fmt"
	"image"

	"lane-overlay/internal/lane"
	"lane-overlay/pkg/geometry"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"
)

// ErrEmptyFrame is returned when a region is requested for an empty frame.
var ErrEmptyFrame = errors.New("empty frame")

// ErrOutOfFrame is returned when the configured trapezoid leaves the frame.
var ErrOutOfFrame = errors.New("region outside frame")

// Params places the source trapezoid and the top-down rectangle as
// fractions of the frame size.
type Params struct {
	CenterX         float64 `koanf:"center_x"`          // horizontal centre of the trapezoid
	TopY            float64 `koanf:"top_y"`             // top edge of the trapezoid
	BottomY         float64 `koanf:"bottom_y"`          // bottom edge of the trapezoid
	TopHalfWidth    float64 `koanf:"top_half_width"`    // half width at the top edge
	BottomHalfWidth float64 `koanf:"bottom_half_width"` // half width at the bottom edge
	DestInset       float64 `koanf:"dest_inset"`        // lane inset from each side in top-down view
}

// DefaultParams returns a trapezoid tuned for a forward facing dash camera
// with the horizon a little above mid-frame.
func DefaultParams() Params {
	return Params{
		CenterX:         0.5,
		TopY:            0.64,
		BottomY:         0.95,
		TopHalfWidth:    0.07,
		BottomHalfWidth: 0.40,
		DestInset:       0.25,
	}
}

// Validate checks the fractions describe a usable trapezoid.
func (p Params) Validate() error {
	if p.TopY < 0 || p.BottomY > 1 || p.TopY >= p.BottomY {
		return fmt.Errorf("region rows must satisfy 0 <= top_y < bottom_y <= 1, got %g, %g", p.TopY, p.BottomY)
	}
	if p.TopHalfWidth <= 0 || p.BottomHalfWidth <= 0 {
		return fmt.Errorf("region half widths must be positive")
	}
	if p.DestInset < 0 || p.DestInset >= 0.5 {
		return fmt.Errorf("dest_inset must be in [0, 0.5), got %g", p.DestInset)
	}
	return nil
}

// Region is a trapezoidal area of a frame and its top-down mapping.
type Region struct {
	size      geometry.Size
	source    geometry.Quad
	dest      geometry.Quad
	transform *Transform
}

var _ lane.Region = (*Region)(nil)

// Transform returns the perspective mapping of the region.
func (r *Region) Transform() lane.Transform { return r.transform }

// Source returns the trapezoid in camera-view pixels.
func (r *Region) Source() []image.Point { return r.source.ImagePoints() }

// Size returns the frame size the region was built for.
func (r *Region) Size() geometry.Size { return r.size }

// Anchor returns the expected left and right lane base points in
// top-down pixels.
func (r *Region) Anchor() []geometry.Point2D {
	return []geometry.Point2D{r.dest[3], r.dest[2]}
}

// Builder creates regions from frame geometry.
type Builder struct {
	params Params
}

var _ lane.RegionBuilder = (*Builder)(nil)

// NewBuilder creates a Builder.
func NewBuilder(params Params) *Builder {
	return &Builder{params: params}
}

// BuildRegion returns the region for frame. A previous region built by this
// package for the same frame size is returned as is.
func (b *Builder) BuildRegion(frame gocv.Mat, previous lane.Region) (lane.Region, error) {
	if frame.Empty() {
		return nil, ErrEmptyFrame
	}
	size := geometry.Size{Width: frame.Cols(), Height: frame.Rows()}

	if prev, ok := previous.(*Region); ok && prev.size == size {
		return prev, nil
	}
	return b.Build(size)
}

// Build computes the region for a frame size.
func (b *Builder) Build(size geometry.Size) (*Region, error) {
	if size.Empty() {
		return nil, ErrEmptyFrame
	}
	p := b.params
	w, h := float64(size.Width), float64(size.Height)
	cx := p.CenterX * w

	src := geometry.Quad{
		{X: cx - p.TopHalfWidth*w, Y: p.TopY * h},
		{X: cx + p.TopHalfWidth*w, Y: p.TopY * h},
		{X: cx + p.BottomHalfWidth*w, Y: p.BottomY * h},
		{X: cx - p.BottomHalfWidth*w, Y: p.BottomY * h},
	}
	dst := geometry.Quad{
		{X: p.DestInset * w, Y: 0},
		{X: (1 - p.DestInset) * w, Y: 0},
		{X: (1 - p.DestInset) * w, Y: h - 1},
		{X: p.DestInset * w, Y: h - 1},
	}

	frameRect := image.Rect(0, 0, size.Width, size.Height)
	if bb := src.BoundingBox(); !bb.In(frameRect) {
		return nil, fmt.Errorf("%w: trapezoid %v exceeds frame %v", ErrOutOfFrame, bb, frameRect)
	}

	tf, err := NewTransform(src, dst, size)
	if err != nil {
		return nil, fmt.Errorf("region transform: %w", err)
	}

	return &Region{size: size, source: src, dest: dst, transform: tf}, nil
}

// Transform warps images between the camera view and the top-down view.
type Transform struct {
	forward geometry.Homography
	inverse geometry.Homography
	size    geometry.Size
}

var _ lane.Transform = (*Transform)(nil)

// NewTransform computes the homographies mapping src onto dst and back.
// Warped images keep the given size.
func NewTransform(src, dst geometry.Quad, size geometry.Size) (*Transform, error) {
	fwd, err := computeHomography(src, dst)
	if err != nil {
		return nil, err
	}
	inv, err := computeHomography(dst, src)
	if err != nil {
		return nil, err
	}
	return &Transform{forward: fwd, inverse: inv, size: size}, nil
}

// Forward returns the camera-to-top-down homography.
func (t *Transform) Forward() geometry.Homography { return t.forward }

// Inverse returns the top-down-to-camera homography.
func (t *Transform) Inverse() geometry.Homography { return t.inverse }

// Apply warps img into the top-down view.
func (t *Transform) Apply(img gocv.Mat) (gocv.Mat, error) {
	return warpPerspective(img, t.forward, t.size)
}

// Unapply warps a top-down img back into the camera view.
func (t *Transform) Unapply(img gocv.Mat) (gocv.Mat, error) {
	return warpPerspective(img, t.inverse, t.size)
}

func warpPerspective(src gocv.Mat, h geometry.Homography, size geometry.Size) (gocv.Mat, error) {
	if src.Empty() {
		return gocv.NewMat(), ErrEmptyFrame
	}

	m := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)
	defer m.Close()
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			m.SetDoubleAt(r, c, h[r][c])
		}
	}

	dst := gocv.NewMat()
	gocv.WarpPerspective(src, &dst, m, size.ImagePoint())
	return dst, nil
}

// computeHomography solves for the projective transform mapping the four
// src corners onto the four dst corners, with h33 fixed at 1.
func computeHomography(src, dst geometry.Quad) (geometry.Homography, error) {
	A := mat.NewDense(8, 8, nil)
	B := mat.NewVecDense(8, nil)

	for i := 0; i < 4; i++ {
		x, y := src[i].X, src[i].Y
		xp, yp := dst[i].X, dst[i].Y

		// x' = (h11 x + h12 y + h13) / (h31 x + h32 y + 1)
		A.SetRow(i*2, []float64{x, y, 1, 0, 0, 0, -x * xp, -y * xp})
		B.SetVec(i*2, xp)

		// y' = (h21 x + h22 y + h23) / (h31 x + h32 y + 1)
		A.SetRow(i*2+1, []float64{0, 0, 0, x, y, 1, -x * yp, -y * yp})
		B.SetVec(i*2+1, yp)
	}

	var params mat.VecDense
	if err := params.SolveVec(A, B); err != nil {
		return geometry.Homography{}, fmt.Errorf("degenerate quad: %w", err)
	}

	return geometry.Homography{
		{params.AtVec(0), params.AtVec(1), params.AtVec(2)},
		{params.AtVec(3), params.AtVec(4), params.AtVec(5)},
		{params.AtVec(6), params.AtVec(7), 1},
	}, nil
}
