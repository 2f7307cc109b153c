// Package search locates lane pixels in a top-down mask and fits the lane
// boundaries.
package search

import (
	"errors"
	"fmt"

	"lane-overlay/internal/lane"
	"lane-overlay/pkg/geometry"

	"gocv.io/x/gocv"
)

// ErrInsufficientPixels is returned when a lane has too few pixels to fit.
var ErrInsufficientPixels = errors.New("insufficient lane pixels")

// Params tunes the search and the pixel-to-metre conversion.
type Params struct {
	Windows         int     `koanf:"windows"`           // sliding windows per lane
	WindowMargin    float64 `koanf:"window_margin"`     // half window width, fraction of mask width
	RecenterPixels  int     `koanf:"recenter_pixels"`   // pixels needed to recentre a window
	MinPixels       int     `koanf:"min_pixels"`        // pixels needed to fit a lane
	MetersPerPixelX float64 `koanf:"meters_per_pixel_x"`
	MetersPerPixelY float64 `koanf:"meters_per_pixel_y"`
}

// DefaultParams returns values for a 1280x720 top-down view of a US lane
// (3.7m wide, about 30m visible).
func DefaultParams() Params {
	return Params{
		Windows:         9,
		WindowMargin:    0.08,
		RecenterPixels:  50,
		MinPixels:       100,
		MetersPerPixelX: 3.7 / 640,
		MetersPerPixelY: 30.0 / 720,
	}
}

// Validate checks all values are positive.
func (p Params) Validate() error {
	if p.Windows <= 0 || p.RecenterPixels <= 0 || p.MinPixels < 3 {
		return fmt.Errorf("windows and recenter_pixels must be positive and min_pixels at least 3")
	}
	if p.WindowMargin <= 0 || p.WindowMargin >= 0.5 {
		return fmt.Errorf("window_margin must be in (0, 0.5), got %g", p.WindowMargin)
	}
	if p.MetersPerPixelX <= 0 || p.MetersPerPixelY <= 0 {
		return fmt.Errorf("meters_per_pixel must be positive")
	}
	return nil
}

// Builder fits paths to top-down lane masks.
type Builder struct {
	params Params
}

var _ lane.PathBuilder = (*Builder)(nil)

// NewBuilder creates a Builder.
func NewBuilder(params Params) *Builder {
	return &Builder{params: params}
}

// pixels holds the coordinates of the set pixels of a mask.
type pixels struct {
	xs, ys []float64
}

// BuildPath fits both lane boundaries. With a previous path fitted on a mask
// of the same size, pixels are taken from a band around the previous curves;
// otherwise sliding windows start at the anchors.
func (b *Builder) BuildPath(mask gocv.Mat, anchors []geometry.Point2D, previous lane.PathFunction) (lane.PathFunction, error) {
	if mask.Empty() {
		return nil, fmt.Errorf("%w: empty mask", ErrInsufficientPixels)
	}
	if mask.Type() != gocv.MatTypeCV8UC1 {
		return nil, fmt.Errorf("mask must be single channel 8-bit, got %v", mask.Type())
	}

	size := geometry.Size{Width: mask.Cols(), Height: mask.Rows()}
	pts := collectPixels(mask)
	margin := b.params.WindowMargin * float64(size.Width)

	var left, right pixels
	if prev, ok := previous.(*Path); ok && prev.size == size {
		left = pts.near(prev.left, margin)
		right = pts.near(prev.right, margin)
	} else {
		leftBase, rightBase := b.bases(pts, size, anchors, margin)
		left = b.slide(pts, size, leftBase, margin)
		right = b.slide(pts, size, rightBase, margin)
	}

	if len(left.xs) < b.params.MinPixels {
		return nil, fmt.Errorf("%w: left lane has %d", ErrInsufficientPixels, len(left.xs))
	}
	if len(right.xs) < b.params.MinPixels {
		return nil, fmt.Errorf("%w: right lane has %d", ErrInsufficientPixels, len(right.xs))
	}

	path := &Path{size: size, mx: b.params.MetersPerPixelX, my: b.params.MetersPerPixelY}
	var err error
	if path.left, err = fitPolynomial(left.ys, left.xs); err != nil {
		return nil, fmt.Errorf("fit left lane: %w", err)
	}
	if path.right, err = fitPolynomial(right.ys, right.xs); err != nil {
		return nil, fmt.Errorf("fit right lane: %w", err)
	}
	if path.leftReal, err = fitPolynomial(scale(left.ys, path.my), scale(left.xs, path.mx)); err != nil {
		return nil, fmt.Errorf("fit left lane in metres: %w", err)
	}
	if path.rightReal, err = fitPolynomial(scale(right.ys, path.my), scale(right.xs, path.mx)); err != nil {
		return nil, fmt.Errorf("fit right lane in metres: %w", err)
	}

	return path, nil
}

// bases returns the starting columns of the left and right searches: the
// anchors moved to the strongest column of the bottom half within margin.
func (b *Builder) bases(pts pixels, size geometry.Size, anchors []geometry.Point2D, margin float64) (float64, float64) {
	hist := make([]int, size.Width)
	half := float64(size.Height) / 2
	for i, y := range pts.ys {
		if y >= half {
			hist[int(pts.xs[i])]++
		}
	}

	mid := float64(size.Width) / 2
	if len(anchors) < 2 {
		// Without anchors search each half of the view.
		return peak(hist, 0, mid, mid/2), peak(hist, mid, float64(size.Width), mid+mid/2)
	}
	l, r := anchors[0].X, anchors[1].X
	return peak(hist, l-margin, l+margin, l), peak(hist, r-margin, r+margin, r)
}

// peak returns the column in [lo, hi) with the highest count, or fallback
// when every count is zero.
func peak(hist []int, lo, hi, fallback float64) float64 {
	start := max(0, int(lo))
	end := min(len(hist), int(hi))
	best, bestCount := fallback, 0
	for x := start; x < end; x++ {
		if hist[x] > bestCount {
			best, bestCount = float64(x), hist[x]
		}
	}
	return best
}

// slide walks windows from the bottom of the view to the top, recentring
// each window on the pixels found in the one below.
func (b *Builder) slide(pts pixels, size geometry.Size, base, margin float64) pixels {
	winHeight := float64(size.Height) / float64(b.params.Windows)
	centre := base

	var out pixels
	for w := 0; w < b.params.Windows; w++ {
		yHigh := float64(size.Height) - float64(w)*winHeight
		yLow := yHigh - winHeight

		var sum float64
		var count int
		for i, y := range pts.ys {
			x := pts.xs[i]
			if y < yLow || y >= yHigh || x < centre-margin || x >= centre+margin {
				continue
			}
			out.xs = append(out.xs, x)
			out.ys = append(out.ys, y)
			sum += x
			count++
		}
		if count >= b.params.RecenterPixels {
			centre = sum / float64(count)
		}
	}
	return out
}

// near returns the pixels within margin of the curve.
func (p pixels) near(curve geometry.Polynomial, margin float64) pixels {
	var out pixels
	for i, y := range p.ys {
		x := p.xs[i]
		cx := curve.Eval(y)
		if x >= cx-margin && x < cx+margin {
			out.xs = append(out.xs, x)
			out.ys = append(out.ys, y)
		}
	}
	return out
}

func collectPixels(mask gocv.Mat) pixels {
	var out pixels
	data := mask.ToBytes()
	w := mask.Cols()
	for i, v := range data {
		if v == 0 {
			continue
		}
		out.xs = append(out.xs, float64(i%w))
		out.ys = append(out.ys, float64(i/w))
	}
	return out
}

func scale(vs []float64, f float64) []float64 {
	out := make([]float64, len(vs))
	for i, v := range vs {
		out[i] = v * f
	}
	return out
}
