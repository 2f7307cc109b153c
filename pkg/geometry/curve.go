package geometry

import "math"

// Polynomial is a second order curve x = A*y^2 + B*y + C.
// Lane boundaries are functions of y because they run roughly vertically
// in a top-down view.
type Polynomial struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
	C float64 `json:"c"`
}

// Eval returns x at the given y.
func (p Polynomial) Eval(y float64) float64 {
	return p.A*y*y + p.B*y + p.C
}

// Slope returns dx/dy at the given y.
func (p Polynomial) Slope(y float64) float64 {
	return 2*p.A*y + p.B
}

// RadiusOfCurvature returns the radius of curvature at y, in the units of
// the curve. A straight line has infinite radius.
func (p Polynomial) RadiusOfCurvature(y float64) float64 {
	if p.A == 0 {
		return math.Inf(1)
	}
	s := p.Slope(y)
	return math.Pow(1+s*s, 1.5) / math.Abs(2*p.A)
}

// Sample evaluates the curve at every integer y in [0, height) and returns
// the points in increasing y order.
func (p Polynomial) Sample(height int) []Point2D {
	pts := make([]Point2D, 0, max(height, 0))
	for y := 0; y < height; y++ {
		fy := float64(y)
		pts = append(pts, Point2D{X: p.Eval(fy), Y: fy})
	}
	return pts
}
