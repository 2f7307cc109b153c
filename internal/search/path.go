package search

import (
	"image"

	"lane-overlay/internal/lane"
	"lane-overlay/pkg/colorutil"
	"lane-overlay/pkg/geometry"

	"gocv.io/x/gocv"
)

// Path is a pair of lane boundaries fitted in the top-down view.
type Path struct {
	size      geometry.Size
	left      geometry.Polynomial
	right     geometry.Polynomial
	leftReal  geometry.Polynomial
	rightReal geometry.Polynomial
	mx, my    float64 // metres per pixel
}

var _ lane.PathFunction = (*Path)(nil)

// Left returns the left boundary in top-down pixels.
func (p *Path) Left() geometry.Polynomial { return p.left }

// Right returns the right boundary in top-down pixels.
func (p *Path) Right() geometry.Polynomial { return p.right }

// Size returns the mask size the path was fitted on.
func (p *Path) Size() geometry.Size { return p.size }

// Deviation returns the offset of the image centre from the lane centre at
// the bottom row.
func (p *Path) Deviation() geometry.Point2D {
	y := float64(p.size.Height - 1)
	centre := geometry.Point2D{X: (p.left.Eval(y) + p.right.Eval(y)) / 2, Y: y}
	camera := geometry.Point2D{X: float64(p.size.Width) / 2, Y: y}
	px := camera.Sub(centre).X
	return geometry.Point2D{X: px, Y: px * p.mx}
}

// RealSpace returns the path in metres.
func (p *Path) RealSpace() lane.RealPath {
	return realPath{
		left:  p.leftReal,
		right: p.rightReal,
		y:     float64(p.size.Height-1) * p.my,
	}
}

// Draw renders the lane area and both boundaries on a black canvas.
func (p *Path) Draw() (gocv.Mat, error) {
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), p.size.Height, p.size.Width, gocv.MatTypeCV8UC3)

	left := toImagePoints(p.left.Sample(p.size.Height))
	right := toImagePoints(p.right.Sample(p.size.Height))

	// Left boundary top to bottom, then right boundary bottom to top.
	area := make([]image.Point, 0, len(left)+len(right))
	area = append(area, left...)
	for i := len(right) - 1; i >= 0; i-- {
		area = append(area, right[i])
	}

	areaVec := gocv.NewPointsVectorFromPoints([][]image.Point{area})
	defer areaVec.Close()
	gocv.FillPoly(&img, areaVec, colorutil.LaneFill)

	thickness := max(2, p.size.Width/80)
	leftVec := gocv.NewPointsVectorFromPoints([][]image.Point{left})
	defer leftVec.Close()
	gocv.Polylines(&img, leftVec, false, colorutil.LaneLeft, thickness)

	rightVec := gocv.NewPointsVectorFromPoints([][]image.Point{right})
	defer rightVec.Close()
	gocv.Polylines(&img, rightVec, false, colorutil.LaneRight, thickness)

	return img, nil
}

type realPath struct {
	left, right geometry.Polynomial
	y           float64
}

// Curvature is the mean radius of both boundaries at the vehicle.
func (r realPath) Curvature() float64 {
	return (r.left.RadiusOfCurvature(r.y) + r.right.RadiusOfCurvature(r.y)) / 2
}

func toImagePoints(pts []geometry.Point2D) []image.Point {
	out := make([]image.Point, len(pts))
	for i, p := range pts {
		out[i] = p.ImagePoint()
	}
	return out
}
