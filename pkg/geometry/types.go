// Package geometry provides basic geometric types used throughout the application.
package geometry

import (
	"image"
	"math"
)

// Point2D represents a 2D point with floating-point coordinates.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sub returns the difference of two points.
func (p Point2D) Sub(other Point2D) Point2D {
	return Point2D{X: p.X - other.X, Y: p.Y - other.Y}
}

// ImagePoint rounds to the nearest pixel.
func (p Point2D) ImagePoint() image.Point {
	return image.Point{X: int(math.Round(p.X)), Y: int(math.Round(p.Y))}
}

// Size represents a 2D size in pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Empty reports whether either dimension is not positive.
func (s Size) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// ImagePoint returns the size as an image.Point, the form gocv takes for dsize.
func (s Size) ImagePoint() image.Point {
	return image.Point{X: s.Width, Y: s.Height}
}

// Quad is a four-vertex polygon, ordered top-left, top-right,
// bottom-right, bottom-left.
type Quad [4]Point2D

// ImagePoints returns the vertices rounded to pixels, in order.
func (q Quad) ImagePoints() []image.Point {
	pts := make([]image.Point, len(q))
	for i, p := range q {
		pts[i] = p.ImagePoint()
	}
	return pts
}

// BoundingBox computes the axis-aligned bounding box of the quad.
func (q Quad) BoundingBox() image.Rectangle {
	minX, minY := q[0].X, q[0].Y
	maxX, maxY := minX, minY
	for _, p := range q[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return image.Rect(int(math.Floor(minX)), int(math.Floor(minY)),
		int(math.Ceil(maxX)), int(math.Ceil(maxY)))
}

// Homography is a 3x3 projective transform in row-major order.
type Homography [3][3]float64

// Apply maps a point through the transform.
func (h Homography) Apply(p Point2D) Point2D {
	w := h[2][0]*p.X + h[2][1]*p.Y + h[2][2]
	if w == 0 {
		return Point2D{X: math.Inf(1), Y: math.Inf(1)}
	}
	return Point2D{
		X: (h[0][0]*p.X + h[0][1]*p.Y + h[0][2]) / w,
		Y: (h[1][0]*p.X + h[1][1]*p.Y + h[1][2]) / w,
	}
}
