package geometry

import (
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuadBoundingBox(t *testing.T) {
	q := Quad{{X: 10.2, Y: 5}, {X: 30, Y: 5}, {X: 40.5, Y: 20.1}, {X: 0, Y: 20}}
	assert.Equal(t, image.Rect(0, 5, 41, 21), q.BoundingBox())
}

func TestPointSub(t *testing.T) {
	assert.Equal(t, Point2D{X: -2, Y: 5}, Point2D{X: 1, Y: 7}.Sub(Point2D{X: 3, Y: 2}))
}

func TestHomographyApply(t *testing.T) {
	h := Homography{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	assert.Equal(t, Point2D{X: 3, Y: 4}, h.Apply(Point2D{X: 3, Y: 4}))

	scale := Homography{{2, 0, 1}, {0, 2, 0}, {0, 0, 1}}
	assert.Equal(t, Point2D{X: 7, Y: 8}, scale.Apply(Point2D{X: 3, Y: 4}))
}

func TestPolynomial(t *testing.T) {
	line := Polynomial{C: 12}
	assert.Equal(t, 12.0, line.Eval(100))
	assert.True(t, math.IsInf(line.RadiusOfCurvature(0), 1))

	// x = y^2/2 has radius 1 at the vertex.
	parabola := Polynomial{A: 0.5}
	assert.InDelta(t, 1.0, parabola.RadiusOfCurvature(0), 1e-12)

	pts := Polynomial{B: 1}.Sample(3)
	assert.Equal(t, []Point2D{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}}, pts)
}
