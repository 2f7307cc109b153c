// Package overlay composites lane paths onto frames and draws annotations.
package overlay

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"lane-overlay/internal/lane"
	"lane-overlay/pkg/colorutil"

	"gocv.io/x/gocv"
)

// ErrSizeMismatch is returned when the path image and frame differ in size.
var ErrSizeMismatch = errors.New("overlay size mismatch")

// Style controls how overlays and annotations are drawn.
type Style struct {
	Opacity       float64     // weight of the path image in the blend
	TextOrigin    image.Point // bottom-left of the first text baseline
	FontScale     float64
	TextThickness int
	TextColor     color.RGBA
	ShadowColor   color.RGBA
	LineColor     color.RGBA
	LineThickness int
}

// DefaultStyle returns the overlay style.
func DefaultStyle() Style {
	return Style{
		Opacity:       0.3,
		TextOrigin:    image.Point{X: 30, Y: 50},
		FontScale:     1.2,
		TextThickness: 2,
		TextColor:     colorutil.White,
		ShadowColor:   colorutil.Black,
		LineColor:     colorutil.Red,
		LineThickness: 3,
	}
}

// Drawer implements the drawing primitives with gocv.
type Drawer struct {
	style Style
}

var _ lane.Drawer = (*Drawer)(nil)

// NewDrawer creates a Drawer.
func NewDrawer(style Style) *Drawer {
	return &Drawer{style: style}
}

// DrawTextPath writes text onto frame with a drop shadow.
func (d *Drawer) DrawTextPath(frame *gocv.Mat, text string) {
	s := d.style
	shadow := s.TextOrigin.Add(image.Point{X: 2, Y: 2})
	gocv.PutText(frame, text, shadow, gocv.FontHersheySimplex, s.FontScale, s.ShadowColor, s.TextThickness)
	gocv.PutText(frame, text, s.TextOrigin, gocv.FontHersheySimplex, s.FontScale, s.TextColor, s.TextThickness)
}

// MakeOverlay blends path over frame and returns the result as a new
// 3 channel Mat. Single channel inputs are expanded to BGR first.
func (d *Drawer) MakeOverlay(frame, path gocv.Mat) (gocv.Mat, error) {
	if frame.Empty() || path.Empty() {
		return gocv.NewMat(), fmt.Errorf("overlay of empty image")
	}
	if frame.Rows() != path.Rows() || frame.Cols() != path.Cols() {
		return gocv.NewMat(), fmt.Errorf("%w: frame %dx%d, path %dx%d", ErrSizeMismatch,
			frame.Cols(), frame.Rows(), path.Cols(), path.Rows())
	}

	base := toBGR(frame)
	defer base.Close()
	top := toBGR(path)
	defer top.Close()

	dst := gocv.NewMat()
	gocv.AddWeighted(base, 1, top, d.style.Opacity, 0, &dst)
	return dst, nil
}

// DrawLinePath draws a closed polyline through points onto frame.
func (d *Drawer) DrawLinePath(frame *gocv.Mat, points []image.Point) {
	if len(points) < 2 {
		return
	}
	pv := gocv.NewPointsVectorFromPoints([][]image.Point{points})
	defer pv.Close()
	gocv.Polylines(frame, pv, true, d.style.LineColor, d.style.LineThickness)
}

// toBGR returns a 3 channel copy of img.
func toBGR(img gocv.Mat) gocv.Mat {
	out := gocv.NewMat()
	if img.Channels() == 1 {
		gocv.CvtColor(img, &out, gocv.ColorGrayToBGR)
	} else {
		img.CopyTo(&out)
	}
	return out
}
