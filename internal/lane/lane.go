// Package lane defines the contracts between the frame pipeline and the
// stages it sequences. Frames are gocv Mats; whoever receives a Mat from one
// of these calls owns it and must Close it.
package lane

import (
	"image"

	"lane-overlay/pkg/geometry"

	"gocv.io/x/gocv"
)

// Corrector removes lens distortion from raw frames.
type Corrector interface {
	ApplyCorrection(frame gocv.Mat) (gocv.Mat, error)
}

// Transform maps images between the camera view and the top-down view
// of a region.
type Transform interface {
	// Apply warps a camera-view image into the top-down view.
	Apply(img gocv.Mat) (gocv.Mat, error)
	// Unapply warps a top-down image back into the camera view.
	Unapply(img gocv.Mat) (gocv.Mat, error)
}

// Region is the area of a corrected frame that holds the lane markings.
type Region interface {
	Transform() Transform
	// Source is the region boundary in camera-view pixels, in drawing order.
	Source() []image.Point
	// Anchor returns the expected lane base points in top-down pixels.
	Anchor() []geometry.Point2D
}

// RegionBuilder derives a region from a corrected frame. previous is the
// region built for the last successfully processed frame, or nil.
type RegionBuilder interface {
	BuildRegion(frame gocv.Mat, previous Region) (Region, error)
}

// BinaryExtractor turns a corrected frame into a single channel lane-pixel
// mask. Implementations are pure functions of their input.
type BinaryExtractor interface {
	MakeBinary(frame gocv.Mat) (gocv.Mat, error)
}

// RealPath is a fitted path expressed in world units.
type RealPath interface {
	// Curvature returns the radius of curvature in metres.
	Curvature() float64
}

// PathFunction is a lane path fitted in the top-down view.
type PathFunction interface {
	// Deviation returns the lateral offset of the vehicle from the lane
	// centre: X in top-down pixels, Y in metres. Positive is to the right.
	Deviation() geometry.Point2D
	// Draw renders the path as a 3 channel template the size of the mask
	// it was fitted on.
	Draw() (gocv.Mat, error)
	RealSpace() RealPath
}

// PathBuilder fits a path to a top-down lane mask. previous is the path
// fitted for the last successfully processed frame, or nil.
type PathBuilder interface {
	BuildPath(mask gocv.Mat, anchors []geometry.Point2D, previous PathFunction) (PathFunction, error)
}

// Drawer holds the drawing and compositing primitives.
type Drawer interface {
	// DrawTextPath writes the annotation text onto frame in place.
	DrawTextPath(frame *gocv.Mat, text string)
	// MakeOverlay composites a path image onto frame into a new Mat.
	MakeOverlay(frame, path gocv.Mat) (gocv.Mat, error)
	// DrawLinePath draws a closed polyline onto frame in place.
	DrawLinePath(frame *gocv.Mat, points []image.Point)
}
