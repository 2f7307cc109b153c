// Package colorutil provides shared overlay colors.
package colorutil

import "image/color"

// Overlay colors. gocv draws in BGR order but takes color.RGBA and
// swaps internally, so these are plain RGB.
var (
	Black     = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White     = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Red       = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	LaneFill  = color.RGBA{R: 0, G: 200, B: 60, A: 255}
	LaneLeft  = color.RGBA{R: 255, G: 40, B: 40, A: 255}
	LaneRight = color.RGBA{R: 40, G: 80, B: 255, A: 255}
)
