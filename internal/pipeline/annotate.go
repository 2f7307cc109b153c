package pipeline

import (
	"fmt"
	"math"

	"lane-overlay/pkg/geometry"
)

// FormatAnnotation renders the text drawn onto every output frame.
// deviation.Y is in metres; non-negative values are reported to the right
// and anything else, NaN included, to the left.
func FormatAnnotation(deviation geometry.Point2D, curvature float64) string {
	side := "right"
	if !(deviation.Y >= 0) {
		side = "left"
	}
	return fmt.Sprintf("lane curvature %8.0fm - deviation %2.2fm to the %s",
		curvature, math.Abs(deviation.Y), side)
}
