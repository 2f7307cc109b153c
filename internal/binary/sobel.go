// Package binary extracts candidate lane-marking pixels from corrected frames.
package binary

import (
	"errors"
	"fmt"

	"lane-overlay/internal/lane"

	"gocv.io/x/gocv"
)

// ErrEmptyFrame is returned for an empty input frame.
var ErrEmptyFrame = errors.New("empty frame")

// Params holds the thresholds for the gradient and saturation masks.
type Params struct {
	SobelKernel int     `koanf:"sobel_kernel"` // odd aperture size
	SobelMin    float64 `koanf:"sobel_min"`    // inclusive, on the 0-255 normalized gradient
	SobelMax    float64 `koanf:"sobel_max"`
	SatMin      float64 `koanf:"sat_min"` // inclusive, on HLS saturation
	SatMax      float64 `koanf:"sat_max"`
}

// DefaultParams returns thresholds that pick up painted lane lines on
// asphalt in daylight.
func DefaultParams() Params {
	return Params{
		SobelKernel: 3,
		SobelMin:    20,
		SobelMax:    100,
		SatMin:      170,
		SatMax:      255,
	}
}

// Validate checks the thresholds.
func (p Params) Validate() error {
	if p.SobelKernel < 1 || p.SobelKernel%2 == 0 || p.SobelKernel > 31 {
		return fmt.Errorf("sobel_kernel must be odd and in [1, 31], got %d", p.SobelKernel)
	}
	if p.SobelMin > p.SobelMax || p.SatMin > p.SatMax {
		return fmt.Errorf("threshold ranges must satisfy min <= max")
	}
	return nil
}

// SobelSChannel marks pixels with a strong horizontal gradient or a high
// HLS saturation. Painted lines respond to one or both under most lighting.
type SobelSChannel struct {
	params Params
}

var _ lane.BinaryExtractor = (*SobelSChannel)(nil)

// NewSobelSChannel creates the extractor.
func NewSobelSChannel(params Params) *SobelSChannel {
	return &SobelSChannel{params: params}
}

// MakeBinary returns a single channel 0/255 mask the size of frame.
func (s *SobelSChannel) MakeBinary(frame gocv.Mat) (gocv.Mat, error) {
	if frame.Empty() {
		return gocv.NewMat(), ErrEmptyFrame
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() == 1 {
		frame.CopyTo(&gray)
	} else {
		gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)
	}

	mask := s.gradientMask(gray)

	if frame.Channels() == 3 {
		sat := s.saturationMask(frame)
		defer sat.Close()
		gocv.BitwiseOr(mask, sat, &mask)
	}

	return mask, nil
}

// gradientMask thresholds the normalized absolute x gradient.
func (s *SobelSChannel) gradientMask(gray gocv.Mat) gocv.Mat {
	sobelX := gocv.NewMat()
	defer sobelX.Close()
	gocv.Sobel(gray, &sobelX, gocv.MatTypeCV16S, 1, 0, s.params.SobelKernel, 1, 0, gocv.BorderDefault)

	sobelAbs := gocv.NewMat()
	defer sobelAbs.Close()
	gocv.ConvertScaleAbs(sobelX, &sobelAbs, 1, 0)

	scaled := gocv.NewMat()
	defer scaled.Close()
	gocv.Normalize(sobelAbs, &scaled, 0, 255, gocv.NormMinMax)

	mask := gocv.NewMat()
	gocv.InRangeWithScalar(scaled,
		gocv.NewScalar(s.params.SobelMin, 0, 0, 0),
		gocv.NewScalar(s.params.SobelMax, 0, 0, 0),
		&mask)
	return mask
}

// saturationMask thresholds the S channel of the HLS image.
func (s *SobelSChannel) saturationMask(frame gocv.Mat) gocv.Mat {
	hls := gocv.NewMat()
	defer hls.Close()
	gocv.CvtColor(frame, &hls, gocv.ColorBGRToHLS)

	channels := gocv.Split(hls)
	defer func() {
		for _, c := range channels {
			c.Close()
		}
	}()

	mask := gocv.NewMat()
	gocv.InRangeWithScalar(channels[2],
		gocv.NewScalar(s.params.SatMin, 0, 0, 0),
		gocv.NewScalar(s.params.SatMax, 0, 0, 0),
		&mask)
	return mask
}
