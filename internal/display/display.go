// Package display prepares images for viewing and renders them.
//
// Compose works out what to show: it resolves the grayscale mode of each
// panel and converts the Mats to Go images. A Target shows the result. The
// pipeline never calls into this package.
package display

import (
	"errors"
	"fmt"
	"image"

	"lane-overlay/internal/frame"

	"gocv.io/x/gocv"
)

// GrayMode selects how a panel is coloured.
type GrayMode int

const (
	// GrayAuto shows single channel images in grayscale and everything else in colour.
	GrayAuto GrayMode = iota
	GrayOff
	GrayOn
)

func (m GrayMode) String() string {
	switch m {
	case GrayAuto:
		return "auto"
	case GrayOff:
		return "off"
	case GrayOn:
		return "on"
	default:
		return fmt.Sprintf("GrayMode(%d)", int(m))
	}
}

// Panel is one titled image to be shown.
type Panel struct {
	Image gocv.Mat
	Title string
	Gray  GrayMode
}

// ComposedPanel is a panel ready to be drawn.
type ComposedPanel struct {
	Title string
	Gray  bool
	Image image.Image
}

// Sheet is an ordered set of panels shown side by side.
type Sheet struct {
	Panels []ComposedPanel
}

// Target renders a sheet to some surface.
type Target interface {
	Render(sheet Sheet) error
}

// ErrNoPanels is returned by Compose when called without panels.
var ErrNoPanels = errors.New("no panels to compose")

// Compose converts panels into a Sheet. The panel Mats are read, not
// retained.
func Compose(panels ...Panel) (Sheet, error) {
	if len(panels) == 0 {
		return Sheet{}, ErrNoPanels
	}
	sheet := Sheet{Panels: make([]ComposedPanel, 0, len(panels))}
	for i, p := range panels {
		cp, err := composePanel(p)
		if err != nil {
			return Sheet{}, fmt.Errorf("panel %d %q: %w", i, p.Title, err)
		}
		sheet.Panels = append(sheet.Panels, cp)
	}
	return sheet, nil
}

// IsGray resolves the grayscale mode of img. In auto mode an image is gray
// when it has fewer than two channels.
func IsGray(img gocv.Mat, mode GrayMode) bool {
	switch mode {
	case GrayOn:
		return true
	case GrayOff:
		return false
	default:
		return img.Channels() < 2
	}
}

func composePanel(p Panel) (ComposedPanel, error) {
	if p.Image.Empty() {
		return ComposedPanel{}, errors.New("empty image")
	}
	gray := IsGray(p.Image, p.Gray)

	src := p.Image
	var code gocv.ColorConversionCode
	convert := false
	switch {
	case gray && src.Channels() == 3:
		code, convert = gocv.ColorBGRToGray, true
	case !gray && src.Channels() == 1:
		code, convert = gocv.ColorGrayToBGR, true
	}
	if convert {
		converted := gocv.NewMat()
		defer converted.Close()
		gocv.CvtColor(src, &converted, code)
		src = converted
	}

	img, err := frame.ToImage(src)
	if err != nil {
		return ComposedPanel{}, err
	}
	return ComposedPanel{Title: p.Title, Gray: gray, Image: img}, nil
}

// Show renders a single image.
func Show(target Target, panel Panel) error {
	return render(target, panel)
}

// ShowPair renders two images side by side.
func ShowPair(target Target, left, right Panel) error {
	return render(target, left, right)
}

func render(target Target, panels ...Panel) error {
	sheet, err := Compose(panels...)
	if err != nil {
		return err
	}
	return target.Render(sheet)
}
