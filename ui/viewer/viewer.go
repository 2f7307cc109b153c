// Package viewer shows display sheets in desktop windows.
package viewer

import (
	"fmt"

	"lane-overlay/internal/display"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

const (
	maxColumns = 4
	panelWidth = 480
)

// Viewer is a display.Target that opens one window per rendered sheet.
// Windows stay open until Run returns.
type Viewer struct {
	app     fyne.App
	title   string
	windows []fyne.Window
}

var _ display.Target = (*Viewer)(nil)

// New creates a viewer backed by a new fyne application.
func New(title string) *Viewer {
	return NewWithApp(fyneapp.New(), title)
}

// NewWithApp creates a viewer on an existing application.
func NewWithApp(a fyne.App, title string) *Viewer {
	a.Settings().SetTheme(&sheetTheme{})
	return &Viewer{app: a, title: title}
}

// Render opens a window laying the sheet's panels out on a grid.
func (v *Viewer) Render(sheet display.Sheet) error {
	if len(sheet.Panels) == 0 {
		return display.ErrNoPanels
	}

	cells := make([]fyne.CanvasObject, 0, len(sheet.Panels))
	for _, p := range sheet.Panels {
		cells = append(cells, panelCell(p))
	}

	title := v.title
	if len(v.windows) > 0 {
		title = fmt.Sprintf("%s (%d)", v.title, len(v.windows)+1)
	}
	win := v.app.NewWindow(title)
	win.SetContent(container.NewGridWithColumns(min(len(cells), maxColumns), cells...))
	win.Show()
	v.windows = append(v.windows, win)
	return nil
}

// Windows returns the windows opened so far.
func (v *Viewer) Windows() []fyne.Window {
	return v.windows
}

// Run blocks until every window is closed.
func (v *Viewer) Run() {
	if len(v.windows) == 0 {
		return
	}
	v.app.Run()
}

func panelCell(p display.ComposedPanel) fyne.CanvasObject {
	b := p.Image.Bounds()
	img := canvas.NewImageFromImage(p.Image)
	img.FillMode = canvas.ImageFillContain
	if p.Gray {
		// keep mask pixels crisp
		img.ScaleMode = canvas.ImageScalePixels
	}
	img.SetMinSize(fyne.NewSize(panelWidth, panelWidth*float32(b.Dy())/float32(b.Dx())))

	label := widget.NewLabelWithStyle(p.Title, fyne.TextAlignCenter, fyne.TextStyle{Bold: true})
	return container.NewBorder(label, nil, nil, nil, img)
}
