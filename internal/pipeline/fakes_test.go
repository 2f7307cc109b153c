package pipeline

import (
	"errors"
	"image"

	"lane-overlay/internal/lane"
	"lane-overlay/internal/overlay"
	"lane-overlay/pkg/colorutil"
	"lane-overlay/pkg/geometry"

	"gocv.io/x/gocv"
)

var errStage = errors.New("stage exploded")

type identityCorrector struct{}

func (identityCorrector) ApplyCorrection(frame gocv.Mat) (gocv.Mat, error) {
	if frame.Empty() {
		return gocv.NewMat(), errors.New("empty frame")
	}
	return frame.Clone(), nil
}

func identityLoader(string) (lane.Corrector, error) { return identityCorrector{}, nil }

type cloneTransform struct{}

func (cloneTransform) Apply(img gocv.Mat) (gocv.Mat, error)   { return img.Clone(), nil }
func (cloneTransform) Unapply(img gocv.Mat) (gocv.Mat, error) { return img.Clone(), nil }

// fixedRegion covers the whole frame.
type fixedRegion struct {
	id   int
	w, h int
}

func (r *fixedRegion) Transform() lane.Transform { return cloneTransform{} }

func (r *fixedRegion) Source() []image.Point {
	return []image.Point{{X: 0, Y: 0}, {X: r.w - 1, Y: 0}, {X: r.w - 1, Y: r.h - 1}, {X: 0, Y: r.h - 1}}
}

func (r *fixedRegion) Anchor() []geometry.Point2D {
	return []geometry.Point2D{{X: float64(r.w) / 4, Y: float64(r.h)}, {X: float64(r.w) * 3 / 4, Y: float64(r.h)}}
}

type fakeRegionBuilder struct {
	calls    int
	previous []lane.Region
	failOn   int // 1-based call number that fails, 0 never
}

func (b *fakeRegionBuilder) BuildRegion(frame gocv.Mat, previous lane.Region) (lane.Region, error) {
	b.calls++
	b.previous = append(b.previous, previous)
	if b.calls == b.failOn {
		return nil, errStage
	}
	return &fixedRegion{id: b.calls, w: frame.Cols(), h: frame.Rows()}, nil
}

type fullMask struct{}

func (fullMask) MakeBinary(frame gocv.Mat) (gocv.Mat, error) {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 0, 0, 0), frame.Rows(), frame.Cols(), gocv.MatTypeCV8UC1), nil
}

type fixedRealPath float64

func (r fixedRealPath) Curvature() float64 { return float64(r) }

type fixedPath struct {
	id        int
	rows      int
	cols      int
	deviation geometry.Point2D
	curvature float64
}

func (p *fixedPath) Deviation() geometry.Point2D { return p.deviation }
func (p *fixedPath) RealSpace() lane.RealPath    { return fixedRealPath(p.curvature) }

func (p *fixedPath) Draw() (gocv.Mat, error) {
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), p.rows, p.cols, gocv.MatTypeCV8UC3)
	gocv.Rectangle(&img, image.Rect(p.cols/4, 0, p.cols*3/4, p.rows), colorutil.LaneFill, -1)
	return img, nil
}

type fakePathBuilder struct {
	calls     int
	previous  []lane.PathFunction
	failOn    int
	deviation geometry.Point2D
	curvature float64
}

func (b *fakePathBuilder) BuildPath(mask gocv.Mat, _ []geometry.Point2D, previous lane.PathFunction) (lane.PathFunction, error) {
	b.calls++
	b.previous = append(b.previous, previous)
	if b.calls == b.failOn {
		return nil, errStage
	}
	return &fixedPath{
		id:        b.calls,
		rows:      mask.Rows(),
		cols:      mask.Cols(),
		deviation: b.deviation,
		curvature: b.curvature,
	}, nil
}

// recordingDrawer keeps the annotation text it was asked to draw.
type recordingDrawer struct {
	*overlay.Drawer
	texts []string
}

func (d *recordingDrawer) DrawTextPath(frame *gocv.Mat, text string) {
	d.texts = append(d.texts, text)
	d.Drawer.DrawTextPath(frame, text)
}

type harness struct {
	regions *fakeRegionBuilder
	paths   *fakePathBuilder
	drawer  *recordingDrawer
}

func newHarness() *harness {
	return &harness{
		regions: &fakeRegionBuilder{},
		paths:   &fakePathBuilder{deviation: geometry.Point2D{X: 0, Y: 0.15}, curvature: 500},
		drawer:  &recordingDrawer{Drawer: overlay.NewDrawer(overlay.DefaultStyle())},
	}
}

func (h *harness) options() []Option {
	return []Option{
		WithCalibrationLoader(identityLoader),
		WithRegionBuilder(h.regions),
		WithPathBuilder(h.paths),
		WithBinaryExtractor(fullMask{}),
		WithDrawer(h.drawer),
	}
}

func blankFrame() gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 60, 80, gocv.MatTypeCV8UC3)
}
