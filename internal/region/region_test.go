package region

import (
	"testing"

	"lane-overlay/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestBuildMapsCorners(t *testing.T) {
	r, err := NewBuilder(DefaultParams()).Build(geometry.Size{Width: 1280, Height: 720})
	require.NoError(t, err)

	tf := r.Transform().(*Transform)
	for i, p := range r.source {
		got := tf.Forward().Apply(p)
		assert.InDelta(t, r.dest[i].X, got.X, 1e-6, "corner %d x", i)
		assert.InDelta(t, r.dest[i].Y, got.Y, 1e-6, "corner %d y", i)

		back := tf.Inverse().Apply(got)
		assert.InDelta(t, p.X, back.X, 1e-6, "corner %d x round trip", i)
		assert.InDelta(t, p.Y, back.Y, 1e-6, "corner %d y round trip", i)
	}

	anchors := r.Anchor()
	require.Len(t, anchors, 2)
	assert.Equal(t, 320.0, anchors[0].X)
	assert.Equal(t, 960.0, anchors[1].X)
	assert.Len(t, r.Source(), 4)
}

func TestBuildRegionContinuity(t *testing.T) {
	b := NewBuilder(DefaultParams())

	frame := gocv.NewMatWithSize(72, 128, gocv.MatTypeCV8UC3)
	defer frame.Close()

	first, err := b.BuildRegion(frame, nil)
	require.NoError(t, err)

	again, err := b.BuildRegion(frame, first)
	require.NoError(t, err)
	assert.Same(t, first, again, "same-size previous region is reused")

	other := gocv.NewMatWithSize(36, 64, gocv.MatTypeCV8UC3)
	defer other.Close()
	resized, err := b.BuildRegion(other, first)
	require.NoError(t, err)
	assert.NotSame(t, first, resized)
	assert.Equal(t, geometry.Size{Width: 64, Height: 36}, resized.(*Region).Size())
}

func TestBuildRegionEmpty(t *testing.T) {
	empty := gocv.NewMat()
	defer empty.Close()

	_, err := NewBuilder(DefaultParams()).BuildRegion(empty, nil)
	assert.ErrorIs(t, err, ErrEmptyFrame)
}

func TestTransformApplyKeepsSize(t *testing.T) {
	r, err := NewBuilder(DefaultParams()).Build(geometry.Size{Width: 64, Height: 48})
	require.NoError(t, err)

	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 0, 0, 0), 48, 64, gocv.MatTypeCV8UC1)
	defer img.Close()

	warped, err := r.Transform().Apply(img)
	require.NoError(t, err)
	defer warped.Close()
	assert.Equal(t, []int{48, 64}, []int{warped.Rows(), warped.Cols()})

	back, err := r.Transform().Unapply(warped)
	require.NoError(t, err)
	defer back.Close()
	assert.Equal(t, []int{48, 64}, []int{back.Rows(), back.Cols()})
}

func TestParamsValidate(t *testing.T) {
	assert.NoError(t, DefaultParams().Validate())

	p := DefaultParams()
	p.TopY = 0.99
	assert.Error(t, p.Validate())

	p = DefaultParams()
	p.DestInset = 0.5
	assert.Error(t, p.Validate())

	p = DefaultParams()
	p.BottomHalfWidth = 0
	assert.Error(t, p.Validate())
}

func TestBuildRejectsTrapezoidOutsideFrame(t *testing.T) {
	p := DefaultParams()
	p.CenterX = 0.8 // bottom edge reaches 1.2 of the width

	_, err := NewBuilder(p).Build(geometry.Size{Width: 64, Height: 48})
	assert.ErrorIs(t, err, ErrOutOfFrame)

	_, err = NewBuilder(DefaultParams()).Build(geometry.Size{Width: 64, Height: 48})
	assert.NoError(t, err)
}
