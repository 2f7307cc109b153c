package tracesink

import (
	"os"
	"path/filepath"
	"testing"

	"lane-overlay/internal/display"
	"lane-overlay/internal/pipeline"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func sampleTrace(t *testing.T) pipeline.Trace {
	t.Helper()
	raw := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(10, 20, 30, 0), 24, 32, gocv.MatTypeCV8UC3)
	mask := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 0, 0, 0), 24, 32, gocv.MatTypeCV8UC1)
	t.Cleanup(func() {
		raw.Close()
		mask.Close()
	})
	return pipeline.Trace{
		{Image: raw, Label: pipeline.LabelRaw},
		{Image: mask, Label: pipeline.LabelBinary},
	}
}

type recordingTarget struct {
	sheets []display.Sheet
}

func (r *recordingTarget) Render(s display.Sheet) error {
	r.sheets = append(r.sheets, s)
	return nil
}

func TestCollectorClones(t *testing.T) {
	tr := sampleTrace(t)
	c := &Collector{}
	defer c.Close()

	require.NoError(t, c.Run(tr))
	require.NoError(t, c.Run(tr[:1]))
	assert.Equal(t, 2, c.Calls())
	assert.Equal(t, []string{"raw", "binary"}, c.Trace(0).Labels())
	assert.Equal(t, []string{"raw"}, c.Last().Labels())

	kept := c.Trace(0)[0].Image
	tr[0].Image.SetUCharAt(0, 0, 99)
	assert.Equal(t, uint8(10), kept.GetUCharAt(0, 0))

	require.NoError(t, c.Close())
	assert.Zero(t, c.Calls())
	assert.Nil(t, c.Last())
}

func TestDiskWriter(t *testing.T) {
	dir := t.TempDir()
	w := NewDiskWriter(dir, nil)
	_, err := uuid.Parse(filepath.Base(w.RunDir()))
	require.NoError(t, err)

	tr := sampleTrace(t)
	require.NoError(t, w.Run(tr))
	require.NoError(t, w.Run(tr))

	for _, name := range []string{
		"frame-00001/00-raw.png",
		"frame-00001/01-binary.png",
		"frame-00002/00-raw.png",
	} {
		_, err := os.Stat(filepath.Join(w.RunDir(), name))
		assert.NoError(t, err, name)
	}

	other := NewDiskWriter(dir, nil)
	assert.NotEqual(t, w.RunDir(), other.RunDir())
}

func TestSheetRenderer(t *testing.T) {
	target := &recordingTarget{}
	r := NewSheetRenderer(target)
	require.NoError(t, r.Run(sampleTrace(t)))

	require.Len(t, target.sheets, 1)
	panels := target.sheets[0].Panels
	require.Len(t, panels, 2)
	assert.Equal(t, "raw", panels[0].Title)
	assert.False(t, panels[0].Gray)
	assert.True(t, panels[1].Gray)
}

func TestSheetSeriesFiltersLabels(t *testing.T) {
	var got []int
	target := &recordingTarget{}
	r := NewSheetSeries(func(n int) display.Target {
		got = append(got, n)
		return target
	})
	r.Labels = []string{pipeline.LabelBinary}

	tr := sampleTrace(t)
	require.NoError(t, r.Run(tr))
	require.NoError(t, r.Run(tr))

	assert.Equal(t, []int{1, 2}, got)
	require.Len(t, target.sheets, 2)
	require.Len(t, target.sheets[1].Panels, 1)
	assert.Equal(t, "binary", target.sheets[1].Panels[0].Title)

	r.Labels = []string{"final"}
	assert.ErrorIs(t, r.Run(tr), display.ErrNoPanels)
}

func TestMultiRunsEveryHandler(t *testing.T) {
	c := &Collector{}
	defer c.Close()

	m := Multi{pipeline.UnimplementedTraceHandler{}, c}
	err := m.Run(sampleTrace(t))
	assert.ErrorIs(t, err, pipeline.ErrTraceHandlerNotImplemented)
	assert.Equal(t, 1, c.Calls())

	assert.NoError(t, Multi{c}.Run(sampleTrace(t)))
}
