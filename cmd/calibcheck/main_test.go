package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunPrintsCalibration(t *testing.T) {
	cal := filepath.Join(t.TempDir(), "cal.json")
	require.NoError(t, os.WriteFile(cal, []byte(`{"camera_matrix": [[800,0,320],[0,800,240],[0,0,1]]}`), 0o644))

	assert.Equal(t, 0, run([]string{"-camera", cal}))
	assert.Equal(t, 1, run([]string{"-camera", cal, "-image", filepath.Join(t.TempDir(), "absent.png")}))
}

func TestRunBadCalibration(t *testing.T) {
	assert.Equal(t, 1, run([]string{"-camera", filepath.Join(t.TempDir(), "absent.json")}))
	assert.Equal(t, 2, run([]string{"-nope"}))
}
