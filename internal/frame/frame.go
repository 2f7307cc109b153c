// Package frame loads and saves single frames and converts between gocv Mats
// and Go images.
package frame

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gocv.io/x/gocv"
	_ "golang.org/x/image/tiff"
)

// Load decodes an image file into a 3 channel BGR Mat.
func Load(path string) (gocv.Mat, error) {
	file, err := os.Open(path)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to open frame: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to decode frame: %w", err)
	}

	return FromImage(img), nil
}

// Save encodes a Mat to path. The format follows the file extension.
func Save(path string, mat gocv.Mat) error {
	if mat.Empty() {
		return fmt.Errorf("refusing to save empty frame to %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if !gocv.IMWrite(path, mat) {
		return fmt.Errorf("failed to write frame to %s", path)
	}
	return nil
}

// SupportedFormats returns the list of supported frame file extensions.
func SupportedFormats() []string {
	return []string{".png", ".jpg", ".jpeg", ".tiff", ".tif"}
}

// IsSupportedFormat checks if the given path has a supported image format.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}

// ListDir returns the supported frame files in dir, sorted by name.
// Frame sequences are expected to be named so that lexical order is
// playback order.
func ListDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !IsSupportedFormat(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}
