// Command calibcheck loads a camera calibration, prints it and optionally
// shows a frame before and after correction.
package main

import (
	"flag"
	"fmt"
	"os"

	"lane-overlay/internal/calibration"
	"lane-overlay/internal/display"
	"lane-overlay/internal/frame"
	"lane-overlay/internal/pipeline"
	"lane-overlay/ui/viewer"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("calibcheck", flag.ContinueOnError)
	camera := fs.String("camera", pipeline.DefaultCameraSource, "Camera calibration file")
	imagePath := fs.String("image", "", "Frame to correct")
	sheet := fs.String("sheet", "", "Write raw and corrected side by side to this PNG")
	view := fs.Bool("view", false, "Show raw and corrected in a window")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cam, err := calibration.Load(*camera)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load calibration: %v\n", err)
		return 1
	}

	fmt.Printf("=== Calibration %s ===\n", *camera)
	for _, row := range cam.Matrix {
		fmt.Printf("  [%10.3f %10.3f %10.3f]\n", row[0], row[1], row[2])
	}
	fmt.Printf("Distortion: %v\n", cam.Distortion)
	if cam.ImageSize.Empty() {
		fmt.Println("Image size: any")
	} else {
		fmt.Printf("Image size: %dx%d\n", cam.ImageSize.Width, cam.ImageSize.Height)
	}
	fmt.Printf("Identity: %v\n", cam.IsIdentity())

	if *imagePath == "" {
		return 0
	}

	raw, err := frame.Load(*imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load frame: %v\n", err)
		return 1
	}
	defer raw.Close()

	corrected, err := cam.ApplyCorrection(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Correction failed: %v\n", err)
		return 1
	}
	defer corrected.Close()

	left := display.Panel{Image: raw, Title: "raw"}
	right := display.Panel{Image: corrected, Title: "corrected"}

	if *sheet != "" {
		if err := display.ShowPair(display.NewPlotTarget(*sheet), left, right); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write sheet: %v\n", err)
			return 1
		}
		fmt.Printf("Sheet written to %s\n", *sheet)
	}
	if *view {
		win := viewer.New("calibcheck")
		if err := display.ShowPair(win, left, right); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to show frames: %v\n", err)
			return 1
		}
		win.Run()
	}
	return 0
}
