// Command tracedump runs one frame through a traced pipeline and writes
// every intermediate image.
package main

import (
	"flag"
	"fmt"
	"os"

	"lane-overlay/internal/calibration"
	"lane-overlay/internal/display"
	"lane-overlay/internal/frame"
	"lane-overlay/internal/lane"
	"lane-overlay/internal/pipeline"
	"lane-overlay/internal/tracesink"
	"lane-overlay/ui/viewer"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("tracedump", flag.ContinueOnError)
	imagePath := fs.String("image", "", "Path to frame image")
	camera := fs.String("camera", pipeline.DefaultCameraSource, "Camera calibration file")
	identity := fs.Bool("identity", false, "Skip lens correction")
	sheet := fs.String("sheet", "", "Write a contact sheet PNG to this path")
	dir := fs.String("dir", "", "Write each artifact below this directory")
	view := fs.Bool("view", false, "Show the trace in a window")
	out := fs.String("out", "", "Write the overlay to this path")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *imagePath == "" {
		fmt.Println("Usage: tracedump -image <frame> [-camera <file>|-identity] [-sheet out.png] [-dir traces] [-view]")
		return 2
	}

	collector := &tracesink.Collector{}
	defer collector.Close()
	sinks := tracesink.Multi{collector}
	var disk *tracesink.DiskWriter
	if *dir != "" {
		disk = tracesink.NewDiskWriter(*dir, nil)
		sinks = append(sinks, disk)
	}
	if *sheet != "" {
		sinks = append(sinks, tracesink.NewSheetRenderer(display.NewPlotTarget(*sheet)))
	}
	var win *viewer.Viewer
	if *view {
		win = viewer.New("tracedump")
		sinks = append(sinks, tracesink.NewSheetRenderer(win))
	}

	var opts []pipeline.Option
	if *identity {
		opts = append(opts, pipeline.WithCalibrationLoader(func(string) (lane.Corrector, error) {
			return calibration.Identity(), nil
		}))
	}
	p, err := pipeline.New(&pipeline.Configuration{
		Trace:        true,
		TraceHandler: sinks,
		CameraSource: *camera,
	}, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create pipeline: %v\n", err)
		return 1
	}
	defer p.Close()

	img, err := frame.Load(*imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load frame: %v\n", err)
		return 1
	}
	defer img.Close()

	fmt.Printf("=== Processing %s (%dx%d) ===\n", *imagePath, img.Cols(), img.Rows())
	result, err := p.Process(img)
	defer result.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Process: %v\n", err)
	}

	fmt.Printf("\n=== Trace ===\n")
	for i, a := range p.Trace() {
		fmt.Printf("%02d %-17s %dx%d, %d channel(s)\n", i, a.Label, a.Image.Cols(), a.Image.Rows(), a.Image.Channels())
	}
	if _, fit := p.Previous(); fit != nil {
		fmt.Printf("\n%s\n", pipeline.FormatAnnotation(fit.Deviation(), fit.RealSpace().Curvature()))
	}
	if disk != nil && collector.Calls() > 0 {
		fmt.Printf("\nArtifacts written to %s\n", disk.RunDir())
	}
	if *sheet != "" && collector.Calls() > 0 {
		fmt.Printf("Contact sheet written to %s\n", *sheet)
	}
	if *out != "" && !result.Empty() {
		if err := frame.Save(*out, result); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to save overlay: %v\n", err)
			return 1
		}
		fmt.Printf("Overlay written to %s\n", *out)
	}

	if win != nil {
		win.Run()
	}
	if result.Empty() {
		return 1
	}
	return 0
}
