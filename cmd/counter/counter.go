// Command counter runs the crossing-detection pipeline over a detections
// file on disk and writes the interval counts CSV, without the daemon or
// the jobs database.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/banshee-data/occupancy.report/internal/counter"
	"github.com/banshee-data/occupancy.report/internal/detect"
	"github.com/banshee-data/occupancy.report/internal/fsutil"
	"github.com/banshee-data/occupancy.report/internal/intervallog"
	"github.com/banshee-data/occupancy.report/internal/timeutil"
)

var (
	doorDirection = flag.String("door", "down", "Door direction relative to the frame (up, down, left, right)")
	fps           = flag.Float64("fps", 30, "Frames per second of the detections stream")
	interval      = flag.Int("interval", 60, "Seconds per CSV interval")
	frameWidth    = flag.Int("width", 640, "Frame width in pixels")
	frameHeight   = flag.Int("height", 480, "Frame height in pixels")
	boundary      = flag.Int("boundary", -1, "Boundary coordinate override (default: half the frame)")
	csvPath       = flag.String("csv", "", "Output CSV path (default: <detections>_counts.csv)")
)

func main() {
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <detections.jsonl>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}
	detectionsPath := flag.Arg(0)

	output := *csvPath
	if output == "" {
		output = filepath.Join(filepath.Dir(detectionsPath), fsutil.Basename(detectionsPath)+"_counts.csv")
	}

	dir := counter.DoorDirection(*doorDirection)
	orientation, err := counter.OrientationForDoor(dir)
	if err != nil {
		log.Fatalf("Invalid door direction: %v", err)
	}

	coord := *boundary
	if coord < 0 {
		coord = *frameHeight / 2
		if orientation == counter.OrientationVertical {
			coord = *frameWidth / 2
		}
	}

	engine, err := counter.NewEngine(counter.DefaultConfig(counter.BoundaryConfig{
		Orientation:   orientation,
		DoorDirection: dir,
		BoundaryCoord: coord,
	}))
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	filesystem := fsutil.OSFileSystem{}
	src, err := detect.NewFileSource(filesystem, detectionsPath)
	if err != nil {
		log.Fatalf("Failed to open detections file: %v", err)
	}
	defer src.Close()

	logger, err := intervallog.New(filesystem, timeutil.RealClock{}, output, *fps, *interval)
	if err != nil {
		log.Fatalf("Failed to create interval logger: %v", err)
	}

	frames := 0
	for {
		frame, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Fatalf("Failed to read detections: %v", err)
		}

		engine.ProcessFrame(frame)
		frames++

		if _, err := logger.MaybeEmit(frame.Index, engine.Counts(), false); err != nil {
			log.Fatalf("Failed to write interval row: %v", err)
		}
	}

	counts := engine.Counts()
	log.Printf("Processed %d frames from %s", frames, detectionsPath)
	log.Printf("Final counts: total=%d incoming=%d outgoing=%d", counts.Total, counts.Incoming, counts.Outgoing)
	log.Printf("Interval counts written to %s", logger.Path())
}
