// Command forecast predicts the next day's hourly incoming and outgoing
// counts from an interval counts CSV.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/banshee-data/occupancy.report/internal/forecast"
	"github.com/banshee-data/occupancy.report/internal/fsutil"
)

var output = flag.String("output", "", "Path to save the forecast CSV (default: <input>_forecast.csv)")

func main() {
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <counts.csv>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}
	inputPath := flag.Arg(0)

	outputPath := *output
	if outputPath == "" {
		outputPath = filepath.Join(filepath.Dir(inputPath), fsutil.Basename(inputPath)+"_forecast.csv")
	}

	filesystem := fsutil.OSFileSystem{}

	rows, err := forecast.ReadCounts(filesystem, inputPath)
	if err != nil {
		log.Fatalf("Failed to read counts: %v", err)
	}

	predictions, err := forecast.Forecast(rows)
	if err != nil {
		log.Fatalf("Failed to forecast: %v", err)
	}

	if err := forecast.WriteForecast(filesystem, outputPath, predictions); err != nil {
		log.Fatalf("Failed to write forecast: %v", err)
	}

	log.Printf("Forecast for %d working hours written to %s", len(predictions), outputPath)
}
