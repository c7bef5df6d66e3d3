package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pstuifzand/dtsedit/internal/dtstest"
)

func main() {
	numBins := flag.Int("bins", 4, "Number of speed bins to generate")
	numLevels := flag.Int("levels", 12, "Number of power levels per bin")
	output := flag.String("output", "large_test.dts", "Output file path")
	flag.Parse()

	if *numBins < 1 || *numLevels < 1 {
		fmt.Fprintf(os.Stderr, "bins and levels must be at least 1\n")
		os.Exit(1)
	}

	text := dtstest.GenerateText(*numBins, *numLevels)

	// Ensure directory exists
	dir := filepath.Dir(*output)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create directory: %v\n", err)
			os.Exit(1)
		}
	}

	if err := os.WriteFile(*output, []byte(text), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generated %d bins with %d levels each\n", *numBins, *numLevels)
	fmt.Printf("Saved to: %s\n", *output)
	fmt.Printf("Lines: %d\n", strings.Count(text, "\n"))
	fmt.Printf("File size: %.2f KB\n", float64(len(text))/1024)
}
