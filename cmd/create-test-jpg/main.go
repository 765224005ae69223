package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/C47D/lv-lib-tjpgd/internal/jfif"
)

func main() {
	var width = flag.Int("width", 160, "Image width in pixels")
	var height = flag.Int("height", 120, "Image height in pixels")
	var mode = flag.String("mode", "gray", "Pixel mode: gray, color420, color422 or color444")
	var restart = flag.Int("restart", 0, "Restart interval in MCUs, 0 disables restart markers")
	var outputFile = flag.String("output", "", "Output JPEG file")
	flag.Parse()

	if *outputFile == "" {
		log.Fatal("Output file is required. Use -output flag.")
	}
	if *width <= 0 || *height <= 0 {
		log.Fatalf("Invalid dimensions %dx%d", *width, *height)
	}

	data, err := createTestJPEG(*width, *height, *mode, *restart)
	if err != nil {
		log.Fatalf("Error creating test JPEG: %v", err)
	}

	if err := os.WriteFile(*outputFile, data, 0o644); err != nil {
		log.Fatalf("Error writing test JPEG file: %v", err)
	}

	fmt.Printf("Created test JPEG file: %s (%dx%d %s, %d bytes)\n", *outputFile, *width, *height, *mode, len(data))
}

// createTestJPEG encodes a deterministic block-gradient test pattern in the
// requested pixel mode.
func createTestJPEG(w, h int, mode string, restart int) ([]byte, error) {
	opts := jfif.Options{RestartInterval: restart}
	gray := func(bx, by int) int { return 16 + (bx*29+by*47)%224 }
	color := func(mx, my int) (int, int, int) {
		return 40 + (mx*13+my*7)%180, 70 + mx*9%120, 60 + my*11%140
	}

	switch mode {
	case "gray":
		return jfif.EncodeGray(w, h, gray, opts), nil
	case "color420":
		return jfif.EncodeColor420(w, h, color, opts), nil
	case "color422":
		return jfif.EncodeColor422(w, h, color, opts), nil
	case "color444":
		return jfif.EncodeColor444(w, h, color, opts), nil
	default:
		return nil, fmt.Errorf("unknown mode %q", mode)
	}
}
