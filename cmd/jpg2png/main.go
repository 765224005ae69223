package main

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"

	"github.com/C47D/lv-lib-tjpgd/pkg/lvimg"
	"github.com/C47D/lv-lib-tjpgd/pkg/lvtjpgd"
	tjpgd "github.com/C47D/lv-lib-tjpgd/pkg/tjpgd"
)

func main() {
	var inputFile = flag.String("input", "", "Input JPEG file")
	var outputFile = flag.String("output", "", "Output PNG or BMP file (optional, defaults to input filename with .png extension)")
	var scale = flag.Int("scale", 0, "Downscale exponent 0..3, divides both dimensions by 1<<scale")
	var rgb565 = flag.Bool("rgb565", false, "Decode to RGB565 instead of RGB888")
	flag.Parse()

	if *inputFile == "" {
		log.Fatal("Input file is required. Use -input flag.")
	}
	if *scale < 0 || *scale > 3 {
		log.Fatalf("Invalid scale %d: must be 0..3", *scale)
	}

	opts := lvtjpgd.Options{Scale: uint8(*scale)}
	if *rgb565 {
		opts.Format = tjpgd.FormatRGB565
	}

	// Go through the registry the way a display host would.
	registry := lvimg.NewRegistry()
	lvtjpgd.Register(registry, opts)

	src := lvimg.FileSource(*inputFile)
	header, err := registry.Info(src)
	if err != nil {
		log.Fatalf("Failed to read image info: %v", err)
	}
	fmt.Printf("Image size: %dx%d pixels (%s)\n", header.Width, header.Height, header.Format)

	img, err := registry.Open(src)
	if err != nil {
		log.Fatalf("Failed to open image: %v", err)
	}
	defer img.Close()

	rgba, err := renderRows(img, header)
	if err != nil {
		log.Fatalf("Failed to decode image: %v", err)
	}

	// Determine output filename
	output := *outputFile
	if output == "" {
		ext := filepath.Ext(*inputFile)
		output = (*inputFile)[:len(*inputFile)-len(ext)] + ".png"
	}

	file, err := os.Create(output)
	if err != nil {
		log.Fatalf("Failed to create output file: %v", err)
	}
	defer file.Close()

	if strings.HasSuffix(output, ".bmp") {
		err = bmp.Encode(file, rgba)
	} else {
		err = png.Encode(file, rgba)
	}
	if err != nil {
		log.Fatalf("Failed to encode output: %v", err)
	}

	fmt.Printf("Successfully converted %s to %s\n", *inputFile, output)
}

// renderRows pulls the image out of the decoder line by line, the way an
// incremental display host would, and assembles a full RGBA frame.
func renderRows(img lvimg.Image, header lvimg.Header) (*image.RGBA, error) {
	bpp := header.Format.PixelSize()
	line := make([]byte, header.Width*bpp)
	out := image.NewRGBA(image.Rect(0, 0, header.Width, header.Height))

	for y := 0; y < header.Height; y++ {
		if err := img.ReadLine(0, y, header.Width, line); err != nil {
			return nil, err
		}
		for x := 0; x < header.Width; x++ {
			var r, g, b byte
			if header.Format == lvimg.ColorRGB565 {
				v := uint16(line[x*2]) | uint16(line[x*2+1])<<8
				r = byte(v >> 11 << 3)
				g = byte(v >> 5 << 2)
				b = byte(v << 3)
			} else {
				r, g, b = line[x*3], line[x*3+1], line[x*3+2]
			}
			i := out.PixOffset(x, y)
			out.Pix[i] = r
			out.Pix[i+1] = g
			out.Pix[i+2] = b
			out.Pix[i+3] = 255
		}
	}
	return out, nil
}
