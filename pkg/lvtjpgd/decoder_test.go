package lvtjpgd

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/C47D/lv-lib-tjpgd/pkg/lvimg"
)

func TestDecoderSourceGate(t *testing.T) {
	d := NewDecoder(Options{})

	cases := []struct {
		name string
		src  lvimg.Source
	}{
		{"wrong extension", lvimg.FileSource("image.png")},
		{"long extension", lvimg.FileSource("image.jpeg")},
		{"uppercase extension", lvimg.FileSource("image.JPG")},
		{"memory source", lvimg.MemorySource([]byte{0xFF, 0xD8})},
	}
	for _, c := range cases {
		if _, err := d.Info(c.src); !errors.Is(err, lvimg.ErrUnsupportedSource) {
			t.Errorf("%s: Info expected ErrUnsupportedSource, got %v", c.name, err)
		}
		if _, err := d.Open(c.src); !errors.Is(err, lvimg.ErrUnsupportedSource) {
			t.Errorf("%s: Open expected ErrUnsupportedSource, got %v", c.name, err)
		}
	}
}

func TestDecoderInfo(t *testing.T) {
	path := grayFixture(t, 24, 16, func(bx, by int) int { return 128 })
	d := NewDecoder(Options{})

	hdr, err := d.Info(lvimg.FileSource(path))
	if err != nil {
		t.Fatalf("Info failed: %v", err)
	}
	if hdr.Width != 24 || hdr.Height != 16 {
		t.Errorf("Expected 24x16, got %dx%d", hdr.Width, hdr.Height)
	}

	// Info holds no state: probing twice and opening afterwards all work.
	if _, err := d.Info(lvimg.FileSource(path)); err != nil {
		t.Fatalf("Second Info failed: %v", err)
	}
	img, err := d.Open(lvimg.FileSource(path))
	if err != nil {
		t.Fatalf("Open after Info failed: %v", err)
	}
	img.Close()
}

func TestDecoderInfoMissingFile(t *testing.T) {
	d := NewDecoder(Options{})
	if _, err := d.Info(lvimg.FileSource("nowhere/missing.jpg")); !errors.Is(err, ErrStream) {
		t.Errorf("Expected ErrStream, got %v", err)
	}
}

func TestImageReadLine(t *testing.T) {
	level := func(bx, by int) int {
		v := 10 + 45*(by*3+bx)
		if v > 255 {
			v = 255
		}
		return v
	}
	path := grayFixture(t, 20, 12, level)
	d := NewDecoder(Options{})

	img, err := d.Open(lvimg.FileSource(path))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer img.Close()

	if img.Pixels() != nil {
		t.Error("Expected nil Pixels for an incremental image")
	}
	hdr := img.Header()
	if hdr.Width != 20 || hdr.Height != 12 {
		t.Fatalf("Expected 20x12, got %dx%d", hdr.Width, hdr.Height)
	}

	want := expectGray(20, 12, func(x, y int) int { return level(x/8, y/8) })

	// Whole rows.
	frame := make([]byte, 20*12*3)
	for y := 0; y < 12; y++ {
		if err := img.ReadLine(0, y, 20, frame[y*20*3:(y+1)*20*3]); err != nil {
			t.Fatalf("ReadLine(0,%d) failed: %v", y, err)
		}
	}
	if d := cmp.Diff(want, frame); d != "" {
		t.Errorf("full frame (-want +got):\n%s", d)
	}
}

func TestImageReadLineChunks(t *testing.T) {
	level := func(bx, by int) int { return 30 + 60*bx }
	path := grayFixture(t, 24, 8, level)
	d := NewDecoder(Options{})

	img, err := d.Open(lvimg.FileSource(path))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer img.Close()

	// One display row fetched in three chunks with x offsets.
	row := make([]byte, 24*3)
	for _, x := range []int{0, 8, 16} {
		if err := img.ReadLine(x, 2, 8, row[x*3:(x+8)*3]); err != nil {
			t.Fatalf("ReadLine(%d,2) failed: %v", x, err)
		}
	}
	want := expectGray(24, 1, func(x, y int) int { return level(x/8, 0) })
	if d := cmp.Diff(want, row); d != "" {
		t.Errorf("chunked row (-want +got):\n%s", d)
	}
}

func TestImageReadLineValidation(t *testing.T) {
	path := grayFixture(t, 16, 8, func(bx, by int) int { return 100 })
	d := NewDecoder(Options{})

	img, err := d.Open(lvimg.FileSource(path))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer img.Close()

	dst := make([]byte, 16*3)
	if err := img.ReadLine(10, 0, 7, dst); !errors.Is(err, ErrRowRange) {
		t.Errorf("Columns past the edge: expected ErrRowRange, got %v", err)
	}
	if err := img.ReadLine(-1, 0, 4, dst); !errors.Is(err, ErrRowRange) {
		t.Errorf("Negative x: expected ErrRowRange, got %v", err)
	}
	if err := img.ReadLine(0, 0, 8, dst[:10]); !errors.Is(err, ErrShortBuffer) {
		t.Errorf("Short destination: expected ErrShortBuffer, got %v", err)
	}
	if err := img.ReadLine(0, 9, 8, dst); !errors.Is(err, ErrRowRange) {
		t.Errorf("Row past the edge: expected ErrRowRange, got %v", err)
	}
}

func TestImageCloseIdempotent(t *testing.T) {
	path := grayFixture(t, 16, 8, func(bx, by int) int { return 100 })
	d := NewDecoder(Options{})

	img, err := d.Open(lvimg.FileSource(path))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := img.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := img.Close(); err != nil {
		t.Errorf("Second close failed: %v", err)
	}
	if err := img.ReadLine(0, 0, 8, make([]byte, 8*3)); !errors.Is(err, ErrNotOpen) {
		t.Errorf("ReadLine after close: expected ErrNotOpen, got %v", err)
	}
}

func TestRegistryEndToEnd(t *testing.T) {
	level := func(bx, by int) int { return 50 + 40*(by*2+bx) }
	path := grayFixture(t, 16, 16, level)

	reg := lvimg.NewRegistry()
	Register(reg, Options{})

	hdr, err := reg.Info(lvimg.FileSource(path))
	if err != nil {
		t.Fatalf("Registry Info failed: %v", err)
	}
	if hdr.Width != 16 || hdr.Height != 16 {
		t.Fatalf("Expected 16x16, got %dx%d", hdr.Width, hdr.Height)
	}

	img, err := reg.Open(lvimg.FileSource(path))
	if err != nil {
		t.Fatalf("Registry Open failed: %v", err)
	}
	defer img.Close()

	frame := make([]byte, 16*16*3)
	for y := 0; y < 16; y++ {
		if err := img.ReadLine(0, y, 16, frame[y*16*3:(y+1)*16*3]); err != nil {
			t.Fatalf("ReadLine(%d) failed: %v", y, err)
		}
	}
	want := expectGray(16, 16, func(x, y int) int { return level(x/8, y/8) })
	if d := cmp.Diff(want, frame); d != "" {
		t.Errorf("frame (-want +got):\n%s", d)
	}

	// Sources nothing claims fall out as ErrNoDecoder.
	if _, err := reg.Open(lvimg.MemorySource([]byte{1, 2})); !errors.Is(err, lvimg.ErrNoDecoder) {
		t.Errorf("Memory source through registry: expected ErrNoDecoder, got %v", err)
	}
	if _, err := reg.Info(lvimg.FileSource("image.bmp")); !errors.Is(err, lvimg.ErrNoDecoder) {
		t.Errorf("Foreign extension through registry: expected ErrNoDecoder, got %v", err)
	}
}
