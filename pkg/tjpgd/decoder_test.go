package tjpgd

import (
	"errors"
	"testing"

	"github.com/C47D/lv-lib-tjpgd/internal/jfif"
)

type byteFeed struct {
	data []byte
	pos  int
}

func (f *byteFeed) ReadBytes(p []byte) int {
	n := copy(p, f.data[f.pos:])
	f.pos += n
	return n
}

func (f *byteFeed) SkipBytes(n int) int {
	left := len(f.data) - f.pos
	if n > left {
		n = left
	}
	f.pos += n
	return n
}

func TestDecoderCreation(t *testing.T) {
	// Test creating decoder without a feed
	_, err := New(nil, Options{})
	if err == nil {
		t.Error("Expected error for nil feed, got nil")
	}

	// Test creating decoder with a stream that is not JPEG
	_, err = New(&byteFeed{data: []byte{0x00, 0x01, 0x02, 0x03}}, Options{})
	if !errors.Is(err, ErrFormat) {
		t.Errorf("Expected ErrFormat for garbage stream, got %v", err)
	}

	// Test creating decoder with a valid stream
	data := jfif.EncodeGray(24, 16, func(bx, by int) int { return 128 }, jfif.Options{})
	decoder, err := New(&byteFeed{data: data}, Options{})
	if err != nil {
		t.Fatalf("Failed to create decoder: %v", err)
	}
	if decoder == nil {
		t.Fatal("Expected decoder to be non-nil")
	}
	if decoder.Width() != 24 || decoder.Height() != 16 {
		t.Errorf("Expected 24x16, got %dx%d", decoder.Width(), decoder.Height())
	}
	if decoder.Components() != 1 {
		t.Errorf("Expected 1 component, got %d", decoder.Components())
	}
	if decoder.Format() != FormatRGB888 {
		t.Errorf("Expected FormatRGB888, got %v", decoder.Format())
	}
}

func TestDecoderDecode(t *testing.T) {
	data := jfif.EncodeGray(16, 8, func(bx, by int) int { return 100 + 50*bx }, jfif.Options{})
	decoder, err := New(&byteFeed{data: data}, Options{})
	if err != nil {
		t.Fatalf("Failed to create decoder: %v", err)
	}

	pix := make([]byte, 16*8*3)
	err = decoder.Decode(func(bitmap []byte, r Rect) bool {
		bw := r.Width() * 3
		for y := r.Top; y <= r.Bottom; y++ {
			copy(pix[(y*16+r.Left)*3:(y*16+r.Left)*3+bw], bitmap[(y-r.Top)*bw:])
		}
		return true
	}, 0)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if pix[0] != 100 {
		t.Errorf("Left block: expected 100, got %d", pix[0])
	}
	if pix[8*3] != 150 {
		t.Errorf("Right block: expected 150, got %d", pix[8*3])
	}
}

func TestDecoderDecodeBand(t *testing.T) {
	data := jfif.EncodeGray(8, 24, func(bx, by int) int { return 60 + 60*by }, jfif.Options{})
	decoder, err := New(&byteFeed{data: data}, Options{})
	if err != nil {
		t.Fatalf("Failed to create decoder: %v", err)
	}
	if rows := decoder.BandRows(0); rows != 8 {
		t.Fatalf("Expected 8 rows per band, got %d", rows)
	}

	for band := 0; band < 3; band++ {
		var first byte
		rows, err := decoder.DecodeBand(func(bitmap []byte, r Rect) bool {
			if r.Top != 0 {
				t.Errorf("Band %d: expected band-relative top 0, got %d", band, r.Top)
			}
			first = bitmap[0]
			return true
		}, 0)
		if err != nil {
			t.Fatalf("Band %d failed: %v", band, err)
		}
		if rows != 8 {
			t.Fatalf("Band %d: expected 8 rows, got %d", band, rows)
		}
		want := byte(60 + 60*band)
		if first != want {
			t.Errorf("Band %d: expected %d, got %d", band, want, first)
		}
	}

	rows, err := decoder.DecodeBand(func(bitmap []byte, r Rect) bool { return true }, 0)
	if err != nil {
		t.Fatalf("Exhausted band failed: %v", err)
	}
	if rows != 0 {
		t.Errorf("Expected 0 rows after the last band, got %d", rows)
	}
}

func TestDecoderInterrupt(t *testing.T) {
	data := jfif.EncodeGray(16, 16, func(bx, by int) int { return 50 }, jfif.Options{})
	decoder, err := New(&byteFeed{data: data}, Options{})
	if err != nil {
		t.Fatalf("Failed to create decoder: %v", err)
	}
	err = decoder.Decode(func(bitmap []byte, r Rect) bool { return false }, 0)
	if !errors.Is(err, ErrInterrupted) {
		t.Errorf("Expected ErrInterrupted, got %v", err)
	}
}

func TestPixelFormatString(t *testing.T) {
	tests := []struct {
		format   PixelFormat
		expected string
	}{
		{FormatRGB888, "RGB888"},
		{FormatRGB565, "RGB565"},
	}

	for _, test := range tests {
		if got := test.format.String(); got != test.expected {
			t.Errorf("PixelFormat %d string mismatch: got %q, want %q", test.format, got, test.expected)
		}
	}

	if got := PixelFormat(7).String(); got != "PixelFormat(7)" {
		t.Errorf("Unexpected fallback string: got %q", got)
	}
}

func TestPixelFormatSize(t *testing.T) {
	if got := FormatRGB888.PixelSize(); got != 3 {
		t.Errorf("RGB888: expected 3 bytes, got %d", got)
	}
	if got := FormatRGB565.PixelSize(); got != 2 {
		t.Errorf("RGB565: expected 2 bytes, got %d", got)
	}
}
