package lvtjpgd

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/C47D/lv-lib-tjpgd/pkg/lvimg"
	"github.com/C47D/lv-lib-tjpgd/pkg/tjpgd"
)

// stubEngine stands in for the block decoder so window and resume logic
// can be exercised with hand-made block sequences.
type stubEngine struct {
	width  int
	height int
	rows   int // band height
	calls  int
	decode func(band int, fn tjpgd.BlockFunc) (int, error)
}

func (e *stubEngine) Width() int             { return e.width }
func (e *stubEngine) Height() int            { return e.height }
func (e *stubEngine) BandRows(scale int) int { return e.rows }

func (e *stubEngine) DecodeBand(fn tjpgd.BlockFunc, scale int) (int, error) {
	e.calls++
	return e.decode(e.calls, fn)
}

// fullBand emits one window-sized block filled with the band number.
func fullBand(e *stubEngine) func(int, tjpgd.BlockFunc) (int, error) {
	return func(band int, fn tjpgd.BlockFunc) (int, error) {
		bm := bytes.Repeat([]byte{byte(band)}, e.width*e.rows*3)
		if !fn(bm, tjpgd.Rect{Left: 0, Top: 0, Right: e.width - 1, Bottom: e.rows - 1}) {
			return 0, tjpgd.ErrInterrupted
		}
		return e.rows, nil
	}
}

func stubSession(t *testing.T, e *stubEngine) *Session {
	t.Helper()
	s := NewSession(Options{})
	s.newEngine = func(feed tjpgd.Feed, o tjpgd.Options) (engine, error) {
		return e, nil
	}
	path := writeFixture(t, "stub.jpg", []byte{0x00})
	if _, err := s.Probe(lvimg.FileSource(path)); err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	if err := s.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return s
}

func TestSessionRefillCadence(t *testing.T) {
	e := &stubEngine{width: 16, height: 32, rows: 8}
	e.decode = fullBand(e)
	s := stubSession(t, e)
	defer s.Close()

	if e.calls != 0 {
		t.Fatalf("Expected no decode before the first read, got %d", e.calls)
	}

	row := make([]byte, 16*3)
	for y := 0; y < 8; y++ {
		if _, err := s.ReadRows(y, 1, row); err != nil {
			t.Fatalf("ReadRows(%d) failed: %v", y, err)
		}
	}
	// Consuming exactly one window's worth costs exactly one decode.
	if e.calls != 1 {
		t.Fatalf("Expected 1 decode after 8 rows, got %d", e.calls)
	}

	if _, err := s.ReadRows(8, 1, row); err != nil {
		t.Fatalf("ReadRows(8) failed: %v", err)
	}
	if e.calls != 2 {
		t.Fatalf("Expected exactly 2 decodes after row 8, got %d", e.calls)
	}
	if row[0] != 2 {
		t.Errorf("Expected row 8 from band 2, got %d", row[0])
	}
}

func TestSessionSplitBlockReassembly(t *testing.T) {
	e := &stubEngine{width: 16, height: 8, rows: 8}
	left := patternBitmap(8*8*3, func(i int) byte { return byte(i) })
	right := patternBitmap(8*8*3, func(i int) byte { return byte(255 - i%256) })
	e.decode = func(band int, fn tjpgd.BlockFunc) (int, error) {
		if !fn(left, tjpgd.Rect{Left: 0, Top: 0, Right: 7, Bottom: 7}) {
			return 0, tjpgd.ErrInterrupted
		}
		if !fn(right, tjpgd.Rect{Left: 8, Top: 0, Right: 15, Bottom: 7}) {
			return 0, tjpgd.ErrInterrupted
		}
		return 8, nil
	}
	s := stubSession(t, e)
	defer s.Close()

	frame := make([]byte, 16*8*3)
	if _, err := s.ReadRows(0, 8, frame); err != nil {
		t.Fatalf("ReadRows failed: %v", err)
	}

	want := make([]byte, 16*8*3)
	for y := 0; y < 8; y++ {
		copy(want[y*16*3:y*16*3+8*3], left[y*8*3:])
		copy(want[y*16*3+8*3:(y+1)*16*3], right[y*8*3:])
	}
	if d := cmp.Diff(want, frame); d != "" {
		t.Errorf("reassembled rows (-want +got):\n%s", d)
	}
}

func TestSessionShortLastBand(t *testing.T) {
	// 20 rows: two full bands and one 4-row tail.
	e := &stubEngine{width: 8, height: 20, rows: 8}
	full := fullBand(e)
	e.decode = func(band int, fn tjpgd.BlockFunc) (int, error) {
		if band < 3 {
			return full(band, fn)
		}
		bm := bytes.Repeat([]byte{byte(band)}, 8*4*3)
		if !fn(bm, tjpgd.Rect{Left: 0, Top: 0, Right: 7, Bottom: 3}) {
			return 0, tjpgd.ErrInterrupted
		}
		return 4, nil
	}
	s := stubSession(t, e)
	defer s.Close()

	frame := make([]byte, 8*20*3)
	n, err := s.ReadRows(0, 20, frame)
	if err != nil {
		t.Fatalf("ReadRows failed: %v", err)
	}
	if n != 20 {
		t.Fatalf("Expected 20 rows, got %d", n)
	}
	if frame[0] != 1 || frame[8*8*3] != 2 || frame[16*8*3] != 3 {
		t.Errorf("Band layout off: got %d %d %d, want 1 2 3",
			frame[0], frame[8*8*3], frame[16*8*3])
	}
	if e.calls != 3 {
		t.Errorf("Expected 3 decodes, got %d", e.calls)
	}
}

func TestSessionZeroRowBand(t *testing.T) {
	e := &stubEngine{width: 16, height: 32, rows: 8}
	full := fullBand(e)
	e.decode = func(band int, fn tjpgd.BlockFunc) (int, error) {
		if band == 3 {
			return 0, nil // stream ended short
		}
		return full(band, fn)
	}
	s := stubSession(t, e)

	frame := make([]byte, 16*32*3)
	if _, err := s.ReadRows(0, 16, frame); err != nil {
		t.Fatalf("First two bands failed: %v", err)
	}

	n, err := s.ReadRows(16, 1, frame)
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("Expected ErrDecode for an empty band, got %v", err)
	}
	if n != 0 {
		t.Errorf("Expected 0 rows with the error, got %d", n)
	}
	if _, err := s.ReadRows(16, 1, frame); !errors.Is(err, ErrNotOpen) {
		t.Errorf("Expected ErrNotOpen after failure, got %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close after failure: %v", err)
	}
}

func TestSessionEngineError(t *testing.T) {
	e := &stubEngine{width: 16, height: 32, rows: 8}
	full := fullBand(e)
	e.decode = func(band int, fn tjpgd.BlockFunc) (int, error) {
		if band == 2 {
			return 0, tjpgd.ErrInput
		}
		return full(band, fn)
	}
	s := stubSession(t, e)

	frame := make([]byte, 16*32*3)
	if _, err := s.ReadRows(0, 32, frame); !errors.Is(err, ErrDecode) {
		t.Fatalf("Expected ErrDecode, got %v", err)
	}
	if _, err := s.ReadRows(0, 1, frame); !errors.Is(err, ErrNotOpen) {
		t.Errorf("Expected ErrNotOpen after failure, got %v", err)
	}
}

func TestSessionRejectsStrayBlock(t *testing.T) {
	e := &stubEngine{width: 16, height: 16, rows: 8}
	e.decode = func(band int, fn tjpgd.BlockFunc) (int, error) {
		bm := make([]byte, 16*9*3)
		// Bottom row lands outside the window.
		if !fn(bm, tjpgd.Rect{Left: 0, Top: 0, Right: 15, Bottom: 8}) {
			return 0, tjpgd.ErrInterrupted
		}
		return 8, nil
	}
	s := stubSession(t, e)

	frame := make([]byte, 16*16*3)
	if _, err := s.ReadRows(0, 8, frame); !errors.Is(err, ErrDecode) {
		t.Fatalf("Expected ErrDecode for out-of-window block, got %v", err)
	}
}
