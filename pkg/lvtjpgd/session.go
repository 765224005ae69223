package lvtjpgd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/C47D/lv-lib-tjpgd/pkg/lvimg"
	"github.com/C47D/lv-lib-tjpgd/pkg/tjpgd"
)

// Session errors. Stream, header and decode failures close the session;
// usage errors leave it untouched.
var (
	// ErrStream reports that the image stream could not be opened.
	ErrStream = errors.New("lvtjpgd: cannot open stream")
	// ErrHeader reports that the engine rejected the stream header.
	ErrHeader = errors.New("lvtjpgd: header parse failed")
	// ErrDecode reports a fatal mid-stream decode failure. The session is
	// closed; probe again to retry.
	ErrDecode = errors.New("lvtjpgd: decode failed")
	// ErrAlreadyOpen reports Open or Probe on a session that is in use.
	ErrAlreadyOpen = errors.New("lvtjpgd: session already open")
	// ErrNotProbed reports Open before a successful Probe.
	ErrNotProbed = errors.New("lvtjpgd: session not probed")
	// ErrNotOpen reports ReadRows on a session that is not open.
	ErrNotOpen = errors.New("lvtjpgd: session not open")
	// ErrRowRange reports a row request outside the image.
	ErrRowRange = errors.New("lvtjpgd: row range outside image")
	// ErrShortBuffer reports a destination too small for the request.
	ErrShortBuffer = errors.New("lvtjpgd: destination buffer too small")
	// ErrBackward reports a request for rows already decoded and
	// discarded. The stream is forward-only; reopen to rewind.
	ErrBackward = errors.New("lvtjpgd: backward row access")
)

// DefaultWindowRows is the classic row window height. The live window of
// a session follows the engine's band geometry instead, which matches
// this for 8x8 block streams at full scale.
const DefaultWindowRows = 8

// Options configures a session.
type Options struct {
	// Scale divides both image dimensions by 1<<Scale. Valid range 0..3.
	Scale uint8
	// WorkSize bounds the engine's working memory in bytes. Zero selects
	// tjpgd.DefaultWorkSize.
	WorkSize int
	// Format selects the output pixel layout.
	Format tjpgd.PixelFormat
}

// engine is the block decoder a session drives. *tjpgd.Decoder satisfies
// it.
type engine interface {
	Width() int
	Height() int
	BandRows(scale int) int
	DecodeBand(fn tjpgd.BlockFunc, scale int) (int, error)
}

type sessionState int

const (
	stateClosed sessionState = iota
	stateProbed
	stateOpen
)

// Session decodes one image stream into caller-visible rows while holding
// only a bounded window of decoded data. Each session owns its stream,
// engine state and window; separate sessions are fully independent. A
// session is not safe for concurrent use.
type Session struct {
	opts      Options
	newEngine func(feed tjpgd.Feed, opts tjpgd.Options) (engine, error)

	state  sessionState
	stream io.ReadCloser
	feed   *streamFeed
	eng    engine
	hdr    lvimg.Header
	bpp    int

	win     *rowWindow
	winRows int

	refills    int
	rowsServed int64
}

// NewSession returns a closed session configured by opts.
func NewSession(opts Options) *Session {
	return &Session{
		opts: opts,
		newEngine: func(feed tjpgd.Feed, o tjpgd.Options) (engine, error) {
			return tjpgd.New(feed, o)
		},
	}
}

// Probe opens the source stream and parses its header. On success the
// session holds the open stream positioned after the header, ready for
// Open, and the returned header carries the scaled dimensions of the
// full image. On failure the session is back to closed with the stream
// released.
func (s *Session) Probe(src lvimg.Source) (lvimg.Header, error) {
	if s.state != stateClosed {
		return lvimg.Header{}, fmt.Errorf("%w: probe needs a closed session", ErrAlreadyOpen)
	}
	if s.opts.Scale > 3 {
		return lvimg.Header{}, fmt.Errorf("%w: scale %d out of range 0..3", tjpgd.ErrParameter, s.opts.Scale)
	}
	if s.opts.Format != tjpgd.FormatRGB888 && s.opts.Format != tjpgd.FormatRGB565 {
		return lvimg.Header{}, fmt.Errorf("%w: pixel format %d", tjpgd.ErrParameter, int(s.opts.Format))
	}

	switch src.Kind() {
	case lvimg.SourceFile:
		f, err := os.Open(src.Path())
		if err != nil {
			return lvimg.Header{}, fmt.Errorf("%w: %v", ErrStream, err)
		}
		s.stream = f
	case lvimg.SourceMemory:
		return lvimg.Header{}, fmt.Errorf("%w: in-memory sources are not supported", lvimg.ErrUnsupportedSource)
	default:
		return lvimg.Header{}, fmt.Errorf("%w: source kind %v", lvimg.ErrUnsupportedSource, src.Kind())
	}

	s.feed = &streamFeed{r: s.stream}
	eng, err := s.newEngine(s.feed, tjpgd.Options{
		WorkSize: s.opts.WorkSize,
		Format:   s.opts.Format,
	})
	if err != nil {
		s.closeStream()
		if errors.Is(err, tjpgd.ErrWork) {
			return lvimg.Header{}, err
		}
		return lvimg.Header{}, fmt.Errorf("%w: %v", ErrHeader, err)
	}

	scale := int(s.opts.Scale)
	s.eng = eng
	s.bpp = s.opts.Format.PixelSize()
	s.winRows = eng.BandRows(scale)
	s.hdr = lvimg.Header{
		Width:  eng.Width() >> uint(scale),
		Height: eng.Height() >> uint(scale),
		Format: colorFormatOf(s.opts.Format),
	}
	s.state = stateProbed
	return s.hdr, nil
}

// Open declares the session ready for incremental row reads. Decoding is
// deferred to the first ReadRows call.
func (s *Session) Open() error {
	switch s.state {
	case stateOpen:
		return ErrAlreadyOpen
	case stateClosed:
		return ErrNotProbed
	}
	s.state = stateOpen
	return nil
}

// ReadRows copies rowCount whole rows starting at absolute row startRow
// into dst and returns how many rows were copied. Rows are decoded on
// demand, one engine band per window refill; rows that have scrolled out
// of the window cannot be served again. On a decode failure the session
// closes and partial dst content is undefined.
func (s *Session) ReadRows(startRow, rowCount int, dst []byte) (int, error) {
	if s.state != stateOpen {
		return 0, ErrNotOpen
	}
	if startRow < 0 || rowCount < 0 || startRow+rowCount > s.hdr.Height {
		return 0, fmt.Errorf("%w: rows [%d,%d) of %d", ErrRowRange, startRow, startRow+rowCount, s.hdr.Height)
	}
	rowBytes := s.hdr.Width * s.bpp
	if len(dst) < rowCount*rowBytes {
		return 0, fmt.Errorf("%w: need %d bytes, have %d", ErrShortBuffer, rowCount*rowBytes, len(dst))
	}
	if s.win != nil && startRow < s.win.top {
		return 0, fmt.Errorf("%w: row %d precedes window at row %d", ErrBackward, startRow, s.win.top)
	}

	served := 0
	for row := startRow; served < rowCount; {
		if s.win == nil || row >= s.win.top+s.win.produced {
			if err := s.refill(); err != nil {
				return served, err
			}
			continue
		}
		copy(dst[served*rowBytes:(served+1)*rowBytes], s.win.row(row))
		served++
		row++
	}
	s.rowsServed += int64(served)
	return served, nil
}

// refill releases the current window, allocates a fresh one and runs one
// engine band into it. Called only while rows are still owed, so an empty
// band means the stream ended short.
func (s *Session) refill() error {
	top := 0
	if s.win != nil {
		top = s.win.top + s.win.produced
	}
	s.win = nil
	win := newRowWindow(s.hdr.Width, s.winRows, s.bpp, top)

	var blitErr error
	rows, err := s.eng.DecodeBand(func(bitmap []byte, r tjpgd.Rect) bool {
		if e := win.blit(bitmap, r); e != nil {
			blitErr = e
			return false
		}
		return true
	}, int(s.opts.Scale))
	s.refills++

	if blitErr != nil {
		s.fail()
		return fmt.Errorf("%w: %v", ErrDecode, blitErr)
	}
	if err != nil {
		s.fail()
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if rows <= 0 {
		s.fail()
		return fmt.Errorf("%w: engine produced no rows at row %d", ErrDecode, top)
	}
	win.produced = rows
	s.win = win
	return nil
}

// fail tears the session down after a fatal decode error. Counters stay
// readable for diagnostics.
func (s *Session) fail() {
	s.win = nil
	s.eng = nil
	s.closeStream()
	s.state = stateClosed
}

// Close releases the stream, window and engine state. It is idempotent;
// closing a session that never opened is a no-op.
func (s *Session) Close() error {
	s.win = nil
	s.eng = nil
	err := s.closeStream()
	s.state = stateClosed
	return err
}

func (s *Session) closeStream() error {
	if s.stream == nil {
		return nil
	}
	err := s.stream.Close()
	s.stream = nil
	return err
}

// Header returns the probed image header. Zero value before Probe.
func (s *Session) Header() lvimg.Header { return s.hdr }

// WindowRows returns the rows decoded per window refill. Zero before
// Probe.
func (s *Session) WindowRows() int { return s.winRows }

// Refills returns how many engine bands have been decoded.
func (s *Session) Refills() int { return s.refills }

// RowsServed returns the total rows copied out by ReadRows.
func (s *Session) RowsServed() int64 { return s.rowsServed }

// BytesConsumed returns the compressed bytes pulled from the stream,
// header included.
func (s *Session) BytesConsumed() int64 {
	if s.feed == nil {
		return 0
	}
	return s.feed.total
}

func colorFormatOf(f tjpgd.PixelFormat) lvimg.ColorFormat {
	if f == tjpgd.FormatRGB565 {
		return lvimg.ColorRGB565
	}
	return lvimg.ColorRGB888
}
