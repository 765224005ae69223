package tjpgd

import (
	"errors"
	"fmt"
)

// Sentinel errors reported by the decoder. They mirror the result codes of
// the original TJpgDec engine: input exhaustion, work-area exhaustion, bad
// parameters, malformed streams, legal-but-unsupported features, and a
// decode pass aborted by the output callback.
var (
	ErrInput       = errors.New("tjpgd: unexpected end of input")
	ErrWork        = errors.New("tjpgd: insufficient work memory")
	ErrParameter   = errors.New("tjpgd: invalid parameter")
	ErrFormat      = errors.New("tjpgd: malformed JPEG stream")
	ErrUnsupported = errors.New("tjpgd: unsupported JPEG feature")
	ErrInterrupted = errors.New("tjpgd: decode interrupted by callback")
)

// DefaultWorkSize is the work-area budget used when Options.WorkSize is zero.
// The decoder itself needs roughly 4 KiB; the generous default matches the
// allocation the LVGL driver historically made for the engine.
const DefaultWorkSize = 20 * 1024

// szStream is the size of the stream input chunk buffer.
const szStream = 512

// Feed supplies compressed bytes to the decoder. The decoder drives the
// feed: it pulls exact byte counts while parsing the header and chunked
// reads while decoding entropy data.
//
// ReadBytes fills p and returns the number of bytes stored; a short count
// means the stream ended. SkipBytes advances the stream by n bytes without
// returning them and reports the number skipped; 0 signals failure.
type Feed interface {
	ReadBytes(p []byte) int
	SkipBytes(n int) int
}

// PixelFormat selects the layout of decoded pixel data.
type PixelFormat int

const (
	// FormatRGB888 emits 3 bytes per pixel in R, G, B order.
	FormatRGB888 PixelFormat = iota
	// FormatRGB565 emits 2 bytes per pixel, a little-endian 5-6-5 word.
	FormatRGB565
)

func (f PixelFormat) String() string {
	switch f {
	case FormatRGB888:
		return "RGB888"
	case FormatRGB565:
		return "RGB565"
	default:
		return fmt.Sprintf("PixelFormat(%d)", int(f))
	}
}

// PixelSize returns the number of bytes one pixel occupies.
func (f PixelFormat) PixelSize() int {
	if f == FormatRGB565 {
		return 2
	}
	return 3
}

// Options configures stream preparation.
type Options struct {
	// WorkSize bounds the decoder's internal allocations in bytes,
	// modelling the fixed work area handed to the original engine.
	// Zero selects DefaultWorkSize.
	WorkSize int
	// Format selects the output pixel layout. Zero value is FormatRGB888.
	Format PixelFormat
}

// Rect is the area a decoded block covers, in output (scaled) pixel
// coordinates. All bounds are inclusive, so a block spans Right-Left+1
// columns and Bottom-Top+1 rows.
type Rect struct {
	Left   int
	Top    int
	Right  int
	Bottom int
}

// Width returns the number of pixel columns the rect covers.
func (r Rect) Width() int { return r.Right - r.Left + 1 }

// Height returns the number of pixel rows the rect covers.
func (r Rect) Height() int { return r.Bottom - r.Top + 1 }

// BlockFunc receives one decoded block. bitmap holds the rect's pixels
// packed row by row at the prepared pixel format; the slice is reused by
// the next block, so callers must copy what they keep. Returning false
// aborts the decode pass, which then fails with ErrInterrupted.
type BlockFunc func(bitmap []byte, r Rect) bool

type component struct {
	id  int // identifier assigned by the frame header
	qt  int // quantization table index
	tdc int // DC Huffman table index
	tac int // AC Huffman table index
}

// Decoder is a baseline JPEG decompressor fed from a byte stream. It
// decodes MCU bands on demand, so callers can hold only a narrow row
// window of the image at a time.
type Decoder struct {
	feed  Feed
	pool  workPool
	inbuf []byte
	br    bitReader

	width  int
	height int
	ncomp  int
	msx    int // MCU width in 8-pixel units
	msy    int // MCU height in 8-pixel units
	nrst   int // restart interval in MCUs, 0 when absent

	comps [3]component
	qtbl  [4][]int32
	huff  [2][2]*huffTable // [class][id], class 0 is DC

	format PixelFormat

	scale int // latched by the first decode call, -1 before
	bandY int // unscaled y of the next band
	dcv   [3]int32
	mcnt  int // MCUs decoded since the last restart
	rsc   int // restart marker sequence counter

	mcu []int16 // component planes of the current MCU, 64 samples per block
	rgb []byte  // pixel workspace for one MCU
}

// JPEG marker bytes handled by Prepare.
const (
	markerSOF0 = 0xC0
	markerDHT  = 0xC4
	markerSOI  = 0xD8
	markerEOI  = 0xD9
	markerSOS  = 0xDA
	markerDQT  = 0xDB
	markerDRI  = 0xDD
)

// Prepare reads the JPEG header from feed through the start-of-scan marker,
// builds the quantization and Huffman tables, and allocates the decode
// workspace. On success the stream is positioned at the first entropy byte
// and the returned decoder is ready for Decode or DecodeBand.
func Prepare(feed Feed, opts Options) (*Decoder, error) {
	if feed == nil {
		return nil, fmt.Errorf("%w: nil feed", ErrParameter)
	}
	if opts.Format != FormatRGB888 && opts.Format != FormatRGB565 {
		return nil, fmt.Errorf("%w: pixel format %d", ErrParameter, int(opts.Format))
	}
	workSize := opts.WorkSize
	if workSize == 0 {
		workSize = DefaultWorkSize
	}

	d := &Decoder{
		feed:   feed,
		pool:   workPool{avail: workSize},
		format: opts.Format,
		scale:  -1,
	}
	if !d.pool.take(szStream) {
		return nil, fmt.Errorf("%w: %d bytes cannot hold the stream buffer", ErrWork, workSize)
	}
	d.inbuf = make([]byte, szStream)

	b, err := d.readSeg(2)
	if err != nil {
		return nil, err
	}
	if b[0] != 0xFF || b[1] != markerSOI {
		return nil, fmt.Errorf("%w: missing SOI marker", ErrFormat)
	}

	for {
		marker, err := d.readMarker()
		if err != nil {
			return nil, err
		}
		switch {
		case marker == markerSOS:
			if err := d.parseSOS(); err != nil {
				return nil, err
			}
			d.br = bitReader{feed: d.feed, buf: d.inbuf}
			return d, nil
		case marker == markerSOF0:
			if err := d.parseSOF(); err != nil {
				return nil, err
			}
		case marker == markerDQT:
			if err := d.parseDQT(); err != nil {
				return nil, err
			}
		case marker == markerDHT:
			if err := d.parseDHT(); err != nil {
				return nil, err
			}
		case marker == markerDRI:
			if err := d.parseDRI(); err != nil {
				return nil, err
			}
		case marker == markerEOI || marker == markerSOI:
			return nil, fmt.Errorf("%w: no image data before marker 0xFF%02X", ErrFormat, marker)
		case marker == 0x01 || (marker >= 0xD0 && marker <= 0xD7):
			// TEM and RSTn carry no length field and are illegal here.
			return nil, fmt.Errorf("%w: stray marker 0xFF%02X in header", ErrFormat, marker)
		case marker >= 0xC1 && marker <= 0xCF:
			// Progressive, lossless, arithmetic and hierarchical frames.
			return nil, fmt.Errorf("%w: frame type 0xFF%02X", ErrUnsupported, marker)
		default:
			// APPn, COM and anything else with a plain length field.
			if err := d.skipSeg(); err != nil {
				return nil, err
			}
		}
	}
}

// Width returns the image width in pixels before scaling.
func (d *Decoder) Width() int { return d.width }

// Height returns the image height in pixels before scaling.
func (d *Decoder) Height() int { return d.height }

// Components returns the number of color components, 1 or 3.
func (d *Decoder) Components() int { return d.ncomp }

// Format returns the prepared output pixel format.
func (d *Decoder) Format() PixelFormat { return d.format }

// PixelSize returns the output bytes per pixel.
func (d *Decoder) PixelSize() int { return d.format.PixelSize() }

// BandRows returns the number of output rows one DecodeBand call produces
// at the given scale, except for the final band of an image, which may be
// shorter. Scale must be 0..3.
func (d *Decoder) BandRows(scale int) int {
	rows := (d.msy * 8) >> uint(scale&3)
	if rows < 1 {
		rows = 1
	}
	return rows
}

// readMarker consumes the next 0xFF-introduced marker, tolerating fill
// bytes, and returns the marker code.
func (d *Decoder) readMarker() (byte, error) {
	b, err := d.readSeg(2)
	if err != nil {
		return 0, err
	}
	if b[0] != 0xFF {
		return 0, fmt.Errorf("%w: expected marker, found 0x%02X", ErrFormat, b[0])
	}
	m := b[1]
	for m == 0xFF {
		one, err := d.readSeg(1)
		if err != nil {
			return 0, err
		}
		m = one[0]
	}
	if m == 0x00 {
		return 0, fmt.Errorf("%w: stuffed byte outside entropy data", ErrFormat)
	}
	return m, nil
}

// readSeg reads exactly n bytes from the feed into the shared stream
// buffer. Only valid before entropy decoding starts.
func (d *Decoder) readSeg(n int) ([]byte, error) {
	if n > len(d.inbuf) {
		return nil, fmt.Errorf("%w: %d byte segment exceeds the stream buffer", ErrWork, n)
	}
	if got := d.feed.ReadBytes(d.inbuf[:n]); got != n {
		return nil, fmt.Errorf("%w: wanted %d header bytes, got %d", ErrInput, n, got)
	}
	return d.inbuf[:n], nil
}

// readSegBody reads a marker segment's length field and then its body.
func (d *Decoder) readSegBody() ([]byte, error) {
	b, err := d.readSeg(2)
	if err != nil {
		return nil, err
	}
	n := int(b[0])<<8 | int(b[1])
	if n < 2 {
		return nil, fmt.Errorf("%w: segment length %d", ErrFormat, n)
	}
	return d.readSeg(n - 2)
}

// skipSeg drops an uninteresting marker segment without materializing it.
func (d *Decoder) skipSeg() error {
	b, err := d.readSeg(2)
	if err != nil {
		return err
	}
	n := int(b[0])<<8 | int(b[1])
	if n < 2 {
		return fmt.Errorf("%w: segment length %d", ErrFormat, n)
	}
	if n == 2 {
		return nil
	}
	if got := d.feed.SkipBytes(n - 2); got != n-2 {
		return fmt.Errorf("%w: skipping %d segment bytes", ErrInput, n-2)
	}
	return nil
}

func (d *Decoder) parseSOF() error {
	body, err := d.readSegBody()
	if err != nil {
		return err
	}
	if len(body) < 6 {
		return fmt.Errorf("%w: short frame header", ErrFormat)
	}
	if body[0] != 8 {
		return fmt.Errorf("%w: %d bit precision", ErrUnsupported, body[0])
	}
	d.height = int(body[1])<<8 | int(body[2])
	d.width = int(body[3])<<8 | int(body[4])
	if d.width == 0 || d.height == 0 {
		return fmt.Errorf("%w: zero image dimension", ErrFormat)
	}
	d.ncomp = int(body[5])
	if d.ncomp != 1 && d.ncomp != 3 {
		return fmt.Errorf("%w: %d components", ErrUnsupported, d.ncomp)
	}
	if len(body) < 6+3*d.ncomp {
		return fmt.Errorf("%w: short frame header", ErrFormat)
	}
	for i := 0; i < d.ncomp; i++ {
		d.comps[i].id = int(body[6+3*i])
		hv := body[7+3*i]
		tq := int(body[8+3*i])
		if tq > 3 {
			return fmt.Errorf("%w: quantization table %d", ErrFormat, tq)
		}
		d.comps[i].qt = tq
		if i == 0 {
			switch hv {
			case 0x11:
				d.msx, d.msy = 1, 1
			case 0x21:
				d.msx, d.msy = 2, 1
			case 0x22:
				d.msx, d.msy = 2, 2
			default:
				return fmt.Errorf("%w: sampling factor 0x%02X", ErrUnsupported, hv)
			}
		} else if hv != 0x11 {
			return fmt.Errorf("%w: chroma sampling factor 0x%02X", ErrUnsupported, hv)
		}
	}
	if d.ncomp == 1 {
		// A single-component scan is never interleaved: one block per MCU.
		d.msx, d.msy = 1, 1
	}
	return nil
}

func (d *Decoder) parseDQT() error {
	body, err := d.readSegBody()
	if err != nil {
		return err
	}
	for len(body) > 0 {
		pq, tq := int(body[0]>>4), int(body[0]&0x0F)
		if pq != 0 {
			return fmt.Errorf("%w: 16 bit quantization table", ErrUnsupported)
		}
		if tq > 3 {
			return fmt.Errorf("%w: quantization table %d", ErrFormat, tq)
		}
		if len(body) < 65 {
			return fmt.Errorf("%w: truncated quantization table", ErrFormat)
		}
		if d.qtbl[tq] == nil {
			if !d.pool.take(64 * 4) {
				return fmt.Errorf("%w: quantization table", ErrWork)
			}
			d.qtbl[tq] = make([]int32, 64)
		}
		tbl := d.qtbl[tq]
		for i := 0; i < 64; i++ {
			// Fold the IDCT scale factor into the de-quantizer.
			zi := zig[i]
			tbl[zi] = int32(body[1+i]) * ipsf[zi]
		}
		body = body[65:]
	}
	return nil
}

func (d *Decoder) parseDHT() error {
	body, err := d.readSegBody()
	if err != nil {
		return err
	}
	for len(body) > 0 {
		tc, th := int(body[0]>>4), int(body[0]&0x0F)
		if tc > 1 || th > 1 {
			return fmt.Errorf("%w: Huffman table class %d id %d", ErrUnsupported, tc, th)
		}
		if len(body) < 17 {
			return fmt.Errorf("%w: truncated Huffman table", ErrFormat)
		}
		counts := body[1:17]
		total := 0
		for _, c := range counts {
			total += int(c)
		}
		if total == 0 || total > 256 || len(body) < 17+total {
			return fmt.Errorf("%w: Huffman table with %d symbols", ErrFormat, total)
		}
		if !d.pool.take(huffTableCost(total)) {
			return fmt.Errorf("%w: Huffman table", ErrWork)
		}
		tbl, err := buildHuffTable(counts, body[17:17+total])
		if err != nil {
			return err
		}
		d.huff[tc][th] = tbl
		body = body[17+total:]
	}
	return nil
}

func (d *Decoder) parseDRI() error {
	body, err := d.readSegBody()
	if err != nil {
		return err
	}
	if len(body) < 2 {
		return fmt.Errorf("%w: truncated restart interval", ErrFormat)
	}
	d.nrst = int(body[0])<<8 | int(body[1])
	return nil
}

func (d *Decoder) parseSOS() error {
	body, err := d.readSegBody()
	if err != nil {
		return err
	}
	if d.width == 0 {
		return fmt.Errorf("%w: scan before frame header", ErrFormat)
	}
	if len(body) < 1 {
		return fmt.Errorf("%w: short scan header", ErrFormat)
	}
	ns := int(body[0])
	if ns != d.ncomp {
		return fmt.Errorf("%w: %d component scan of a %d component frame", ErrUnsupported, ns, d.ncomp)
	}
	if len(body) < 1+2*ns+3 {
		return fmt.Errorf("%w: short scan header", ErrFormat)
	}
	for i := 0; i < ns; i++ {
		cs := int(body[1+2*i])
		td, ta := int(body[2+2*i]>>4), int(body[2+2*i]&0x0F)
		if td > 1 || ta > 1 {
			return fmt.Errorf("%w: Huffman table id %d/%d", ErrUnsupported, td, ta)
		}
		found := false
		for j := 0; j < d.ncomp; j++ {
			if d.comps[j].id == cs {
				d.comps[j].tdc = td
				d.comps[j].tac = ta
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: scan component %d not in frame", ErrFormat, cs)
		}
	}
	ss, se, ahal := body[1+2*ns], body[2+2*ns], body[3+2*ns]
	if ss != 0 || se != 63 || ahal != 0 {
		return fmt.Errorf("%w: spectral selection %d..%d/%d", ErrUnsupported, ss, se, ahal)
	}
	for i := 0; i < d.ncomp; i++ {
		c := d.comps[i]
		if d.qtbl[c.qt] == nil {
			return fmt.Errorf("%w: missing quantization table %d", ErrFormat, c.qt)
		}
		if d.huff[0][c.tdc] == nil || d.huff[1][c.tac] == nil {
			return fmt.Errorf("%w: missing Huffman table", ErrFormat)
		}
	}

	blocks := d.msx*d.msy + 2
	if d.ncomp == 1 {
		blocks = 1
	}
	if !d.pool.take(blocks * 64 * 2) {
		return fmt.Errorf("%w: MCU workspace", ErrWork)
	}
	d.mcu = make([]int16, blocks*64)
	mx, my := d.msx*8, d.msy*8
	if !d.pool.take(mx * my * 3) {
		return fmt.Errorf("%w: pixel workspace", ErrWork)
	}
	d.rgb = make([]byte, mx*my*3)
	return nil
}

// workPool tracks the byte budget of the configured work area. It models
// the fixed memory pool the original engine carved its allocations from.
type workPool struct {
	avail int
}

func (p *workPool) take(n int) bool {
	if n > p.avail {
		return false
	}
	p.avail -= n
	return true
}

func huffTableCost(symbols int) int {
	// Three 17-entry int tables plus the symbol values.
	return 3*17*8 + symbols
}
