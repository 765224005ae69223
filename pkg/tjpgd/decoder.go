package tjpgd

import (
	"fmt"

	"github.com/C47D/lv-lib-tjpgd/internal/tjpgd"
)

// Decoding errors. They wrap the internal sentinels so errors.Is works on
// values returned from any method.
var (
	// ErrInput reports that the feed ran out of data or failed.
	ErrInput = tjpgd.ErrInput
	// ErrWork reports that the work size is too small for the stream.
	ErrWork = tjpgd.ErrWork
	// ErrParameter reports an invalid argument.
	ErrParameter = tjpgd.ErrParameter
	// ErrFormat reports a corrupt or non-JPEG stream.
	ErrFormat = tjpgd.ErrFormat
	// ErrUnsupported reports a legal JPEG feature outside the baseline subset.
	ErrUnsupported = tjpgd.ErrUnsupported
	// ErrInterrupted reports that the block callback stopped the decode.
	ErrInterrupted = tjpgd.ErrInterrupted
)

// DefaultWorkSize is the work memory budget used when Options.WorkSize is
// zero.
const DefaultWorkSize = tjpgd.DefaultWorkSize

// PixelFormat selects the layout of decoded pixels.
type PixelFormat int

const (
	// FormatRGB888 emits 3 bytes per pixel, R first.
	FormatRGB888 PixelFormat = iota
	// FormatRGB565 emits 2 bytes per pixel, little endian.
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

// PixelSize returns the bytes per pixel of the format.
func (f PixelFormat) PixelSize() int {
	return tjpgd.PixelFormat(f).PixelSize()
}

// Feed supplies compressed stream bytes to the decoder on demand.
type Feed interface {
	// ReadBytes fills p with the next stream bytes and returns how many
	// were written. Zero means the stream is exhausted.
	ReadBytes(p []byte) int
	// SkipBytes discards the next n stream bytes and returns how many
	// were discarded.
	SkipBytes(n int) int
}

// Rect is an inclusive pixel rectangle within the decoded image.
type Rect struct {
	Left, Top, Right, Bottom int
}

// Width returns the rectangle width in pixels.
func (r Rect) Width() int { return r.Right - r.Left + 1 }

// Height returns the rectangle height in pixels.
func (r Rect) Height() int { return r.Bottom - r.Top + 1 }

// BlockFunc receives one decoded block. bitmap holds Width*Height packed
// pixels in the decoder's pixel format and is reused across calls.
// Returning false stops the decode.
type BlockFunc func(bitmap []byte, r Rect) bool

// Options configures JPEG decoding behavior.
type Options struct {
	// WorkSize bounds the decoder's working memory in bytes. Zero selects
	// DefaultWorkSize.
	WorkSize int
	// Format selects the output pixel layout.
	Format PixelFormat
}

// Decoder decodes one baseline JPEG stream block by block.
type Decoder struct {
	decoder *tjpgd.Decoder
}

// New parses the stream header from feed and returns a decoder ready to
// produce pixels.
func New(feed Feed, opts Options) (*Decoder, error) {
	internalDecoder, err := tjpgd.Prepare(feed, tjpgd.Options{
		WorkSize: opts.WorkSize,
		Format:   tjpgd.PixelFormat(opts.Format),
	})
	if err != nil {
		return nil, err
	}
	return &Decoder{decoder: internalDecoder}, nil
}

// Width returns the image width in pixels at full scale.
func (d *Decoder) Width() int {
	return d.decoder.Width()
}

// Height returns the image height in pixels at full scale.
func (d *Decoder) Height() int {
	return d.decoder.Height()
}

// Components returns the number of color components, 1 or 3.
func (d *Decoder) Components() int {
	return d.decoder.Components()
}

// Format returns the configured output pixel format.
func (d *Decoder) Format() PixelFormat {
	return PixelFormat(d.decoder.Format())
}

// BandRows returns the output rows produced per band at the given scale.
func (d *Decoder) BandRows(scale int) int {
	return d.decoder.BandRows(scale)
}

// DecodeBand decodes the next band of the image. Block rectangles are
// relative to the top of the band. It returns the number of output rows
// produced, zero once the image is exhausted. The scale divides both
// dimensions by 1<<scale and must stay the same across calls.
func (d *Decoder) DecodeBand(fn BlockFunc, scale int) (int, error) {
	return d.decoder.DecodeBand(wrapBlockFunc(fn), scale)
}

// Decode decodes the remaining image in one pass. Block rectangles are
// absolute image coordinates.
func (d *Decoder) Decode(fn BlockFunc, scale int) error {
	return d.decoder.Decode(wrapBlockFunc(fn), scale)
}

func wrapBlockFunc(fn BlockFunc) tjpgd.BlockFunc {
	if fn == nil {
		return nil
	}
	return func(bitmap []byte, r tjpgd.Rect) bool {
		return fn(bitmap, Rect{Left: r.Left, Top: r.Top, Right: r.Right, Bottom: r.Bottom})
	}
}
