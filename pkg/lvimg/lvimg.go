package lvimg

import (
	"errors"
	"fmt"
)

// Errors reported by the registry and its decoders.
var (
	// ErrUnsupportedSource reports that a decoder does not handle the
	// given source. The registry moves on to the next decoder.
	ErrUnsupportedSource = errors.New("lvimg: unsupported source")
	// ErrNoDecoder reports that no registered decoder accepted the source.
	ErrNoDecoder = errors.New("lvimg: no decoder for source")
)

// SourceKind identifies where image bytes come from.
type SourceKind int

const (
	// SourceFile names an image by filesystem path.
	SourceFile SourceKind = iota
	// SourceMemory holds the complete encoded image in memory.
	SourceMemory
)

func (k SourceKind) String() string {
	switch k {
	case SourceFile:
		return "File"
	case SourceMemory:
		return "Memory"
	default:
		return fmt.Sprintf("SourceKind(%d)", int(k))
	}
}

// Source describes one encoded image to decode.
type Source struct {
	kind SourceKind
	path string
	data []byte
}

// FileSource returns a Source naming an image file by path.
func FileSource(path string) Source {
	return Source{kind: SourceFile, path: path}
}

// MemorySource returns a Source holding the encoded image bytes.
func MemorySource(data []byte) Source {
	return Source{kind: SourceMemory, data: data}
}

// Kind returns where the image bytes come from.
func (s Source) Kind() SourceKind { return s.kind }

// Path returns the file path of a SourceFile source.
func (s Source) Path() string { return s.path }

// Data returns the encoded bytes of a SourceMemory source.
func (s Source) Data() []byte { return s.data }

// ColorFormat identifies the pixel layout of decoded image data.
type ColorFormat int

const (
	// ColorRGB888 is 3 bytes per pixel, R first.
	ColorRGB888 ColorFormat = iota
	// ColorRGB565 is 2 bytes per pixel, little endian.
	ColorRGB565
)

func (f ColorFormat) String() string {
	switch f {
	case ColorRGB888:
		return "RGB888"
	case ColorRGB565:
		return "RGB565"
	default:
		return fmt.Sprintf("ColorFormat(%d)", int(f))
	}
}

// PixelSize returns the bytes per pixel of the format.
func (f ColorFormat) PixelSize() int {
	if f == ColorRGB565 {
		return 2
	}
	return 3
}

// Header describes a decoded image before any pixels are produced.
type Header struct {
	// Width is the image width in pixels.
	Width int
	// Height is the image height in pixels.
	Height int
	// Format is the pixel layout decoded data will use.
	Format ColorFormat
}

// Decoder probes and opens encoded images of one format family.
type Decoder interface {
	// Info inspects the source and returns its header without decoding
	// pixel data. It returns ErrUnsupportedSource when the source is not
	// of this decoder's format.
	Info(src Source) (Header, error)
	// Open prepares the source for pixel access. It returns
	// ErrUnsupportedSource when the source is not of this decoder's
	// format.
	Open(src Source) (Image, error)
}

// Image is one opened image. Implementations either expose the whole
// frame up front through Pixels or serve it line by line through
// ReadLine.
type Image interface {
	// Header returns the image dimensions and pixel format.
	Header() Header
	// Pixels returns the full decoded frame, or nil when the image is
	// served incrementally through ReadLine.
	Pixels() []byte
	// ReadLine copies widthPx pixels of row y starting at column x into
	// dst. Rows must be requested top to bottom.
	ReadLine(x, y, widthPx int, dst []byte) error
	// Close releases decoder resources. The image is unusable afterward.
	Close() error
}

// Registry dispatches sources to registered decoders in registration
// order.
type Registry struct {
	decoders []Decoder
}

// NewRegistry returns an empty decoder registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a decoder to the dispatch chain.
func (r *Registry) Register(d Decoder) {
	r.decoders = append(r.decoders, d)
}

// Info returns the header of src from the first decoder that accepts it.
// Decoders answering ErrUnsupportedSource are skipped; any other decoder
// error is returned as is.
func (r *Registry) Info(src Source) (Header, error) {
	for _, d := range r.decoders {
		h, err := d.Info(src)
		if errors.Is(err, ErrUnsupportedSource) {
			continue
		}
		return h, err
	}
	return Header{}, ErrNoDecoder
}

// Open opens src with the first decoder that accepts it. Decoders
// answering ErrUnsupportedSource are skipped; any other decoder error is
// returned as is.
func (r *Registry) Open(src Source) (Image, error) {
	for _, d := range r.decoders {
		img, err := d.Open(src)
		if errors.Is(err, ErrUnsupportedSource) {
			continue
		}
		return img, err
	}
	return nil, ErrNoDecoder
}
