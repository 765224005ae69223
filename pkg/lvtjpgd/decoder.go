package lvtjpgd

import (
	"fmt"
	"strings"

	"github.com/C47D/lv-lib-tjpgd/pkg/lvimg"
)

// jpgSuffix is the accepted source name suffix, matched exactly.
const jpgSuffix = ".jpg"

// Decoder is the lvimg.Decoder for baseline JPEG files. It serves images
// incrementally through ReadLine; full-frame decoding never happens.
type Decoder struct {
	opts Options
}

// NewDecoder returns a Decoder producing sessions configured by opts.
func NewDecoder(opts Options) *Decoder {
	return &Decoder{opts: opts}
}

// Register adds a JPEG decoder configured by opts to reg.
func Register(reg *lvimg.Registry, opts Options) {
	reg.Register(NewDecoder(opts))
}

// Info reports the scaled dimensions of src without keeping any decode
// state. The probe session closes before returning, stream included.
func (d *Decoder) Info(src lvimg.Source) (lvimg.Header, error) {
	if err := checkSource(src); err != nil {
		return lvimg.Header{}, err
	}
	s := NewSession(d.opts)
	hdr, err := s.Probe(src)
	s.Close()
	if err != nil {
		return lvimg.Header{}, err
	}
	return hdr, nil
}

// Open prepares src for incremental reads. The returned image reports
// nil Pixels; callers pull rows through ReadLine.
func (d *Decoder) Open(src lvimg.Source) (lvimg.Image, error) {
	if err := checkSource(src); err != nil {
		return nil, err
	}
	s := NewSession(d.opts)
	hdr, err := s.Probe(src)
	if err != nil {
		return nil, err
	}
	if err := s.Open(); err != nil {
		s.Close()
		return nil, err
	}
	return &Image{session: s, header: hdr}, nil
}

func checkSource(src lvimg.Source) error {
	switch src.Kind() {
	case lvimg.SourceFile:
		if !strings.HasSuffix(src.Path(), jpgSuffix) {
			return fmt.Errorf("%w: %q lacks the %s suffix", lvimg.ErrUnsupportedSource, src.Path(), jpgSuffix)
		}
		return nil
	case lvimg.SourceMemory:
		return fmt.Errorf("%w: in-memory sources are not supported", lvimg.ErrUnsupportedSource)
	default:
		return fmt.Errorf("%w: source kind %v", lvimg.ErrUnsupportedSource, src.Kind())
	}
}

// Image is one opened JPEG served row by row out of the session's window.
type Image struct {
	session *Session
	header  lvimg.Header
	rowBuf  []byte
}

// Header returns the scaled image dimensions and pixel format.
func (img *Image) Header() lvimg.Header { return img.header }

// Pixels returns nil: the image is incremental, read it through
// ReadLine.
func (img *Image) Pixels() []byte { return nil }

// ReadLine copies widthPx pixels of row y starting at column x into dst.
// Rows must advance monotonically once they leave the decode window;
// re-reading rows still inside the window is fine.
func (img *Image) ReadLine(x, y, widthPx int, dst []byte) error {
	bpp := img.header.Format.PixelSize()
	if x < 0 || widthPx < 0 || x+widthPx > img.header.Width {
		return fmt.Errorf("%w: columns [%d,%d) of %d", ErrRowRange, x, x+widthPx, img.header.Width)
	}
	if len(dst) < widthPx*bpp {
		return fmt.Errorf("%w: need %d bytes, have %d", ErrShortBuffer, widthPx*bpp, len(dst))
	}
	if x == 0 && widthPx == img.header.Width {
		_, err := img.session.ReadRows(y, 1, dst)
		return err
	}
	if img.rowBuf == nil {
		img.rowBuf = make([]byte, img.header.Width*bpp)
	}
	if _, err := img.session.ReadRows(y, 1, img.rowBuf); err != nil {
		return err
	}
	copy(dst, img.rowBuf[x*bpp:(x+widthPx)*bpp])
	return nil
}

// Close releases the session. Idempotent.
func (img *Image) Close() error {
	return img.session.Close()
}
