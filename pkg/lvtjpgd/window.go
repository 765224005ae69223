package lvtjpgd

import (
	"fmt"

	"github.com/C47D/lv-lib-tjpgd/pkg/tjpgd"
)

// rowWindow holds one window of decoded rows. A fresh window is allocated
// per refill; the prior one is released first so at most one window is
// live per session.
type rowWindow struct {
	buf      []byte
	width    int // pixels per row
	bpp      int
	rows     int // capacity in rows
	produced int // rows the engine actually delivered this fill
	top      int // absolute image row of window row 0
}

func newRowWindow(width, rows, bpp, top int) *rowWindow {
	return &rowWindow{
		buf:   make([]byte, width*rows*bpp),
		width: width,
		bpp:   bpp,
		rows:  rows,
		top:   top,
	}
}

// blit copies one decoded block into the window at its stride offset.
// Blocks may be narrower than the window; they must never reach outside
// it.
func (w *rowWindow) blit(bitmap []byte, r tjpgd.Rect) error {
	if r.Left < 0 || r.Top < 0 || r.Right < r.Left || r.Bottom < r.Top ||
		r.Right >= w.width || r.Bottom >= w.rows {
		return fmt.Errorf("block [%d,%d]x[%d,%d] outside %dx%d window",
			r.Left, r.Right, r.Top, r.Bottom, w.width, w.rows)
	}
	srcStride := r.Width() * w.bpp
	if len(bitmap) < srcStride*r.Height() {
		return fmt.Errorf("block buffer holds %d bytes, rect needs %d",
			len(bitmap), srcStride*r.Height())
	}
	dst := w.bpp * (r.Top*w.width + r.Left)
	dstStride := w.bpp * w.width
	for y := 0; y < r.Height(); y++ {
		copy(w.buf[dst:dst+srcStride], bitmap[y*srcStride:(y+1)*srcStride])
		dst += dstStride
	}
	return nil
}

// row returns the pixels of an absolute image row held by this window.
func (w *rowWindow) row(abs int) []byte {
	off := (abs - w.top) * w.width * w.bpp
	return w.buf[off : off+w.width*w.bpp]
}
