// Package jfif writes small baseline JFIF streams whose decoded pixels are
// predictable byte for byte, for use as test fixtures. Images are grids of
// solid coefficient blocks: every block carries only a DC level, so a block
// with level L decodes to exactly L. The quantizer step for the DC term is
// 8, cancelling the transform's 1/8 gain.
package jfif

// Options configures stream generation.
type Options struct {
	// RestartInterval inserts DRI/RSTn markers every n MCUs. 0 disables.
	RestartInterval int
}

const quantStep = 8

// JPEG Annex K code length counts and symbol values for the DC tables. The
// AC tables carry a single end-of-block symbol with the 1-bit code 0, which
// is all a DC-only stream ever emits.
var (
	dcLumaCounts   = [16]byte{0, 1, 5, 1, 1, 1, 1, 1, 1, 0, 0, 0, 0, 0, 0, 0}
	dcLumaValues   = []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}
	dcChromaCounts = [16]byte{0, 3, 1, 1, 1, 1, 1, 1, 1, 1, 1, 0, 0, 0, 0, 0}
	dcChromaValues = []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}
	acCounts       = [16]byte{1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	acValues       = []byte{0x00}
)

// EncodeGray builds a grayscale stream of w by h pixels. level supplies the
// solid value of the 8x8 block at block coordinates (bx, by); values are
// clamped to 0..255.
func EncodeGray(w, h int, level func(bx, by int) int, opts Options) []byte {
	e := newEncoder(opts)
	e.soi()
	e.app0()
	e.dqt(0)
	e.sof(w, h, []frameComp{{id: 1, hv: 0x11, tq: 0}})
	e.dht(0x00, dcLumaCounts, dcLumaValues)
	e.dht(0x10, acCounts, acValues)
	if opts.RestartInterval > 0 {
		e.dri(opts.RestartInterval)
	}
	e.sos([]scanComp{{id: 1, td: 0, ta: 0}})

	bw, bh := (w+7)/8, (h+7)/8
	for by := 0; by < bh; by++ {
		for bx := 0; bx < bw; bx++ {
			e.maybeRestart()
			e.solidBlock(0, 0, clamp8(level(bx, by)))
			e.mcus++
		}
	}
	e.finish()
	return e.out
}

// EncodeColor420 builds a 4:2:0 YCbCr stream of w by h pixels. color
// supplies the solid Y, Cb and Cr values of the 16x16 MCU at MCU
// coordinates (mx, my), each clamped to 0..255. Neutral chroma (128, 128)
// decodes to gray pixels equal to Y.
func EncodeColor420(w, h int, color func(mx, my int) (y, cb, cr int), opts Options) []byte {
	e := newEncoder(opts)
	e.soi()
	e.app0()
	e.dqt(0)
	e.dqt(1)
	e.sof(w, h, []frameComp{
		{id: 1, hv: 0x22, tq: 0},
		{id: 2, hv: 0x11, tq: 1},
		{id: 3, hv: 0x11, tq: 1},
	})
	e.dht(0x00, dcLumaCounts, dcLumaValues)
	e.dht(0x10, acCounts, acValues)
	e.dht(0x01, dcChromaCounts, dcChromaValues)
	e.dht(0x11, acCounts, acValues)
	if opts.RestartInterval > 0 {
		e.dri(opts.RestartInterval)
	}
	e.sos([]scanComp{
		{id: 1, td: 0, ta: 0},
		{id: 2, td: 1, ta: 1},
		{id: 3, td: 1, ta: 1},
	})

	mw, mh := (w+15)/16, (h+15)/16
	for my := 0; my < mh; my++ {
		for mx := 0; mx < mw; mx++ {
			e.maybeRestart()
			y, cb, cr := color(mx, my)
			y, cb, cr = clamp8(y), clamp8(cb), clamp8(cr)
			e.solidBlock(0, 0, y) // Y blocks share one level, later diffs are zero
			e.solidBlock(0, 0, y)
			e.solidBlock(0, 0, y)
			e.solidBlock(0, 0, y)
			e.solidBlock(1, 1, cb)
			e.solidBlock(1, 2, cr)
			e.mcus++
		}
	}
	e.finish()
	return e.out
}

// EncodeColor422 builds a 4:2:2 YCbCr stream. color supplies the solid
// component values of the 16x8 MCU at MCU coordinates (mx, my).
func EncodeColor422(w, h int, color func(mx, my int) (y, cb, cr int), opts Options) []byte {
	e := newEncoder(opts)
	e.soi()
	e.app0()
	e.dqt(0)
	e.dqt(1)
	e.sof(w, h, []frameComp{
		{id: 1, hv: 0x21, tq: 0},
		{id: 2, hv: 0x11, tq: 1},
		{id: 3, hv: 0x11, tq: 1},
	})
	e.dht(0x00, dcLumaCounts, dcLumaValues)
	e.dht(0x10, acCounts, acValues)
	e.dht(0x01, dcChromaCounts, dcChromaValues)
	e.dht(0x11, acCounts, acValues)
	if opts.RestartInterval > 0 {
		e.dri(opts.RestartInterval)
	}
	e.sos([]scanComp{
		{id: 1, td: 0, ta: 0},
		{id: 2, td: 1, ta: 1},
		{id: 3, td: 1, ta: 1},
	})

	mw, mh := (w+15)/16, (h+7)/8
	for my := 0; my < mh; my++ {
		for mx := 0; mx < mw; mx++ {
			e.maybeRestart()
			y, cb, cr := color(mx, my)
			y, cb, cr = clamp8(y), clamp8(cb), clamp8(cr)
			e.solidBlock(0, 0, y)
			e.solidBlock(0, 0, y)
			e.solidBlock(1, 1, cb)
			e.solidBlock(1, 2, cr)
			e.mcus++
		}
	}
	e.finish()
	return e.out
}

// EncodeColor444 builds a 4:4:4 YCbCr stream. color supplies the solid
// component values of the 8x8 MCU at MCU coordinates (mx, my).
func EncodeColor444(w, h int, color func(mx, my int) (y, cb, cr int), opts Options) []byte {
	e := newEncoder(opts)
	e.soi()
	e.app0()
	e.dqt(0)
	e.dqt(1)
	e.sof(w, h, []frameComp{
		{id: 1, hv: 0x11, tq: 0},
		{id: 2, hv: 0x11, tq: 1},
		{id: 3, hv: 0x11, tq: 1},
	})
	e.dht(0x00, dcLumaCounts, dcLumaValues)
	e.dht(0x10, acCounts, acValues)
	e.dht(0x01, dcChromaCounts, dcChromaValues)
	e.dht(0x11, acCounts, acValues)
	if opts.RestartInterval > 0 {
		e.dri(opts.RestartInterval)
	}
	e.sos([]scanComp{
		{id: 1, td: 0, ta: 0},
		{id: 2, td: 1, ta: 1},
		{id: 3, td: 1, ta: 1},
	})

	mw, mh := (w+7)/8, (h+7)/8
	for my := 0; my < mh; my++ {
		for mx := 0; mx < mw; mx++ {
			e.maybeRestart()
			y, cb, cr := color(mx, my)
			y, cb, cr = clamp8(y), clamp8(cb), clamp8(cr)
			e.solidBlock(0, 0, y)
			e.solidBlock(1, 1, cb)
			e.solidBlock(1, 2, cr)
			e.mcus++
		}
	}
	e.finish()
	return e.out
}

type frameComp struct {
	id byte
	hv byte
	tq byte
}

type scanComp struct {
	id byte
	td byte
	ta byte
}

type hcode struct {
	code int
	bits int
}

type encoder struct {
	out  []byte
	bw   bitWriter
	dc   [2]map[byte]hcode
	eob  [2]hcode
	prev [3]int
	mcus int
	rsn  int
	ivl  int
}

func newEncoder(opts Options) *encoder {
	e := &encoder{ivl: opts.RestartInterval}
	e.dc[0] = buildCodes(dcLumaCounts, dcLumaValues)
	e.dc[1] = buildCodes(dcChromaCounts, dcChromaValues)
	ac := buildCodes(acCounts, acValues)
	e.eob[0] = ac[0x00]
	e.eob[1] = ac[0x00]
	return e
}

// buildCodes assigns canonical codes to symbols from counts-per-length.
func buildCodes(counts [16]byte, values []byte) map[byte]hcode {
	codes := make(map[byte]hcode, len(values))
	code := 0
	k := 0
	for l := 1; l <= 16; l++ {
		for n := 0; n < int(counts[l-1]); n++ {
			codes[values[k]] = hcode{code: code, bits: l}
			code++
			k++
		}
		code <<= 1
	}
	return codes
}

// solidBlock emits one coefficient block holding only a DC term that
// decodes to the given solid level. table selects the DC/AC code pair,
// comp the DC predictor chain.
func (e *encoder) solidBlock(table, comp, level int) {
	dc := level - 128
	diff := dc - e.prev[comp]
	e.prev[comp] = dc

	mag := diff
	if mag < 0 {
		mag = -mag
	}
	cat := 0
	for v := mag; v > 0; v >>= 1 {
		cat++
	}
	c := e.dc[table][byte(cat)]
	e.bw.put(c.code, c.bits)
	if cat > 0 {
		bits := diff
		if diff < 0 {
			bits = diff + 1<<uint(cat) - 1
		}
		e.bw.put(bits, cat)
	}
	e.bw.put(e.eob[table].code, e.eob[table].bits)
}

// maybeRestart emits an RSTn marker boundary when the restart interval
// elapses, resetting the DC predictor chains like a decoder will.
func (e *encoder) maybeRestart() {
	if e.ivl <= 0 || e.mcus == 0 || e.mcus%e.ivl != 0 {
		return
	}
	e.out = e.bw.flush(e.out)
	e.out = append(e.out, 0xFF, byte(0xD0+e.rsn&7))
	e.rsn++
	e.prev = [3]int{}
}

func (e *encoder) finish() {
	e.out = e.bw.flush(e.out)
	e.out = append(e.out, 0xFF, 0xD9) // EOI
}

func (e *encoder) soi() {
	e.out = append(e.out, 0xFF, 0xD8)
}

func (e *encoder) app0() {
	e.segment(0xE0, []byte{'J', 'F', 'I', 'F', 0, 1, 1, 0, 0, 1, 0, 1, 0, 0})
}

func (e *encoder) dqt(id byte) {
	body := make([]byte, 65)
	body[0] = id
	for i := 1; i < 65; i++ {
		body[i] = quantStep
	}
	e.segment(0xDB, body)
}

func (e *encoder) sof(w, h int, comps []frameComp) {
	body := []byte{8, byte(h >> 8), byte(h), byte(w >> 8), byte(w), byte(len(comps))}
	for _, c := range comps {
		body = append(body, c.id, c.hv, c.tq)
	}
	e.segment(0xC0, body)
}

func (e *encoder) dht(tcth byte, counts [16]byte, values []byte) {
	body := append([]byte{tcth}, counts[:]...)
	body = append(body, values...)
	e.segment(0xC4, body)
}

func (e *encoder) dri(interval int) {
	e.segment(0xDD, []byte{byte(interval >> 8), byte(interval)})
}

func (e *encoder) sos(comps []scanComp) {
	body := []byte{byte(len(comps))}
	for _, c := range comps {
		body = append(body, c.id, c.td<<4|c.ta)
	}
	body = append(body, 0, 63, 0)
	e.segment(0xDA, body)
}

func (e *encoder) segment(marker byte, body []byte) {
	n := len(body) + 2
	e.out = append(e.out, 0xFF, marker, byte(n>>8), byte(n))
	e.out = append(e.out, body...)
}

func clamp8(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

// bitWriter packs code bits MSB first, stuffing a zero byte after each
// emitted 0xFF as the entropy layer requires.
type bitWriter struct {
	out []byte
	acc uint32
	cnt int
}

func (w *bitWriter) put(bits, n int) {
	w.acc = w.acc<<uint(n) | uint32(bits)&(1<<uint(n)-1)
	w.cnt += n
	for w.cnt >= 8 {
		b := byte(w.acc >> uint(w.cnt-8))
		w.out = append(w.out, b)
		if b == 0xFF {
			w.out = append(w.out, 0x00)
		}
		w.cnt -= 8
	}
}

// flush pads the current byte with 1 bits, appends the buffered bytes to
// dst and resets the writer.
func (w *bitWriter) flush(dst []byte) []byte {
	if w.cnt&7 != 0 {
		pad := 8 - w.cnt&7
		w.put(1<<uint(pad)-1, pad)
	}
	dst = append(dst, w.out...)
	w.out = w.out[:0]
	return dst
}
