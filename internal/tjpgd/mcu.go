package tjpgd

import "fmt"

// mcuLoad entropy-decodes one MCU worth of coefficient blocks, applies the
// de-quantizers and transforms each block into the component plane
// workspace. Block order follows the interleave rule: the Y blocks left to
// right, top to bottom, then Cb, then Cr.
func (d *Decoder) mcuLoad() error {
	nblk := d.msx*d.msy + 2
	if d.ncomp == 1 {
		nblk = 1
	}
	var tmp [64]int32
	for blk := 0; blk < nblk; blk++ {
		cmp := 0
		if d.ncomp == 3 && blk >= d.msx*d.msy {
			cmp = blk - d.msx*d.msy + 1
		}
		c := &d.comps[cmp]
		dq := d.qtbl[c.qt]
		for i := range tmp {
			tmp[i] = 0
		}

		s, err := d.decodeHuff(d.huff[0][c.tdc])
		if err != nil {
			return err
		}
		if s > 11 {
			return fmt.Errorf("%w: DC category %d", ErrFormat, s)
		}
		if s > 0 {
			diff, err := d.receiveExtend(s)
			if err != nil {
				return err
			}
			d.dcv[cmp] += diff
		}
		tmp[0] = d.dcv[cmp] * dq[0] >> 8

		for k := 1; k < 64; {
			rs, err := d.decodeHuff(d.huff[1][c.tac])
			if err != nil {
				return err
			}
			if rs == 0 { // EOB
				break
			}
			run, size := rs>>4, rs&0x0F
			if size == 0 {
				if run != 15 {
					return fmt.Errorf("%w: AC run %d with no magnitude", ErrFormat, run)
				}
				k += 16
				continue
			}
			if size > 10 {
				return fmt.Errorf("%w: AC category %d", ErrFormat, size)
			}
			k += run
			if k > 63 {
				return fmt.Errorf("%w: AC coefficient index %d", ErrFormat, k)
			}
			v, err := d.receiveExtend(size)
			if err != nil {
				return err
			}
			zi := zig[k]
			tmp[zi] = v * dq[zi] >> 8
			k++
		}

		blockIDCT(&tmp, d.mcu[blk*64:blk*64+64])
	}
	return nil
}

// mcuOutput converts the loaded MCU to the output pixel format, descales
// and clips it, and hands the resulting block to out. x and y locate the
// MCU in unscaled image coordinates; the reported rect top is relative to
// yBase so band decodes see window-local rows.
func (d *Decoder) mcuOutput(out BlockFunc, x, y, yBase int) error {
	const cvacc = 1024
	mx, my := d.msx*8, d.msy*8
	rx, ry := mx, my
	if x+mx > d.width {
		rx = d.width - x
	}
	if y+my > d.height {
		ry = d.height - y
	}
	s := uint(d.scale)
	rx >>= s
	ry >>= s
	if rx == 0 || ry == 0 { // rounded off entirely
		return nil
	}

	// Build an RGB888 rendition of the whole MCU.
	pix := 0
	if d.ncomp == 3 {
		for iy := 0; iy < my; iy++ {
			py := iy * 8
			var pc int
			if my == 16 {
				pc = 64*4 + (iy>>1)*8
				if iy >= 8 {
					py += 64
				}
			} else {
				pc = mx*8 + iy*8
			}
			for ix := 0; ix < mx; ix++ {
				cb := int32(d.mcu[pc]) - 128
				cr := int32(d.mcu[pc+64]) - 128
				if mx == 16 {
					if ix == 8 {
						py += 64 - 8
					}
					pc += ix & 1
				} else {
					pc++
				}
				yy := int32(d.mcu[py])
				py++
				d.rgb[pix] = clip8(yy + 1435*cr/cvacc)            // 1.402
				d.rgb[pix+1] = clip8(yy - (352*cb+731*cr)/cvacc)  // 0.344, 0.714
				d.rgb[pix+2] = clip8(yy + 1814*cb/cvacc)          // 1.772
				pix += 3
			}
		}
	} else {
		for i := 0; i < 64; i++ {
			yy := clip8(int32(d.mcu[i]))
			d.rgb[pix] = yy
			d.rgb[pix+1] = yy
			d.rgb[pix+2] = yy
			pix += 3
		}
	}

	// Average each 2^scale square down to one pixel, in place.
	if s > 0 {
		w := 1 << s
		op := 0
		for iy := 0; iy < my; iy += w {
			for ix := 0; ix < mx; ix += w {
				rp := (iy*mx + ix) * 3
				var r, g, b uint32
				for sy := 0; sy < w; sy++ {
					for sx := 0; sx < w; sx++ {
						r += uint32(d.rgb[rp])
						g += uint32(d.rgb[rp+1])
						b += uint32(d.rgb[rp+2])
						rp += 3
					}
					rp += (mx - w) * 3
				}
				d.rgb[op] = byte(r >> (2 * s))
				d.rgb[op+1] = byte(g >> (2 * s))
				d.rgb[op+2] = byte(b >> (2 * s))
				op += 3
			}
		}
	}

	// Squeeze out the clipped right edge so rows are packed.
	mxs := mx >> s
	if rx < mxs {
		src, dst := 0, 0
		for row := 0; row < ry; row++ {
			copy(d.rgb[dst:dst+rx*3], d.rgb[src:src+rx*3])
			dst += rx * 3
			src += mxs * 3
		}
	}

	// Repack to RGB565 words when requested, little endian.
	n := rx * ry
	if d.format == FormatRGB565 {
		si, di := 0, 0
		for i := 0; i < n; i++ {
			v := uint16(d.rgb[si]&0xF8)<<8 | uint16(d.rgb[si+1]&0xFC)<<3 | uint16(d.rgb[si+2])>>3
			d.rgb[di] = byte(v)
			d.rgb[di+1] = byte(v >> 8)
			si += 3
			di += 2
		}
	}

	left := x >> s
	top := (y - yBase) >> s
	r := Rect{Left: left, Top: top, Right: left + rx - 1, Bottom: top + ry - 1}
	if !out(d.rgb[:n*d.format.PixelSize()], r) {
		return ErrInterrupted
	}
	return nil
}

// DecodeBand decodes the next horizontal MCU band, invoking out once per
// MCU with rect tops relative to the band's first output row. It returns
// the number of output rows the band produced, 0 once the image is fully
// decoded. Entropy state carries over between calls, so consecutive calls
// walk the image top to bottom. The scale given to the first decode call
// is latched for the life of the decoder.
func (d *Decoder) DecodeBand(out BlockFunc, scale int) (int, error) {
	if out == nil {
		return 0, fmt.Errorf("%w: nil block callback", ErrParameter)
	}
	if err := d.latchScale(scale); err != nil {
		return 0, err
	}
	if d.bandY >= d.height {
		return 0, nil
	}
	return d.decodeBand(out, d.bandY)
}

// Decode decodes all remaining bands in one pass, reporting block rects in
// absolute scaled image coordinates.
func (d *Decoder) Decode(out BlockFunc, scale int) error {
	if out == nil {
		return fmt.Errorf("%w: nil block callback", ErrParameter)
	}
	if err := d.latchScale(scale); err != nil {
		return err
	}
	for d.bandY < d.height {
		if _, err := d.decodeBand(out, 0); err != nil {
			return err
		}
	}
	return nil
}

func (d *Decoder) latchScale(scale int) error {
	if scale < 0 || scale > 3 {
		return fmt.Errorf("%w: scale %d", ErrParameter, scale)
	}
	if d.scale < 0 {
		d.scale = scale
		return nil
	}
	if d.scale != scale {
		return fmt.Errorf("%w: scale %d after starting at %d", ErrParameter, scale, d.scale)
	}
	return nil
}

func (d *Decoder) decodeBand(out BlockFunc, yBase int) (int, error) {
	y := d.bandY
	mx, my := d.msx*8, d.msy*8
	for x := 0; x < d.width; x += mx {
		if d.nrst > 0 && d.mcnt == d.nrst {
			if err := d.restart(); err != nil {
				return 0, err
			}
			d.mcnt = 0
		}
		if err := d.mcuLoad(); err != nil {
			return 0, err
		}
		if err := d.mcuOutput(out, x, y, yBase); err != nil {
			return 0, err
		}
		d.mcnt++
	}
	d.bandY += my
	ry := my
	if y+my > d.height {
		ry = d.height - y
	}
	return ry >> uint(d.scale), nil
}

// restart consumes the next RSTn marker and resets the DC predictors.
func (d *Decoder) restart() error {
	want := byte(0xD0 + d.rsc&7)
	m, err := d.br.restartMarker()
	if err != nil {
		return err
	}
	if m != want {
		return fmt.Errorf("%w: restart marker 0xFF%02X, want 0xFF%02X", ErrFormat, m, want)
	}
	d.rsc++
	d.dcv[0], d.dcv[1], d.dcv[2] = 0, 0, 0
	return nil
}
