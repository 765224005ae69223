package tjpgd

import "fmt"

// bitReader pulls entropy-coded data from the feed in fixed-size chunks and
// serves it MSB first. Stuffed 0xFF 0x00 pairs collapse to a plain 0xFF
// data byte; any other byte after 0xFF is a marker, which is legal only
// where the decoder explicitly expects a restart.
type bitReader struct {
	feed Feed
	buf  []byte
	n    int // valid bytes in buf
	pos  int // next unread byte
	acc  uint32
	cnt  int // bits held in acc
}

func (br *bitReader) rawByte() (byte, error) {
	if br.pos >= br.n {
		got := br.feed.ReadBytes(br.buf)
		if got <= 0 {
			return 0, fmt.Errorf("%w: entropy data exhausted", ErrInput)
		}
		br.n = got
		br.pos = 0
	}
	b := br.buf[br.pos]
	br.pos++
	return b, nil
}

// dataByte returns the next entropy data byte with marker stuffing removed.
func (br *bitReader) dataByte() (byte, error) {
	b, err := br.rawByte()
	if err != nil {
		return 0, err
	}
	if b != 0xFF {
		return b, nil
	}
	next, err := br.rawByte()
	if err != nil {
		return 0, err
	}
	if next != 0x00 {
		return 0, fmt.Errorf("%w: marker 0xFF%02X inside entropy data", ErrFormat, next)
	}
	return 0xFF, nil
}

// readBits returns the next n bits, MSB first. n must be 1..16.
func (br *bitReader) readBits(n int) (int, error) {
	for br.cnt < n {
		b, err := br.dataByte()
		if err != nil {
			return 0, err
		}
		br.acc = br.acc<<8 | uint32(b)
		br.cnt += 8
	}
	br.cnt -= n
	return int(br.acc >> uint(br.cnt) & (1<<uint(n) - 1)), nil
}

// alignByte discards the unconsumed remainder of the current byte.
func (br *bitReader) alignByte() {
	br.cnt -= br.cnt & 7
}

// restartMarker consumes an expected RSTn marker at a byte-aligned
// position and returns its low marker byte. A final data byte padded out
// to 0xFF carries a stuffed zero, and fill bytes may precede the marker;
// both are stepped over.
func (br *bitReader) restartMarker() (byte, error) {
	br.alignByte()
	br.acc = 0
	br.cnt = 0
	for {
		b, err := br.rawByte()
		if err != nil {
			return 0, err
		}
		if b != 0xFF {
			return 0, fmt.Errorf("%w: expected restart marker, found 0x%02X", ErrFormat, b)
		}
		m, err := br.rawByte()
		if err != nil {
			return 0, err
		}
		for m == 0xFF {
			if m, err = br.rawByte(); err != nil {
				return 0, err
			}
		}
		if m == 0x00 {
			continue
		}
		return m, nil
	}
}
