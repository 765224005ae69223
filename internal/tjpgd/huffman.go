package tjpgd

import "fmt"

// huffTable holds a canonical Huffman code in the mincode/maxcode/valptr
// form of the JPEG standard, indexed by code length 1..16.
type huffTable struct {
	mincode [17]int
	maxcode [17]int
	valptr  [17]int
	values  []byte
}

// buildHuffTable derives the canonical code from the DHT counts-per-length
// and symbol values.
func buildHuffTable(counts, values []byte) (*huffTable, error) {
	t := &huffTable{values: append([]byte(nil), values...)}
	code := 0
	k := 0
	for l := 1; l <= 16; l++ {
		n := int(counts[l-1])
		if n == 0 {
			t.maxcode[l] = -1
		} else {
			t.valptr[l] = k
			t.mincode[l] = code
			k += n
			code += n
			t.maxcode[l] = code - 1
		}
		if code > 1<<uint(l) {
			return nil, fmt.Errorf("%w: overfull Huffman code at length %d", ErrFormat, l)
		}
		code <<= 1
	}
	if k != len(values) {
		return nil, fmt.Errorf("%w: Huffman counts disagree with %d symbols", ErrFormat, len(values))
	}
	return t, nil
}

// decodeHuff reads bits until they form a code of t and returns its symbol.
func (d *Decoder) decodeHuff(t *huffTable) (int, error) {
	code := 0
	for l := 1; l <= 16; l++ {
		bit, err := d.br.readBits(1)
		if err != nil {
			return 0, err
		}
		code = code<<1 | bit
		if t.maxcode[l] >= 0 && code <= t.maxcode[l] {
			return int(t.values[t.valptr[l]+code-t.mincode[l]]), nil
		}
	}
	return 0, fmt.Errorf("%w: invalid Huffman code", ErrFormat)
}

// receiveExtend reads an n bit coefficient magnitude and sign-extends it
// per the JPEG EXTEND procedure.
func (d *Decoder) receiveExtend(n int) (int32, error) {
	v, err := d.br.readBits(n)
	if err != nil {
		return 0, err
	}
	if v < 1<<uint(n-1) {
		v += 1 - 1<<uint(n)
	}
	return int32(v), nil
}
