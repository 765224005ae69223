package tjpgd

// zig maps zigzag scan positions to raster block positions.
var zig = [64]int{
	0, 1, 8, 16, 9, 2, 3, 10,
	17, 24, 32, 25, 18, 11, 4, 5,
	12, 19, 26, 33, 40, 48, 41, 34,
	27, 20, 13, 6, 7, 14, 21, 28,
	35, 42, 49, 56, 57, 50, 43, 36,
	29, 22, 15, 23, 30, 37, 44, 51,
	58, 59, 52, 45, 38, 31, 39, 46,
	53, 60, 61, 54, 47, 55, 62, 63,
}

// ipsf holds the 2-D scale factors of the Arai fast IDCT, fixed point with
// a 8192 denominator. They are folded into the de-quantizers so the
// transform itself stays multiplier-light.
var ipsf [64]int32

func init() {
	f := [8]float64{1.00000, 1.38704, 1.30656, 1.17588, 1.00000, 0.78570, 0.54120, 0.27590}
	for v := 0; v < 8; v++ {
		for u := 0; u < 8; u++ {
			ipsf[v*8+u] = int32(f[v] * f[u] * 8192)
		}
	}
}

// blockIDCT runs the fixed point Arai butterfly over one 8x8 coefficient
// block. src holds raster-order de-quantized coefficients scaled by 32 (the
// folded 8192/256 factor); dst receives level-shifted samples, unclamped.
func blockIDCT(src *[64]int32, dst []int16) {
	const (
		m13 = 5792  // 1.41421 * 4096
		m2  = 4433  // 1.08239 * 4096
		m4  = 10703 // 2.61313 * 4096
		m5  = 7568  // 1.84776 * 4096
	)

	// Columns.
	for i := 0; i < 8; i++ {
		v0, v1, v2, v3 := src[i], src[i+16], src[i+32], src[i+48]
		t10 := v0 + v2
		t12 := v0 - v2
		t11 := (v1 - v3) * m13 >> 12
		v3 += v1
		t11 -= v3
		v0 = t10 + v3
		v3 = t10 - v3
		v1 = t11 + t12
		v2 = t12 - t11

		v4, v5, v6, v7 := src[i+56], src[i+8], src[i+40], src[i+24]
		t10 = v5 - v4
		t11 = v5 + v4
		t12 = v6 - v7
		v7 += v6
		v5 = (t11 - v7) * m13 >> 12
		v7 += t11
		t13 := (t10 + t12) * m5 >> 12
		v4 = t13 - (t10 * m2 >> 12)
		v6 = t13 - (t12*m4>>12) - v7
		v5 -= v6
		v4 -= v5

		src[i] = v0 + v7
		src[i+56] = v0 - v7
		src[i+8] = v1 + v6
		src[i+48] = v1 - v6
		src[i+16] = v2 + v5
		src[i+40] = v2 - v5
		src[i+24] = v3 + v4
		src[i+32] = v3 - v4
	}

	// Rows, with the DC level shift and the final 8 bit descale.
	for i := 0; i < 64; i += 8 {
		v0 := src[i] + 128<<8
		v1, v2, v3 := src[i+2], src[i+4], src[i+6]
		t10 := v0 + v2
		t12 := v0 - v2
		t11 := (v1 - v3) * m13 >> 12
		v3 += v1
		t11 -= v3
		v0 = t10 + v3
		v3 = t10 - v3
		v1 = t11 + t12
		v2 = t12 - t11

		v4, v5, v6, v7 := src[i+7], src[i+1], src[i+5], src[i+3]
		t10 = v5 - v4
		t11 = v5 + v4
		t12 = v6 - v7
		v7 += v6
		v5 = (t11 - v7) * m13 >> 12
		v7 += t11
		t13 := (t10 + t12) * m5 >> 12
		v4 = t13 - (t10 * m2 >> 12)
		v6 = t13 - (t12*m4>>12) - v7
		v5 -= v6
		v4 -= v5

		dst[i] = int16((v0 + v7) >> 8)
		dst[i+7] = int16((v0 - v7) >> 8)
		dst[i+1] = int16((v1 + v6) >> 8)
		dst[i+6] = int16((v1 - v6) >> 8)
		dst[i+2] = int16((v2 + v5) >> 8)
		dst[i+5] = int16((v2 - v5) >> 8)
		dst[i+3] = int16((v3 + v4) >> 8)
		dst[i+4] = int16((v3 - v4) >> 8)
	}
}

// clip8 clamps a sample to the unsigned byte range.
func clip8(v int32) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}
