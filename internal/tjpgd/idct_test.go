package tjpgd

import "testing"

func TestZigzagTable(t *testing.T) {
	var seen [64]bool
	for i, v := range zig {
		if v < 0 || v > 63 {
			t.Fatalf("zig[%d] = %d out of range", i, v)
		}
		if seen[v] {
			t.Fatalf("zig maps position %d twice", v)
		}
		seen[v] = true
	}
	if zig[0] != 0 || zig[1] != 1 || zig[2] != 8 || zig[63] != 63 {
		t.Errorf("zig corners: got %d %d %d %d, want 0 1 8 63",
			zig[0], zig[1], zig[2], zig[63])
	}
}

func TestScaleFactors(t *testing.T) {
	if ipsf[0] != 8192 {
		t.Errorf("ipsf[0]: got %d, want 8192", ipsf[0])
	}
	if ipsf[1] != 11362 {
		t.Errorf("ipsf[1]: got %d, want 11362", ipsf[1])
	}
	if ipsf[63] != 623 {
		t.Errorf("ipsf[63]: got %d, want 623", ipsf[63])
	}
	for v := 0; v < 8; v++ {
		for u := 0; u < v; u++ {
			if ipsf[v*8+u] != ipsf[u*8+v] {
				t.Errorf("ipsf not symmetric at (%d,%d)", u, v)
			}
		}
	}
}

func TestBlockIDCT_DCOnly(t *testing.T) {
	// A de-quantized DC of -14336 is level 72: -56 * 8 * 8192 >> 8, then
	// +128 shift in the transform.
	var src [64]int32
	src[0] = -14336
	dst := make([]int16, 64)
	blockIDCT(&src, dst)
	for i, v := range dst {
		if v != 72 {
			t.Fatalf("sample %d: got %d, want 72", i, v)
		}
	}
}

func TestBlockIDCT_Zero(t *testing.T) {
	var src [64]int32
	dst := make([]int16, 64)
	blockIDCT(&src, dst)
	for i, v := range dst {
		if v != 128 {
			t.Fatalf("sample %d: got %d, want 128", i, v)
		}
	}
}

func TestClip8(t *testing.T) {
	cases := []struct {
		in   int32
		want byte
	}{
		{-300, 0},
		{-1, 0},
		{0, 0},
		{128, 128},
		{255, 255},
		{256, 255},
		{1000, 255},
	}
	for _, c := range cases {
		if got := clip8(c.in); got != c.want {
			t.Errorf("clip8(%d): got %d, want %d", c.in, got, c.want)
		}
	}
}
