package intbits

import "testing"

func TestLog2(t *testing.T) {
	cases := []struct {
		n    uint64
		want uint
	}{
		{0, 0},
		{1, 0},
		{2, 1},
		{3, 1},
		{4, 2},
		{1023, 9},
		{1024, 10},
	}
	for _, c := range cases {
		if got := Log2(c.n); got != c.want {
			t.Errorf("Log2(%d) = %d, want %d", c.n, got, c.want)
		}
	}
}

func TestIsPowerOfTwo(t *testing.T) {
	for _, n := range []uint32{1, 2, 4, 8, 1024} {
		if !IsPowerOfTwo(n) {
			t.Errorf("IsPowerOfTwo(%d) = false, want true", n)
		}
	}
	for _, n := range []uint32{0, 3, 5, 6, 1023} {
		if IsPowerOfTwo(n) {
			t.Errorf("IsPowerOfTwo(%d) = true, want false", n)
		}
	}
}

func TestReverse(t *testing.T) {
	if got := Reverse(0x00000001); got != 0x80000000 {
		t.Errorf("Reverse(1) = %#x, want 0x80000000", got)
	}
	if got := Reverse(0); got != 0 {
		t.Errorf("Reverse(0) = %#x, want 0", got)
	}
}

func TestIsAligned(t *testing.T) {
	if !IsAligned(8, 2) {
		t.Error("IsAligned(8, 2) = false, want true")
	}
	if IsAligned(7, 2) {
		t.Error("IsAligned(7, 2) = true, want false")
	}
	if !IsAligned(0, 8) {
		t.Error("IsAligned(0, 8) = false, want true")
	}
}
