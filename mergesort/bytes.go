package mergesort

import "github.com/je-so/js-projekt-sub005/platform"

// CompareBytesFunc compares two fixed-stride records, already sliced to
// their element width. Semantics match CompareFunc.
type CompareBytesFunc func(a, b []byte) int

// BytesSorter is the "bytes" general fallback kernel: it moves fixed-stride
// records with no type information at all, matching the original's
// untyped/foreign-layout array support. Its inline scratch buffer is sized
// in records, like Sorter[T]'s, but overflow is served from
// platform.AllocPages rather than the Go heap — scratch overflow for the
// no-type-information kernel uses the platform page allocator, not a
// further heap grant.
type BytesSorter struct {
	stride int
	inline [inlineScratchElems * maxInlineStride]byte
	heap   []byte // last page-allocated scratch region, retained for reuse
	tmpRec []byte // one-record swap scratch for Reverse
}

// maxInlineStride is the per-record width the inline array reserves space
// for (inlineScratchElems records of this width). Scratch requests of any
// stride use the inline array while their total byte size fits in it, and
// go through the page allocator otherwise.
const maxInlineStride = 64

// NewBytesSorter constructs a BytesSorter for records of the given stride
// in bytes. It returns ErrZeroElementSize for stride <= 0.
func NewBytesSorter(stride int) (*BytesSorter, error) {
	if stride <= 0 {
		return nil, ErrZeroElementSize
	}
	return &BytesSorter{stride: stride, tmpRec: make([]byte, stride)}, nil
}

// Release returns any page-allocated scratch region to the platform. Callers
// that construct a BytesSorter for a single Sort call should defer Release;
// a BytesSorter reused across many Sort calls may keep its scratch warm and
// call Release only when finished with the sorter entirely.
func (b *BytesSorter) Release() error {
	if b.heap == nil {
		return nil
	}
	err := platform.FreePages(b.heap)
	b.heap = nil
	return err
}

// Sort sorts data, a flat slice of fixed-stride records, in place and
// stably under cmp. len(data) must be a multiple of the sorter's stride.
func (b *BytesSorter) Sort(data []byte, cmp CompareBytesFunc) error {
	if cmp == nil {
		return ErrNilComparator
	}
	if len(data)%b.stride != 0 {
		return ErrSizeOverflow
	}
	n := len(data) / b.stride
	o := &bytesOps{data: data, cmp: cmp, b: b}
	e := newEngine(o, n)
	return e.run()
}

// bytesOps implements ops over a flat []byte slice addressed in
// stride-sized records.
type bytesOps struct {
	data []byte
	cmp  CompareBytesFunc
	b    *BytesSorter
}

func (o *bytesOps) rec(i int) []byte {
	s := o.b.stride
	return o.data[i*s : i*s+s]
}

func (o *bytesOps) Compare(i, j int) int { return o.cmp(o.rec(i), o.rec(j)) }

func (o *bytesOps) Reverse(lo, hi int) {
	tmp := o.b.tmpRec
	for hi--; lo < hi; lo, hi = lo+1, hi-1 {
		a, c := o.rec(lo), o.rec(hi)
		copy(tmp, a)
		copy(a, c)
		copy(c, tmp)
	}
}

func (o *bytesOps) InsertionSort(lo, start, hi int) {
	tmp := o.b.tmpRec
	for i := start; i < hi; i++ {
		copy(tmp, o.rec(i))
		j := i - 1
		for j >= lo && o.cmp(o.rec(j), tmp) > 0 {
			copy(o.rec(j+1), o.rec(j))
			j--
		}
		copy(o.rec(j+1), tmp)
	}
}

// scratchBuf returns nRecords*stride bytes: the inline array when it fits,
// otherwise a region from the platform page allocator, reusing a
// previously allocated one when it is already large enough.
func (o *bytesOps) scratchBuf(nRecords int) ([]byte, error) {
	need := nRecords * o.b.stride
	if need <= len(o.b.inline) {
		return o.b.inline[:need], nil
	}
	if len(o.b.heap) >= need {
		return o.b.heap[:need], nil
	}
	if o.b.heap != nil {
		_ = platform.FreePages(o.b.heap)
		o.b.heap = nil
	}
	size := need
	if ps := platform.PageSize(); size%ps != 0 {
		size += ps - size%ps
	}
	mem, err := platform.AllocPages(size, false)
	if err != nil {
		return nil, ErrScratchAlloc
	}
	o.b.heap = mem
	return mem[:need], nil
}

// Merge mirrors genericOps.Merge's trim-then-direct logic over records.
func (o *bytesOps) Merge(base1, len1, len2 int) error {
	cmp := o.cmp
	base2 := base1 + len1

	rFirst := o.rec(base2)
	newBase1 := searchGreaterFunc(base1, base2, func(i int) int { return cmp(o.rec(i), rFirst) })
	newLen1 := len1 - (newBase1 - base1)
	base1 = newBase1
	if newLen1 == 0 {
		return nil
	}

	lLast := o.rec(base1 + newLen1 - 1)
	rEnd := base2 + len2
	newEnd2 := searchGreatEqualFunc(base2, rEnd, func(i int) int { return cmp(o.rec(i), lLast) })
	newLen2 := newEnd2 - base2
	if newLen2 == 0 {
		return nil
	}

	if newLen1 <= newLen2 {
		return o.mergeLow(base1, newLen1, base2, newLen2)
	}
	return o.mergeHigh(base1, newLen1, base2, newLen2)
}

func (o *bytesOps) mergeLow(base1, len1, base2, len2 int) error {
	stride := o.b.stride
	scratch, err := o.scratchBuf(len1)
	if err != nil {
		return err
	}
	copy(scratch, o.data[base1*stride:(base1+len1)*stride])
	scratchRec := func(i int) []byte { return scratch[i*stride : i*stride+stride] }

	a, aEnd := 0, len1
	b, bEnd := base2, base2+len2
	dst := base1
	winA, winB := 0, 0

	for a < aEnd && b < bEnd {
		switch {
		case winA >= minGallop:
			n := searchGreaterFunc(a, aEnd, func(i int) int { return o.cmp(scratchRec(i), o.rec(b)) }) - a
			if n > 0 {
				copy(o.data[dst*stride:(dst+n)*stride], scratch[a*stride:(a+n)*stride])
				dst += n
				a += n
			}
			winA, winB = 0, 0
		case winB >= minGallop:
			m := searchGreatEqualFunc(b, bEnd, func(i int) int { return o.cmp(o.rec(i), scratchRec(a)) }) - b
			if m > 0 {
				copy(o.data[dst*stride:(dst+m)*stride], o.data[b*stride:(b+m)*stride])
				dst += m
				b += m
			}
			winA, winB = 0, 0
		case o.cmp(scratchRec(a), o.rec(b)) <= 0:
			copy(o.rec(dst), scratchRec(a))
			a++
			dst++
			winA++
			winB = 0
		default:
			copy(o.rec(dst), o.rec(b))
			b++
			dst++
			winB++
			winA = 0
		}
	}
	if a < aEnd {
		copy(o.data[dst*stride:(dst+(aEnd-a))*stride], scratch[a*stride:aEnd*stride])
	}
	return nil
}

func (o *bytesOps) mergeHigh(base1, len1, base2, len2 int) error {
	stride := o.b.stride
	scratch, err := o.scratchBuf(len2)
	if err != nil {
		return err
	}
	copy(scratch, o.data[base2*stride:(base2+len2)*stride])
	scratchRec := func(i int) []byte { return scratch[i*stride : i*stride+stride] }

	a, aLo := base1+len1-1, base1
	b, bLo := len2-1, 0
	dst := base2 + len2 - 1
	winA, winB := 0, 0

	for a >= aLo && b >= bLo {
		switch {
		case winB >= minGallop:
			n := b + 1 - searchGreatEqualFunc(bLo, b+1, func(i int) int { return o.cmp(scratchRec(i), o.rec(a)) })
			if n > 0 {
				copy(o.data[(dst-n+1)*stride:(dst+1)*stride], scratch[(b-n+1)*stride:(b+1)*stride])
				dst -= n
				b -= n
			}
			winA, winB = 0, 0
		case winA >= minGallop:
			n := a + 1 - searchGreaterFunc(aLo, a+1, func(i int) int { return o.cmp(o.rec(i), scratchRec(b)) })
			if n > 0 {
				copy(o.data[(dst-n+1)*stride:(dst+1)*stride], o.data[(a-n+1)*stride:(a+1)*stride])
				dst -= n
				a -= n
			}
			winA, winB = 0, 0
		case o.cmp(scratchRec(b), o.rec(a)) < 0:
			copy(o.rec(dst), o.rec(a))
			a--
			dst--
			winA++
			winB = 0
		default:
			copy(o.rec(dst), scratchRec(b))
			b--
			dst--
			winB++
			winA = 0
		}
	}
	if b >= bLo {
		copy(o.data[(dst-b)*stride:(dst+1)*stride], scratch[bLo*stride:(b+1)*stride])
	}
	return nil
}
