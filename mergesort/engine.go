// Package mergesort implements a stable, adaptive, natural mergesort
// engine: natural-run detection with in-place reversal of descending runs,
// insertion-sort extension to a derived minimum run length, a bounded run
// stack that maintains its merge invariant after every push, and a
// two-run merge with trimming and galloping.
//
// Two call shapes are exposed, covering the original's three specialised
// copy kernels:
//
//   - Sort[T] / Sorter[T] — the "pointer"/"long" kernels. Go's generics make
//     the pointer-vs-word-aligned distinction moot (a []T slice already
//     moves whole T values, whatever their size), so both collapse into one
//     generic implementation.
//   - BytesSorter.Sort — the "bytes" general fallback, operating on
//     fixed-stride []byte records without any type information, for parity
//     with untyped/foreign-layout arrays. This is the variant that exercises
//     the page-allocated scratch-memory policy (see bytes.go).
//
// Both variants are driven by the same run/stack engine in this file
// (engine, ops): all three kernels share the same stack, invariants, and
// galloping logic.
package mergesort

const (
	// minMergeRunFloor is MIN_SLICE_LEN: the smallest min_run the engine
	// will ever choose, for n >= 64.
	minMergeRunFloor = 32
	// minGallop is MIN_BLK_LEN: the number of consecutive same-side wins
	// that switches a merge from per-element comparison to galloping.
	minGallop = 7
	// maxStackDepth is the D=85 bound, sufficient for any 64-bit run length
	// given minRun >= 32.
	maxStackDepth = 85
)

// ops abstracts "how bytes move" behind the shared stack/invariant/run
// engine. Compare/Reverse/InsertionSort/Merge all operate on indices into
// whatever backing storage the concrete kernel owns.
type ops interface {
	// Compare returns sign(cmp(element i, element j)).
	Compare(i, j int) int
	// Reverse reverses the elements occupying [lo, hi).
	Reverse(lo, hi int)
	// InsertionSort extends the sorted prefix [lo, start) to sorted [lo,
	// hi) by inserting elements [start, hi) one at a time. Elements of
	// [lo, start) are not re-inserted; they only shift right to make room.
	InsertionSort(lo, start, hi int)
	// Merge stably merges the two adjacent sorted runs [base1, base1+len1)
	// and [base1+len1, base1+len1+len2) into one sorted run over the same
	// span.
	Merge(base1, len1, len2 int) error
}

// run is a (base, length) pair on the engine's stack.
type run struct {
	base, len int
}

// engine drives the natural-run detection and run-stack discipline,
// delegating all byte movement to o.
type engine struct {
	o      ops
	n      int
	minRun int
	stack  []run
}

func newEngine(o ops, n int) *engine {
	return &engine{o: o, n: n, minRun: deriveMinRun(n), stack: make([]run, 0, maxStackDepth)}
}

// deriveMinRun shifts n right until n < 64, remembering whether any 1-bit
// was shifted off, and returns n plus that flag. For n < 64 it returns n
// unchanged, sending the whole array to insertion sort.
func deriveMinRun(n int) int {
	r := 0
	for n >= 64 {
		r |= n & 1
		n >>= 1
	}
	return n + r
}

// countPresorted scans forward from i, returning the length of the natural
// run starting there. A strictly descending run is reversed in place
// before its length is returned.
func (e *engine) countPresorted(i int) int {
	n := e.n
	if i+2 > n {
		return n - i
	}
	j := i + 2
	if e.o.Compare(i, i+1) <= 0 {
		for j < n && e.o.Compare(j-1, j) <= 0 {
			j++
		}
	} else {
		for j < n && e.o.Compare(j-1, j) > 0 {
			j++
		}
		e.o.Reverse(i, j)
	}
	return j - i
}

// pushRun pushes a freshly detected/extended run and repairs the §3.2
// invariant.
func (e *engine) pushRun(base, length int) error {
	e.stack = append(e.stack, run{base, length})
	if len(e.stack) > maxStackDepth {
		// deriveMinRun guarantees this never happens for any n representable
		// in a machine word; a violation means the min_run derivation (or
		// its caller) is broken.
		panic("mergesort: run stack exceeded its provisioned depth")
	}
	return e.mergeCollapse()
}

// mergeCollapse repairs the run-stack invariant after a push.
func (e *engine) mergeCollapse() error {
	for len(e.stack) >= 2 {
		n := len(e.stack)
		if n >= 3 && e.stack[n-3].len <= e.stack[n-2].len+e.stack[n-1].len {
			if e.stack[n-3].len < e.stack[n-1].len {
				if err := e.mergeAt(n - 3); err != nil {
					return err
				}
			} else {
				if err := e.mergeAt(n - 2); err != nil {
					return err
				}
			}
		} else if e.stack[n-2].len <= e.stack[n-1].len {
			if err := e.mergeAt(n - 2); err != nil {
				return err
			}
		} else {
			break
		}
	}
	return nil
}

// mergeForceCollapse drains the entire stack at end of input.
func (e *engine) mergeForceCollapse() error {
	for len(e.stack) > 1 {
		n := len(e.stack)
		i := n - 2
		if n >= 3 && e.stack[n-3].len < e.stack[n-1].len {
			i = n - 3
		}
		if err := e.mergeAt(i); err != nil {
			return err
		}
	}
	return nil
}

// mergeAt merges the adjacent runs at stack indices i and i+1, replacing
// both with a single merged run.
func (e *engine) mergeAt(i int) error {
	r1, r2 := e.stack[i], e.stack[i+1]
	if err := e.o.Merge(r1.base, r1.len, r2.len); err != nil {
		return err
	}
	e.stack[i] = run{r1.base, r1.len + r2.len}
	copy(e.stack[i+1:], e.stack[i+2:])
	e.stack = e.stack[:len(e.stack)-1]
	return nil
}

// run executes the full pass over [0, n): detect-or-extend a run, push it,
// repeat, then force-collapse the stack.
func (e *engine) run() error {
	if e.n < 2 {
		return nil
	}
	minRun := e.minRun
	for i := 0; i < e.n; {
		runLen := e.countPresorted(i)
		if runLen < minRun {
			end := i + minRun
			if end > e.n {
				end = e.n
			}
			e.o.InsertionSort(i, i+runLen, end)
			runLen = end - i
		}
		if err := e.pushRun(i, runLen); err != nil {
			return err
		}
		i += runLen
	}
	return e.mergeForceCollapse()
}

// searchGreaterFunc returns the smallest idx in [lo, hi] for which at(idx)
// (a comparison of some element against a fixed target) is > 0 — an
// upper-bound binary search. Used to trim the left run (search_greatequal
// in the original) and, during galloping, to bulk-count consecutive wins.
func searchGreaterFunc(lo, hi int, at func(int) int) int {
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if at(mid) > 0 {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}

// searchGreatEqualFunc returns the smallest idx in [lo, hi] for which
// at(idx) >= 0 — a lower-bound binary search (rsearch_greater in the
// original, used to trim/gallop the right run so that ties stay with the
// left run for stability).
func searchGreatEqualFunc(lo, hi int, at func(int) int) int {
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if at(mid) >= 0 {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}
