package mergesort

import "errors"

// Errors returned by Sort/Sorter.Sort/NewBytesSorter/BytesSorter.Sort, split into "invalid argument" and
// "resource exhausted" buckets. Assertion-grade invariant violations (a
// comparator that isn't a total preorder can't be detected cheaply, so it
// is documented, not checked) are not modelled as errors.
var (
	// ErrZeroElementSize is returned when a stride/element size of zero is
	// supplied to NewBytesSorter.
	ErrZeroElementSize = errors.New("mergesort: element size must be non-zero")
	// ErrNilComparator is returned when cmp is nil.
	ErrNilComparator = errors.New("mergesort: comparator must not be nil")
	// ErrSizeOverflow is returned by BytesSorter.Sort when the length of
	// its byte slice is not a whole multiple of the sorter's stride.
	ErrSizeOverflow = errors.New("mergesort: element_size * n overflows")
	// ErrScratchAlloc is returned when the engine needs more scratch memory
	// than the inline buffer provides and the platform page allocator
	// fails.
	ErrScratchAlloc = errors.New("mergesort: scratch allocation failed")
)
