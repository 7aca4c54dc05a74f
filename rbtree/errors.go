package rbtree

import "errors"

var (
	// ErrDuplicateKey is returned by Insert when a node comparing equal to
	// an existing key is already present (EEXIST in the original).
	ErrDuplicateKey = errors.New("rbtree: key already present")
	// ErrNotFound is returned by Find/Remove/UpdateKey when no node
	// compares equal to the search key (ESRCH in the original).
	ErrNotFound = errors.New("rbtree: key not found")
	// ErrMisalignedNode is returned by Insert if a node's address is not a
	// multiple of two. On Go's pointer model this never happens (see
	// intbits.IsAligned); the check and error exist for parity with the
	// original's stated failure mode when colour-in-low-bit packing is
	// in play.
	ErrMisalignedNode = errors.New("rbtree: node address is not 2-byte aligned")
)
