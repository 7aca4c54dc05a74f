//go:build linux || darwin

package platform

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// AllocPages reserves a fresh, zero-filled, page-aligned region of at least
// size bytes. When shared is true the mapping is MAP_SHARED, suitable for
// the perftest harness's cross-process instance array; otherwise it is
// MAP_PRIVATE, suitable for mergesort's scratch buffer.
//
// A failed mmap surfaces as a plain error, never a panic.
func AllocPages(size int, shared bool) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("platform: AllocPages: size must be positive, got %d", size)
	}
	flags := unix.MAP_ANON
	if shared {
		flags |= unix.MAP_SHARED
	} else {
		flags |= unix.MAP_PRIVATE
	}
	b, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, flags)
	if err != nil {
		return nil, fmt.Errorf("platform: AllocPages: mmap %d bytes: %w", size, err)
	}
	return b, nil
}

// FreePages releases a region previously returned by AllocPages.
func FreePages(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	if err := unix.Munmap(b); err != nil {
		return fmt.Errorf("platform: FreePages: munmap: %w", err)
	}
	return nil
}

// PageSize returns the platform's native page size.
func PageSize() int {
	return unix.Getpagesize()
}
