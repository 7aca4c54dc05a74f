//go:build linux || darwin

package platform

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// SharedRegion is a file-backed MAP_SHARED mapping whose descriptor can be
// handed to a spawned child process. AllocPages's anonymous mapping cannot
// serve this role: re-exec (SpawnProcess's substitute for fork, see its doc
// comment) discards the parent's whole address space, so surviving the
// exec requires a nameable backing file whose descriptor is passed down via
// os/exec's ExtraFiles and re-mapped by the child.
type SharedRegion struct {
	File *os.File
	Mem  []byte
}

// AllocSharedRegion creates an unlinked temp file of the given size and
// maps it MAP_SHARED. The region remains valid as long as any process holds
// either the descriptor or the mapping.
func AllocSharedRegion(size int) (*SharedRegion, error) {
	f, err := os.CreateTemp("", "perftest-shared-*")
	if err != nil {
		return nil, fmt.Errorf("platform: AllocSharedRegion: create temp file: %w", err)
	}
	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		return nil, fmt.Errorf("platform: AllocSharedRegion: truncate: %w", err)
	}
	_ = os.Remove(f.Name())

	mem, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("platform: AllocSharedRegion: mmap: %w", err)
	}
	return &SharedRegion{File: f, Mem: mem}, nil
}

// OpenSharedRegion maps an already-allocated shared region from an
// inherited file descriptor, as a re-exec'd child does at startup.
func OpenSharedRegion(f *os.File, size int) (*SharedRegion, error) {
	mem, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("platform: OpenSharedRegion: mmap: %w", err)
	}
	return &SharedRegion{File: f, Mem: mem}, nil
}

// Close unmaps the region and closes its backing descriptor.
func (r *SharedRegion) Close() error {
	err := unix.Munmap(r.Mem)
	cerr := r.File.Close()
	if err != nil {
		return err
	}
	return cerr
}
