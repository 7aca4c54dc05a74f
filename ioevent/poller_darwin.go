//go:build darwin

package ioevent

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// maxFDLimit bounds the poller's dynamic fds slice growth, matching
// eventloop's FastPoller (poller_darwin.go).
const maxFDLimit = 100_000_000

type fdInfo struct {
	callback Callback
	events   Events
	active   bool
}

// KqueuePoller is the Darwin Poller, narrowing eventloop's kqueue-backed
// FastPoller to RegisterFD/UnregisterFD/ModifyFD/Poll.
type KqueuePoller struct { // betteralign:ignore
	_        [64]byte
	kq       int32
	_        [60]byte
	eventBuf [256]unix.Kevent_t
	fds      []fdInfo
	fdMu     sync.RWMutex
	closed   atomic.Bool
}

// NewPoller creates and initializes a Darwin kqueue-backed Poller.
func NewPoller() (*KqueuePoller, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	unix.CloseOnExec(kq)
	return &KqueuePoller{kq: int32(kq), fds: make([]fdInfo, 1024)}, nil
}

func (p *KqueuePoller) Close() error {
	p.closed.Store(true)
	if p.kq > 0 {
		return unix.Close(int(p.kq))
	}
	return nil
}

func (p *KqueuePoller) RegisterFD(fd int, events Events, cb Callback) error {
	if p.closed.Load() {
		return ErrPollerClosed
	}
	if fd < 0 || fd >= maxFDLimit {
		return ErrFDOutOfRange
	}

	p.fdMu.Lock()
	p.growLocked(fd)
	if p.fds[fd].active {
		p.fdMu.Unlock()
		return ErrFDAlreadyRegistered
	}
	p.fds[fd] = fdInfo{callback: cb, events: events, active: true}
	p.fdMu.Unlock()

	kevents := eventsToKevents(fd, events, unix.EV_ADD|unix.EV_ENABLE)
	if len(kevents) > 0 {
		if _, err := unix.Kevent(int(p.kq), kevents, nil, nil); err != nil {
			p.fdMu.Lock()
			p.fds[fd] = fdInfo{}
			p.fdMu.Unlock()
			return err
		}
	}
	return nil
}

func (p *KqueuePoller) growLocked(fd int) {
	if fd < len(p.fds) {
		return
	}
	newSize := fd*2 + 1
	if newSize > maxFDLimit {
		newSize = maxFDLimit + 1
	}
	grown := make([]fdInfo, newSize)
	copy(grown, p.fds)
	p.fds = grown
}

func (p *KqueuePoller) UnregisterFD(fd int) error {
	if fd < 0 {
		return ErrFDOutOfRange
	}
	p.fdMu.Lock()
	if fd >= len(p.fds) || !p.fds[fd].active {
		p.fdMu.Unlock()
		return ErrFDNotRegistered
	}
	events := p.fds[fd].events
	p.fds[fd] = fdInfo{}
	p.fdMu.Unlock()

	kevents := eventsToKevents(fd, events, unix.EV_DELETE)
	if len(kevents) > 0 {
		_, _ = unix.Kevent(int(p.kq), kevents, nil, nil)
	}
	return nil
}

func (p *KqueuePoller) ModifyFD(fd int, events Events) error {
	if fd < 0 {
		return ErrFDOutOfRange
	}
	p.fdMu.Lock()
	if fd >= len(p.fds) || !p.fds[fd].active {
		p.fdMu.Unlock()
		return ErrFDNotRegistered
	}
	old := p.fds[fd].events
	p.fds[fd].events = events
	p.fdMu.Unlock()

	if old&^events != 0 {
		_, _ = unix.Kevent(int(p.kq), eventsToKevents(fd, old&^events, unix.EV_DELETE), nil, nil)
	}
	if events&^old != 0 {
		if _, err := unix.Kevent(int(p.kq), eventsToKevents(fd, events&^old, unix.EV_ADD|unix.EV_ENABLE), nil, nil); err != nil {
			return err
		}
	}
	return nil
}

func (p *KqueuePoller) Poll(timeoutMs int) (int, error) {
	if p.closed.Load() {
		return 0, ErrPollerClosed
	}
	var ts *unix.Timespec
	if timeoutMs >= 0 {
		ts = &unix.Timespec{Sec: int64(timeoutMs / 1000), Nsec: int64(timeoutMs%1000) * 1_000_000}
	}

	n, err := unix.Kevent(int(p.kq), nil, p.eventBuf[:], ts)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}
	p.dispatch(n)
	return n, nil
}

func (p *KqueuePoller) dispatch(n int) {
	for i := 0; i < n; i++ {
		fd := int(p.eventBuf[i].Ident)
		if fd < 0 {
			continue
		}
		p.fdMu.RLock()
		var info fdInfo
		if fd < len(p.fds) {
			info = p.fds[fd]
		}
		p.fdMu.RUnlock()
		if info.active && info.callback != nil {
			info.callback(keventToEvents(&p.eventBuf[i]))
		}
	}
}

func eventsToKevents(fd int, events Events, flags uint16) []unix.Kevent_t {
	var kevents []unix.Kevent_t
	if events&Read != 0 {
		kevents = append(kevents, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: flags})
	}
	if events&Write != 0 {
		kevents = append(kevents, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: flags})
	}
	return kevents
}

func keventToEvents(kev *unix.Kevent_t) Events {
	var events Events
	switch kev.Filter {
	case unix.EVFILT_READ:
		events |= Read
	case unix.EVFILT_WRITE:
		events |= Write
	}
	if kev.Flags&unix.EV_ERROR != 0 {
		events |= Err
	}
	if kev.Flags&unix.EV_EOF != 0 {
		events |= Hangup
	}
	return events
}
