//go:build linux

package ircreactor

import (
	"os"
	"sync"

	"go.uber.org/atomic"
	"golang.org/x/sys/unix"
)

// eventFd is shared by the two halves of the wake primitive. The reactor
// holds the wakeSource and is the only one allowed to register, drain and
// close it; handles only get a wakeTrigger.
type eventFd struct {
	fd      int
	pending *atomic.Bool
	lock    *sync.RWMutex
	closed  bool
}

type wakeSource struct {
	efd *eventFd
}

type wakeTrigger struct {
	efd *eventFd
}

// any non-zero counter value makes the eventfd readable, whatever the byte order
var wakeValue = [8]byte{1}

func newWake() (*wakeSource, *wakeTrigger, error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return nil, nil, os.NewSyscallError("eventfd", err)
	}
	efd := &eventFd{
		fd:      fd,
		pending: atomic.NewBool(false),
		lock:    &sync.RWMutex{},
	}
	return &wakeSource{efd: efd}, &wakeTrigger{efd: efd}, nil
}

// trigger makes the wake source readable. Triggers issued before the reactor
// drains collapse into a single wake.
func (t *wakeTrigger) trigger() error {
	t.efd.lock.RLock()
	defer t.efd.lock.RUnlock()
	if t.efd.closed {
		return ErrClientClosed
	}
	if !t.efd.pending.CAS(false, true) {
		return nil
	}
	for {
		_, err := unix.Write(t.efd.fd, wakeValue[:])
		switch err {
		case nil, unix.EAGAIN:
			return nil
		case unix.EINTR:
			continue
		default:
			t.efd.pending.Store(false)
			return os.NewSyscallError("write", err)
		}
	}
}

func (s *wakeSource) Fd() int {
	return s.efd.fd
}

// drain clears the pending flag before resetting the counter, so a trigger
// racing with the drain always produces another wake.
func (s *wakeSource) drain() error {
	s.efd.pending.Store(false)
	var buf [8]byte
	for {
		_, err := unix.Read(s.efd.fd, buf[:])
		switch err {
		case nil, unix.EAGAIN:
			return nil
		case unix.EINTR:
			continue
		default:
			return os.NewSyscallError("read", err)
		}
	}
}

func (s *wakeSource) close() error {
	s.efd.lock.Lock()
	defer s.efd.lock.Unlock()
	if s.efd.closed {
		return nil
	}
	s.efd.closed = true
	return os.NewSyscallError("close", unix.Close(s.efd.fd))
}
