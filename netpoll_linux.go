//go:build linux

package ircreactor

import (
	"os"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

const (
	readEvents    = unix.EPOLLPRI | unix.EPOLLIN
	writeEvents   = unix.EPOLLOUT
	errorEvents   = unix.EPOLLERR | unix.EPOLLHUP | unix.EPOLLRDHUP
	sessionEvents = readEvents | writeEvents | errorEvents | unix.EPOLLET
	wakeEvents    = unix.EPOLLIN | unix.EPOLLET
)

const blocked = -1
const defEventsBufferSize = 512

// Poller is an edge-triggered epoll instance. Registrations carry a token
// instead of the descriptor so events can be routed without a lookup map.
type Poller struct {
	eventBufferSize int
	fd              int
	events          []unix.EpollEvent
	timeout         int
}

func openPoller(eventsBufferSize int) (*Poller, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, os.NewSyscallError("epoll_create1", err)
	}
	bufferSize := eventsBufferSize
	if bufferSize <= 0 {
		bufferSize = defEventsBufferSize
	}
	return &Poller{
		eventBufferSize: bufferSize,
		fd:              fd,
		timeout:         blocked,
		events:          make([]unix.EpollEvent, bufferSize),
	}, nil
}

func (p *Poller) close() {
	err := os.NewSyscallError("close", unix.Close(p.fd))
	if err != nil {
		log.Error().Msgf("got error while closing epoll: %+v", err)
	}
}

// waitForEvents blocks until at least one registration is ready and feeds
// every reported event to callback. Only an epoll_wait failure is returned.
func (p *Poller) waitForEvents(callback func(token int, events uint32) error) (int, error) {
	evCount, err := unix.EpollWait(p.fd, p.events, p.timeout)
	if err == unix.EINTR {
		return 0, nil
	}
	if err != nil {
		return 0, os.NewSyscallError("epoll_wait", err)
	}
	for i := 0; i < evCount; i++ {
		event := p.events[i]
		err = callback(int(event.Fd), event.Events)
		if err != nil {
			log.Error().Msgf("error occurs in event-loop: %v", err)
		}
	}
	return evCount, nil
}

func (p *Poller) add(fd, token int, events uint32) error {
	if log.Debug().Enabled() {
		log.Debug().Msgf("[%d] add epoll events %#x with token %d", fd, events, token)
	}
	err := unix.EpollCtl(p.fd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{Fd: int32(token), Events: events})
	if err != nil {
		return os.NewSyscallError("epoll_ctl add", err)
	}
	return nil
}
