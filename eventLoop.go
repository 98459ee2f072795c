//go:build linux

package ircreactor

import (
	"runtime"

	"github.com/rs/zerolog/log"
	"go.uber.org/atomic"
)

type EventLoopConfig struct {
	Name            string
	LockOsThread    bool
	EventBufferSize int
}

type EventLoop struct {
	Name         string
	lockOsThread bool
	isRunning    *atomic.Bool
	poller       *Poller
}

func NewEventLoop(config EventLoopConfig) (*EventLoop, error) {
	if log.Debug().Enabled() {
		log.Debug().Msgf("init event loop:%+v", config)
	} else {
		log.Info().Msgf("init event loop:%s", config.Name)
	}

	poller, err := openPoller(config.EventBufferSize)
	if err != nil {
		log.Error().Msgf("can't open poller: %+v", err)
		return nil, err
	}
	return &EventLoop{
		Name:         config.Name,
		lockOsThread: config.LockOsThread,
		isRunning:    atomic.NewBool(false),
		poller:       poller,
	}, nil
}

// Start runs the poll loop on the calling goroutine until Stop is called from
// inside callback or epoll_wait fails. The poller is closed on return.
func (el *EventLoop) Start(callback func(token int, events uint32) error) error {
	if el.lockOsThread {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}
	defer el.poller.close()
	el.isRunning.Store(true)
	for el.isRunning.Load() {
		evCount, err := el.poller.waitForEvents(callback)
		if err != nil {
			log.Error().Msgf("got error while waiting for the net events: %+v", err)
			el.isRunning.Store(false)
			return err
		}
		if log.Debug().Enabled() {
			log.Debug().Msgf("processed %d netpoll events", evCount)
		}
	}
	return nil
}

func (el *EventLoop) Stop() {
	el.isRunning.Store(false)
}

// Close releases the poller of a loop that was never started.
func (el *EventLoop) Close() {
	el.poller.close()
}

func (el *EventLoop) PollSession(fd, token int) error {
	return el.poller.add(fd, token, sessionEvents)
}

func (el *EventLoop) PollWake(fd, token int) error {
	return el.poller.add(fd, token, wakeEvents)
}
