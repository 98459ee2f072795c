//go:build linux

package ircreactor

import (
	"context"
	"errors"

	"golang.org/x/time/rate"
)

// ClientHandle lets any goroutine inject work into a running Client. Copies
// share the same bounded queue, wake trigger and retry limiter.
type ClientHandle struct {
	actions chan<- action
	trigger *wakeTrigger
	limiter *rate.Limiter
	retries int
}

func (h ClientHandle) Clone() ClientHandle {
	return h
}

// TrySend queues message for the given session and wakes the reactor. It
// fails with ErrActionQueueFull instead of blocking.
func (h ClientHandle) TrySend(session SessionId, message Message) error {
	return h.push(rawMsgAction{session: session, message: message})
}

// Send is TrySend with a bounded number of retries while the queue is full,
// paced by the shared limiter.
func (h ClientHandle) Send(ctx context.Context, session SessionId, message Message) error {
	err := h.TrySend(session, message)
	for attempt := 0; errors.Is(err, ErrActionQueueFull) && attempt < h.retries; attempt++ {
		waitErr := h.limiter.Wait(ctx)
		if waitErr != nil {
			return waitErr
		}
		err = h.TrySend(session, message)
	}
	return err
}

// Shutdown asks the reactor to return from Run once the actions queued before
// it have been processed.
func (h ClientHandle) Shutdown() error {
	return h.push(stopAction{})
}

func (h ClientHandle) push(act action) error {
	select {
	case h.actions <- act:
	default:
		return ErrActionQueueFull
	}
	return h.trigger.trigger()
}
