package ircreactor

import (
	"github.com/eapache/queue"
	"github.com/rs/zerolog/log"
)

// sessionEntry pairs a session with the output it could not transmit yet.
// Output only accumulates while the transport pushes back, and is always
// transmitted oldest first.
type sessionEntry struct {
	session     Session
	outputQueue *queue.Queue
	isWritable  bool
	stats       *SessionStats
}

func newSessionEntry(session Session) *sessionEntry {
	return &sessionEntry{
		session:     session,
		outputQueue: queue.New(),
		stats:       newSessionStats(),
	}
}

// send transmits msg right away unless older output is still queued, in which
// case msg joins the tail so per-session order is kept.
func (e *sessionEntry) send(id SessionId, msg Message) {
	if e.outputQueue.Length() > 0 {
		e.enqueue(id, msg)
		return
	}
	err := e.session.TrySend(msg)
	switch {
	case err == nil:
		e.sent()
	case isTransient(err):
		e.isWritable = false
		e.enqueue(id, msg)
	default:
		e.stats.DroppedMessages.Inc()
		log.Error().Msgf("[session %d] failed to send message %q: %+v", id.index, msg.Raw(), err)
	}
}

func (e *sessionEntry) enqueue(id SessionId, msg Message) {
	if log.Trace().Enabled() {
		log.Trace().Msgf("[session %d] write would block or timed out; enqueueing message for later transmission: %q", id.index, msg.Raw())
	}
	e.outputQueue.Add(msg)
	e.stats.QueuedMessages.Inc()
}

func (e *sessionEntry) sent() {
	e.stats.SentMessages.Inc()
	e.stats.touch()
}

// processWritable drains the output queue until it is empty or the transport
// pushes back. Messages failing with a non-transient error are dropped.
func (e *sessionEntry) processWritable(id SessionId) {
	err := e.session.Flush()
	if err != nil {
		if isTransient(err) {
			e.isWritable = false
			return
		}
		log.Error().Msgf("[session %d] failed to flush pending output: %+v", id.index, err)
	}
	for e.outputQueue.Length() > 0 {
		msg := e.outputQueue.Peek().(Message)
		err := e.session.TrySend(msg)
		if err != nil && isTransient(err) {
			e.isWritable = false
			return
		}
		e.outputQueue.Remove()
		if err != nil {
			e.stats.DroppedMessages.Inc()
			log.Error().Msgf("[session %d] failed to send message %q: %+v", id.index, msg.Raw(), err)
			continue
		}
		e.sent()
	}
}
