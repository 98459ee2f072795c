package ircreactor

import (
	"time"

	"go.uber.org/atomic"
)

// SessionStats is updated by the reactor and may be read from any goroutine.
type SessionStats struct {
	LastActivityTime *atomic.Int64
	ReceivedMessages *atomic.Uint64
	SentMessages     *atomic.Uint64
	QueuedMessages   *atomic.Uint64
	DroppedMessages  *atomic.Uint64
}

type SessionStatsSnapshot struct {
	LastActivityTime int64
	ReceivedMessages uint64
	SentMessages     uint64
	QueuedMessages   uint64
	DroppedMessages  uint64
}

func newSessionStats() *SessionStats {
	return &SessionStats{
		LastActivityTime: atomic.NewInt64(0),
		ReceivedMessages: atomic.NewUint64(0),
		SentMessages:     atomic.NewUint64(0),
		QueuedMessages:   atomic.NewUint64(0),
		DroppedMessages:  atomic.NewUint64(0),
	}
}

func (s *SessionStats) touch() {
	s.LastActivityTime.Store(time.Now().UnixMilli())
}

func (s *SessionStats) Snapshot() SessionStatsSnapshot {
	return SessionStatsSnapshot{
		LastActivityTime: s.LastActivityTime.Load(),
		ReceivedMessages: s.ReceivedMessages.Load(),
		SentMessages:     s.SentMessages.Load(),
		QueuedMessages:   s.QueuedMessages.Load(),
		DroppedMessages:  s.DroppedMessages.Load(),
	}
}
