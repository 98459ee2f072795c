package ircreactor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// sessionStatsHolder publishes per-session counters to goroutines other than
// the reactor. It never exposes the session entries themselves.
type sessionStatsHolder struct {
	lock  *sync.RWMutex
	stats map[SessionId]*SessionStats
}

func newSessionStatsHolder() *sessionStatsHolder {
	return &sessionStatsHolder{
		lock:  &sync.RWMutex{},
		stats: make(map[SessionId]*SessionStats),
	}
}

func (h *sessionStatsHolder) add(id SessionId, stats *SessionStats) {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.stats[id] = stats
}

func (h *sessionStatsHolder) snapshot() map[SessionId]SessionStatsSnapshot {
	h.lock.RLock()
	defer h.lock.RUnlock()
	result := make(map[SessionId]SessionStatsSnapshot, len(h.stats))
	for id, stats := range h.stats {
		result[id] = stats.Snapshot()
	}
	return result
}

func (h *sessionStatsHolder) report(ctx context.Context, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snapshot := h.snapshot()
			log.Info().Msgf("Total sessions: %d", len(snapshot))
			for id, stats := range snapshot {
				log.Info().Msgf("[session %d] lastActiveTime: %d received: %d sent: %d queued: %d dropped: %d",
					id.index, stats.LastActivityTime, stats.ReceivedMessages, stats.SentMessages, stats.QueuedMessages, stats.DroppedMessages)
			}
		}
	}
}
