//go:build linux

package ircreactor

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog/log"
	"go.uber.org/atomic"
	"golang.org/x/time/rate"
)

const DefaultActionQueueSize = 1024

// actionQueueToken is the poll token of the wake source. It is the largest
// value the epoll token field can carry and is never handed to a session.
const actionQueueToken = math.MaxInt32

// SessionId addresses a session registered with a Client. Ids are assigned
// in registration order and stay valid for the lifetime of the Client.
type SessionId struct {
	index int
}

func (id SessionId) Index() int {
	return id.index
}

// Client is the reactor. It owns every session and is driven by a single
// goroutine through Run; other goroutines talk to it through ClientHandle.
type Client struct {
	config          ReactorConfig
	sessions        []*sessionEntry
	actions         <-chan action
	wake            *wakeSource
	handlePrototype ClientHandle
	statsHolder     *sessionStatsHolder
	isStarted       *atomic.Bool
	eventLoop       *EventLoop
}

func NewClient(config ReactorConfig) (*Client, error) {
	config = config.withDefaults()
	wake, trigger, err := newWake()
	if err != nil {
		log.Error().Msgf("can't create wake source: %+v", err)
		return nil, err
	}
	actions := make(chan action, config.ActionQueueSize)
	interval := time.Duration(config.SendRetryIntervalMs) * time.Millisecond
	return &Client{
		config:  config,
		actions: actions,
		wake:    wake,
		handlePrototype: ClientHandle{
			actions: actions,
			trigger: trigger,
			limiter: rate.NewLimiter(rate.Every(interval), 1),
			retries: config.SendRetries,
		},
		statsHolder: newSessionStatsHolder(),
		isStarted:   atomic.NewBool(false),
	}, nil
}

func (c *Client) Handle() ClientHandle {
	return c.handlePrototype.Clone()
}

// AddSession registers a session and returns its id. Sessions can only be
// added before Run is called.
func (c *Client) AddSession(session Session) (SessionId, error) {
	if c.isStarted.Load() {
		return SessionId{}, ErrClientRunning
	}
	index := len(c.sessions)
	if index >= c.maxSessions() {
		return SessionId{}, ErrTooManySessions
	}
	entry := newSessionEntry(session)
	c.sessions = append(c.sessions, entry)
	id := SessionId{index: index}
	c.statsHolder.add(id, entry.stats)
	if log.Debug().Enabled() {
		log.Debug().Msgf("[session %d] registered fd %d", index, session.Fd())
	}
	return id, nil
}

func (c *Client) maxSessions() int {
	if c.config.MaxSessions <= 0 || c.config.MaxSessions > actionQueueToken {
		return actionQueueToken
	}
	return c.config.MaxSessions
}

// Run polls every registered session and the action queue until a shutdown
// is requested through a handle or polling fails. It may only be called once.
func (c *Client) Run(handler MessageHandler) error {
	if !c.isStarted.CAS(false, true) {
		return ErrClientRunning
	}
	eventLoop, err := NewEventLoop(EventLoopConfig{
		Name:            c.config.Name,
		LockOsThread:    c.config.LockOsThread,
		EventBufferSize: c.config.EventBufferSize,
	})
	if err != nil {
		return err
	}
	for index, entry := range c.sessions {
		err = eventLoop.PollSession(entry.session.Fd(), index)
		if err != nil {
			log.Error().Msgf("[session %d] can't register session for polling: %+v", index, err)
			eventLoop.Close()
			return err
		}
	}
	err = eventLoop.PollWake(c.wake.Fd(), actionQueueToken)
	if err != nil {
		log.Error().Msgf("can't register action queue for polling: %+v", err)
		eventLoop.Close()
		return err
	}
	c.eventLoop = eventLoop
	return eventLoop.Start(func(token int, events uint32) error {
		if token == actionQueueToken {
			return c.processActionQueue()
		}
		c.processSessionEvent(events, SessionId{index: token}, handler)
		return nil
	})
}

// Close closes every session and the wake source. Handles that outlive the
// client fail with ErrClientClosed afterwards.
func (c *Client) Close() error {
	var result error
	for index, entry := range c.sessions {
		err := entry.session.Close()
		if err != nil {
			log.Error().Msgf("[session %d] got error while closing session: %+v", index, err)
			result = err
		}
	}
	err := c.wake.close()
	if err != nil {
		result = err
	}
	return result
}

// Stats returns a snapshot of the per-session counters. Safe to call from any
// goroutine.
func (c *Client) Stats() map[SessionId]SessionStatsSnapshot {
	return c.statsHolder.snapshot()
}

// ReportStats logs the session counters every period until ctx is done.
func (c *Client) ReportStats(ctx context.Context, period time.Duration) {
	c.statsHolder.report(ctx, period)
}

func (c *Client) processSessionEvent(events uint32, id SessionId, handler MessageHandler) {
	entry := c.sessions[id.index]
	if events&writeEvents != 0 {
		entry.isWritable = true
	}
	if entry.isWritable {
		entry.processWritable(id)
	}
	if events&(readEvents|errorEvents) != 0 {
		c.processReadable(entry, id, handler)
	}
}

// processReadable drains the session until it has no more data. Keep-alive
// requests are answered here and never reach the handler.
func (c *Client) processReadable(entry *sessionEntry, id SessionId, handler MessageHandler) {
	ctx := MessageContext{SessionId: id}
	for {
		msg, err := entry.session.Receive()
		var reaction Reaction
		switch {
		case err != nil && isTransient(err):
			return
		case err != nil:
			reaction = dispatch(handler, ctx, Message{}, err)
		case msg == nil:
			return
		case msg.Command() == keepAliveCommand:
			entry.stats.ReceivedMessages.Inc()
			pong, err := msg.keepAliveReply()
			if err != nil {
				reaction = dispatch(handler, ctx, Message{}, err)
			} else {
				reaction = RawMsg{Message: pong}
			}
		default:
			entry.stats.ReceivedMessages.Inc()
			entry.stats.touch()
			reaction = dispatch(handler, ctx, *msg, nil)
		}
		c.processReaction(entry, id, reaction)
	}
}

// dispatch calls the handler, turning a returned error or a panic into a
// logged failure with no reaction.
func dispatch(handler MessageHandler, ctx MessageContext, msg Message, err error) (reaction Reaction) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Msgf("[session %d] %v: %v", ctx.SessionId.index, ErrHandlerPanic, r)
			reaction = NoReaction{}
		}
	}()
	reaction, handlerErr := handler.HandleMessage(ctx, msg, err)
	if handlerErr != nil {
		log.Error().Msgf("[session %d] message handler failed: %+v", ctx.SessionId.index, handlerErr)
		return NoReaction{}
	}
	if reaction == nil {
		return NoReaction{}
	}
	return reaction
}

func (c *Client) processReaction(entry *sessionEntry, id SessionId, reaction Reaction) {
	switch r := reaction.(type) {
	case nil, NoReaction:
	case RawMsg:
		entry.send(id, r.Message)
	case Multi:
		for _, nested := range r {
			c.processReaction(entry, id, nested)
		}
	default:
		log.Warn().Msgf("[session %d] ignoring unknown reaction %T", id.index, reaction)
	}
}

// processActionQueue empties the action queue completely; several triggers
// may have been folded into this one wake.
func (c *Client) processActionQueue() error {
	err := c.wake.drain()
	stop := false
	for {
		select {
		case act := <-c.actions:
			if c.processAction(act) {
				stop = true
			}
		default:
			if stop && c.eventLoop != nil {
				log.Info().Msgf("stopping event loop:%s", c.config.Name)
				c.eventLoop.Stop()
			}
			return err
		}
	}
}

// processAction reports whether the action asks the reactor to stop.
func (c *Client) processAction(act action) bool {
	switch a := act.(type) {
	case rawMsgAction:
		if a.session.index < 0 || a.session.index >= len(c.sessions) {
			log.Error().Msgf("[session %d] dropping message %q: %+v", a.session.index, a.message.Raw(), ErrUnknownSession)
			return false
		}
		c.sessions[a.session.index].send(a.session, a.message)
	case stopAction:
		return true
	}
	return false
}
