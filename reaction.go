package ircreactor

// Reaction describes what a handler wants sent in response to an inbound
// event. The reactor interprets it on the originating session.
type Reaction interface {
	isReaction()
}

// NoReaction sends nothing.
type NoReaction struct{}

// RawMsg sends a single message.
type RawMsg struct {
	Message Message
}

// Multi applies each reaction in order. Reactions may nest.
type Multi []Reaction

func (NoReaction) isReaction() {}
func (RawMsg) isReaction()     {}
func (Multi) isReaction()      {}

// MessageContext identifies the session an inbound event came from.
type MessageContext struct {
	SessionId SessionId
}

// MessageHandler is called on the reactor goroutine for every inbound message
// or receive error except keep-alive requests. It must not block. A non-nil
// error is logged and the reaction discarded.
type MessageHandler interface {
	HandleMessage(ctx MessageContext, msg Message, err error) (Reaction, error)
}

type MessageHandlerFunc func(ctx MessageContext, msg Message, err error) (Reaction, error)

func (f MessageHandlerFunc) HandleMessage(ctx MessageContext, msg Message, err error) (Reaction, error) {
	return f(ctx, msg, err)
}
