package ircreactor

// action is a unit of work handed to the reactor from another goroutine.
type action interface {
	isAction()
}

type rawMsgAction struct {
	session SessionId
	message Message
}

type stopAction struct{}

func (rawMsgAction) isAction() {}
func (stopAction) isAction()   {}
