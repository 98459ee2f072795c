package ircreactor

import "errors"

var ErrTooManySessions = errors.New("session registry is full")
var ErrClientRunning = errors.New("client is already running")
var ErrClientClosed = errors.New("client is closed")
var ErrActionQueueFull = errors.New("action queue is full")
var ErrUnknownSession = errors.New("unknown session id")
var ErrHandlerPanic = errors.New("message handler panicked")

var ErrLineTooLong = errors.New("line exceeds maximum length")
var ErrEmptyMessage = errors.New("empty message")
var ErrMissingCommand = errors.New("message has no command")
var ErrInvalidCommand = errors.New("invalid message command")
var ErrInvalidParam = errors.New("invalid message parameter")
