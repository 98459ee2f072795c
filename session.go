package ircreactor

import (
	"bytes"
)

const maxLineLength = 8192
const readChunkSize = 4096

// Session is one line-protocol endpoint as seen by the reactor. Sessions over
// different transports are stored side by side in the registry through this
// interface.
type Session interface {
	// Receive returns the next parsed message. A nil message with a nil error
	// means no complete message is available right now.
	Receive() (*Message, error)
	// TrySend transmits msg without blocking. A transient error means the
	// message was not accepted and should be retried later.
	TrySend(msg Message) error
	// Flush writes any output left over from an earlier partial write.
	Flush() error
	// Fd returns the pollable descriptor of the underlying transport.
	Fd() int
	Close() error
}

type lineSession struct {
	conn   Connection
	chunk  []byte
	in     []byte
	out    []byte
	failed bool
	// discarding is set while the rest of an over-long line is skipped
	discarding bool
}

// NewLineSession frames CRLF-terminated IRC lines over conn.
func NewLineSession(conn Connection) Session {
	return &lineSession{
		conn:  conn,
		chunk: make([]byte, readChunkSize),
	}
}

// Receive reports a terminal read error (EOF included) exactly once and then
// only reports no data, so a drain loop over a dead socket ends.
func (s *lineSession) Receive() (*Message, error) {
	for {
		line, ok, err := s.nextLine()
		if err != nil {
			return nil, err
		}
		if ok {
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}
			msg, err := ParseMessage(string(line))
			if err != nil {
				return nil, err
			}
			return &msg, nil
		}
		if s.failed {
			return nil, nil
		}
		n, err := s.conn.Read(s.chunk)
		if err != nil {
			if !isTransient(err) {
				s.failed = true
			}
			return nil, err
		}
		s.in = append(s.in, s.chunk[:n]...)
	}
}

// nextLine cuts the next complete line out of the input buffer. A line over
// maxLineLength yields ErrLineTooLong once and is dropped through its
// terminating newline, even when that newline arrives in a later read.
func (s *lineSession) nextLine() ([]byte, bool, error) {
	i := bytes.IndexByte(s.in, '\n')
	if s.discarding {
		if i < 0 {
			s.in = s.in[:0]
			return nil, false, nil
		}
		s.consume(i + 1)
		s.discarding = false
		i = bytes.IndexByte(s.in, '\n')
	}
	if i < 0 {
		// one extra byte for a CR whose LF has not arrived yet
		if len(s.in) > maxLineLength+1 {
			s.in = s.in[:0]
			s.discarding = true
			return nil, false, ErrLineTooLong
		}
		return nil, false, nil
	}
	line := bytes.TrimRight(s.in[:i], "\r")
	if len(line) > maxLineLength {
		s.consume(i + 1)
		return nil, false, ErrLineTooLong
	}
	line = append([]byte(nil), line...)
	s.consume(i + 1)
	return line, true, nil
}

func (s *lineSession) consume(n int) {
	rest := copy(s.in, s.in[n:])
	s.in = s.in[:rest]
}

func (s *lineSession) TrySend(msg Message) error {
	err := s.Flush()
	if err != nil {
		return err
	}
	data := make([]byte, 0, len(msg.Raw())+2)
	data = append(data, msg.Raw()...)
	data = append(data, '\r', '\n')
	n, err := s.conn.Write(data)
	if err != nil {
		return err
	}
	if n < len(data) {
		s.out = append(s.out[:0], data[n:]...)
	}
	return nil
}

// Flush drops the pending tail on a non-transient error; the peer will see a
// truncated line in that case.
func (s *lineSession) Flush() error {
	for len(s.out) > 0 {
		n, err := s.conn.Write(s.out)
		if err != nil {
			if !isTransient(err) {
				s.out = s.out[:0]
			}
			return err
		}
		s.out = s.out[n:]
	}
	return nil
}

func (s *lineSession) Fd() int {
	return s.conn.Fd()
}

func (s *lineSession) Close() error {
	return s.conn.Close()
}
