//go:build linux

package ircreactor

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

var errWouldBlock = os.NewSyscallError("write", unix.EAGAIN)
var errBrokenPipe = os.NewSyscallError("write", unix.EPIPE)

type fakeRecv struct {
	msg *Message
	err error
}

// fakeSession replays scripted receive results and send outcomes.
type fakeSession struct {
	inbox    []fakeRecv
	sendErrs []error
	flushErr error
	sent     []Message
	attempts int
	closed   bool
}

func (s *fakeSession) Receive() (*Message, error) {
	if len(s.inbox) == 0 {
		return nil, nil
	}
	r := s.inbox[0]
	s.inbox = s.inbox[1:]
	return r.msg, r.err
}

func (s *fakeSession) TrySend(msg Message) error {
	s.attempts++
	if len(s.sendErrs) > 0 {
		err := s.sendErrs[0]
		s.sendErrs = s.sendErrs[1:]
		if err != nil {
			return err
		}
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *fakeSession) Flush() error {
	return s.flushErr
}

func (s *fakeSession) Fd() int {
	return -1
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

func (s *fakeSession) push(t *testing.T, raw string) {
	msg := mustMessage(t, raw)
	s.inbox = append(s.inbox, fakeRecv{msg: &msg})
}

func (s *fakeSession) pushErr(err error) {
	s.inbox = append(s.inbox, fakeRecv{err: err})
}

func mustMessage(t *testing.T, raw string) Message {
	t.Helper()
	msg, err := ParseMessage(raw)
	require.NoError(t, err)
	return msg
}

func raws(msgs []Message) []string {
	result := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		result = append(result, msg.Raw())
	}
	return result
}

func pending(entry *sessionEntry) []Message {
	result := make([]Message, 0, entry.outputQueue.Length())
	for i := 0; i < entry.outputQueue.Length(); i++ {
		result = append(result, entry.outputQueue.Get(i).(Message))
	}
	return result
}

func newTestClient(t *testing.T, config ReactorConfig) *Client {
	t.Helper()
	client, err := NewClient(config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}
