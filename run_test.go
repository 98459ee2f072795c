//go:build linux

package ircreactor

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// socketSession returns a line session over one end of a socketpair and a
// blocking net.Conn for the other end.
func socketSession(t *testing.T, sndBuf int) (Session, net.Conn) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	require.NoError(t, err)
	if sndBuf > 0 {
		require.NoError(t, unix.SetsockoptInt(fds[0], unix.SOL_SOCKET, unix.SO_SNDBUF, sndBuf))
	}
	conn, err := NewFileConnection(os.NewFile(uintptr(fds[0]), "reactor"))
	require.NoError(t, err)
	peerFile := os.NewFile(uintptr(fds[1]), "peer")
	peer, err := net.FileConn(peerFile)
	require.NoError(t, err)
	require.NoError(t, peerFile.Close())
	t.Cleanup(func() { _ = peer.Close() })
	return NewLineSession(conn), peer
}

func readLine(t *testing.T, reader *bufio.Reader) string {
	t.Helper()
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	return line
}

func startClient(t *testing.T, client *Client, handler MessageHandler) <-chan error {
	done := make(chan error, 1)
	go func() { done <- client.Run(handler) }()
	return done
}

func stopClient(t *testing.T, client *Client, done <-chan error) {
	t.Helper()
	require.NoError(t, client.Handle().Shutdown())
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("reactor did not stop")
	}
}

func TestRunServesSessionAndActions(t *testing.T) {
	client := newTestClient(t, DefaultReactorConfig())
	session, peer := socketSession(t, 0)
	id, err := client.AddSession(session)
	require.NoError(t, err)

	handled := make(chan Message, 16)
	done := startClient(t, client, MessageHandlerFunc(func(ctx MessageContext, msg Message, err error) (Reaction, error) {
		if err != nil {
			return NoReaction{}, nil
		}
		handled <- msg
		if msg.Trailing() != "hello" {
			return NoReaction{}, nil
		}
		reply, err := NewMessage("PRIVMSG", "#c", "world")
		return Multi{RawMsg{Message: reply}}, err
	}))

	require.NoError(t, peer.SetDeadline(time.Now().Add(5*time.Second)))
	reader := bufio.NewReader(peer)

	_, err = io.WriteString(peer, "PING :serverhost\r\n")
	require.NoError(t, err)
	assert.Equal(t, "PONG :serverhost\r\n", readLine(t, reader))

	_, err = io.WriteString(peer, "PRIVMSG #c :hello\r\n")
	require.NoError(t, err)
	assert.Equal(t, "PRIVMSG #c world\r\n", readLine(t, reader))
	assert.Equal(t, "hello", (<-handled).Trailing())

	require.NoError(t, client.Handle().TrySend(id, mustMessage(t, "NOTICE #c :injected")))
	assert.Equal(t, "NOTICE #c :injected\r\n", readLine(t, reader))

	stopClient(t, client, done)
	assert.Empty(t, handled, "keep-alive requests never reach the handler")
}

func TestRunKeepsOrderUnderBackpressure(t *testing.T) {
	const total = 3000
	client := newTestClient(t, ReactorConfig{ActionQueueSize: total + 1})
	session, peer := socketSession(t, 4096)
	id, err := client.AddSession(session)
	require.NoError(t, err)
	done := startClient(t, client, MessageHandlerFunc(func(MessageContext, Message, error) (Reaction, error) {
		return NoReaction{}, nil
	}))

	padding := strings.Repeat("x", 64)
	handle := client.Handle()
	for i := 0; i < total; i++ {
		require.NoError(t, handle.TrySend(id, mustMessage(t, fmt.Sprintf("PRIVMSG #c :%d %s", i, padding))))
	}

	require.NoError(t, peer.SetDeadline(time.Now().Add(10*time.Second)))
	reader := bufio.NewReader(peer)
	for i := 0; i < total; i++ {
		require.Equal(t, fmt.Sprintf("PRIVMSG #c :%d %s\r\n", i, padding), readLine(t, reader))
	}

	stopClient(t, client, done)
	stats := client.Stats()[id]
	assert.EqualValues(t, total, stats.SentMessages)
	assert.Greater(t, stats.QueuedMessages, uint64(0))
	assert.Zero(t, stats.DroppedMessages)
}

func TestRunForwardsPeerClose(t *testing.T) {
	client := newTestClient(t, DefaultReactorConfig())
	session, peer := socketSession(t, 0)
	_, err := client.AddSession(session)
	require.NoError(t, err)

	errs := make(chan error, 4)
	done := startClient(t, client, MessageHandlerFunc(func(ctx MessageContext, msg Message, err error) (Reaction, error) {
		if err != nil {
			errs <- err
		}
		return NoReaction{}, nil
	}))
	require.NoError(t, peer.Close())

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, io.EOF)
	case <-time.After(5 * time.Second):
		t.Fatal("peer close was not reported")
	}
	stopClient(t, client, done)
	assert.Empty(t, errs)
}
