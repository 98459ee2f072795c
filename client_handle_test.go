//go:build linux

package ircreactor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrySendFailsWhenQueueIsFull(t *testing.T) {
	client := newTestClient(t, ReactorConfig{ActionQueueSize: 1})
	id, err := client.AddSession(&fakeSession{})
	require.NoError(t, err)
	handle := client.Handle()

	require.NoError(t, handle.TrySend(id, mustMessage(t, "NOTICE a :1")))
	assert.ErrorIs(t, handle.TrySend(id, mustMessage(t, "NOTICE a :2")), ErrActionQueueFull)
	assert.ErrorIs(t, handle.Send(context.Background(), id, mustMessage(t, "NOTICE a :2")), ErrActionQueueFull)
}

func TestSendRetriesUntilQueueDrains(t *testing.T) {
	client := newTestClient(t, ReactorConfig{ActionQueueSize: 1, SendRetries: 500, SendRetryIntervalMs: 5})
	session := &fakeSession{}
	id, err := client.AddSession(session)
	require.NoError(t, err)
	handle := client.Handle()
	require.NoError(t, handle.TrySend(id, mustMessage(t, "NOTICE a :1")))

	wg := &sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		time.Sleep(30 * time.Millisecond)
		assert.NoError(t, client.processActionQueue())
	}()
	require.NoError(t, handle.Clone().Send(context.Background(), id, mustMessage(t, "NOTICE a :2")))
	wg.Wait()
	require.NoError(t, client.processActionQueue())

	assert.Equal(t, []string{"NOTICE a :1", "NOTICE a :2"}, raws(session.sent))
}

func TestSendStopsOnCancelledContext(t *testing.T) {
	client := newTestClient(t, ReactorConfig{ActionQueueSize: 1, SendRetries: 5, SendRetryIntervalMs: 1000})
	id, err := client.AddSession(&fakeSession{})
	require.NoError(t, err)
	handle := client.Handle()
	require.NoError(t, handle.TrySend(id, mustMessage(t, "NOTICE a :1")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, handle.Send(ctx, id, mustMessage(t, "NOTICE a :2")), context.Canceled)
}

func TestClosedClientRejectsHandles(t *testing.T) {
	client := newTestClient(t, DefaultReactorConfig())
	id, err := client.AddSession(&fakeSession{})
	require.NoError(t, err)
	handle := client.Handle()
	require.NoError(t, client.Close())

	assert.ErrorIs(t, handle.TrySend(id, mustMessage(t, "NOTICE a :1")), ErrClientClosed)
	assert.ErrorIs(t, handle.Shutdown(), ErrClientClosed)
}
