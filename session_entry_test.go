//go:build linux

package ircreactor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSendAfterWouldBlockKeepsFifo(t *testing.T) {
	session := &fakeSession{sendErrs: []error{errWouldBlock}}
	entry := newSessionEntry(session)
	id := SessionId{}
	entry.isWritable = true

	entry.send(id, mustMessage(t, "PRIVMSG #c :m1"))
	assert.False(t, entry.isWritable)
	entry.send(id, mustMessage(t, "PRIVMSG #c :m2"))

	assert.Equal(t, 1, session.attempts, "m2 must not jump ahead of the queued m1")
	assert.Equal(t, []string{"PRIVMSG #c :m1", "PRIVMSG #c :m2"}, raws(pending(entry)))

	entry.processWritable(id)
	assert.Equal(t, []string{"PRIVMSG #c :m1", "PRIVMSG #c :m2"}, raws(session.sent))
	assert.Empty(t, pending(entry))
	assert.EqualValues(t, 2, entry.stats.QueuedMessages.Load())
	assert.EqualValues(t, 2, entry.stats.SentMessages.Load())
}

func TestProcessWritableResumesAcrossEvents(t *testing.T) {
	session := &fakeSession{sendErrs: []error{errWouldBlock}}
	entry := newSessionEntry(session)
	id := SessionId{}
	for _, raw := range []string{"NOTICE a :1", "NOTICE a :2", "NOTICE a :3", "NOTICE a :4"} {
		entry.send(id, mustMessage(t, raw))
	}
	assert.Len(t, pending(entry), 4)

	session.sendErrs = []error{nil, errWouldBlock}
	entry.isWritable = true
	entry.processWritable(id)
	assert.False(t, entry.isWritable)
	assert.Equal(t, []string{"NOTICE a :1"}, raws(session.sent))
	assert.Equal(t, []string{"NOTICE a :2", "NOTICE a :3", "NOTICE a :4"}, raws(pending(entry)))

	session.sendErrs = []error{nil, errWouldBlock}
	entry.isWritable = true
	entry.processWritable(id)
	assert.Equal(t, []string{"NOTICE a :3", "NOTICE a :4"}, raws(pending(entry)))

	entry.isWritable = true
	entry.processWritable(id)
	assert.True(t, entry.isWritable)
	assert.Equal(t, []string{"NOTICE a :1", "NOTICE a :2", "NOTICE a :3", "NOTICE a :4"}, raws(session.sent))
}

func TestProcessWritableDropsOnHardError(t *testing.T) {
	session := &fakeSession{sendErrs: []error{errWouldBlock}}
	entry := newSessionEntry(session)
	id := SessionId{}
	entry.send(id, mustMessage(t, "NOTICE a :1"))
	entry.send(id, mustMessage(t, "NOTICE a :2"))

	session.sendErrs = []error{errBrokenPipe}
	entry.processWritable(id)
	assert.Equal(t, []string{"NOTICE a :2"}, raws(session.sent))
	assert.Empty(t, pending(entry))
	assert.EqualValues(t, 1, entry.stats.DroppedMessages.Load())
}

func TestDirectSendHardErrorIsDropped(t *testing.T) {
	session := &fakeSession{sendErrs: []error{errBrokenPipe}}
	entry := newSessionEntry(session)
	entry.send(SessionId{}, mustMessage(t, "NOTICE a :1"))

	assert.Empty(t, pending(entry))
	assert.Empty(t, session.sent)
	assert.EqualValues(t, 1, entry.stats.DroppedMessages.Load())
}

func TestProcessWritableStopsWhenFlushWouldBlock(t *testing.T) {
	session := &fakeSession{sendErrs: []error{errWouldBlock}}
	entry := newSessionEntry(session)
	entry.send(SessionId{}, mustMessage(t, "NOTICE a :1"))

	session.flushErr = errWouldBlock
	entry.isWritable = true
	entry.processWritable(SessionId{})
	assert.False(t, entry.isWritable)
	assert.Len(t, pending(entry), 1)
	assert.Equal(t, 1, session.attempts)
}

func TestProcessWritableOnEmptyQueue(t *testing.T) {
	session := &fakeSession{}
	entry := newSessionEntry(session)
	entry.isWritable = true
	entry.processWritable(SessionId{})

	assert.True(t, entry.isWritable)
	assert.Zero(t, session.attempts)
}
