package worker

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// === Mailbox Tests ===

func TestMailbox_TakeEmpty(t *testing.T) {
	mb := NewMailbox()

	cmd, ok := mb.Take()
	require.False(t, ok, "empty mailbox should have nothing to take")
	require.Equal(t, Command(""), cmd)
}

func TestMailbox_PostTake(t *testing.T) {
	mb := NewMailbox()

	require.NoError(t, mb.Post(CmdWait))

	cmd, ok := mb.Take()
	require.True(t, ok)
	require.Equal(t, CmdWait, cmd)

	// Slot is emptied by Take
	_, ok = mb.Take()
	require.False(t, ok, "command should only be delivered once")
}

func TestMailbox_PostsCoalesce(t *testing.T) {
	mb := NewMailbox()

	// Rapid posts before the worker polls overwrite each other.
	require.NoError(t, mb.Post(CmdWait))
	require.NoError(t, mb.Post(CmdResume))
	require.NoError(t, mb.Post(CmdEnd))

	cmd, ok := mb.Take()
	require.True(t, ok)
	require.Equal(t, CmdEnd, cmd, "only the latest post should be observed")

	_, ok = mb.Take()
	require.False(t, ok)
}

func TestMailbox_PostAfterCloseFails(t *testing.T) {
	mb := NewMailbox()
	mb.Close()

	err := mb.Post(CmdEnd)
	require.ErrorIs(t, err, ErrMailboxClosed)
}

func TestMailbox_CloseDiscardsPending(t *testing.T) {
	mb := NewMailbox()
	require.NoError(t, mb.Post(CmdWait))

	mb.Close()

	_, ok := mb.Take()
	require.False(t, ok, "close should discard the pending command")
	require.True(t, mb.Closed())
}

func TestMailbox_CloseIdempotent(t *testing.T) {
	mb := NewMailbox()

	mb.Close()
	mb.Close()

	require.True(t, mb.Closed())
	require.ErrorIs(t, mb.Post(CmdResume), ErrMailboxClosed)
}

func TestMailbox_ConcurrentPosts(t *testing.T) {
	mb := NewMailbox()

	var wg sync.WaitGroup
	cmds := []Command{CmdWait, CmdResume, CmdEnd}
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(cmd Command) {
			defer wg.Done()
			_ = mb.Post(cmd)
		}(cmds[i%len(cmds)])
	}
	wg.Wait()

	// Whichever post landed last, exactly one command survives.
	cmd, ok := mb.Take()
	require.True(t, ok)
	require.True(t, cmd.IsValid())

	_, ok = mb.Take()
	require.False(t, ok)
}

func TestProperty_MailboxKeepsLatestPost(t *testing.T) {
	// Any sequence of posts with no intervening take leaves exactly the
	// last command in the slot.
	rapid.Check(t, func(rt *rapid.T) {
		mb := NewMailbox()

		numPosts := rapid.IntRange(1, 20).Draw(rt, "numPosts")
		cmds := []Command{CmdWait, CmdResume, CmdEnd}

		var last Command
		for i := 0; i < numPosts; i++ {
			idx := rapid.IntRange(0, len(cmds)-1).Draw(rt, "cmd")
			last = cmds[idx]
			require.NoError(rt, mb.Post(last))
		}

		cmd, ok := mb.Take()
		require.True(rt, ok)
		require.Equal(rt, last, cmd)

		_, ok = mb.Take()
		require.False(rt, ok, "mailbox should be empty after the single take")
	})
}
