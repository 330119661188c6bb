package chat

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCompleter scripts replies and failures for the transport seam.
type fakeCompleter struct {
	replies []string
	err     error
	calls   int
	lastIns string
	lastLen int
}

func (f *fakeCompleter) Complete(_ context.Context, instruction string, history []Message, text, _ string) (string, error) {
	f.calls++
	f.lastIns = instruction
	f.lastLen = len(history)
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) > 0 {
		r := f.replies[0]
		f.replies = f.replies[1:]
		return r, nil
	}
	return "reply to " + text, nil
}

func testManager(fake *fakeCompleter) *Manager {
	return &Manager{
		model: "test-model",
		newClient: func(string) (completer, error) {
			return fake, nil
		},
	}
}

func TestEnsureAndSend(t *testing.T) {
	fake := &fakeCompleter{}
	m := testManager(fake)

	require.False(t, m.Ready())
	require.NoError(t, m.Ensure("sk-1", "be brief", false))
	require.True(t, m.Ready())

	reply, err := m.Send(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "reply to hello", reply)
	assert.Equal(t, "be brief", fake.lastIns)

	history := m.Session().History()
	require.Len(t, history, 2)
	assert.Equal(t, Message{Role: "user", Content: "hello"}, history[0])
	assert.Equal(t, Message{Role: "model", Content: "reply to hello"}, history[1])
}

func TestEnsurePreservesHistoryOnInstructionChange(t *testing.T) {
	m := testManager(&fakeCompleter{})
	require.NoError(t, m.Ensure("sk-1", "v1", false))
	_, err := m.Send(context.Background(), "one")
	require.NoError(t, err)

	require.NoError(t, m.Ensure("sk-1", "v2", true))
	assert.Len(t, m.Session().History(), 2)
	assert.Equal(t, "v2", m.Session().Instruction())
}

func TestEnsureDiscardsHistoryOnKeyChange(t *testing.T) {
	m := testManager(&fakeCompleter{})
	require.NoError(t, m.Ensure("sk-1", "v1", false))
	_, err := m.Send(context.Background(), "one")
	require.NoError(t, err)

	// Session identity changes with the key even when asked to preserve.
	require.NoError(t, m.Ensure("sk-2", "v1", true))
	assert.Empty(t, m.Session().History())
}

func TestEnsureEmptyKeyDisables(t *testing.T) {
	m := testManager(&fakeCompleter{})
	require.NoError(t, m.Ensure("sk-1", "v1", false))
	require.NoError(t, m.Ensure("", "v1", false))
	assert.False(t, m.Ready())

	_, err := m.Send(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestEnsureFailureLeavesNothingHalfBuilt(t *testing.T) {
	m := &Manager{
		model: "test-model",
		newClient: func(string) (completer, error) {
			return nil, fmt.Errorf("dial failed")
		},
	}
	require.Error(t, m.Ensure("sk-1", "v1", false))
	assert.False(t, m.Ready())
	assert.Nil(t, m.Session())
}

func TestSendFailureKeepsHistory(t *testing.T) {
	fake := &fakeCompleter{}
	m := testManager(fake)
	require.NoError(t, m.Ensure("sk-1", "v1", false))
	_, err := m.Send(context.Background(), "one")
	require.NoError(t, err)

	fake.err = ErrRateLimited
	_, err = m.Send(context.Background(), "two")
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Len(t, m.Session().History(), 2)
}

func TestSendAuthFailureDropsSession(t *testing.T) {
	fake := &fakeCompleter{err: fmt.Errorf("wrapped: %w", ErrAuth)}
	m := testManager(fake)
	require.NoError(t, m.Ensure("sk-1", "v1", false))

	_, err := m.Send(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrAuth)
	assert.False(t, m.Ready(), "auth failure must transition back to Uninitialized")
}

func TestSafetyBlockSurfaced(t *testing.T) {
	fake := &fakeCompleter{err: ErrSafetyBlocked}
	m := testManager(fake)
	require.NoError(t, m.Ensure("sk-1", "v1", false))

	_, err := m.Send(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrSafetyBlocked)
	assert.True(t, m.Ready(), "safety block is per-reply, not fatal to the session")
}

func TestTrim(t *testing.T) {
	m := testManager(&fakeCompleter{})
	require.NoError(t, m.Ensure("sk-1", "v1", false))

	// Six exchanges with maxTurns 2 must leave exactly the newest 4 entries.
	for i := 0; i < 6; i++ {
		_, err := m.Send(context.Background(), fmt.Sprintf("msg %d", i))
		require.NoError(t, err)
	}
	m.Trim(2)

	history := m.Session().History()
	require.Len(t, history, 4)
	assert.Equal(t, "msg 4", history[0].Content)
	assert.Equal(t, "reply to msg 4", history[1].Content)
	assert.Equal(t, "msg 5", history[2].Content)
	assert.Equal(t, "reply to msg 5", history[3].Content)
}

func TestTrimIdempotent(t *testing.T) {
	m := testManager(&fakeCompleter{})
	require.NoError(t, m.Ensure("sk-1", "v1", false))
	for i := 0; i < 4; i++ {
		_, err := m.Send(context.Background(), fmt.Sprintf("m%d", i))
		require.NoError(t, err)
	}

	m.Trim(3)
	first := m.Session()
	m.Trim(3)
	assert.Same(t, first, m.Session(), "a second trim with the same depth must be a no-op")

	// Under threshold: unchanged.
	before := m.Session()
	m.Trim(10)
	assert.Same(t, before, m.Session())
}

func TestTrimUnavailableIsNoop(t *testing.T) {
	m := testManager(&fakeCompleter{})
	m.Trim(2) // no session yet; must not panic or error
	assert.Nil(t, m.Session())
}

func TestClassify(t *testing.T) {
	assert.ErrorIs(t, classify(ErrSafetyBlocked), ErrSafetyBlocked)
	assert.ErrorIs(t, classify(errors.New("boom")), ErrTransport)
}
