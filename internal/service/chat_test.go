package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"lume-companion/backend/ai"
	"lume-companion/backend/internal/models"
	"lume-companion/backend/internal/typing"
	apperrors "lume-companion/backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenClient struct {
	mu           sync.Mutex
	reply        string
	ok           bool
	delay        time.Duration
	calls        int
	lastPrompt   string
	lastHistory  []models.ChatMessage
	lastUserText string
	endpoint     string
	model        string
}

func (f *fakeGenClient) SetEndpoint(endpoint string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.endpoint = endpoint
}

func (f *fakeGenClient) SetModel(model string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.model = model
}

func (f *fakeGenClient) GenerateResponse(_ context.Context, userText, systemPrompt string, history []models.ChatMessage) (string, bool) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastPrompt = systemPrompt
	f.lastHistory = history
	f.lastUserText = userText
	if !f.ok {
		return ai.FallbackResponse, false
	}
	return f.reply, true
}

type recordingSink struct {
	mu        sync.Mutex
	ticks     []string
	committed []models.ChatMessage
	done      chan models.ChatMessage
}

func newRecordingSink() *recordingSink {
	return &recordingSink{done: make(chan models.ChatMessage, 16)}
}

func (s *recordingSink) TypingTick(_ string, partial string) {
	s.mu.Lock()
	s.ticks = append(s.ticks, partial)
	s.mu.Unlock()
}

func (s *recordingSink) MessageCommitted(_ string, msg models.ChatMessage) {
	s.mu.Lock()
	s.committed = append(s.committed, msg)
	s.mu.Unlock()
	s.done <- msg
}

func waitForMessage(t *testing.T, sink *recordingSink, origin models.MessageOrigin) models.ChatMessage {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case msg := <-sink.done:
			if msg.Origin == origin {
				return msg
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s message", origin)
		}
	}
}

func newTestChat(t *testing.T, client GenerationClient) (*Chat, *Roster, *recordingSink) {
	t.Helper()
	roster, _ := newTestRoster(t)
	sink := newRecordingSink()
	chat := NewChat(roster, client, typing.NewPresenter(time.Millisecond), nil, ChatOptions{
		Timeout: time.Second,
		Events:  sink,
	})
	return chat, roster, sink
}

func TestSubmitSuccessfulRoundTrip(t *testing.T) {
	client := &fakeGenClient{reply: "Hi! Fresh bread today.", ok: true}
	chat, roster, sink := newTestChat(t, client)
	ch := createTestCharacter(t, roster, "Maya")

	userMsg, err := chat.Submit(ch.ID, "hello")
	require.NoError(t, err)
	assert.True(t, userMsg.IsUser)
	assert.Equal(t, models.OriginUser, userMsg.Origin)

	assistant := waitForMessage(t, sink, models.OriginModel)
	assert.Equal(t, "Hi! Fresh bread today.", assistant.Content)
	assert.Equal(t, ch.ID, assistant.SenderID)
	assert.False(t, assistant.IsUser)

	history := roster.Conversation(ch.ID)
	require.Len(t, history, 2)
	assert.Equal(t, "hello", history[0].Content)
	assert.Equal(t, "Hi! Fresh bread today.", history[1].Content)

	// The compiled system prompt reaches the client, and the history
	// snapshot excludes the message being submitted.
	assert.Contains(t, client.lastPrompt, "You are roleplaying as Maya.")
	assert.Equal(t, "hello", client.lastUserText)
	assert.Empty(t, client.lastHistory)

	// Ticks grew toward the final text.
	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.NotEmpty(t, sink.ticks)
	assert.Equal(t, "Hi! Fresh bread today.", sink.ticks[len(sink.ticks)-1])

	assert.False(t, chat.Busy(ch.ID))
}

func TestSubmitFallbackCommitsErrorMessage(t *testing.T) {
	client := &fakeGenClient{ok: false}
	chat, roster, sink := newTestChat(t, client)
	ch := createTestCharacter(t, roster, "Maya")

	_, err := chat.Submit(ch.ID, "hello")
	require.NoError(t, err)

	fallback := waitForMessage(t, sink, models.OriginFallback)
	assert.Equal(t, ai.FallbackResponse, fallback.Content)

	// A failed generation still leaves the user's message in history, and
	// the fallback is committed without a typing reveal.
	history := roster.Conversation(ch.ID)
	require.Len(t, history, 2)
	assert.Equal(t, models.OriginUser, history[0].Origin)
	assert.Equal(t, models.OriginFallback, history[1].Origin)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Empty(t, sink.ticks)
}

func TestSubmitRejectedWhileBusy(t *testing.T) {
	client := &fakeGenClient{reply: "slow reply", ok: true, delay: 200 * time.Millisecond}
	chat, roster, sink := newTestChat(t, client)
	ch := createTestCharacter(t, roster, "Maya")

	_, err := chat.Submit(ch.ID, "first")
	require.NoError(t, err)

	// Second submission while the first is still sending is ignored and the
	// history is unchanged by it.
	_, err = chat.Submit(ch.ID, "second")
	assert.True(t, apperrors.IsCode(err, "CONVERSATION_BUSY"))
	assert.Len(t, roster.Conversation(ch.ID), 1)

	waitForMessage(t, sink, models.OriginModel)
	history := roster.Conversation(ch.ID)
	require.Len(t, history, 2)
	assert.Equal(t, "first", history[0].Content)
	assert.Equal(t, 1, client.calls)
}

func TestSubmitIndependentAcrossCharacters(t *testing.T) {
	client := &fakeGenClient{reply: "ok", ok: true, delay: 100 * time.Millisecond}
	chat, roster, sink := newTestChat(t, client)
	a := createTestCharacter(t, roster, "Maya")
	b := createTestCharacter(t, roster, "Iris")

	_, err := chat.Submit(a.ID, "to maya")
	require.NoError(t, err)

	// A round-trip in flight for one character does not block another.
	_, err = chat.Submit(b.ID, "to iris")
	require.NoError(t, err)

	waitForMessage(t, sink, models.OriginModel)
	waitForMessage(t, sink, models.OriginModel)
	assert.Len(t, roster.Conversation(a.ID), 2)
	assert.Len(t, roster.Conversation(b.ID), 2)
}

func TestSubmitEmptyMessageRejected(t *testing.T) {
	client := &fakeGenClient{reply: "ok", ok: true}
	chat, roster, _ := newTestChat(t, client)
	ch := createTestCharacter(t, roster, "Maya")

	_, err := chat.Submit(ch.ID, "   ")
	assert.True(t, apperrors.IsCode(err, "EMPTY_MESSAGE"))
	assert.Empty(t, roster.Conversation(ch.ID))
}

func TestSubmitUnknownCharacterRejected(t *testing.T) {
	client := &fakeGenClient{reply: "ok", ok: true}
	chat, _, _ := newTestChat(t, client)

	_, err := chat.Submit("ghost", "hello")
	assert.True(t, apperrors.IsCode(err, "CHARACTER_NOT_FOUND"))
}

func TestCancelAbandonsReveal(t *testing.T) {
	client := &fakeGenClient{reply: repeatText(20000), ok: true}
	chat, roster, sink := newTestChat(t, client)
	ch := createTestCharacter(t, roster, "Maya")

	_, err := chat.Submit(ch.ID, "hello")
	require.NoError(t, err)

	// Wait for the reveal to start ticking, then cancel it.
	waitForTick(t, sink)
	chat.Cancel(ch.ID)

	// The abandoned reveal must not commit an assistant message.
	time.Sleep(100 * time.Millisecond)
	history := roster.Conversation(ch.ID)
	assert.Len(t, history, 1)
	assert.False(t, chat.Busy(ch.ID))
}

func TestCancelDuringSendAllowsResubmit(t *testing.T) {
	client := &fakeGenClient{reply: "late reply", ok: true, delay: 300 * time.Millisecond}
	chat, roster, sink := newTestChat(t, client)
	ch := createTestCharacter(t, roster, "Maya")

	_, err := chat.Submit(ch.ID, "first")
	require.NoError(t, err)

	// Cancel while the backend call is still in flight; the slot frees
	// immediately and a new submission starts a fresh round-trip.
	time.Sleep(50 * time.Millisecond)
	chat.Cancel(ch.ID)
	require.False(t, chat.Busy(ch.ID))

	_, err = chat.Submit(ch.ID, "second")
	require.NoError(t, err)

	waitForMessage(t, sink, models.OriginModel)

	// Give the abandoned round-trip time to return from the backend; its
	// reply must never be committed, so exactly one assistant message lands.
	time.Sleep(400 * time.Millisecond)
	history := roster.Conversation(ch.ID)
	require.Len(t, history, 3)
	assert.Equal(t, "first", history[0].Content)
	assert.Equal(t, "second", history[1].Content)
	assert.Equal(t, models.OriginModel, history[2].Origin)
	assert.False(t, chat.Busy(ch.ID))
}

func TestSubmitRejectedWhileRevealing(t *testing.T) {
	client := &fakeGenClient{reply: repeatText(500), ok: true}
	chat, roster, sink := newTestChat(t, client)
	ch := createTestCharacter(t, roster, "Maya")

	_, err := chat.Submit(ch.ID, "first")
	require.NoError(t, err)

	// Once ticks are flowing the round-trip is revealing; the conversation
	// is still busy until the full text is committed.
	waitForTick(t, sink)
	_, err = chat.Submit(ch.ID, "second")
	assert.True(t, apperrors.IsCode(err, "CONVERSATION_BUSY"))

	waitForMessage(t, sink, models.OriginModel)
	history := roster.Conversation(ch.ID)
	require.Len(t, history, 2)
	assert.Equal(t, "first", history[0].Content)
}

func waitForTick(t *testing.T, sink *recordingSink) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		sink.mu.Lock()
		started := len(sink.ticks) > 0
		sink.mu.Unlock()
		if started {
			return
		}
		select {
		case <-deadline:
			t.Fatal("reveal never started")
		case <-time.After(time.Millisecond):
		}
	}
}

func repeatText(n int) string {
	out := make([]byte, n)
	for i := range out {
		out[i] = 'x'
	}
	return string(out)
}
