package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"lume-companion/backend/internal/models"
	"lume-companion/backend/internal/prompt"
	"lume-companion/backend/internal/typing"
	apperrors "lume-companion/backend/pkg/errors"
	"lume-companion/backend/pkg/logger"
)

// GenerationClient is the boundary to the text backend.
type GenerationClient interface {
	SetEndpoint(endpoint string)
	SetModel(model string)
	GenerateResponse(ctx context.Context, userText, systemPrompt string, history []models.ChatMessage) (string, bool)
}

// EventSink receives the chat lifecycle events the UI renders live: reveal
// ticks and committed messages. Implementations must not block.
type EventSink interface {
	TypingTick(characterID, partial string)
	MessageCommitted(characterID string, msg models.ChatMessage)
}

// ErrConversationBusy rejects a submission while a prior round-trip for the
// same character is still sending or revealing.
var ErrConversationBusy = apperrors.NewConflictError("CONVERSATION_BUSY", "a response is already being generated for this character")

// roundTrip is one in-flight generation for a character. Its pointer
// identity is the ownership token: a goroutine may only advance or commit a
// round-trip while it is still the one registered for its character, so a
// cancelled or replaced round-trip can never deliver its result.
type roundTrip struct {
	cancel context.CancelFunc
}

// Chat drives one generation round-trip per character:
//
//	Idle -> Sending -> ErrorDelivered -> Idle
//	              \-> Revealing -> Idle
//
// Sending and Revealing are mutually exclusive per character; conversations
// of different characters are independent.
type Chat struct {
	roster    *Roster
	client    GenerationClient
	presenter *typing.Presenter
	events    EventSink
	log       *logger.Logger
	timeout   time.Duration

	mu     sync.Mutex
	active map[string]*roundTrip
}

// ChatOptions configures the orchestrator.
type ChatOptions struct {
	// Timeout bounds the backend call; expiry takes the fallback path.
	Timeout time.Duration
	// Events may be nil when no live UI is attached.
	Events EventSink
}

// NewChat wires the orchestrator.
func NewChat(roster *Roster, client GenerationClient, presenter *typing.Presenter, log *logger.Logger, opts ChatOptions) *Chat {
	if log == nil {
		log = logger.GetGlobal()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Chat{
		roster:    roster,
		client:    client,
		presenter: presenter,
		events:    opts.Events,
		log:       log,
		timeout:   timeout,
		active:    make(map[string]*roundTrip),
	}
}

// Submit appends the user's message and starts the asynchronous generation
// round-trip. While a round-trip is active for the character, further
// submissions return ErrConversationBusy and leave the history untouched.
// The returned message is the committed user message.
func (c *Chat) Submit(characterID, content string) (models.ChatMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.ChatMessage{}, apperrors.NewBadRequestError("EMPTY_MESSAGE", "message content is empty")
	}

	character, err := c.roster.Character(characterID)
	if err != nil {
		return models.ChatMessage{}, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	rt := &roundTrip{cancel: cancel}

	c.mu.Lock()
	if c.active[characterID] != nil {
		c.mu.Unlock()
		cancel()
		return models.ChatMessage{}, ErrConversationBusy
	}
	c.active[characterID] = rt
	c.mu.Unlock()

	// History snapshot excludes the message being submitted; the request
	// carries it separately as the final user entry.
	history := c.roster.Conversation(characterID)

	userMsg, err := c.roster.AddMessage(characterID, content, true, models.OriginUser)
	if err != nil {
		c.release(characterID, rt)
		cancel()
		return models.ChatMessage{}, err
	}
	c.emitCommitted(characterID, userMsg)

	go c.generate(ctx, rt, character, content, history)

	return userMsg, nil
}

// Busy reports whether a round-trip is active for the character.
func (c *Chat) Busy(characterID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active[characterID] != nil
}

// Cancel abandons the round-trip in flight for the character, whether it is
// still waiting on the backend or already revealing. The backend context is
// cancelled, the slot is freed immediately for a new submission, and the
// abandoned round-trip never commits its message.
func (c *Chat) Cancel(characterID string) {
	c.mu.Lock()
	if rt := c.active[characterID]; rt != nil {
		rt.cancel()
		delete(c.active, characterID)
	}
	c.mu.Unlock()
	c.presenter.Cancel(characterID)
}

func (c *Chat) generate(ctx context.Context, rt *roundTrip, character models.Character, userText string, history []models.ChatMessage) {
	defer rt.cancel()

	llm := c.roster.Settings().LLM
	c.client.SetEndpoint(llm.Endpoint)
	c.client.SetModel(llm.Name)

	systemPrompt := prompt.Compile(character)

	reply, ok := c.client.GenerateResponse(ctx, userText, systemPrompt, history)
	if !ok {
		// Error delivery: the fallback is committed immediately, without a
		// typing reveal, and the conversation returns to idle.
		c.commit(character.ID, rt, reply, models.OriginFallback)
		return
	}

	if !c.owns(character.ID, rt) {
		return
	}
	c.presenter.Reveal(character.ID, reply,
		func(partial string) {
			if c.events != nil && c.owns(character.ID, rt) {
				c.events.TypingTick(character.ID, partial)
			}
		},
		func(full string) {
			c.commit(character.ID, rt, full, models.OriginModel)
		},
	)
}

// commit appends the generated message and frees the slot, provided this
// round-trip is still the registered one. Commit and Cancel contend on the
// same lock, so an abandoned round-trip can never slip its message in after
// the cancellation.
func (c *Chat) commit(characterID string, rt *roundTrip, content string, origin models.MessageOrigin) {
	c.mu.Lock()
	if c.active[characterID] != rt {
		c.mu.Unlock()
		return
	}
	msg, err := c.roster.AddMessage(characterID, content, false, origin)
	delete(c.active, characterID)
	c.mu.Unlock()

	if err != nil {
		c.log.LogError(err, "failed to commit generated message", "character_id", characterID)
		return
	}
	c.emitCommitted(characterID, msg)
}

// release frees the slot without committing anything.
func (c *Chat) release(characterID string, rt *roundTrip) {
	c.mu.Lock()
	if c.active[characterID] == rt {
		delete(c.active, characterID)
	}
	c.mu.Unlock()
}

// owns reports whether rt is still the registered round-trip.
func (c *Chat) owns(characterID string, rt *roundTrip) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active[characterID] == rt
}

func (c *Chat) emitCommitted(characterID string, msg models.ChatMessage) {
	if c.events != nil {
		c.events.MessageCommitted(characterID, msg)
	}
}
