// Package service owns the conversation state: the character roster, the
// per-character histories and the orchestration of a generation round-trip.
package service

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"lume-companion/backend/internal/models"
	"lume-companion/backend/internal/store"
	apperrors "lume-companion/backend/pkg/errors"
	"lume-companion/backend/pkg/logger"
	"lume-companion/backend/pkg/notify"

	"github.com/google/uuid"
)

// Backend kinds accepted by UpdateModelConfig.
const (
	ConfigLLM      = "llm"
	ConfigImageGen = "imageGen"
)

// Roster is the conversation manager: it owns the mutable character and
// conversation state and mediates all access to the persistent store. It is
// an explicitly constructed service passed by reference to its consumers;
// there is no package-level instance.
//
// Every mutation persists the complete updated collection. The collections
// are small single-user data, so the O(size) write per change is acceptable.
// Store writes happen outside the state mutex, against a snapshot taken
// under it; saveMu is acquired before the state mutex is released so writes
// land in mutation order.
type Roster struct {
	store    store.Store
	notifier notify.Notifier
	log      *logger.Logger

	mu            sync.RWMutex
	characters    []models.Character
	conversations map[string][]models.ChatMessage
	settings      models.Settings
	activeID      string
	deleting      map[string]bool

	saveMu sync.Mutex
}

// NewRoster loads state from the store. Load failures beyond "nothing
// stored yet" are logged by the store layer and surface here as defaults;
// startup never fails on malformed stored data.
func NewRoster(st store.Store, notifier notify.Notifier, log *logger.Logger) (*Roster, error) {
	if log == nil {
		log = logger.GetGlobal()
	}

	characters, err := st.LoadCharacters()
	if err != nil {
		return nil, fmt.Errorf("loading characters: %w", err)
	}
	conversations, err := st.LoadConversations()
	if err != nil {
		return nil, fmt.Errorf("loading conversations: %w", err)
	}
	settings, err := st.LoadSettings()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	return &Roster{
		store:         st,
		notifier:      notifier,
		log:           log,
		characters:    characters,
		conversations: conversations,
		settings:      settings,
		deleting:      make(map[string]bool),
	}, nil
}

// Characters returns a copy of the character collection.
func (r *Roster) Characters() []models.Character {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Character, len(r.characters))
	copy(out, r.characters)
	return out
}

// Character looks up one character by id.
func (r *Roster) Character(id string) (models.Character, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ch := range r.characters {
		if ch.ID == id {
			return ch, nil
		}
	}
	return models.Character{}, characterNotFound(id)
}

// CreateCharacter assigns a fresh id, appends the character and persists the
// collection.
func (r *Roster) CreateCharacter(draft models.CharacterDraft) (models.Character, error) {
	if draft.Name == nil || strings.TrimSpace(*draft.Name) == "" {
		return models.Character{}, apperrors.NewBadRequestError("CHARACTER_NAME_REQUIRED", "character name is required")
	}

	ch := models.Character{
		ID:          uuid.New().String(),
		Personality: models.Personality{},
	}
	draft.ApplyTo(&ch)

	r.mu.Lock()
	r.characters = append(r.characters, ch)
	if err := r.flushCharacters(); err != nil {
		return models.Character{}, err
	}

	r.notify(func(n notify.Notifier) { n.Success("Created character: " + ch.Name) })
	return ch, nil
}

// UpdateCharacter merges the draft into the matching record, shallow field
// overwrite with omitted fields retained. If the character is the active
// one, the active reference follows the merged value.
//
// An unknown id is reported as a not-found error; all id-keyed operations
// share that policy.
func (r *Roster) UpdateCharacter(id string, draft models.CharacterDraft) (models.Character, error) {
	r.mu.Lock()
	idx := r.indexOf(id)
	if idx < 0 {
		r.mu.Unlock()
		return models.Character{}, characterNotFound(id)
	}

	draft.ApplyTo(&r.characters[idx])
	updated := r.characters[idx]
	if err := r.flushCharacters(); err != nil {
		return models.Character{}, err
	}

	r.notify(func(n notify.Notifier) { n.Success("Updated character: " + updated.Name) })
	return updated, nil
}

// DeleteCharacter removes the character record and its conversation history
// as a single logical unit. The id stays marked as in flight for the whole
// deletion, including the store writes, so a re-entrant call for the same id
// during that window is ignored rather than reported as missing.
func (r *Roster) DeleteCharacter(id string) error {
	r.mu.Lock()
	if r.deleting[id] {
		r.mu.Unlock()
		return nil
	}
	idx := r.indexOf(id)
	if idx < 0 {
		r.mu.Unlock()
		return characterNotFound(id)
	}

	r.deleting[id] = true
	name := r.characters[idx].Name
	r.characters = append(r.characters[:idx], r.characters[idx+1:]...)
	delete(r.conversations, id)
	if r.activeID == id {
		r.activeID = ""
	}

	// Both snapshots go out under one saveMu hold so the record and its
	// history disappear from the store together.
	characters := make([]models.Character, len(r.characters))
	copy(characters, r.characters)
	conversations := make(map[string][]models.ChatMessage, len(r.conversations))
	for k, v := range r.conversations {
		conversations[k] = v
	}
	r.saveMu.Lock()
	r.mu.Unlock()
	charErr := r.store.SaveCharacters(characters)
	convErr := r.store.SaveConversations(conversations)
	r.saveMu.Unlock()

	r.mu.Lock()
	delete(r.deleting, id)
	r.mu.Unlock()

	if charErr != nil {
		r.log.LogError(charErr, "failed to persist characters")
		return apperrors.NewInternalServerError("PERSIST_FAILED", "failed to save characters")
	}
	if convErr != nil {
		r.log.LogError(convErr, "failed to persist conversations")
		return apperrors.NewInternalServerError("PERSIST_FAILED", "failed to save conversations")
	}

	r.notify(func(n notify.Notifier) { n.Success("Deleted character: " + name) })
	return nil
}

// SetActiveCharacter marks the character as active for the UI.
func (r *Roster) SetActiveCharacter(id string) (models.Character, error) {
	r.mu.Lock()
	idx := r.indexOf(id)
	if idx < 0 {
		r.mu.Unlock()
		r.notify(func(n notify.Notifier) { n.Error("Character not found") })
		return models.Character{}, characterNotFound(id)
	}
	r.activeID = id
	ch := r.characters[idx]
	r.mu.Unlock()
	return ch, nil
}

// ActiveCharacter returns the currently active character, if any.
func (r *Roster) ActiveCharacter() (models.Character, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.activeID == "" {
		return models.Character{}, false
	}
	for _, ch := range r.characters {
		if ch.ID == r.activeID {
			return ch, true
		}
	}
	return models.Character{}, false
}

// ToggleFavorite flips the favorite flag.
func (r *Roster) ToggleFavorite(id string) (models.Character, error) {
	r.mu.Lock()
	idx := r.indexOf(id)
	if idx < 0 {
		r.mu.Unlock()
		return models.Character{}, characterNotFound(id)
	}
	r.characters[idx].IsFavorite = !r.characters[idx].IsFavorite
	updated := r.characters[idx]
	if err := r.flushCharacters(); err != nil {
		return models.Character{}, err
	}

	r.notify(func(n notify.Notifier) {
		if updated.IsFavorite {
			n.Success("Added to favorites")
		} else {
			n.Success("Removed from favorites")
		}
	})
	return updated, nil
}

// AddMessage appends a message to the character's history, creating the
// history on first use, and persists the conversation map. Messages are
// never mutated or removed individually afterwards.
func (r *Roster) AddMessage(characterID, content string, isUser bool, origin models.MessageOrigin) (models.ChatMessage, error) {
	senderID := characterID
	if isUser {
		senderID = models.UserSenderID
	}
	msg := models.ChatMessage{
		ID:        uuid.New().String(),
		SenderID:  senderID,
		Content:   content,
		Timestamp: time.Now(),
		IsUser:    isUser,
		Origin:    origin,
	}

	r.mu.Lock()
	if r.indexOf(characterID) < 0 {
		r.mu.Unlock()
		return models.ChatMessage{}, characterNotFound(characterID)
	}
	r.conversations[characterID] = append(r.conversations[characterID], msg)
	if err := r.flushConversations(); err != nil {
		return models.ChatMessage{}, err
	}
	return msg, nil
}

// Conversation returns a copy of the character's ordered history.
func (r *Roster) Conversation(characterID string) []models.ChatMessage {
	r.mu.RLock()
	defer r.mu.RUnlock()
	history := r.conversations[characterID]
	out := make([]models.ChatMessage, len(history))
	copy(out, history)
	return out
}

// Settings returns the current model configuration and UI preferences.
func (r *Roster) Settings() models.Settings {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.settings
}

// UpdateModelConfig merges a partial config into the named backend config
// ("llm" or "imageGen") and persists the settings.
func (r *Roster) UpdateModelConfig(kind string, patch models.ModelConfigPatch) (models.Settings, error) {
	r.mu.Lock()
	switch kind {
	case ConfigLLM:
		patch.ApplyTo(&r.settings.LLM)
	case ConfigImageGen:
		patch.ApplyTo(&r.settings.ImageGen)
	default:
		r.mu.Unlock()
		return models.Settings{}, apperrors.NewBadRequestError("UNKNOWN_BACKEND", "unknown backend kind: "+kind)
	}
	settings := r.settings
	if err := r.flushSettings(); err != nil {
		return models.Settings{}, err
	}

	r.notify(func(n notify.Notifier) {
		if kind == ConfigLLM {
			n.Success("Updated language model settings")
		} else {
			n.Success("Updated image generation settings")
		}
	})
	return settings, nil
}

// SetCardSize persists the card-size UI preference.
func (r *Roster) SetCardSize(size string) error {
	r.mu.Lock()
	r.settings.CardSize = size
	return r.flushSettings()
}

// indexOf returns the character's position, or -1. Caller holds the lock.
func (r *Roster) indexOf(id string) int {
	for i, ch := range r.characters {
		if ch.ID == id {
			return i
		}
	}
	return -1
}

// flushCharacters persists a snapshot of the character collection. The
// caller must hold mu; it is released before the store write so a slow
// backend does not block readers. On return mu is no longer held.
func (r *Roster) flushCharacters() error {
	characters := make([]models.Character, len(r.characters))
	copy(characters, r.characters)
	r.saveMu.Lock()
	r.mu.Unlock()
	err := r.store.SaveCharacters(characters)
	r.saveMu.Unlock()

	if err != nil {
		r.log.LogError(err, "failed to persist characters")
		return apperrors.NewInternalServerError("PERSIST_FAILED", "failed to save characters")
	}
	return nil
}

// flushConversations persists a snapshot of the conversation map. Same
// locking contract as flushCharacters.
func (r *Roster) flushConversations() error {
	conversations := make(map[string][]models.ChatMessage, len(r.conversations))
	for k, v := range r.conversations {
		conversations[k] = v
	}
	r.saveMu.Lock()
	r.mu.Unlock()
	err := r.store.SaveConversations(conversations)
	r.saveMu.Unlock()

	if err != nil {
		r.log.LogError(err, "failed to persist conversations")
		return apperrors.NewInternalServerError("PERSIST_FAILED", "failed to save conversations")
	}
	return nil
}

// flushSettings persists the current settings. Same locking contract as
// flushCharacters.
func (r *Roster) flushSettings() error {
	settings := r.settings
	r.saveMu.Lock()
	r.mu.Unlock()
	err := r.store.SaveSettings(settings)
	r.saveMu.Unlock()

	if err != nil {
		r.log.LogError(err, "failed to persist settings")
		return apperrors.NewInternalServerError("PERSIST_FAILED", "failed to save settings")
	}
	return nil
}

func (r *Roster) notify(fn func(notify.Notifier)) {
	if r.notifier != nil {
		fn(r.notifier)
	}
}

func characterNotFound(id string) *apperrors.AppError {
	return apperrors.NewNotFoundError("CHARACTER_NOT_FOUND", "character not found: "+id)
}
