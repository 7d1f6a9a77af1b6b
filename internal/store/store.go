// Package store persists the character roster, the per-character
// conversation histories and the model settings. Collections are small,
// single-user data; every save writes the whole collection.
package store

import (
	"context"
	"encoding/json"
	"errors"

	"lume-companion/backend/internal/models"
	"lume-companion/backend/pkg/logger"
)

// Storage keys, kept identical to the browser build's localStorage keys so
// exported data stays interchangeable between the two variants.
const (
	keyCharacters    = "aiCharacters"
	keyConversations = "aiConversations"
	keyModelConfig   = "aiModelConfig"
	keyCardSize      = "aiCardSize"
)

// Store is the typed persistence surface consumed by the conversation
// manager. Implementations must treat missing or malformed stored data as
// empty defaults rather than failing the load.
type Store interface {
	LoadCharacters() ([]models.Character, error)
	SaveCharacters(characters []models.Character) error
	LoadConversations() (map[string][]models.ChatMessage, error)
	SaveConversations(conversations map[string][]models.ChatMessage) error
	LoadSettings() (models.Settings, error)
	SaveSettings(settings models.Settings) error
	Close() error
}

// kvStore implements Store over a KV surface.
type kvStore struct {
	kv  KV
	log *logger.Logger
}

// NewKVStore wraps a KV backend in the typed store interface.
func NewKVStore(kv KV, log *logger.Logger) Store {
	if log == nil {
		log = logger.GetGlobal()
	}
	return &kvStore{kv: kv, log: log}
}

func (s *kvStore) LoadCharacters() ([]models.Character, error) {
	var characters []models.Character
	if !s.load(keyCharacters, &characters) {
		return []models.Character{}, nil
	}
	return characters, nil
}

func (s *kvStore) SaveCharacters(characters []models.Character) error {
	return s.save(keyCharacters, characters)
}

func (s *kvStore) LoadConversations() (map[string][]models.ChatMessage, error) {
	var conversations map[string][]models.ChatMessage
	if !s.load(keyConversations, &conversations) || conversations == nil {
		return map[string][]models.ChatMessage{}, nil
	}
	return conversations, nil
}

func (s *kvStore) SaveConversations(conversations map[string][]models.ChatMessage) error {
	return s.save(keyConversations, conversations)
}

func (s *kvStore) LoadSettings() (models.Settings, error) {
	settings := models.DefaultSettings()
	s.load(keyModelConfig, &settings)
	var cardSize string
	if s.load(keyCardSize, &cardSize) && cardSize != "" {
		settings.CardSize = cardSize
	}
	return settings, nil
}

func (s *kvStore) SaveSettings(settings models.Settings) error {
	if err := s.save(keyModelConfig, settings); err != nil {
		return err
	}
	return s.save(keyCardSize, settings.CardSize)
}

func (s *kvStore) Close() error {
	return s.kv.Close()
}

// load reads and decodes one key. Returns false when the key is absent or
// the stored JSON is malformed; malformed data is logged and treated as "no
// stored data" so startup never fails on it.
func (s *kvStore) load(key string, out any) bool {
	raw, err := s.kv.Get(context.Background(), key)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			s.log.LogError(err, "failed to read stored data", "key", key)
		}
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		s.log.LogError(err, "discarding malformed stored data", "key", key)
		return false
	}
	return true
}

func (s *kvStore) save(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.kv.Set(context.Background(), key, raw)
}
