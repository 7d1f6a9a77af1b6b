package store

import (
	"context"
	"testing"
	"time"

	"lume-companion/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKVStoreRoundtrip(t *testing.T) {
	s := NewKVStore(NewMemoryKV(), nil)

	characters := []models.Character{
		{
			ID:          "c1",
			Name:        "Maya",
			Description: "A cheerful baker.",
			Personality: models.Personality{"kinkiness": 80, "dominance": 20},
			Tags:        []string{"cozy"},
			IsFavorite:  true,
		},
	}
	require.NoError(t, s.SaveCharacters(characters))

	loaded, err := s.LoadCharacters()
	require.NoError(t, err)
	assert.Equal(t, characters, loaded)

	conversations := map[string][]models.ChatMessage{
		"c1": {
			{
				ID:        "m1",
				SenderID:  models.UserSenderID,
				Content:   "hello",
				Timestamp: time.Now().UTC().Truncate(time.Millisecond),
				IsUser:    true,
				Origin:    models.OriginUser,
			},
		},
	}
	require.NoError(t, s.SaveConversations(conversations))

	loadedConvs, err := s.LoadConversations()
	require.NoError(t, err)
	assert.Equal(t, conversations, loadedConvs)
}

func TestKVStoreDefaultsWhenEmpty(t *testing.T) {
	s := NewKVStore(NewMemoryKV(), nil)

	characters, err := s.LoadCharacters()
	require.NoError(t, err)
	assert.Empty(t, characters)

	conversations, err := s.LoadConversations()
	require.NoError(t, err)
	assert.NotNil(t, conversations)
	assert.Empty(t, conversations)

	settings, err := s.LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, models.DefaultSettings(), settings)
}

func TestKVStoreMalformedDataFallsBackToDefaults(t *testing.T) {
	kv := NewMemoryKV()
	require.NoError(t, kv.Set(context.Background(), keyCharacters, []byte("{not json")))
	require.NoError(t, kv.Set(context.Background(), keyModelConfig, []byte("42garbage")))

	s := NewKVStore(kv, nil)

	characters, err := s.LoadCharacters()
	require.NoError(t, err)
	assert.Empty(t, characters)

	settings, err := s.LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, models.DefaultSettings(), settings)
}

func TestKVStoreSettingsRoundtrip(t *testing.T) {
	s := NewKVStore(NewMemoryKV(), nil)

	settings := models.DefaultSettings()
	settings.LLM.Name = "llama3"
	settings.ImageGen.APIKey = "sk-test"
	settings.CardSize = "large"
	require.NoError(t, s.SaveSettings(settings))

	loaded, err := s.LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, settings, loaded)
}
