package store

import (
	"os"
	"path/filepath"
	"testing"

	"lume-companion/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	fs, err := NewFileStore(t.TempDir(), nil)
	require.NoError(t, err)
	return fs
}

func TestFileStoreCharacterFiles(t *testing.T) {
	fs := newTestFileStore(t)

	characters := []models.Character{
		{ID: "a1", Name: "Maya", Personality: models.Personality{"kinkiness": 40}},
		{ID: "b2", Name: "Iris", Personality: models.Personality{"humor": 90}},
	}
	require.NoError(t, fs.SaveCharacters(characters))

	// One file per character id.
	assert.FileExists(t, fs.characterPath("a1"))
	assert.FileExists(t, fs.characterPath("b2"))

	loaded, err := fs.LoadCharacters()
	require.NoError(t, err)
	assert.ElementsMatch(t, characters, loaded)
}

func TestFileStoreRemovesDeletedCharacterFiles(t *testing.T) {
	fs := newTestFileStore(t)

	require.NoError(t, fs.SaveCharacters([]models.Character{
		{ID: "a1", Name: "Maya"},
		{ID: "b2", Name: "Iris"},
	}))
	require.NoError(t, fs.SaveCharacters([]models.Character{
		{ID: "a1", Name: "Maya"},
	}))

	assert.FileExists(t, fs.characterPath("a1"))
	assert.NoFileExists(t, fs.characterPath("b2"))
}

func TestFileStoreSkipsMalformedCharacterFile(t *testing.T) {
	fs := newTestFileStore(t)

	require.NoError(t, fs.SaveCharacters([]models.Character{{ID: "a1", Name: "Maya"}}))
	require.NoError(t, os.WriteFile(fs.characterPath("broken"), []byte("{oops"), 0o644))

	loaded, err := fs.LoadCharacters()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "a1", loaded[0].ID)
}

func TestFileStoreSettingsAndConversations(t *testing.T) {
	fs := newTestFileStore(t)

	settings, err := fs.LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, models.DefaultSettings(), settings)

	settings.LLM.Name = "llama3"
	require.NoError(t, fs.SaveSettings(settings))
	assert.FileExists(t, filepath.Join(fs.dir, "settings.json"))

	loaded, err := fs.LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, "llama3", loaded.LLM.Name)

	conversations := map[string][]models.ChatMessage{
		"a1": {{ID: "m1", SenderID: models.UserSenderID, Content: "hi", IsUser: true, Origin: models.OriginUser}},
	}
	require.NoError(t, fs.SaveConversations(conversations))
	loadedConvs, err := fs.LoadConversations()
	require.NoError(t, err)
	assert.Len(t, loadedConvs["a1"], 1)
}
