package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"lume-companion/backend/internal/models"
	"lume-companion/backend/pkg/logger"
)

// FileStore persists data the way the desktop shell's file surface does: one
// <id>.json per character under <dir>/characters, plus settings.json and
// conversations.json in the data directory.
type FileStore struct {
	dir string
	log *logger.Logger
}

// NewFileStore creates the data directories if needed.
func NewFileStore(dir string, log *logger.Logger) (*FileStore, error) {
	if log == nil {
		log = logger.GetGlobal()
	}
	if err := os.MkdirAll(filepath.Join(dir, "characters"), 0o755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir, log: log}, nil
}

func (f *FileStore) charactersDir() string {
	return filepath.Join(f.dir, "characters")
}

func (f *FileStore) characterPath(id string) string {
	return filepath.Join(f.charactersDir(), id+".json")
}

func (f *FileStore) LoadCharacters() ([]models.Character, error) {
	entries, err := os.ReadDir(f.charactersDir())
	if err != nil {
		if os.IsNotExist(err) {
			return []models.Character{}, nil
		}
		return nil, err
	}

	characters := []models.Character{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(f.charactersDir(), entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			f.log.LogError(err, "failed to read character file", "path", path)
			continue
		}
		var ch models.Character
		if err := json.Unmarshal(raw, &ch); err != nil {
			f.log.LogError(err, "discarding malformed character file", "path", path)
			continue
		}
		characters = append(characters, ch)
	}
	return characters, nil
}

// SaveCharacters writes every character to its own file and removes files
// for characters no longer in the collection.
func (f *FileStore) SaveCharacters(characters []models.Character) error {
	keep := make(map[string]bool, len(characters))
	for _, ch := range characters {
		keep[ch.ID] = true
		if err := f.writeJSON(f.characterPath(ch.ID), ch); err != nil {
			return err
		}
	}

	entries, err := os.ReadDir(f.charactersDir())
	if err != nil {
		return err
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		id := strings.TrimSuffix(name, ".json")
		if !keep[id] {
			if err := os.Remove(filepath.Join(f.charactersDir(), name)); err != nil {
				f.log.LogError(err, "failed to remove deleted character file", "id", id)
			}
		}
	}
	return nil
}

func (f *FileStore) LoadConversations() (map[string][]models.ChatMessage, error) {
	conversations := map[string][]models.ChatMessage{}
	f.readJSON(filepath.Join(f.dir, "conversations.json"), &conversations)
	if conversations == nil {
		conversations = map[string][]models.ChatMessage{}
	}
	return conversations, nil
}

func (f *FileStore) SaveConversations(conversations map[string][]models.ChatMessage) error {
	return f.writeJSON(filepath.Join(f.dir, "conversations.json"), conversations)
}

func (f *FileStore) LoadSettings() (models.Settings, error) {
	settings := models.DefaultSettings()
	f.readJSON(filepath.Join(f.dir, "settings.json"), &settings)
	return settings, nil
}

func (f *FileStore) SaveSettings(settings models.Settings) error {
	return f.writeJSON(filepath.Join(f.dir, "settings.json"), settings)
}

func (f *FileStore) Close() error { return nil }

func (f *FileStore) readJSON(path string, out any) bool {
	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			f.log.LogError(err, "failed to read stored data", "path", path)
		}
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		f.log.LogError(err, "discarding malformed stored data", "path", path)
		return false
	}
	return true
}

func (f *FileStore) writeJSON(path string, value any) error {
	raw, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}
