package models

// Backend kind discriminators for ModelConfig.Type.
const (
	BackendOllama    = "ollama"
	BackendStability = "stability"
)

// ModelConfig describes one external generation backend.
type ModelConfig struct {
	Name     string `json:"name"`
	Endpoint string `json:"endpoint"`
	Type     string `json:"type"`
	APIKey   string `json:"apiKey,omitempty"`
}

// ModelConfigPatch is a partial ModelConfig; nil fields are retained.
type ModelConfigPatch struct {
	Name     *string `json:"name,omitempty"`
	Endpoint *string `json:"endpoint,omitempty"`
	Type     *string `json:"type,omitempty"`
	APIKey   *string `json:"apiKey,omitempty"`
}

// ApplyTo merges the patch into the config.
func (p ModelConfigPatch) ApplyTo(cfg *ModelConfig) {
	if p.Name != nil {
		cfg.Name = *p.Name
	}
	if p.Endpoint != nil {
		cfg.Endpoint = *p.Endpoint
	}
	if p.Type != nil {
		cfg.Type = *p.Type
	}
	if p.APIKey != nil {
		cfg.APIKey = *p.APIKey
	}
}

// Settings bundles the per-backend model configuration with the one UI
// preference the core persists.
type Settings struct {
	LLM      ModelConfig `json:"llm"`
	ImageGen ModelConfig `json:"imageGen"`
	CardSize string      `json:"cardSize,omitempty"`
}

// DefaultSettings mirrors the defaults the app shipped with: a local Ollama
// instance for text and Stability for portraits.
func DefaultSettings() Settings {
	return Settings{
		LLM: ModelConfig{
			Name:     "mistral",
			Endpoint: "http://localhost:11434/api",
			Type:     BackendOllama,
		},
		ImageGen: ModelConfig{
			Name:     "stable-diffusion-v1-5",
			Endpoint: "https://api.stability.ai",
			Type:     BackendStability,
		},
		CardSize: "medium",
	}
}
