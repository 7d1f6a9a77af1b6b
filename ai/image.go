package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"lume-companion/backend/pkg/logger"
	"lume-companion/backend/pkg/notify"
)

// Validation errors surfaced before any request is made.
var (
	ErrMissingAPIKey = errors.New("image generation API key not set")
	ErrEmptyPrompt   = errors.New("image prompt is empty")
)

// ImageClient generates character portraits through a Stability-style
// text-to-image endpoint.
type ImageClient struct {
	httpClient *http.Client
	log        *logger.Logger
	notifier   notify.Notifier

	mu     sync.RWMutex
	host   string
	model  string
	apiKey string
}

// NewImageClient creates a portrait client. notifier may be nil.
func NewImageClient(log *logger.Logger, notifier notify.Notifier) *ImageClient {
	if log == nil {
		log = logger.GetGlobal()
	}
	return &ImageClient{
		httpClient: &http.Client{Timeout: 120 * time.Second},
		log:        log,
		notifier:   notifier,
	}
}

// Configure sets host, model and API key from the active image ModelConfig.
func (c *ImageClient) Configure(host, model, apiKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.host = host
	c.model = model
	c.apiKey = apiKey
}

// GenerateImage renders the prompt and returns the portrait as a data URI,
// stored verbatim as the character's image URL. Missing configuration fails
// fast with a notification; no request is made.
func (c *ImageClient) GenerateImage(ctx context.Context, prompt string) (string, error) {
	c.mu.RLock()
	host, model, apiKey := c.host, c.model, c.apiKey
	c.mu.RUnlock()

	if apiKey == "" {
		if c.notifier != nil {
			c.notifier.Error("API key not set for image generation")
		}
		return "", ErrMissingAPIKey
	}
	if prompt == "" {
		if c.notifier != nil {
			c.notifier.Error("Please enter a prompt for the portrait")
		}
		return "", ErrEmptyPrompt
	}

	jsonData, err := json.Marshal(imageRequest{
		TextPrompts: []textPrompt{{Text: prompt, Weight: 1}},
		CfgScale:    7,
		Height:      512,
		Width:       512,
		Samples:     1,
		Steps:       30,
	})
	if err != nil {
		return "", fmt.Errorf("error marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/generation/%s/text-to-image", host, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("error making API request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp imageResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Message != "" {
			return "", fmt.Errorf("image API error: %s", errResp.Message)
		}
		return "", fmt.Errorf("image API request failed with status code %d", resp.StatusCode)
	}

	var imageResp imageResponse
	if err := json.Unmarshal(body, &imageResp); err != nil {
		return "", fmt.Errorf("error unmarshaling response: %w", err)
	}
	if len(imageResp.Artifacts) == 0 {
		return "", errors.New("no image generated")
	}

	return "data:image/png;base64," + imageResp.Artifacts[0].Base64, nil
}
