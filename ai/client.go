// Package ai holds the thin adapters around the external generation
// backends: the local chat-completion server for text and the remote
// text-to-image service for portraits.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"lume-companion/backend/internal/models"
	"lume-companion/backend/pkg/logger"
	"lume-companion/backend/pkg/notify"
	"lume-companion/backend/pkg/resilience"
)

// FallbackResponse is the fixed in-character reply committed when the text
// backend cannot be reached. Callers identify error messages by the Origin
// tag on the stored message, never by matching this text.
const FallbackResponse = "I apologize, but I'm having trouble connecting to my language model. Please ensure Ollama is running on your computer."

const defaultTimeout = 60 * time.Second

// Client talks to an Ollama-style chat endpoint. Model and endpoint must be
// set (from the active ModelConfig) before each call.
type Client struct {
	httpClient *http.Client
	log        *logger.Logger
	notifier   notify.Notifier
	breaker    *resilience.CircuitBreaker

	mu       sync.RWMutex
	endpoint string
	model    string
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithTimeout overrides the per-request deadline.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithBreaker replaces the default circuit breaker.
func WithBreaker(breaker *resilience.CircuitBreaker) ClientOption {
	return func(c *Client) { c.breaker = breaker }
}

// NewClient creates a generation client. notifier may be nil, in which case
// failures are only logged.
func NewClient(log *logger.Logger, notifier notify.Notifier, opts ...ClientOption) *Client {
	if log == nil {
		log = logger.GetGlobal()
	}
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		log:        log,
		notifier:   notifier,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.breaker == nil {
		c.breaker = resilience.New(resilience.DefaultConfig("llm"), log)
	}
	return c
}

// SetEndpoint sets the backend base URL for subsequent calls.
func (c *Client) SetEndpoint(endpoint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endpoint = endpoint
}

// SetModel selects the model name for subsequent calls.
func (c *Client) SetModel(model string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.model = model
}

// GenerateResponse sends the compiled system prompt, the prior history and
// the new user message to the backend and returns the assistant's reply
// verbatim. It never fails hard: any transport, status or decode problem
// yields (FallbackResponse, false) and a transient error notification, so a
// conversation is never left without a response.
func (c *Client) GenerateResponse(ctx context.Context, userText, systemPrompt string, history []models.ChatMessage) (string, bool) {
	reply, err := c.chat(ctx, userText, systemPrompt, history)
	if err != nil {
		c.log.LogError(err, "text generation failed")
		if c.notifier != nil {
			c.notifier.Error("Failed to connect to the language model. Make sure it's running locally.")
		}
		return FallbackResponse, false
	}
	return reply, true
}

func (c *Client) chat(ctx context.Context, userText, systemPrompt string, history []models.ChatMessage) (string, error) {
	c.mu.RLock()
	endpoint, model := c.endpoint, c.model
	c.mu.RUnlock()

	if endpoint == "" || model == "" {
		return "", fmt.Errorf("generation client not configured: endpoint=%q model=%q", endpoint, model)
	}

	messages := make([]message, 0, len(history)+2)
	messages = append(messages, message{Role: "system", Content: systemPrompt})
	for _, msg := range history {
		role := "assistant"
		if msg.IsUser {
			role = "user"
		}
		messages = append(messages, message{Role: role, Content: msg.Content})
	}
	messages = append(messages, message{Role: "user", Content: userText})

	jsonData, err := json.Marshal(chatRequest{
		Model:    model,
		Messages: messages,
		Stream:   false,
	})
	if err != nil {
		return "", fmt.Errorf("error marshaling request: %w", err)
	}

	var reply string
	err = c.breaker.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"/chat", bytes.NewBuffer(jsonData))
		if err != nil {
			return fmt.Errorf("error creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("error making API request: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("error reading response body: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("API request failed with status code %d: %s", resp.StatusCode, string(body))
		}

		var chatResp chatResponse
		if err := json.Unmarshal(body, &chatResp); err != nil {
			return fmt.Errorf("error unmarshaling response: %w", err)
		}
		if chatResp.Error != "" {
			return fmt.Errorf("API error: %s", chatResp.Error)
		}

		reply = chatResp.Message.Content
		return nil
	})
	if err != nil {
		return "", err
	}
	return reply, nil
}

// ListModels returns the model names the backend advertises.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	c.mu.RLock()
	endpoint := c.endpoint
	c.mu.RUnlock()

	if endpoint == "" {
		return nil, fmt.Errorf("generation client not configured: empty endpoint")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error making API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API request failed with status code %d: %s", resp.StatusCode, string(body))
	}

	var tagsResp tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tagsResp); err != nil {
		return nil, fmt.Errorf("error unmarshaling response: %w", err)
	}

	names := make([]string, 0, len(tagsResp.Models))
	for _, m := range tagsResp.Models {
		names = append(names, m.Name)
	}
	return names, nil
}
