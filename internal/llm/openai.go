// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pdiddy/goal-engine/internal/httputil"
	"github.com/pdiddy/goal-engine/pkg/types"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "gpt-4-turbo-preview"

	defaultTemperature = 0.7
	defaultMaxTokens   = 2000
)

// OpenAIBackend calls the OpenAI chat-completions API.
type OpenAIBackend struct {
	apiKey      string
	model       string
	baseURL     string
	temperature float64
	maxTokens   int
	maxRetries  int
	client      *http.Client
}

// NewOpenAIBackend constructs an OpenAI backend. A missing API key is a
// construction error, raised immediately and never retried.
func NewOpenAIBackend(cfg types.CompletionConfig) (*OpenAIBackend, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	b := &OpenAIBackend{
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		baseURL:     cfg.BaseURL,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		maxRetries:  cfg.MaxRetries,
		client:      &http.Client{Timeout: 5 * time.Minute},
	}
	if b.model == "" {
		b.model = defaultOpenAIModel
	}
	if b.baseURL == "" {
		b.baseURL = defaultOpenAIBaseURL
	}
	if b.temperature == 0 {
		b.temperature = defaultTemperature
	}
	if b.maxTokens <= 0 {
		b.maxTokens = defaultMaxTokens
	}
	return b, nil
}

// chatRequest is the request body for the chat-completions endpoint.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

// chatMessage is a single message in the chat-completions conversation.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the response body from the chat-completions endpoint.
// Choices carry either a message object or, on older completion-style
// endpoints, a bare text field.
type chatResponse struct {
	Choices []chatChoice `json:"choices"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
	Text    string      `json:"text"`
}

// Complete sends the prompt as a single user message and returns the
// completion text. Rate-limited requests are retried with backoff. The
// response is normalized here: a message object and a bare text field are
// both accepted, anything else is an error.
func (b *OpenAIBackend) Complete(ctx context.Context, prompt string) (string, error) {
	reqBody := chatRequest{
		Model:       b.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: b.temperature,
		MaxTokens:   b.maxTokens,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.apiKey)

	resp, err := httputil.DoWithRetry(ctx, b.client, req, b.maxRetries)
	if err != nil {
		return "", fmt.Errorf("calling completion API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("completion API returned %d: %s", resp.StatusCode, string(body))
	}

	var cResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return "", fmt.Errorf("decoding completion response: %w", err)
	}

	if len(cResp.Choices) == 0 {
		return "", fmt.Errorf("completion API returned no choices")
	}

	choice := cResp.Choices[0]
	switch {
	case choice.Message.Content != "":
		return choice.Message.Content, nil
	case choice.Text != "":
		return choice.Text, nil
	default:
		return "", fmt.Errorf("unrecognized completion response shape: no message content or text")
	}
}
