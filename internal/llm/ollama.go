// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pdiddy/goal-engine/pkg/types"
)

const (
	defaultOllamaBaseURL = "http://localhost:11434/api"
	defaultOllamaModel   = "llama3"
)

// OllamaBackend calls a locally running Ollama server. No credentials are
// required, so construction cannot fail.
type OllamaBackend struct {
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	client      *http.Client
}

// NewOllamaBackend constructs an Ollama backend.
func NewOllamaBackend(cfg types.CompletionConfig) *OllamaBackend {
	b := &OllamaBackend{
		baseURL:     cfg.BaseURL,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		client:      &http.Client{Timeout: 5 * time.Minute},
	}
	if b.baseURL == "" {
		b.baseURL = defaultOllamaBaseURL
	}
	if b.model == "" {
		b.model = defaultOllamaModel
	}
	if b.temperature == 0 {
		b.temperature = defaultTemperature
	}
	if b.maxTokens <= 0 {
		b.maxTokens = defaultMaxTokens
	}
	return b
}

// ollamaRequest is the request body for the Ollama generate endpoint.
type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Options ollamaOptions `json:"options,omitempty"`
}

// ollamaOptions carries model parameters.
type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

// ollamaChunk is one line of the streamed generate response.
type ollamaChunk struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Complete sends the prompt to the generate endpoint and concatenates the
// streamed response chunks. Streaming is an implementation detail: the
// aggregated text the caller receives is unaffected by it.
func (b *OllamaBackend) Complete(ctx context.Context, prompt string) (string, error) {
	reqBody := ollamaRequest{
		Model:  b.model,
		Prompt: prompt,
		Options: ollamaOptions{
			Temperature: b.temperature,
			NumPredict:  b.maxTokens,
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/generate", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling Ollama API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("Ollama API returned %d: %s", resp.StatusCode, string(body))
	}

	// The generate endpoint streams one JSON object per line.
	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var chunk ollamaChunk
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			return "", fmt.Errorf("parsing Ollama response chunk: %w", err)
		}
		full.WriteString(chunk.Response)
		if chunk.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading response stream: %w", err)
	}

	return full.String(), nil
}
