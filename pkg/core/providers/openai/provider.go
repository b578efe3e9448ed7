// Package openai implements the completion backend over the OpenAI Chat
// Completions API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/voicewire/voicewire/pkg/core"
)

const (
	// DefaultBaseURL is the default OpenAI API endpoint.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is used when no model is configured.
	DefaultModel = "gpt-4o-mini"

	// DefaultSystemPrompt frames the backend as a phone agent. Replies are
	// spoken aloud, so they have to stay short.
	DefaultSystemPrompt = "You are a helpful voice assistant on a phone call. " +
		"Answer in one or two short spoken sentences. Never use markup or lists."

	maxErrorBodyBytes = 400
)

// Provider implements core.Completer against the Chat Completions API.
type Provider struct {
	apiKey       string
	baseURL      string
	model        string
	systemPrompt string
	httpClient   *http.Client
}

// Option configures the provider.
type Option func(*Provider)

// WithBaseURL overrides the API endpoint (used by tests).
func WithBaseURL(baseURL string) Option {
	return func(p *Provider) {
		if s := strings.TrimSpace(baseURL); s != "" {
			p.baseURL = strings.TrimRight(s, "/")
		}
	}
}

// WithModel overrides the model.
func WithModel(model string) Option {
	return func(p *Provider) {
		if s := strings.TrimSpace(model); s != "" {
			p.model = s
		}
	}
}

// WithSystemPrompt overrides the system framing.
func WithSystemPrompt(prompt string) Option {
	return func(p *Provider) {
		if s := strings.TrimSpace(prompt); s != "" {
			p.systemPrompt = s
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) {
		if client != nil {
			p.httpClient = client
		}
	}
}

// New creates a provider.
func New(apiKey string, opts ...Option) *Provider {
	p := &Provider{
		apiKey:       strings.TrimSpace(apiKey),
		baseURL:      DefaultBaseURL,
		model:        DefaultModel,
		systemPrompt: DefaultSystemPrompt,
		httpClient:   &http.Client{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the backend identifier.
func (p *Provider) Name() string {
	return "openai"
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends one prompt and returns the first choice's text.
// Every failure comes back as a completion error; there is no retry.
func (p *Provider) Complete(ctx context.Context, prompt string) (string, error) {
	if p.apiKey == "" {
		return "", core.NewCompletionError(fmt.Errorf("openai api key is required"))
	}

	body, err := json.Marshal(chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: p.systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return "", core.NewCompletionError(fmt.Errorf("encode request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", core.NewCompletionError(err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", core.NewCompletionError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", core.NewCompletionError(fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return "", core.NewCompletionError(
			fmt.Errorf("openai chat %d: %s", resp.StatusCode, truncate(string(respBody), maxErrorBodyBytes)))
	}

	var out chatResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", core.NewCompletionError(fmt.Errorf("decode response: %w", err))
	}
	if len(out.Choices) == 0 {
		return "", core.NewCompletionError(fmt.Errorf("no choices in response"))
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
