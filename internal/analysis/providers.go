package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const (
	openAIBaseURL     = "https://api.openai.com/v1"
	openRouterBaseURL = "https://openrouter.ai/api/v1"
)

// Provider is one chat-completion backend.
type Provider interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
	Name() string
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
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

// openAIClient talks to the OpenAI chat completions API.
type openAIClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewOpenAI builds the primary provider. baseURL overrides the public
// endpoint when non-empty.
func NewOpenAI(apiKey, model, baseURL string, client *http.Client) Provider {
	if baseURL == "" {
		baseURL = openAIBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &openAIClient{apiKey: apiKey, model: model, baseURL: baseURL, client: client}
}

func (o *openAIClient) Name() string { return "openai" }

func (o *openAIClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	return chatComplete(ctx, o.client, o.baseURL+"/chat/completions", map[string]string{
		"Authorization": "Bearer " + o.apiKey,
	}, o.model, system, prompt)
}

// openRouterClient talks to the OpenRouter chat completions API, which is
// wire-compatible with OpenAI's.
type openRouterClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewOpenRouter builds the fallback provider.
func NewOpenRouter(apiKey, model, baseURL string, client *http.Client) Provider {
	if baseURL == "" {
		baseURL = openRouterBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &openRouterClient{apiKey: apiKey, model: model, baseURL: baseURL, client: client}
}

func (o *openRouterClient) Name() string { return "openrouter" }

func (o *openRouterClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	return chatComplete(ctx, o.client, o.baseURL+"/chat/completions", map[string]string{
		"Authorization": "Bearer " + o.apiKey,
	}, o.model, system, prompt)
}

func chatComplete(ctx context.Context, client *http.Client, url string, headers map[string]string, model, system, prompt string) (string, error) {
	body, _ := json.Marshal(chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   4000,
		Temperature: 0.7,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("completion API %d: %s", resp.StatusCode, string(b))
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("empty completion response")
	}
	return cr.Choices[0].Message.Content, nil
}
