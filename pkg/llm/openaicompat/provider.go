package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"chat-relay-be/pkg/llm"
)

const chatCompletionsSuffix = "/chat/completions"

// CompatProvider targets any OpenAI-compatible local server (LM Studio,
// Ollama in compatibility mode, llama.cpp server). The bearer credential is
// optional.
type CompatProvider struct {
	BaseURL      string
	ModelName    string
	APIKey       string
	Client       *http.Client
	StreamClient *http.Client
}

// Ensure CompatProvider implements LLMProvider
var _ llm.LLMProvider = &CompatProvider{}

func NewCompatProvider(baseURL, modelName, apiKey string) *CompatProvider {
	return &CompatProvider{
		BaseURL:   baseURL,
		ModelName: modelName,
		APIKey:    apiKey,
		Client: &http.Client{
			Timeout: llm.ChatTimeoutSeconds * time.Second,
		},
		StreamClient: &http.Client{
			Timeout: llm.StreamTimeoutSeconds * time.Second,
		},
	}
}

// endpoint appends the chat completions suffix when the configured base URL
// does not already carry it.
func (p *CompatProvider) endpoint() string {
	url := p.BaseURL
	if !strings.HasSuffix(url, chatCompletionsSuffix) {
		url = strings.TrimRight(url, "/") + chatCompletionsSuffix
	}
	return url
}

func (p *CompatProvider) Chat(ctx context.Context, userMessage string, history []llm.Message, systemPrompt string) (string, error) {
	payload := llm.ChatCompletionRequest{
		Model:       p.ModelName,
		Messages:    llm.ToWireMessages(llm.BuildMessages(systemPrompt, history, userMessage)),
		Temperature: llm.ChatTemperature,
	}
	body, err := p.post(ctx, p.Client, payload)
	if err != nil {
		return "", err
	}
	return llm.ParseCompletion(body)
}

func (p *CompatProvider) ChatStream(ctx context.Context, userMessage string, history []llm.Message, systemPrompt string) (<-chan llm.StreamChunk, error) {
	payload := llm.ChatCompletionRequest{
		Model:       p.ModelName,
		Messages:    llm.ToWireMessages(llm.BuildMessages(systemPrompt, history, userMessage)),
		Temperature: llm.ChatTemperature,
		Stream:      true,
	}

	resp, err := p.send(ctx, p.StreamClient, payload, "text/event-stream; charset=utf-8")
	if err != nil {
		return nil, err
	}

	out := make(chan llm.StreamChunk)
	go func() {
		defer close(out)
		defer resp.Body.Close()
		if err := llm.DecodeStream(resp.Body, out); err != nil {
			out <- llm.StreamChunk{Err: err}
		}
	}()
	return out, nil
}

func (p *CompatProvider) Generate(ctx context.Context, prompt string) (string, error) {
	payload := llm.ChatCompletionRequest{
		Model: p.ModelName,
		Messages: []llm.ChatCompletionMessage{
			{Role: "system", Content: llm.GenerateSystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: llm.GenerateTemperature,
		MaxTokens:   llm.GenerateMaxTokens,
	}

	client := &http.Client{Timeout: llm.GenerateTimeoutSeconds * time.Second}
	body, err := p.post(ctx, client, payload)
	if err != nil {
		return "", err
	}
	return llm.ParseCompletion(body)
}

func (p *CompatProvider) post(ctx context.Context, client *http.Client, payload llm.ChatCompletionRequest) ([]byte, error) {
	resp, err := p.send(ctx, client, payload, "application/json; charset=utf-8")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}

func (p *CompatProvider) send(ctx context.Context, client *http.Client, payload llm.ChatCompletionRequest, accept string) (*http.Response, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.endpoint(), bytes.NewBuffer(payloadJSON))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Accept", accept)
	if p.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.APIKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("compat request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("compat error: status %d, body: %s", resp.StatusCode, string(body))
	}
	return resp, nil
}
