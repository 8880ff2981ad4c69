package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"chat-relay-be/pkg/llm"
)

// ChatCompletionsURL is fixed for the hosted provider, not configurable.
const ChatCompletionsURL = "https://api.openai.com/v1/chat/completions"

type OpenAIProvider struct {
	ModelName    string
	APIKey       string
	Client       *http.Client
	StreamClient *http.Client
}

// Ensure OpenAIProvider implements LLMProvider
var _ llm.LLMProvider = &OpenAIProvider{}

func NewOpenAIProvider(modelName, apiKey string) *OpenAIProvider {
	return &OpenAIProvider{
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

func (p *OpenAIProvider) Chat(ctx context.Context, userMessage string, history []llm.Message, systemPrompt string) (string, error) {
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

func (p *OpenAIProvider) ChatStream(ctx context.Context, userMessage string, history []llm.Message, systemPrompt string) (<-chan llm.StreamChunk, error) {
	payload := llm.ChatCompletionRequest{
		Model:       p.ModelName,
		Messages:    llm.ToWireMessages(llm.BuildMessages(systemPrompt, history, userMessage)),
		Temperature: llm.ChatTemperature,
		Stream:      true,
	}

	resp, err := p.send(ctx, p.StreamClient, payload, "text/event-stream")
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

func (p *OpenAIProvider) Generate(ctx context.Context, prompt string) (string, error) {
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

func (p *OpenAIProvider) post(ctx context.Context, client *http.Client, payload llm.ChatCompletionRequest) ([]byte, error) {
	resp, err := p.send(ctx, client, payload, "application/json")
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

func (p *OpenAIProvider) send(ctx context.Context, client *http.Client, payload llm.ChatCompletionRequest, accept string) (*http.Response, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", ChatCompletionsURL, bytes.NewBuffer(payloadJSON))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Accept", accept)
	req.Header.Set("Authorization", "Bearer "+p.APIKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("openai error: status %d, body: %s", resp.StatusCode, string(body))
	}
	return resp, nil
}
