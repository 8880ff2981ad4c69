package custom

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"chat-relay-be/pkg/llm"
)

// CustomProvider posts an arbitrary JSON envelope to a configured URL with
// configured extra headers. The reply text is the first present field of a
// small fixed ordered list: "response", then "text".
type CustomProvider struct {
	Endpoint  string
	ModelName string
	Headers   map[string]string
	Client    *http.Client
}

// Ensure CustomProvider implements LLMProvider
var _ llm.LLMProvider = &CustomProvider{}

func NewCustomProvider(endpoint, modelName string, headers map[string]string) *CustomProvider {
	return &CustomProvider{
		Endpoint:  endpoint,
		ModelName: modelName,
		Headers:   headers,
		Client: &http.Client{
			Timeout: llm.ChatTimeoutSeconds * time.Second,
		},
	}
}

type customRequest struct {
	Prompt       string                      `json:"prompt"`
	History      []llm.ChatCompletionMessage `json:"history"`
	Model        string                      `json:"model"`
	SystemPrompt string                      `json:"system_prompt"`
}

func (p *CustomProvider) Chat(ctx context.Context, userMessage string, history []llm.Message, systemPrompt string) (string, error) {
	recent := history
	if len(recent) > llm.HistoryWindow {
		recent = recent[len(recent)-llm.HistoryWindow:]
	}

	payload := customRequest{
		Prompt:       userMessage,
		History:      llm.ToWireMessages(recent),
		Model:        p.ModelName,
		SystemPrompt: systemPrompt,
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.Endpoint, bytes.NewBuffer(payloadJSON))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	for key, value := range p.Headers {
		req.Header.Set(key, value)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("custom request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("custom error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var data map[string]json.RawMessage
	if err := json.Unmarshal(body, &data); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	// First present text field wins.
	for _, field := range []string{"response", "text"} {
		raw, ok := data[field]
		if !ok {
			continue
		}
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return "", fmt.Errorf("field %q is not a string: %w", field, err)
		}
		return text, nil
	}

	return "", errors.New("no response text field in custom payload")
}

// ChatStream on the custom backend has no upstream streaming protocol; the
// full reply is delivered as a single fragment.
func (p *CustomProvider) ChatStream(ctx context.Context, userMessage string, history []llm.Message, systemPrompt string) (<-chan llm.StreamChunk, error) {
	response, err := p.Chat(ctx, userMessage, history, systemPrompt)
	if err != nil {
		return nil, err
	}

	out := make(chan llm.StreamChunk, 1)
	out <- llm.StreamChunk{Content: response}
	close(out)
	return out, nil
}

func (p *CustomProvider) Generate(ctx context.Context, prompt string) (string, error) {
	return p.Chat(ctx, prompt, nil, llm.GenerateSystemPrompt)
}
