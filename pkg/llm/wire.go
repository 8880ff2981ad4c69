package llm

import (
	"encoding/json"
	"errors"
	"fmt"
)

// OpenAI-style chat completion wire format, shared by the openai and
// openaicompat providers.

type ChatCompletionRequest struct {
	Model       string                  `json:"model"`
	Messages    []ChatCompletionMessage `json:"messages"`
	Temperature float64                 `json:"temperature"`
	MaxTokens   int                     `json:"max_tokens,omitempty"`
	Stream      bool                    `json:"stream,omitempty"`
}

type ChatCompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatCompletionResponse struct {
	Choices []struct {
		Message ChatCompletionMessage `json:"message"`
	} `json:"choices"`
}

// ToWireMessages maps provider-agnostic messages to the wire format.
func ToWireMessages(messages []Message) []ChatCompletionMessage {
	wire := make([]ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		wire[i] = ChatCompletionMessage{Role: msg.Role, Content: msg.Content}
	}
	return wire
}

// ParseCompletion extracts choices[0].message.content from a non-streaming
// response body.
func ParseCompletion(body []byte) (string, error) {
	var resp ChatCompletionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}
