package factory

import (
	"fmt"

	"chat-relay-be/pkg/llm"
	"chat-relay-be/pkg/llm/custom"
	"chat-relay-be/pkg/llm/openai"
	"chat-relay-be/pkg/llm/openaicompat"
)

// NewLLMProvider selects the backend variant. An unsupported kind is a
// construction-time failure, not a per-request one.
func NewLLMProvider(backend, modelName, endpoint, apiKey string, headers map[string]string) (llm.LLMProvider, error) {
	switch backend {
	case "openai":
		return openai.NewOpenAIProvider(modelName, apiKey), nil
	case "lmstudio", "ollama":
		if endpoint == "" {
			endpoint = "http://localhost:1234/v1" // Default
		}
		return openaicompat.NewCompatProvider(endpoint, modelName, apiKey), nil
	case "custom":
		return custom.NewCustomProvider(endpoint, modelName, headers), nil
	default:
		return nil, fmt.Errorf("unsupported LLM backend: %s", backend)
	}
}
