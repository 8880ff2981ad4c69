package llm

import (
	"context"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
}

// StreamChunk is one incremental piece of assistant text. A stream delivers
// zero or more chunks with Content set, then either closes (completion) or
// delivers a final chunk with Err set. Chunks already delivered before a
// failure stay delivered.
type StreamChunk struct {
	Content string
	Err     error
}

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	// Chat sends the user message plus windowed history and returns the full reply
	Chat(ctx context.Context, userMessage string, history []Message, systemPrompt string) (string, error)

	// ChatStream is the streaming variant of Chat. The returned channel is
	// finite and not restartable. An immediate error (connection, non-2xx)
	// is returned directly; a mid-stream failure arrives in-band.
	ChatStream(ctx context.Context, userMessage string, history []Message, systemPrompt string) (<-chan StreamChunk, error)

	// Generate sends a single prompt at low temperature with no history,
	// for auxiliary tasks like session naming.
	Generate(ctx context.Context, prompt string) (string, error)
}
