package llm

// HistoryWindow caps how many prior messages are forwarded upstream. This is
// a hard token-budget guard, not a configurable option.
const HistoryWindow = 20

// Sampling and timeout defaults shared by all providers. Timeouts are fixed
// per call class: Generate is a short auxiliary call, Chat waits for a full
// completion, ChatStream covers first byte through end of stream.
const (
	ChatTemperature     = 0.7
	GenerateTemperature = 0.1
	GenerateMaxTokens   = 4000

	GenerateTimeoutSeconds = 30
	ChatTimeoutSeconds     = 60
	StreamTimeoutSeconds   = 90
)

// GenerateSystemPrompt frames auxiliary Generate calls. It discourages local
// reasoning models from leaking thinking tags into the short reply.
const GenerateSystemPrompt = "You are a helpful assistant. Respond directly and concisely without thinking tags."

// BuildMessages assembles the outbound message set:
// [system] + history[-HistoryWindow:] + [current user message].
func BuildMessages(systemPrompt string, history []Message, userMessage string) []Message {
	messages := make([]Message, 0, len(history)+2)
	messages = append(messages, Message{Role: "system", Content: systemPrompt})

	recent := history
	if len(recent) > HistoryWindow {
		recent = recent[len(recent)-HistoryWindow:]
	}
	messages = append(messages, recent...)

	messages = append(messages, Message{Role: "user", Content: userMessage})
	return messages
}
