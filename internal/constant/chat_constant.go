package constant

// Chat message roles. The system prompt lives on the session, not in stored
// history, so only user/assistant ever hit the session store.
const (
	ChatMessageRoleUser      = "user"
	ChatMessageRoleAssistant = "assistant"
)

// SessionNamingTopic is the in-process watermill topic the orchestrator
// publishes to after the first completed exchange of a fresh session.
const SessionNamingTopic = "SESSION_AUTONAME"

const DefaultSystemPrompt = "You are a helpful AI assistant."

// DefaultNamingPrompt receives the first user message and the first assistant
// reply. The model is asked for an underscore-joined label; anything that
// fails validation leaves the placeholder name in place.
const DefaultNamingPrompt = "Generate a short descriptive name for this conversation. " +
	"Use 2 to 5 lowercase words joined by underscores, for example: python_sorting_help. " +
	"Reply with the name only, no explanation.\n\nUser: %s\n\nAssistant: %s"

// Truncation caps applied to the first exchange before it is embedded in the
// naming prompt.
const (
	NamingUserExcerptLimit      = 200
	NamingAssistantExcerptLimit = 300
)
