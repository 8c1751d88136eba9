package llm

// Role constants for chat messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a single text message in a chat exchange.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewTextMessage creates a message with the given role and content.
func NewTextMessage(role, text string) Message {
	return Message{Role: role, Content: text}
}

// UserPrompt wraps a fully assembled prompt as the single user message of a
// request. The query engine sends every prompt this way.
func UserPrompt(prompt string) []Message {
	return []Message{NewTextMessage(RoleUser, prompt)}
}
