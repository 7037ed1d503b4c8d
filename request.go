package llmstream

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// GenerateRequest contains the parameters for a generation request.
type GenerateRequest struct {
	// Messages contains the conversation history.
	Messages []Message

	// Model is the model identifier (e.g., "claude-haiku-4-5-20251001")
	Model string

	// Params contains optional request parameters. Nil means defaults.
	Params *RequestParams
}

// Message represents a single text turn in the conversation.
type Message struct {
	// Role is either "user" or "assistant"
	Role string

	Text string
}

// NewUserMessage creates a user turn.
func NewUserMessage(text string) Message {
	return Message{Role: RoleUser, Text: text}
}
