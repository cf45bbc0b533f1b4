package llm

// Role identifies who authored a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single turn in a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Options are sampling knobs (temperature, top_p, top_k, ...) forwarded to the
// model server as-is.
type Options map[string]float64

// GenerateRequest is the input to a chat call.
type GenerateRequest struct {
	Model        string
	Messages     []Message
	SystemPrompt string // prepended as a system message when non-empty
	Stream       bool
	Options      Options
}
