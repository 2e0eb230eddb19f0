// Package llm holds the provider-agnostic request, response and streaming
// types shared by the completion backends.
package llm

// Roles understood by every backend. System instructions travel separately
// on ChatRequest.System.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single text turn in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewTextMessage creates a message with the given role and content.
func NewTextMessage(role, text string) Message {
	return Message{Role: role, Content: text}
}
