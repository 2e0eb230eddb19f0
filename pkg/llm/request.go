package llm

// ChatRequest is a provider-agnostic chat completion request. Backends map
// it onto their own wire formats.
type ChatRequest struct {
	// Model name. Empty means the backend's configured default.
	Model string `json:"model,omitempty"`

	// System instruction. Backends that have no top-level system field
	// prepend it as a system-role message.
	System string `json:"system,omitempty"`

	// Conversation messages, oldest first.
	Messages []Message `json:"messages"`

	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}
