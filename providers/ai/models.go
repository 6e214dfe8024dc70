package ai

/*
	##### PROVIDER INPUT #####
*/

// ChatRequest is one exchange with the remote endpoint: the whole transcript
// in conversation order plus the resolved generation parameters.
type ChatRequest struct {
	Model            string            `json:"model,omitempty"`             // Model name or identifier
	Messages         []Message         `json:"messages"`                    // Transcript, oldest first
	SystemPrompt     string            `json:"system_prompt,omitempty"`     // Sent ahead of Messages, never stored
	GenerationConfig *GenerationConfig `json:"generation_config,omitempty"` // Optional sampling parameters
}

// Message is one turn of a conversation.
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// GenerationConfig carries the sampling parameters forwarded to the endpoint.
// Nil pointers and zero values mean "use the provider default".
type GenerationConfig struct {
	MaxOutputTokens int      `json:"max_output_tokens,omitempty"` // Cap on generated tokens
	Temperature     *float64 `json:"temperature,omitempty"`       // Sampling temperature [0..2]
	TopP            *float64 `json:"top_p,omitempty"`             // Nucleus sampling (0..1]
}

/*
	##### PROVIDER OUTPUT #####
*/

// Usage holds the token counters reported by the endpoint.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
	CachedTokens     int `json:"cached_tokens,omitempty"`
}

// ChatResponse is a complete reply from the endpoint.
type ChatResponse struct {
	Id           string `json:"id"`
	Model        string `json:"model"`
	Created      int64  `json:"created"`
	Content      string `json:"content"`
	FinishReason string `json:"finish_reason,omitempty"`
	Usage        *Usage `json:"usage,omitempty"`
	Refusal      string `json:"refusal,omitempty"` // Set when the model declines (safety/policy)
}

/*
	##### ENUMS #####
*/

// MessageRole represents the role of a message; compatible with string
type MessageRole string

const (
	RoleSystem    MessageRole = "system"    // System instructions/configuration
	RoleUser      MessageRole = "user"      // End-user message
	RoleAssistant MessageRole = "assistant" // Model reply
)

// Valid reports whether r is one of the known roles.
func (r MessageRole) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}
