package domain

import "context"

// Provider is the interface LLM backends implement. The agent only exchanges
// plain text with it: no tool schemas, no structured tool calls.
type Provider interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	Name() string
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatRequest struct {
	Messages    []Message
	Model       string
	MaxTokens   int
	Temperature float64
}

type ChatResponse struct {
	Content      string
	FinishReason string // stop | length | safety
	Usage        Usage
	LatencyMs    int64
}

// Message is one conversation turn.
type Message struct {
	Role    string `json:"role"` // system | user | assistant
	Content string `json:"content"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
