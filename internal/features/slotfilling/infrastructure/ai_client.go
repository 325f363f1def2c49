package infrastructure

import (
	"context"
	"fmt"

	"hello-prompt-agent/internal/features/config/domain"
	"hello-prompt-agent/internal/pkg/logger"
)

// Message is one chat message sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// ChatClient is the single operation the slot-filling engine needs from a
// language model: send ordered messages, get the assistant text back.
// Any transport, timeout or malformed-response problem is returned as an
// error.
type ChatClient interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

// ChatFunc adapts a plain function to ChatClient.
type ChatFunc func(ctx context.Context, messages []Message) (string, error)

func (f ChatFunc) Chat(ctx context.Context, messages []Message) (string, error) {
	return f(ctx, messages)
}

// NewChatClient creates a client for the configured provider.
func NewChatClient(cfg domain.LLMConfig, log *logger.Logger) (ChatClient, error) {
	if log == nil {
		log = logger.NewNop()
	}
	switch cfg.Provider {
	case domain.ProviderOpenAI:
		return NewOpenAIClient(cfg, log)
	case domain.ProviderCompatible, "":
		return NewCompatibleClient(cfg, log), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
