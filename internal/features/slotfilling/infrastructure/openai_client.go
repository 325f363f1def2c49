package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"hello-prompt-agent/internal/features/config/domain"
	"hello-prompt-agent/internal/pkg/logger"
)

// openAIClient talks to the OpenAI chat completions API through go-openai.
type openAIClient struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	log         *logger.Logger
}

// NewOpenAIClient creates a go-openai backed ChatClient. The API key comes
// from the config, falling back to OPENAI_API_KEY.
func NewOpenAIClient(cfg domain.LLMConfig, log *logger.Logger) (ChatClient, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = lookupOpenAIKey()
	}
	if apiKey == "" {
		return nil, fmt.Errorf("api_key not configured and OPENAI_API_KEY environment variable not set")
	}

	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/") + "/v1"
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout()}

	return &openAIClient{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: float32(cfg.Temperature),
		maxTokens:   cfg.MaxTokens,
		log:         log,
	}, nil
}

// Chat sends one chat completion request and returns the first choice.
func (c *openAIClient) Chat(ctx context.Context, messages []Message) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	c.log.Debug("OpenAI chat request", "model", c.model, "messages", len(messages))
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		c.log.Debug("OpenAI chat request failed", "error", err)
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", fmt.Errorf("chat completion returned empty content")
	}
	return content, nil
}
