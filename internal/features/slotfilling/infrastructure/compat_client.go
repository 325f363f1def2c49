package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"

	"hello-prompt-agent/internal/features/config/domain"
	"hello-prompt-agent/internal/pkg/logger"
)

// compatClient posts to any OpenAI-compatible /v1/chat/completions endpoint
// (llama.cpp, vLLM, LM Studio...). Unlike go-openai it also accepts the
// legacy {choices:[{text}]} response shape those servers sometimes return.
type compatClient struct {
	url         string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
	log         *logger.Logger
}

type compatRequest struct {
	Model       string    `json:"model"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	Messages    []Message `json:"messages"`
}

type compatChoice struct {
	Message *struct {
		Content string `json:"content"`
	} `json:"message,omitempty"`
	Text string `json:"text,omitempty"`
}

// NewCompatibleClient creates a ChatClient for an OpenAI-compatible server.
func NewCompatibleClient(cfg domain.LLMConfig, log *logger.Logger) ChatClient {
	if log == nil {
		log = logger.NewNop()
	}
	return &compatClient{
		url:         strings.TrimRight(cfg.BaseURL, "/") + "/v1/chat/completions",
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		httpClient:  &http.Client{Timeout: cfg.Timeout()},
		log:         log,
	}
}

// Chat sends one request and extracts the assistant text.
func (c *compatClient) Chat(ctx context.Context, messages []Message) (string, error) {
	body, err := json.Marshal(compatRequest{
		Model:       c.model,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Messages:    messages,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	c.log.Debug("Chat request", "url", c.url, "model", c.model, "messages", len(messages))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat request failed with status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	return parseCompatResponse(raw)
}

// parseCompatResponse reads choices[0].message.content, then choices[0].text.
func parseCompatResponse(raw []byte) (string, error) {
	var envelope map[string]json.RawMessage
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return "", fmt.Errorf("failed to parse response: %w", err)
		}
	}

	var choices []compatChoice
	if rc, ok := envelope["choices"]; ok {
		if err := json.Unmarshal(rc, &choices); err != nil {
			return "", fmt.Errorf("failed to parse choices: %w", err)
		}
	}
	if len(choices) == 0 {
		return "", fmt.Errorf("response has no choices, keys: %v", sortedKeys(envelope))
	}
	first := choices[0]
	if first.Message != nil && first.Message.Content != "" {
		return first.Message.Content, nil
	}
	if first.Text != "" {
		return first.Text, nil
	}
	return "", fmt.Errorf("response has no content, keys: %v", sortedKeys(envelope))
}

func sortedKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func lookupOpenAIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}
