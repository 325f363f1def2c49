package domain

import (
	"errors"
	"fmt"
	"time"
)

// AssistConfig toggles the model-assisted parts of the slot-filling turn.
type AssistConfig struct {
	EnableLLMExtractor     bool `json:"enable_llm_extractor" yaml:"enable_llm_extractor" mapstructure:"enable_llm_extractor"`
	EnableLLMQuestioner    bool `json:"enable_llm_questioner" yaml:"enable_llm_questioner" mapstructure:"enable_llm_questioner"`
	EnableLLMRefiner       bool `json:"enable_llm_refiner" yaml:"enable_llm_refiner" mapstructure:"enable_llm_refiner"`
	MaxQuestionsPerTurn    int  `json:"max_questions_per_turn" yaml:"max_questions_per_turn" mapstructure:"max_questions_per_turn"`
	FillOnlyEmptySlots     bool `json:"fill_only_empty_slots" yaml:"fill_only_empty_slots" mapstructure:"fill_only_empty_slots"`
	QuestionFallbackToBank bool `json:"question_fallback_to_bank" yaml:"question_fallback_to_bank" mapstructure:"question_fallback_to_bank"`
	StrictJSONOnly         bool `json:"strict_json_only" yaml:"strict_json_only" mapstructure:"strict_json_only"`
	Debug                  bool `json:"debug" yaml:"debug" mapstructure:"debug"`
}

// DefaultAssistConfig is used for every field the agent config leaves out.
func DefaultAssistConfig() AssistConfig {
	return AssistConfig{
		EnableLLMExtractor:     true,
		EnableLLMQuestioner:    true,
		EnableLLMRefiner:       false,
		MaxQuestionsPerTurn:    1,
		FillOnlyEmptySlots:     true,
		QuestionFallbackToBank: true,
		StrictJSONOnly:         true,
		Debug:                  false,
	}
}

// LLMConfig describes the chat completion endpoint.
type LLMConfig struct {
	Provider    string  `json:"provider" mapstructure:"provider"` // "compatible" or "openai"
	BaseURL     string  `json:"base_url" mapstructure:"base_url"`
	APIKey      string  `json:"api_key" mapstructure:"api_key"`
	Model       string  `json:"model" mapstructure:"model"`
	TimeoutSec  int     `json:"timeout_sec" mapstructure:"timeout_sec"`
	Temperature float64 `json:"temperature" mapstructure:"temperature"`
	MaxTokens   int     `json:"max_tokens" mapstructure:"max_tokens"`
}

const (
	ProviderCompatible = "compatible"
	ProviderOpenAI     = "openai"
)

// Timeout returns the request timeout as a duration.
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// DefaultLLMConfig points at a local OpenAI-compatible server.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Provider:    ProviderCompatible,
		BaseURL:     "http://127.0.0.1:8080",
		APIKey:      "",
		Model:       "local-model",
		TimeoutSec:  60,
		Temperature: 0.2,
		MaxTokens:   800,
	}
}

// ConfigError reports configuration that must stop the process from starting.
type ConfigError struct {
	Source string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	msg := e.Reason
	if e.Source != "" {
		msg = e.Source + ": " + msg
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return "config error: " + msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError builds a ConfigError with a formatted reason.
func NewConfigError(source, format string, args ...any) *ConfigError {
	return &ConfigError{Source: source, Reason: fmt.Sprintf(format, args...)}
}

// IsConfigError reports whether err wraps a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
