package application

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hello-prompt-agent/internal/features/config/domain"
)

func validTemplates() map[string]any {
	return map[string]any{
		"modes": []any{
			map[string]any{"category": "CODE", "subtype": "EXTEND", "label": "extend"},
			map[string]any{"category": "code", "subtype": "review"},
		},
		"required_slots": map[string]any{
			"CODE/EXTEND": []any{"goal", "env"},
			"code/review": []any{"goal", "repo"},
		},
		"slot_priority": []any{"goal", "runtime_env", "repo_context"},
		"questions":     map[string]any{"goal": "Goal?"},
	}
}

func TestBuildRegistry(t *testing.T) {
	reg, err := NewConfigService().BuildRegistry("test", validTemplates())
	require.NoError(t, err)
	assert.Len(t, reg.Modes(), 2)
	assert.Equal(t, []string{"goal", "runtime_env"}, reg.RequiredSlots("CODE/EXTEND"))
	assert.Equal(t, []string{"goal", "repo_context"}, reg.RequiredSlots("CODE/REVIEW"))
	assert.Empty(t, reg.Warnings())
	assert.Equal(t, "Goal?", reg.Question("goal"))
}

func TestBuildRegistryAcceptsTypedSlices(t *testing.T) {
	// TOML decodes arrays of tables into []map[string]interface{}.
	src := map[string]any{
		"modes":          []map[string]interface{}{{"category": "CODE", "subtype": "EXTEND"}},
		"required_slots": map[string]interface{}{"CODE/EXTEND": []string{"goal"}},
	}
	reg, err := NewConfigService().BuildRegistry("toml", src)
	require.NoError(t, err)
	assert.Equal(t, []string{"goal"}, reg.RequiredSlots("CODE/EXTEND"))
}

func TestBuildRegistryErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m map[string]any) any
		reason string
	}{
		{"not an object", func(m map[string]any) any { return []any{1} }, "must be an object"},
		{"missing modes", func(m map[string]any) any { delete(m, "modes"); return m }, "modes"},
		{"empty modes", func(m map[string]any) any { m["modes"] = []any{}; return m }, "modes"},
		{"mode without subtype", func(m map[string]any) any {
			m["modes"] = []any{map[string]any{"category": "CODE"}}
			return m
		}, "category and subtype"},
		{"required_slots not object", func(m map[string]any) any { m["required_slots"] = []any{"goal"}; return m }, "required_slots"},
		{"mode without required entry", func(m map[string]any) any {
			m["required_slots"] = map[string]any{"CODE/EXTEND": []any{"goal"}}
			return m
		}, "CODE/REVIEW"},
		{"malformed slot list", func(m map[string]any) any {
			m["required_slots"].(map[string]any)["CODE/EXTEND"] = "goal"
			return m
		}, "required_slots[CODE/EXTEND]"},
		{"non-string slot", func(m map[string]any) any {
			m["required_slots"].(map[string]any)["CODE/EXTEND"] = []any{"goal", 3}
			return m
		}, "item 1"},
		{"questions not object", func(m map[string]any) any { m["questions"] = "x"; return m }, "questions"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConfigService().BuildRegistry("test", tt.mutate(validTemplates()))
			require.Error(t, err)
			assert.True(t, domain.IsConfigError(err))
			assert.Contains(t, err.Error(), tt.reason)
		})
	}
}

func TestBuildRegistryWarnsInsteadOfFailing(t *testing.T) {
	src := validTemplates()
	src["slot_priority"] = []any{"goal"}
	reg, err := NewConfigService().BuildRegistry("test", src)
	require.NoError(t, err)
	require.Len(t, reg.Warnings(), 1)
	assert.Contains(t, reg.Warnings()[0], "repo_context")
	assert.Contains(t, reg.Warnings()[0], "runtime_env")
}

func TestBuildAssistConfig(t *testing.T) {
	svc := NewConfigService()

	cfg, err := svc.BuildAssistConfig("agent", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultAssistConfig(), cfg)

	cfg, err = svc.BuildAssistConfig("agent", map[string]any{
		"enable_llm_refiner":     "yes",
		"enable_llm_extractor":   "0",
		"max_questions_per_turn": "2",
		"debug":                  nil,
		"unknown_key":            "ignored",
	})
	require.NoError(t, err)
	assert.True(t, cfg.EnableLLMRefiner)
	assert.False(t, cfg.EnableLLMExtractor)
	assert.Equal(t, 2, cfg.MaxQuestionsPerTurn)
	assert.False(t, cfg.Debug)
	assert.True(t, cfg.StrictJSONOnly)
}

func TestBuildAssistConfigErrors(t *testing.T) {
	svc := NewConfigService()
	for name, src := range map[string]any{
		"not an object":   []any{"x"},
		"bad bool":        map[string]any{"debug": "maybe"},
		"number for bool": map[string]any{"debug": 1},
		"bool for int":    map[string]any{"max_questions_per_turn": true},
		"zero questions":  map[string]any{"max_questions_per_turn": 0},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.BuildAssistConfig("agent", src)
			require.Error(t, err)
			assert.True(t, domain.IsConfigError(err))
		})
	}
}

func TestBuildLLMConfigPrecedence(t *testing.T) {
	file := map[string]any{
		"base_url":    "http://yaml.example",
		"api_key":     "yaml-key",
		"model":       "yaml-model",
		"timeout_sec": 10,
		"temperature": 0.3,
		"max_tokens":  111,
	}
	env := map[string]any{
		"base_url":    "http://env.example/",
		"model":       "env-model",
		"timeout_sec": "20",
	}
	cli := map[string]any{"model": "cli-model", "max_tokens": 999}

	cfg, err := NewConfigService().BuildLLMConfig("llm", file, env, cli)
	require.NoError(t, err)
	assert.Equal(t, "http://env.example", cfg.BaseURL)
	assert.Equal(t, "cli-model", cfg.Model)
	assert.Equal(t, 20, cfg.TimeoutSec)
	assert.Equal(t, 999, cfg.MaxTokens)
	assert.InDelta(t, 0.3, cfg.Temperature, 1e-9)
	assert.Equal(t, "yaml-key", cfg.APIKey)
	assert.Equal(t, domain.ProviderCompatible, cfg.Provider)
}

func TestBuildLLMConfigValidation(t *testing.T) {
	svc := NewConfigService()
	for name, layer := range map[string]map[string]any{
		"empty base url":   {"base_url": "/"},
		"zero timeout":     {"timeout_sec": 0},
		"negative temp":    {"temperature": -0.1},
		"zero max tokens":  {"max_tokens": "0"},
		"non-numeric":      {"timeout_sec": "soon"},
		"unknown provider": {"provider": "carrier-pigeon"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.BuildLLMConfig("llm", layer)
			require.Error(t, err)
			assert.True(t, domain.IsConfigError(err))
		})
	}
}
