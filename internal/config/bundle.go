package config

import (
	"hello-prompt-agent/internal/features/config/domain"
)

// Paths locates the three configuration files. An empty Templates path
// selects the embedded templates.
type Paths struct {
	Templates string
	Agent     string
	LLM       string
}

// DefaultPaths are the paths used when no flags are given.
func DefaultPaths() Paths {
	return Paths{
		Agent: "configs/agent.yaml",
		LLM:   "configs/llm.yaml",
	}
}

// Bundle is everything loaded at startup.
type Bundle struct {
	Registry *domain.TemplateRegistry
	Assist   domain.AssistConfig
	LLM      domain.LLMConfig
}

// UsesLLM reports whether any model-assisted component is enabled.
func (b *Bundle) UsesLLM() bool {
	return b.Assist.EnableLLMExtractor || b.Assist.EnableLLMQuestioner || b.Assist.EnableLLMRefiner
}

// LoadBundle loads all three configuration files. Any error is a
// *domain.ConfigError.
func LoadBundle(svc AppConfigService, paths Paths, overrides map[string]any) (*Bundle, error) {
	registry, err := svc.LoadTemplates(paths.Templates)
	if err != nil {
		return nil, err
	}
	assist, err := svc.LoadAssistConfig(paths.Agent)
	if err != nil {
		return nil, err
	}
	llm, err := svc.LoadLLMConfig(paths.LLM, overrides)
	if err != nil {
		return nil, err
	}
	return &Bundle{Registry: registry, Assist: assist, LLM: llm}, nil
}
