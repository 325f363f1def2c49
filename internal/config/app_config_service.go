package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"hello-prompt-agent/internal/features/config/application"
	"hello-prompt-agent/internal/features/config/domain"
	"hello-prompt-agent/internal/pkg/logger"
)

//go:embed defaults/templates.yaml
var defaultTemplates []byte

// EnvPrefix prefixes every environment override for the LLM config.
const EnvPrefix = "HPA_LLM_"

// llmEnvKeys maps LLM config fields to their environment variables.
var llmEnvKeys = map[string]string{
	"provider":    EnvPrefix + "PROVIDER",
	"base_url":    EnvPrefix + "BASE_URL",
	"api_key":     EnvPrefix + "API_KEY",
	"model":       EnvPrefix + "MODEL",
	"timeout_sec": EnvPrefix + "TIMEOUT_SEC",
	"temperature": EnvPrefix + "TEMPERATURE",
	"max_tokens":  EnvPrefix + "MAX_TOKENS",
}

// AppConfigService loads the three configuration files from disk.
type AppConfigService interface {
	LoadTemplates(path string) (*domain.TemplateRegistry, error)
	LoadAssistConfig(path string) (domain.AssistConfig, error)
	LoadLLMConfig(path string, overrides map[string]any) (domain.LLMConfig, error)
}

// appConfigService is the implementation of AppConfigService.
type appConfigService struct {
	builder application.ConfigService
	log     *logger.Logger
}

// NewAppConfigService creates a new instance of appConfigService.
func NewAppConfigService(builder application.ConfigService, log *logger.Logger) AppConfigService {
	if log == nil {
		log = logger.NewNop()
	}
	return &appConfigService{builder: builder, log: log}
}

// LoadTemplates reads the template registry. An empty path selects the
// embedded default templates.
func (s *appConfigService) LoadTemplates(path string) (*domain.TemplateRegistry, error) {
	name := path
	var doc any
	var err error
	if path == "" {
		name = "embedded templates"
		doc, err = decodeDocument(defaultTemplates, ".yaml")
	} else {
		doc, err = readDocument(path)
	}
	if err != nil {
		return nil, &domain.ConfigError{Source: name, Reason: "cannot load templates", Err: err}
	}

	registry, err := s.builder.BuildRegistry(name, doc)
	if err != nil {
		return nil, err
	}
	for _, w := range registry.Warnings() {
		s.log.Warn("Template registry warning", "source", name, "warning", w)
	}
	s.log.Debug("Templates loaded", "source", name, "modes", len(registry.Modes()))
	return registry, nil
}

// LoadAssistConfig reads the agent config. A missing file yields defaults.
func (s *appConfigService) LoadAssistConfig(path string) (domain.AssistConfig, error) {
	doc, err := readDocument(path)
	if errors.Is(err, fs.ErrNotExist) {
		s.log.Warn("Agent config not found, using defaults", "path", path)
		return domain.DefaultAssistConfig(), nil
	}
	if err != nil {
		return domain.AssistConfig{}, &domain.ConfigError{Source: path, Reason: "cannot load agent config", Err: err}
	}
	return s.builder.BuildAssistConfig(path, doc)
}

// LoadLLMConfig merges defaults, the YAML file, HPA_LLM_* environment
// variables and overrides, in increasing precedence.
func (s *appConfigService) LoadLLMConfig(path string, overrides map[string]any) (domain.LLMConfig, error) {
	var fileLayer map[string]any
	doc, err := readDocument(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.log.Warn("LLM config not found, using environment and defaults", "path", path)
	case err != nil:
		return domain.LLMConfig{}, &domain.ConfigError{Source: path, Reason: "cannot load llm config", Err: err}
	case doc == nil:
	default:
		m, ok := doc.(map[string]any)
		if !ok {
			return domain.LLMConfig{}, domain.NewConfigError(path, "llm config must be an object")
		}
		fileLayer = m
	}

	return s.builder.BuildLLMConfig(path, fileLayer, envLayer(), overrides)
}

func envLayer() map[string]any {
	layer := map[string]any{}
	for field, env := range llmEnvKeys {
		if v, ok := os.LookupEnv(env); ok && v != "" {
			layer[field] = v
		}
	}
	return layer
}

func readDocument(path string) (any, error) {
	if path == "" {
		return nil, fs.ErrNotExist
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decodeDocument(data, strings.ToLower(filepath.Ext(path)))
}

// decodeDocument parses TOML by extension and everything else as YAML,
// which also covers JSON.
func decodeDocument(data []byte, ext string) (any, error) {
	if ext == ".toml" {
		var doc map[string]any
		if _, err := toml.Decode(string(data), &doc); err != nil {
			return nil, fmt.Errorf("failed to parse toml: %w", err)
		}
		return doc, nil
	}
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}
	return doc, nil
}
