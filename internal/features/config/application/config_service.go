package application

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"

	"hello-prompt-agent/internal/features/config/domain"
)

// ConfigService turns decoded configuration documents into validated
// configuration values. It performs no I/O.
type ConfigService interface {
	BuildRegistry(name string, source any) (*domain.TemplateRegistry, error)
	BuildAssistConfig(name string, source any) (domain.AssistConfig, error)
	BuildLLMConfig(name string, layers ...map[string]any) (domain.LLMConfig, error)
}

// configService is the implementation of ConfigService.
type configService struct{}

// NewConfigService creates a new instance of configService.
func NewConfigService() ConfigService {
	return &configService{}
}

// BuildRegistry validates a templates document and builds the registry.
func (s *configService) BuildRegistry(name string, source any) (*domain.TemplateRegistry, error) {
	doc, err := canonicalize(source)
	if err != nil {
		return nil, &domain.ConfigError{Source: name, Reason: "templates are not serializable", Err: err}
	}
	root, ok := doc.(map[string]any)
	if !ok {
		return nil, domain.NewConfigError(name, "templates must be an object")
	}

	rawModes, ok := root["modes"].([]any)
	if !ok || len(rawModes) == 0 {
		return nil, domain.NewConfigError(name, "modes must be a non-empty list")
	}
	modes := make([]domain.Mode, 0, len(rawModes))
	for i, rm := range rawModes {
		entry, ok := rm.(map[string]any)
		if !ok {
			return nil, domain.NewConfigError(name, "modes[%d] must be an object", i)
		}
		category, _ := entry["category"].(string)
		subtype, _ := entry["subtype"].(string)
		if strings.TrimSpace(category) == "" || strings.TrimSpace(subtype) == "" {
			return nil, domain.NewConfigError(name, "modes[%d] needs both category and subtype", i)
		}
		label, _ := entry["label"].(string)
		modes = append(modes, domain.Mode{Category: category, Subtype: subtype, Label: label})
	}

	rawRequired, ok := root["required_slots"].(map[string]any)
	if !ok {
		return nil, domain.NewConfigError(name, "required_slots must be an object")
	}
	required := make(map[string][]string, len(rawRequired))
	for key, v := range rawRequired {
		slots, err := stringList(v)
		if err != nil {
			return nil, domain.NewConfigError(name, "required_slots[%s]: %v", key, err)
		}
		required[strings.ToUpper(strings.TrimSpace(key))] = slots
	}
	for _, m := range modes {
		if _, ok := required[domain.ModeKey(m.Category, m.Subtype)]; !ok {
			return nil, domain.NewConfigError(name, "mode %s has no required_slots entry", domain.ModeKey(m.Category, m.Subtype))
		}
	}

	var priority []string
	if v, present := root["slot_priority"]; present && v != nil {
		priority, err = stringList(v)
		if err != nil {
			return nil, domain.NewConfigError(name, "slot_priority: %v", err)
		}
	}

	questions := map[string]string{}
	if v, present := root["questions"]; present && v != nil {
		rawQuestions, ok := v.(map[string]any)
		if !ok {
			return nil, domain.NewConfigError(name, "questions must be an object")
		}
		for k, q := range rawQuestions {
			text, ok := q.(string)
			if !ok {
				return nil, domain.NewConfigError(name, "questions[%s] must be a string", k)
			}
			questions[k] = text
		}
	}

	return domain.NewTemplateRegistry(modes, required, priority, questions), nil
}

// BuildAssistConfig overlays source on the defaults. A nil source means
// "use defaults".
func (s *configService) BuildAssistConfig(name string, source any) (domain.AssistConfig, error) {
	cfg := domain.DefaultAssistConfig()
	if source == nil {
		return cfg, nil
	}
	doc, err := canonicalize(source)
	if err != nil {
		return cfg, &domain.ConfigError{Source: name, Reason: "agent config is not serializable", Err: err}
	}
	values, ok := doc.(map[string]any)
	if !ok {
		return cfg, domain.NewConfigError(name, "agent config must be an object")
	}
	if err := weakDecode(dropNulls(values), &cfg); err != nil {
		return domain.DefaultAssistConfig(), &domain.ConfigError{Source: name, Reason: "invalid agent config", Err: err}
	}
	if cfg.MaxQuestionsPerTurn <= 0 {
		return domain.DefaultAssistConfig(), domain.NewConfigError(name, "max_questions_per_turn must be greater than 0")
	}
	return cfg, nil
}

// BuildLLMConfig applies layers in order over the defaults; later layers win.
func (s *configService) BuildLLMConfig(name string, layers ...map[string]any) (domain.LLMConfig, error) {
	cfg := domain.DefaultLLMConfig()
	for _, layer := range layers {
		if len(layer) == 0 {
			continue
		}
		if err := weakDecode(dropNulls(layer), &cfg); err != nil {
			return domain.LLMConfig{}, &domain.ConfigError{Source: name, Reason: "invalid llm config", Err: err}
		}
	}

	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	switch {
	case cfg.Provider != domain.ProviderCompatible && cfg.Provider != domain.ProviderOpenAI:
		return domain.LLMConfig{}, domain.NewConfigError(name, "provider must be %q or %q", domain.ProviderCompatible, domain.ProviderOpenAI)
	case cfg.BaseURL == "":
		return domain.LLMConfig{}, domain.NewConfigError(name, "base_url must not be empty")
	case cfg.TimeoutSec <= 0:
		return domain.LLMConfig{}, domain.NewConfigError(name, "timeout_sec must be greater than 0")
	case cfg.Temperature < 0:
		return domain.LLMConfig{}, domain.NewConfigError(name, "temperature must not be negative")
	case cfg.MaxTokens <= 0:
		return domain.LLMConfig{}, domain.NewConfigError(name, "max_tokens must be greater than 0")
	}
	return cfg, nil
}

// canonicalize round-trips a decoded document through JSON so YAML, TOML
// and JSON sources all present map[string]any / []any shapes.
func canonicalize(source any) (any, error) {
	b, err := json.Marshal(source)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func stringList(v any) ([]string, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("must be a list of slot names")
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok || strings.TrimSpace(s) == "" {
			return nil, fmt.Errorf("item %d must be a non-empty string", i)
		}
		out = append(out, s)
	}
	return out, nil
}

func dropNulls(values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		if v != nil {
			out[k] = v
		}
	}
	return out
}

func weakDecode(input map[string]any, target any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       looseScalarHook,
		WeaklyTypedInput: true,
		Result:           target,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

// looseScalarHook accepts yes/no style booleans and refuses to read a
// boolean as a number.
func looseScalarHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	switch to.Kind() {
	case reflect.Bool:
		switch from.Kind() {
		case reflect.String:
			switch strings.ToLower(strings.TrimSpace(data.(string))) {
			case "true", "1", "yes", "y", "on":
				return true, nil
			case "false", "0", "no", "n", "off":
				return false, nil
			}
			return nil, fmt.Errorf("%q is not a boolean", data)
		case reflect.Bool:
			return data, nil
		default:
			return nil, fmt.Errorf("expected a boolean, got %v", data)
		}
	case reflect.Int, reflect.Int64, reflect.Float64:
		if from.Kind() == reflect.Bool {
			return nil, fmt.Errorf("expected a number, got boolean %v", data)
		}
		if from.Kind() == reflect.String {
			text := strings.TrimSpace(data.(string))
			if to.Kind() == reflect.Float64 {
				f, err := strconv.ParseFloat(text, 64)
				if err != nil {
					return nil, fmt.Errorf("%q is not a number", data)
				}
				return f, nil
			}
			n, err := strconv.Atoi(text)
			if err != nil {
				return nil, fmt.Errorf("%q is not an integer", data)
			}
			return n, nil
		}
		if from.Kind() == reflect.Float64 && to.Kind() != reflect.Float64 {
			f := data.(float64)
			if f != float64(int64(f)) {
				return nil, fmt.Errorf("%v is not an integer", f)
			}
			return int(f), nil
		}
	case reflect.String:
		if from.Kind() == reflect.Float64 {
			return strconv.FormatFloat(data.(float64), 'f', -1, 64), nil
		}
	}
	return data, nil
}
