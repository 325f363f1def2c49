package application

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	cfgdomain "hello-prompt-agent/internal/features/config/domain"
	"hello-prompt-agent/internal/features/slotfilling/domain"
	"hello-prompt-agent/internal/features/slotfilling/infrastructure"
	"hello-prompt-agent/internal/pkg/jsonx"
	"hello-prompt-agent/internal/pkg/logger"
)

const extractorSystemPrompt = "You are a structured information extractor for a CODE task.\n" +
	"Return ONLY one JSON object. No markdown, no explanation.\n" +
	`Schema: {"updates": {<key>: <value>, ...}}.` + "\n" +
	"Keys must be from allowed_keys. If unsure, omit the key."

// SlotExtractor asks the model for slot values the rules could not find.
type SlotExtractor struct {
	caller jsonCaller
}

// NewSlotExtractor creates a SlotExtractor.
func NewSlotExtractor(chat infrastructure.ChatClient, strict bool, log *logger.Logger) *SlotExtractor {
	return &SlotExtractor{caller: newJSONCaller(chat, strict, log)}
}

// Extract returns proposed slot values keyed by normalized slot name.
// Unknown keys and non-scalar values are dropped; any model or parse
// failure yields an empty map.
func (x *SlotExtractor) Extract(ctx context.Context, registry *cfgdomain.TemplateRegistry, state *domain.ConversationState, text string) map[string]string {
	if !state.HasMode() {
		return nil
	}
	allowed := allowedKeys(registry, state.ModeKey())
	if len(allowed) == 0 {
		return nil
	}

	raw, ok := x.caller.call(ctx, "llm_extractor", extractorSystemPrompt, extractorUserPrompt(state, allowed, text), "updates")
	if !ok {
		return nil
	}
	updates, ok := raw.(map[string]any)
	if !ok {
		return nil
	}

	allowedSet := make(map[string]bool, len(allowed))
	for _, k := range allowed {
		allowedSet[k] = true
	}
	result := map[string]string{}
	for rawKey, rawValue := range updates {
		if !jsonx.IsScalar(rawValue) {
			continue
		}
		key := cfgdomain.NormalizeKey(rawKey)
		if !allowedSet[key] {
			continue
		}
		value := strings.TrimSpace(jsonx.Stringify(rawValue))
		if value == "" {
			continue
		}
		result[key] = value
	}
	return result
}

// allowedKeys is the mode's required slots plus every question-bank key.
func allowedKeys(registry *cfgdomain.TemplateRegistry, modeKey string) []string {
	set := map[string]bool{}
	for _, k := range registry.RequiredSlots(modeKey) {
		set[k] = true
	}
	for _, k := range registry.QuestionKeys() {
		set[k] = true
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func extractorUserPrompt(state *domain.ConversationState, allowed []string, text string) string {
	lines := []string{
		"mode_key: " + state.ModeKey(),
		"allowed_keys: " + mustJSON(allowed),
	}
	if filled := state.Slots.FilledMap(); len(filled) > 0 {
		lines = append(lines, "current_slots: "+mustJSON(filled))
	}
	lines = append(lines, "user_message: "+text)
	return strings.Join(lines, "\n")
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}
