package application

import (
	"regexp"
	"strings"

	cfgdomain "hello-prompt-agent/internal/features/config/domain"
	"hello-prompt-agent/internal/features/slotfilling/domain"
	"hello-prompt-agent/internal/pkg/jsonx"
)

// CommandPrefix starts every administrative command.
const CommandPrefix = "/"

var keyValueLine = regexp.MustCompile(`^\s*([a-zA-Z_][a-zA-Z0-9_ ]*)\s*[:=]\s*(.+?)\s*$`)

// RuleResult reports what the rule extractor changed.
type RuleResult struct {
	Updated        []string
	FilledFreeform bool
}

// ApplyRules fills slots from text. The first matching strategy wins:
// a JSON object, then key: value / key=value lines, then freeform text
// for the slot asked last turn.
func ApplyRules(state *domain.ConversationState, text string) RuleResult {
	if fields, ok := jsonObject(text); ok {
		return RuleResult{Updated: applyPairs(state, fields)}
	}

	if pairs := keyValueLines(text); len(pairs) > 0 {
		return RuleResult{Updated: applyPairs(state, pairs)}
	}

	trimmed := strings.TrimSpace(text)
	if state.LastAskedSlot == "" || trimmed == "" || strings.HasPrefix(trimmed, CommandPrefix) {
		return RuleResult{}
	}
	slot := cfgdomain.NormalizeKey(state.LastAskedSlot)
	if state.Slots.Filled(slot) {
		return RuleResult{}
	}
	state.Slots.Set(slot, trimmed)
	state.LastAskedSlot = ""
	return RuleResult{Updated: []string{slot}, FilledFreeform: true}
}

func jsonObject(text string) ([]jsonx.Field, bool) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") || !strings.HasSuffix(trimmed, "}") {
		return nil, false
	}
	return jsonx.OrderedObject(trimmed)
}

func keyValueLines(text string) []jsonx.Field {
	var pairs []jsonx.Field
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		m := keyValueLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		pairs = append(pairs, jsonx.Field{Key: strings.TrimSpace(m[1]), Value: strings.TrimSpace(m[2])})
	}
	return pairs
}

// applyPairs stores every non-blank value under its normalized key and
// returns the updated keys in first-seen order.
func applyPairs(state *domain.ConversationState, pairs []jsonx.Field) []string {
	var updated []string
	seen := map[string]bool{}
	for _, p := range pairs {
		if p.Value == nil {
			continue
		}
		key := cfgdomain.NormalizeKey(p.Key)
		value := strings.TrimSpace(jsonx.Stringify(p.Value))
		if key == "" || value == "" {
			continue
		}
		state.Slots.Set(key, value)
		if !seen[key] {
			seen[key] = true
			updated = append(updated, key)
		}
	}
	return updated
}
