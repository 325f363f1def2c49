package domain

import "strings"

// slotAliases maps shorthand slot names to their canonical form.
var slotAliases = map[string]string{
	"env":             "runtime_env",
	"environment":     "runtime_env",
	"runtime":         "runtime_env",
	"os":              "runtime_env",
	"repo":            "repo_context",
	"repository":      "repo_context",
	"repo_ctx":        "repo_context",
	"context":         "repo_context",
	"lang":            "language",
	"stack":           "language",
	"base":            "base_system",
	"system":          "base_system",
	"feature":         "new_features",
	"features":        "new_features",
	"new_feature":     "new_features",
	"compat":          "compatibility",
	"format":          "output_format",
	"output":          "output_format",
	"tests":           "acceptance_tests",
	"acceptance":      "acceptance_tests",
	"acceptance_test": "acceptance_tests",
	"focus":           "review_focus",
	"deliverables":    "deliverable",
	"interface":       "interfaces",
	"api":             "interfaces",
	"objective":       "goal",
	"goals":           "goal",
}

// NormalizeKey canonicalizes a slot name: trimmed, lowercased, inner runs of
// spaces or dashes folded to a single underscore, then resolved through the
// alias table.
func NormalizeKey(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.Join(strings.FieldsFunc(key, func(r rune) bool {
		return r == ' ' || r == '-' || r == '\t'
	}), "_")
	if canonical, ok := slotAliases[key]; ok {
		return canonical
	}
	return key
}

// NormalizeKeys normalizes each name, dropping blanks and duplicates while
// keeping first-seen order.
func NormalizeKeys(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, r := range raw {
		k := NormalizeKey(r)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
