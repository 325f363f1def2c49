package application

import (
	"fmt"
	"strings"

	cfgdomain "hello-prompt-agent/internal/features/config/domain"
	"hello-prompt-agent/internal/features/slotfilling/domain"
)

// Section headings of a composed prompt, in render order.
const (
	SectionRole        = "Role"
	SectionContext     = "Context / Inputs"
	SectionGoal        = "Goal"
	SectionConstraints = "Constraints"
	SectionDeliverable = "Deliverables"
	SectionAcceptance  = "Acceptance Criteria"
	SectionOutput      = "Output Format"
	SectionAssumptions = "Assumptions"
	SectionMissing     = "Missing Info"
)

// FixedSections are always present in a composed prompt.
var FixedSections = []string{
	SectionRole, SectionContext, SectionGoal, SectionConstraints,
	SectionDeliverable, SectionAcceptance, SectionOutput,
}

// knownSlots is the composer's slot vocabulary. Slots in it that the mode
// does not require are optional.
var knownSlots = []string{
	"goal",
	"base_system",
	"repo_context",
	"new_features",
	"compatibility",
	"language",
	"runtime_env",
	"scope",
	"interfaces",
	"deliverable",
	"review_focus",
	"acceptance_tests",
	"output_format",
}

var slotLabels = map[string]string{
	"goal":             "Goal",
	"base_system":      "Base system constraints",
	"repo_context":     "Repository context",
	"new_features":     "New features",
	"compatibility":    "Compatibility",
	"language":         "Language/stack",
	"runtime_env":      "Runtime environment",
	"scope":            "Scope",
	"interfaces":       "Interfaces",
	"deliverable":      "Requested deliverables",
	"review_focus":     "Review focus",
	"acceptance_tests": "Acceptance tests",
	"output_format":    "Output format",
}

var (
	contextSlots    = []string{"base_system", "repo_context", "new_features"}
	constraintSlots = []string{"runtime_env", "language", "compatibility", "scope", "interfaces"}
)

const defaultOutputFormat = "Markdown with clear headings and lists"

// SlotLabel returns the human label for a slot.
func SlotLabel(slot string) string {
	if l, ok := slotLabels[slot]; ok {
		return l
	}
	return slot
}

// Compose renders the filled slots into the sectioned prompt for the
// active mode. The output depends only on the mode and slot values.
func Compose(state *domain.ConversationState, registry *cfgdomain.TemplateRegistry) string {
	modeKey := state.ModeKey()
	if modeKey == "" {
		modeKey = "UNKNOWN"
	}
	slots := state.Slots
	var b strings.Builder

	section(&b, SectionRole, []string{
		"- You are a senior software engineer and prompt engineer.",
		"- Mode: " + modeKey,
	})

	section(&b, SectionContext, labelled(slots, contextSlots))

	goal := slots.Value("goal")
	if goal == "" {
		goal = "(missing)"
	}
	section(&b, SectionGoal, []string{"- " + goal})

	section(&b, SectionConstraints, labelled(slots, constraintSlots))

	var deliverables []string
	if d := slots.Value("deliverable"); d != "" {
		deliverables = []string{"- " + d}
	} else {
		deliverables = defaultDeliverables(state.Subtype)
	}
	section(&b, SectionDeliverable, deliverables)

	section(&b, SectionAcceptance, acceptanceCriteria(state.Subtype, slots))

	output := slots.Value("output_format")
	if output == "" {
		output = defaultOutputFormat
	}
	section(&b, SectionOutput, []string{"- " + output})

	required := registry.RequiredSlots(state.ModeKey())
	var missing []string
	for _, s := range required {
		if !slots.Filled(s) {
			missing = append(missing, s)
		}
	}
	if len(missing) > 0 {
		items := make([]string, 0, len(missing))
		for _, s := range missing {
			items = append(items, "- "+SlotLabel(s))
		}
		section(&b, SectionMissing, items)
	} else if assumptions := assumptionItems(slots, required); len(assumptions) > 0 {
		section(&b, SectionAssumptions, assumptions)
	}

	return strings.TrimRight(b.String(), "\n ")
}

// OptionalBlankSlots returns the known slots outside required that are blank.
func OptionalBlankSlots(slots *domain.SlotMap, required []string) []string {
	req := make(map[string]bool, len(required))
	for _, s := range required {
		req[s] = true
	}
	var out []string
	for _, s := range knownSlots {
		if !req[s] && !slots.Filled(s) {
			out = append(out, s)
		}
	}
	return out
}

func assumptionItems(slots *domain.SlotMap, required []string) []string {
	blank := OptionalBlankSlots(slots, required)
	items := make([]string, 0, len(blank))
	for _, s := range blank {
		items = append(items, fmt.Sprintf("- Not specified: %s (assume reasonable defaults)", SlotLabel(s)))
	}
	return items
}

func labelled(slots *domain.SlotMap, keys []string) []string {
	var items []string
	for _, k := range keys {
		if v := slots.Value(k); v != "" {
			items = append(items, fmt.Sprintf("- %s: %s", SlotLabel(k), v))
		}
	}
	return items
}

func defaultDeliverables(subtype string) []string {
	switch subtype {
	case "REVIEW":
		return []string{
			"- Prioritized findings with severity and evidence",
			"- Actionable recommendations or refactor plan",
		}
	case "EXTEND":
		return []string{
			"- Change plan and integration notes",
			"- Key code snippets or patch guidance",
			"- Test updates for new behavior",
		}
	}
	return []string{
		"- Architecture/implementation plan",
		"- Key code snippets and file layout",
		"- Test plan aligned to acceptance criteria",
	}
}

func acceptanceCriteria(subtype string, slots *domain.SlotMap) []string {
	if subtype == "REVIEW" {
		if f := slots.Value("review_focus"); f != "" {
			return []string{"- Review checklist focuses on: " + f}
		}
		return []string{"- Review checklist must be explicit and aligned to the goals"}
	}
	if t := slots.Value("acceptance_tests"); t != "" {
		return []string{"- Acceptance tests: " + t}
	}
	return []string{"- Include a concrete test checklist for the implemented changes"}
}

func section(b *strings.Builder, title string, items []string) {
	b.WriteString("## " + title + "\n")
	if len(items) == 0 {
		b.WriteString("- (none)\n")
	}
	for _, item := range items {
		b.WriteString(item + "\n")
	}
	b.WriteString("\n")
}
