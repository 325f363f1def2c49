package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Mode is a (category, subtype) pair selecting a template.
type Mode struct {
	Category string `json:"category"`
	Subtype  string `json:"subtype"`
	Label    string `json:"label,omitempty"`
}

// Key renders the mode as "CATEGORY/SUBTYPE".
func (m Mode) Key() string {
	return m.Category + "/" + m.Subtype
}

// ModeKey builds the uppercase key for a category and subtype.
func ModeKey(category, subtype string) string {
	return strings.ToUpper(strings.TrimSpace(category)) + "/" + strings.ToUpper(strings.TrimSpace(subtype))
}

// TemplateRegistry is the immutable template set loaded at startup.
type TemplateRegistry struct {
	modes         []Mode
	requiredSlots map[string][]string
	slotPriority  []string
	priorityIndex map[string]int
	questions     map[string]string
	warnings      []string
}

// NewTemplateRegistry assembles a registry from already validated parts.
// Slot names are normalized, missing question-bank entries are synthesized
// and slots absent from the priority list are recorded as warnings.
func NewTemplateRegistry(modes []Mode, requiredSlots map[string][]string, slotPriority []string, questions map[string]string) *TemplateRegistry {
	r := &TemplateRegistry{
		modes:         make([]Mode, 0, len(modes)),
		requiredSlots: make(map[string][]string, len(requiredSlots)),
		slotPriority:  NormalizeKeys(slotPriority),
		questions:     make(map[string]string, len(questions)),
	}
	for _, m := range modes {
		m.Category = strings.ToUpper(strings.TrimSpace(m.Category))
		m.Subtype = strings.ToUpper(strings.TrimSpace(m.Subtype))
		r.modes = append(r.modes, m)
	}
	for key, slots := range requiredSlots {
		r.requiredSlots[strings.ToUpper(key)] = NormalizeKeys(slots)
	}
	r.priorityIndex = make(map[string]int, len(r.slotPriority))
	for i, s := range r.slotPriority {
		r.priorityIndex[s] = i
	}
	for k, q := range questions {
		k = NormalizeKey(k)
		if k == "" || strings.TrimSpace(q) == "" {
			continue
		}
		r.questions[k] = strings.TrimSpace(q)
	}

	unranked := map[string]bool{}
	for _, m := range r.modes {
		for _, s := range r.requiredSlots[m.Key()] {
			if _, ok := r.questions[s]; !ok {
				r.questions[s] = SynthesizedQuestion(s)
			}
			if _, ok := r.priorityIndex[s]; !ok {
				unranked[s] = true
			}
		}
	}
	if len(unranked) > 0 {
		names := make([]string, 0, len(unranked))
		for s := range unranked {
			names = append(names, s)
		}
		sort.Strings(names)
		r.warnings = append(r.warnings, fmt.Sprintf(
			"slots missing from slot_priority will be asked last: %s", strings.Join(names, ", ")))
	}
	return r
}

// SynthesizedQuestion is the fallback question for a slot with no bank entry.
func SynthesizedQuestion(slot string) string {
	return "Please provide: " + slot
}

// Modes returns the configured modes in declaration order.
func (r *TemplateRegistry) Modes() []Mode {
	return append([]Mode(nil), r.modes...)
}

// LookupMode finds a mode by category and subtype, case-insensitively.
func (r *TemplateRegistry) LookupMode(category, subtype string) (Mode, bool) {
	key := ModeKey(category, subtype)
	for _, m := range r.modes {
		if m.Key() == key {
			return m, true
		}
	}
	return Mode{}, false
}

// RequiredSlots returns the ordered required slots for a mode key.
func (r *TemplateRegistry) RequiredSlots(modeKey string) []string {
	return append([]string(nil), r.requiredSlots[strings.ToUpper(modeKey)]...)
}

// SlotPriority returns the configured slot ordering.
func (r *TemplateRegistry) SlotPriority() []string {
	return append([]string(nil), r.slotPriority...)
}

// PriorityRank returns the slot's position in slot_priority, or
// len(slot_priority) for unranked slots so they sort after ranked ones.
func (r *TemplateRegistry) PriorityRank(slot string) int {
	if i, ok := r.priorityIndex[slot]; ok {
		return i
	}
	return len(r.slotPriority)
}

// Question returns the bank question for a slot.
func (r *TemplateRegistry) Question(slot string) string {
	if q, ok := r.questions[NormalizeKey(slot)]; ok {
		return q
	}
	return SynthesizedQuestion(slot)
}

// QuestionKeys returns every slot name with a bank question, sorted.
func (r *TemplateRegistry) QuestionKeys() []string {
	keys := make([]string, 0, len(r.questions))
	for k := range r.questions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Warnings returns non-fatal problems found while loading.
func (r *TemplateRegistry) Warnings() []string {
	return append([]string(nil), r.warnings...)
}

// NormalizeKey is exposed on the registry so callers holding only the
// registry can canonicalize user-supplied slot names.
func (r *TemplateRegistry) NormalizeKey(raw string) string {
	return NormalizeKey(raw)
}

// MenuText lists the selectable modes.
func (r *TemplateRegistry) MenuText() string {
	lines := []string{"Choose a template mode:"}
	for i, m := range r.modes {
		line := fmt.Sprintf("%d) /mode %s %s", i+1, m.Category, m.Subtype)
		if m.Label != "" {
			line += fmt.Sprintf("  (%s)", m.Label)
		}
		lines = append(lines, line)
	}
	if len(r.modes) > 0 {
		lines = append(lines, fmt.Sprintf("Example: /mode %s %s", r.modes[0].Category, r.modes[0].Subtype))
	}
	return strings.Join(lines, "\n")
}
