package application

import (
	"sort"

	cfgdomain "hello-prompt-agent/internal/features/config/domain"
	"hello-prompt-agent/internal/features/slotfilling/domain"
)

// MissingSlots lists the active mode's required slots that are still blank,
// ordered by slot priority. Unranked slots keep their required order after
// the ranked ones.
func MissingSlots(state *domain.ConversationState, registry *cfgdomain.TemplateRegistry) []string {
	if !state.HasMode() {
		return nil
	}
	var missing []string
	for _, slot := range registry.RequiredSlots(state.ModeKey()) {
		if !state.Slots.Filled(slot) {
			missing = append(missing, slot)
		}
	}
	sort.SliceStable(missing, func(i, j int) bool {
		return registry.PriorityRank(missing[i]) < registry.PriorityRank(missing[j])
	})
	return missing
}
