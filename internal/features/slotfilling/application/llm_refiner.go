package application

import (
	"context"
	"strings"

	"hello-prompt-agent/internal/features/slotfilling/infrastructure"
	"hello-prompt-agent/internal/pkg/logger"
)

const refinerSystemPrompt = "You refine the language of a structured prompt.\n" +
	"Return ONLY one JSON object. No markdown, no explanation.\n" +
	`Schema: {"refined": "<text>"}.` + "\n" +
	"Do NOT add or remove any section headings."

// allowedHeadings is every section name the composer can emit.
var allowedHeadings = map[string]bool{
	SectionRole: true, SectionContext: true, SectionGoal: true,
	SectionConstraints: true, SectionDeliverable: true, SectionAcceptance: true,
	SectionOutput: true, SectionAssumptions: true, SectionMissing: true,
}

// Refiner asks the model to polish a composed prompt's wording.
type Refiner struct {
	caller jsonCaller
}

// NewRefiner creates a Refiner.
func NewRefiner(chat infrastructure.ChatClient, strict bool, log *logger.Logger) *Refiner {
	return &Refiner{caller: newJSONCaller(chat, strict, log)}
}

// Refine returns the model's rewrite of base, or base itself when the
// rewrite is blank or its "## " headings differ from base's or fall
// outside the known sections.
func (r *Refiner) Refine(ctx context.Context, base string) string {
	raw, ok := r.caller.call(ctx, "llm_refiner", refinerSystemPrompt, base, "refined")
	if !ok {
		return base
	}
	refined, ok := raw.(string)
	if !ok || strings.TrimSpace(refined) == "" {
		return base
	}

	baseHeadings := headings(base)
	refinedHeadings := headings(refined)
	if len(baseHeadings) != len(refinedHeadings) {
		return base
	}
	for h := range refinedHeadings {
		if !baseHeadings[h] || !allowedHeadings[h] {
			return base
		}
	}
	return refined
}

func headings(text string) map[string]bool {
	out := map[string]bool{}
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "## ") {
			out[strings.TrimSpace(line[3:])] = true
		}
	}
	return out
}
