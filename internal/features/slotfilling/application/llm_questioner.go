package application

import (
	"context"
	"strings"

	cfgdomain "hello-prompt-agent/internal/features/config/domain"
	"hello-prompt-agent/internal/features/slotfilling/domain"
	"hello-prompt-agent/internal/features/slotfilling/infrastructure"
	"hello-prompt-agent/internal/pkg/logger"
)

const (
	maxModelQuestions = 2
	maxQuestionLength = 200
)

const questionerSystemPrompt = "You generate clarification questions for missing slots in a CODE workflow.\n" +
	"Return ONLY one JSON object. No markdown, no explanation.\n" +
	`Schema: {"ask": [{"slot": "<missing_slot>", "question": "..."}, ...]}.` + "\n" +
	"You MUST only ask about missing_slots. Ask at most 2."

// Question is a clarification question for one slot.
type Question struct {
	Slot     string `json:"slot"`
	Question string `json:"question"`
}

// Questioner asks the model to phrase questions for missing slots.
type Questioner struct {
	caller jsonCaller
}

// NewQuestioner creates a Questioner.
func NewQuestioner(chat infrastructure.ChatClient, strict bool, log *logger.Logger) *Questioner {
	return &Questioner{caller: newJSONCaller(chat, strict, log)}
}

// Ask returns at most two questions, each about a slot in missing.
func (q *Questioner) Ask(ctx context.Context, state *domain.ConversationState, missing []string) []Question {
	if len(missing) == 0 || !state.HasMode() {
		return nil
	}

	user := strings.Join([]string{
		"mode_key: " + state.ModeKey(),
		"missing_slots: " + mustJSON(missing),
	}, "\n")
	raw, ok := q.caller.call(ctx, "llm_questioner", questionerSystemPrompt, user, "ask")
	if !ok {
		return nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	if len(items) > maxModelQuestions {
		items = items[:maxModelQuestions]
	}

	missingSet := make(map[string]bool, len(missing))
	for _, s := range missing {
		missingSet[cfgdomain.NormalizeKey(s)] = true
	}
	var out []Question
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		rawSlot, ok1 := entry["slot"].(string)
		rawQuestion, ok2 := entry["question"].(string)
		if !ok1 || !ok2 {
			continue
		}
		slot := cfgdomain.NormalizeKey(rawSlot)
		text := strings.TrimSpace(rawQuestion)
		if text == "" || len([]rune(text)) > maxQuestionLength || !missingSet[slot] {
			continue
		}
		out = append(out, Question{Slot: slot, Question: text})
	}
	return out
}
