package application

import (
	"context"
	"strings"
	"time"

	cfgdomain "hello-prompt-agent/internal/features/config/domain"
	"hello-prompt-agent/internal/features/slotfilling/domain"
	"hello-prompt-agent/internal/features/slotfilling/infrastructure"
	"hello-prompt-agent/internal/pkg/logger"
)

// Engine drives one slot-filling session. It is not safe for concurrent
// use; callers serving several goroutines must serialize Step calls.
type Engine struct {
	registry  *cfgdomain.TemplateRegistry
	assist    cfgdomain.AssistConfig
	chat      infrastructure.ChatClient
	log       *logger.Logger
	now       func() time.Time
	exportDir string

	extractor  *SlotExtractor
	questioner *Questioner
	refiner    *Refiner

	state *domain.ConversationState
}

// Option configures an Engine.
type Option func(*Engine)

// WithChatClient sets the model used by the assisted components. Without
// one, the engine runs on rules and the question bank only.
func WithChatClient(c infrastructure.ChatClient) Option {
	return func(e *Engine) { e.chat = c }
}

func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithClock overrides time.Now for export timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithExportDir(dir string) Option {
	return func(e *Engine) {
		if dir != "" {
			e.exportDir = dir
		}
	}
}

// NewEngine creates an Engine with a fresh session.
func NewEngine(registry *cfgdomain.TemplateRegistry, assist cfgdomain.AssistConfig, opts ...Option) *Engine {
	e := &Engine{
		registry:  registry,
		assist:    assist,
		log:       logger.NewNop(),
		now:       time.Now,
		exportDir: DefaultExportDir,
		state:     domain.NewConversationState(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.extractor = NewSlotExtractor(e.chat, assist.StrictJSONOnly, e.log)
	e.questioner = NewQuestioner(e.chat, assist.StrictJSONOnly, e.log)
	e.refiner = NewRefiner(e.chat, assist.StrictJSONOnly, e.log)
	return e
}

// State returns the live session state.
func (e *Engine) State() *domain.ConversationState {
	return e.state
}

// Registry returns the template registry the engine was built with.
func (e *Engine) Registry() *cfgdomain.TemplateRegistry {
	return e.registry
}

// Reset discards the session and returns the mode menu.
func (e *Engine) Reset() domain.StepResult {
	e.state = domain.NewConversationState()
	return domain.StepResult{Text: "Session reset.\n" + e.registry.MenuText()}
}

// Step runs one turn. Commands are handled first; otherwise the message
// goes through rule extraction, optional model extraction, and then either
// a clarification question or the composed prompt.
func (e *Engine) Step(ctx context.Context, text string) domain.StepResult {
	e.state.Turn++
	e.state.Append(domain.RoleUser, text)

	result := e.step(ctx, text)

	e.state.Append(domain.RoleAssistant, result.Text)
	e.log.Debug("Turn complete",
		"session_id", e.state.SessionID,
		"turn", e.state.Turn,
		"mode", e.state.ModeKey(),
		"slots", e.state.Slots.FilledMap(),
		"last_asked_slot", e.state.LastAskedSlot,
		"done", result.Done,
	)
	return result
}

func (e *Engine) step(ctx context.Context, text string) domain.StepResult {
	if handler, args, ok := splitCommand(text); ok {
		return handler(e, ctx, args)
	}
	if !e.state.HasMode() {
		return domain.StepResult{Text: e.registry.MenuText()}
	}

	rules := ApplyRules(e.state, text)
	missing := MissingSlots(e.state, e.registry)
	if e.shouldCallExtractor(rules, missing) {
		e.mergeModelUpdates(rules, e.extractor.Extract(ctx, e.registry, e.state, text))
		missing = MissingSlots(e.state, e.registry)
	}

	if len(missing) > 0 {
		if result, ok := e.ask(ctx, missing); ok {
			return result
		}
	}

	return domain.StepResult{
		Text: "Enough information collected. Final prompt:\n\n" + e.finalPrompt(ctx),
		Done: true,
	}
}

// shouldCallExtractor calls the model when the rules found nothing, or
// when at least two required slots are still open.
func (e *Engine) shouldCallExtractor(rules RuleResult, missing []string) bool {
	if !e.assist.EnableLLMExtractor || e.chat == nil {
		return false
	}
	return len(rules.Updated) == 0 || len(missing) >= 2
}

// mergeModelUpdates applies model-proposed values. With
// fill_only_empty_slots, a value only lands in a blank slot or in one the
// user set explicitly this turn.
func (e *Engine) mergeModelUpdates(rules RuleResult, updates map[string]string) {
	explicit := map[string]bool{}
	if !rules.FilledFreeform {
		for _, k := range rules.Updated {
			explicit[k] = true
		}
	}
	for key, value := range updates {
		if e.assist.FillOnlyEmptySlots && e.state.Slots.Filled(key) && !explicit[key] {
			e.log.Debug("Model update rejected, slot already filled", "slot", key)
			continue
		}
		e.state.Slots.Set(key, value)
	}
}

func (e *Engine) ask(ctx context.Context, missing []string) (domain.StepResult, bool) {
	if e.assist.EnableLLMQuestioner && e.chat != nil {
		questions := e.questioner.Ask(ctx, e.state, missing)
		if len(questions) > e.assist.MaxQuestionsPerTurn {
			questions = questions[:e.assist.MaxQuestionsPerTurn]
		}
		if len(questions) > 0 {
			e.state.LastAskedSlot = questions[0].Slot
			lines := []string{"To compose a usable prompt, some key details are missing:"}
			for _, q := range questions {
				lines = append(lines, q.Question)
			}
			return domain.StepResult{Text: strings.Join(lines, "\n")}, true
		}
	}

	if e.assist.QuestionFallbackToBank {
		slot := missing[0]
		e.state.LastAskedSlot = slot
		return domain.StepResult{
			Text: "To compose a usable prompt, one more key detail is needed:\n" + e.registry.Question(slot),
		}, true
	}
	return domain.StepResult{}, false
}

func (e *Engine) finalPrompt(ctx context.Context) string {
	prompt := Compose(e.state, e.registry)
	if e.assist.EnableLLMRefiner && e.chat != nil {
		prompt = e.refiner.Refine(ctx, prompt)
	}
	return prompt
}
