package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	cfgdomain "hello-prompt-agent/internal/features/config/domain"
	"hello-prompt-agent/internal/features/slotfilling/domain"
)

const helpText = `Commands:
- /templates                 list template modes
- /mode <CATEGORY> <SUBTYPE> select a template (required first)
- /show                      show current slots
- /clear <slot>              clear one slot
- /export                    export the session as JSON
- /reset                     start over
- /paste                     multi-line paste mode (CLI only)

Slots can be filled with a JSON object, or key: value / key=value lines.`

const (
	modeUsage  = "Usage: /mode <CATEGORY> <SUBTYPE>, e.g. /mode CODE EXTEND"
	clearUsage = "Usage: /clear <slot>"
)

type commandHandler func(e *Engine, ctx context.Context, args string) domain.StepResult

var commands = map[string]commandHandler{
	"/help":      (*Engine).handleHelp,
	"/templates": (*Engine).handleTemplates,
	"/mode":      (*Engine).handleMode,
	"/show":      (*Engine).handleShow,
	"/clear":     (*Engine).handleClear,
	"/export":    (*Engine).handleExport,
	"/reset":     (*Engine).handleReset,
	"/paste":     (*Engine).handlePaste,
}

// splitCommand separates "/name rest" into its name and trimmed rest.
// ok is false for input that is not a known command.
func splitCommand(text string) (handler commandHandler, args string, ok bool) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, CommandPrefix) {
		return nil, "", false
	}
	name, rest, _ := strings.Cut(trimmed, " ")
	handler, ok = commands[name]
	return handler, strings.TrimSpace(rest), ok
}

// parseModeCommand validates /mode arguments against the registry.
func parseModeCommand(registry *cfgdomain.TemplateRegistry, args string) (cfgdomain.Mode, error) {
	parts := strings.Fields(args)
	if len(parts) != 2 {
		return cfgdomain.Mode{}, &domain.ValidationError{Message: modeUsage}
	}
	mode, ok := registry.LookupMode(parts[0], parts[1])
	if !ok {
		return cfgdomain.Mode{}, &domain.ValidationError{Message: fmt.Sprintf(
			"Unsupported mode: %s\nUse /templates to list available modes.",
			cfgdomain.ModeKey(parts[0], parts[1]))}
	}
	return mode, nil
}

// parseClearCommand returns the normalized slot name to clear.
func parseClearCommand(args string) (string, error) {
	slot := cfgdomain.NormalizeKey(args)
	if slot == "" {
		return "", &domain.ValidationError{Message: clearUsage}
	}
	return slot, nil
}

func (e *Engine) handleHelp(context.Context, string) domain.StepResult {
	return domain.StepResult{Text: helpText}
}

func (e *Engine) handleTemplates(context.Context, string) domain.StepResult {
	return domain.StepResult{Text: e.registry.MenuText()}
}

func (e *Engine) handleReset(context.Context, string) domain.StepResult {
	return e.Reset()
}

func (e *Engine) handlePaste(context.Context, string) domain.StepResult {
	return domain.StepResult{Text: "Paste mode is handled by the CLI; use /paste there."}
}

func (e *Engine) handleMode(_ context.Context, args string) domain.StepResult {
	mode, err := parseModeCommand(e.registry, args)
	if err != nil {
		return validationResult(err)
	}
	e.state.Category = mode.Category
	e.state.Subtype = mode.Subtype
	e.state.LastAskedSlot = ""
	return domain.StepResult{Text: fmt.Sprintf("Mode set to %s. Start with goal (e.g. goal: ...).", mode.Key())}
}

func (e *Engine) handleShow(context.Context, string) domain.StepResult {
	if !e.state.HasMode() {
		return domain.StepResult{Text: "No mode selected. Use /mode to choose a template first."}
	}
	modeKey := e.state.ModeKey()
	lines := []string{"Mode: " + modeKey, "Required slots:"}
	for _, s := range e.registry.RequiredSlots(modeKey) {
		status := "missing"
		if e.state.Slots.Filled(s) {
			status = "filled"
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", s, status))
	}

	lines = append(lines, "Current slots:")
	ordered := orderedSlotKeys(e.state.Slots, e.registry.SlotPriority())
	if len(ordered) == 0 {
		lines = append(lines, "- (none)")
	}
	for _, k := range ordered {
		v, _ := e.state.Slots.Get(k)
		lines = append(lines, fmt.Sprintf("- %s: %s", k, v))
	}
	return domain.StepResult{Text: strings.Join(lines, "\n")}
}

// orderedSlotKeys lists stored keys by priority, then the rest alphabetically.
func orderedSlotKeys(slots *domain.SlotMap, priority []string) []string {
	present := map[string]bool{}
	for _, k := range slots.Keys() {
		present[k] = true
	}
	var ordered []string
	for _, k := range priority {
		if present[k] {
			ordered = append(ordered, k)
			delete(present, k)
		}
	}
	rest := make([]string, 0, len(present))
	for k := range present {
		rest = append(rest, k)
	}
	sort.Strings(rest)
	return append(ordered, rest...)
}

func (e *Engine) handleClear(_ context.Context, args string) domain.StepResult {
	slot, err := parseClearCommand(args)
	if err != nil {
		return validationResult(err)
	}
	if !e.state.Slots.Delete(slot) {
		return domain.StepResult{Text: "Slot not found: " + slot}
	}
	if e.state.LastAskedSlot == slot {
		e.state.LastAskedSlot = ""
	}
	return domain.StepResult{Text: "Cleared slot: " + slot}
}

func (e *Engine) handleExport(ctx context.Context, _ string) domain.StepResult {
	path, err := e.Export(ctx)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			return domain.StepResult{Text: verr.Message}
		}
		e.log.Error("Export failed", "error", err)
		return domain.StepResult{Text: "Export failed: " + err.Error()}
	}
	return domain.StepResult{Text: "Exported: " + path}
}

func validationResult(err error) domain.StepResult {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return domain.StepResult{Text: verr.Message}
	}
	return domain.StepResult{Text: err.Error()}
}
