package application

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfgdomain "hello-prompt-agent/internal/features/config/domain"
)

var fixedNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newTestEngine(t *testing.T, assist cfgdomain.AssistConfig, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return fixedNow }), WithExportDir(t.TempDir())}, opts...)
	return NewEngine(testRegistry(), assist, opts...)
}

func TestEngineExtendFlowRulesOnly(t *testing.T) {
	e := newTestEngine(t, rulesOnly())
	ctx := context.Background()

	res := e.Step(ctx, "/mode code extend")
	assert.Equal(t, "Mode set to CODE/EXTEND. Start with goal (e.g. goal: ...).", res.Text)

	inputs := []string{
		"goal: add an export command",
		"base_system: go cli with cobra",
		"new_features: json export",
		"compatibility: keep existing flags",
		"env: linux",
	}
	for _, in := range inputs {
		res = e.Step(ctx, in)
		require.False(t, res.Done, "after %q", in)
		assert.True(t, strings.HasPrefix(res.Text, "To compose a usable prompt, one more key detail is needed:\n"))
	}
	assert.Equal(t, "output_format", e.State().LastAskedSlot)

	res = e.Step(ctx, "output_format: markdown")
	require.True(t, res.Done)
	assert.True(t, strings.HasPrefix(res.Text, "Enough information collected. Final prompt:\n\n"))
	for _, h := range FixedSections {
		assert.Contains(t, res.Text, "## "+h+"\n")
	}
	assert.Contains(t, res.Text, "- Runtime environment: linux")

	assert.Equal(t, 7, e.State().Turn)
	assert.Len(t, e.State().History, 14)
}

func TestEngineExtendFlowDegradesWhenModelFails(t *testing.T) {
	client := newSequenceClient()
	e := newTestEngine(t, cfgdomain.DefaultAssistConfig(), WithChatClient(client))
	ctx := context.Background()

	e.Step(ctx, "/mode CODE EXTEND")
	res := e.Step(ctx, "goal: g\nbase_system: b\nnew_features: n\ncompatibility: c\nruntime_env: r")
	assert.False(t, res.Done)
	assert.Equal(t, "To compose a usable prompt, one more key detail is needed:\n"+cfgdomain.SynthesizedQuestion("output_format"), res.Text)

	res = e.Step(ctx, "markdown please")
	assert.True(t, res.Done)
	assert.Equal(t, "markdown please", e.State().Slots.Value("output_format"))
	assert.Positive(t, client.callCount())
}

func TestEngineFreeTextBeforeModeReturnsMenu(t *testing.T) {
	e := newTestEngine(t, rulesOnly())
	res := e.Step(context.Background(), "goal: something")
	assert.False(t, res.Done)
	assert.Equal(t, testRegistry().MenuText(), res.Text)
	assert.Equal(t, 0, e.State().Slots.Len())
}

func TestEngineModeCommandErrors(t *testing.T) {
	e := newTestEngine(t, rulesOnly())
	ctx := context.Background()

	assert.Equal(t, modeUsage, e.Step(ctx, "/mode CODE").Text)
	res := e.Step(ctx, "/mode code nope")
	assert.Equal(t, "Unsupported mode: CODE/NOPE\nUse /templates to list available modes.", res.Text)
	assert.False(t, e.State().HasMode())
}

func TestEngineModeSwitchKeepsSlots(t *testing.T) {
	e := newTestEngine(t, rulesOnly())
	ctx := context.Background()
	e.Step(ctx, "/mode CODE EXTEND")
	e.Step(ctx, "goal: g")
	require.NotEmpty(t, e.State().LastAskedSlot)

	e.Step(ctx, "/mode CODE REVIEW")

	assert.Equal(t, "CODE/REVIEW", e.State().ModeKey())
	assert.Empty(t, e.State().LastAskedSlot)
	assert.Equal(t, "g", e.State().Slots.Value("goal"))
}

func TestEngineCommandsDoNotAdvanceSlots(t *testing.T) {
	e := newTestEngine(t, rulesOnly())
	ctx := context.Background()
	e.Step(ctx, "/mode CODE EXTEND")
	e.State().LastAskedSlot = "goal"

	for _, cmd := range []string{"/help", "/templates", "/show", "/paste"} {
		res := e.Step(ctx, cmd)
		assert.False(t, res.Done, cmd)
	}
	assert.Equal(t, 0, e.State().Slots.Len())
	assert.Equal(t, "goal", e.State().LastAskedSlot)
	assert.Equal(t, helpText, e.Step(ctx, "  /help  ").Text)
}

func TestEngineShow(t *testing.T) {
	e := newTestEngine(t, rulesOnly())
	ctx := context.Background()
	assert.Equal(t, "No mode selected. Use /mode to choose a template first.", e.Step(ctx, "/show").Text)

	e.Step(ctx, "/mode CODE EXTEND")
	e.Step(ctx, "zeta: z\nruntime_env: linux\ngoal: g\nalpha: a")

	want := strings.Join([]string{
		"Mode: CODE/EXTEND",
		"Required slots:",
		"- goal: filled",
		"- base_system: missing",
		"- new_features: missing",
		"- compatibility: missing",
		"- runtime_env: filled",
		"- output_format: missing",
		"Current slots:",
		"- goal: g",
		"- runtime_env: linux",
		"- alpha: a",
		"- zeta: z",
	}, "\n")
	assert.Equal(t, want, e.Step(ctx, "/show").Text)
}

func TestEngineClearNormalizesAlias(t *testing.T) {
	e := newTestEngine(t, rulesOnly())
	ctx := context.Background()
	e.Step(ctx, "/mode CODE EXTEND")
	e.State().Slots.Set("runtime_env", "linux")
	e.State().LastAskedSlot = "runtime_env"

	assert.Equal(t, "Cleared slot: runtime_env", e.Step(ctx, "/clear env").Text)
	assert.False(t, e.State().Slots.Filled("runtime_env"))
	assert.Empty(t, e.State().LastAskedSlot)

	assert.Equal(t, "Slot not found: runtime_env", e.Step(ctx, "/clear Runtime Env").Text)
	assert.Equal(t, clearUsage, e.Step(ctx, "/clear").Text)
}

func TestEngineReset(t *testing.T) {
	e := newTestEngine(t, rulesOnly())
	ctx := context.Background()
	e.Step(ctx, "/mode CODE EXTEND")
	e.Step(ctx, "goal: g")
	before := e.State().SessionID

	res := e.Step(ctx, "/reset")

	assert.True(t, strings.HasPrefix(res.Text, "Session reset.\n"))
	assert.NotEqual(t, before, e.State().SessionID)
	assert.False(t, e.State().HasMode())
	assert.Equal(t, 0, e.State().Slots.Len())
}

func TestEngineUnknownSlashCommandIsPlainText(t *testing.T) {
	e := newTestEngine(t, rulesOnly())
	ctx := context.Background()
	e.Step(ctx, "/mode CODE EXTEND")
	e.State().LastAskedSlot = "goal"

	res := e.Step(ctx, "/frobnicate")

	assert.False(t, res.Done)
	assert.False(t, e.State().Slots.Filled("goal"))
}

func TestEngineExportRequiresMode(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	e := newTestEngine(t, rulesOnly(), WithExportDir(dir))

	res := e.Step(context.Background(), "/export")

	assert.Equal(t, "Select a mode before exporting.", res.Text)
	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestEngineExportWritesSnapshot(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	e := newTestEngine(t, rulesOnly(), WithExportDir(dir))
	ctx := context.Background()
	e.Step(ctx, "/mode CODE EXTEND")
	e.Step(ctx, "goal: g\nenv: linux")

	res := e.Step(ctx, "/export")

	path := filepath.Join(dir, "session_20260102_030405.json")
	assert.Equal(t, "Exported: "+path, res.Text)
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "CODE/EXTEND", got["mode"])
	assert.Equal(t, e.State().SessionID, got["session_id"])
	assert.Equal(t, map[string]any{"goal": "g", "runtime_env": "linux"}, got["slots"])
	assert.Equal(t, "2026-01-02T03:04:05Z", got["created_at"])
	assert.Contains(t, got["final_prompt"], "## Missing Info")
}

func TestEngineExportRefinesWhenEnabled(t *testing.T) {
	assist := rulesOnly()
	assist.EnableLLMRefiner = true
	client := newSequenceClient(`{"refined": "## Role\n- polished"}`)
	e := newTestEngine(t, assist, WithChatClient(client))
	e.State().Category, e.State().Subtype = "CODE", "EXTEND"

	path, err := e.Export(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, client.callCount())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	// heading set differs, so the composed prompt is kept
	assert.Contains(t, got["final_prompt"], "## Missing Info")
}

func extractorOnly() cfgdomain.AssistConfig {
	cfg := rulesOnly()
	cfg.EnableLLMExtractor = true
	return cfg
}

func TestEngineModelMayOverwriteSameTurnExplicitUpdate(t *testing.T) {
	client := newSequenceClient(`{"updates": {"goal": "model goal"}}`)
	e := newTestEngine(t, extractorOnly(), WithChatClient(client))
	ctx := context.Background()
	e.Step(ctx, "/mode CODE EXTEND")

	e.Step(ctx, "goal: user goal")

	assert.Equal(t, 1, client.callCount())
	assert.Equal(t, "model goal", e.State().Slots.Value("goal"))
}

func TestEngineModelCannotOverwriteEarlierFreeformFill(t *testing.T) {
	client := newSequenceClient(
		`{"updates": {}}`,
		`{"updates": {"goal": "model goal", "new_features": "nf"}}`,
	)
	e := newTestEngine(t, extractorOnly(), WithChatClient(client))
	ctx := context.Background()
	e.Step(ctx, "/mode CODE EXTEND")
	e.State().LastAskedSlot = "goal"

	e.Step(ctx, "a freeform goal")
	e.Step(ctx, "base_system: b")

	assert.Equal(t, 2, client.callCount())
	assert.Equal(t, "a freeform goal", e.State().Slots.Value("goal"))
	assert.Equal(t, "nf", e.State().Slots.Value("new_features"))
}

func TestEngineModelOverwritesWhenFillOnlyDisabled(t *testing.T) {
	assist := extractorOnly()
	assist.FillOnlyEmptySlots = false
	client := newSequenceClient(`{"updates": {"goal": "model goal"}}`)
	e := newTestEngine(t, assist, WithChatClient(client))
	ctx := context.Background()
	e.Step(ctx, "/mode CODE EXTEND")
	e.State().Slots.Set("goal", "old")

	e.Step(ctx, "it is a go cli")

	assert.Equal(t, "model goal", e.State().Slots.Value("goal"))
}

func TestEngineSkipsExtractorWhenRulesNearlyDone(t *testing.T) {
	client := newSequenceClient()
	e := newTestEngine(t, extractorOnly(), WithChatClient(client))
	ctx := context.Background()
	e.Step(ctx, "/mode CODE EXTEND")
	e.Step(ctx, "goal: g\nbase_system: b\nnew_features: n\ncompatibility: c")
	calls := client.callCount()

	res := e.Step(ctx, "runtime_env: linux")

	assert.False(t, res.Done)
	assert.Equal(t, calls, client.callCount())
}

func TestEngineUsesModelQuestion(t *testing.T) {
	assist := rulesOnly()
	assist.EnableLLMQuestioner = true
	client := newSequenceClient(`{"ask": [{"slot": "goal", "question": "What should the change achieve?"}]}`)
	e := newTestEngine(t, assist, WithChatClient(client))
	ctx := context.Background()
	e.Step(ctx, "/mode CODE EXTEND")

	res := e.Step(ctx, "hello")

	assert.Equal(t, "To compose a usable prompt, some key details are missing:\nWhat should the change achieve?", res.Text)
	assert.Equal(t, "goal", e.State().LastAskedSlot)
}

func TestEngineFallsBackToBankOnInvalidQuestion(t *testing.T) {
	assist := rulesOnly()
	assist.EnableLLMQuestioner = true
	client := newSequenceClient(`{"ask": [{"slot": "scope", "question": "Scope?"}]}`)
	e := newTestEngine(t, assist, WithChatClient(client))
	ctx := context.Background()
	e.Step(ctx, "/mode CODE EXTEND")

	res := e.Step(ctx, "hello")

	assert.Equal(t, "To compose a usable prompt, one more key detail is needed:\nWhat is the goal?", res.Text)
	assert.Equal(t, "goal", e.State().LastAskedSlot)
}

func TestEngineComposesWhenNoQuestionAvailable(t *testing.T) {
	assist := rulesOnly()
	assist.QuestionFallbackToBank = false
	e := newTestEngine(t, assist)
	ctx := context.Background()
	e.Step(ctx, "/mode CODE EXTEND")

	res := e.Step(ctx, "goal: g")

	assert.True(t, res.Done)
	assert.Contains(t, res.Text, "## Missing Info")
}

func TestEngineRefinesFinalPrompt(t *testing.T) {
	assist := rulesOnly()
	assist.EnableLLMRefiner = true
	base := Compose(fillExtend(t), testRegistry())
	polished := strings.Replace(base, "- add export", "- Add an export command", 1)
	e := newTestEngine(t, assist, WithChatClient(newSequenceClient(refinedReply(t, polished))))
	ctx := context.Background()
	e.Step(ctx, "/mode CODE EXTEND")

	res := e.Step(ctx, "goal: add export\nbase_system: go cli\nnew_features: json export\ncompatibility: keep flags\nruntime_env: linux\noutput_format: markdown")

	require.True(t, res.Done)
	assert.Contains(t, res.Text, "- Add an export command")
}
