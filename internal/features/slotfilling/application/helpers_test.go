package application

import (
	"context"
	"errors"
	"sync"

	cfgdomain "hello-prompt-agent/internal/features/config/domain"
	"hello-prompt-agent/internal/features/slotfilling/domain"
	"hello-prompt-agent/internal/features/slotfilling/infrastructure"
)

// sequenceClient replays canned replies in order and records every call.
// An empty reply string is turned into an error.
type sequenceClient struct {
	mu      sync.Mutex
	replies []string
	calls   [][]infrastructure.Message
}

func newSequenceClient(replies ...string) *sequenceClient {
	return &sequenceClient{replies: replies}
}

func (c *sequenceClient) Chat(_ context.Context, messages []infrastructure.Message) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, messages)
	if len(c.replies) == 0 {
		return "", errors.New("no scripted reply")
	}
	reply := c.replies[0]
	c.replies = c.replies[1:]
	if reply == "" {
		return "", errors.New("scripted failure")
	}
	return reply, nil
}

func (c *sequenceClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func testRegistry() *cfgdomain.TemplateRegistry {
	return cfgdomain.NewTemplateRegistry(
		[]cfgdomain.Mode{
			{Category: "CODE", Subtype: "FROM_SCRATCH", Label: "from scratch"},
			{Category: "CODE", Subtype: "REVIEW", Label: "review"},
			{Category: "CODE", Subtype: "EXTEND", Label: "extend"},
		},
		map[string][]string{
			"CODE/FROM_SCRATCH": {"goal", "language", "runtime_env", "scope", "interfaces", "acceptance_tests", "output_format"},
			"CODE/REVIEW":       {"goal", "repo_context", "review_focus", "deliverable", "output_format"},
			"CODE/EXTEND":       {"goal", "base_system", "new_features", "compatibility", "runtime_env", "output_format"},
		},
		[]string{
			"goal", "base_system", "repo_context", "new_features", "runtime_env", "language", "scope",
			"interfaces", "compatibility", "review_focus", "deliverable", "acceptance_tests", "output_format",
		},
		map[string]string{
			"goal":          "What is the goal?",
			"base_system":   "What is the base system?",
			"new_features":  "Which new features?",
			"compatibility": "What must stay compatible?",
			"runtime_env":   "Where does it run?",
		},
	)
}

func stateWithMode(category, subtype string) *domain.ConversationState {
	s := domain.NewConversationState()
	s.Category, s.Subtype = category, subtype
	return s
}

// rulesOnly disables every model-assisted component.
func rulesOnly() cfgdomain.AssistConfig {
	cfg := cfgdomain.DefaultAssistConfig()
	cfg.EnableLLMExtractor = false
	cfg.EnableLLMQuestioner = false
	cfg.EnableLLMRefiner = false
	return cfg
}
