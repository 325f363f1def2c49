package application

import (
	"context"
	"strings"

	"hello-prompt-agent/internal/features/slotfilling/infrastructure"
	"hello-prompt-agent/internal/pkg/jsonx"
	"hello-prompt-agent/internal/pkg/logger"
)

// jsonCaller is the call/parse skeleton shared by the extractor, the
// questioner and the refiner: one chat call, one JSON object, one field.
// Every failure collapses to ok=false.
type jsonCaller struct {
	chat   infrastructure.ChatClient
	strict bool
	log    *logger.Logger
}

func newJSONCaller(chat infrastructure.ChatClient, strict bool, log *logger.Logger) jsonCaller {
	if log == nil {
		log = logger.NewNop()
	}
	return jsonCaller{chat: chat, strict: strict, log: log}
}

// call sends system and user messages and returns the value of field from
// the single JSON object in the reply. In strict mode the whole trimmed
// reply must be that object; otherwise the first balanced object is used.
func (c jsonCaller) call(ctx context.Context, component, system, user, field string) (any, bool) {
	if c.chat == nil {
		return nil, false
	}
	log := c.log.With("component", component)

	reply, err := c.chat.Chat(ctx, []infrastructure.Message{
		{Role: infrastructure.RoleSystem, Content: system},
		{Role: infrastructure.RoleUser, Content: user},
	})
	if err != nil {
		log.Debug("Chat call failed, ignoring", "error", err)
		return nil, false
	}
	log.Debug("Chat reply", "raw", reply)

	raw := strings.TrimSpace(reply)
	if !c.strict {
		var found bool
		raw, found = jsonx.FirstObject(reply)
		if !found {
			log.Debug("No JSON object in reply")
			return nil, false
		}
	}
	obj, ok := jsonx.ParseObject(raw)
	if !ok {
		log.Debug("Reply is not a single JSON object", "strict", c.strict)
		return nil, false
	}
	value, ok := obj[field]
	if !ok {
		log.Debug("Reply is missing field", "field", field)
		return nil, false
	}
	return value, true
}
