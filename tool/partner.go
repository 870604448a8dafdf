package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/agentfeed/core"
)

// Messenger delivers a text message to the partner agent and returns its
// reply.
type Messenger interface {
	SendMessage(ctx context.Context, text string, metadata map[string]any) (string, error)
}

// partnerMessageTool sends a message to the partner agent and records it as
// a partner_message on the sending agent's feed.
type partnerMessageTool struct {
	partner   string
	messenger Messenger
}

// NewPartnerMessageTool constructs the send_partner_message tool. partner
// names the receiving agent in records and descriptions.
func NewPartnerMessageTool(partner string, messenger Messenger) Tool {
	return &partnerMessageTool{partner: partner, messenger: messenger}
}

func (t *partnerMessageTool) Name() string { return "send_partner_message" }

func (t *partnerMessageTool) Description() string {
	return fmt.Sprintf("Send a message to the %s treasury agent and return its reply. "+
		"Use it to request, confirm or decline transfers.", t.partner)
}

func (t *partnerMessageTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{"type": "string", "description": "Message for the partner agent"},
		},
		"required": []string{"message"},
	}
}

func (t *partnerMessageTool) Call(tc *core.ToolContext, args map[string]any) (any, error) {
	text, _ := args["message"].(string)
	if strings.TrimSpace(text) == "" {
		return nil, NewToolError(t.Name(), "field 'message' must be a non-empty string", CodeValidation)
	}

	session := tc.Session()

	if _, err := tc.Record(core.KindPartnerMessage, text, map[string]any{"to": t.partner}); err != nil {
		tc.Logger().Warn("record partner message failed", "error", err.Error())
	}

	reply, err := t.messenger.SendMessage(tc.Context(), text, map[string]any{
		"sender":    session.Agent,
		"contextId": session.ContextID,
	})
	if err != nil {
		return nil, &ToolError{Tool: t.Name(), Message: err.Error(), Code: CodeExecution}
	}

	return map[string]any{"delivered": true, "reply": reply}, nil
}
