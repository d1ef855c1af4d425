package oracle

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
)

const (
	decideToolName        = "decide_form_action"
	decideToolDescription = "Decide the next form-filling action from the user's latest input: which fields to update and what to ask next."
)

const decideSystemPrompt = `You are a precise form-filling assistant for a voice conversation.
Given the allowed form fields with their kinds, the current field states, the recent conversation, and the user's latest utterance, decide what to do next.

Rules:
- updates must only reference fields from the "Form fields" table; map each field name to the value the user provided, or null to clear it.
- Values may be noisy speech transcriptions; pass them through as heard, the server normalizes and validates them.
- action "set" when the user provided one or more field values; "ask" to request the next missing field; "clarify" when the utterance cannot be routed to a field; "done" only when every required field is collected.
- ask holds the next question or reply to speak, short and conversational.
- Never invent values the user did not say.

Call the '%s' tool with the result.`

// ToolBased obtains decisions from a tool-calling chat model with a forced
// tool choice, so the response is always structured tool arguments rather
// than free text.
type ToolBased struct {
	chatModel model.ToolCallingChatModel
	toolInfo  *schema.ToolInfo
}

// NewToolBased builds the oracle on top of chatModel.
func NewToolBased(chatModel model.ToolCallingChatModel) (*ToolBased, error) {
	toolInfo, err := utils.GoStruct2ToolInfo[Decision](decideToolName, decideToolDescription)
	if err != nil {
		return nil, fmt.Errorf("convert tool info failed: %w", err)
	}
	return &ToolBased{
		chatModel: chatModel,
		toolInfo:  toolInfo,
	}, nil
}

// Decide makes exactly one model call and parses the forced tool call into
// a Decision. Any transport, parse, or schema failure is returned as an
// error for the orchestrator to recover from.
func (o *ToolBased) Decide(ctx context.Context, req *Request) (*Decision, error) {
	messages := []*schema.Message{
		schema.SystemMessage(fmt.Sprintf(decideSystemPrompt, decideToolName)),
		schema.UserMessage(FormatRequest(req)),
	}
	response, err := o.chatModel.Generate(ctx, messages,
		model.WithTools([]*schema.ToolInfo{o.toolInfo}),
		model.WithToolChoice(schema.ToolChoiceForced, o.toolInfo.Name),
	)
	if err != nil {
		return nil, fmt.Errorf("call model failed: %w", err)
	}
	if len(response.ToolCalls) == 0 {
		return nil, fmt.Errorf("no ToolCall found in model response: %s", response.Content)
	}

	var decision Decision
	if err := sonic.UnmarshalString(response.ToolCalls[0].Function.Arguments, &decision); err != nil {
		return nil, fmt.Errorf("parse ToolCall arguments failed: %w", err)
	}
	if err := decision.Validate(); err != nil {
		return nil, fmt.Errorf("decision failed schema validation: %w", err)
	}
	return &decision, nil
}

var _ Oracle = (*ToolBased)(nil)
