package intent

import (
	"context"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/tbxark/mailagent/types"
)

const (
	getEmailContextDescription      = "Load subject, body, sender, recipient and reply-to of an email given its id. Use it when the email context only carries an id."
	generatePromptForRAGDescription = "Turn the user's request into a search query over the user's emails and attachments."
	summarizeEmailThreadDescription = "Summarize the whole conversation thread the given email belongs to."
	respondToEmailDescription       = "Draft a reply to the email in context following the user's instruction."
)

// DefaultStartSystemPrompt instructs the entry node.
const DefaultStartSystemPrompt = `You are the routing step of an email assistant. Call exactly one of the provided tools and nothing else.

Rules:
- If the request is about summarizing a conversation, SummarizeEmailThread needs an email id and the full email. When the email context only has an email id, call GetEmailContext first.
- If the email context has only an email id and the request needs the email's content (summaries, replies, questions about this email), call GetEmailContext with that id.
- If the request is about finding, searching or comparing emails or attachments, call GeneratePromptForRAG.
- If there is no email id at all, call GeneratePromptForRAG.
`

// DefaultDecideSystemPrompt instructs the node that runs after the email context has been loaded.
const DefaultDecideSystemPrompt = `You are the planning step of an email assistant. The email context is loaded. Call exactly one of the provided tools and nothing else.

Rules:
- If the user wants to reply or respond to the email, call RespondToEmailBasedOnUserPrompt.
- If the user wants a summary of the conversation, call SummarizeEmailThread with the email id.
- Otherwise call GeneratePromptForRAG.
`

type Stage struct {
	Name         string
	Intents      []Intent
	SystemPrompt string
}

func (s Stage) Allows(it Intent) bool {
	for _, v := range s.Intents {
		if v == it {
			return true
		}
	}
	return false
}

func StartStage() Stage {
	return Stage{
		Name:         "start",
		Intents:      []Intent{GetEmailContext, GeneratePromptForRAG, SummarizeEmailThread},
		SystemPrompt: DefaultStartSystemPrompt,
	}
}

func DecideStage() Stage {
	return Stage{
		Name:         "decide_next_step",
		Intents:      []Intent{GeneratePromptForRAG, SummarizeEmailThread, RespondToEmail},
		SystemPrompt: DefaultDecideSystemPrompt,
	}
}

// ToolInfo returns the tool schema advertised to the model for an intent.
func ToolInfo(it Intent) (*schema.ToolInfo, error) {
	switch it {
	case GetEmailContext:
		return utils.GoStruct2ToolInfo[GetEmailContextArgs](string(it), getEmailContextDescription)
	case GeneratePromptForRAG:
		return utils.GoStruct2ToolInfo[GeneratePromptForRAGArgs](string(it), generatePromptForRAGDescription)
	case SummarizeEmailThread:
		return utils.GoStruct2ToolInfo[SummarizeEmailThreadArgs](string(it), summarizeEmailThreadDescription)
	case RespondToEmail:
		return utils.GoStruct2ToolInfo[RespondToEmailArgs](string(it), respondToEmailDescription)
	}
	return nil, errors.Wrapf(ErrUnknownIntent, "intent %q", it)
}

func ToolInfos(intents []Intent) ([]*schema.ToolInfo, error) {
	out := make([]*schema.ToolInfo, 0, len(intents))
	for _, it := range intents {
		info, err := ToolInfo(it)
		if err != nil {
			return nil, errors.Wrap(err, "convert tool info failed")
		}
		out = append(out, info)
	}
	return out, nil
}

type ToolBasedRecognizer struct {
	chatModel model.ToolCallingChatModel
}

func NewToolBasedRecognizer(chatModel model.ToolCallingChatModel) *ToolBasedRecognizer {
	return &ToolBasedRecognizer{chatModel: chatModel}
}

func (r *ToolBasedRecognizer) Recognize(ctx context.Context, req *Request) (*schema.Message, error) {
	tools, err := ToolInfos(req.Stage.Intents)
	if err != nil {
		return nil, err
	}
	messages := []*schema.Message{
		schema.SystemMessage(req.Stage.SystemPrompt),
		schema.UserMessage(types.FormatRoutingRequest(req.Input, req.EmailContext)),
	}
	response, err := r.chatModel.Generate(ctx, messages,
		model.WithTools(tools),
		model.WithToolChoice(schema.ToolChoiceForced),
		model.WithTemperature(0),
	)
	if err != nil {
		return nil, errors.Wrap(err, "call model failed")
	}
	return normalizeToolCalls(req.Stage, response), nil
}

// normalizeToolCalls keeps only the first tool call and gives it an id when the provider omitted one.
func normalizeToolCalls(stage Stage, msg *schema.Message) *schema.Message {
	if msg == nil {
		return schema.AssistantMessage("", nil)
	}
	msg.Role = schema.Assistant
	if len(msg.ToolCalls) > 1 {
		log.Warn().Str("stage", stage.Name).Int("tool_calls", len(msg.ToolCalls)).Msg("model returned parallel tool calls, keeping the first")
		msg.ToolCalls = msg.ToolCalls[:1]
	}
	if len(msg.ToolCalls) == 1 && msg.ToolCalls[0].ID == "" {
		msg.ToolCalls[0].ID = "call_" + uuid.NewString()
	}
	return msg
}

// NewCallMessage builds an assistant message carrying a single tool call.
func NewCallMessage(it Intent, arguments string) *schema.Message {
	if arguments == "" {
		arguments = "{}"
	}
	return schema.AssistantMessage("", []schema.ToolCall{{
		ID:   "call_" + uuid.NewString(),
		Type: "function",
		Function: schema.FunctionCall{
			Name:      string(it),
			Arguments: arguments,
		},
	}})
}
