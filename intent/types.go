package intent

import (
	"context"

	"github.com/cloudwego/eino/schema"
	"github.com/pkg/errors"

	"github.com/tbxark/mailagent/structured"
	"github.com/tbxark/mailagent/types"
)

type Intent string

const (
	GetEmailContext      Intent = "GetEmailContext"
	GeneratePromptForRAG Intent = "GeneratePromptForRAG"
	SummarizeEmailThread Intent = "SummarizeEmailThread"
	RespondToEmail       Intent = "RespondToEmailBasedOnUserPrompt"
)

var ErrUnknownIntent = errors.New("unknown intent")

// All lists every intent the controller knows how to dispatch.
func All() []Intent {
	return []Intent{GetEmailContext, GeneratePromptForRAG, SummarizeEmailThread, RespondToEmail}
}

func Parse(name string) (Intent, bool) {
	switch Intent(name) {
	case GetEmailContext, GeneratePromptForRAG, SummarizeEmailThread, RespondToEmail:
		return Intent(name), true
	default:
		return "", false
	}
}

type GetEmailContextArgs struct {
	EmailID string `json:"email_id" jsonschema:"required,description=Identifier of the email whose full context must be loaded"`
}

type GeneratePromptForRAGArgs struct {
	Topic string `json:"topic,omitempty" jsonschema:"description=Optional short hint of what the user is looking for"`
}

type SummarizeEmailThreadArgs struct {
	EmailID string `json:"email_id" jsonschema:"required,description=Identifier of any email in the thread to summarize"`
}

type RespondToEmailArgs struct {
	Instruction string `json:"instruction,omitempty" jsonschema:"description=What the reply should say, in the user's words"`
}

// Call is a decoded tool call. The set of implementations is closed.
type Call interface {
	Intent() Intent
	CallID() string
	sealed()
}

type GetEmailContextCall struct {
	ID   string
	Args GetEmailContextArgs
}

type GeneratePromptForRAGCall struct {
	ID   string
	Args GeneratePromptForRAGArgs
}

type SummarizeEmailThreadCall struct {
	ID   string
	Args SummarizeEmailThreadArgs
}

type RespondToEmailCall struct {
	ID   string
	Args RespondToEmailArgs
}

func (c GetEmailContextCall) Intent() Intent      { return GetEmailContext }
func (c GeneratePromptForRAGCall) Intent() Intent { return GeneratePromptForRAG }
func (c SummarizeEmailThreadCall) Intent() Intent { return SummarizeEmailThread }
func (c RespondToEmailCall) Intent() Intent       { return RespondToEmail }

func (c GetEmailContextCall) CallID() string      { return c.ID }
func (c GeneratePromptForRAGCall) CallID() string { return c.ID }
func (c SummarizeEmailThreadCall) CallID() string { return c.ID }
func (c RespondToEmailCall) CallID() string       { return c.ID }

func (GetEmailContextCall) sealed()      {}
func (GeneratePromptForRAGCall) sealed() {}
func (SummarizeEmailThreadCall) sealed() {}
func (RespondToEmailCall) sealed()       {}

// Decode turns a raw tool call into its typed form.
func Decode(tc schema.ToolCall) (Call, error) {
	it, ok := Parse(tc.Function.Name)
	if !ok {
		return nil, errors.Wrapf(ErrUnknownIntent, "tool %q", tc.Function.Name)
	}
	switch it {
	case GetEmailContext:
		args, err := structured.DecodeArguments[GetEmailContextArgs](tc)
		if err != nil {
			return nil, err
		}
		return GetEmailContextCall{ID: tc.ID, Args: *args}, nil
	case GeneratePromptForRAG:
		args, err := structured.DecodeArguments[GeneratePromptForRAGArgs](tc)
		if err != nil {
			return nil, err
		}
		return GeneratePromptForRAGCall{ID: tc.ID, Args: *args}, nil
	case SummarizeEmailThread:
		args, err := structured.DecodeArguments[SummarizeEmailThreadArgs](tc)
		if err != nil {
			return nil, err
		}
		return SummarizeEmailThreadCall{ID: tc.ID, Args: *args}, nil
	case RespondToEmail:
		args, err := structured.DecodeArguments[RespondToEmailArgs](tc)
		if err != nil {
			return nil, err
		}
		return RespondToEmailCall{ID: tc.ID, Args: *args}, nil
	}
	return nil, errors.Wrapf(ErrUnknownIntent, "tool %q", tc.Function.Name)
}

// FirstCall decodes the first tool call carried by an assistant message.
func FirstCall(msg *schema.Message) (Call, bool) {
	if msg == nil || msg.Role != schema.Assistant || len(msg.ToolCalls) == 0 {
		return nil, false
	}
	call, err := Decode(msg.ToolCalls[0])
	if err != nil {
		return nil, false
	}
	return call, true
}

// Request is what a Recognizer sees when choosing the next tool.
type Request struct {
	Stage        Stage
	Input        string
	EmailContext *types.EmailContext
}

// Recognizer selects one tool of the stage and returns the assistant message carrying it.
// A message with no tool call means no actionable intent.
type Recognizer interface {
	Recognize(ctx context.Context, req *Request) (*schema.Message, error)
}
