package agent

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/adk"
	"github.com/cloudwego/eino/schema"

	"github.com/tbxark/mailagent/types"
)

var _ adk.Agent = (*Agent)(nil)

// Agent exposes the controller as an adk.Agent. Each run is one turn whose input
// is the last message; earlier messages are passed as history.
type Agent struct {
	name        string
	description string
	controller  *Controller
	userEmail   string
	emailID     string
}

type AgentOption func(*Agent)

func WithUserEmail(email string) AgentOption {
	return func(a *Agent) {
		a.userEmail = email
	}
}

func WithEmailID(id string) AgentOption {
	return func(a *Agent) {
		a.emailID = id
	}
}

func NewAgent(name, description string, controller *Controller, opts ...AgentOption) *Agent {
	a := &Agent{
		name:        name,
		description: description,
		controller:  controller,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

func (a *Agent) Name(ctx context.Context) string {
	return a.name
}

func (a *Agent) Description(ctx context.Context) string {
	return a.description
}

func (a *Agent) request(input *adk.AgentInput) *Request {
	msgs := input.Messages
	req := &Request{
		UserInput: msgs[len(msgs)-1].Content,
		UserEmail: a.userEmail,
	}
	if len(msgs) > 1 {
		req.MessageHistory = msgs[:len(msgs)-1]
	}
	if a.emailID != "" {
		req.EmailContext = &types.EmailContext{EmailID: a.emailID}
	}
	return req
}

func (a *Agent) Run(ctx context.Context, input *adk.AgentInput, options ...adk.AgentRunOption) *adk.AsyncIterator[*adk.AgentEvent] {
	iter, gen := adk.NewAsyncIteratorPair[*adk.AgentEvent]()
	go func() {
		defer func() {
			e := recover()
			if e != nil {
				gen.Send(&adk.AgentEvent{
					Err: fmt.Errorf("recover from panic: %v", e),
				})
			}
			gen.Close()
		}()
		if input == nil || len(input.Messages) == 0 {
			gen.Send(&adk.AgentEvent{
				Err: fmt.Errorf("no messages in input"),
			})
			return
		}
		result, err := a.controller.Process(ctx, a.request(input))
		if err != nil {
			gen.Send(&adk.AgentEvent{
				Err: fmt.Errorf("process turn failed: %w", err),
			})
			return
		}
		gen.Send(&adk.AgentEvent{
			AgentName: a.name,
			Output: &adk.AgentOutput{
				MessageOutput: &adk.MessageVariant{
					IsStreaming: false,
					Message:     schema.AssistantMessage(RenderResult(result), nil),
					Role:        schema.Assistant,
				},
				CustomizedOutput: result,
			},
		})
	}()
	return iter
}
