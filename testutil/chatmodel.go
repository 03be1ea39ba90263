// Package testutil holds fakes shared by package tests.
package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
)

// Responder produces the reply of a fake chat model for one Generate call.
type Responder func(ctx context.Context, input []*schema.Message, opts *model.Options) (*schema.Message, error)

type ModelCall struct {
	Input   []*schema.Message
	Options *model.Options
}

// ChatModel is a scripted model.ToolCallingChatModel.
type ChatModel struct {
	mu        sync.Mutex
	responder Responder
	calls     []ModelCall
}

var _ model.ToolCallingChatModel = (*ChatModel)(nil)

func NewChatModel(responder Responder) *ChatModel {
	return &ChatModel{responder: responder}
}

func (m *ChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	o := model.GetCommonOptions(&model.Options{}, opts...)
	m.mu.Lock()
	m.calls = append(m.calls, ModelCall{Input: input, Options: o})
	m.mu.Unlock()
	return m.responder(ctx, input, o)
}

func (m *ChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (m *ChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

func (m *ChatModel) Calls() []ModelCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ModelCall, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *ChatModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// ToolNames lists the tools offered in a call.
func ToolNames(o *model.Options) []string {
	if o == nil {
		return nil
	}
	names := make([]string, 0, len(o.Tools))
	for _, t := range o.Tools {
		names = append(names, t.Name)
	}
	return names
}

func HasTool(o *model.Options, name string) bool {
	for _, n := range ToolNames(o) {
		if n == name {
			return true
		}
	}
	return false
}

// ToolCallMessage is an assistant reply carrying one tool call.
func ToolCallMessage(name, arguments string) *schema.Message {
	return schema.AssistantMessage("", []schema.ToolCall{{
		ID:       "call_" + uuid.NewString(),
		Type:     "function",
		Function: schema.FunctionCall{Name: name, Arguments: arguments},
	}})
}

func TextMessage(content string) *schema.Message {
	return schema.AssistantMessage(content, nil)
}

// PromptText concatenates every message of a call, for substring matching.
func PromptText(input []*schema.Message) string {
	var b strings.Builder
	for _, m := range input {
		b.WriteString(m.Content)
		b.WriteByte('\n')
	}
	return b.String()
}
