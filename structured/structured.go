package structured

import (
	"context"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
	"github.com/pkg/errors"
)

type PromptBuilder[TInput any] func(ctx context.Context, input TInput) ([]*schema.Message, error)

type Chain[TInput, TOutput any] struct {
	PromptBuilder PromptBuilder[TInput]
	ChatModel     model.ToolCallingChatModel
	ToolInfo      *schema.ToolInfo
	ModelOptions  []model.Option
}

type ChainOption func(*chainOptions)

type chainOptions struct {
	modelOptions []model.Option
}

// WithModelOptions appends options passed to every Generate call, e.g. model.WithTemperature.
func WithModelOptions(opts ...model.Option) ChainOption {
	return func(o *chainOptions) {
		o.modelOptions = append(o.modelOptions, opts...)
	}
}

func NewChain[TInput, TOutput any](
	chatModel model.ToolCallingChatModel,
	promptBuilder PromptBuilder[TInput],
	toolName string,
	toolDesc string,
	opts ...ChainOption,
) (*Chain[TInput, TOutput], error) {

	toolInfo, err := utils.GoStruct2ToolInfo[TOutput](toolName, toolDesc)
	if err != nil {
		return nil, errors.Wrap(err, "convert tool info failed")
	}
	options := chainOptions{}
	for _, o := range opts {
		if o != nil {
			o(&options)
		}
	}
	return &Chain[TInput, TOutput]{
		PromptBuilder: promptBuilder,
		ChatModel:     chatModel,
		ToolInfo:      toolInfo,
		ModelOptions:  options.modelOptions,
	}, nil
}

func (s *Chain[TInput, TOutput]) Invoke(ctx context.Context, input TInput) (*TOutput, error) {
	messages, err := s.PromptBuilder(ctx, input)
	if err != nil {
		return nil, errors.Wrap(err, "build prompt failed")
	}

	opts := append([]model.Option{
		model.WithTools([]*schema.ToolInfo{s.ToolInfo}),
		model.WithToolChoice(schema.ToolChoiceForced, s.ToolInfo.Name),
	}, s.ModelOptions...)
	response, err := s.ChatModel.Generate(ctx, messages, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "call model failed")
	}
	if len(response.ToolCalls) == 0 {
		return nil, errors.Errorf("no ToolCall found in model response: %s", response.Content)
	}

	return DecodeArguments[TOutput](response.ToolCalls[0])
}

// DecodeArguments decodes the JSON arguments of a tool call into T.
// Empty arguments decode to the zero value.
func DecodeArguments[T any](call schema.ToolCall) (*T, error) {
	var result T
	args := strings.TrimSpace(call.Function.Arguments)
	if args == "" {
		return &result, nil
	}
	if err := sonic.UnmarshalString(args, &result); err != nil {
		return nil, errors.Wrap(err, "parse ToolCall arguments failed")
	}
	return &result, nil
}
