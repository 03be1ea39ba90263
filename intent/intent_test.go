package intent_test

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbxark/mailagent/intent"
	"github.com/tbxark/mailagent/testutil"
	"github.com/tbxark/mailagent/types"
)

func TestDecode(t *testing.T) {
	call, err := intent.Decode(schema.ToolCall{ID: "c1", Function: schema.FunctionCall{
		Name: "SummarizeEmailThread", Arguments: `{"email_id":"E1"}`,
	}})
	require.NoError(t, err)
	assert.Equal(t, intent.SummarizeEmailThreadCall{ID: "c1", Args: intent.SummarizeEmailThreadArgs{EmailID: "E1"}}, call)

	call, err = intent.Decode(schema.ToolCall{Function: schema.FunctionCall{Name: "GeneratePromptForRAG"}})
	require.NoError(t, err)
	assert.Equal(t, intent.GeneratePromptForRAG, call.Intent())

	_, err = intent.Decode(schema.ToolCall{Function: schema.FunctionCall{Name: "SendMoney"}})
	assert.ErrorIs(t, err, intent.ErrUnknownIntent)

	_, err = intent.Decode(schema.ToolCall{Function: schema.FunctionCall{Name: "GetEmailContext", Arguments: "{"}})
	assert.Error(t, err)
}

func TestStages(t *testing.T) {
	assert.True(t, intent.StartStage().Allows(intent.GetEmailContext))
	assert.False(t, intent.StartStage().Allows(intent.RespondToEmail))
	assert.True(t, intent.DecideStage().Allows(intent.RespondToEmail))
	assert.False(t, intent.DecideStage().Allows(intent.GetEmailContext))

	infos, err := intent.ToolInfos(intent.All())
	require.NoError(t, err)
	require.Len(t, infos, 4)
	assert.Equal(t, "RespondToEmailBasedOnUserPrompt", infos[3].Name)
}

func TestToolBasedRecognizer(t *testing.T) {
	cm := testutil.NewChatModel(func(ctx context.Context, input []*schema.Message, opts *model.Options) (*schema.Message, error) {
		msg := schema.AssistantMessage("", []schema.ToolCall{
			{Function: schema.FunctionCall{Name: "GetEmailContext", Arguments: `{"email_id":"E1"}`}},
			{Function: schema.FunctionCall{Name: "GeneratePromptForRAG", Arguments: `{}`}},
		})
		return msg, nil
	})
	r := intent.NewToolBasedRecognizer(cm)
	msg, err := r.Recognize(context.Background(), &intent.Request{
		Stage:        intent.StartStage(),
		Input:        "Summarize this thread",
		EmailContext: &types.EmailContext{EmailID: "E1"},
	})
	require.NoError(t, err)
	require.Len(t, msg.ToolCalls, 1)
	assert.NotEmpty(t, msg.ToolCalls[0].ID)

	calls := cm.Calls()
	require.Len(t, calls, 1)
	opts := calls[0].Options
	assert.ElementsMatch(t, []string{"GetEmailContext", "GeneratePromptForRAG", "SummarizeEmailThread"}, testutil.ToolNames(opts))
	require.NotNil(t, opts.ToolChoice)
	assert.Equal(t, schema.ToolChoiceForced, *opts.ToolChoice)
	require.NotNil(t, opts.Temperature)
	assert.Zero(t, *opts.Temperature)
	assert.Contains(t, testutil.PromptText(calls[0].Input), "id only, not loaded")
}

func TestLocalRecognizer(t *testing.T) {
	r := intent.NewLocalRecognizer()
	loaded := &types.EmailContext{EmailID: "E1", Subject: "Q3 budget"}
	cases := []struct {
		name  string
		stage intent.Stage
		input string
		ec    *types.EmailContext
		want  intent.Intent
	}{
		{"id only", intent.StartStage(), "summarize this", &types.EmailContext{EmailID: "E1"}, intent.GetEmailContext},
		{"summary", intent.StartStage(), "Give me a summary", loaded, intent.SummarizeEmailThread},
		{"reply at decide", intent.DecideStage(), "Reply saying yes", loaded, intent.RespondToEmail},
		{"reply not allowed at start", intent.StartStage(), "Reply saying yes", loaded, intent.GeneratePromptForRAG},
		{"no context", intent.StartStage(), "find the invoice", nil, intent.GeneratePromptForRAG},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg, err := r.Recognize(context.Background(), &intent.Request{Stage: tc.stage, Input: tc.input, EmailContext: tc.ec})
			require.NoError(t, err)
			call, ok := intent.FirstCall(msg)
			require.True(t, ok)
			assert.Equal(t, tc.want, call.Intent())
		})
	}
}

type failingRecognizer struct{}

func (failingRecognizer) Recognize(ctx context.Context, req *intent.Request) (*schema.Message, error) {
	return nil, errors.New("model unavailable")
}

func TestFailbackRecognizer(t *testing.T) {
	r := intent.NewFailbackRecognizer(failingRecognizer{}, intent.NewLocalRecognizer())
	msg, err := r.Recognize(context.Background(), &intent.Request{Stage: intent.StartStage(), Input: "find the invoice"})
	require.NoError(t, err)
	call, ok := intent.FirstCall(msg)
	require.True(t, ok)
	assert.Equal(t, intent.GeneratePromptForRAG, call.Intent())

	_, err = intent.NewFailbackRecognizer(failingRecognizer{}).Recognize(context.Background(), &intent.Request{Stage: intent.StartStage()})
	assert.Error(t, err)
}
