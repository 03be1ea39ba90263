package agent

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"

	"github.com/tbxark/mailagent/intent"
	"github.com/tbxark/mailagent/types"
)

func stateWith(msgs ...*schema.Message) *types.AgentState {
	return &types.AgentState{Messages: msgs}
}

func TestNextNode(t *testing.T) {
	start := intent.StartStage()
	decide := intent.DecideStage()
	cases := []struct {
		name  string
		stage intent.Stage
		msg   *schema.Message
		want  string
	}{
		{"unknown tool", start, intent.NewCallMessage("DeleteAllEmails", "{}"), compose.END},
		{"bad arguments", start, intent.NewCallMessage(intent.GetEmailContext, "{not json"), compose.END},
		{"plain text", start, schema.AssistantMessage("hello", nil), compose.END},
		{"user message", start, schema.UserMessage("hi"), compose.END},
		{"reply not allowed at start", start, intent.NewCallMessage(intent.RespondToEmail, "{}"), compose.END},
		{"context not allowed when deciding", decide, intent.NewCallMessage(intent.GetEmailContext, `{"email_id":"E1"}`), compose.END},
		{"get context", start, intent.NewCallMessage(intent.GetEmailContext, `{"email_id":"E1"}`), NodeGetEmailContext},
		{"rag", start, intent.NewCallMessage(intent.GeneratePromptForRAG, "{}"), NodeGenerateRAGQuery},
		{"summarize", decide, intent.NewCallMessage(intent.SummarizeEmailThread, `{"email_id":"E1"}`), NodeSummarizeThread},
		{"reply", decide, intent.NewCallMessage(intent.RespondToEmail, `{"instruction":"say yes"}`), NodeRespondToEmail},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, nextNode(tc.stage, stateWith(tc.msg)))
		})
	}
	assert.Equal(t, compose.END, nextNode(start, stateWith()))
}

func TestRouteAfterContext(t *testing.T) {
	ctx := context.Background()
	call := intent.NewCallMessage(intent.GetEmailContext, `{"email_id":"E1"}`)
	id := call.ToolCalls[0].ID

	next, err := routeAfterContext(ctx, stateWith(call, schema.ToolMessage("No email found with ID: E1", id)))
	assert.NoError(t, err)
	assert.Equal(t, NodeDecideNextStep, next)

	next, _ = routeAfterContext(ctx, stateWith(call, schema.ToolMessage("x", "other")))
	assert.Equal(t, compose.END, next)

	rag := intent.NewCallMessage(intent.GeneratePromptForRAG, "{}")
	next, _ = routeAfterContext(ctx, stateWith(rag, schema.ToolMessage("x", rag.ToolCalls[0].ID)))
	assert.Equal(t, compose.END, next)

	next, _ = routeAfterContext(ctx, stateWith(schema.ToolMessage("x", id)))
	assert.Equal(t, compose.END, next)
}

func TestRequireContextFirst(t *testing.T) {
	idOnly := &types.EmailContext{EmailID: "E1"}
	summarize := intent.NewCallMessage(intent.SummarizeEmailThread, `{"email_id":"E1"}`)

	got := requireContextFirst(idOnly, summarize)
	call, ok := intent.FirstCall(got)
	assert.True(t, ok)
	assert.Equal(t, intent.GetEmailContextCall{ID: got.ToolCalls[0].ID, Args: intent.GetEmailContextArgs{EmailID: "E1"}}, call)

	loaded := &types.EmailContext{EmailID: "E1", Subject: "Q3 budget"}
	assert.Same(t, summarize, requireContextFirst(loaded, summarize))
	assert.Same(t, summarize, requireContextFirst(nil, summarize))

	text := schema.AssistantMessage("nothing", nil)
	assert.Same(t, text, requireContextFirst(idOnly, text))
}

func TestEveryIntentHasNode(t *testing.T) {
	for _, it := range intent.All() {
		assert.Contains(t, intentNodes, it)
	}
}
