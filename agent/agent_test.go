package agent_test

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/adk"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbxark/mailagent/agent"
	"github.com/tbxark/mailagent/intent"
	"github.com/tbxark/mailagent/types"
)

func TestAgentRunsThroughRunner(t *testing.T) {
	f := newFixture(t, &script{
		start: intent.NewCallMessage(intent.GeneratePromptForRAG, "{}"),
		query: "budget",
	})
	ctx := context.Background()
	a := agent.NewAgent("MailAssistant", "Answers questions about a mailbox", f.controller, agent.WithUserEmail(user))
	runner := adk.NewRunner(ctx, adk.RunnerConfig{Agent: a})

	iter := runner.Run(ctx, []adk.Message{schema.UserMessage("Find emails about the budget")})
	var events []*adk.AgentEvent
	for {
		event, ok := iter.Next()
		if !ok {
			break
		}
		events = append(events, event)
	}
	require.Len(t, events, 1)
	require.NoError(t, events[0].Err)
	msg, err := events[0].Output.MessageOutput.GetMessage()
	require.NoError(t, err)
	assert.Equal(t, budgetAnswer, msg.Content)
	res, ok := events[0].Output.CustomizedOutput.(*types.Result)
	require.True(t, ok)
	assert.Equal(t, types.RagStatusSuccess, res.RagStatus)
}

func TestAgentRejectsEmptyInput(t *testing.T) {
	f := newFixture(t, &script{})
	a := agent.NewAgent("MailAssistant", "", f.controller)
	iter := a.Run(context.Background(), &adk.AgentInput{})
	event, ok := iter.Next()
	require.True(t, ok)
	assert.Error(t, event.Err)
}
