package testcases

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbxark/mailagent/agent"
	"github.com/tbxark/mailagent/types"
)

func TestFollowUpUsesCheckpoint(t *testing.T) {
	t.Parallel()
	f := NewTestController(t)
	ctx := context.Background()
	const session = "live-session"

	first, err := f.controller.Process(ctx, &agent.Request{
		UserInput:    "Summarize this thread",
		UserEmail:    user,
		EmailContext: &types.EmailContext{EmailID: "E1"},
		SessionKey:   session,
	})
	require.NoError(t, err)
	require.NotNil(t, first.ConversationSummary, agent.RenderResult(first))

	cp, err := f.checkpointer.Load(agent.WithStateKey(ctx, session))
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.NotEmpty(t, cp.Messages)

	second, err := f.controller.Process(ctx, &agent.Request{
		UserInput:    "Now draft a short reply thanking Alice",
		UserEmail:    user,
		EmailContext: &types.EmailContext{EmailID: "E1"},
		SessionKey:   session,
	})
	require.NoError(t, err)
	require.NotNil(t, second.ResponseOutput, agent.RenderResult(second))
	assert.Greater(t, len(second.Messages), len(first.Messages))
}
