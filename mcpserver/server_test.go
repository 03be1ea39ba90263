package mcpserver_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbxark/mailagent/agent"
	"github.com/tbxark/mailagent/mcpserver"
	"github.com/tbxark/mailagent/types"
)

type processorMock struct {
	got []*agent.Request
	res *types.Result
	err error
}

func (p *processorMock) Process(ctx context.Context, req *agent.Request) (*types.Result, error) {
	p.got = append(p.got, req)
	return p.res, p.err
}

func connect(t *testing.T, p mcpserver.Processor) *mcp.ClientSession {
	t.Helper()
	server := mcpserver.NewServer(mcpserver.NewHandler(p), "test")
	client := mcp.NewClient(&mcp.Implementation{Name: "test-client"}, nil)
	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	ctx := context.Background()

	serverSession, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	clientSession, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = clientSession.Close() })
	return clientSession
}

func TestProcessInput(t *testing.T) {
	summary := &types.ThreadSummary{ConversationID: "C1", Subject: "Q3 budget", Summary: "## Thread Summary\n\nApproved."}
	p := &processorMock{res: &types.Result{ConversationSummary: summary}}
	session := connect(t, p)

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name: mcpserver.ProcessInputTool,
		Arguments: mcpserver.ProcessInputRequest{
			Input:     "Summarize this thread",
			UserEmail: "bob@example.com",
			EmailID:   "E1",
		},
	})
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.NotEmpty(t, result.Content)

	var resp mcpserver.ProcessInputResponse
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].(*mcp.TextContent).Text), &resp))
	assert.Equal(t, "C1", resp.ConversationID)
	assert.Contains(t, resp.Answer, "# Q3 budget")

	require.Len(t, p.got, 1)
	assert.Equal(t, "bob@example.com", p.got[0].UserEmail)
	require.NotNil(t, p.got[0].EmailContext)
	assert.Equal(t, "E1", p.got[0].EmailContext.EmailID)
}

func TestProcessInputFailure(t *testing.T) {
	p := &processorMock{err: errors.New("database is locked")}
	session := connect(t, p)

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      mcpserver.ProcessInputTool,
		Arguments: mcpserver.ProcessInputRequest{Input: "hi"},
	})
	require.NoError(t, err)
	require.True(t, result.IsError)
	text := result.Content[0].(*mcp.TextContent).Text
	assert.Contains(t, text, agent.FailureMessage)
	assert.NotContains(t, text, "database is locked")
}
