package agent

import (
	"context"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	"github.com/tbxark/mailagent/intent"
	"github.com/tbxark/mailagent/types"
)

const (
	NodeStart            = "start_node"
	NodeGetEmailContext  = "get_email_context"
	NodeDecideNextStep   = "decide_next_step"
	NodeGenerateRAGQuery = "generate_rag_prompt"
	NodeRAGAgent         = "rag_agent"
	NodeSummarizeThread  = "summarize_thread"
	NodeRespondToEmail   = "respond_to_email"
)

// intentNodes maps every intent onto the node that handles it.
var intentNodes = map[intent.Intent]string{
	intent.GetEmailContext:      NodeGetEmailContext,
	intent.GeneratePromptForRAG: NodeGenerateRAGQuery,
	intent.SummarizeEmailThread: NodeSummarizeThread,
	intent.RespondToEmail:       NodeRespondToEmail,
}

// nextNode decides where a stage hands over. Anything other than a decodable
// call of an intent the stage permits ends the turn.
func nextNode(stage intent.Stage, state *types.AgentState) string {
	msg := state.LastMessage()
	if msg == nil || msg.Role != schema.Assistant || len(msg.ToolCalls) == 0 {
		return compose.END
	}
	call, err := intent.Decode(msg.ToolCalls[0])
	if err != nil {
		log.Warn().Err(err).Str("stage", stage.Name).Msg("undecodable tool call, ending turn")
		return compose.END
	}
	if !stage.Allows(call.Intent()) {
		log.Warn().Str("stage", stage.Name).Str("intent", string(call.Intent())).Msg("intent not permitted here, ending turn")
		return compose.END
	}
	node, ok := intentNodes[call.Intent()]
	if !ok {
		return compose.END
	}
	return node
}

func routeStage(stage intent.Stage) func(ctx context.Context, state *types.AgentState) (string, error) {
	return func(ctx context.Context, state *types.AgentState) (string, error) {
		next := nextNode(stage, state)
		log.Debug().Str("stage", stage.Name).Str("next", next).Msg("route")
		return next, nil
	}
}

// routeAfterContext moves on to planning once the GetEmailContext call has its
// tool result, whatever the result says.
func routeAfterContext(ctx context.Context, state *types.AgentState) (string, error) {
	n := len(state.Messages)
	if n < 2 {
		return compose.END, nil
	}
	last, prev := state.Messages[n-1], state.Messages[n-2]
	if last == nil || prev == nil || last.Role != schema.Tool || prev.Role != schema.Assistant || len(prev.ToolCalls) == 0 {
		return compose.END, nil
	}
	tc := prev.ToolCalls[0]
	if tc.Function.Name != string(intent.GetEmailContext) || tc.ID != last.ToolCallID {
		return compose.END, nil
	}
	return NodeDecideNextStep, nil
}

func endSet(nodes ...string) map[string]bool {
	m := make(map[string]bool, len(nodes)+1)
	for _, n := range nodes {
		m[n] = true
	}
	m[compose.END] = true
	return m
}
