package agent

import (
	"context"

	"github.com/cloudwego/eino/compose"
	"github.com/pkg/errors"

	"github.com/tbxark/mailagent/intent"
	"github.com/tbxark/mailagent/types"
)

func (c *Controller) buildGraph(ctx context.Context) (compose.Runnable[*types.AgentState, *types.AgentState], error) {
	for _, it := range intent.All() {
		if _, ok := intentNodes[it]; !ok {
			return nil, errors.Errorf("intent %s has no node", it)
		}
	}
	g := compose.NewGraph[*types.AgentState, *types.AgentState]()

	nodes := []struct {
		key string
		fn  func(ctx context.Context, state *types.AgentState) (*types.AgentState, error)
	}{
		{NodeStart, c.startNode},
		{NodeGetEmailContext, c.getEmailContextNode},
		{NodeDecideNextStep, c.decideNode},
		{NodeGenerateRAGQuery, c.generateRAGQueryNode},
		{NodeRAGAgent, c.ragAgentNode},
		{NodeSummarizeThread, c.summarizeThreadNode},
		{NodeRespondToEmail, c.respondToEmailNode},
	}
	for _, n := range nodes {
		if err := g.AddLambdaNode(n.key, compose.InvokableLambda[*types.AgentState, *types.AgentState](n.fn), compose.WithNodeName(n.key)); err != nil {
			return nil, errors.Wrapf(err, "add node %s", n.key)
		}
	}

	edges := [][2]string{
		{compose.START, NodeStart},
		{NodeGenerateRAGQuery, NodeRAGAgent},
		{NodeRAGAgent, compose.END},
		{NodeSummarizeThread, compose.END},
		{NodeRespondToEmail, compose.END},
	}
	for _, e := range edges {
		if err := g.AddEdge(e[0], e[1]); err != nil {
			return nil, errors.Wrapf(err, "add edge %s -> %s", e[0], e[1])
		}
	}

	branches := []struct {
		from   string
		cond   compose.GraphBranchCondition[*types.AgentState]
		target map[string]bool
	}{
		{NodeStart, routeStage(intent.StartStage()), endSet(NodeGetEmailContext, NodeGenerateRAGQuery, NodeSummarizeThread)},
		{NodeGetEmailContext, routeAfterContext, endSet(NodeDecideNextStep)},
		{NodeDecideNextStep, routeStage(intent.DecideStage()), endSet(NodeGenerateRAGQuery, NodeSummarizeThread, NodeRespondToEmail)},
	}
	for _, b := range branches {
		if err := g.AddBranch(b.from, compose.NewGraphBranch(b.cond, b.target)); err != nil {
			return nil, errors.Wrapf(err, "add branch from %s", b.from)
		}
	}

	return g.Compile(ctx,
		compose.WithGraphName("mailagent"),
		compose.WithNodeTriggerMode(compose.AnyPredecessor),
		compose.WithMaxRunSteps(c.maxSteps),
	)
}
