// Package testcases drives the controller end to end against a real chat model.
// The tests are skipped unless MAILAGENT_RUN_LIVE_TESTS=1.
package testcases

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/stretchr/testify/require"

	"github.com/tbxark/mailagent/agent"
	"github.com/tbxark/mailagent/config"
	"github.com/tbxark/mailagent/llm"
	"github.com/tbxark/mailagent/mailstore"
	"github.com/tbxark/mailagent/responder"
	"github.com/tbxark/mailagent/retriever"
	"github.com/tbxark/mailagent/summarizer"
	"github.com/tbxark/mailagent/testutil"
	"github.com/tbxark/mailagent/types"
)

const (
	dim  = 8
	user = "bob@example.com"
)

func InitChatModel(t *testing.T) model.ToolCallingChatModel {
	t.Helper()
	if os.Getenv("MAILAGENT_RUN_LIVE_TESTS") != "1" {
		t.Skip("set MAILAGENT_RUN_LIVE_TESTS=1 to run live LLM tests")
		return nil
	}
	cfg, err := config.Load(config.New(filepath.Join("..", "mailagent.yaml")))
	if err != nil {
		t.Skipf("failed to load config: %v", err)
		return nil
	}
	if cfg.OpenAI.APIKey == "" {
		t.Skip("openai.api_key is empty")
		return nil
	}
	cm, err := llm.NewChatModel(context.Background(), cfg.OpenAI, cfg.Timeouts.Model)
	require.NoError(t, err)
	return cm
}

type liveFixture struct {
	controller   *agent.Controller
	checkpointer *agent.CacheCheckpointer
}

// NewTestController wires the real model to the seeded thread C1 (E1, E2, E3).
// Embeddings are deterministic so only routing and generation hit the model.
func NewTestController(t *testing.T) *liveFixture {
	t.Helper()
	cm := InitChatModel(t)
	if cm == nil {
		return nil
	}
	ctx := context.Background()

	db := testutil.NewMailDB(t)
	testutil.SeedThread(t, db)
	loader := mailstore.NewLoader(db)

	g, _, _ := testutil.NewVectorGateway(t, dim)
	cols, err := g.Collections(user)
	require.NoError(t, err)
	require.NoError(t, g.AddDocuments(ctx, cols.Emails, []types.VectorDocument{
		{Text: "Q3 budget approved with 10% more for marketing", Metadata: map[string]any{"conversation_id": "C1", "id": "E3", "user_email": user}},
	}))

	cache, err := summarizer.NewFileCache(t.TempDir())
	require.NoError(t, err)
	sum, err := summarizer.New(cm, loader, cache)
	require.NoError(t, err)

	cp := agent.NewMemoryCheckpointer(agent.KeepSystemLastNTrimmer{N: 20})
	c, err := agent.New(ctx, cm, agent.Dependencies{
		Loader:     loader,
		RAG:        retriever.NewRAG(retriever.New(g), cm),
		Summarizer: sum,
		Responder:  responder.NewGenerator(cm, responder.WithSignature("Bob")),
	}, cp)
	require.NoError(t, err)
	return &liveFixture{controller: c, checkpointer: cp}
}
