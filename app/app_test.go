package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbxark/mailagent/agent"
	"github.com/tbxark/mailagent/config"
	"github.com/tbxark/mailagent/dbutil"
	"github.com/tbxark/mailagent/testutil"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg, err := config.Load(config.New(filepath.Join(dir, "missing.yaml")))
	require.NoError(t, err)
	cfg.OpenAI.APIKey = "sk-test"
	cfg.Database.Path = filepath.Join(dir, "mail.db")
	cfg.Vector.SQLitePath = filepath.Join(dir, "vectors.db")
	cfg.Summary.Dir = filepath.Join(dir, "summaries")
	cfg.Storage.LocalRoot = filepath.Join(dir, "attachments")
	cfg.Checkpoint.Path = filepath.Join(dir, "checkpoints.db")

	db, err := dbutil.OpenSQLite(context.Background(), cfg.Database.Path, false)
	require.NoError(t, err)
	_, err = db.Exec(testutil.MailSchema)
	require.NoError(t, err)
	require.NoError(t, db.Close())
	return cfg
}

func TestNewWiresEverything(t *testing.T) {
	for _, backend := range []string{"memory", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Checkpoint.Backend = backend
			a, err := New(context.Background(), cfg)
			require.NoError(t, err)
			assert.NotNil(t, a.Controller)
			assert.NotNil(t, a.Summarizer)
			assert.Equal(t, 3072, a.Vectors.Dimensions())
			require.NoError(t, a.Close())
		})
	}
}

func TestNewRejectsUnknownBackends(t *testing.T) {
	cfg := testConfig(t)
	cfg.Vector.Backend = "pinecone"
	_, err := New(context.Background(), cfg)
	assert.ErrorContains(t, err, "unknown vector backend")

	cfg = testConfig(t)
	cfg.Checkpoint.Backend = "redis"
	_, err = New(context.Background(), cfg)
	assert.ErrorContains(t, err, "unknown checkpoint backend")
}

func TestSQLiteCheckpointsSurviveRestart(t *testing.T) {
	cfg := testConfig(t)
	cfg.Checkpoint.Backend = "sqlite"
	ctx := agent.WithStateKey(context.Background(), "s1")

	a, err := New(ctx, cfg)
	require.NoError(t, err)
	cp, err := a.newCheckpointer(ctx)
	require.NoError(t, err)
	require.NoError(t, cp.Save(ctx, &agent.Checkpoint{}))
	require.NoError(t, a.Close())

	b, err := New(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	cp, err = b.newCheckpointer(ctx)
	require.NoError(t, err)
	got, err := cp.Load(ctx)
	require.NoError(t, err)
	assert.NotNil(t, got)
}
