package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	v := New(filepath.Join(dir, "missing.yaml"))
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, 3072, cfg.Embedding.Dimensions)
	assert.Equal(t, "__AT", cfg.Vector.AtSentinel)
	assert.Equal(t, "__PERIOD", cfg.Vector.PeriodSentinel)
	assert.Equal(t, 100000, cfg.Summary.MaxTokens)
	assert.Equal(t, 5000, cfg.Summary.ReservedTokens)
	assert.Equal(t, 10, cfg.Response.MinLength)
	assert.Equal(t, 15*time.Second, cfg.Timeouts.Search)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "mailagent.yaml")
	content := []byte("summary:\n  dir: /tmp/summaries\nresponse:\n  denylist: [\"confidential\"]\n")
	require.NoError(t, os.WriteFile(file, content, 0o600))
	t.Setenv("MAILAGENT_OPENAI_MODEL", "gpt-4o-mini")

	cfg, err := Load(New(file))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/summaries", cfg.Summary.Dir)
	assert.Equal(t, []string{"confidential"}, cfg.Response.Denylist)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
}
