package llm

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbxark/mailagent/config"
)

type fakeEmbeddings struct {
	req goopenai.EmbeddingRequestStrings
}

func (f *fakeEmbeddings) CreateEmbeddings(ctx context.Context, conv goopenai.EmbeddingRequestConverter) (goopenai.EmbeddingResponse, error) {
	f.req = conv.(goopenai.EmbeddingRequestStrings)
	resp := goopenai.EmbeddingResponse{}
	// reversed order to check index handling
	for i := len(f.req.Input) - 1; i >= 0; i-- {
		resp.Data = append(resp.Data, goopenai.Embedding{Index: i, Embedding: []float32{float32(i), 1}})
	}
	return resp, nil
}

func TestEmbedderRequest(t *testing.T) {
	e := NewEmbedder(config.OpenAIConfig{APIKey: "dummy"}, config.EmbeddingConfig{Model: "text-embedding-3-large", Dimensions: 3072})
	req := e.newRequest([]string{"a"})
	assert.Equal(t, goopenai.LargeEmbedding3, req.Model)
	assert.Equal(t, 3072, req.Dimensions)

	e = NewEmbedder(config.OpenAIConfig{APIKey: "dummy"}, config.EmbeddingConfig{Model: string(goopenai.AdaEmbeddingV2), Dimensions: 1536})
	assert.Equal(t, 0, e.newRequest([]string{"a"}).Dimensions)
}

func TestEmbedStringsKeepsOrder(t *testing.T) {
	fake := &fakeEmbeddings{}
	e := &Embedder{client: fake, model: goopenai.LargeEmbedding3, dimensions: 2}
	out, err := e.EmbedStrings(context.Background(), []string{"x", "y", "z"})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, []float64{0, 1}, out[0])
	assert.Equal(t, []float64{2, 1}, out[2])
	assert.Equal(t, []string{"x", "y", "z"}, fake.req.Input)
}

type fakeChat struct {
	req goopenai.ChatCompletionRequest
}

func (f *fakeChat) CreateChatCompletion(ctx context.Context, req goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error) {
	f.req = req
	return goopenai.ChatCompletionResponse{Choices: []goopenai.ChatCompletionChoice{{
		Message: goopenai.ChatCompletionMessage{Content: "  a bar chart  "},
	}}}, nil
}

func TestCaption(t *testing.T) {
	// 1x1 png
	png := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}
	path := filepath.Join(t.TempDir(), "chart.png")
	require.NoError(t, os.WriteFile(path, png, 0o600))

	fake := &fakeChat{}
	c := &Captioner{client: fake, model: "gpt-4o"}
	text, err := c.Caption(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "a bar chart", text)
	require.Len(t, fake.req.Messages, 1)
	parts := fake.req.Messages[0].MultiContent
	require.Len(t, parts, 2)
	assert.Contains(t, parts[1].ImageURL.URL, "data:image/png;base64,")

	txt := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("hello"), 0o600))
	_, err = c.Caption(context.Background(), txt)
	assert.Error(t, err)
}
