package llm

import (
	"context"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/pkg/errors"
	goopenai "github.com/sashabaranov/go-openai"

	"github.com/tbxark/mailagent/config"
)

type embeddingsClient interface {
	CreateEmbeddings(ctx context.Context, conv goopenai.EmbeddingRequestConverter) (goopenai.EmbeddingResponse, error)
}

// Embedder adapts the OpenAI embeddings endpoint to embedding.Embedder.
type Embedder struct {
	client     embeddingsClient
	model      goopenai.EmbeddingModel
	dimensions int
}

var _ embedding.Embedder = (*Embedder)(nil)

func NewEmbedder(openaiCfg config.OpenAIConfig, cfg config.EmbeddingConfig) *Embedder {
	m := goopenai.EmbeddingModel(cfg.Model)
	if m == "" {
		m = goopenai.LargeEmbedding3
	}
	return &Embedder{
		client:     newClient(openaiCfg),
		model:      m,
		dimensions: cfg.Dimensions,
	}
}

func (e *Embedder) newRequest(texts []string) goopenai.EmbeddingRequestStrings {
	req := goopenai.EmbeddingRequestStrings{
		Input: texts,
		Model: e.model,
	}
	if supportsDimensions(e.model) {
		req.Dimensions = e.dimensions
	}
	return req
}

func supportsDimensions(m goopenai.EmbeddingModel) bool {
	return m == goopenai.SmallEmbedding3 || m == goopenai.LargeEmbedding3
}

func (e *Embedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := e.client.CreateEmbeddings(ctx, e.newRequest(texts))
	if err != nil {
		return nil, errors.Wrap(err, "create embeddings")
	}
	if len(resp.Data) != len(texts) {
		return nil, errors.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}
	out := make([][]float64, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, errors.Errorf("embedding index %d out of range", d.Index)
		}
		v := make([]float64, len(d.Embedding))
		for i, f := range d.Embedding {
			v[i] = float64(f)
		}
		out[d.Index] = v
	}
	return out, nil
}
