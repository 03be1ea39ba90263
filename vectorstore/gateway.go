// Package vectorstore gives typed access to the per-user email and attachment collections.
package vectorstore

import (
	"context"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/tbxark/mailagent/types"
)

const DefaultDimensions = 3072

var ErrDimension = errors.New("embedding dimension mismatch")

// Backend stores vectors in named collections.
type Backend interface {
	HasCollection(ctx context.Context, name string) (bool, error)
	// EnsureCollection creates the collection and its cosine index when missing.
	EnsureCollection(ctx context.Context, name string, dim int) error
	Insert(ctx context.Context, name string, docs []types.VectorDocument) error
	Search(ctx context.Context, name string, vector []float32, k int, threshold float32) ([]types.ScoredDocument, error)
	Close() error
}

type Gateway struct {
	backend  Backend
	embedder embedding.Embedder
	naming   Naming
	dim      int
}

type GatewayOption func(*Gateway)

func WithNaming(n Naming) GatewayOption {
	return func(g *Gateway) {
		g.naming = n
	}
}

func WithDimensions(dim int) GatewayOption {
	return func(g *Gateway) {
		if dim > 0 {
			g.dim = dim
		}
	}
}

func NewGateway(backend Backend, embedder embedding.Embedder, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		backend:  backend,
		embedder: embedder,
		naming:   DefaultNaming(),
		dim:      DefaultDimensions,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

func (g *Gateway) Collections(user string) (Collections, error) {
	return g.naming.Collections(user)
}

func (g *Gateway) Dimensions() int {
	return g.dim
}

// EmbedQuery embeds a single text.
func (g *Gateway) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := g.embedder.EmbedStrings(ctx, []string{text})
	if err != nil {
		return nil, errors.Wrap(err, "embed query")
	}
	if len(vectors) != 1 {
		return nil, errors.Errorf("embed query: expected 1 vector, got %d", len(vectors))
	}
	vec := toFloat32(vectors[0])
	if len(vec) != g.dim {
		return nil, errors.Wrapf(ErrDimension, "got %d, want %d", len(vec), g.dim)
	}
	return vec, nil
}

// Search returns up to k documents scoring at least threshold. A collection that
// does not exist yet has no documents.
func (g *Gateway) Search(ctx context.Context, collection string, vector []float32, k int, threshold float32) ([]types.ScoredDocument, error) {
	exists, err := g.backend.HasCollection(ctx, collection)
	if err != nil {
		return nil, errors.Wrapf(err, "check collection %s", collection)
	}
	if !exists {
		log.Debug().Str("collection", collection).Msg("collection does not exist yet")
		return nil, nil
	}
	docs, err := g.backend.Search(ctx, collection, vector, k, threshold)
	if err != nil {
		return nil, errors.Wrapf(err, "search collection %s", collection)
	}
	return docs, nil
}

// AddDocuments embeds documents that carry no embedding and writes them, creating
// the collection on first write.
func (g *Gateway) AddDocuments(ctx context.Context, collection string, docs []types.VectorDocument) error {
	if len(docs) == 0 {
		return nil
	}
	var texts []string
	var idx []int
	for i, d := range docs {
		if len(d.Embedding) == 0 {
			texts = append(texts, d.Text)
			idx = append(idx, i)
		}
	}
	if len(texts) > 0 {
		vectors, err := g.embedder.EmbedStrings(ctx, texts)
		if err != nil {
			return errors.Wrap(err, "embed documents")
		}
		if len(vectors) != len(texts) {
			return errors.Errorf("embed documents: expected %d vectors, got %d", len(texts), len(vectors))
		}
		for j, i := range idx {
			docs[i].Embedding = toFloat32(vectors[j])
		}
	}
	for _, d := range docs {
		if len(d.Embedding) != g.dim {
			return errors.Wrapf(ErrDimension, "got %d, want %d", len(d.Embedding), g.dim)
		}
	}
	if err := g.backend.EnsureCollection(ctx, collection, g.dim); err != nil {
		return errors.Wrapf(err, "ensure collection %s", collection)
	}
	if err := g.backend.Insert(ctx, collection, docs); err != nil {
		return errors.Wrapf(err, "insert into %s", collection)
	}
	return nil
}

func (g *Gateway) Close() error {
	return g.backend.Close()
}
