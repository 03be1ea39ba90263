package vectorstore

import (
	"context"
	"strings"
	"unicode"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/tbxark/mailagent/types"
)

type WeaviateConfig struct {
	Host   string
	Scheme string
	APIKey string
}

// WeaviateBackend maps each collection onto a weaviate class with a flat cosine index.
type WeaviateBackend struct {
	client *weaviate.Client
}

func NewWeaviateBackend(cfg WeaviateConfig) (*WeaviateBackend, error) {
	wc := weaviate.Config{
		Host:   cfg.Host,
		Scheme: cfg.Scheme,
	}
	if wc.Scheme == "" {
		wc.Scheme = "http"
	}
	if cfg.APIKey != "" {
		wc.AuthConfig = auth.ApiKey{Value: cfg.APIKey}
	}
	client, err := weaviate.NewClient(wc)
	if err != nil {
		return nil, errors.Wrap(err, "create weaviate client")
	}
	return &WeaviateBackend{client: client}, nil
}

// className converts a collection name into a valid weaviate class name.
// The first letter is upper-cased; the digest suffix still separates names
// that differ only in that letter.
func className(name string) string {
	s := physicalName(name)
	if !unicode.IsLetter(rune(s[0])) {
		s = "C" + s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (w *WeaviateBackend) HasCollection(ctx context.Context, name string) (bool, error) {
	return w.client.Schema().ClassExistenceChecker().WithClassName(className(name)).Do(ctx)
}

func (w *WeaviateBackend) EnsureCollection(ctx context.Context, name string, dim int) error {
	exists, err := w.HasCollection(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	class := &models.Class{
		Class:           className(name),
		Vectorizer:      "none",
		VectorIndexType: "flat",
		VectorIndexConfig: map[string]any{
			"distance": "cosine",
		},
		Properties: []*models.Property{
			{Name: "text", DataType: []string{"text"}},
			{Name: "metadata", DataType: []string{"text"}},
		},
	}
	return w.client.Schema().ClassCreator().WithClass(class).Do(ctx)
}

func (w *WeaviateBackend) Insert(ctx context.Context, name string, docs []types.VectorDocument) error {
	cls := className(name)
	for _, d := range docs {
		meta, err := sonic.MarshalString(d.Metadata)
		if err != nil {
			return errors.Wrap(err, "encode metadata")
		}
		_, err = w.client.Data().Creator().
			WithClassName(cls).
			WithProperties(map[string]any{"text": d.Text, "metadata": meta}).
			WithVector(d.Embedding).
			Do(ctx)
		if err != nil {
			return errors.Wrap(err, "create object")
		}
	}
	return nil
}

func (w *WeaviateBackend) Search(ctx context.Context, name string, vector []float32, k int, threshold float32) ([]types.ScoredDocument, error) {
	cls := className(name)
	nearVector := w.client.GraphQL().NearVectorArgBuilder().
		WithVector(vector).
		WithDistance(1 - threshold)
	resp, err := w.client.GraphQL().Get().
		WithClassName(cls).
		WithFields(
			graphql.Field{Name: "text"},
			graphql.Field{Name: "metadata"},
			graphql.Field{Name: "_additional", Fields: []graphql.Field{{Name: "distance"}}},
		).
		WithNearVector(nearVector).
		WithLimit(k).
		Do(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "near vector query")
	}
	if len(resp.Errors) > 0 {
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, errors.Errorf("near vector query: %s", strings.Join(msgs, "; "))
	}
	get, _ := resp.Data["Get"].(map[string]any)
	items, _ := get[cls].([]any)
	docs := make([]types.ScoredDocument, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		doc := types.ScoredDocument{}
		doc.Text, _ = obj["text"].(string)
		if raw, ok := obj["metadata"].(string); ok && raw != "" {
			if err := sonic.UnmarshalString(raw, &doc.Metadata); err != nil {
				return nil, errors.Wrap(err, "decode metadata")
			}
		}
		if add, ok := obj["_additional"].(map[string]any); ok {
			if dist, ok := add["distance"].(float64); ok {
				doc.Score = float32(1 - dist)
			}
		}
		docs = append(docs, doc)
	}
	return topK(docs, k, threshold), nil
}

func (w *WeaviateBackend) Close() error {
	return nil
}
