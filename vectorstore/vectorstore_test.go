package vectorstore_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbxark/mailagent/testutil"
	"github.com/tbxark/mailagent/types"
	"github.com/tbxark/mailagent/vectorstore"
)

const dim = 8

func newGateway(t *testing.T) (*vectorstore.Gateway, *testutil.Embedder) {
	t.Helper()
	ctx := context.Background()
	backend, err := vectorstore.OpenSQLiteBackend(ctx, filepath.Join(t.TempDir(), "vectors.db"))
	require.NoError(t, err)
	emb := testutil.NewEmbedder(dim)
	g := vectorstore.NewGateway(backend, emb, vectorstore.WithDimensions(dim))
	t.Cleanup(func() { _ = g.Close() })
	return g, emb
}

func unit(i int) []float32 {
	v := make([]float32, dim)
	v[i] = 1
	return v
}

func TestCollections(t *testing.T) {
	g, _ := newGateway(t)
	c, err := g.Collections("alice.smith@example.com")
	require.NoError(t, err)
	assert.Equal(t, "alice__PERIODsmith__ATexample__PERIODcom", c.Emails)
	assert.Equal(t, "alice__PERIODsmith__ATexample__PERIODcom_attachments", c.Attachments)

	_, err = g.Collections("  ")
	assert.ErrorIs(t, err, vectorstore.ErrCollectionName)
}

func TestSearchMissingCollection(t *testing.T) {
	g, _ := newGateway(t)
	docs, err := g.Search(context.Background(), "nobody__ATexample__PERIODcom", unit(0), 5, 0.5)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestSearchThresholdAndTopK(t *testing.T) {
	g, emb := newGateway(t)
	ctx := context.Background()

	near := []float64{1, 0.1, 0, 0, 0, 0, 0, 0}
	nearer := []float64{1, 0.05, 0, 0, 0, 0, 0, 0}
	far := testutil.Unit(dim, 3)
	emb.Set("near", near)
	emb.Set("nearer", nearer)
	emb.Set("far", far)

	err := g.AddDocuments(ctx, "col", []types.VectorDocument{
		{Text: "near", Metadata: map[string]any{"conversation_id": "C1", "id": "E1"}},
		{Text: "nearer", Metadata: map[string]any{"conversation_id": "C1", "id": "E2"}},
		{Text: "far", Metadata: map[string]any{"file_name": "a.pdf"}},
	})
	require.NoError(t, err)

	q, err := g.EmbedQuery(ctx, "query")
	require.NoError(t, err)
	assert.Len(t, q, dim)

	docs, err := g.Search(ctx, "col", unit(0), 5, 0.9)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "nearer", docs[0].Text)
	assert.Equal(t, "near", docs[1].Text)
	assert.GreaterOrEqual(t, docs[0].Score, docs[1].Score)
	assert.Equal(t, types.KindEmail, docs[0].DocumentKind())

	docs, err = g.Search(ctx, "col", unit(0), 1, 0.9)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "nearer", docs[0].Text)

	docs, err = g.Search(ctx, "col", unit(3), 5, 0.99)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, types.KindAttachment, docs[0].DocumentKind())
}

func TestAddDocumentsDimensionMismatch(t *testing.T) {
	g, _ := newGateway(t)
	err := g.AddDocuments(context.Background(), "col", []types.VectorDocument{
		{Text: "x", Embedding: []float32{1, 2}},
	})
	assert.ErrorIs(t, err, vectorstore.ErrDimension)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, vectorstore.CosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-6)
	assert.InDelta(t, 0.0, vectorstore.CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.Equal(t, float32(0), vectorstore.CosineSimilarity([]float32{1}, []float32{1, 2}))
	assert.Equal(t, float32(0), vectorstore.CosineSimilarity([]float32{0, 0}, []float32{1, 1}))
}

func TestCollectionsStayDisjointAcrossUsers(t *testing.T) {
	g, emb := newGateway(t)
	ctx := context.Background()
	emb.Set("alice secret", testutil.Unit(dim, 0))

	owner, err := g.Collections("a-b@x.com")
	require.NoError(t, err)
	other, err := g.Collections("a_b@x.com")
	require.NoError(t, err)
	require.NotEqual(t, owner.Emails, other.Emails)

	require.NoError(t, g.AddDocuments(ctx, owner.Emails, []types.VectorDocument{{Text: "alice secret"}}))
	require.NoError(t, g.AddDocuments(ctx, other.Emails, []types.VectorDocument{{Text: "bob note", Embedding: unit(1)}}))

	docs, err := g.Search(ctx, other.Emails, unit(0), 5, 0)
	require.NoError(t, err)
	for _, d := range docs {
		assert.NotEqual(t, "alice secret", d.Text)
	}

	docs, err = g.Search(ctx, owner.Emails, unit(0), 5, 0.9)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "alice secret", docs[0].Text)
}
