package testutil

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tbxark/mailagent/types"
	"github.com/tbxark/mailagent/vectorstore"
)

// FailingBackend wraps a backend and fails searches on selected collections.
type FailingBackend struct {
	vectorstore.Backend

	mu   sync.Mutex
	fail map[string]error
}

func (b *FailingBackend) FailSearch(collection string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail == nil {
		b.fail = map[string]error{}
	}
	b.fail[collection] = err
}

func (b *FailingBackend) Search(ctx context.Context, name string, vector []float32, k int, threshold float32) ([]types.ScoredDocument, error) {
	b.mu.Lock()
	err := b.fail[name]
	b.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return b.Backend.Search(ctx, name, vector, k, threshold)
}

// NewVectorGateway returns a gateway over a temporary SQLite backend.
func NewVectorGateway(t *testing.T, dim int) (*vectorstore.Gateway, *Embedder, *FailingBackend) {
	t.Helper()
	backend, err := vectorstore.OpenSQLiteBackend(context.Background(), filepath.Join(t.TempDir(), "vectors.db"))
	require.NoError(t, err)
	fb := &FailingBackend{Backend: backend}
	emb := NewEmbedder(dim)
	g := vectorstore.NewGateway(fb, emb, vectorstore.WithDimensions(dim))
	t.Cleanup(func() { _ = g.Close() })
	return g, emb, fb
}
