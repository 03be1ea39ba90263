package testutil

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/embedding"
)

// Embedder returns fixed vectors for registered texts and a hashed bag-of-words otherwise.
type Embedder struct {
	Dim int

	mu      sync.Mutex
	vectors map[string][]float64
	Err     error
}

var _ embedding.Embedder = (*Embedder)(nil)

func NewEmbedder(dim int) *Embedder {
	return &Embedder{Dim: dim, vectors: map[string][]float64{}}
}

func (e *Embedder) Set(text string, vec []float64) {
	e.mu.Lock()
	e.vectors[text] = vec
	e.mu.Unlock()
}

func (e *Embedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	if e.Err != nil {
		return nil, e.Err
	}
	out := make([][]float64, len(texts))
	for i, t := range texts {
		e.mu.Lock()
		v, ok := e.vectors[t]
		e.mu.Unlock()
		if ok {
			out[i] = v
			continue
		}
		out[i] = e.hashed(t)
	}
	return out, nil
}

func (e *Embedder) hashed(text string) []float64 {
	vec := make([]float64, e.Dim)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[int(h.Sum32()%uint32(e.Dim))] += 1
	}
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}

// Unit returns a vector of length dim with a single 1 at index i.
func Unit(dim, i int) []float64 {
	v := make([]float64, dim)
	v[i%dim] = 1
	return v
}
