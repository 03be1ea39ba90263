package vectorstore

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/tbxark/mailagent/types"
)

func embeddingToBytes(v []float32) []byte {
	out := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}

func bytesToEmbedding(data []byte) []float32 {
	result := make([]float32, len(data)/4)
	for i := range result {
		result[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4 : i*4+4]))
	}
	return result
}

func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}

	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	na := float32(math.Sqrt(float64(normA)))
	nb := float32(math.Sqrt(float64(normB)))
	if na == 0 || nb == 0 {
		return 0.0
	}
	return dot / (na * nb)
}

// topK keeps documents scoring at least threshold, best first, at most k.
func topK(docs []types.ScoredDocument, k int, threshold float32) []types.ScoredDocument {
	out := docs[:0]
	for _, d := range docs {
		if d.Score >= threshold {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}
