// Package vector provides the flat inner-product vector index.
package vector

import (
	"context"
	"fmt"
)

// KindFlatIP identifies the exhaustive inner-product index in snapshot metadata.
const KindFlatIP = "flat_ip"

// Hit is a single vector search result. ID is the vector's insertion
// position, which by construction equals the chunk's position in the
// chunk list.
type Hit struct {
	ID    int
	Score float64 // Inner product; cosine similarity for normalized vectors.
}

// DimensionError reports a query vector whose dimension does not match
// the index.
type DimensionError struct {
	Got  int
	Want int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("vector dimension mismatch: got %d, expected %d", e.Got, e.Want)
}

// Index defines vector storage and similarity search.
type Index interface {
	Add(vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]Hit, error)
	Size() int
	Dimensions() int
	Kind() string
	Save(path string) error
}
