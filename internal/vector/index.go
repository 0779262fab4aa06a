package vector

import (
	"fmt"
	"sort"
	"sync"
)

// Result is a single similarity search hit (ID is a track ID).
type Result struct {
	ID    string
	Score float64
}

// Index is an in-memory brute-force cosine index over track embeddings.
// The catalog is small enough that a linear scan per request is fine; the
// index is rebuilt wholesale after ingest or a category-map reload.
type Index struct {
	dimensions int
	ids        []string
	vectors    [][]float64
	mu         sync.RWMutex
}

// NewIndex creates an index for vectors of the given dimensionality.
func NewIndex(dimensions int) (*Index, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &Index{dimensions: dimensions}, nil
}

// Add appends a vector with the given ID.
func (x *Index) Add(id string, vec []float64) error {
	if len(vec) != x.dimensions {
		return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(vec), x.dimensions)
	}
	cp := make([]float64, x.dimensions)
	copy(cp, vec)
	x.mu.Lock()
	defer x.mu.Unlock()
	x.ids = append(x.ids, id)
	x.vectors = append(x.vectors, cp)
	return nil
}

// Replace swaps the entire index contents. ids and vectors must be parallel.
func (x *Index) Replace(ids []string, vectors [][]float64) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch")
	}
	newIDs := make([]string, len(ids))
	newVecs := make([][]float64, len(vectors))
	for i := range ids {
		if len(vectors[i]) != x.dimensions {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(vectors[i]), x.dimensions)
		}
		newIDs[i] = ids[i]
		cp := make([]float64, x.dimensions)
		copy(cp, vectors[i])
		newVecs[i] = cp
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	x.ids = newIDs
	x.vectors = newVecs
	return nil
}

// Remove removes vectors by ID.
func (x *Index) Remove(ids []string) {
	removeSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		removeSet[id] = true
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	newIDs := make([]string, 0, len(x.ids))
	newVecs := make([][]float64, 0, len(x.vectors))
	for i, id := range x.ids {
		if !removeSet[id] {
			newIDs = append(newIDs, id)
			newVecs = append(newVecs, x.vectors[i])
		}
	}
	x.ids = newIDs
	x.vectors = newVecs
}

// Search returns the top-k entries by cosine similarity to query,
// descending. Ties keep insertion order.
func (x *Index) Search(query []float64, k int) []*Result {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if k <= 0 || len(x.ids) == 0 {
		return nil
	}
	scores := make([]*Result, len(x.ids))
	for i, vec := range x.vectors {
		scores[i] = &Result{ID: x.ids[i], Score: Cosine(query, vec)}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })
	if k > len(scores) {
		k = len(scores)
	}
	return scores[:k]
}

// Get returns the vector stored for id, or nil when absent.
func (x *Index) Get(id string) []float64 {
	x.mu.RLock()
	defer x.mu.RUnlock()
	for i, stored := range x.ids {
		if stored == id {
			cp := make([]float64, x.dimensions)
			copy(cp, x.vectors[i])
			return cp
		}
	}
	return nil
}

// Size returns the number of vectors in the index.
func (x *Index) Size() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.ids)
}

// Dimensions returns the fixed vector dimensionality.
func (x *Index) Dimensions() int {
	return x.dimensions
}
