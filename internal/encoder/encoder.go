package encoder

import (
	"fmt"
	"sync"

	"github.com/tonearm/tonearm/internal/models"
)

// numericFeatureCount is the number of numeric components appended after
// the category soft vector: tempo/200, energy, danceability, valence, popularity.
const numericFeatureCount = 5

// tempoScale normalizes BPM into roughly [0,1].
const tempoScale = 200.0

// Encoder is the item tower: a deterministic, pure feature map from a
// track's attributes to a fixed-length vector. The category map can be
// swapped at runtime when its artifact changes on disk.
type Encoder struct {
	mu         sync.RWMutex
	categories *CategoryMap
}

// NewEncoder creates an encoder over the given category map.
func NewEncoder(categories *CategoryMap) *Encoder {
	return &Encoder{categories: categories}
}

// Dimensions returns the fixed output vector length.
func (e *Encoder) Dimensions() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.categories.Dimensions() + numericFeatureCount
}

// Encode maps a track to its embedding. Missing numeric inputs contribute 0.
func (e *Encoder) Encode(t *models.Track) []float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]float64, 0, e.categories.Dimensions()+numericFeatureCount)
	out = append(out, e.categories.Vector(t.Category)...)
	out = append(out,
		t.Features.Tempo/tempoScale,
		t.Features.Energy,
		t.Features.Danceability,
		t.Features.Valence,
		t.Popularity,
	)
	return out
}

// Swap replaces the category map. The new map must keep the same
// dimensionality; changing it would invalidate every stored embedding.
func (e *Encoder) Swap(categories *CategoryMap) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if categories.Dimensions() != e.categories.Dimensions() {
		return fmt.Errorf("category map dimensions changed from %d to %d, restart required",
			e.categories.Dimensions(), categories.Dimensions())
	}
	e.categories = categories
	return nil
}
