// Package encoder maps tracks and user histories to fixed-length vectors.
package encoder

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// CategoryMap is the configurable lookup table from category name to a
// soft membership vector. Sub-categories may carry blended vectors
// (partial membership in several parent categories). It is a data
// artifact loaded from yaml, not code.
type CategoryMap struct {
	dimensions int
	vectors    map[string][]float64
}

// categoryMapFile is the on-disk yaml shape of a category map.
type categoryMapFile struct {
	Dimensions int                  `yaml:"dimensions"`
	Categories map[string][]float64 `yaml:"categories"`
}

// LoadCategoryMap reads a category map artifact from path.
func LoadCategoryMap(path string) (*CategoryMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read category map: %w", err)
	}
	var file categoryMapFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse category map: %w", err)
	}
	return NewCategoryMap(file.Dimensions, file.Categories)
}

// NewCategoryMap builds a category map from parsed data, validating that
// every vector has the declared dimensionality.
func NewCategoryMap(dimensions int, categories map[string][]float64) (*CategoryMap, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("category map dimensions must be positive")
	}
	vectors := make(map[string][]float64, len(categories))
	for name, vec := range categories {
		if len(vec) != dimensions {
			return nil, fmt.Errorf("category %q vector has %d components, expected %d", name, len(vec), dimensions)
		}
		cp := make([]float64, dimensions)
		copy(cp, vec)
		vectors[strings.ToLower(strings.TrimSpace(name))] = cp
	}
	return &CategoryMap{dimensions: dimensions, vectors: vectors}, nil
}

// DefaultCategoryMap returns a built-in map over eight broad music genres,
// used when no category map artifact is configured. Sub-genres blend into
// their parents.
func DefaultCategoryMap() *CategoryMap {
	m, err := NewCategoryMap(8, map[string][]float64{
		"rock":       {1, 0, 0, 0, 0, 0, 0, 0},
		"pop":        {0, 1, 0, 0, 0, 0, 0, 0},
		"electronic": {0, 0, 1, 0, 0, 0, 0, 0},
		"hip-hop":    {0, 0, 0, 1, 0, 0, 0, 0},
		"jazz":       {0, 0, 0, 0, 1, 0, 0, 0},
		"classical":  {0, 0, 0, 0, 0, 1, 0, 0},
		"folk":       {0, 0, 0, 0, 0, 0, 1, 0},
		"metal":      {0, 0, 0, 0, 0, 0, 0, 1},
		"indie":      {0.5, 0.3, 0, 0, 0, 0, 0.2, 0},
		"dance":      {0, 0.4, 0.6, 0, 0, 0, 0, 0},
		"r&b":        {0, 0.4, 0, 0.4, 0.2, 0, 0, 0},
		"ambient":    {0, 0, 0.6, 0, 0, 0.4, 0, 0},
		"punk":       {0.6, 0, 0, 0, 0, 0, 0, 0.4},
		"blues":      {0.4, 0, 0, 0, 0.4, 0, 0.2, 0},
	})
	if err != nil {
		panic(err) // static data, cannot fail
	}
	return m
}

// Vector returns the soft vector for category (case-insensitive). Unknown
// categories get the all-zero vector.
func (m *CategoryMap) Vector(category string) []float64 {
	out := make([]float64, m.dimensions)
	if vec, ok := m.vectors[strings.ToLower(strings.TrimSpace(category))]; ok {
		copy(out, vec)
	}
	return out
}

// Dimensions returns the soft vector length.
func (m *CategoryMap) Dimensions() int {
	return m.dimensions
}

// Categories returns the known category names.
func (m *CategoryMap) Categories() []string {
	names := make([]string, 0, len(m.vectors))
	for name := range m.vectors {
		names = append(names, name)
	}
	return names
}
