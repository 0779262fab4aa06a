// Package catalog provides Bleve-backed full-text search over the track catalog.
package catalog

import (
	"context"
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/tonearm/tonearm/internal/models"
)

// trackDocument is the shape indexed per track. Only searchable text fields
// are carried; everything else stays in storage.
type trackDocument struct {
	Title    string `json:"title"`
	Creator  string `json:"creator"`
	Category string `json:"category"`
}

// Result is one search hit.
type Result struct {
	TrackID string
	Score   float64
}

// Index is a Bleve index over track titles, creators and categories.
type Index struct {
	index      bleve.Index
	titleBoost float64
}

// NewIndex creates or opens a Bleve index at path.
// If the path already exists, the existing index is opened and reused;
// remove the directory to force a full re-index after a mapping change.
func NewIndex(path string, titleBoost float64) (*Index, error) {
	if titleBoost <= 0 {
		titleBoost = 2.0
	}

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open catalog index: %w", openErr)
		}
		return &Index{index: index, titleBoost: titleBoost}, nil
	}

	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so creator names
	// like "Boards" are not stemmed into unmatchable forms.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("title", textFieldMapping)
	docMapping.AddFieldMappingsAt("creator", textFieldMapping)
	keywordFieldMapping := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt("category", keywordFieldMapping)
	im.AddDocumentMapping("track", docMapping)
	im.DefaultType = "track"
	im.DefaultMapping = docMapping

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog index: %w", err)
	}
	return &Index{index: index, titleBoost: titleBoost}, nil
}

// NewMemIndex creates an in-memory index. Used by tests and the ingest path
// when no index path is configured.
func NewMemIndex(titleBoost float64) (*Index, error) {
	if titleBoost <= 0 {
		titleBoost = 2.0
	}
	index, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog index: %w", err)
	}
	return &Index{index: index, titleBoost: titleBoost}, nil
}

// IndexTrack adds or updates one track in the index.
func (c *Index) IndexTrack(ctx context.Context, track *models.Track) error {
	return c.index.Index(track.ID, trackDocument{
		Title:    track.Title,
		Creator:  track.Creator,
		Category: track.Category,
	})
}

// Search runs a match query over title and creator, with title hits weighted
// by the configured boost, and returns up to limit results by score.
func (c *Index) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 10
	}

	titleQuery := bleve.NewMatchQuery(query)
	titleQuery.SetField("title")
	titleQuery.SetBoost(c.titleBoost)

	creatorQuery := bleve.NewMatchQuery(query)
	creatorQuery.SetField("creator")

	q := bleve.NewDisjunctionQuery([]blevequery.Query{titleQuery, creatorQuery}...)
	req := bleve.NewSearchRequest(q)
	req.Size = limit

	results, err := c.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("catalog search failed: %w", err)
	}

	out := make([]Result, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = Result{TrackID: hit.ID, Score: hit.Score}
	}
	return out, nil
}

// Delete removes a track from the index.
func (c *Index) Delete(ctx context.Context, trackID string) error {
	return c.index.Delete(trackID)
}

// DocCount returns the number of indexed tracks.
func (c *Index) DocCount() (uint64, error) {
	return c.index.DocCount()
}

// Close closes the underlying index.
func (c *Index) Close() error {
	return c.index.Close()
}
