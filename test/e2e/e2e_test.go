// Package e2e exercises the full HTTP stack against real storage and indices.
package e2e

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/tonearm/tonearm/internal/catalog"
	"github.com/tonearm/tonearm/internal/config"
	"github.com/tonearm/tonearm/internal/encoder"
	"github.com/tonearm/tonearm/internal/enrich"
	"github.com/tonearm/tonearm/internal/explain"
	"github.com/tonearm/tonearm/internal/ingest"
	"github.com/tonearm/tonearm/internal/models"
	"github.com/tonearm/tonearm/internal/recommend"
	"github.com/tonearm/tonearm/internal/server"
	"github.com/tonearm/tonearm/internal/storage"
	"github.com/tonearm/tonearm/internal/vector"
	"github.com/tonearm/tonearm/pkg/utils"
)

func newTestStack(t *testing.T) *httptest.Server {
	t.Helper()
	dir := t.TempDir()

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Storage.DatabasePath = filepath.Join(dir, "db.sqlite")
	cfg.Storage.CatalogIndexPath = filepath.Join(dir, "catalog")

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	categories, err := encoder.NewCategoryMap(3, map[string][]float64{
		"electronic": {1, 0, 0},
		"rock":       {0, 1, 0},
		"jazz":       {0, 0, 1},
	})
	if err != nil {
		t.Fatal(err)
	}
	enc := encoder.NewEncoder(categories)
	agg := encoder.NewAggregator(enc)

	vecIndex, err := vector.NewIndex(enc.Dimensions())
	if err != nil {
		t.Fatal(err)
	}
	catalogIndex, err := catalog.NewIndex(cfg.Storage.CatalogIndexPath, 2.0)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { catalogIndex.Close() })

	logger := utils.NopLogger()

	engine := recommend.NewEngine(store, vecIndex, &cfg.Recommend, logger)
	ingestor := ingest.NewIngestor(store, enc, agg, vecIndex, catalogIndex, logger)
	composer := explain.NewComposer(nil, logger)
	enricher := enrich.NewEnricher(nil, composer, 0, logger)

	srv := server.NewServer(engine, ingestor, enricher, store, catalogIndex, vecIndex, cfg, logger)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func TestE2E_FullListeningFlow(t *testing.T) {
	ts := newTestStack(t)

	history := []map[string]interface{}{
		{"song": "Windowlicker", "artist": "Aphex Twin", "genre": "Electronic",
			"hour_of_day": 14, "completion_rate": 0.95, "favorite": true, "score": 5},
		{"song": "Teardrop", "artist": "Massive Attack", "genre": "Electronic",
			"hour_of_day": 15, "completion_rate": 0.9, "added_to_library": true},
		{"song": "So What", "artist": "Miles Davis", "genre": "Jazz",
			"hour_of_day": 22, "completion_rate": 0.8},
		{"song": "Creep", "artist": "Radiohead", "genre": "Rock",
			"hour_of_day": 9, "completion_rate": 0.2, "skipped": true},
	}
	body, _ := json.Marshal(history)
	resp, err := http.Post(ts.URL+"/api/v1/users/alice/interactions", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload status = %d", resp.StatusCode)
	}
	var summary models.UploadSummary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		t.Fatal(err)
	}
	if summary.TracksCreated != 4 {
		t.Fatalf("expected 4 tracks created, got %d", summary.TracksCreated)
	}

	// Profile reflects the batch.
	resp, err = http.Get(ts.URL + "/api/v1/users/alice/profile")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("profile status = %d", resp.StatusCode)
	}
	var profile models.BehavioralProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		t.Fatal(err)
	}
	if len(profile.CategoryWeights) == 0 {
		t.Fatal("expected category weights in profile")
	}

	// Paginate recommendations to exhaustion; every track appears once.
	seen := map[string]bool{}
	offset := 0
	for {
		reqBody, _ := json.Marshal(models.RecommendRequest{
			UserID: "alice", Offset: offset, Limit: 2, TimeOfDay: "afternoon",
		})
		resp, err := http.Post(ts.URL+"/api/v1/recommendations", "application/json", bytes.NewReader(reqBody))
		if err != nil {
			t.Fatal(err)
		}
		var page models.RecommendResponse
		if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		for _, rec := range page.Recommendations {
			if seen[rec.Track.ID] {
				t.Fatalf("track %s returned twice across pages", rec.Track.Title)
			}
			seen[rec.Track.ID] = true
		}
		if !page.HasMore {
			break
		}
		offset += 2
	}
	if len(seen) != 4 {
		t.Fatalf("expected all 4 tracks across pages, saw %d", len(seen))
	}

	// Enriched page carries explanations.
	resp, err = http.Get(ts.URL + "/api/v1/recommendations/enriched?userId=alice&timeOfDay=evening")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var enriched models.RecommendResponse
	if err := json.NewDecoder(resp.Body).Decode(&enriched); err != nil {
		t.Fatal(err)
	}
	for _, rec := range enriched.Recommendations {
		if rec.Explanation == "" {
			t.Errorf("missing explanation for %s", rec.Track.Title)
		}
	}

	// Full-text search over the ingested catalog.
	resp, err = http.Get(ts.URL + "/api/v1/search?q=" + "teardrop")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var searchResp struct {
		Tracks []*models.Track `json:"tracks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		t.Fatal(err)
	}
	if len(searchResp.Tracks) == 0 || searchResp.Tracks[0].Title != "Teardrop" {
		t.Fatalf("unexpected search results: %+v", searchResp.Tracks)
	}

	// Status reflects the ingest.
	resp, err = http.Get(ts.URL + "/api/v1/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var status struct {
		Tracks          int64 `json:"tracks"`
		VectorIndexSize int   `json:"vector_index_size"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}
	if status.Tracks != 4 || status.VectorIndexSize != 4 {
		t.Fatalf("status mismatch: %+v", status)
	}
}

func TestE2E_RecommendationsForUnknownUser(t *testing.T) {
	ts := newTestStack(t)

	// Seed the catalog through another user so popularity fallback has
	// something to serve.
	history := []map[string]interface{}{
		{"title": "Angel", "creator": "Massive Attack", "category": "Electronic",
			"hour": 20, "completion": 0.9},
	}
	body, _ := json.Marshal(history)
	resp, err := http.Post(ts.URL+"/api/v1/users/seed/interactions", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	reqBody, _ := json.Marshal(models.RecommendRequest{UserID: "stranger", Limit: 5})
	resp, err = http.Post(ts.URL+"/api/v1/recommendations", "application/json", bytes.NewReader(reqBody))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var page models.RecommendResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		t.Fatal(err)
	}
	if len(page.Recommendations) != 1 {
		t.Fatalf("expected the seeded track via popularity fallback, got %d", len(page.Recommendations))
	}
	if got := page.Recommendations[0].Rank; got != 1 {
		t.Errorf("rank = %d, want 1", got)
	}
}
