package ingest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/tonearm/tonearm/internal/encoder"
	"github.com/tonearm/tonearm/internal/models"
	"github.com/tonearm/tonearm/internal/storage"
	"github.com/tonearm/tonearm/internal/vector"
)

func testIngestor(t *testing.T) (*Ingestor, storage.Storage, *vector.Index) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "ingest.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })

	categories, err := encoder.NewCategoryMap(3, map[string][]float64{
		"rock":       {1, 0, 0},
		"electronic": {0, 1, 0},
		"jazz":       {0, 0, 1},
	})
	if err != nil {
		t.Fatal(err)
	}
	enc := encoder.NewEncoder(categories)
	agg := encoder.NewAggregator(enc)

	index, err := vector.NewIndex(enc.Dimensions())
	if err != nil {
		t.Fatal(err)
	}
	return NewIngestor(store, enc, agg, index, nil, nil), store, index
}

func rating(v float64) *float64 { return &v }

func TestIngestor_UploadCreatesTracksAndProfile(t *testing.T) {
	ing, store, index := testIngestor(t)
	ctx := context.Background()

	records := []models.Interaction{
		{Title: "Pulse", Creator: "A", Category: "electronic", Hour: 14, Completion: 0.9, Liked: true, Rating: rating(5)},
		{Title: "Riff", Creator: "B", Category: "rock", Hour: 14, Completion: 0.8, Rating: rating(4)},
		{Title: "", Creator: "C", Category: "jazz"}, // invalid, skipped
	}

	summary, err := ing.Upload(ctx, "u1", records)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if summary.Accepted != 2 || summary.Skipped != 1 {
		t.Errorf("accepted=%d skipped=%d", summary.Accepted, summary.Skipped)
	}
	if summary.TracksCreated != 2 {
		t.Errorf("tracks created = %d, want 2", summary.TracksCreated)
	}

	n, err := store.CountTracks(ctx)
	if err != nil || n != 2 {
		t.Errorf("catalog size = %d", n)
	}
	if index.Size() != 2 {
		t.Errorf("vector index size = %d, want 2", index.Size())
	}

	profile, err := store.GetProfile(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if profile == nil {
		t.Fatal("profile not written")
	}
	if len(profile.CategoryWeights) == 0 {
		t.Error("profile has no category weights")
	}

	vec, err := store.GetUserEmbedding(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) == 0 {
		t.Error("user embedding not written")
	}
}

func TestIngestor_DuplicateTracksNotRecreated(t *testing.T) {
	ing, store, _ := testIngestor(t)
	ctx := context.Background()

	batch := []models.Interaction{
		{Title: "Pulse", Creator: "A", Category: "electronic", Completion: 0.9, Liked: true},
	}
	if _, err := ing.Upload(ctx, "u1", batch); err != nil {
		t.Fatal(err)
	}

	// Second upload mentions the same track with different casing.
	again := []models.Interaction{
		{Title: "PULSE", Creator: "a", Category: "electronic", Completion: 0.8, Liked: true},
	}
	summary, err := ing.Upload(ctx, "u1", again)
	if err != nil {
		t.Fatal(err)
	}
	if summary.TracksCreated != 0 {
		t.Errorf("second upload created %d tracks, want 0", summary.TracksCreated)
	}
	n, _ := store.CountTracks(ctx)
	if n != 1 {
		t.Errorf("catalog size = %d, want 1", n)
	}
}

func TestIngestor_ProfileReplacedNotMerged(t *testing.T) {
	ing, store, _ := testIngestor(t)
	ctx := context.Background()

	first := []models.Interaction{
		{Title: "Riff", Creator: "B", Category: "rock", Completion: 0.9, Liked: true},
	}
	if _, err := ing.Upload(ctx, "u1", first); err != nil {
		t.Fatal(err)
	}

	second := []models.Interaction{
		{Title: "Blue", Creator: "C", Category: "jazz", Completion: 0.9, Liked: true},
	}
	if _, err := ing.Upload(ctx, "u1", second); err != nil {
		t.Fatal(err)
	}

	// The profile is rebuilt from the whole accumulated log, so both
	// categories appear.
	profile, err := store.GetProfile(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := profile.CategoryWeights["rock"]; !ok {
		t.Error("rebuilt profile lost earlier interactions")
	}
	if _, ok := profile.CategoryWeights["jazz"]; !ok {
		t.Error("rebuilt profile missing new interactions")
	}
}

func TestIngestor_RatingWeightsUserEmbedding(t *testing.T) {
	ing, store, _ := testIngestor(t)
	ctx := context.Background()

	records := []models.Interaction{
		{Title: "Riff", Creator: "B", Category: "rock", Completion: 0.9, Rating: rating(5)},
		{Title: "Pulse", Creator: "A", Category: "electronic", Completion: 0.9, Rating: rating(1)},
	}
	if _, err := ing.Upload(ctx, "u1", records); err != nil {
		t.Fatal(err)
	}

	vec, err := store.GetUserEmbedding(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	// Component 0 is rock, component 1 is electronic; 5:1 weighting must
	// dominate component-wise.
	if vec[0] <= vec[1] {
		t.Errorf("rock component %f should exceed electronic component %f", vec[0], vec[1])
	}
}

func TestIngestor_EmptyBatch(t *testing.T) {
	ing, store, _ := testIngestor(t)
	ctx := context.Background()

	summary, err := ing.Upload(ctx, "u1", nil)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if summary.Accepted != 0 || summary.TracksCreated != 0 {
		t.Errorf("summary = %+v", summary)
	}
	// Even an empty batch leaves the user with a (default) embedding.
	vec, err := store.GetUserEmbedding(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) == 0 {
		t.Error("default user embedding not written")
	}
	for _, v := range vec {
		if v != 0.5 {
			t.Errorf("default embedding component = %f, want 0.5", v)
			break
		}
	}
}

func TestIngestor_HourOutOfRangeSkipped(t *testing.T) {
	ing, _, _ := testIngestor(t)

	summary, err := ing.Upload(context.Background(), "u1", []models.Interaction{
		{Title: "Pulse", Creator: "A", Category: "electronic", Hour: 24, Completion: 0.9},
		{Title: "Riff", Creator: "B", Category: "rock", Hour: -1, Completion: 0.9},
		{Title: "Tune", Creator: "C", Category: "jazz", Hour: 23, Completion: 0.9},
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if summary.Accepted != 1 || summary.Skipped != 2 {
		t.Errorf("accepted=%d skipped=%d", summary.Accepted, summary.Skipped)
	}
	if summary.TracksCreated != 1 {
		t.Errorf("tracks created = %d, want 1", summary.TracksCreated)
	}
}

func TestIngestor_PopularityFollowsEngagement(t *testing.T) {
	ing, store, _ := testIngestor(t)
	ctx := context.Background()

	records := []models.Interaction{
		{Title: "Pulse", Creator: "A", Category: "electronic", Hour: 14, Completion: 0.9, Liked: true},
		{Title: "Pulse", Creator: "A", Category: "electronic", Hour: 15, Completion: 0.95},
		{Title: "Riff", Creator: "B", Category: "rock", Hour: 14, Completion: 0.3, Skipped: true},
	}
	if _, err := ing.Upload(ctx, "u1", records); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	pulse, err := store.FindTrackByName(ctx, "Pulse", "A")
	if err != nil || pulse == nil {
		t.Fatalf("find pulse: %v %v", pulse, err)
	}
	riff, err := store.FindTrackByName(ctx, "Riff", "B")
	if err != nil || riff == nil {
		t.Fatalf("find riff: %v %v", riff, err)
	}
	if pulse.Popularity <= riff.Popularity {
		t.Errorf("engaged track should be more popular: %f vs %f", pulse.Popularity, riff.Popularity)
	}

	// The popularity component flows into the stored embedding.
	embs, err := store.GetTrackEmbeddings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, emb := range embs {
		if emb.TrackID == pulse.ID {
			last := emb.Vector[len(emb.Vector)-1]
			if last != pulse.Popularity {
				t.Errorf("embedding popularity component = %f, track = %f", last, pulse.Popularity)
			}
		}
	}
}
