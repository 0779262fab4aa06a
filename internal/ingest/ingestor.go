// Package ingest handles interaction batch uploads: validation, catalog
// growth, profile rebuild, and embedding recomputation.
package ingest

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tonearm/tonearm/internal/behavior"
	"github.com/tonearm/tonearm/internal/catalog"
	"github.com/tonearm/tonearm/internal/encoder"
	"github.com/tonearm/tonearm/internal/models"
	"github.com/tonearm/tonearm/internal/storage"
	"github.com/tonearm/tonearm/internal/vector"
)

const summaryPreviewSize = 5

// Ingestor processes one user's interaction batch end to end. Uploads for
// the same user are serialized; different users proceed concurrently.
type Ingestor struct {
	store      storage.Storage
	encoder    *encoder.Encoder
	aggregator *encoder.Aggregator
	index      *vector.Index
	catalog    *catalog.Index
	logger     *zap.Logger

	userLocks sync.Map // userID -> *sync.Mutex
}

// NewIngestor creates an Ingestor. catalogIndex may be nil when full-text
// search is not configured.
func NewIngestor(store storage.Storage, enc *encoder.Encoder, agg *encoder.Aggregator, index *vector.Index, catalogIndex *catalog.Index, logger *zap.Logger) *Ingestor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingestor{
		store:      store,
		encoder:    enc,
		aggregator: agg,
		index:      index,
		catalog:    catalogIndex,
		logger:     logger,
	}
}

func (ing *Ingestor) lockUser(userID string) *sync.Mutex {
	mu, _ := ing.userLocks.LoadOrStore(userID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Upload ingests a batch of interaction records for one user. Records missing
// a title or creator are skipped, never failed. On success the user's
// behavioral profile and embedding reflect the full accumulated log.
func (ing *Ingestor) Upload(ctx context.Context, userID string, records []models.Interaction) (*models.UploadSummary, error) {
	mu := ing.lockUser(userID)
	mu.Lock()
	defer mu.Unlock()

	accepted := make([]models.Interaction, 0, len(records))
	skipped := 0
	for _, rec := range records {
		if strings.TrimSpace(rec.Title) == "" || strings.TrimSpace(rec.Creator) == "" {
			skipped++
			continue
		}
		if rec.Hour < 0 || rec.Hour > 23 {
			skipped++
			continue
		}
		accepted = append(accepted, rec)
	}

	created, err := ing.ensureTracks(ctx, accepted)
	if err != nil {
		return nil, err
	}

	if len(accepted) > 0 {
		if err := ing.store.AppendInteractions(ctx, userID, accepted); err != nil {
			return nil, err
		}
	}

	log, err := ing.store.ListInteractions(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile := behavior.BuildProfile(userID, log)
	if err := ing.store.ReplaceProfile(ctx, userID, profile); err != nil {
		return nil, err
	}

	// Popularity is derived from engagement across all users, and it is a
	// component of every track embedding, so new interactions mean a
	// catalog-wide re-encode.
	if len(accepted) > 0 || created > 0 {
		if err := ing.store.RecomputePopularity(ctx); err != nil {
			return nil, err
		}
		if err := ing.reencodeCatalog(ctx); err != nil {
			return nil, err
		}
	}

	if err := ing.recomputeUserEmbedding(ctx, userID, log); err != nil {
		return nil, err
	}

	ing.logger.Info("interaction batch ingested",
		zap.String("user_id", userID),
		zap.Int("accepted", len(accepted)),
		zap.Int("skipped", skipped),
		zap.Int("tracks_created", created))

	return buildSummary(profile, len(accepted), skipped, created), nil
}

// ensureTracks creates catalog entries and embeddings for tracks the batch
// mentions for the first time. Identity is the case-insensitive
// (title, creator) pair.
func (ing *Ingestor) ensureTracks(ctx context.Context, records []models.Interaction) (int, error) {
	created := 0
	for i := range records {
		rec := &records[i]
		existing, err := ing.store.FindTrackByName(ctx, rec.Title, rec.Creator)
		if err != nil {
			return created, err
		}
		if existing != nil {
			rec.TrackID = existing.ID
			continue
		}

		track := &models.Track{
			ID:       uuid.NewString(),
			Title:    strings.TrimSpace(rec.Title),
			Creator:  strings.TrimSpace(rec.Creator),
			Category: rec.Category,
		}
		if err := ing.store.CreateTrack(ctx, track); err != nil {
			return created, err
		}
		if err := ing.store.PutTrackEmbedding(ctx, track.ID, ing.encoder.Encode(track)); err != nil {
			return created, err
		}
		if ing.catalog != nil {
			if err := ing.catalog.IndexTrack(ctx, track); err != nil {
				return created, err
			}
		}
		rec.TrackID = track.ID
		created++
	}
	return created, nil
}

// recomputeUserEmbedding rebuilds the user vector from the full log. An
// interaction qualifies when it is rated, liked, added, or mostly completed;
// the same gate the profile extractor applies.
func (ing *Ingestor) recomputeUserEmbedding(ctx context.Context, userID string, log []models.Interaction) error {
	history := make([]encoder.RatedTrack, 0, len(log))
	for i := range log {
		rec := &log[i]
		if rec.Skipped {
			continue
		}
		if !rec.HasRating() && !rec.Liked && !rec.Added && rec.Completion <= 0.7 {
			continue
		}
		track, err := ing.store.FindTrackByName(ctx, rec.Title, rec.Creator)
		if err != nil {
			return err
		}
		if track == nil {
			continue
		}
		history = append(history, encoder.RatedTrack{Track: track, Rating: rec.Rating})
	}
	return ing.store.PutUserEmbedding(ctx, userID, ing.aggregator.UserVector(history))
}

// reencodeCatalog regenerates every track embedding from the current track
// rows and swaps the result into the shared index.
func (ing *Ingestor) reencodeCatalog(ctx context.Context) error {
	tracks, err := ing.store.ListTracks(ctx, storage.TrackFilter{})
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(tracks))
	vectors := make([][]float64, 0, len(tracks))
	for _, track := range tracks {
		vec := ing.encoder.Encode(track)
		if err := ing.store.PutTrackEmbedding(ctx, track.ID, vec); err != nil {
			return err
		}
		ids = append(ids, track.ID)
		vectors = append(vectors, vec)
	}
	return ing.index.Replace(ids, vectors)
}

func buildSummary(profile *models.BehavioralProfile, accepted, skipped, created int) *models.UploadSummary {
	summary := &models.UploadSummary{
		Accepted:      accepted,
		Skipped:       skipped,
		TracksCreated: created,
		TopCategories: topCategories(profile.CategoryWeights, summaryPreviewSize),
	}
	if n := len(profile.TopCreators); n > summaryPreviewSize {
		summary.TopCreators = profile.TopCreators[:summaryPreviewSize]
	} else {
		summary.TopCreators = profile.TopCreators
	}
	if n := len(profile.TopTracks); n > summaryPreviewSize {
		summary.TopTracks = profile.TopTracks[:summaryPreviewSize]
	} else {
		summary.TopTracks = profile.TopTracks
	}
	return summary
}

func topCategories(weights map[string]float64, n int) []string {
	names := make([]string, 0, len(weights))
	for name := range weights {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if weights[names[i]] != weights[names[j]] {
			return weights[names[i]] > weights[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > n {
		names = names[:n]
	}
	return names
}
