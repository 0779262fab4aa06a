// Package recommend implements the recommendation pipeline: score, rank,
// deduplicate, fall back, paginate.
package recommend

import (
	"context"
	"hash/fnv"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/tonearm/tonearm/internal/config"
	"github.com/tonearm/tonearm/internal/models"
	"github.com/tonearm/tonearm/internal/scoring"
	"github.com/tonearm/tonearm/internal/storage"
	"github.com/tonearm/tonearm/internal/vector"
	"github.com/tonearm/tonearm/pkg/utils"
)

// fallback chain stages, applied in order until the page target is met
const topFallbackCategories = 5

// Engine answers recommendation requests. Scoring is stateless per request;
// the vector index and store are shared and safe for concurrent reads.
type Engine struct {
	store  storage.Storage
	index  *vector.Index
	cfg    *config.RecommendConfig
	scorer *scoring.Scorer
	logger *zap.Logger
}

// NewEngine creates an Engine over the recommend configuration.
func NewEngine(store storage.Storage, index *vector.Index, cfg *config.RecommendConfig, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:  store,
		index:  index,
		cfg:    cfg,
		scorer: scoring.NewScorer(cfg),
		logger: logger,
	}
}

// Recommend runs the full pipeline for one request. An empty catalog or an
// unknown user yields an empty page, never an error.
func (e *Engine) Recommend(ctx context.Context, req *models.RecommendRequest) (*models.RecommendResponse, error) {
	start := time.Now()
	if err := req.Validate(e.cfg.DefaultLimit, e.cfg.MaxLimit); err != nil {
		return nil, err
	}
	boostCtx := scoring.Context{TimeOfDay: req.TimeOfDay, Mood: req.Mood, Activity: req.Activity}

	tracks, err := e.store.ListTracks(ctx, storage.TrackFilter{})
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*models.Track, len(tracks))
	for _, tr := range tracks {
		byID[tr.ID] = tr
	}

	profile, err := e.store.GetProfile(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	userVec, err := e.store.GetUserEmbedding(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	target := req.Offset + req.Limit
	seen := make(map[string]bool)
	var deduped []*models.Candidate

	// Stage 1: embedding similarity over the whole catalog.
	if userVec != nil && e.index.Size() > 0 {
		deduped = e.appendDeduped(deduped, seen,
			e.scoreBySimilarity(userVec, byID, profile, boostCtx))
	}

	// Stage 2: behavioral category filter fills remaining slots.
	if len(deduped) < target && profile != nil {
		candidates, err := e.categoryFallback(ctx, profile, boostCtx)
		if err != nil {
			return nil, err
		}
		deduped = e.appendDeduped(deduped, seen, candidates)
	}

	// Stage 3: global popularity with deterministic tie ordering.
	if len(deduped) < target {
		candidates, err := e.popularityFallback(ctx, req.UserID, profile, boostCtx)
		if err != nil {
			return nil, err
		}
		deduped = e.appendDeduped(deduped, seen, candidates)
	}

	page := slicePage(deduped, req.Offset, req.Limit)
	for i, cand := range page {
		cand.Rank = req.Offset + i + 1
	}

	e.logger.Debug("recommendation pipeline done",
		zap.String("user_id", req.UserID),
		zap.Int("candidates", len(deduped)),
		zap.Int("page", len(page)),
		zap.Duration("elapsed", time.Since(start)))

	return &models.RecommendResponse{
		Recommendations: page,
		HasMore:         len(deduped) > target,
		Offset:          req.Offset,
		QueryTime:       time.Since(start).Milliseconds(),
	}, nil
}

// scoreBySimilarity scores every indexed track against the user vector and
// returns candidates sorted by presented score descending, ties in insertion
// order.
func (e *Engine) scoreBySimilarity(userVec []float64, byID map[string]*models.Track, profile *models.BehavioralProfile, boostCtx scoring.Context) []*models.Candidate {
	hits := e.index.Search(userVec, e.index.Size())
	candidates := make([]*models.Candidate, 0, len(hits))
	for _, hit := range hits {
		track, ok := byID[hit.ID]
		if !ok {
			continue
		}
		boost := scoring.Boost(profile, track, boostCtx)
		combined := e.scorer.Combine(hit.Score, boost)
		score := e.scorer.Presented(track.ID, combined)
		candidates = append(candidates, &models.Candidate{
			Track:      track,
			Similarity: hit.Score,
			Boost:      boost,
			Score:      score,
			Tier:       e.scorer.Tier(combined),
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	return candidates
}

// categoryFallback scores tracks from the profile's strongest categories.
// With no similarity signal the explicit per-feature matches are known, so
// the weighted-feature combination is used instead of the single boost.
func (e *Engine) categoryFallback(ctx context.Context, profile *models.BehavioralProfile, boostCtx scoring.Context) ([]*models.Candidate, error) {
	categories := topCategories(profile.CategoryWeights, topFallbackCategories)
	if len(categories) == 0 {
		return nil, nil
	}
	tracks, err := e.store.ListTracks(ctx, storage.TrackFilter{Categories: categories})
	if err != nil {
		return nil, err
	}
	candidates := make([]*models.Candidate, 0, len(tracks))
	for _, track := range tracks {
		match := scoring.MatchFeatures(profile, track, boostCtx)
		combined := scoring.WeightedScore(0, match)
		candidates = append(candidates, &models.Candidate{
			Track: track,
			Boost: scoring.Boost(profile, track, boostCtx),
			Score: e.scorer.Presented(track.ID, combined),
			Tier:  e.scorer.Tier(combined),
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	return candidates, nil
}

// popularityFallback orders the catalog by popularity. Equal popularity is
// ordered by a per-user seeded hash so different users see varied but
// reproducible tie ordering.
func (e *Engine) popularityFallback(ctx context.Context, userID string, profile *models.BehavioralProfile, boostCtx scoring.Context) ([]*models.Candidate, error) {
	tracks, err := e.store.ListTracks(ctx, storage.TrackFilter{OrderByPopularity: true})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(tracks, func(i, j int) bool {
		if tracks[i].Popularity != tracks[j].Popularity {
			return tracks[i].Popularity > tracks[j].Popularity
		}
		return tieKey(userID, tracks[i].ID) < tieKey(userID, tracks[j].ID)
	})
	candidates := make([]*models.Candidate, 0, len(tracks))
	for _, track := range tracks {
		boost := scoring.Boost(profile, track, boostCtx)
		combined := e.scorer.Combine(utils.Clamp01(track.Popularity), boost)
		candidates = append(candidates, &models.Candidate{
			Track:      track,
			Similarity: 0,
			Boost:      boost,
			Score:      e.scorer.Presented(track.ID, combined),
			Tier:       e.scorer.Tier(combined),
		})
	}
	return candidates, nil
}

// appendDeduped appends candidates whose (title, creator) identity has not
// been seen yet. Earlier stages always win.
func (e *Engine) appendDeduped(deduped []*models.Candidate, seen map[string]bool, candidates []*models.Candidate) []*models.Candidate {
	for _, cand := range candidates {
		key := trackKey(cand.Track.Title, cand.Track.Creator)
		if seen[key] {
			continue
		}
		seen[key] = true
		deduped = append(deduped, cand)
	}
	return deduped
}

func slicePage(candidates []*models.Candidate, offset, limit int) []*models.Candidate {
	if offset >= len(candidates) {
		return []*models.Candidate{}
	}
	end := offset + limit
	if end > len(candidates) {
		end = len(candidates)
	}
	return candidates[offset:end]
}

func trackKey(title, creator string) string {
	return utils.NormalizeName(title) + "|" + utils.NormalizeName(creator)
}

// topCategories returns up to n category names by descending weight, names
// ascending on equal weight.
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

func tieKey(userID, trackID string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(userID + "|" + trackID))
	return h.Sum64()
}
