package scoring

import (
	"hash/fnv"

	"github.com/tonearm/tonearm/internal/config"
	"github.com/tonearm/tonearm/internal/models"
	"github.com/tonearm/tonearm/pkg/utils"
)

// Scorer blends normalized similarity and boost into one combined score
// and classifies it into a match tier. Optionally applies bounded,
// deterministic jitter for presentation variety.
type Scorer struct {
	simWeight         float64
	boostWeight       float64
	highThreshold     float64
	moderateThreshold float64
	jitterAmplitude   float64
}

// NewScorer creates a scorer from the recommend configuration.
func NewScorer(cfg *config.RecommendConfig) *Scorer {
	return &Scorer{
		simWeight:         cfg.SimilarityWeight,
		boostWeight:       cfg.BoostWeight,
		highThreshold:     cfg.HighTierThreshold,
		moderateThreshold: cfg.ModerateTierThreshold,
		jitterAmplitude:   cfg.JitterAmplitude,
	}
}

// Combine returns the combined score for a similarity/boost pair, clamped
// to [0,1]. Inputs are expected to already be normalized to [0,1].
func (s *Scorer) Combine(similarity, boost float64) float64 {
	similarity = utils.Clamp01(similarity)
	boost = utils.Clamp01(boost)
	return utils.Clamp01(s.simWeight*similarity + s.boostWeight*boost)
}

// Tier classifies a combined score into its match tier.
func (s *Scorer) Tier(score float64) string {
	switch {
	case score >= s.highThreshold:
		return models.TierHigh
	case score >= s.moderateThreshold:
		return models.TierModerate
	default:
		return models.TierExploratory
	}
}

// Presented returns the score shown for a candidate: the combined score
// plus deterministic jitter derived from seedKey, clamped so the result
// never leaves the tier band of the unjittered score. With amplitude 0
// the score is returned unchanged.
func (s *Scorer) Presented(seedKey string, score float64) float64 {
	if s.jitterAmplitude <= 0 {
		return score
	}
	noise := seededNoise(seedKey) * s.jitterAmplitude
	jittered := utils.Clamp01(score + noise)
	low, high := s.tierBand(score)
	if jittered < low {
		jittered = low
	}
	if jittered >= high {
		// Stay strictly inside the band so the tier cannot flip upward.
		jittered = high - 1e-9
	}
	return jittered
}

// tierBand returns the [low, high) score interval of the tier that score
// falls into.
func (s *Scorer) tierBand(score float64) (float64, float64) {
	switch {
	case score >= s.highThreshold:
		return s.highThreshold, 1.0 + 1e-9
	case score >= s.moderateThreshold:
		return s.moderateThreshold, s.highThreshold
	default:
		return 0, s.moderateThreshold
	}
}

// seededNoise maps a key deterministically into [-1, 1).
func seededNoise(key string) float64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	// Top 53 bits give a uniform float in [0,1).
	u := float64(h.Sum64()>>11) / float64(1<<53)
	return u*2 - 1
}
