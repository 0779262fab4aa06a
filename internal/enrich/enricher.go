package enrich

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tonearm/tonearm/internal/models"
	"github.com/tonearm/tonearm/internal/scoring"
)

// Explainer produces the justification string for one candidate.
type Explainer interface {
	Explain(ctx context.Context, track *models.Track, tier string, boostCtx scoring.Context) string
}

// Enricher fans out per-candidate collaborator calls for one result page.
type Enricher struct {
	lookup    Lookup
	explainer Explainer
	timeout   time.Duration
	logger    *zap.Logger
}

// NewEnricher creates an Enricher. lookup may be nil to skip media lookup.
func NewEnricher(lookup Lookup, explainer Explainer, timeout time.Duration, logger *zap.Logger) *Enricher {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{lookup: lookup, explainer: explainer, timeout: timeout, logger: logger}
}

// EnrichPage fills Media and Explanation on every candidate concurrently.
// A failed or timed-out call degrades that one candidate (nil media, fallback
// explanation) without failing the page. The page is small and fixed, so one
// goroutine per candidate is the parallelism bound.
func (e *Enricher) EnrichPage(ctx context.Context, candidates []*models.Candidate, boostCtx scoring.Context) {
	var wg sync.WaitGroup
	for _, cand := range candidates {
		wg.Add(1)
		go func(cand *models.Candidate) {
			defer wg.Done()
			e.enrichOne(ctx, cand, boostCtx)
		}(cand)
	}
	wg.Wait()
}

func (e *Enricher) enrichOne(ctx context.Context, cand *models.Candidate, boostCtx scoring.Context) {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if e.lookup != nil {
		media, err := e.lookup.Lookup(callCtx, cand.Track.Title, cand.Track.Creator)
		if err != nil {
			e.logger.Debug("media lookup failed",
				zap.String("track_id", cand.Track.ID),
				zap.Error(err))
		} else {
			cand.Media = media
		}
	}

	if e.explainer != nil {
		cand.Explanation = e.explainer.Explain(callCtx, cand.Track, cand.Tier, boostCtx)
	}
}
