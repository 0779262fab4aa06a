// Package explain produces the per-recommendation justification strings.
//
// A remote generative service is asked first; when it fails, times out, or is
// not configured, a deterministic template fallback takes over so identical
// inputs always yield the identical sentence.
package explain

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	"go.uber.org/zap"

	"github.com/tonearm/tonearm/internal/models"
	"github.com/tonearm/tonearm/internal/scoring"
)

// Generator obtains a natural-language explanation from an external service.
type Generator interface {
	Generate(ctx context.Context, title, creator string, boostCtx scoring.Context) (string, error)
}

// Composer builds explanation strings, preferring the generator when present.
type Composer struct {
	generator Generator
	logger    *zap.Logger
}

// NewComposer creates a Composer. generator may be nil, in which case only the
// deterministic fallback is used.
func NewComposer(generator Generator, logger *zap.Logger) *Composer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Composer{generator: generator, logger: logger}
}

// Explain returns a justification for recommending the track.
func (c *Composer) Explain(ctx context.Context, track *models.Track, tier string, boostCtx scoring.Context) string {
	if c.generator != nil {
		text, err := c.generator.Generate(ctx, track.Title, track.Creator, boostCtx)
		if err == nil && strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text)
		}
		if err != nil {
			c.logger.Debug("explanation generator unavailable, using fallback",
				zap.String("track_id", track.ID),
				zap.Error(err))
		}
	}
	return Fallback(track, tier, boostCtx)
}

// Fallback synthesizes a deterministic explanation. The template is chosen by
// hash(title+creator) mod 4, so the same track always gets the same sentence
// while different tracks vary.
func Fallback(track *models.Track, tier string, boostCtx scoring.Context) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(track.Title + track.Creator))
	category := track.Category
	if category == "" {
		category = "this style"
	}

	switch h.Sum32() % 4 {
	case 0:
		return fmt.Sprintf("%s by %s is a %s match for your taste in %s.",
			track.Title, track.Creator, tierPhrase(tier), category)
	case 1:
		if boostCtx.TimeOfDay != "" {
			return fmt.Sprintf("You tend to enjoy %s around the %s, and %s by %s fits that pattern.",
				category, boostCtx.TimeOfDay, track.Title, track.Creator)
		}
		return fmt.Sprintf("Your listening history shows a strong pull toward %s, and %s by %s fits that pattern.",
			category, track.Title, track.Creator)
	case 2:
		if boostCtx.Mood != "" || boostCtx.Activity != "" {
			return fmt.Sprintf("%s by %s pairs well with %s, based on tracks you have rated highly.",
				track.Title, track.Creator, contextPhrase(boostCtx))
		}
		return fmt.Sprintf("%s by %s lines up with tracks you have rated highly.",
			track.Title, track.Creator)
	default:
		return fmt.Sprintf("Listeners with profiles like yours keep coming back to %s, which is why %s by %s made this list.",
			category, track.Title, track.Creator)
	}
}

func tierPhrase(tier string) string {
	switch tier {
	case models.TierHigh:
		return "strong"
	case models.TierModerate:
		return "solid"
	default:
		return "fresh"
	}
}

func contextPhrase(boostCtx scoring.Context) string {
	switch {
	case boostCtx.Mood != "" && boostCtx.Activity != "":
		return fmt.Sprintf("a %s mood while %s", boostCtx.Mood, boostCtx.Activity)
	case boostCtx.Mood != "":
		return fmt.Sprintf("a %s mood", boostCtx.Mood)
	default:
		return boostCtx.Activity
	}
}
