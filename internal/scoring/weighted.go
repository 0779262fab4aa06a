package scoring

import (
	"github.com/tonearm/tonearm/internal/models"
	"github.com/tonearm/tonearm/pkg/utils"
)

// Fixed weights for the per-feature combination, used when explicit
// feature matches are known instead of a single boost value.
const (
	weightCategoryMatch     = 0.35
	weightMoodMatch         = 0.25
	weightMoodPartial       = 0.15
	weightActivityMatch     = 0.15
	weightRatingQuality     = 0.15
	weightCompletionQuality = 0.10
)

// MoodMatch is the degree to which a candidate matches the requested mood.
type MoodMatch int

const (
	MoodMatchNone MoodMatch = iota
	MoodMatchPartial
	MoodMatchFull
)

// FeatureMatch holds explicit per-feature match signals for one candidate.
// RatingQuality and CompletionQuality are normalized to [0,1].
type FeatureMatch struct {
	CategoryMatch     bool
	Mood              MoodMatch
	ActivityMatch     bool
	RatingQuality     float64
	CompletionQuality float64
}

// WeightedScore blends the per-feature match score with a prior
// similarity at the same 70/30 split as the boost path.
func WeightedScore(similarity float64, m FeatureMatch) float64 {
	var match float64
	if m.CategoryMatch {
		match += weightCategoryMatch
	}
	switch m.Mood {
	case MoodMatchFull:
		match += weightMoodMatch
	case MoodMatchPartial:
		match += weightMoodPartial
	}
	if m.ActivityMatch {
		match += weightActivityMatch
	}
	match += weightRatingQuality * utils.Clamp01(m.RatingQuality)
	match += weightCompletionQuality * utils.Clamp01(m.CompletionQuality)

	return utils.Clamp01(0.7*utils.Clamp01(similarity) + 0.3*utils.Clamp01(match))
}

// MatchFeatures derives explicit per-feature match signals for a track
// from a profile and request context. Rating and completion quality come
// from the profile's engagement stats when the track appears there.
func MatchFeatures(profile *models.BehavioralProfile, track *models.Track, ctx Context) FeatureMatch {
	if profile == nil || track == nil {
		return FeatureMatch{}
	}
	var m FeatureMatch
	_, m.CategoryMatch = categoryWeight(profile.CategoryWeights, track.Category)

	if ctx.Mood != "" {
		if pref, ok := profile.Moods[ctx.Mood]; ok {
			if containsCategory(pref.TopCategories, track.Category) {
				m.Mood = MoodMatchFull
			} else if m.CategoryMatch {
				// listened to the category, just not under this mood
				m.Mood = MoodMatchPartial
			}
		}
	}
	if ctx.Activity != "" {
		if pref, ok := profile.Activities[ctx.Activity]; ok && containsCategory(pref.TopCategories, track.Category) {
			m.ActivityMatch = true
		}
	}

	title := utils.NormalizeName(track.Title)
	creator := utils.NormalizeName(track.Creator)
	for _, s := range profile.TopTracks {
		if utils.NormalizeName(s.Title) == title && utils.NormalizeName(s.Creator) == creator {
			m.RatingQuality = s.AvgRating / 5
			m.CompletionQuality = s.AvgCompletion
			break
		}
	}
	return m
}
