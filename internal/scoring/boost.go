// Package scoring combines embedding similarity with a behavioral boost
// into a single ranking score with tier classification.
package scoring

import (
	"github.com/tonearm/tonearm/internal/models"
	"github.com/tonearm/tonearm/pkg/utils"
)

// Boost contributions. Independent, summed, capped at 1.0 total.
const (
	bucketCategoryBoost   = 0.3
	bucketTrackBoost      = 0.4
	categoryWeightBoost   = 0.2
	moodCategoryBoost     = 0.25
	activityCategoryBoost = 0.25
	topCreatorBoost       = 0.2
	topTrackBoost         = 0.3
)

// Context is the optional listening context supplied with a request.
type Context struct {
	TimeOfDay string
	Mood      string
	Activity  string
}

// Boost computes the behavioral boost for a candidate track against a
// profile and context. A nil or empty profile yields 0.
func Boost(profile *models.BehavioralProfile, track *models.Track, ctx Context) float64 {
	if profile == nil || track == nil {
		return 0
	}
	var boost float64

	if ctx.TimeOfDay != "" {
		bucket := profile.Bucket(ctx.TimeOfDay)
		if containsCategory(bucket.TopCategories, track.Category) {
			boost += bucketCategoryBoost
		}
		if containsTrack(bucket.QualifyingTracks, track) {
			boost += bucketTrackBoost
		}
	}

	if max := profile.MaxCategoryWeight(); max > 0 {
		if w, ok := categoryWeight(profile.CategoryWeights, track.Category); ok {
			boost += categoryWeightBoost * (w / max)
		}
	}

	if ctx.Mood != "" {
		if pref, ok := profile.Moods[ctx.Mood]; ok && containsCategory(pref.TopCategories, track.Category) {
			boost += moodCategoryBoost
		}
	}
	if ctx.Activity != "" {
		if pref, ok := profile.Activities[ctx.Activity]; ok && containsCategory(pref.TopCategories, track.Category) {
			boost += activityCategoryBoost
		}
	}

	if isTopCreator(profile.TopCreators, track.Creator) {
		boost += topCreatorBoost
	}
	if isTopTrack(profile.TopTracks, track) {
		boost += topTrackBoost
	}

	if boost > 1.0 {
		boost = 1.0
	}
	return boost
}

func containsCategory(categories []string, category string) bool {
	want := utils.NormalizeName(category)
	if want == "" {
		return false
	}
	for _, c := range categories {
		if utils.NormalizeName(c) == want {
			return true
		}
	}
	return false
}

func categoryWeight(weights map[string]float64, category string) (float64, bool) {
	want := utils.NormalizeName(category)
	for name, w := range weights {
		if utils.NormalizeName(name) == want {
			return w, true
		}
	}
	return 0, false
}

func containsTrack(tracks []models.TrackRef, track *models.Track) bool {
	title := utils.NormalizeName(track.Title)
	creator := utils.NormalizeName(track.Creator)
	for _, ref := range tracks {
		if utils.NormalizeName(ref.Title) == title && utils.NormalizeName(ref.Creator) == creator {
			return true
		}
	}
	return false
}

func isTopCreator(creators []models.CreatorStat, creator string) bool {
	want := utils.NormalizeName(creator)
	if want == "" {
		return false
	}
	for _, c := range creators {
		if utils.NormalizeName(c.Creator) == want {
			return true
		}
	}
	return false
}

func isTopTrack(tracks []models.TrackStat, track *models.Track) bool {
	title := utils.NormalizeName(track.Title)
	creator := utils.NormalizeName(track.Creator)
	for _, s := range tracks {
		if utils.NormalizeName(s.Title) == title && utils.NormalizeName(s.Creator) == creator {
			return true
		}
	}
	return false
}
