// Package behavior builds a user's behavioral preference profile from an
// interaction log. A build is a full replace of the stored profile: each
// upload discards what was learned before.
package behavior

import (
	"sort"
	"strings"

	"github.com/tonearm/tonearm/internal/models"
	"github.com/tonearm/tonearm/pkg/utils"
)

// Truncation limits for the ranked lists inside a profile.
const (
	maxBucketCategories = 5
	maxBucketTracks     = 10
	maxCreators         = 20
	maxTopTracks        = 30
)

// trackAgg accumulates per-track engagement across the log.
type trackAgg struct {
	ref           models.TrackRef
	category      string
	playCount     int
	ratingSum     float64
	ratedCount    int
	completionSum float64
	likedCount    int
	addedCount    int
	skippedCount  int
	seen          bool
	order         int
}

// prefAgg accumulates category counts and qualifying tracks for one time
// bucket, mood, or activity.
type prefAgg struct {
	categoryCounts map[string]int
	tracks         []models.TrackRef
	trackSeen      map[string]bool
}

func newPrefAgg() *prefAgg {
	return &prefAgg{
		categoryCounts: make(map[string]int),
		trackSeen:      make(map[string]bool),
	}
}

func (p *prefAgg) observe(category string, qualifying bool, ref models.TrackRef) {
	if category != "" {
		p.categoryCounts[category]++
	}
	if qualifying {
		key := trackKey(ref.Title, ref.Creator)
		if !p.trackSeen[key] {
			p.trackSeen[key] = true
			p.tracks = append(p.tracks, ref)
		}
	}
}

func (p *prefAgg) preference() models.BucketPreference {
	tracks := make([]models.TrackRef, len(p.tracks))
	copy(tracks, p.tracks)
	sort.SliceStable(tracks, func(i, j int) bool { return tracks[i].Rating > tracks[j].Rating })
	if len(tracks) > maxBucketTracks {
		tracks = tracks[:maxBucketTracks]
	}
	return models.BucketPreference{
		TopCategories:    topCategories(p.categoryCounts, maxBucketCategories),
		QualifyingTracks: tracks,
	}
}

// BuildProfile extracts a behavioral profile from one user's interaction
// sequence. Records that are skipped or abandoned before the half-way
// point do not contribute to the preference aggregates, but their skip
// still counts against the track.
func BuildProfile(userID string, records []models.Interaction) *models.BehavioralProfile {
	buckets := map[string]*prefAgg{
		models.BucketMorning:   newPrefAgg(),
		models.BucketAfternoon: newPrefAgg(),
		models.BucketEvening:   newPrefAgg(),
		models.BucketNight:     newPrefAgg(),
	}
	moods := make(map[string]*prefAgg)
	activities := make(map[string]*prefAgg)
	categoryWeights := make(map[string]float64)
	creatorCounts := make(map[string]int)
	weekendCounts := make(map[string]int)
	weekdayCounts := make(map[string]int)
	tracks := make(map[string]*trackAgg)

	for _, rec := range records {
		agg := trackAggFor(tracks, &rec)
		if rec.Skipped {
			agg.skippedCount++
		} else {
			agg.playCount++
			if rec.HasRating() {
				agg.ratingSum += *rec.Rating
				agg.ratedCount++
			}
			agg.completionSum += rec.Completion
		}
		if rec.Liked {
			agg.likedCount++
		}
		if rec.Added {
			agg.addedCount++
		}
		if rec.Seen {
			agg.seen = true
		}

		// Skips and early abandons only count toward the bookkeeping above.
		if rec.Skipped || rec.Completion < 0.5 {
			continue
		}

		qualifying := isQualifying(&rec)
		ref := models.TrackRef{
			TrackID: rec.TrackID,
			Title:   rec.Title,
			Creator: rec.Creator,
			Rating:  rec.RatingOrDefault(0),
		}

		buckets[models.BucketForHour(rec.Hour)].observe(rec.Category, qualifying, ref)
		if rec.Mood != "" {
			observeNamed(moods, rec.Mood, rec.Category, qualifying, ref)
		}
		if rec.Activity != "" {
			observeNamed(activities, rec.Activity, rec.Category, qualifying, ref)
		}

		if rec.Category != "" {
			categoryWeights[rec.Category] += engagementWeight(&rec)
			if rec.Weekend {
				weekendCounts[rec.Category]++
			} else {
				weekdayCounts[rec.Category]++
			}
		}
		if rec.Creator != "" {
			creatorCounts[rec.Creator]++
		}
	}

	profile := &models.BehavioralProfile{
		UserID:            userID,
		TimeBuckets:       make(map[string]models.BucketPreference, len(buckets)),
		CategoryWeights:   categoryWeights,
		Moods:             make(map[string]models.BucketPreference, len(moods)),
		Activities:        make(map[string]models.BucketPreference, len(activities)),
		TopCreators:       topCreators(creatorCounts),
		TopTracks:         topTracks(tracks),
		WeekendCategories: topCategories(weekendCounts, maxBucketCategories),
		WeekdayCategories: topCategories(weekdayCounts, maxBucketCategories),
	}
	for name, agg := range buckets {
		profile.TimeBuckets[name] = agg.preference()
	}
	for name, agg := range moods {
		profile.Moods[name] = agg.preference()
	}
	for name, agg := range activities {
		profile.Activities[name] = agg.preference()
	}
	return profile
}

// isQualifying applies the stronger engagement gate for the qualifying
// track sub-lists: near-complete liked plays, collection adds, or a
// rating of 4 and above.
func isQualifying(rec *models.Interaction) bool {
	if rec.Completion > 0.7 && rec.Liked {
		return true
	}
	if rec.Added {
		return true
	}
	return rec.HasRating() && *rec.Rating >= 4.0
}

// engagementWeight scores one contributing record for the overall
// category-weight map.
func engagementWeight(rec *models.Interaction) float64 {
	liked := 0.0
	if rec.Liked {
		liked = 1.0
	}
	return 0.4*(rec.RatingOrDefault(0)/5.0) + 0.4*rec.Completion + 0.2*liked
}

func observeNamed(set map[string]*prefAgg, name, category string, qualifying bool, ref models.TrackRef) {
	agg, ok := set[name]
	if !ok {
		agg = newPrefAgg()
		set[name] = agg
	}
	agg.observe(category, qualifying, ref)
}

func trackAggFor(tracks map[string]*trackAgg, rec *models.Interaction) *trackAgg {
	key := trackKey(rec.Title, rec.Creator)
	agg, ok := tracks[key]
	if !ok {
		agg = &trackAgg{
			ref:      models.TrackRef{TrackID: rec.TrackID, Title: rec.Title, Creator: rec.Creator},
			category: rec.Category,
			order:    len(tracks),
		}
		tracks[key] = agg
	}
	if agg.ref.TrackID == "" && rec.TrackID != "" {
		agg.ref.TrackID = rec.TrackID
	}
	return agg
}

func trackKey(title, creator string) string {
	return utils.NormalizeName(title) + "|" + utils.NormalizeName(creator)
}

// topCategories ranks categories by count descending, ties broken by name
// for determinism, truncated to n.
func topCategories(counts map[string]int, n int) []string {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return strings.Compare(names[i], names[j]) < 0
	})
	if len(names) > n {
		names = names[:n]
	}
	return names
}

func topCreators(counts map[string]int) []models.CreatorStat {
	stats := make([]models.CreatorStat, 0, len(counts))
	for name, count := range counts {
		stats = append(stats, models.CreatorStat{Creator: name, Count: count})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Creator < stats[j].Creator
	})
	if len(stats) > maxCreators {
		stats = stats[:maxCreators]
	}
	return stats
}

// topTracks computes the weighted engagement score per track and returns
// the top entries sorted by score, ties broken by play count then average
// rating.
func topTracks(tracks map[string]*trackAgg) []models.TrackStat {
	stats := make([]models.TrackStat, 0, len(tracks))
	order := make(map[string]int, len(tracks))
	for _, agg := range tracks {
		stat := agg.stat()
		order[statKey(&stat)] = agg.order
		stats = append(stats, stat)
	}
	sort.SliceStable(stats, func(i, j int) bool {
		if stats[i].Score != stats[j].Score {
			return stats[i].Score > stats[j].Score
		}
		if stats[i].PlayCount != stats[j].PlayCount {
			return stats[i].PlayCount > stats[j].PlayCount
		}
		if stats[i].AvgRating != stats[j].AvgRating {
			return stats[i].AvgRating > stats[j].AvgRating
		}
		return order[statKey(&stats[i])] < order[statKey(&stats[j])]
	})
	if len(stats) > maxTopTracks {
		stats = stats[:maxTopTracks]
	}
	return stats
}

func statKey(s *models.TrackStat) string {
	return trackKey(s.Title, s.Creator)
}

func (a *trackAgg) stat() models.TrackStat {
	count := float64(a.playCount)
	avgRating := utils.SafeRatio(a.ratingSum, float64(a.ratedCount))
	avgCompletion := utils.SafeRatio(a.completionSum, count)

	frequency := count / 10.0
	if frequency > 1 {
		frequency = 1
	}
	score := 0.35*frequency +
		0.15*(avgRating/5.0) +
		0.10*avgCompletion +
		0.15*utils.SafeRatio(float64(a.likedCount), count) +
		0.10*utils.SafeRatio(float64(a.addedCount), count) -
		0.20*utils.SafeRatio(float64(a.skippedCount), count+float64(a.skippedCount))

	return models.TrackStat{
		TrackID:       a.ref.TrackID,
		Title:         a.ref.Title,
		Creator:       a.ref.Creator,
		Category:      a.category,
		PlayCount:     a.playCount,
		AvgRating:     avgRating,
		AvgCompletion: avgCompletion,
		LikedCount:    a.likedCount,
		AddedCount:    a.addedCount,
		SkippedCount:  a.skippedCount,
		Seen:          a.seen,
		Score:         score,
	}
}
