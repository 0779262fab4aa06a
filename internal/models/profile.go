package models

// Time-of-day bucket names used throughout the profile.
const (
	BucketMorning   = "morning"   // [6,12)
	BucketAfternoon = "afternoon" // [12,17)
	BucketEvening   = "evening"   // [17,22)
	BucketNight     = "night"     // everything else
)

// BucketForHour maps an hour of day (0-23) to its time bucket name.
func BucketForHour(hour int) string {
	switch {
	case hour >= 6 && hour < 12:
		return BucketMorning
	case hour >= 12 && hour < 17:
		return BucketAfternoon
	case hour >= 17 && hour < 22:
		return BucketEvening
	default:
		return BucketNight
	}
}

// TrackRef identifies a track inside a profile by title and creator.
type TrackRef struct {
	TrackID string  `json:"track_id,omitempty"`
	Title   string  `json:"title"`
	Creator string  `json:"creator"`
	Rating  float64 `json:"rating,omitempty"`
}

// BucketPreference holds the ranked preferences for one time bucket,
// mood, or activity.
type BucketPreference struct {
	TopCategories    []string   `json:"top_categories"`    // at most 5, by frequency
	QualifyingTracks []TrackRef `json:"qualifying_tracks"` // at most 10, by rating desc
}

// CreatorStat is one entry in the top-creator list.
type CreatorStat struct {
	Creator string `json:"creator"`
	Count   int    `json:"count"`
}

// TrackStat aggregates engagement for one track across the interaction log.
type TrackStat struct {
	TrackID       string  `json:"track_id,omitempty"`
	Title         string  `json:"title"`
	Creator       string  `json:"creator"`
	Category      string  `json:"category"`
	PlayCount     int     `json:"play_count"` // excludes skips
	AvgRating     float64 `json:"avg_rating"`
	AvgCompletion float64 `json:"avg_completion"`
	LikedCount    int     `json:"liked_count"`
	AddedCount    int     `json:"added_count"`
	SkippedCount  int     `json:"skipped_count"`
	Seen          bool    `json:"seen"`
	Score         float64 `json:"score"` // weighted engagement score
}

// BehavioralProfile is the structured preference profile for one user,
// rebuilt wholesale (replace, not merge) on each interaction upload.
type BehavioralProfile struct {
	UserID            string                      `json:"user_id"`
	TimeBuckets       map[string]BucketPreference `json:"time_buckets"`
	CategoryWeights   map[string]float64          `json:"category_weights"`
	Moods             map[string]BucketPreference `json:"moods"`
	Activities        map[string]BucketPreference `json:"activities"`
	TopCreators       []CreatorStat               `json:"top_creators"` // at most 20
	TopTracks         []TrackStat                 `json:"top_tracks"`   // at most 30
	WeekendCategories []string                    `json:"weekend_categories"`
	WeekdayCategories []string                    `json:"weekday_categories"`
}

// MaxCategoryWeight returns the largest category weight, or 0 for an empty map.
func (p *BehavioralProfile) MaxCategoryWeight() float64 {
	var max float64
	for _, w := range p.CategoryWeights {
		if w > max {
			max = w
		}
	}
	return max
}

// Bucket returns the preference for the named time bucket, or an empty one.
func (p *BehavioralProfile) Bucket(name string) BucketPreference {
	if p.TimeBuckets == nil {
		return BucketPreference{}
	}
	return p.TimeBuckets[name]
}
