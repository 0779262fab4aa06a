package models

// Match tiers derived from the combined score by fixed thresholds.
const (
	TierHigh        = "high"        // score >= 0.80
	TierModerate    = "moderate"    // score >= 0.65
	TierExploratory = "exploratory" // everything else
)

// MediaInfo is the result of the external media lookup for a track.
type MediaInfo struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Thumbnail   string `json:"thumbnail,omitempty"`
	DurationSec int    `json:"duration_sec,omitempty"`
}

// Candidate is one recommended track with its computed scores. Exists only
// for the duration of one request.
type Candidate struct {
	Track       *Track     `json:"track"`
	Similarity  float64    `json:"similarity"`
	Boost       float64    `json:"boost"`
	Score       float64    `json:"score"`
	Tier        string     `json:"tier"`
	Rank        int        `json:"rank"`
	Media       *MediaInfo `json:"media,omitempty"`
	Explanation string     `json:"explanation,omitempty"`
}

// RecommendResponse is the response for a recommendation request.
type RecommendResponse struct {
	Recommendations []*Candidate `json:"recommendations"`
	HasMore         bool         `json:"has_more"`
	Offset          int          `json:"offset"`
	QueryTime       int64        `json:"query_time_ms"`
}

// UploadSummary reports the outcome of an interaction batch upload.
type UploadSummary struct {
	Accepted      int           `json:"accepted"`
	Skipped       int           `json:"skipped"`
	TracksCreated int           `json:"tracks_created"`
	TopCategories []string      `json:"top_categories"`
	TopCreators   []CreatorStat `json:"top_creators"`
	TopTracks     []TrackStat   `json:"top_tracks"`
}
