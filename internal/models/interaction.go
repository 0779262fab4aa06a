package models

// Interaction is one observed listening event for a user. Immutable and
// append-only; sourced from an uploaded batch with field names already
// normalized to the canonical ones below.
type Interaction struct {
	TrackID    string   `json:"track_id,omitempty"`
	Title      string   `json:"title"`
	Creator    string   `json:"creator"`
	Category   string   `json:"category"`
	Mood       string   `json:"mood,omitempty"`
	Activity   string   `json:"activity,omitempty"`
	Hour       int      `json:"hour"`
	Weekend    bool     `json:"weekend"`
	Rating     *float64 `json:"rating,omitempty"` // 0-5, nil when absent
	Completion float64  `json:"completion"`       // 0-1
	Liked      bool     `json:"liked"`
	Skipped    bool     `json:"skipped"`
	Added      bool     `json:"added"` // added to collection
	Seen       bool     `json:"seen"`  // previously seen
}

// RatingOrDefault returns the rating, or def when no rating was given.
func (i *Interaction) RatingOrDefault(def float64) float64 {
	if i.Rating == nil {
		return def
	}
	return *i.Rating
}

// HasRating reports whether the record carries an explicit rating.
func (i *Interaction) HasRating() bool {
	return i.Rating != nil
}
