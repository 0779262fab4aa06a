package models

import "fmt"

// RecommendRequest is a recommendation query with optional listening context.
type RecommendRequest struct {
	UserID    string `json:"user_id"`
	Offset    int    `json:"offset,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	TimeOfDay string `json:"time_of_day,omitempty"` // morning|afternoon|evening|night
	Mood      string `json:"mood,omitempty"`
	Activity  string `json:"activity,omitempty"`
}

// Validate ensures the request has valid fields and sets defaults.
// Returns an error when the user ID is missing or offset is negative;
// otherwise normalizes the limit against the configured defaults.
// Non-positive defaultLimit/maxLimit fall back to 10 and 100.
func (r *RecommendRequest) Validate(defaultLimit, maxLimit int) error {
	if defaultLimit <= 0 {
		defaultLimit = 10
	}
	if maxLimit <= 0 {
		maxLimit = 100
	}
	if r.UserID == "" {
		return fmt.Errorf("user_id cannot be empty")
	}
	if r.Offset < 0 {
		return fmt.Errorf("offset cannot be negative")
	}
	if r.Limit <= 0 {
		r.Limit = defaultLimit
	}
	if r.Limit > maxLimit {
		r.Limit = maxLimit
	}
	switch r.TimeOfDay {
	case "", BucketMorning, BucketAfternoon, BucketEvening, BucketNight:
	default:
		return fmt.Errorf("unknown time_of_day %q", r.TimeOfDay)
	}
	return nil
}
