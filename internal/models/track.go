// Package models defines core data structures for tracks, interactions,
// behavioral profiles, and recommendation requests/responses.
package models

import "time"

// AudioFeatures is the small named feature bag attached to a track.
// Energy, Danceability, and Valence are in [0,1]; Tempo is in BPM.
type AudioFeatures struct {
	Tempo        float64 `json:"tempo"`
	Energy       float64 `json:"energy"`
	Danceability float64 `json:"danceability"`
	Valence      float64 `json:"valence"`
}

// Track represents one catalog item. Tracks are immutable once created
// except for popularity recomputation on new interaction data.
type Track struct {
	ID          string        `json:"id" db:"id"`
	Title       string        `json:"title" db:"title"`
	Creator     string        `json:"creator" db:"creator"`
	Collection  string        `json:"collection,omitempty" db:"collection"`
	Category    string        `json:"category" db:"category"`
	DurationSec int           `json:"duration_sec,omitempty" db:"duration_sec"`
	Year        int           `json:"year,omitempty" db:"year"`
	Popularity  float64       `json:"popularity" db:"popularity"`
	Features    AudioFeatures `json:"features"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
}

// TrackEmbedding pairs a track ID with its encoded vector. Derived data:
// regenerated deterministically whenever the track or the category map changes.
type TrackEmbedding struct {
	TrackID string    `json:"track_id"`
	Vector  []float64 `json:"vector"`
}
