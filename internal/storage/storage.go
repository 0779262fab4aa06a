// Package storage defines persistence for tracks, embeddings, profiles,
// and interaction logs.
package storage

import (
	"context"
	"errors"

	"github.com/tonearm/tonearm/internal/models"
)

// ErrNotFound marks a lookup for an entity that does not exist, as opposed
// to a store failure. Callers check it with errors.Is.
var ErrNotFound = errors.New("not found")

// TrackFilter narrows a catalog scan. Zero value means "everything".
type TrackFilter struct {
	// Category restricts to one category (case-insensitive).
	Category string
	// Categories restricts to any of the given categories. Ignored when
	// Category is set.
	Categories []string
	// OrderByPopularity sorts by popularity descending instead of
	// insertion order.
	OrderByPopularity bool
	// Limit caps the number of rows; 0 means no cap.
	Limit int
}

// Storage defines track, embedding, profile, and interaction persistence.
// Absent derived data (user embedding, profile) is reported as (nil, nil),
// not an error: missing data triggers fallbacks upstream, while a real
// store failure is the only error class that propagates to the caller.
type Storage interface {
	// Track operations
	CreateTrack(ctx context.Context, track *models.Track) error
	GetTrack(ctx context.Context, id string) (*models.Track, error)
	FindTrackByName(ctx context.Context, title, creator string) (*models.Track, error)
	ListTracks(ctx context.Context, filter TrackFilter) ([]*models.Track, error)
	RecomputePopularity(ctx context.Context) error

	// Embedding operations
	PutTrackEmbedding(ctx context.Context, trackID string, vector []float64) error
	GetTrackEmbeddings(ctx context.Context) ([]models.TrackEmbedding, error)
	GetUserEmbedding(ctx context.Context, userID string) ([]float64, error)
	PutUserEmbedding(ctx context.Context, userID string, vector []float64) error

	// Profile operations
	GetProfile(ctx context.Context, userID string) (*models.BehavioralProfile, error)
	ReplaceProfile(ctx context.Context, userID string, profile *models.BehavioralProfile) error

	// Interaction log
	AppendInteractions(ctx context.Context, userID string, records []models.Interaction) error
	ListInteractions(ctx context.Context, userID string) ([]models.Interaction, error)

	// Stats
	CountTracks(ctx context.Context) (int64, error)
	CountInteractions(ctx context.Context) (int64, error)

	Close() error
}
