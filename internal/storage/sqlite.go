// Package storage provides the SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	"github.com/tonearm/tonearm/internal/models"
)

// SQLiteStorage implements Storage using SQLite. Vectors and profiles are
// stored as JSON columns; the catalog itself is relational.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS tracks (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		creator TEXT NOT NULL,
		collection TEXT,
		category TEXT,
		duration_sec INTEGER,
		year INTEGER,
		popularity REAL,
		features TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_tracks_category ON tracks(category);
	CREATE INDEX IF NOT EXISTS idx_tracks_name ON tracks(title, creator);

	CREATE TABLE IF NOT EXISTS track_embeddings (
		track_id TEXT PRIMARY KEY,
		vector TEXT NOT NULL,
		FOREIGN KEY (track_id) REFERENCES tracks(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS user_embeddings (
		user_id TEXT PRIMARY KEY,
		vector TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS behavioral_profiles (
		user_id TEXT PRIMARY KEY,
		profile TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS interactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		record TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_interactions_user ON interactions(user_id);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateTrack inserts a track.
func (s *SQLiteStorage) CreateTrack(ctx context.Context, track *models.Track) error {
	featuresJSON, err := json.Marshal(track.Features)
	if err != nil {
		return fmt.Errorf("failed to marshal features: %w", err)
	}
	track.CreatedAt = time.Now()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tracks (id, title, creator, collection, category, duration_sec, year, popularity, features, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		track.ID, track.Title, track.Creator, track.Collection, track.Category,
		track.DurationSec, track.Year, track.Popularity, string(featuresJSON), track.CreatedAt,
	)
	return err
}

const trackColumns = "id, title, creator, collection, category, duration_sec, year, popularity, features, created_at"

func scanTrack(row interface{ Scan(...any) error }) (*models.Track, error) {
	var track models.Track
	var featuresJSON string
	err := row.Scan(&track.ID, &track.Title, &track.Creator, &track.Collection, &track.Category,
		&track.DurationSec, &track.Year, &track.Popularity, &featuresJSON, &track.CreatedAt)
	if err != nil {
		return nil, err
	}
	if featuresJSON != "" {
		if err := json.Unmarshal([]byte(featuresJSON), &track.Features); err != nil {
			return nil, fmt.Errorf("failed to unmarshal features: %w", err)
		}
	}
	return &track, nil
}

// GetTrack returns a track by ID.
func (s *SQLiteStorage) GetTrack(ctx context.Context, id string) (*models.Track, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+trackColumns+` FROM tracks WHERE id = ?`, id)
	track, err := scanTrack(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("track %s: %w", id, ErrNotFound)
	}
	return track, err
}

// FindTrackByName returns the track matching title and creator
// case-insensitively, or (nil, nil) when none exists.
func (s *SQLiteStorage) FindTrackByName(ctx context.Context, title, creator string) (*models.Track, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+trackColumns+` FROM tracks WHERE LOWER(title) = ? AND LOWER(creator) = ? LIMIT 1`,
		strings.ToLower(strings.TrimSpace(title)), strings.ToLower(strings.TrimSpace(creator)))
	track, err := scanTrack(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return track, err
}

// ListTracks returns catalog tracks matching the filter.
func (s *SQLiteStorage) ListTracks(ctx context.Context, filter TrackFilter) ([]*models.Track, error) {
	builder := sq.Select(trackColumns).From("tracks")
	switch {
	case filter.Category != "":
		builder = builder.Where(sq.Eq{"LOWER(category)": strings.ToLower(filter.Category)})
	case len(filter.Categories) > 0:
		lowered := make([]string, len(filter.Categories))
		for i, c := range filter.Categories {
			lowered[i] = strings.ToLower(c)
		}
		builder = builder.Where(sq.Eq{"LOWER(category)": lowered})
	}
	if filter.OrderByPopularity {
		builder = builder.OrderBy("popularity DESC", "created_at ASC")
	} else {
		builder = builder.OrderBy("created_at ASC", "id ASC")
	}
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build track query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tracks []*models.Track
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}
	return tracks, rows.Err()
}

// popularityPlayScale is the non-skipped play count that saturates
// popularity at 1.0; likes count double.
const popularityPlayScale = 20.0

// RecomputePopularity refreshes every track's popularity from global
// engagement across all users' interaction logs.
func (s *SQLiteStorage) RecomputePopularity(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE tracks SET popularity = MIN(1.0, (
			SELECT COALESCE(SUM(
				CASE WHEN json_extract(record, '$.skipped') THEN 0.0 ELSE 1.0 END
				+ CASE WHEN json_extract(record, '$.liked') THEN 1.0 ELSE 0.0 END
			), 0.0) / ?
			FROM interactions
			WHERE json_extract(record, '$.track_id') = tracks.id
		))`, popularityPlayScale)
	return err
}

// PutTrackEmbedding upserts the embedding for one track.
func (s *SQLiteStorage) PutTrackEmbedding(ctx context.Context, trackID string, vector []float64) error {
	vecJSON, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("failed to marshal vector: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO track_embeddings (track_id, vector) VALUES (?, ?)
		 ON CONFLICT(track_id) DO UPDATE SET vector = excluded.vector`,
		trackID, string(vecJSON))
	return err
}

// GetTrackEmbeddings returns every stored track embedding.
func (s *SQLiteStorage) GetTrackEmbeddings(ctx context.Context) ([]models.TrackEmbedding, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT track_id, vector FROM track_embeddings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TrackEmbedding
	for rows.Next() {
		var emb models.TrackEmbedding
		var vecJSON string
		if err := rows.Scan(&emb.TrackID, &vecJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(vecJSON), &emb.Vector); err != nil {
			return nil, fmt.Errorf("failed to unmarshal vector for %s: %w", emb.TrackID, err)
		}
		out = append(out, emb)
	}
	return out, rows.Err()
}

// GetUserEmbedding returns a user's embedding, or (nil, nil) when absent.
func (s *SQLiteStorage) GetUserEmbedding(ctx context.Context, userID string) ([]float64, error) {
	var vecJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT vector FROM user_embeddings WHERE user_id = ?`, userID).Scan(&vecJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var vec []float64
	if err := json.Unmarshal([]byte(vecJSON), &vec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user vector: %w", err)
	}
	return vec, nil
}

// PutUserEmbedding upserts a user's embedding.
func (s *SQLiteStorage) PutUserEmbedding(ctx context.Context, userID string, vector []float64) error {
	vecJSON, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("failed to marshal vector: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO user_embeddings (user_id, vector, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET vector = excluded.vector, updated_at = excluded.updated_at`,
		userID, string(vecJSON), time.Now())
	return err
}

// GetProfile returns a user's behavioral profile, or (nil, nil) when absent.
func (s *SQLiteStorage) GetProfile(ctx context.Context, userID string) (*models.BehavioralProfile, error) {
	var profileJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT profile FROM behavioral_profiles WHERE user_id = ?`, userID).Scan(&profileJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var profile models.BehavioralProfile
	if err := json.Unmarshal([]byte(profileJSON), &profile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}
	return &profile, nil
}

// ReplaceProfile replaces a user's behavioral profile wholesale.
func (s *SQLiteStorage) ReplaceProfile(ctx context.Context, userID string, profile *models.BehavioralProfile) error {
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO behavioral_profiles (user_id, profile, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET profile = excluded.profile, updated_at = excluded.updated_at`,
		userID, string(profileJSON), time.Now())
	return err
}

// AppendInteractions appends a batch of interaction records in one transaction.
func (s *SQLiteStorage) AppendInteractions(ctx context.Context, userID string, records []models.Interaction) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO interactions (user_id, record, created_at) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, rec := range records {
		recJSON, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal interaction: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, userID, string(recJSON), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListInteractions returns a user's interaction log in insertion order.
func (s *SQLiteStorage) ListInteractions(ctx context.Context, userID string) ([]models.Interaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record FROM interactions WHERE user_id = ? ORDER BY id ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.Interaction
	for rows.Next() {
		var recJSON string
		if err := rows.Scan(&recJSON); err != nil {
			return nil, err
		}
		var rec models.Interaction
		if err := json.Unmarshal([]byte(recJSON), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal interaction: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CountTracks returns the total number of catalog tracks.
func (s *SQLiteStorage) CountTracks(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tracks`).Scan(&count)
	return count, err
}

// CountInteractions returns the total number of stored interaction records.
func (s *SQLiteStorage) CountInteractions(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM interactions`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
