package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tonearm/tonearm/internal/models"
	"github.com/tonearm/tonearm/internal/scoring"
	"github.com/tonearm/tonearm/internal/storage"
)

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req models.RecommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.TimeOfDay = strings.ToLower(strings.TrimSpace(req.TimeOfDay))
	if err := req.Validate(s.config.Recommend.DefaultLimit, s.config.Recommend.MaxLimit); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("recommendation request",
		zap.String("user_id", req.UserID),
		zap.Int("offset", req.Offset),
		zap.Int("limit", req.Limit),
		zap.String("time_of_day", req.TimeOfDay))

	resp, err := s.engine.Recommend(r.Context(), &req)
	if err != nil {
		s.logger.Error("recommendation failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// handleRecommendEnriched serves the fixed-size page paired with external
// media lookup and explanations.
func (s *Server) handleRecommendEnriched(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := models.RecommendRequest{
		UserID:    q.Get("userId"),
		Limit:     s.config.Recommend.EnrichedPageSize,
		TimeOfDay: strings.ToLower(strings.TrimSpace(q.Get("timeOfDay"))),
		Mood:      q.Get("mood"),
		Activity:  q.Get("activity"),
	}
	if raw := q.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid offset")
			return
		}
		req.Offset = offset
	}
	if err := req.Validate(s.config.Recommend.DefaultLimit, s.config.Recommend.MaxLimit); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	// Validate may relax the limit; the enriched page size is fixed.
	req.Limit = s.config.Recommend.EnrichedPageSize

	resp, err := s.engine.Recommend(r.Context(), &req)
	if err != nil {
		s.logger.Error("enriched recommendation failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if s.enricher != nil {
		s.enricher.EnrichPage(r.Context(), resp.Recommendations, scoring.Context{
			TimeOfDay: req.TimeOfDay,
			Mood:      req.Mood,
			Activity:  req.Activity,
		})
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUploadInteractions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	records, undecodable, err := decodeInteractions(body)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("interaction upload request",
		zap.String("user_id", userID),
		zap.Int("records", len(records)),
		zap.Int("undecodable", undecodable))

	summary, err := s.ingestor.Upload(r.Context(), userID, records)
	if err != nil {
		s.logger.Error("interaction upload failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	summary.Skipped += undecodable
	s.respondJSON(w, http.StatusCreated, summary)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	profile, err := s.storage.GetProfile(r.Context(), userID)
	if err != nil {
		s.logger.Error("get profile failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if profile == nil {
		s.respondError(w, http.StatusNotFound, "profile not found")
		return
	}
	s.respondJSON(w, http.StatusOK, profile)
}

func (s *Server) handleGetTrack(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	track, err := s.storage.GetTrack(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "track not found")
		return
	}
	if err != nil {
		s.logger.Error("get track failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, track)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		s.respondError(w, http.StatusNotImplemented, "search not enabled")
		return
	}
	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		s.respondError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	hits, err := s.catalog.Search(r.Context(), query, limit)
	if err != nil {
		s.logger.Error("catalog search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	tracks := make([]*models.Track, 0, len(hits))
	for _, hit := range hits {
		track, err := s.storage.GetTrack(r.Context(), hit.TrackID)
		if err != nil {
			continue
		}
		tracks = append(tracks, track)
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"tracks": tracks})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	trackCount, err := s.storage.CountTracks(ctx)
	if err != nil {
		s.logger.Error("status: count tracks failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	interactionCount, err := s.storage.CountInteractions(ctx)
	if err != nil {
		s.logger.Error("status: count interactions failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"tracks":            trackCount,
		"interactions":      interactionCount,
		"vector_index_size": s.index.Size(),
		"config": map[string]interface{}{
			"embedding_dimensions": s.index.Dimensions(),
			"similarity_weight":    s.config.Recommend.SimilarityWeight,
			"boost_weight":         s.config.Recommend.BoostWeight,
			"database_path":        s.config.Storage.DatabasePath,
			"catalog_index_path":   s.config.Storage.CatalogIndexPath,
		},
	}
	if s.catalog != nil {
		if n, err := s.catalog.DocCount(); err == nil {
			resp["catalog_index_size"] = n
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
