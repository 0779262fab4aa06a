// Package cli provides CLI utilities for Tonearm.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/tonearm/tonearm/internal/models"
	"github.com/tonearm/tonearm/pkg/utils"
)

// OutputFormat is the format for recommendation output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// WriteRecommendations writes a recommendation page to w in the given
// format. Use OutputJSON for parseable output consumable by other apps.
func WriteRecommendations(w io.Writer, response *models.RecommendResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	default:
		writeRecommendationsText(w, response)
		return nil
	}
}

func writeRecommendationsText(w io.Writer, response *models.RecommendResponse) {
	fmt.Fprintf(w, "\n%d recommendations in %dms (offset %d, more: %t)\n\n",
		len(response.Recommendations), response.QueryTime, response.Offset, response.HasMore)
	for _, cand := range response.Recommendations {
		writeOneCandidate(w, cand)
	}
}

func writeOneCandidate(w io.Writer, cand *models.Candidate) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "Rank: %d | Score: %.4f (Similarity: %.4f, Boost: %.4f) | %s\n",
		cand.Rank, cand.Score, cand.Similarity, cand.Boost, cand.Tier)
	fmt.Fprintf(w, "%s - %s", cand.Track.Title, cand.Track.Creator)
	if cand.Track.Category != "" {
		fmt.Fprintf(w, " [%s]", cand.Track.Category)
	}
	fmt.Fprintln(w)
	if cand.Media != nil && cand.Media.URL != "" {
		fmt.Fprintf(w, "Media: %s\n", cand.Media.URL)
	}
	if cand.Explanation != "" {
		fmt.Fprintf(w, "\n%s\n", utils.Truncate(cand.Explanation, 200))
	}
	fmt.Fprintln(w)
}

// WriteUploadSummary writes an upload summary to w in the given format.
func WriteUploadSummary(w io.Writer, summary *models.UploadSummary, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	default:
		fmt.Fprintf(w, "Accepted %d records (%d skipped), created %d tracks\n",
			summary.Accepted, summary.Skipped, summary.TracksCreated)
		if len(summary.TopCategories) > 0 {
			fmt.Fprintf(w, "Top categories: %v\n", summary.TopCategories)
		}
		for _, c := range summary.TopCreators {
			fmt.Fprintf(w, "  creator %s (%d plays)\n", c.Creator, c.Count)
		}
		for _, tr := range summary.TopTracks {
			fmt.Fprintf(w, "  track %s - %s (score %.2f)\n", tr.Title, tr.Creator, tr.Score)
		}
		return nil
	}
}
