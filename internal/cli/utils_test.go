package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/tonearm/tonearm/internal/models"
)

func sampleResponse() *models.RecommendResponse {
	return &models.RecommendResponse{
		QueryTime: 12,
		Offset:    0,
		HasMore:   true,
		Recommendations: []*models.Candidate{
			{
				Rank:       1,
				Score:      0.91,
				Similarity: 0.95,
				Boost:      0.8,
				Tier:       models.TierHigh,
				Track: &models.Track{
					ID: "t1", Title: "Windowlicker", Creator: "Aphex Twin", Category: "electronic",
				},
				Explanation: "A strong match for your electronic rotation.",
				Media:       &models.MediaInfo{ID: "m1", URL: "https://example.com/m1"},
			},
		},
	}
}

func TestWriteRecommendations_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRecommendations(&buf, sampleResponse(), OutputJSON); err != nil {
		t.Fatalf("WriteRecommendations(json): %v", err)
	}
	var decoded models.RecommendResponse
	if err := json.NewDecoder(strings.NewReader(buf.String())).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if len(decoded.Recommendations) != 1 || decoded.Recommendations[0].Track.ID != "t1" {
		t.Errorf("decoded recommendations: %+v", decoded.Recommendations)
	}
	if !decoded.HasMore {
		t.Error("has_more lost in round trip")
	}
}

func TestWriteRecommendations_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRecommendations(&buf, sampleResponse(), OutputText); err != nil {
		t.Fatalf("WriteRecommendations(text): %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Windowlicker", "Aphex Twin", "Rank: 1", "high", "https://example.com/m1"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteUploadSummary_Text(t *testing.T) {
	summary := &models.UploadSummary{
		Accepted:      3,
		Skipped:       1,
		TracksCreated: 2,
		TopCategories: []string{"electronic", "rock"},
		TopCreators:   []models.CreatorStat{{Creator: "Aphex Twin", Count: 2}},
	}
	var buf bytes.Buffer
	if err := WriteUploadSummary(&buf, summary, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "Accepted 3 records") || !strings.Contains(out, "Aphex Twin") {
		t.Errorf("summary output:\n%s", out)
	}
}

func TestWriteUploadSummary_JSON(t *testing.T) {
	summary := &models.UploadSummary{Accepted: 1}
	var buf bytes.Buffer
	if err := WriteUploadSummary(&buf, summary, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.UploadSummary
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded.Accepted != 1 {
		t.Errorf("accepted = %d", decoded.Accepted)
	}
}
