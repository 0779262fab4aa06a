package behavior

import (
	"fmt"
	"math"
	"testing"

	"github.com/tonearm/tonearm/internal/models"
)

func rating(v float64) *float64 { return &v }

func TestBuildProfile_TimeBuckets(t *testing.T) {
	records := []models.Interaction{
		{Title: "A", Creator: "X", Category: "rock", Hour: 8, Completion: 0.9, Liked: true},
		{Title: "B", Creator: "X", Category: "jazz", Hour: 14, Completion: 0.8},
		{Title: "C", Creator: "Y", Category: "ambient", Hour: 23, Completion: 0.9},
	}
	p := BuildProfile("u1", records)

	if got := p.Bucket(models.BucketMorning).TopCategories; len(got) != 1 || got[0] != "rock" {
		t.Errorf("morning categories = %v", got)
	}
	if got := p.Bucket(models.BucketAfternoon).TopCategories; len(got) != 1 || got[0] != "jazz" {
		t.Errorf("afternoon categories = %v", got)
	}
	if got := p.Bucket(models.BucketNight).TopCategories; len(got) != 1 || got[0] != "ambient" {
		t.Errorf("night categories = %v", got)
	}
	if got := p.Bucket(models.BucketEvening).TopCategories; len(got) != 0 {
		t.Errorf("evening should be empty, got %v", got)
	}
}

func TestBuildProfile_SkipAndAbandonGate(t *testing.T) {
	records := []models.Interaction{
		{Title: "A", Creator: "X", Category: "rock", Hour: 9, Completion: 0.9, Skipped: true},
		{Title: "B", Creator: "X", Category: "pop", Hour: 9, Completion: 0.3},
	}
	p := BuildProfile("u1", records)

	if len(p.Bucket(models.BucketMorning).TopCategories) != 0 {
		t.Error("skipped and abandoned records must not contribute categories")
	}
	if len(p.CategoryWeights) != 0 {
		t.Errorf("category weights = %v", p.CategoryWeights)
	}
	// The skip still counts against the track.
	var found bool
	for _, stat := range p.TopTracks {
		if stat.Title == "A" {
			found = true
			if stat.SkippedCount != 1 || stat.PlayCount != 0 {
				t.Errorf("skip bookkeeping: %+v", stat)
			}
		}
	}
	if !found {
		t.Error("skipped track missing from aggregates")
	}
}

func TestBuildProfile_QualifyingGate(t *testing.T) {
	records := []models.Interaction{
		// Qualifies: completion > 0.7 and liked.
		{Title: "A", Creator: "X", Category: "rock", Hour: 9, Completion: 0.8, Liked: true},
		// Qualifies: added to collection.
		{Title: "B", Creator: "X", Category: "rock", Hour: 9, Completion: 0.6, Added: true},
		// Qualifies: rating >= 4.
		{Title: "C", Creator: "X", Category: "rock", Hour: 9, Completion: 0.6, Rating: rating(4.5)},
		// Contributes to categories but does not qualify.
		{Title: "D", Creator: "X", Category: "rock", Hour: 9, Completion: 0.6},
	}
	p := BuildProfile("u1", records)

	tracks := p.Bucket(models.BucketMorning).QualifyingTracks
	if len(tracks) != 3 {
		t.Fatalf("qualifying tracks = %d, want 3", len(tracks))
	}
	// Sorted by rating descending: C (4.5) first.
	if tracks[0].Title != "C" {
		t.Errorf("first qualifying track = %s", tracks[0].Title)
	}
}

func TestBuildProfile_CategoryWeightFormula(t *testing.T) {
	records := []models.Interaction{
		{Title: "A", Creator: "X", Category: "rock", Hour: 9, Completion: 1.0, Liked: true, Rating: rating(5)},
	}
	p := BuildProfile("u1", records)

	// 0.4*(5/5) + 0.4*1.0 + 0.2*1 = 1.0
	if w := p.CategoryWeights["rock"]; math.Abs(w-1.0) > 1e-12 {
		t.Errorf("weight = %f, want 1.0", w)
	}
}

func TestBuildProfile_MoodsAndActivities(t *testing.T) {
	records := []models.Interaction{
		{Title: "A", Creator: "X", Category: "ambient", Mood: "calm", Activity: "study", Hour: 9, Completion: 0.9, Liked: true},
		{Title: "B", Creator: "X", Category: "ambient", Mood: "calm", Hour: 9, Completion: 0.8},
	}
	p := BuildProfile("u1", records)

	calm, ok := p.Moods["calm"]
	if !ok {
		t.Fatal("calm mood missing")
	}
	if len(calm.TopCategories) != 1 || calm.TopCategories[0] != "ambient" {
		t.Errorf("calm categories = %v", calm.TopCategories)
	}
	if len(calm.QualifyingTracks) != 1 || calm.QualifyingTracks[0].Title != "A" {
		t.Errorf("calm qualifying tracks = %v", calm.QualifyingTracks)
	}
	if _, ok := p.Activities["study"]; !ok {
		t.Error("study activity missing")
	}
}

func TestBuildProfile_WeekendWeekdaySplit(t *testing.T) {
	records := []models.Interaction{
		{Title: "A", Creator: "X", Category: "house", Hour: 20, Weekend: true, Completion: 0.9},
		{Title: "B", Creator: "X", Category: "jazz", Hour: 20, Weekend: false, Completion: 0.9},
	}
	p := BuildProfile("u1", records)

	if len(p.WeekendCategories) != 1 || p.WeekendCategories[0] != "house" {
		t.Errorf("weekend = %v", p.WeekendCategories)
	}
	if len(p.WeekdayCategories) != 1 || p.WeekdayCategories[0] != "jazz" {
		t.Errorf("weekday = %v", p.WeekdayCategories)
	}
}

func TestBuildProfile_TopCreatorsTruncation(t *testing.T) {
	var records []models.Interaction
	for i := 0; i < 25; i++ {
		records = append(records, models.Interaction{
			Title: fmt.Sprintf("T%d", i), Creator: fmt.Sprintf("C%02d", i),
			Category: "rock", Hour: 9, Completion: 0.9,
		})
	}
	// Make one creator dominant.
	for i := 0; i < 3; i++ {
		records = append(records, models.Interaction{
			Title: fmt.Sprintf("T%d", i), Creator: "C00", Category: "rock", Hour: 9, Completion: 0.9,
		})
	}
	p := BuildProfile("u1", records)

	if len(p.TopCreators) != 20 {
		t.Errorf("top creators = %d, want 20", len(p.TopCreators))
	}
	if p.TopCreators[0].Creator != "C00" || p.TopCreators[0].Count != 4 {
		t.Errorf("top creator = %+v", p.TopCreators[0])
	}
}

func TestBuildProfile_TopTrackScore(t *testing.T) {
	// 10 clean plays, all liked, rating 5, full completion: maximal score
	// before skip penalty: 0.35 + 0.15 + 0.10 + 0.15 + 0 = 0.75 (no adds).
	var records []models.Interaction
	for i := 0; i < 10; i++ {
		records = append(records, models.Interaction{
			Title: "Hit", Creator: "X", Category: "rock", Hour: 9,
			Completion: 1.0, Liked: true, Rating: rating(5),
		})
	}
	records = append(records, models.Interaction{
		Title: "Meh", Creator: "X", Category: "rock", Hour: 9, Completion: 0.9,
	})
	p := BuildProfile("u1", records)

	if len(p.TopTracks) != 2 {
		t.Fatalf("top tracks = %d", len(p.TopTracks))
	}
	hit := p.TopTracks[0]
	if hit.Title != "Hit" {
		t.Fatalf("first track = %s", hit.Title)
	}
	if math.Abs(hit.Score-0.75) > 1e-12 {
		t.Errorf("score = %f, want 0.75", hit.Score)
	}
	if hit.PlayCount != 10 || hit.LikedCount != 10 {
		t.Errorf("aggregates: %+v", hit)
	}
}

func TestBuildProfile_SeenIsSticky(t *testing.T) {
	records := []models.Interaction{
		{Title: "A", Creator: "X", Category: "rock", Hour: 9, Completion: 0.9, Seen: true},
		{Title: "A", Creator: "X", Category: "rock", Hour: 9, Completion: 0.9},
	}
	p := BuildProfile("u1", records)
	if !p.TopTracks[0].Seen {
		t.Error("seen flag must stay true once set")
	}
}

func TestBuildProfile_Empty(t *testing.T) {
	p := BuildProfile("u1", nil)
	if p.UserID != "u1" {
		t.Errorf("user id = %s", p.UserID)
	}
	if len(p.TopTracks) != 0 || len(p.TopCreators) != 0 {
		t.Error("empty log yields empty lists")
	}
	if len(p.TimeBuckets) != 4 {
		t.Errorf("all four buckets present, got %d", len(p.TimeBuckets))
	}
}
