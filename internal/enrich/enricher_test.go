package enrich

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tonearm/tonearm/internal/models"
	"github.com/tonearm/tonearm/internal/scoring"
)

type stubLookup struct {
	calls int64
	info  *models.MediaInfo
	err   error
	delay time.Duration
}

func (s *stubLookup) Lookup(ctx context.Context, title, creator string) (*models.MediaInfo, error) {
	atomic.AddInt64(&s.calls, 1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.info, s.err
}

type stubExplainer struct{}

func (stubExplainer) Explain(ctx context.Context, track *models.Track, tier string, boostCtx scoring.Context) string {
	return "because " + track.Title
}

func makePage(n int) []*models.Candidate {
	page := make([]*models.Candidate, n)
	for i := range page {
		page[i] = &models.Candidate{
			Track: &models.Track{ID: string(rune('a' + i)), Title: "T", Creator: "C"},
			Tier:  models.TierModerate,
		}
	}
	return page
}

func TestEnricher_FillsMediaAndExplanation(t *testing.T) {
	lookup := &stubLookup{info: &models.MediaInfo{ID: "m1", URL: "https://example.com/m1"}}
	e := NewEnricher(lookup, stubExplainer{}, time.Second, nil)

	page := makePage(4)
	e.EnrichPage(context.Background(), page, scoring.Context{})

	if got := atomic.LoadInt64(&lookup.calls); got != 4 {
		t.Errorf("lookup called %d times, want 4", got)
	}
	for i, cand := range page {
		if cand.Media == nil || cand.Media.ID != "m1" {
			t.Errorf("candidate %d missing media: %+v", i, cand.Media)
		}
		if cand.Explanation == "" {
			t.Errorf("candidate %d missing explanation", i)
		}
	}
}

func TestEnricher_LookupFailureDegradesOneCandidate(t *testing.T) {
	lookup := &stubLookup{err: errors.New("collaborator down")}
	e := NewEnricher(lookup, stubExplainer{}, time.Second, nil)

	page := makePage(2)
	e.EnrichPage(context.Background(), page, scoring.Context{})

	for i, cand := range page {
		if cand.Media != nil {
			t.Errorf("candidate %d should have nil media on failure", i)
		}
		if cand.Explanation == "" {
			t.Errorf("candidate %d should still get an explanation", i)
		}
	}
}

func TestEnricher_TimeoutDoesNotFailPage(t *testing.T) {
	lookup := &stubLookup{
		info:  &models.MediaInfo{ID: "slow"},
		delay: 200 * time.Millisecond,
	}
	e := NewEnricher(lookup, stubExplainer{}, 10*time.Millisecond, nil)

	page := makePage(1)
	done := make(chan struct{})
	go func() {
		e.EnrichPage(context.Background(), page, scoring.Context{})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("EnrichPage did not return after per-call timeout")
	}
	if page[0].Media != nil {
		t.Error("timed-out lookup should leave media nil")
	}
}

func TestEnricher_NilLookup(t *testing.T) {
	e := NewEnricher(nil, stubExplainer{}, time.Second, nil)
	page := makePage(1)
	e.EnrichPage(context.Background(), page, scoring.Context{})
	if page[0].Media != nil {
		t.Error("media should stay nil without a lookup client")
	}
	if page[0].Explanation == "" {
		t.Error("explanation should still be composed")
	}
}

func TestHTTPLookup_Found(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("title"); got != "Teardrop" {
			t.Errorf("title param = %q", got)
		}
		_, _ = w.Write([]byte(`{"id":"yt1","title":"Teardrop","url":"https://example.com/yt1","duration_sec":330}`))
	}))
	defer srv.Close()

	l := NewHTTPLookup(srv.URL, time.Second, nil)
	info, err := l.Lookup(context.Background(), "Teardrop", "Massive Attack")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if info == nil || info.ID != "yt1" || info.DurationSec != 330 {
		t.Errorf("Lookup = %+v", info)
	}
}

func TestHTTPLookup_NotFoundIsNilNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	l := NewHTTPLookup(srv.URL, time.Second, nil)
	info, err := l.Lookup(context.Background(), "Nope", "Nobody")
	if err != nil || info != nil {
		t.Errorf("want (nil, nil) for 404, got %+v, %v", info, err)
	}
}
