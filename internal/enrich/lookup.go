// Package enrich attaches external media metadata and explanations to a page
// of recommendation candidates.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/tonearm/tonearm/internal/models"
)

// Lookup resolves a (title, creator) pair to external media metadata.
// A (nil, nil) return means the collaborator found nothing.
type Lookup interface {
	Lookup(ctx context.Context, title, creator string) (*models.MediaInfo, error)
}

// HTTPLookup is the media lookup service client, circuit-breaker guarded.
type HTTPLookup struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[*models.MediaInfo]
	logger  *zap.Logger
}

// NewHTTPLookup creates a lookup client for the service at baseURL.
func NewHTTPLookup(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPLookup {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	breaker := gobreaker.NewCircuitBreaker[*models.MediaInfo](gobreaker.Settings{
		Name:        "media-lookup",
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && counts.TotalFailures*2 >= counts.Requests
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &HTTPLookup{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		breaker: breaker,
		logger:  logger,
	}
}

// Lookup queries the media service for one track.
func (l *HTTPLookup) Lookup(ctx context.Context, title, creator string) (*models.MediaInfo, error) {
	return l.breaker.Execute(func() (*models.MediaInfo, error) {
		q := url.Values{}
		q.Set("title", title)
		q.Set("creator", creator)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			l.baseURL+"/v1/media?"+q.Encode(), nil)
		if err != nil {
			return nil, err
		}

		resp, err := l.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("media lookup request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("media lookup returned status %d", resp.StatusCode)
		}

		var info models.MediaInfo
		if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
			return nil, fmt.Errorf("failed to decode media lookup response: %w", err)
		}
		return &info, nil
	})
}
