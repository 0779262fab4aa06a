package explain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/tonearm/tonearm/internal/scoring"
)

// HTTPGenerator calls a remote generative-text service. Calls are guarded by a
// circuit breaker so a degraded collaborator does not add latency to every
// recommendation page.
type HTTPGenerator struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[string]
	logger  *zap.Logger
}

type generateRequest struct {
	Title     string `json:"title"`
	Creator   string `json:"creator"`
	TimeOfDay string `json:"timeOfDay,omitempty"`
	Mood      string `json:"mood,omitempty"`
	Activity  string `json:"activity,omitempty"`
}

type generateResponse struct {
	Text string `json:"text"`
}

// NewHTTPGenerator creates a generator client for the service at baseURL.
func NewHTTPGenerator(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPGenerator {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	breaker := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "explain-service",
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

	return &HTTPGenerator{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		breaker: breaker,
		logger:  logger,
	}
}

// Generate requests an explanation for one track.
func (g *HTTPGenerator) Generate(ctx context.Context, title, creator string, boostCtx scoring.Context) (string, error) {
	return g.breaker.Execute(func() (string, error) {
		body, err := json.Marshal(generateRequest{
			Title:     title,
			Creator:   creator,
			TimeOfDay: boostCtx.TimeOfDay,
			Mood:      boostCtx.Mood,
			Activity:  boostCtx.Activity,
		})
		if err != nil {
			return "", fmt.Errorf("failed to marshal explain request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/explain", bytes.NewReader(body))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := g.client.Do(req)
		if err != nil {
			return "", fmt.Errorf("explain service request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("explain service returned status %d", resp.StatusCode)
		}

		var out generateResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return "", fmt.Errorf("failed to decode explain response: %w", err)
		}
		return out.Text, nil
	})
}
