package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jvmd/fraudguard/internal/pkg/models"
	"github.com/jvmd/fraudguard/services/fraud"
)

// ScoringClient calls the external fraud scoring model over HTTP. A missing
// deployment, connection failure, or server-side error all surface as
// fraud.ErrScorerUnavailable so model-scored rules can degrade gracefully.
type ScoringClient struct {
	url    string
	client *http.Client
}

// NewScoringClient creates a new scoring model client. An empty URL means
// the model is not deployed.
func NewScoringClient(cfg models.ScoringConfig) *ScoringClient {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ScoringClient{
		url:    cfg.URL,
		client: &http.Client{Timeout: timeout},
	}
}

type scoreRequest struct {
	Features []float64 `json:"features"`
}

type scoreResponse struct {
	Score float64 `json:"score"`
}

// Score submits the feature vector and returns the fraud probability
func (c *ScoringClient) Score(ctx context.Context, features []float64) (float64, error) {
	if c.url == "" {
		return 0, fraud.ErrScorerUnavailable
	}

	payload, err := json.Marshal(scoreRequest{Features: features})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal scoring request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("failed to build scoring request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", fraud.ErrScorerUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return 0, fmt.Errorf("%w: model returned status %d", fraud.ErrScorerUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("scoring model returned status %d", resp.StatusCode)
	}

	var body scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("failed to decode scoring response: %w", err)
	}
	if body.Score < 0 || body.Score > 1 {
		return 0, fmt.Errorf("scoring model returned out-of-range score %f", body.Score)
	}
	return body.Score, nil
}
