package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"insightstream/internal/config"
	"insightstream/internal/constants"
	"insightstream/pkg/errors"
	"insightstream/pkg/metrics"
)

// Score is the sentiment signal returned by the external scoring dependency.
// SentimentScore is in [-1.0, 1.0].
type Score struct {
	SentimentScore float64 `json:"score"`
	Magnitude      float64 `json:"magnitude"`
}

// Scorer produces a sentiment score for a piece of text. Implementations call
// an external model; failures must come back as retryable errors so the
// pipeline can fail the record instead of defaulting the sentiment.
type Scorer interface {
	Score(ctx context.Context, text string) (Score, error)
}

type HTTPScorer struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewHTTPScorer(cfg config.ScorerConfig) *HTTPScorer {
	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = constants.DefaultHTTPTimeout
	}
	return &HTTPScorer{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type scoreRequest struct {
	Text string `json:"text"`
}

func (s *HTTPScorer) Score(ctx context.Context, text string) (Score, error) {
	body, err := json.Marshal(scoreRequest{Text: text})
	if err != nil {
		return Score{}, errors.ErrInternal.WithMessage("failed to marshal score request").WithCause(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return Score{}, errors.ErrInternal.WithMessage("failed to create score request").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		metrics.ScorerRequestsTotal.WithLabelValues("error").Inc()
		return Score{}, errors.ErrServiceUnavailable.WithMessage(fmt.Sprintf("sentiment scoring request failed: %v", err)).WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < constants.HTTPStatusOKMin || resp.StatusCode >= constants.HTTPStatusOKMax {
		metrics.ScorerRequestsTotal.WithLabelValues("error").Inc()
		return Score{}, errors.ErrServiceUnavailable.WithMessage(fmt.Sprintf("sentiment scoring returned status %d", resp.StatusCode))
	}

	var score Score
	if err := json.NewDecoder(resp.Body).Decode(&score); err != nil {
		metrics.ScorerRequestsTotal.WithLabelValues("error").Inc()
		return Score{}, errors.ErrServiceUnavailable.WithMessage("failed to decode scoring response").WithCause(err)
	}

	metrics.ScorerRequestsTotal.WithLabelValues("success").Inc()
	return score, nil
}
