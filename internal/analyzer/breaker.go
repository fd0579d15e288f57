package analyzer

import (
	"context"
	"fmt"

	"insightstream/pkg/circuitbreaker"
	"insightstream/pkg/errors"
)

// BreakerScorer sheds load from the scoring dependency when it is failing.
// An open breaker surfaces as a retryable error, so affected records go
// through the normal retry and DLQ path instead of hammering the model.
type BreakerScorer struct {
	next Scorer
	cb   *circuitbreaker.Wrapper
	name string
}

func NewBreakerScorer(next Scorer, name string, cfg circuitbreaker.Config) *BreakerScorer {
	return &BreakerScorer{
		next: next,
		cb:   circuitbreaker.NewWrapper(cfg),
		name: name,
	}
}

func (s *BreakerScorer) Score(ctx context.Context, text string) (Score, error) {
	result, err := s.cb.ExecuteWithContext(ctx, func() (interface{}, error) {
		return s.next.Score(ctx, text)
	})

	s.cb.RecordRequest(err == nil)

	if err != nil {
		if s.cb.IsOpen() {
			return Score{}, errors.ErrServiceUnavailable.WithMessage(fmt.Sprintf("circuit breaker is open for %s", s.name)).WithCause(err)
		}
		return Score{}, err
	}

	score, ok := result.(Score)
	if !ok {
		return Score{}, errors.ErrInternal.WithMessage("scorer returned invalid result type")
	}

	return score, nil
}

func (s *BreakerScorer) State() string {
	return s.cb.State().String()
}
