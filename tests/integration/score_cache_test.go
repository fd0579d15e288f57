package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insightstream/internal/analyzer"
	"insightstream/internal/logger"
)

type countingScorer struct {
	score  float64
	err    error
	called int
}

func (s *countingScorer) Score(ctx context.Context, text string) (analyzer.Score, error) {
	s.called++
	if s.err != nil {
		return analyzer.Score{}, s.err
	}
	return analyzer.Score{SentimentScore: s.score}, nil
}

func TestCachedScorerHitsCacheOnRepeat(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, false, true)
	ctx := context.Background()

	next := &countingScorer{score: 0.7}
	cached := analyzer.NewCachedScorer(next, infra.RedisClient, time.Minute, logger.NopLogger())

	first, err := cached.Score(ctx, "this product is wonderful")
	require.NoError(t, err)
	assert.Equal(t, 0.7, first.SentimentScore)

	second, err := cached.Score(ctx, "this product is wonderful")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, next.called, "identical text must be served from cache")

	_, err = cached.Score(ctx, "a different remark entirely")
	require.NoError(t, err)
	assert.Equal(t, 2, next.called)
}

func TestCachedScorerDoesNotCacheFailures(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, false, true)
	ctx := context.Background()

	next := &countingScorer{err: fmt.Errorf("scorer down")}
	cached := analyzer.NewCachedScorer(next, infra.RedisClient, time.Minute, logger.NopLogger())

	_, err := cached.Score(ctx, "some text")
	require.Error(t, err)

	next.err = nil
	next.score = -0.4
	score, err := cached.Score(ctx, "some text")
	require.NoError(t, err)
	assert.Equal(t, -0.4, score.SentimentScore)
	assert.Equal(t, 2, next.called)
}
