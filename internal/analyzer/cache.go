package analyzer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"insightstream/internal/constants"
	"insightstream/internal/logger"
	"insightstream/pkg/metrics"
)

// CachedScorer caches scores by text hash so identical feedback (duplicate
// deliveries, re-runs) does not hit the external model twice. Cache failures
// degrade to a direct scorer call.
type CachedScorer struct {
	next   Scorer
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedScorer(next Scorer, client *redis.Client, ttl time.Duration, log logger.Logger) *CachedScorer {
	if ttl <= 0 {
		ttl = constants.DefaultScoreCacheTTL
	}
	return &CachedScorer{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: log,
	}
}

func (s *CachedScorer) Score(ctx context.Context, text string) (Score, error) {
	key := cacheKey(text)

	val, err := s.client.Get(ctx, key).Result()
	if err == nil {
		var score Score
		if jsonErr := json.Unmarshal([]byte(val), &score); jsonErr == nil {
			metrics.ScorerCacheTotal.WithLabelValues("hit").Inc()
			return score, nil
		}
		s.logger.WarnwCtx(ctx, "Dropping malformed cached score", "key", key)
		_ = s.client.Del(ctx, key).Err()
	} else if err != redis.Nil {
		s.logger.WarnwCtx(ctx, "Score cache lookup failed", "error", err)
	}

	metrics.ScorerCacheTotal.WithLabelValues("miss").Inc()

	score, err := s.next.Score(ctx, text)
	if err != nil {
		return Score{}, err
	}

	if body, jsonErr := json.Marshal(score); jsonErr == nil {
		if setErr := s.client.Set(ctx, key, body, s.ttl).Err(); setErr != nil {
			s.logger.WarnwCtx(ctx, "Failed to cache score", "error", setErr)
		}
	}

	return score, nil
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return constants.CacheKeyPrefixScore + hex.EncodeToString(sum[:])
}
