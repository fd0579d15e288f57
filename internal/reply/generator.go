package reply

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"insightstream/internal/config"
	"insightstream/internal/logger"
	"insightstream/pkg/metrics"
	"insightstream/pkg/models"
	"insightstream/pkg/tracing"
)

// FallbackReply is substituted whenever reply generation is attempted but
// fails. The pipeline never blocks on the reply step.
const FallbackReply = "Thank you for your feedback!"

const defaultTimeout = 15 * time.Second

// TextGenerator issues one call to an external generation model.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Generator decides whether a record earns an automated reply and produces
// it. Only positive, non-bug feedback triggers a model call; everything else
// gets no reply and no external call.
type Generator struct {
	gen     TextGenerator
	limiter *rate.Limiter
	timeout time.Duration
	logger  logger.Logger
}

func New(gen TextGenerator, cfg config.ReplyConfig, log logger.Logger) *Generator {
	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	var limiter *rate.Limiter
	if cfg.RPS > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}

	return &Generator{
		gen:     gen,
		limiter: limiter,
		timeout: timeout,
		logger:  log,
	}
}

// ShouldReply reports whether the precondition for an automated reply holds.
func ShouldReply(sentiment models.Sentiment, category models.Category) bool {
	return sentiment == models.SentimentPositive && category != models.CategoryBugReport
}

// Generate returns the reply text and whether a reply applies at all. The
// second return is false only when the precondition is unmet; generation
// failures of any kind yield the fallback string instead of an error.
func (g *Generator) Generate(ctx context.Context, text string, sentiment models.Sentiment, category models.Category) (string, bool) {
	if !ShouldReply(sentiment, category) {
		return "", false
	}

	ctx, span := tracing.GetTracer("reply").Start(ctx, "reply.generate")
	defer span.End()

	reply, err := g.callModel(ctx, text)
	if err != nil {
		metrics.ReplyRequestsTotal.WithLabelValues("error").Inc()
		metrics.ReplyFallbackTotal.Inc()
		g.logger.WarnwCtx(ctx, "Reply generation failed, using fallback",
			"error", err,
		)
		return FallbackReply, true
	}

	metrics.ReplyRequestsTotal.WithLabelValues("success").Inc()
	return reply, true
}

func (g *Generator) callModel(ctx context.Context, text string) (string, error) {
	if g.gen == nil {
		return "", fmt.Errorf("no reply generator configured")
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("reply rate limit wait: %w", err)
		}
	}

	reply, err := g.gen.Generate(ctx, buildPrompt(text))
	if err != nil {
		return "", err
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", fmt.Errorf("model returned empty reply")
	}

	return reply, nil
}

func buildPrompt(text string) string {
	return fmt.Sprintf(
		"You are a helpful and appreciative customer support bot for FlowHub. "+
			"A customer left the following positive feedback: '%s'. "+
			"Write a short, friendly, and grateful thank you message. "+
			"Do not ask questions or offer further help unless specifically related to their positive comment. "+
			"Keep it concise, under 50 words.",
		text,
	)
}
