package analyzer

import (
	"context"
	"strings"
	"sync"

	"insightstream/internal/config"
	"insightstream/internal/constants"
	"insightstream/internal/logger"
	"insightstream/pkg/metrics"
	"insightstream/pkg/models"
	"insightstream/pkg/tracing"
)

// Enrichment is the classification derived from one piece of feedback text.
type Enrichment struct {
	Sentiment   models.Sentiment
	Category    models.Category
	Competitors []string
}

// Analyzer classifies feedback text: sentiment from an external scoring
// signal, category from a fixed-order keyword cascade, competitor mentions
// from substring matching. Classification itself is pure; the scorer call is
// the only external dependency and its failure fails the record.
type Analyzer struct {
	scorer            Scorer
	repo              LexiconRepository
	lexicon           Lexicon
	lexiconMu         sync.RWMutex
	positiveThreshold float64
	negativeThreshold float64
	logger            logger.Logger
}

func New(scorer Scorer, repo LexiconRepository, cfg config.AnalyzerConfig, log logger.Logger) *Analyzer {
	positive := cfg.PositiveThreshold
	negative := cfg.NegativeThreshold
	if positive == 0 && negative == 0 {
		positive = constants.DefaultPositiveThreshold
		negative = constants.DefaultNegativeThreshold
	}

	a := &Analyzer{
		scorer:            scorer,
		repo:              repo,
		lexicon:           DefaultLexicon(),
		positiveThreshold: positive,
		negativeThreshold: negative,
		logger:            log,
	}
	a.publishLexiconMetrics()
	return a
}

// Analyze derives sentiment, category, and competitor mentions for the text.
// Empty text short-circuits to neutral/general_feedback without a scorer
// call. A scorer failure is returned as-is so the caller can retry.
func (a *Analyzer) Analyze(ctx context.Context, text string) (Enrichment, error) {
	ctx, span := tracing.GetTracer("analyzer").Start(ctx, "analyzer.analyze")
	defer span.End()

	if strings.TrimSpace(text) == "" {
		return Enrichment{
			Sentiment:   models.SentimentNeutral,
			Category:    models.CategoryGeneralFeedback,
			Competitors: []string{},
		}, nil
	}

	score, err := a.scorer.Score(ctx, text)
	if err != nil {
		return Enrichment{}, err
	}

	return a.Classify(text, score.SentimentScore), nil
}

// Classify applies the threshold mapping and the category cascade to an
// already obtained sentiment score. Exposed separately so the pure rule
// logic can be exercised without a scorer.
func (a *Analyzer) Classify(text string, sentimentScore float64) Enrichment {
	lexicon := a.currentLexicon()
	lowered := strings.ToLower(text)

	sentiment := a.mapSentiment(sentimentScore)
	competitors := detectCompetitors(lowered, lexicon.Competitors)
	category := deriveCategory(lowered, lexicon)

	// Negative mentions of a rival product trump the keyword cascade.
	if sentiment == models.SentimentNegative && len(competitors) > 0 {
		category = models.CategoryNegativeCompetitorReview
	}

	return Enrichment{
		Sentiment:   sentiment,
		Category:    category,
		Competitors: competitors,
	}
}

func (a *Analyzer) mapSentiment(score float64) models.Sentiment {
	switch {
	case score >= a.positiveThreshold:
		return models.SentimentPositive
	case score <= a.negativeThreshold:
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}

// detectCompetitors matches each keyword as a plain substring, so a keyword
// inside a larger word still counts. Matches are reported in keyword-list
// order.
func detectCompetitors(loweredText string, keywords []string) []string {
	found := []string{}
	for _, keyword := range keywords {
		if keyword == "" {
			continue
		}
		if strings.Contains(loweredText, strings.ToLower(keyword)) {
			found = append(found, keyword)
		}
	}
	return found
}

// deriveCategory walks the cascade in fixed order: bug keywords first, then
// feature keywords, then the general fallback.
func deriveCategory(loweredText string, lexicon Lexicon) models.Category {
	if containsAny(loweredText, lexicon.BugKeywords) {
		return models.CategoryBugReport
	}
	if containsAny(loweredText, lexicon.FeatureKeywords) {
		return models.CategoryFeatureRequest
	}
	return models.CategoryGeneralFeedback
}

func containsAny(loweredText string, keywords []string) bool {
	for _, keyword := range keywords {
		if keyword == "" {
			continue
		}
		if strings.Contains(loweredText, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}

func (a *Analyzer) currentLexicon() Lexicon {
	a.lexiconMu.RLock()
	defer a.lexiconMu.RUnlock()
	return a.lexicon.clone()
}

// ReloadLexicon swaps in the operator-managed tables. With no repository
// configured the built-in defaults stay active.
func (a *Analyzer) ReloadLexicon(ctx context.Context) error {
	if a.repo == nil {
		return nil
	}

	lexicon, err := a.repo.GetLexicon(ctx)
	if err != nil {
		return err
	}

	a.lexiconMu.Lock()
	a.lexicon = lexicon
	a.lexiconMu.Unlock()

	a.publishLexiconMetrics()
	a.logger.InfowCtx(ctx, "Successfully reloaded lexicon",
		"competitors", len(lexicon.Competitors),
		"bug_keywords", len(lexicon.BugKeywords),
		"feature_keywords", len(lexicon.FeatureKeywords),
	)
	return nil
}

func (a *Analyzer) publishLexiconMetrics() {
	a.lexiconMu.RLock()
	defer a.lexiconMu.RUnlock()
	metrics.SetLexiconKeywords(tableCompetitors, len(a.lexicon.Competitors))
	metrics.SetLexiconKeywords(tableBugKeywords, len(a.lexicon.BugKeywords))
	metrics.SetLexiconKeywords(tableFeatures, len(a.lexicon.FeatureKeywords))
}
