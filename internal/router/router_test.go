package router

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insightstream/internal/logger"
	"insightstream/pkg/models"
)

func strPtr(s string) *string { return &s }

func enrichedRecord(sentiment models.Sentiment, category models.Category) models.EnrichedRecord {
	return models.EnrichedRecord{
		NormalizedRecord: models.NormalizedRecord{
			MessageID:      "msg-200",
			SourcePlatform: "twitter_mock",
			TextContent:    "some feedback",
		},
		Sentiment:           sentiment,
		Category:            category,
		DetectedCompetitors: []string{},
	}
}

func tags(actions []Action) []Tag {
	out := []Tag{}
	for _, a := range actions {
		out = append(out, a.Tag)
	}
	return out
}

func TestRouteBuiltinRules(t *testing.T) {
	rt, err := New(nil, logger.NopLogger())
	require.NoError(t, err)

	tests := []struct {
		name   string
		record models.EnrichedRecord
		want   []Tag
	}{
		{
			name:   "feature request goes to todo tracker",
			record: enrichedRecord(models.SentimentNeutral, models.CategoryFeatureRequest),
			want:   []Tag{TagTodoTracker},
		},
		{
			name:   "bug report goes to issue tracker",
			record: enrichedRecord(models.SentimentNeutral, models.CategoryBugReport),
			want:   []Tag{TagIssueTracker},
		},
		{
			name:   "negative competitor review goes nowhere",
			record: enrichedRecord(models.SentimentNegative, models.CategoryNegativeCompetitorReview),
			want:   []Tag{},
		},
		{
			name:   "neutral general feedback goes nowhere",
			record: enrichedRecord(models.SentimentNeutral, models.CategoryGeneralFeedback),
			want:   []Tag{},
		},
		{
			name: "positive feedback with reply triggers auto reply",
			record: func() models.EnrichedRecord {
				r := enrichedRecord(models.SentimentPositive, models.CategoryGeneralFeedback)
				r.AutoReplyText = strPtr("Thanks!")
				return r
			}(),
			want: []Tag{TagAutoReply},
		},
		{
			name: "positive feature with reply matches both rules",
			record: func() models.EnrichedRecord {
				r := enrichedRecord(models.SentimentPositive, models.CategoryFeatureRequest)
				r.AutoReplyText = strPtr("Thanks!")
				return r
			}(),
			want: []Tag{TagTodoTracker, TagAutoReply},
		},
		{
			name:   "positive feedback without reply gets no auto reply",
			record: enrichedRecord(models.SentimentPositive, models.CategoryGeneralFeedback),
			want:   []Tag{},
		},
		{
			name: "positive bug report never gets auto reply",
			record: func() models.EnrichedRecord {
				r := enrichedRecord(models.SentimentPositive, models.CategoryBugReport)
				r.AutoReplyText = strPtr("Thanks!")
				return r
			}(),
			want: []Tag{TagIssueTracker},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actions := rt.Route(context.Background(), tt.record)
			assert.Equal(t, tt.want, tags(actions))
		})
	}
}

func TestRouteIssuePriority(t *testing.T) {
	rt, err := New(nil, logger.NopLogger())
	require.NoError(t, err)

	tests := []struct {
		name      string
		sentiment models.Sentiment
		want      Priority
	}{
		{"negative bug is high priority", models.SentimentNegative, PriorityHigh},
		{"neutral bug is medium priority", models.SentimentNeutral, PriorityMedium},
		{"positive bug is medium priority", models.SentimentPositive, PriorityMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actions := rt.Route(context.Background(), enrichedRecord(tt.sentiment, models.CategoryBugReport))
			require.Len(t, actions, 1)
			assert.Equal(t, TagIssueTracker, actions[0].Tag)
			assert.Equal(t, tt.want, actions[0].Priority)
		})
	}
}

type stubRuleRepo struct {
	rules []RoutingRule
	err   error
}

func (r *stubRuleRepo) GetActiveRules(ctx context.Context) ([]RoutingRule, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.rules, nil
}

func TestCustomRules(t *testing.T) {
	repo := &stubRuleRepo{rules: []RoutingRule{
		{
			ID:         "rule-1",
			Name:       "escalate twitter",
			Expression: `source_platform == "twitter_mock" && sentiment == "negative"`,
			Tag:        "escalation",
			Enabled:    true,
		},
	}}

	rt, err := New(repo, logger.NopLogger())
	require.NoError(t, err)
	require.NoError(t, rt.ReloadRules(context.Background()))

	actions := rt.Route(context.Background(), enrichedRecord(models.SentimentNegative, models.CategoryGeneralFeedback))
	require.Len(t, actions, 1)
	assert.Equal(t, Tag("escalation"), actions[0].Tag)
	assert.Equal(t, "rule-1", actions[0].RuleID)

	actions = rt.Route(context.Background(), enrichedRecord(models.SentimentPositive, models.CategoryGeneralFeedback))
	assert.Empty(t, actions)
}

func TestCustomRuleDoesNotDuplicateBuiltinTag(t *testing.T) {
	repo := &stubRuleRepo{rules: []RoutingRule{
		{
			ID:         "rule-2",
			Name:       "everything is a bug",
			Expression: `category == "bug_report"`,
			Tag:        string(TagIssueTracker),
			Enabled:    true,
		},
	}}

	rt, err := New(repo, logger.NopLogger())
	require.NoError(t, err)
	require.NoError(t, rt.ReloadRules(context.Background()))

	actions := rt.Route(context.Background(), enrichedRecord(models.SentimentNegative, models.CategoryBugReport))
	require.Len(t, actions, 1)
	assert.Equal(t, TagIssueTracker, actions[0].Tag)
}

func TestReloadRulesDropsInvalidExpressions(t *testing.T) {
	repo := &stubRuleRepo{rules: []RoutingRule{
		{
			ID:         "rule-3",
			Name:       "broken",
			Expression: `this is not CEL!!!`,
			Tag:        "escalation",
			Enabled:    true,
		},
		{
			ID:         "rule-4",
			Name:       "competitor watch",
			Expression: `size(detected_competitors) > 0`,
			Tag:        "competitor_watch",
			Enabled:    true,
		},
	}}

	rt, err := New(repo, logger.NopLogger())
	require.NoError(t, err)
	require.NoError(t, rt.ReloadRules(context.Background()))

	record := enrichedRecord(models.SentimentNeutral, models.CategoryGeneralFeedback)
	record.DetectedCompetitors = []string{"asana"}

	actions := rt.Route(context.Background(), record)
	require.Len(t, actions, 1)
	assert.Equal(t, Tag("competitor_watch"), actions[0].Tag)
}

func TestReloadRulesRepositoryError(t *testing.T) {
	repo := &stubRuleRepo{err: fmt.Errorf("mongo down")}
	rt, err := New(repo, logger.NopLogger())
	require.NoError(t, err)

	assert.Error(t, rt.ReloadRules(context.Background()))
}

func TestReloadRulesNoRepository(t *testing.T) {
	rt, err := New(nil, logger.NopLogger())
	require.NoError(t, err)
	assert.NoError(t, rt.ReloadRules(context.Background()))
}
