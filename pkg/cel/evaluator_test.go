package cel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insightstream/pkg/models"
)

func testRecord() models.EnrichedRecord {
	reply := "Thanks, alice!"
	return models.EnrichedRecord{
		NormalizedRecord: models.NormalizedRecord{
			MessageID:      "msg-1",
			SourcePlatform: "twitter_mock",
			TimestampUTC:   "2025-04-01T10:00:00Z",
			TextContent:    "jira keeps crashing during export",
			AuthorInfo:     map[string]interface{}{"username": "alice", "followers": 1200},
			RawMetadata:    map[string]interface{}{"likes": 10},
		},
		Sentiment:              models.SentimentNegative,
		Category:               models.CategoryNegativeCompetitorReview,
		DetectedCompetitors:    []string{"jira"},
		AutoReplyText:          &reply,
		ProcessingTimestampUTC: "2025-04-01T10:00:05Z",
	}
}

func TestEvaluatePredicate(t *testing.T) {
	evaluator, err := NewEvaluator()
	require.NoError(t, err)

	tests := []struct {
		name       string
		expression string
		want       bool
	}{
		{
			name:       "sentiment match",
			expression: `sentiment == "negative"`,
			want:       true,
		},
		{
			name:       "sentiment mismatch",
			expression: `sentiment == "positive"`,
			want:       false,
		},
		{
			name:       "platform and category",
			expression: `source_platform == "twitter_mock" && category == "negative_competitor_review"`,
			want:       true,
		},
		{
			name:       "competitor list membership",
			expression: `"jira" in detected_competitors`,
			want:       true,
		},
		{
			name:       "competitor list size",
			expression: `size(detected_competitors) > 1`,
			want:       false,
		},
		{
			name:       "text content substring",
			expression: `text_content.contains("crashing")`,
			want:       true,
		},
		{
			name:       "auto reply flag",
			expression: `has_auto_reply`,
			want:       true,
		},
		{
			name:       "author info lookup",
			expression: `author_info["username"] == "alice"`,
			want:       true,
		},
		{
			name:       "metadata comparison",
			expression: `raw_metadata["likes"] >= 10`,
			want:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := evaluator.EvaluatePredicate(context.Background(), tt.expression, testRecord())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidatePredicate(t *testing.T) {
	evaluator, err := NewEvaluator()
	require.NoError(t, err)

	tests := []struct {
		name       string
		expression string
		wantErr    bool
	}{
		{
			name:       "valid predicate",
			expression: `sentiment == "negative" && size(detected_competitors) > 0`,
			wantErr:    false,
		},
		{
			name:       "syntax error",
			expression: `sentiment == `,
			wantErr:    true,
		},
		{
			name:       "unknown variable",
			expression: `no_such_field == "x"`,
			wantErr:    true,
		},
		{
			name:       "non-bool result",
			expression: `source_platform`,
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := evaluator.ValidatePredicate(tt.expression)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCompilePredicateReuse(t *testing.T) {
	evaluator, err := NewEvaluator()
	require.NoError(t, err)

	program, err := evaluator.CompilePredicate(`category == "negative_competitor_review"`)
	require.NoError(t, err)

	record := testRecord()
	match, err := evaluator.RunPredicate(context.Background(), program, record)
	require.NoError(t, err)
	assert.True(t, match)

	record.Category = models.CategoryBugReport
	match, err = evaluator.RunPredicate(context.Background(), program, record)
	require.NoError(t, err)
	assert.False(t, match)
}

func TestRunPredicateNilCollections(t *testing.T) {
	evaluator, err := NewEvaluator()
	require.NoError(t, err)

	record := models.EnrichedRecord{
		NormalizedRecord: models.NormalizedRecord{
			MessageID:      "msg-2",
			SourcePlatform: "discord_mock",
		},
		Sentiment: models.SentimentNeutral,
		Category:  models.CategoryGeneralFeedback,
	}

	match, err := evaluator.EvaluatePredicate(context.Background(),
		`size(detected_competitors) == 0 && !has_auto_reply`, record)
	require.NoError(t, err)
	assert.True(t, match)
}
