package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insightstream/internal/storage"
	"insightstream/pkg/errors"
	"insightstream/pkg/models"
)

func strPtr(s string) *string { return &s }

func enrichedFixture(messageID string) *models.EnrichedRecord {
	return &models.EnrichedRecord{
		NormalizedRecord: models.NormalizedRecord{
			MessageID:      messageID,
			SourcePlatform: "twitter_mock",
			TimestampUTC:   "2025-04-01T10:00:00Z",
			TextContent:    "the export keeps failing with an error",
			AuthorInfo:     map[string]interface{}{"id": "u1", "username": "alice"},
			OriginalURL:    "https://example.com/" + messageID,
			RawMetadata:    map[string]interface{}{"likes": float64(10)},
		},
		Sentiment:              models.SentimentNegative,
		Category:               models.CategoryBugReport,
		DetectedCompetitors:    []string{},
		ProcessingTimestampUTC: "2025-04-01T10:00:05Z",
	}
}

func TestRepositoryUpsertAndGet(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)
	repo := storage.NewRepository(infra.PostgresDB)
	ctx := context.Background()

	record := enrichedFixture("it-msg-1")
	require.NoError(t, repo.Upsert(ctx, record))

	got, err := repo.GetByMessageID(ctx, "it-msg-1")
	require.NoError(t, err)
	assert.Equal(t, record.MessageID, got.MessageID)
	assert.Equal(t, record.SourcePlatform, got.SourcePlatform)
	assert.Equal(t, record.TextContent, got.TextContent)
	assert.Equal(t, record.Sentiment, got.Sentiment)
	assert.Equal(t, record.Category, got.Category)
	assert.Equal(t, record.AuthorInfo, got.AuthorInfo)
	assert.Equal(t, record.RawMetadata, got.RawMetadata)
	assert.Equal(t, []string{}, got.DetectedCompetitors)
	assert.Nil(t, got.AutoReplyText)
}

func TestRepositoryUpsertOverwrites(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)
	repo := storage.NewRepository(infra.PostgresDB)
	ctx := context.Background()

	record := enrichedFixture("it-msg-2")
	require.NoError(t, repo.Upsert(ctx, record))

	record.Sentiment = models.SentimentPositive
	record.Category = models.CategoryGeneralFeedback
	record.AutoReplyText = strPtr("Thanks, alice!")
	record.DetectedCompetitors = []string{"asana"}
	require.NoError(t, repo.Upsert(ctx, record))

	got, err := repo.GetByMessageID(ctx, "it-msg-2")
	require.NoError(t, err)
	assert.Equal(t, models.SentimentPositive, got.Sentiment)
	assert.Equal(t, models.CategoryGeneralFeedback, got.Category)
	assert.Equal(t, []string{"asana"}, got.DetectedCompetitors)
	require.NotNil(t, got.AutoReplyText)
	assert.Equal(t, "Thanks, alice!", *got.AutoReplyText)
}

func TestRepositoryGetNotFound(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)
	repo := storage.NewRepository(infra.PostgresDB)

	_, err := repo.GetByMessageID(context.Background(), "no-such-message")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestRepositoryListFilters(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)
	repo := storage.NewRepository(infra.PostgresDB)
	ctx := context.Background()

	bug := enrichedFixture("it-msg-3")
	require.NoError(t, repo.Upsert(ctx, bug))

	praise := enrichedFixture("it-msg-4")
	praise.SourcePlatform = "appstore_mock"
	praise.Sentiment = models.SentimentPositive
	praise.Category = models.CategoryGeneralFeedback
	praise.ProcessingTimestampUTC = "2025-04-01T10:00:10Z"
	require.NoError(t, repo.Upsert(ctx, praise))

	all, err := repo.List(ctx, storage.ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	// Newest first.
	assert.Equal(t, "it-msg-4", all[0].MessageID)

	bugs, err := repo.List(ctx, storage.ListFilter{Category: string(models.CategoryBugReport)})
	require.NoError(t, err)
	require.Len(t, bugs, 1)
	assert.Equal(t, "it-msg-3", bugs[0].MessageID)

	positives, err := repo.List(ctx, storage.ListFilter{Sentiment: string(models.SentimentPositive)})
	require.NoError(t, err)
	require.Len(t, positives, 1)
	assert.Equal(t, "it-msg-4", positives[0].MessageID)

	appstore, err := repo.List(ctx, storage.ListFilter{SourcePlatform: "appstore_mock"})
	require.NoError(t, err)
	require.Len(t, appstore, 1)

	limited, err := repo.List(ctx, storage.ListFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)

	offset, err := repo.List(ctx, storage.ListFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, offset, 1)
	assert.Equal(t, "it-msg-3", offset[0].MessageID)
}
