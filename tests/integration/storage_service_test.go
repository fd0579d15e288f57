package integration

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insightstream/internal/logger"
	"insightstream/internal/storage"
	"insightstream/pkg/errors"
	"insightstream/pkg/models"
)

func TestStorageHandlerPersistsRecord(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)
	repo := storage.NewRepository(infra.PostgresDB)
	handler := storage.NewHandler(repo, logger.NopLogger())
	ctx := context.Background()

	record := enrichedFixture("svc-msg-1")
	record.AutoReplyText = strPtr("Thank you for your feedback!")
	payload, err := json.Marshal(record)
	require.NoError(t, err)

	require.NoError(t, handler.Handle(ctx, models.NewPushEnvelope(payload)))

	got, err := repo.GetByMessageID(ctx, "svc-msg-1")
	require.NoError(t, err)
	assert.Equal(t, record.Sentiment, got.Sentiment)
	assert.Equal(t, record.Category, got.Category)
	require.NotNil(t, got.AutoReplyText)
	assert.Equal(t, "Thank you for your feedback!", *got.AutoReplyText)
}

func TestStorageHandlerIsIdempotent(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)
	repo := storage.NewRepository(infra.PostgresDB)
	handler := storage.NewHandler(repo, logger.NopLogger())
	ctx := context.Background()

	record := enrichedFixture("svc-msg-2")
	payload, err := json.Marshal(record)
	require.NoError(t, err)

	require.NoError(t, handler.Handle(ctx, models.NewPushEnvelope(payload)))
	require.NoError(t, handler.Handle(ctx, models.NewPushEnvelope(payload)))

	all, err := repo.List(ctx, storage.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestStorageHandlerConsumesMalformedEnvelopes(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)
	repo := storage.NewRepository(infra.PostgresDB)
	handler := storage.NewHandler(repo, logger.NopLogger())
	ctx := context.Background()

	tests := []struct {
		name     string
		envelope models.PushEnvelope
	}{
		{name: "empty payload", envelope: models.PushEnvelope{MessageID: "bad-1"}},
		{name: "invalid base64", envelope: models.PushEnvelope{MessageID: "bad-2", Data: "%%%"}},
		{name: "not a record", envelope: models.NewPushEnvelope([]byte(`{"message_id": ""}`))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, handler.Handle(ctx, tt.envelope))
		})
	}

	_, err := repo.GetByMessageID(ctx, "")
	assert.True(t, errors.IsNotFound(err))
}
