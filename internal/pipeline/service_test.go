package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insightstream/internal/analyzer"
	"insightstream/internal/logger"
	"insightstream/pkg/models"
)

type stubAnalyzer struct {
	enrichment analyzer.Enrichment
	err        error
	called     int
}

func (s *stubAnalyzer) Analyze(ctx context.Context, text string) (analyzer.Enrichment, error) {
	s.called++
	if s.err != nil {
		return analyzer.Enrichment{}, s.err
	}
	return s.enrichment, nil
}

type stubReplier struct {
	reply string
	ok    bool
}

func (s *stubReplier) Generate(ctx context.Context, text string, sentiment models.Sentiment, category models.Category) (string, bool) {
	return s.reply, s.ok
}

type stubEmitter struct {
	err       error
	published []models.PushEnvelope
	topics    []string
}

func (s *stubEmitter) Publish(ctx context.Context, topic string, envelope models.PushEnvelope) error {
	if s.err != nil {
		return s.err
	}
	s.published = append(s.published, envelope)
	s.topics = append(s.topics, topic)
	return nil
}

var testClock = func() time.Time {
	return time.Date(2025, 4, 1, 10, 0, 5, 0, time.UTC)
}

func recordEnvelope(t *testing.T, record map[string]interface{}) models.PushEnvelope {
	t.Helper()
	body, err := json.Marshal(record)
	require.NoError(t, err)
	return models.NewPushEnvelope(body)
}

func validRecord() map[string]interface{} {
	return map[string]interface{}{
		"message_id":      "msg-100",
		"source_platform": "twitter_mock",
		"timestamp_utc":   "2025-04-01T09:59:00Z",
		"text_content":    "I love the new dashboard, great idea!",
		"author_info":     map[string]interface{}{"id": "u7", "username": "carol"},
		"original_url":    "https://example.com/msg-100",
		"raw_metadata":    map[string]interface{}{"likes": 42},
	}
}

func newTestService(a TextAnalyzer, r ReplyGenerator, e Emitter) *Service {
	return NewService(a, r, e, "classified-feedback", logger.NopLogger()).WithClock(testClock)
}

func decodeEmitted(t *testing.T, envelope models.PushEnvelope) *models.EnrichedRecord {
	t.Helper()
	payload, err := envelope.DecodePayload()
	require.NoError(t, err)
	record, err := models.ParseEnrichedRecord(payload)
	require.NoError(t, err)
	return record
}

func TestHandleSuccess(t *testing.T) {
	emitter := &stubEmitter{}
	svc := newTestService(
		&stubAnalyzer{enrichment: analyzer.Enrichment{
			Sentiment:   models.SentimentPositive,
			Category:    models.CategoryFeatureRequest,
			Competitors: []string{},
		}},
		&stubReplier{reply: "Thanks, carol!", ok: true},
		emitter,
	)

	err := svc.Handle(context.Background(), recordEnvelope(t, validRecord()))
	require.NoError(t, err)
	require.Len(t, emitter.published, 1)
	assert.Equal(t, []string{"classified-feedback"}, emitter.topics)

	enriched := decodeEmitted(t, emitter.published[0])
	assert.Equal(t, "msg-100", enriched.MessageID)
	assert.Equal(t, models.SentimentPositive, enriched.Sentiment)
	assert.Equal(t, models.CategoryFeatureRequest, enriched.Category)
	assert.Equal(t, "2025-04-01T10:00:05Z", enriched.ProcessingTimestampUTC)
	require.NotNil(t, enriched.AutoReplyText)
	assert.Equal(t, "Thanks, carol!", *enriched.AutoReplyText)

	assert.Equal(t, "msg-100", emitter.published[0].Attributes["record_message_id"])
	assert.Equal(t, "twitter_mock", emitter.published[0].Attributes["source_platform"])
}

func TestHandleRejectsMalformedRecord(t *testing.T) {
	tests := []struct {
		name     string
		envelope models.PushEnvelope
	}{
		{
			name:     "undecodable payload",
			envelope: models.PushEnvelope{MessageID: "e1", Data: "%%%"},
		},
		{
			name:     "non-json payload",
			envelope: models.NewPushEnvelope([]byte("not json")),
		},
		{
			name: "missing schema key",
			envelope: func() models.PushEnvelope {
				record := validRecord()
				delete(record, "author_info")
				return recordEnvelope(t, record)
			}(),
		},
		{
			name: "empty message_id",
			envelope: func() models.PushEnvelope {
				record := validRecord()
				record["message_id"] = ""
				return recordEnvelope(t, record)
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			textAnalyzer := &stubAnalyzer{}
			emitter := &stubEmitter{}
			svc := newTestService(textAnalyzer, &stubReplier{}, emitter)

			// Rejection consumes the record: nil error, nothing emitted.
			err := svc.Handle(context.Background(), tt.envelope)
			assert.NoError(t, err)
			assert.Zero(t, textAnalyzer.called)
			assert.Empty(t, emitter.published)
		})
	}
}

func TestHandleAnalyzerFailureIsRetryable(t *testing.T) {
	emitter := &stubEmitter{}
	svc := newTestService(
		&stubAnalyzer{err: fmt.Errorf("scorer unavailable")},
		&stubReplier{},
		emitter,
	)

	err := svc.Handle(context.Background(), recordEnvelope(t, validRecord()))
	require.Error(t, err)
	assert.Empty(t, emitter.published, "nothing escapes before full assembly")
}

func TestHandleEmitFailureIsRetryable(t *testing.T) {
	svc := newTestService(
		&stubAnalyzer{enrichment: analyzer.Enrichment{
			Sentiment:   models.SentimentNeutral,
			Category:    models.CategoryGeneralFeedback,
			Competitors: []string{},
		}},
		&stubReplier{},
		&stubEmitter{err: fmt.Errorf("broker down")},
	)

	err := svc.Handle(context.Background(), recordEnvelope(t, validRecord()))
	require.Error(t, err)
}

func TestProcessDoesNotMutateSource(t *testing.T) {
	svc := newTestService(
		&stubAnalyzer{enrichment: analyzer.Enrichment{
			Sentiment:   models.SentimentNeutral,
			Category:    models.CategoryGeneralFeedback,
			Competitors: []string{},
		}},
		&stubReplier{},
		&stubEmitter{},
	)

	source := models.NormalizedRecord{
		MessageID:      "msg-101",
		SourcePlatform: "discord_mock",
		TextContent:    "hello",
		AuthorInfo:     map[string]interface{}{"username": "dave"},
		RawMetadata:    map[string]interface{}{"channel": "general"},
	}

	enriched, err := svc.Process(context.Background(), source)
	require.NoError(t, err)

	enriched.AuthorInfo["username"] = "tampered"
	enriched.RawMetadata["channel"] = "tampered"

	assert.Equal(t, "dave", source.AuthorInfo["username"])
	assert.Equal(t, "general", source.RawMetadata["channel"])
}

func TestProcessNoReplyWhenPreconditionUnmet(t *testing.T) {
	svc := newTestService(
		&stubAnalyzer{enrichment: analyzer.Enrichment{
			Sentiment:   models.SentimentNegative,
			Category:    models.CategoryBugReport,
			Competitors: []string{},
		}},
		&stubReplier{ok: false},
		&stubEmitter{},
	)

	enriched, err := svc.Process(context.Background(), models.NormalizedRecord{
		MessageID:      "msg-102",
		SourcePlatform: "twitter_mock",
		TextContent:    "it crashes",
	})
	require.NoError(t, err)
	assert.Nil(t, enriched.AutoReplyText)
}

func TestProcessIsIdempotentUnderFixedClock(t *testing.T) {
	svc := newTestService(
		&stubAnalyzer{enrichment: analyzer.Enrichment{
			Sentiment:   models.SentimentPositive,
			Category:    models.CategoryGeneralFeedback,
			Competitors: []string{},
		}},
		&stubReplier{reply: "Thanks!", ok: true},
		&stubEmitter{},
	)

	source := models.NormalizedRecord{
		MessageID:      "msg-103",
		SourcePlatform: "appstore_mock",
		TextContent:    "great app",
	}

	first, err := svc.Process(context.Background(), source)
	require.NoError(t, err)
	second, err := svc.Process(context.Background(), source)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
