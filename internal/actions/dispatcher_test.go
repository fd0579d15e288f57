package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insightstream/internal/logger"
	"insightstream/internal/router"
	"insightstream/pkg/models"
)

type fakeIssueTracker struct {
	err        error
	summaries  []string
	priorities []string
}

func (f *fakeIssueTracker) CreateIssue(ctx context.Context, summary, description, priority string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.summaries = append(f.summaries, summary)
	f.priorities = append(f.priorities, priority)
	return "FLOW-1", nil
}

type fakeTodoTracker struct {
	titles []string
}

func (f *fakeTodoTracker) CreateTodo(ctx context.Context, title, description string) (string, error) {
	f.titles = append(f.titles, title)
	return "1", nil
}

type fakeMailer struct {
	to       []string
	subjects []string
	bodies   []string
}

func (f *fakeMailer) Send(ctx context.Context, toEmail, subject, body string) error {
	f.to = append(f.to, toEmail)
	f.subjects = append(f.subjects, subject)
	f.bodies = append(f.bodies, body)
	return nil
}

func strPtr(s string) *string { return &s }

func testRecord(sentiment models.Sentiment, category models.Category) models.EnrichedRecord {
	return models.EnrichedRecord{
		NormalizedRecord: models.NormalizedRecord{
			MessageID:      "msg-300",
			SourcePlatform: "twitter_mock",
			TimestampUTC:   "2025-04-01T10:00:00Z",
			TextContent:    "the export keeps crashing with an error",
			AuthorInfo:     map[string]interface{}{"id": "u1", "username": "alice"},
			OriginalURL:    "https://example.com/msg-300",
		},
		Sentiment:              sentiment,
		Category:               category,
		DetectedCompetitors:    []string{},
		ProcessingTimestampUTC: "2025-04-01T10:00:05Z",
	}
}

func envelopeFor(t *testing.T, record models.EnrichedRecord) models.PushEnvelope {
	t.Helper()
	body, err := json.Marshal(record)
	require.NoError(t, err)
	return models.NewPushEnvelope(body)
}

func newTestDispatcher(t *testing.T, issues IssueTracker, todos TodoTracker, mailer Mailer) *Dispatcher {
	t.Helper()
	rt, err := router.New(nil, logger.NopLogger())
	require.NoError(t, err)
	return NewDispatcher(rt, issues, todos, mailer, logger.NopLogger())
}

func TestHandleBugReportCreatesIssue(t *testing.T) {
	issues := &fakeIssueTracker{}
	d := newTestDispatcher(t, issues, &fakeTodoTracker{}, &fakeMailer{})

	record := testRecord(models.SentimentNegative, models.CategoryBugReport)
	require.NoError(t, d.Handle(context.Background(), envelopeFor(t, record)))

	require.Len(t, issues.summaries, 1)
	assert.Equal(t, "Bug Report from twitter_mock: the export keeps crashing with an error...", issues.summaries[0])
	assert.Equal(t, []string{"High"}, issues.priorities)
}

func TestHandleNeutralBugIsMediumPriority(t *testing.T) {
	issues := &fakeIssueTracker{}
	d := newTestDispatcher(t, issues, &fakeTodoTracker{}, &fakeMailer{})

	record := testRecord(models.SentimentNeutral, models.CategoryBugReport)
	require.NoError(t, d.Handle(context.Background(), envelopeFor(t, record)))

	assert.Equal(t, []string{"Medium"}, issues.priorities)
}

func TestHandleFeatureRequestCreatesTodo(t *testing.T) {
	todos := &fakeTodoTracker{}
	d := newTestDispatcher(t, &fakeIssueTracker{}, todos, &fakeMailer{})

	record := testRecord(models.SentimentNeutral, models.CategoryFeatureRequest)
	record.TextContent = "would love a dark mode feature"
	require.NoError(t, d.Handle(context.Background(), envelopeFor(t, record)))

	require.Len(t, todos.titles, 1)
	assert.Equal(t, "Feature Request from twitter_mock: would love a dark mode feature...", todos.titles[0])
}

func TestHandlePositiveWithReplySendsEmail(t *testing.T) {
	mailer := &fakeMailer{}
	d := newTestDispatcher(t, &fakeIssueTracker{}, &fakeTodoTracker{}, mailer)

	record := testRecord(models.SentimentPositive, models.CategoryGeneralFeedback)
	record.AutoReplyText = strPtr("Thanks for the love, alice!")
	require.NoError(t, d.Handle(context.Background(), envelopeFor(t, record)))

	require.Len(t, mailer.to, 1)
	assert.Equal(t, "customer_alice@example.com", mailer.to[0])
	assert.Equal(t, "Thank You for your Feedback on FlowHub! (Ref: msg-300)", mailer.subjects[0])
	assert.Equal(t, "Thanks for the love, alice!", mailer.bodies[0])
}

func TestHandleUsesAuthorEmailWhenPresent(t *testing.T) {
	mailer := &fakeMailer{}
	d := newTestDispatcher(t, &fakeIssueTracker{}, &fakeTodoTracker{}, mailer)

	record := testRecord(models.SentimentPositive, models.CategoryGeneralFeedback)
	record.AuthorInfo["email"] = "alice@real-domain.com"
	record.AutoReplyText = strPtr("Thanks!")
	require.NoError(t, d.Handle(context.Background(), envelopeFor(t, record)))

	require.Len(t, mailer.to, 1)
	assert.Equal(t, "alice@real-domain.com", mailer.to[0])
}

func TestHandleNegativeCompetitorReviewDispatchesNothing(t *testing.T) {
	issues := &fakeIssueTracker{}
	todos := &fakeTodoTracker{}
	mailer := &fakeMailer{}
	d := newTestDispatcher(t, issues, todos, mailer)

	record := testRecord(models.SentimentNegative, models.CategoryNegativeCompetitorReview)
	record.DetectedCompetitors = []string{"asana"}
	require.NoError(t, d.Handle(context.Background(), envelopeFor(t, record)))

	assert.Empty(t, issues.summaries)
	assert.Empty(t, todos.titles)
	assert.Empty(t, mailer.to)
}

func TestHandleDispatchFailureDoesNotFailRecord(t *testing.T) {
	issues := &fakeIssueTracker{err: fmt.Errorf("jira is down")}
	d := newTestDispatcher(t, issues, &fakeTodoTracker{}, &fakeMailer{})

	record := testRecord(models.SentimentNegative, models.CategoryBugReport)
	assert.NoError(t, d.Handle(context.Background(), envelopeFor(t, record)))
}

func TestHandleMalformedEnvelopeIsConsumed(t *testing.T) {
	d := newTestDispatcher(t, &fakeIssueTracker{}, &fakeTodoTracker{}, &fakeMailer{})

	assert.NoError(t, d.Handle(context.Background(), models.PushEnvelope{MessageID: "e1", Data: "%%%"}))
	assert.NoError(t, d.Handle(context.Background(), models.NewPushEnvelope([]byte("not json"))))
}

func TestHandleMissingIntegrationIsSkipped(t *testing.T) {
	d := newTestDispatcher(t, nil, nil, nil)

	record := testRecord(models.SentimentNegative, models.CategoryBugReport)
	assert.NoError(t, d.Handle(context.Background(), envelopeFor(t, record)))
}

func TestRenderDescription(t *testing.T) {
	record := testRecord(models.SentimentNegative, models.CategoryBugReport)
	description := renderDescription(record)

	assert.Contains(t, description, "Source: twitter_mock")
	assert.Contains(t, description, "Message ID: msg-300")
	assert.Contains(t, description, "Original Text: the export keeps crashing with an error")
	assert.Contains(t, description, "Sentiment: negative")
	assert.Contains(t, description, "Author: alice (ID: u1)")
	assert.Contains(t, description, "Original URL: https://example.com/msg-300")
	assert.Contains(t, description, "Automated by InsightStream AI")
}

func TestRenderSummaryTruncates(t *testing.T) {
	record := testRecord(models.SentimentNeutral, models.CategoryBugReport)
	record.TextContent = ""
	for i := 0; i < 20; i++ {
		record.TextContent += "crash "
	}

	summary := renderSummary("Bug Report", record)
	assert.LessOrEqual(t, len(summary), len("Bug Report from twitter_mock: ")+70+len("..."))
}

func TestCustomerEmailFallbacks(t *testing.T) {
	record := testRecord(models.SentimentPositive, models.CategoryGeneralFeedback)
	record.AuthorInfo = map[string]interface{}{}
	assert.Equal(t, "customer_anonymous@example.com", customerEmail(record))

	record.AuthorInfo = map[string]interface{}{"username": "bob"}
	assert.Equal(t, "customer_bob@example.com", customerEmail(record))
}
