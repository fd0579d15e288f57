package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"insightstream/internal/analyzer"
	"insightstream/internal/logger"
	"insightstream/pkg/logging"
	"insightstream/pkg/metrics"
	"insightstream/pkg/models"
	"insightstream/pkg/tracing"
)

const (
	statusRejected = "rejected"
	statusFailed   = "failed"
	statusEmitted  = "emitted"
)

// TextAnalyzer classifies feedback text.
type TextAnalyzer interface {
	Analyze(ctx context.Context, text string) (analyzer.Enrichment, error)
}

// ReplyGenerator produces an optional automated reply. It never fails the
// record; the bool reports whether a reply applies at all.
type ReplyGenerator interface {
	Generate(ctx context.Context, text string, sentiment models.Sentiment, category models.Category) (string, bool)
}

// Emitter hands a finished envelope to the output boundary.
type Emitter interface {
	Publish(ctx context.Context, topic string, envelope models.PushEnvelope) error
}

// Service runs the enrichment state machine for one record at a time:
// Received, Validated, Analyzed, ReplyAttempted, Assembled, Emitted. A
// record that cannot validate is Rejected and consumed; a dependency failure
// is Failed and surfaces as a retryable error.
type Service struct {
	analyzer    TextAnalyzer
	replier     ReplyGenerator
	emitter     Emitter
	outputTopic string
	logger      logger.Logger
	now         func() time.Time
}

func NewService(textAnalyzer TextAnalyzer, replier ReplyGenerator, emitter Emitter, outputTopic string, log logger.Logger) *Service {
	return &Service{
		analyzer:    textAnalyzer,
		replier:     replier,
		emitter:     emitter,
		outputTopic: outputTopic,
		logger:      log,
		now:         time.Now,
	}
}

// WithClock overrides the processing timestamp source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Handle processes one transport envelope end to end. A nil return means the
// input is consumed: either the record was emitted or it was rejected as
// permanently invalid. A non-nil return means the caller should redeliver.
func (s *Service) Handle(ctx context.Context, envelope models.PushEnvelope) error {
	ctx, span := tracing.GetTracer("pipeline").Start(ctx, "pipeline.handle")
	defer span.End()

	start := time.Now()

	record, err := s.validate(envelope)
	if err != nil {
		metrics.ProcessorRecordsTotal.WithLabelValues(statusRejected).Inc()
		metrics.ObserveProcessorDuration(time.Since(start), statusRejected)
		s.logger.WarnwCtx(ctx, "Rejected malformed record",
			"message_id", envelope.MessageID,
			"error", err,
		)
		return nil
	}

	ctx = logging.WithMessageID(ctx, record.MessageID)
	ctx = logging.WithPlatform(ctx, record.SourcePlatform)
	s.logger.DebugwCtx(ctx, "Record validated")

	enriched, err := s.Process(ctx, *record)
	if err != nil {
		metrics.ProcessorRecordsTotal.WithLabelValues(statusFailed).Inc()
		metrics.ObserveProcessorDuration(time.Since(start), statusFailed)
		s.logger.ErrorwCtx(ctx, "Enrichment failed",
			"error", err,
		)
		return err
	}

	if err := s.emit(ctx, enriched); err != nil {
		metrics.ProcessorRecordsTotal.WithLabelValues(statusFailed).Inc()
		metrics.ObserveProcessorDuration(time.Since(start), statusFailed)
		s.logger.ErrorwCtx(ctx, "Failed to emit enriched record",
			"error", err,
		)
		return err
	}

	metrics.ProcessorRecordsTotal.WithLabelValues(statusEmitted).Inc()
	metrics.ObserveProcessorDuration(time.Since(start), statusEmitted)
	s.logger.InfowCtx(ctx, "Record enriched and emitted",
		"sentiment", enriched.Sentiment,
		"category", enriched.Category,
		"competitors", len(enriched.DetectedCompetitors),
		"has_auto_reply", enriched.HasAutoReply(),
	)
	return nil
}

// validate covers Received to Validated: decode the envelope payload and
// parse the normalized schema. Every failure here is permanent.
func (s *Service) validate(envelope models.PushEnvelope) (*models.NormalizedRecord, error) {
	payload, err := envelope.DecodePayload()
	if err != nil {
		return nil, err
	}

	return models.ParseNormalizedRecord(payload)
}

// Process covers Validated through Assembled. The source record is cloned,
// never mutated; nothing escapes until the full EnrichedRecord exists, so a
// cancelled invocation is always safe to retry from the start.
func (s *Service) Process(ctx context.Context, record models.NormalizedRecord) (*models.EnrichedRecord, error) {
	enrichment, err := s.analyzer.Analyze(ctx, record.TextContent)
	if err != nil {
		return nil, err
	}
	s.logger.DebugwCtx(ctx, "Record analyzed",
		"sentiment", enrichment.Sentiment,
		"category", enrichment.Category,
	)

	var autoReply *string
	if replyText, ok := s.replier.Generate(ctx, record.TextContent, enrichment.Sentiment, enrichment.Category); ok {
		autoReply = &replyText
	}
	s.logger.DebugwCtx(ctx, "Reply attempted",
		"has_auto_reply", autoReply != nil,
	)

	return &models.EnrichedRecord{
		NormalizedRecord:       record.Clone(),
		Sentiment:              enrichment.Sentiment,
		Category:               enrichment.Category,
		DetectedCompetitors:    enrichment.Competitors,
		AutoReplyText:          autoReply,
		ProcessingTimestampUTC: models.FormatTimestampUTC(s.now()),
	}, nil
}

func (s *Service) emit(ctx context.Context, enriched *models.EnrichedRecord) error {
	body, err := json.Marshal(enriched)
	if err != nil {
		return err
	}

	envelope := models.NewPushEnvelope(body)
	envelope.SetAttribute("record_message_id", enriched.MessageID)
	envelope.SetAttribute("source_platform", enriched.SourcePlatform)
	if traceID := logging.GetTraceID(ctx); traceID != "" {
		envelope.SetAttribute("trace_id", traceID)
	}

	return s.emitter.Publish(ctx, s.outputTopic, envelope)
}
