package storage

import (
	"context"

	"insightstream/internal/logger"
	"insightstream/pkg/logging"
	"insightstream/pkg/models"
	"insightstream/pkg/tracing"
)

// Handler consumes enriched records off the classified feedback topic and
// persists them. Malformed envelopes are consumed without retry; a database
// failure is returned so the broker redelivers.
type Handler struct {
	repo   Repository
	logger logger.Logger
}

func NewHandler(repo Repository, log logger.Logger) *Handler {
	return &Handler{
		repo:   repo,
		logger: log,
	}
}

func (h *Handler) Handle(ctx context.Context, envelope models.PushEnvelope) error {
	ctx, span := tracing.GetTracer("storage").Start(ctx, "storage.handle")
	defer span.End()

	payload, err := envelope.DecodePayload()
	if err != nil {
		h.logger.WarnwCtx(ctx, "Skipping envelope with undecodable payload",
			"message_id", envelope.MessageID,
			"error", err,
		)
		return nil
	}

	record, err := models.ParseEnrichedRecord(payload)
	if err != nil {
		h.logger.WarnwCtx(ctx, "Skipping malformed enriched record",
			"message_id", envelope.MessageID,
			"error", err,
		)
		return nil
	}

	ctx = logging.WithMessageID(ctx, record.MessageID)
	ctx = logging.WithPlatform(ctx, record.SourcePlatform)

	if err := h.repo.Upsert(ctx, record); err != nil {
		h.logger.ErrorwCtx(ctx, "Failed to store enriched record",
			"error", err,
		)
		return err
	}

	h.logger.InfowCtx(ctx, "Enriched record stored",
		"category", record.Category,
		"sentiment", record.Sentiment,
	)
	return nil
}
