package confighandler

import (
	"context"
	"encoding/json"

	"insightstream/internal/logger"
	"insightstream/pkg/models"
)

// ReloadFunc re-reads operator-managed tables after a config update event.
type ReloadFunc func(ctx context.Context) error

// Handler consumes config update events and triggers the matching reload.
// Events for other services or event types are ignored; malformed events are
// logged and consumed, never retried.
type Handler struct {
	expectedEventType   string
	expectedServiceType string
	reload              ReloadFunc
	logger              logger.Logger
}

func NewHandler(expectedEventType, expectedServiceType string, reload ReloadFunc, log logger.Logger) *Handler {
	return &Handler{
		expectedEventType:   expectedEventType,
		expectedServiceType: expectedServiceType,
		reload:              reload,
		logger:              log,
	}
}

func (h *Handler) HandleConfigUpdateEvent(ctx context.Context, envelope models.PushEnvelope) error {
	payload, err := envelope.DecodePayload()
	if err != nil {
		h.logger.WarnwCtx(ctx, "Config event has no decodable payload",
			"message_id", envelope.MessageID,
			"error", err,
		)
		return nil
	}

	var event models.ConfigUpdateEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		h.logger.WarnwCtx(ctx, "Failed to unmarshal config event",
			"message_id", envelope.MessageID,
			"error", err,
		)
		return nil
	}

	if event.EventType != h.expectedEventType {
		return nil
	}

	if event.ServiceType != h.expectedServiceType {
		return nil
	}

	h.logger.InfowCtx(ctx, "Received config update event",
		"event_type", event.EventType,
		"action", event.Action,
		"rule_id", event.RuleID,
	)

	if h.reload == nil {
		return nil
	}

	if err := h.reload(ctx); err != nil {
		h.logger.ErrorwCtx(ctx, "Failed to reload after config update",
			"event_type", event.EventType,
			"error", err,
		)
		return err
	}

	h.logger.InfowCtx(ctx, "Reload completed after config update",
		"event_type", event.EventType,
		"action", event.Action,
	)
	return nil
}
