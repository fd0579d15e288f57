package confighandler

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insightstream/internal/logger"
	"insightstream/pkg/models"
)

func eventEnvelope(t *testing.T, event models.ConfigUpdateEvent) models.PushEnvelope {
	t.Helper()
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	return models.NewPushEnvelope(payload)
}

func TestHandleConfigUpdateEventTriggersReload(t *testing.T) {
	reloads := 0
	handler := NewHandler(models.EventTypeLexiconUpdated, models.ServiceTypeProcessor, func(ctx context.Context) error {
		reloads++
		return nil
	}, logger.NopLogger())

	envelope := eventEnvelope(t, models.ConfigUpdateEvent{
		EventType:   models.EventTypeLexiconUpdated,
		ServiceType: models.ServiceTypeProcessor,
		Action:      models.ActionUpdate,
		Timestamp:   time.Now().UTC(),
	})

	require.NoError(t, handler.HandleConfigUpdateEvent(context.Background(), envelope))
	assert.Equal(t, 1, reloads)
}

func TestHandleConfigUpdateEventIgnoresMismatches(t *testing.T) {
	tests := []struct {
		name  string
		event models.ConfigUpdateEvent
	}{
		{
			name: "other event type",
			event: models.ConfigUpdateEvent{
				EventType:   models.EventTypeRoutingRuleUpdated,
				ServiceType: models.ServiceTypeProcessor,
				Action:      models.ActionUpdate,
			},
		},
		{
			name: "other service",
			event: models.ConfigUpdateEvent{
				EventType:   models.EventTypeLexiconUpdated,
				ServiceType: models.ServiceTypeActions,
				Action:      models.ActionUpdate,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reloads := 0
			handler := NewHandler(models.EventTypeLexiconUpdated, models.ServiceTypeProcessor, func(ctx context.Context) error {
				reloads++
				return nil
			}, logger.NopLogger())

			require.NoError(t, handler.HandleConfigUpdateEvent(context.Background(), eventEnvelope(t, tt.event)))
			assert.Zero(t, reloads)
		})
	}
}

func TestHandleConfigUpdateEventConsumesMalformedEvents(t *testing.T) {
	reloads := 0
	handler := NewHandler(models.EventTypeLexiconUpdated, models.ServiceTypeProcessor, func(ctx context.Context) error {
		reloads++
		return nil
	}, logger.NopLogger())

	tests := []struct {
		name     string
		envelope models.PushEnvelope
	}{
		{name: "empty payload", envelope: models.PushEnvelope{MessageID: "cfg-1"}},
		{name: "invalid base64", envelope: models.PushEnvelope{MessageID: "cfg-2", Data: "%%%"}},
		{name: "not json", envelope: models.NewPushEnvelope([]byte("not json"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, handler.HandleConfigUpdateEvent(context.Background(), tt.envelope))
		})
	}
	assert.Zero(t, reloads)
}

func TestHandleConfigUpdateEventPropagatesReloadError(t *testing.T) {
	handler := NewHandler(models.EventTypeRoutingRuleUpdated, models.ServiceTypeActions, func(ctx context.Context) error {
		return fmt.Errorf("mongo unavailable")
	}, logger.NopLogger())

	envelope := eventEnvelope(t, models.ConfigUpdateEvent{
		EventType:   models.EventTypeRoutingRuleUpdated,
		ServiceType: models.ServiceTypeActions,
		Action:      models.ActionReload,
	})

	err := handler.HandleConfigUpdateEvent(context.Background(), envelope)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mongo unavailable")
}

func TestHandleConfigUpdateEventNilReload(t *testing.T) {
	handler := NewHandler(models.EventTypeLexiconUpdated, models.ServiceTypeProcessor, nil, logger.NopLogger())

	envelope := eventEnvelope(t, models.ConfigUpdateEvent{
		EventType:   models.EventTypeLexiconUpdated,
		ServiceType: models.ServiceTypeProcessor,
		Action:      models.ActionUpdate,
	})

	require.NoError(t, handler.HandleConfigUpdateEvent(context.Background(), envelope))
}
