package broker

import (
	"context"

	"insightstream/pkg/models"
)

type Producer interface {
	Publish(ctx context.Context, topic string, envelope models.PushEnvelope) error
	Close() error
}

type Consumer interface {
	Consume(ctx context.Context, topic string, handler HandlerFunc) error
	Close() error
	SetServiceName(name string)
}

type HandlerFunc func(ctx context.Context, envelope models.PushEnvelope) error
