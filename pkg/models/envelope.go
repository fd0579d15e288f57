package models

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PushEnvelope is the transport envelope carried on the bus. The payload is a
// base64-encoded UTF-8 JSON document, mirroring push-subscription delivery.
type PushEnvelope struct {
	MessageID   string            `json:"message_id"`
	Data        string            `json:"data"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	PublishTime time.Time         `json:"publish_time"`
}

func NewPushEnvelope(payload []byte) PushEnvelope {
	return PushEnvelope{
		MessageID:   uuid.New().String(),
		Data:        base64.StdEncoding.EncodeToString(payload),
		PublishTime: time.Now().UTC(),
	}
}

func (e PushEnvelope) DecodePayload() ([]byte, error) {
	if e.Data == "" {
		return nil, &ValidationError{Field: "data", Message: "envelope has no data"}
	}
	payload, err := base64.StdEncoding.DecodeString(e.Data)
	if err != nil {
		return nil, &ValidationError{Field: "data", Message: fmt.Sprintf("invalid base64 payload: %v", err)}
	}
	return payload, nil
}

func (e *PushEnvelope) SetAttribute(key, value string) {
	if e.Attributes == nil {
		e.Attributes = make(map[string]string)
	}
	e.Attributes[key] = value
}
