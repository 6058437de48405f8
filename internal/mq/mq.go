package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/snapcal/apiserver/config"
)

// Message represents a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, msg Message) error

// Backend defines the broker-agnostic operations used by the app.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// Envelope is the JSON shape of a published domain event.
type Envelope struct {
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurredAt"`
	Data       json.RawMessage `json:"data"`
}

// Events publishes domain events (registrations, food log appends) to a
// single configured channel. Downstream consumers such as analytics or
// notification workers subscribe to the same channel.
type Events struct {
	backend Backend
	channel string
}

// NewEvents constructs an Events publisher over the given backend.
func NewEvents(backend Backend, channel string) *Events {
	return &Events{backend: backend, channel: channel}
}

// Publish wraps the payload in an envelope and sends it to the channel.
// The event type travels both in the envelope and as a message attribute
// so consumers can filter without decoding the body.
func (e *Events) Publish(ctx context.Context, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	body, err := json.Marshal(Envelope{
		Type:       eventType,
		OccurredAt: time.Now(),
		Data:       data,
	})
	if err != nil {
		return err
	}
	_, err = e.backend.Publish(ctx, e.channel, body, map[string]string{"type": eventType})
	return err
}

// Subscribe consumes envelopes from the events channel.
func (e *Events) Subscribe(ctx context.Context, handler Handler) error {
	return e.backend.Subscribe(ctx, e.channel, handler)
}

// Close closes the underlying backend.
func (e *Events) Close() error {
	return e.backend.Close()
}

// NewBackend constructs the broker backend selected by config. An empty
// backend name disables event publishing.
func NewBackend(ctx context.Context, cfg config.MQConfig) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "":
		return nil, nil
	case "rabbitmq":
		return NewRabbitMQClient(cfg.RabbitMQ)
	case "pubsub":
		return NewPubSubClient(ctx, cfg.PubSub)
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.Backend)
	}
}
