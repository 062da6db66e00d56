// Albumflow - Construction Documentation Tracking
// Copyright 2026 Albumflow Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/albumflow/albumflow

// Package eventbus carries album status events from the API layer to
// every delivery surface (WebSocket hub, other server instances).
// Local deployments run on Watermill's in-process GoChannel; multi-node
// deployments switch to NATS JetStream via configuration.
package eventbus

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	nc "github.com/nats-io/nats.go"

	"github.com/albumflow/albumflow/internal/config"
	"github.com/albumflow/albumflow/internal/metrics"
	"github.com/albumflow/albumflow/internal/models"
)

// TopicStatusEvents is the single topic all album status changes flow
// through.
const TopicStatusEvents = "albums.status"

// Bus is a thin wrapper pairing a Watermill publisher and subscriber.
type Bus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	logger     watermill.LoggerAdapter
}

// NewInProcess builds a bus on Watermill's GoChannel pub/sub. Used for
// single-node deployments and tests.
func NewInProcess() *Bus {
	logger := watermill.NewStdLogger(false, false)
	ps := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 256,
	}, logger)
	return &Bus{publisher: ps, subscriber: ps, logger: logger}
}

// NewNATS builds a bus on NATS JetStream so events survive restarts
// and reach every server instance.
func NewNATS(cfg *config.NATSConfig) (*Bus, error) {
	logger := watermill.NewStdLogger(false, false)

	marshaler := &nats.NATSMarshaler{}
	jsConfig := nats.JetStreamConfig{
		AutoProvision: true,
		DurablePrefix: "albumflow",
	}
	options := []nc.Option{
		nc.RetryOnFailedConnect(true),
		nc.MaxReconnects(-1),
	}

	publisher, err := nats.NewPublisher(nats.PublisherConfig{
		URL:         cfg.URL,
		Marshaler:   marshaler,
		NatsOptions: options,
		JetStream:   jsConfig,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create nats publisher: %w", err)
	}

	subscriber, err := nats.NewSubscriber(nats.SubscriberConfig{
		URL:         cfg.URL,
		NatsOptions: options,
		Unmarshaler: marshaler,
		JetStream:   jsConfig,
	}, logger)
	if err != nil {
		_ = publisher.Close()
		return nil, fmt.Errorf("failed to create nats subscriber: %w", err)
	}

	return &Bus{publisher: publisher, subscriber: subscriber, logger: logger}, nil
}

// New selects the transport from configuration.
func New(cfg *config.NATSConfig) (*Bus, error) {
	if cfg != nil && cfg.Enabled {
		return NewNATS(cfg)
	}
	return NewInProcess(), nil
}

// Publish serializes a status event onto the bus.
func (b *Bus) Publish(ctx context.Context, event *models.StatusEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal status event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("event_id", event.EventID)
	msg.Metadata.Set("album_id", event.AlbumID)

	if err := b.publisher.Publish(TopicStatusEvents, msg); err != nil {
		return fmt.Errorf("failed to publish status event: %w", err)
	}
	metrics.EventsPublished.Inc()
	return nil
}

// Subscribe returns the stream of status event messages. Callers must
// Ack or Nack every message.
func (b *Bus) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	ch, err := b.subscriber.Subscribe(ctx, TopicStatusEvents)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", TopicStatusEvents, err)
	}
	return ch, nil
}

// DecodeStatusEvent deserializes a bus message back into an event.
func DecodeStatusEvent(msg *message.Message) (*models.StatusEvent, error) {
	var ev models.StatusEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		return nil, fmt.Errorf("failed to decode status event: %w", err)
	}
	return &ev, nil
}

// Close shuts the transport down. GoChannel shares one value for both
// roles, so closing the publisher is sufficient there.
func (b *Bus) Close() error {
	err := b.publisher.Close()
	if any(b.subscriber) != any(b.publisher) {
		if serr := b.subscriber.Close(); err == nil {
			err = serr
		}
	}
	return err
}
