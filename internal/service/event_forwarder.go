package service

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"

	"rolplay-assistant-be/internal/pkg/logger"
	"rolplay-assistant-be/pkg/events"
)

// IEventForwarder relays in-process events to an external broker.
type IEventForwarder interface {
	Run(ctx context.Context) error
}

type EventSource interface {
	Subscribe(ctx context.Context) (<-chan *message.Message, error)
}

type eventForwarder struct {
	source EventSource
	sink   EventPublisher
	log    logger.ILogger
}

// NewEventForwarder forwards everything from source to sink. A nil sink drains
// the bus without forwarding.
func NewEventForwarder(source EventSource, sink EventPublisher, log logger.ILogger) IEventForwarder {
	return &eventForwarder{source: source, sink: sink, log: log}
}

// Run blocks until ctx is cancelled and the subscription closes.
func (f *eventForwarder) Run(ctx context.Context) error {
	messages, err := f.source.Subscribe(ctx)
	if err != nil {
		return err
	}

	f.log.Info("FORWARDER", "event forwarder started", map[string]interface{}{"sink": f.sink != nil})
	for msg := range messages {
		f.process(ctx, msg)
	}
	return nil
}

// process always acks. gochannel redelivers a nacked message immediately.
func (f *eventForwarder) process(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	event, err := events.Decode(msg.Payload)
	if err != nil {
		f.log.Warn("FORWARDER", "dropping undecodable event", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		return
	}
	if f.sink == nil {
		return
	}
	if err := f.sink.Publish(ctx, event); err != nil {
		f.log.Warn("FORWARDER", "failed to forward event", map[string]interface{}{
			"type":  event.EventType(),
			"error": err.Error(),
		})
	}
}
