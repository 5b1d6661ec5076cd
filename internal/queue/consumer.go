package queue

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/oklog/ulid/v2"

	"github.com/surgewatch/runmon/internal/metrics"
)

// HandlerFunc processes one raw message body. The returned error is
// used for logging and metrics only; the message is acknowledged either
// way, matching the at-most-once delivery the upstream systems expect.
type HandlerFunc func(ctx context.Context, body []byte) error

// Consumer drains one queue sequentially. Messages are processed one at
// a time to completion; create-vs-update reconciliation is not safe
// under concurrent execution for the same instance key.
type Consumer struct {
	subscriber message.Subscriber
	queue      string
	handler    HandlerFunc
	logger     *slog.Logger
}

// NewConsumer creates a consumer for one queue.
func NewConsumer(sub message.Subscriber, queue string, handler HandlerFunc, logger *slog.Logger) *Consumer {
	return &Consumer{
		subscriber: sub,
		queue:      queue,
		handler:    handler,
		logger:     logger.With("queue", queue),
	}
}

// Run consumes until ctx is cancelled or the subscription closes.
func (c *Consumer) Run(ctx context.Context) error {
	msgs, err := c.subscriber.Subscribe(ctx, c.queue)
	if err != nil {
		return err
	}

	c.logger.Info("consumer started")
	for msg := range msgs {
		c.process(ctx, msg)
	}
	c.logger.Info("consumer stopped")
	return nil
}

func (c *Consumer) process(ctx context.Context, msg *message.Message) {
	metrics.MessagesReceived.Add(1)

	id := msg.UUID
	if id == "" {
		id = ulid.Make().String()
	}

	if err := c.handler(ctx, msg.Payload); err != nil {
		metrics.MessagesFailed.Add(1)
		c.logger.Error("message processing failed", "message_id", id, "error", err)
	} else {
		c.logger.Debug("message processed", "message_id", id)
	}

	// Processing failure drops the message; retry is not this layer's
	// concern.
	msg.Ack()
}
