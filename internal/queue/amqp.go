// Package queue wires the AMQP transport: durable-queue subscribers for
// the dialect consumers and a publisher for the relay path.
package queue

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Connect opens one AMQP connection with automatic reconnect, shared by
// all publishers and subscribers.
func Connect(url string, logger *slog.Logger) (*amqp.ConnectionWrapper, watermill.LoggerAdapter, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	conn, err := amqp.NewConnection(amqp.ConnectionConfig{
		AmqpURI:   url,
		TLSConfig: nil,
		Reconnect: amqp.DefaultReconnectConfig(),
	}, wmLogger)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to AMQP broker: %w", err)
	}
	return conn, wmLogger, nil
}

// NewSubscriber creates a durable-queue subscriber on the shared
// connection. The subscribe topic maps directly to the queue name.
func NewSubscriber(url string, conn *amqp.ConnectionWrapper, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	sub, err := amqp.NewSubscriberWithConnection(amqp.NewDurableQueueConfig(url), logger, conn)
	if err != nil {
		return nil, fmt.Errorf("creating AMQP subscriber: %w", err)
	}
	return sub, nil
}

// NewPublisher creates a durable-queue publisher on the shared
// connection.
func NewPublisher(url string, conn *amqp.ConnectionWrapper, logger watermill.LoggerAdapter) (message.Publisher, error) {
	pub, err := amqp.NewPublisherWithConnection(amqp.NewDurableQueueConfig(url), logger, conn)
	if err != nil {
		return nil, fmt.Errorf("creating AMQP publisher: %w", err)
	}
	return pub, nil
}
