package mq

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ClientInterface is the queue contract the consumers and the tracker
// fleet depend on; it exists so tests can substitute the mock package.
type ClientInterface interface {
	// Push publishes data to the queue and blocks until the broker
	// confirms it, retrying with backoff while disconnected. The
	// context bounds the wait.
	Push(ctx context.Context, data []byte) error

	// UnsafePush publishes without waiting for a broker confirmation.
	// It fails only when the client is not connected.
	UnsafePush(ctx context.Context, data []byte) error

	// Consume streams queue deliveries. Callers must Ack each delivery
	// once processed, or Nack it on failure.
	Consume() (<-chan amqp.Delivery, error)

	// Close shuts down the channel and connection.
	Close() error
}

var _ ClientInterface = (*Client)(nil)
