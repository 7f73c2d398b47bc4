// Package mq provides a RabbitMQ client with automatic reconnection and error handling.
package mq

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	amqp "github.com/rabbitmq/amqp091-go"

	"geotrack.dev/geotrack/pkg/metrics"
)

const (
	// Delay between reconnection attempts after a connection failure.
	reconnectDelay = 5 * time.Second

	// Delay before re-initializing the channel after a channel exception.
	reInitDelay = 2 * time.Second

	// Push retry backoff bounds.
	initialBackoff = 100 * time.Millisecond
	maxBackoff     = 10 * time.Second

	// Push retries give up after this many attempts.
	maxRetryAttempts = 5
)

var (
	errNotConnected       = errors.New("not connected to a server")
	errAlreadyClosed      = errors.New("already closed: not connected to the server")
	errShutdown           = errors.New("client is shutting down")
	errMaxRetriesExceeded = errors.New("maximum retry attempts exceeded")
)

// Client publishes to and consumes from a single queue, reconnecting in
// the background whenever the connection or channel drops. Message
// bodies are JSON documents.
type Client struct {
	mu         sync.Mutex
	logger     *slog.Logger
	queueName  string
	connection *amqp.Connection
	channel    *amqp.Channel
	shutdown   chan bool
	connClosed chan *amqp.Error
	chanClosed chan *amqp.Error
	confirms   chan amqp.Confirmation
	ready      bool
	metrics    *metrics.MQMetrics // Optional metrics
}

// New creates a client for the given queue and starts connecting to addr
// in the background.
func New(queueName, addr string, logger *slog.Logger) *Client {
	c := &Client{
		logger:    logger,
		queueName: queueName,
		shutdown:  make(chan bool),
	}
	go c.reconnectLoop(addr)
	return c
}

// SetMetrics attaches a metrics collector. Call before the client starts
// carrying traffic.
func (c *Client) SetMetrics(m *metrics.MQMetrics) {
	c.metrics = m
}

// reconnectLoop dials until a connection sticks, then hands off to the
// channel init loop; it returns only on shutdown.
func (c *Client) reconnectLoop(addr string) {
	for {
		c.setReady(false)

		c.logger.Info("attempting to connect")

		if c.metrics != nil {
			c.metrics.ReconnectAttempts.Inc()
		}

		conn, err := c.connect(addr)
		if err != nil {
			c.logger.Error("failed to connect, retrying", "error", err)

			select {
			case <-c.shutdown:
				return
			case <-time.After(reconnectDelay):
			}
			continue
		}

		if done := c.channelLoop(conn); done {
			return
		}
	}
}

func (c *Client) connect(addr string) (*amqp.Connection, error) {
	conn, err := amqp.Dial(addr)
	if err != nil {
		if c.metrics != nil {
			c.metrics.ConnectionStatus.Set(0)
		}
		return nil, err
	}

	c.connection = conn
	c.connClosed = make(chan *amqp.Error, 1)
	conn.NotifyClose(c.connClosed)

	c.logger.Info("connected")

	if c.metrics != nil {
		c.metrics.ConnectionStatus.Set(1)
	}

	return conn, nil
}

// channelLoop keeps a live channel on conn, re-initializing after channel
// exceptions. It returns true on shutdown and false when the connection
// itself died and a fresh dial is needed.
func (c *Client) channelLoop(conn *amqp.Connection) bool {
	for {
		c.setReady(false)

		if err := c.initChannel(conn); err != nil {
			c.logger.Error("failed to initialize channel, retrying", "error", err)

			select {
			case <-c.shutdown:
				return true
			case <-c.connClosed:
				c.logger.Info("connection closed, reconnecting")
				return false
			case <-time.After(reInitDelay):
			}
			continue
		}

		select {
		case <-c.shutdown:
			return true
		case <-c.connClosed:
			c.logger.Info("connection closed, reconnecting")
			return false
		case <-c.chanClosed:
			c.logger.Info("channel closed, re-initializing")
		}
	}
}

// initChannel opens a confirm-mode channel and declares the queue.
func (c *Client) initChannel(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return err
	}

	if err := ch.Confirm(false); err != nil {
		return err
	}

	_, err = ch.QueueDeclare(
		c.queueName,
		false, // Durable
		false, // Delete when unused
		false, // Exclusive
		false, // No-wait
		nil,   // Arguments
	)
	if err != nil {
		return err
	}

	c.channel = ch
	c.chanClosed = make(chan *amqp.Error, 1)
	c.confirms = make(chan amqp.Confirmation, 1)
	ch.NotifyClose(c.chanClosed)
	ch.NotifyPublish(c.confirms)

	c.setReady(true)
	c.logger.Info("client ready", "queue", c.queueName)

	return nil
}

func (c *Client) setReady(ready bool) {
	c.mu.Lock()
	c.ready = ready
	c.mu.Unlock()
}

func (c *Client) isReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// Push publishes data and blocks until the broker confirms it. While the
// client is disconnected or the broker nacks, it retries with exponential
// backoff, giving up after maxRetryAttempts. The context bounds the
// whole call.
func (c *Client) Push(ctx context.Context, data []byte) error {
	if c.metrics != nil {
		timer := prometheus.NewTimer(c.metrics.PushDuration.WithLabelValues(c.queueName))
		defer timer.ObserveDuration()
	}

	backoff := initialBackoff
	attempts := 0

	// backoffWait sleeps for the current backoff, growing it for the
	// next round, unless the context or the client is done first.
	backoffWait := func() error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.shutdown:
			return errShutdown
		case <-time.After(backoff):
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			attempts++
			return nil
		}
	}

	for {
		if attempts >= maxRetryAttempts {
			c.logger.Error("giving up push", "attempts", attempts)

			if c.metrics != nil {
				c.metrics.PushFailures.WithLabelValues(c.queueName, "max_retries_exceeded").Inc()
			}

			return errMaxRetriesExceeded
		}

		if !c.isReady() {
			c.logger.Info("not connected, waiting for reconnection",
				"backoff", backoff,
				"attempts", attempts)
			if err := backoffWait(); err != nil {
				return err
			}
			continue
		}

		if err := c.UnsafePush(ctx, data); err != nil {
			c.logger.Error("push failed, backing off",
				"error", err,
				"backoff", backoff,
				"attempts", attempts)
			if err := backoffWait(); err != nil {
				return err
			}
			continue
		}

		select {
		case <-ctx.Done():
			if c.metrics != nil {
				c.metrics.PushFailures.WithLabelValues(c.queueName, "context_canceled").Inc()
			}
			return ctx.Err()
		case confirm := <-c.confirms:
			if confirm.Ack {
				if c.metrics != nil {
					c.metrics.MessagesPushed.WithLabelValues(c.queueName).Inc()
				}
				c.logger.Info("push confirmed",
					"delivery_tag", confirm.DeliveryTag,
					"attempts", attempts)
				return nil
			}

			c.logger.Warn("push not acknowledged, retrying",
				"delivery_tag", confirm.DeliveryTag,
				"backoff", backoff)
			if err := backoffWait(); err != nil {
				return err
			}
		}
	}
}

// UnsafePush publishes without waiting for a confirmation. It fails only
// when the client is not connected; the broker may still drop the
// message.
func (c *Client) UnsafePush(ctx context.Context, data []byte) error {
	if !c.isReady() {
		return errNotConnected
	}

	return c.channel.PublishWithContext(
		ctx,
		"",          // Exchange
		c.queueName, // Routing key
		false,       // Mandatory
		false,       // Immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        data,
		},
	)
}

// Consume streams deliveries from the queue with a prefetch of one.
// Callers must Ack each delivery once processed, or Nack it on failure;
// otherwise messages pile up on the broker.
func (c *Client) Consume() (<-chan amqp.Delivery, error) {
	if !c.isReady() {
		return nil, errNotConnected
	}

	if err := c.channel.Qos(
		1,     // prefetchCount
		0,     // prefetchSize
		false, // global
	); err != nil {
		return nil, err
	}

	return c.channel.Consume(
		c.queueName,
		"",    // Consumer
		false, // Auto-Ack
		false, // Exclusive
		false, // No-local
		false, // No-Wait
		nil,   // Args
	)
}

// Close stops the reconnect loop and shuts down the channel and
// connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.ready {
		return errAlreadyClosed
	}
	close(c.shutdown)

	if err := c.channel.Close(); err != nil {
		return err
	}
	if err := c.connection.Close(); err != nil {
		return err
	}

	c.ready = false

	if c.metrics != nil {
		c.metrics.ConnectionStatus.Set(0)
	}

	return nil
}
