// Package ingest consumes position reports from RabbitMQ and feeds them
// into the tracking service.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"geotrack.dev/geotrack/internal/tracking"
	"geotrack.dev/geotrack/pkg/metrics"
	"geotrack.dev/geotrack/pkg/mq"
)

// Consumer consumes position reports from RabbitMQ and ingests them.
type Consumer struct {
	logger   *slog.Logger
	service  *tracking.Service
	mqClient mq.ClientInterface
	metrics  *metrics.ConsumerMetrics // Optional metrics
	queue    string
	done     chan struct{}
}

// ConsumerConfig holds the configuration for the Consumer.
type ConsumerConfig struct {
	Logger  *slog.Logger
	Service *tracking.Service

	// RabbitMQURL and QueueName configure the default MQ client. Ignored
	// when MQClient is set.
	RabbitMQURL string
	QueueName   string

	// MQClient overrides the MQ client; used by tests.
	MQClient mq.ClientInterface

	// Metrics is the optional Prometheus metrics collector.
	Metrics *metrics.ConsumerMetrics
}

// NewConsumer creates a new Consumer instance.
func NewConsumer(cfg *ConsumerConfig) (*Consumer, error) {
	if cfg == nil {
		return nil, errors.New("consumer config cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.Service == nil {
		return nil, errors.New("service cannot be nil")
	}

	mqClient := cfg.MQClient
	if mqClient == nil {
		if cfg.RabbitMQURL == "" {
			return nil, errors.New("rabbitmq URL cannot be empty")
		}
		if cfg.QueueName == "" {
			return nil, errors.New("queue name cannot be empty")
		}
		mqClient = mq.New(cfg.QueueName, cfg.RabbitMQURL, cfg.Logger)
	}

	return &Consumer{
		logger:   cfg.Logger,
		service:  cfg.Service,
		mqClient: mqClient,
		metrics:  cfg.Metrics,
		queue:    cfg.QueueName,
		done:     make(chan struct{}),
	}, nil
}

// Start begins consuming position reports.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("starting report consumer")

	// Wait for MQ client to be ready
	time.Sleep(2 * time.Second)

	deliveries, err := c.mqClient.Consume()
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info("report consumer started, waiting for messages")

	if c.metrics != nil {
		c.metrics.ActiveConsumers.Inc()
	}
	go c.processMessages(ctx, deliveries)

	return nil
}

// Done is closed when message processing has stopped.
func (c *Consumer) Done() <-chan struct{} {
	return c.done
}

// Close shuts down the MQ client.
func (c *Consumer) Close() error {
	return c.mqClient.Close()
}

// processMessages processes incoming messages from the deliveries channel.
func (c *Consumer) processMessages(ctx context.Context, deliveries <-chan amqp.Delivery) {
	defer func() {
		if c.metrics != nil {
			c.metrics.ActiveConsumers.Dec()
		}
		close(c.done)
	}()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("context canceled, stopping message processing")
			return

		case delivery, ok := <-deliveries:
			if !ok {
				c.logger.Warn("deliveries channel closed")
				return
			}

			c.handleDelivery(ctx, delivery)
		}
	}
}

// handleDelivery processes a single position report. Undecodable and
// invalid reports are acked and dropped so they never requeue; store
// failures nack with requeue.
func (c *Consumer) handleDelivery(ctx context.Context, delivery amqp.Delivery) {
	start := time.Now()

	var report tracking.PositionReport
	if err := json.Unmarshal(delivery.Body, &report); err != nil {
		c.logger.Error("failed to decode position report", "error", err)
		c.trackError("decode")
		c.ack(delivery)
		return
	}

	position, err := c.service.ReportPosition(ctx, report)
	switch {
	case err == nil:
		c.logger.Debug("position report ingested",
			"device_id", report.DeviceID,
			"position_id", position.ID,
		)
		c.trackProcessed(start)
		c.ack(delivery)

	case tracking.IsValidation(err) || tracking.IsNotFound(err):
		c.logger.Warn("dropping rejected position report",
			"device_id", report.DeviceID,
			"error", err,
		)
		c.trackError("rejected")
		c.ack(delivery)

	default:
		c.logger.Error("failed to ingest position report",
			"device_id", report.DeviceID,
			"error", err,
		)
		c.trackError("store")
		if nackErr := delivery.Nack(false, true); nackErr != nil {
			c.logger.Error("failed to nack message", "error", nackErr)
		}
	}
}

func (c *Consumer) ack(delivery amqp.Delivery) {
	if err := delivery.Ack(false); err != nil {
		c.logger.Error("failed to ack message", "error", err)
	}
}

func (c *Consumer) trackProcessed(start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.ReportsTotal.WithLabelValues(c.queue, "success").Inc()
	c.metrics.ProcessingDuration.WithLabelValues(c.queue).Observe(time.Since(start).Seconds())
}

func (c *Consumer) trackError(reason string) {
	if c.metrics == nil {
		return
	}
	c.metrics.ReportErrors.WithLabelValues(c.queue, reason).Inc()
}
