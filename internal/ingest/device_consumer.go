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
	"geotrack.dev/geotrack/pkg/mq"
)

// DeviceAnnouncement is the wire form of a tracker announcing itself
// before its first position report.
type DeviceAnnouncement struct {
	DeviceID string `json:"deviceId"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	OwnerID  string `json:"ownerId"`
}

// DeviceConsumer consumes device announcements from RabbitMQ and imports
// them into the device registry.
type DeviceConsumer struct {
	logger   *slog.Logger
	service  *tracking.Service
	mqClient mq.ClientInterface
	done     chan struct{}
}

// DeviceConsumerConfig holds the configuration for the DeviceConsumer.
type DeviceConsumerConfig struct {
	Logger  *slog.Logger
	Service *tracking.Service

	// RabbitMQURL and QueueName configure the default MQ client. Ignored
	// when MQClient is set.
	RabbitMQURL string
	QueueName   string

	// MQClient overrides the MQ client; used by tests.
	MQClient mq.ClientInterface
}

// NewDeviceConsumer creates a new DeviceConsumer instance.
func NewDeviceConsumer(cfg *DeviceConsumerConfig) (*DeviceConsumer, error) {
	if cfg == nil {
		return nil, errors.New("device consumer config cannot be nil")
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

	return &DeviceConsumer{
		logger:   cfg.Logger,
		service:  cfg.Service,
		mqClient: mqClient,
		done:     make(chan struct{}),
	}, nil
}

// Start begins consuming device announcements.
func (c *DeviceConsumer) Start(ctx context.Context) error {
	c.logger.Info("starting device consumer")

	// Wait for MQ client to be ready
	time.Sleep(2 * time.Second)

	deliveries, err := c.mqClient.Consume()
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info("device consumer started, waiting for messages")

	go c.processMessages(ctx, deliveries)

	return nil
}

// Done is closed when message processing has stopped.
func (c *DeviceConsumer) Done() <-chan struct{} {
	return c.done
}

// Close shuts down the MQ client.
func (c *DeviceConsumer) Close() error {
	return c.mqClient.Close()
}

func (c *DeviceConsumer) processMessages(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("context canceled, stopping device message processing")
			close(c.done)
			return

		case delivery, ok := <-deliveries:
			if !ok {
				c.logger.Warn("device deliveries channel closed")
				close(c.done)
				return
			}

			c.handleDelivery(ctx, delivery)
		}
	}
}

// handleDelivery imports a single announced device. Malformed and invalid
// announcements are acked and dropped; store failures nack with requeue.
func (c *DeviceConsumer) handleDelivery(ctx context.Context, delivery amqp.Delivery) {
	var announcement DeviceAnnouncement
	if err := json.Unmarshal(delivery.Body, &announcement); err != nil {
		c.logger.Error("failed to decode device announcement", "error", err)
		c.ackDevice(delivery)
		return
	}

	device, err := c.service.ImportDevice(ctx, announcement.DeviceID, tracking.DeviceInput{
		Name:    announcement.Name,
		Type:    announcement.Type,
		OwnerID: announcement.OwnerID,
	})
	switch {
	case err == nil:
		c.logger.Info("device announcement processed",
			"device_id", device.ID,
			"owner", device.OwnerID,
		)
		c.ackDevice(delivery)

	case tracking.IsValidation(err):
		c.logger.Warn("dropping invalid device announcement",
			"device_id", announcement.DeviceID,
			"error", err,
		)
		c.ackDevice(delivery)

	default:
		c.logger.Error("failed to import device",
			"device_id", announcement.DeviceID,
			"error", err,
		)
		if nackErr := delivery.Nack(false, true); nackErr != nil {
			c.logger.Error("failed to nack message", "error", nackErr)
		}
	}
}

func (c *DeviceConsumer) ackDevice(delivery amqp.Delivery) {
	if err := delivery.Ack(false); err != nil {
		c.logger.Error("failed to ack message", "error", err)
	}
}
