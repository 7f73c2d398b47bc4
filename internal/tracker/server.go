package tracker

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"geotrack.dev/geotrack/pkg/metrics"
	"geotrack.dev/geotrack/pkg/mq"
	"geotrack.dev/geotrack/pkg/simulator"
)

// ServerConfig holds the configuration for the simulator server.
type ServerConfig struct {
	// Logger is the structured logger
	Logger *slog.Logger
	// RabbitMQURL is the connection string for RabbitMQ
	RabbitMQURL string
	// ReportQueueName is the queue position reports are published to
	ReportQueueName string
	// DeviceQueueName is the queue device announcements are published to
	DeviceQueueName string
	// Interval is the time between position reports per tracker
	Interval time.Duration
	// TrackerCount is the number of simulated trackers
	TrackerCount int
	// CenterLat and CenterLng anchor the simulated fleet geographically
	CenterLat, CenterLng float64
	// SpreadMeters is how far from the center trackers start
	SpreadMeters float64
	// Metrics is the optional Prometheus metrics collector
	Metrics *metrics.TrackerMetrics
	// MQMetrics is the optional Prometheus metrics collector for MQ operations
	MQMetrics *metrics.MQMetrics
}

// Server manages a fleet of simulated trackers.
type Server struct {
	logger   *slog.Logger
	config   *ServerConfig
	trackers []*Tracker
	clients  []*mq.Client
	wg       sync.WaitGroup
	metrics  *metrics.TrackerMetrics
}

var (
	errInvalidTrackerCount = errors.New("tracker count must be greater than 0")
	errInvalidInterval     = errors.New("interval must be greater than 0")
	errLoggerRequired      = errors.New("logger is required")
)

// NewServer creates a new simulator server with the given configuration.
func NewServer(cfg *ServerConfig) (*Server, error) {
	if cfg.TrackerCount <= 0 {
		return nil, errInvalidTrackerCount
	}

	if cfg.Interval <= 0 {
		return nil, errInvalidInterval
	}

	if cfg.Logger == nil {
		return nil, errLoggerRequired
	}

	s := &Server{
		config:   cfg,
		trackers: make([]*Tracker, 0, cfg.TrackerCount),
		clients:  make([]*mq.Client, 0, 2*cfg.TrackerCount),
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
	}

	for i := 0; i < cfg.TrackerCount; i++ {
		reportClient := mq.New(cfg.ReportQueueName, cfg.RabbitMQURL, cfg.Logger.With(
			slog.String("component", "mq-client"),
			slog.Int("tracker_id", i),
		))
		deviceClient := mq.New(cfg.DeviceQueueName, cfg.RabbitMQURL, cfg.Logger.With(
			slog.String("component", "device-mq-client"),
			slog.Int("tracker_id", i),
		))

		if cfg.MQMetrics != nil {
			reportClient.SetMetrics(cfg.MQMetrics)
			deviceClient.SetMetrics(cfg.MQMetrics)
		}

		device := simulator.NewTracker(cfg.CenterLat, cfg.CenterLng, cfg.SpreadMeters)
		if device == nil {
			return nil, errors.New("failed to generate tracker device")
		}

		tracker := NewTracker(device, reportClient, deviceClient)
		if cfg.Metrics != nil {
			tracker.SetMetrics(cfg.Metrics)
		}

		s.clients = append(s.clients, reportClient, deviceClient)
		s.trackers = append(s.trackers, tracker)

		s.logger.Info("created tracker instance",
			"tracker_id", i,
			"device_id", device.DeviceID,
			"device_type", device.Type,
		)
	}

	return s, nil
}

// Run starts all trackers and blocks until shutdown signal is received.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	for i, tracker := range s.trackers {
		s.wg.Add(1)
		go s.runTracker(ctx, i, tracker)
	}

	s.logger.Info("tracker server started",
		"tracker_count", len(s.trackers),
		"interval", s.config.Interval,
	)

	select {
	case sig := <-sigChan:
		s.logger.Info("received shutdown signal", "signal", sig.String())
		cancel()
	case <-ctx.Done():
		s.logger.Info("context canceled, shutting down")
	}

	s.logger.Info("waiting for trackers to shut down...")
	s.wg.Wait()

	s.logger.Info("closing MQ clients...")
	s.closeClients()

	s.logger.Info("tracker server stopped")
	return nil
}

// runTracker announces one tracker and publishes its reports at the
// configured interval until the context ends.
func (s *Server) runTracker(ctx context.Context, id int, tracker *Tracker) {
	defer s.wg.Done()

	if s.metrics != nil {
		s.metrics.ActiveTrackers.Inc()
		defer s.metrics.ActiveTrackers.Dec()
	}

	trackerLogger := s.logger.With(slog.Int("tracker_id", id))

	if err := tracker.Announce(ctx); err != nil {
		trackerLogger.Error("failed to announce device", "error", err)
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	trackerLogger.Info("tracker started")

	for {
		select {
		case <-ctx.Done():
			trackerLogger.Info("tracker shutting down")
			return

		case <-ticker.C:
			if err := tracker.Report(ctx); err != nil {
				trackerLogger.Error("failed to publish position report", "error", err)
				continue
			}

			trackerLogger.Debug("position report published")
		}
	}
}

// closeClients closes all MQ clients gracefully.
func (s *Server) closeClients() {
	var wg sync.WaitGroup

	for i, client := range s.clients {
		wg.Add(1)
		go func(id int, c *mq.Client) {
			defer wg.Done()

			if err := c.Close(); err != nil {
				s.logger.Error("failed to close MQ client",
					"client_id", id,
					"error", err,
				)
				return
			}
		}(i, client)
	}

	wg.Wait()
}
