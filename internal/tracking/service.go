package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"geotrack.dev/geotrack/internal/identity"
	"geotrack.dev/geotrack/internal/store"
	"geotrack.dev/geotrack/pkg/metrics"
)

// Service implements the tracking domain operations on top of the
// document store and the identity provider.
type Service struct {
	logger  *slog.Logger
	store   store.Store
	ident   identity.Provider
	metrics *metrics.APIMetrics // Optional metrics
	now     func() time.Time
}

// Config holds the configuration for the Service.
type Config struct {
	Logger   *slog.Logger
	Store    store.Store
	Identity identity.Provider

	// Metrics is the optional Prometheus metrics collector.
	Metrics *metrics.APIMetrics

	// Now overrides the clock; used by tests. Defaults to time.Now.
	Now func() time.Time
}

// New creates a new Service instance.
func New(cfg *Config) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("service config cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.Store == nil {
		return nil, errors.New("store cannot be nil")
	}

	if cfg.Identity == nil {
		return nil, errors.New("identity provider cannot be nil")
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	st := cfg.Store
	if cfg.Metrics != nil {
		st = store.Instrument(st, cfg.Metrics.StoreOperationsTotal, cfg.Metrics.StoreOperationTime)
	}

	return &Service{
		logger:  cfg.Logger,
		store:   st,
		ident:   cfg.Identity,
		metrics: cfg.Metrics,
		now:     now,
	}, nil
}

// timestamp returns the current time in the stored ISO-8601 format.
func (s *Service) timestamp() string {
	return formatTime(s.now())
}

// decodeNodes unmarshals query results into out, which must be a pointer
// to a slice whose elements carry an ID field set from the node key.
func decodePositions(nodes []store.Node) ([]Position, error) {
	positions := make([]Position, 0, len(nodes))
	for _, n := range nodes {
		var p Position
		if err := json.Unmarshal(n.Raw, &p); err != nil {
			return nil, err
		}
		p.ID = n.Key
		positions = append(positions, p)
	}
	return positions, nil
}

// getDevice loads a device document or reports NotFoundError.
func (s *Service) getDevice(ctx context.Context, deviceID string) (*Device, error) {
	var device Device
	found, err := s.store.Get(ctx, "devices/"+deviceID, &device)
	if err != nil {
		return nil, upstreamErr(err)
	}
	if !found {
		return nil, &NotFoundError{Resource: "device", ID: deviceID}
	}
	device.ID = deviceID
	return &device, nil
}
