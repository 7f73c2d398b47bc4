package store

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Instrument wraps a Store so every operation feeds the given Prometheus
// collectors: ops counts outcomes by {operation, status}, durations times
// each call by {operation}. Tail and ByChild share the "query" label.
func Instrument(next Store, ops *prometheus.CounterVec, durations *prometheus.HistogramVec) Store {
	return &instrumentedStore{next: next, ops: ops, durations: durations}
}

type instrumentedStore struct {
	next      Store
	ops       *prometheus.CounterVec
	durations *prometheus.HistogramVec
}

func (s *instrumentedStore) observe(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	s.ops.WithLabelValues(operation, status).Inc()
	s.durations.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (s *instrumentedStore) Get(ctx context.Context, path string, v any) (bool, error) {
	start := time.Now()
	found, err := s.next.Get(ctx, path, v)
	s.observe("get", start, err)
	return found, err
}

func (s *instrumentedStore) Set(ctx context.Context, path string, v any) error {
	start := time.Now()
	err := s.next.Set(ctx, path, v)
	s.observe("set", start, err)
	return err
}

func (s *instrumentedStore) Update(ctx context.Context, path string, children map[string]any) error {
	start := time.Now()
	err := s.next.Update(ctx, path, children)
	s.observe("update", start, err)
	return err
}

func (s *instrumentedStore) Push(ctx context.Context, path string, v any) (string, error) {
	start := time.Now()
	key, err := s.next.Push(ctx, path, v)
	s.observe("push", start, err)
	return key, err
}

func (s *instrumentedStore) Delete(ctx context.Context, path string) error {
	start := time.Now()
	err := s.next.Delete(ctx, path)
	s.observe("delete", start, err)
	return err
}

func (s *instrumentedStore) Tail(ctx context.Context, path, orderChild string, limit int) ([]Node, error) {
	start := time.Now()
	nodes, err := s.next.Tail(ctx, path, orderChild, limit)
	s.observe("query", start, err)
	return nodes, err
}

func (s *instrumentedStore) ByChild(ctx context.Context, path, child string, value any) ([]Node, error) {
	start := time.Now()
	nodes, err := s.next.ByChild(ctx, path, child, value)
	s.observe("query", start, err)
	return nodes, err
}
