package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"firebase.google.com/go/v4/db"
)

// FirebaseStore is the Store implementation backed by the hosted realtime
// database. It is a thin veneer: every method is one round trip against
// the managed backend.
type FirebaseStore struct {
	client *db.Client
}

// NewFirebase creates a FirebaseStore on top of an initialized database client.
func NewFirebase(client *db.Client) (*FirebaseStore, error) {
	if client == nil {
		return nil, errors.New("database client cannot be nil")
	}
	return &FirebaseStore{client: client}, nil
}

// Get implements Store.
func (s *FirebaseStore) Get(ctx context.Context, path string, v any) (bool, error) {
	var raw json.RawMessage
	if err := s.client.NewRef(path).Get(ctx, &raw); err != nil {
		return false, fmt.Errorf("get %q: %w", path, err)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decode %q: %w", path, err)
	}
	return true, nil
}

// Set implements Store.
func (s *FirebaseStore) Set(ctx context.Context, path string, v any) error {
	if err := s.client.NewRef(path).Set(ctx, v); err != nil {
		return fmt.Errorf("set %q: %w", path, err)
	}
	return nil
}

// Update implements Store.
func (s *FirebaseStore) Update(ctx context.Context, path string, children map[string]any) error {
	if err := s.client.NewRef(path).Update(ctx, children); err != nil {
		return fmt.Errorf("update %q: %w", path, err)
	}
	return nil
}

// Push implements Store.
func (s *FirebaseStore) Push(ctx context.Context, path string, v any) (string, error) {
	ref, err := s.client.NewRef(path).Push(ctx, v)
	if err != nil {
		return "", fmt.Errorf("push %q: %w", path, err)
	}
	return ref.Key, nil
}

// Delete implements Store.
func (s *FirebaseStore) Delete(ctx context.Context, path string) error {
	if err := s.client.NewRef(path).Delete(ctx); err != nil {
		return fmt.Errorf("delete %q: %w", path, err)
	}
	return nil
}

// Tail implements Store.
func (s *FirebaseStore) Tail(ctx context.Context, path, orderChild string, limit int) ([]Node, error) {
	q := s.client.NewRef(path).OrderByChild(orderChild)
	if limit > 0 {
		q = q.LimitToLast(limit)
	}
	results, err := q.GetOrdered(ctx)
	if err != nil {
		return nil, fmt.Errorf("tail %q: %w", path, err)
	}
	return queryNodes(results)
}

// ByChild implements Store.
func (s *FirebaseStore) ByChild(ctx context.Context, path, child string, value any) ([]Node, error) {
	results, err := s.client.NewRef(path).OrderByChild(child).EqualTo(value).GetOrdered(ctx)
	if err != nil {
		return nil, fmt.Errorf("query %q by %q: %w", path, child, err)
	}
	return queryNodes(results)
}

func queryNodes(results []db.QueryNode) ([]Node, error) {
	nodes := make([]Node, 0, len(results))
	for _, r := range results {
		var raw json.RawMessage
		if err := r.Unmarshal(&raw); err != nil {
			return nil, err
		}
		nodes = append(nodes, Node{Key: r.Key(), Raw: raw})
	}
	return nodes, nil
}

// Ensure both implementations satisfy Store.
var (
	_ Store = (*FirebaseStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
