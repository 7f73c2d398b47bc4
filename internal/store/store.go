// Package store abstracts the hosted tree-structured JSON document store
// that holds all application data. Paths address nodes in a single tree
// ("devices/abc", "positions/abc/xyz"); every operation is one network
// round trip against the backing store.
package store

import (
	"context"
	"encoding/json"
)

// Node is one child of a queried location: its store key and raw JSON value.
type Node struct {
	Key string
	Raw json.RawMessage
}

// Store is the document store client interface. Implementations must not
// add transactional guarantees across calls: field writes are last-writer-wins,
// which is the backing store's native semantics.
type Store interface {
	// Get reads the node at path into v. Returns false when the node is
	// absent, leaving v untouched.
	Get(ctx context.Context, path string, v any) (bool, error)

	// Set overwrites the node at path with v. Setting nil removes the node.
	Set(ctx context.Context, path string, v any) error

	// Update applies a batched children update under path. Keys may be
	// nested child paths ("id/read"); all entries are applied as one write.
	Update(ctx context.Context, path string, children map[string]any) error

	// Push stores v under a newly generated child key of path and returns
	// the key. Generated keys are time-ordered: lexical key order equals
	// arrival order, even for pushes within the same millisecond.
	Push(ctx context.Context, path string, v any) (string, error)

	// Delete removes the subtree at path. Deleting an absent node is not
	// an error.
	Delete(ctx context.Context, path string) error

	// Tail returns the last limit children of path ordered by the indexed
	// child field orderChild, in ascending store order. A non-positive
	// limit returns all children.
	Tail(ctx context.Context, path, orderChild string, limit int) ([]Node, error)

	// ByChild returns the children of path whose indexed child field
	// equals value, in ascending store order.
	ByChild(ctx context.Context, path, child string, value any) ([]Node, error)
}
