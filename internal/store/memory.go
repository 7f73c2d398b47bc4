package store

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-process implementation of Store used by tests and
// local development. It reproduces the hosted store's semantics: push-key
// ordering, ordered tail queries, batched children updates and
// last-writer-wins field writes.
type MemoryStore struct {
	mu     sync.RWMutex
	root   map[string]any
	ids    *pushIDGenerator
	now    func() time.Time
	writes int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		root: make(map[string]any),
		ids:  newPushIDGenerator(),
		now:  time.Now,
	}
}

// Writes returns the number of mutating operations performed so far.
// A batched children update counts as one write.
func (s *MemoryStore) Writes() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, path string, v any) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, ok := s.lookup(splitPath(path))
	if !ok || node == nil {
		return false, nil
	}

	raw, err := json.Marshal(node)
	if err != nil {
		return false, fmt.Errorf("failed to encode node at %q: %w", path, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("failed to decode node at %q: %w", path, err)
	}
	return true, nil
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, path string, v any) error {
	tree, err := toTree(v)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.writes++
	s.setNode(splitPath(path), tree)
	return nil
}

// Update implements Store.
func (s *MemoryStore) Update(_ context.Context, path string, children map[string]any) error {
	base := splitPath(path)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.writes++
	for child, v := range children {
		tree, err := toTree(v)
		if err != nil {
			return err
		}
		parts := append(append([]string{}, base...), splitPath(child)...)
		s.setNode(parts, tree)
	}
	return nil
}

// Push implements Store.
func (s *MemoryStore) Push(_ context.Context, path string, v any) (string, error) {
	tree, err := toTree(v)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.writes++
	key := s.ids.next(s.now())
	s.setNode(append(splitPath(path), key), tree)
	return key, nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.writes++
	s.setNode(splitPath(path), nil)
	return nil
}

// Tail implements Store.
func (s *MemoryStore) Tail(_ context.Context, path, orderChild string, limit int) ([]Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	children := s.orderedChildren(path, orderChild)
	if limit > 0 && len(children) > limit {
		children = children[len(children)-limit:]
	}
	return toNodes(children)
}

// ByChild implements Store.
func (s *MemoryStore) ByChild(_ context.Context, path, child string, value any) ([]Node, error) {
	want, err := toTree(value)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []childEntry
	for _, c := range s.orderedChildren(path, child) {
		if reflect.DeepEqual(childField(c.value, child), want) {
			matched = append(matched, c)
		}
	}
	return toNodes(matched)
}

type childEntry struct {
	key   string
	value any
}

// orderedChildren returns the children of path sorted ascending by the
// store's ordering for the given child field, with key order breaking ties.
func (s *MemoryStore) orderedChildren(path, orderChild string) []childEntry {
	node, ok := s.lookup(splitPath(path))
	if !ok {
		return nil
	}
	m, ok := node.(map[string]any)
	if !ok {
		return nil
	}

	children := make([]childEntry, 0, len(m))
	for k, v := range m {
		children = append(children, childEntry{key: k, value: v})
	}

	sort.SliceStable(children, func(i, j int) bool {
		a := childField(children[i].value, orderChild)
		b := childField(children[j].value, orderChild)
		if c := compareValues(a, b); c != 0 {
			return c < 0
		}
		return children[i].key < children[j].key
	})
	return children
}

func toNodes(children []childEntry) ([]Node, error) {
	nodes := make([]Node, 0, len(children))
	for _, c := range children {
		raw, err := json.Marshal(c.value)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, Node{Key: c.key, Raw: raw})
	}
	return nodes, nil
}

func childField(v any, field string) any {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return m[field]
}

// compareValues orders JSON values the way the hosted store does:
// absent/null first, then booleans (false before true), then numbers,
// then strings, then objects.
func compareValues(a, b any) int {
	ra, rb := valueRank(a), valueRank(b)
	if ra != rb {
		return ra - rb
	}
	switch va := a.(type) {
	case float64:
		vb := b.(float64)
		switch {
		case va < vb:
			return -1
		case va > vb:
			return 1
		}
	case string:
		return strings.Compare(va, b.(string))
	}
	return 0
}

func valueRank(v any) int {
	switch t := v.(type) {
	case nil:
		return 0
	case bool:
		if !t {
			return 1
		}
		return 2
	case float64:
		return 3
	case string:
		return 4
	default:
		return 5
	}
}

// lookup walks the tree; caller holds the lock.
func (s *MemoryStore) lookup(parts []string) (any, bool) {
	var node any = s.root
	for _, p := range parts {
		m, ok := node.(map[string]any)
		if !ok {
			return nil, false
		}
		node, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return node, true
}

// setNode writes (or deletes, when val is nil) the node at parts, creating
// intermediate maps and pruning emptied ones; caller holds the lock.
func (s *MemoryStore) setNode(parts []string, val any) {
	setChild(s.root, parts, val)
}

func setChild(m map[string]any, parts []string, val any) {
	if len(parts) == 0 {
		return
	}
	head, rest := parts[0], parts[1:]

	if len(rest) == 0 {
		if val == nil {
			delete(m, head)
		} else {
			m[head] = val
		}
		return
	}

	child, ok := m[head].(map[string]any)
	if !ok {
		if val == nil {
			return
		}
		child = make(map[string]any)
		m[head] = child
	}
	setChild(child, rest, val)
	if len(child) == 0 {
		delete(m, head)
	}
}

func splitPath(path string) []string {
	var parts []string
	for _, p := range strings.Split(path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// toTree converts v into the generic JSON form the tree holds.
func toTree(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode value: %w", err)
	}
	var tree any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("failed to decode value: %w", err)
	}
	return tree, nil
}
