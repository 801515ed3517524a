// Package store persists screenshots, notes and settings in a key-value store.
//
// Every write replaces whole keys: a repository reads the latest value, edits
// it in memory and writes it back. Concurrent writers to the same key are
// resolved last-writer-wins.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrStorageFailure wraps every read or write failure of a backend.
	ErrStorageFailure = errors.New("storage failure")
	// ErrNotFound is returned when a record id does not exist.
	ErrNotFound = errors.New("record not found")
)

// KV is the persistent store contract. Get returns only keys that exist.
type KV interface {
	Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error)
	Set(ctx context.Context, values map[string]any) error
	Remove(ctx context.Context, keys ...string) error
}

// Change describes one key that changed. A nil NewValue means removal.
type Change struct {
	Key      string
	OldValue json.RawMessage
	NewValue json.RawMessage
}

// ChangeFunc receives batches of changes, one batch per write.
type ChangeFunc func([]Change)

// Observable is implemented by stores that publish change notifications.
type Observable interface {
	OnChanged(fn ChangeFunc) (cancel func())
}

// listeners is the subscriber list shared by the backends.
type listeners struct {
	mu   sync.Mutex
	next int
	fns  map[int]ChangeFunc
}

func (l *listeners) add(fn ChangeFunc) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[int]ChangeFunc)
	}
	id := l.next
	l.next++
	l.fns[id] = fn
	return func() {
		l.mu.Lock()
		delete(l.fns, id)
		l.mu.Unlock()
	}
}

func (l *listeners) emit(changes []Change) {
	if len(changes) == 0 {
		return
	}
	l.mu.Lock()
	ids := make([]int, 0, len(l.fns))
	for id := range l.fns {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]ChangeFunc, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, l.fns[id])
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(changes)
	}
}

// diff compares two snapshots key by key, in key order.
func diff(before, after map[string]json.RawMessage) []Change {
	keys := make(map[string]struct{}, len(before)+len(after))
	for k := range before {
		keys[k] = struct{}{}
	}
	for k := range after {
		keys[k] = struct{}{}
	}
	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	var changes []Change
	for _, k := range sorted {
		o, n := before[k], after[k]
		if bytes.Equal(o, n) {
			continue
		}
		changes = append(changes, Change{Key: k, OldValue: o, NewValue: n})
	}
	return changes
}

func encodeValues(values map[string]any) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(values))
	for k, v := range values {
		if raw, ok := v.(json.RawMessage); ok {
			if !json.Valid(raw) {
				return nil, fmt.Errorf("%w: key %q holds invalid JSON", ErrStorageFailure, k)
			}
			out[k] = raw
			continue
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: encode %q: %v", ErrStorageFailure, k, err)
		}
		out[k] = data
	}
	return out, nil
}

// Memory is an in-process KV, used by tests and by the serve command when no
// data file is configured.
type Memory struct {
	mu     sync.RWMutex
	values map[string]json.RawMessage
	subs   listeners
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]json.RawMessage)}
}

// Get implements KV.
func (m *Memory) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]json.RawMessage, len(keys))
	for _, k := range keys {
		if v, ok := m.values[k]; ok {
			out[k] = append(json.RawMessage(nil), v...)
		}
	}
	return out, nil
}

// Set implements KV.
func (m *Memory) Set(ctx context.Context, values map[string]any) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	encoded, err := encodeValues(values)
	if err != nil {
		return err
	}

	m.mu.Lock()
	before := make(map[string]json.RawMessage, len(encoded))
	after := make(map[string]json.RawMessage, len(encoded))
	for k, v := range encoded {
		before[k] = m.values[k]
		m.values[k] = v
		after[k] = v
	}
	m.mu.Unlock()

	m.subs.emit(diff(before, after))
	return nil
}

// Remove implements KV.
func (m *Memory) Remove(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	m.mu.Lock()
	before := make(map[string]json.RawMessage, len(keys))
	for _, k := range keys {
		if v, ok := m.values[k]; ok {
			before[k] = v
			delete(m.values, k)
		}
	}
	m.mu.Unlock()

	m.subs.emit(diff(before, nil))
	return nil
}

// OnChanged implements Observable.
func (m *Memory) OnChanged(fn ChangeFunc) func() {
	return m.subs.add(fn)
}

// getJSON reads one key into dst. It reports false when the key is absent.
func getJSON(ctx context.Context, kv KV, key string, dst any) (bool, error) {
	values, err := kv.Get(ctx, key)
	if err != nil {
		return false, err
	}
	raw, ok := values[key]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("%w: decode %q: %v", ErrStorageFailure, key, err)
	}
	return true, nil
}
