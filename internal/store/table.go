package store

import (
	"sync"
	"sync/atomic"
)

// table is a lock-guarded keyed collection that hands out clones only
type table[T any] struct {
	mu    sync.RWMutex
	items map[string]T
	order []string
	clone func(T) T

	reads  *int64
	writes *int64
}

func newTable[T any](clone func(T) T, reads, writes *int64) *table[T] {
	return &table[T]{
		items:  make(map[string]T),
		clone:  clone,
		reads:  reads,
		writes: writes,
	}
}

func (t *table[T]) get(key string) (T, bool) {
	atomic.AddInt64(t.reads, 1)
	t.mu.RLock()
	defer t.mu.RUnlock()

	v, ok := t.items[key]
	if !ok {
		var zero T
		return zero, false
	}
	return t.clone(v), true
}

func (t *table[T]) has(key string) bool {
	t.mu.RLock()
	_, ok := t.items[key]
	t.mu.RUnlock()
	return ok
}

// list returns clones in insertion order
func (t *table[T]) list() []T {
	atomic.AddInt64(t.reads, 1)
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]T, 0, len(t.order))
	for _, key := range t.order {
		out = append(out, t.clone(t.items[key]))
	}
	return out
}

func (t *table[T]) len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.items)
}

// insert adds v under key unless the key is taken
func (t *table[T]) insert(key string, v T) bool {
	atomic.AddInt64(t.writes, 1)
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.items[key]; exists {
		return false
	}
	t.items[key] = v
	t.order = append(t.order, key)
	return true
}

// put inserts or replaces v, keeping the original position on replace
func (t *table[T]) put(key string, v T) {
	atomic.AddInt64(t.writes, 1)
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.items[key]; !exists {
		t.order = append(t.order, key)
	}
	t.items[key] = v
}

// update runs fn on the live entry under the write lock. fn reports whether it changed anything.
func (t *table[T]) update(key string, fn func(T) bool) (snapshot T, changed bool, found bool) {
	atomic.AddInt64(t.writes, 1)
	t.mu.Lock()
	defer t.mu.Unlock()

	v, ok := t.items[key]
	if !ok {
		return snapshot, false, false
	}
	changed = fn(v)
	return t.clone(v), changed, true
}

// upsert updates the entry when present, otherwise inserts the value produced by create
func (t *table[T]) upsert(key string, create func() T, fn func(T) bool) (snapshot T, inserted bool) {
	atomic.AddInt64(t.writes, 1)
	t.mu.Lock()
	defer t.mu.Unlock()

	if v, ok := t.items[key]; ok {
		fn(v)
		return t.clone(v), false
	}
	v := create()
	t.items[key] = v
	t.order = append(t.order, key)
	return t.clone(v), true
}

func (t *table[T]) remove(key string) bool {
	atomic.AddInt64(t.writes, 1)
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.items[key]; !ok {
		return false
	}
	delete(t.items, key)
	for i, k := range t.order {
		if k == key {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return true
}
