package events

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Listener receives routed events. HandleEvent runs on the dispatching goroutine.
type Listener interface {
	HandleEvent(ev Event)
}

// ListenerFunc adapts a function to the Listener interface
type ListenerFunc func(ev Event)

// HandleEvent calls f(ev)
func (f ListenerFunc) HandleEvent(ev Event) {
	f(ev)
}

// Router delivers events to the listeners of every channel the event routes to
type Router struct {
	mu        sync.RWMutex
	listeners map[Channel]map[uint64]Listener
	nextID    uint64

	delivered atomic.Int64
	unrouted  atomic.Int64
}

// NewRouter creates an empty router
func NewRouter() *Router {
	return &Router{listeners: make(map[Channel]map[uint64]Listener)}
}

// Listen registers l on ch and returns a function that removes it.
// The returned function is safe to call more than once.
func (r *Router) Listen(ch Channel, l Listener) func() {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	if r.listeners[ch] == nil {
		r.listeners[ch] = make(map[uint64]Listener)
	}
	r.listeners[ch][id] = l
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			delete(r.listeners[ch], id)
			if len(r.listeners[ch]) == 0 {
				delete(r.listeners, ch)
			}
		})
	}
}

// Dispatch delivers ev to every registration on a matching channel, in
// registration order, and returns the number of deliveries
func (r *Router) Dispatch(ev Event) int {
	routes := Routes(ev)
	if len(routes) == 0 {
		r.unrouted.Add(1)
		return 0
	}

	type target struct {
		id uint64
		l  Listener
	}

	r.mu.RLock()
	var targets []target
	for _, ch := range routes {
		for id, l := range r.listeners[ch] {
			targets = append(targets, target{id: id, l: l})
		}
	}
	r.mu.RUnlock()

	sort.Slice(targets, func(i, j int) bool { return targets[i].id < targets[j].id })
	for _, t := range targets {
		t.l.HandleEvent(ev)
	}
	r.delivered.Add(int64(len(targets)))
	return len(targets)
}

// Channels returns the channels that currently have listeners
func (r *Router) Channels() []Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Channel, 0, len(r.listeners))
	for ch := range r.listeners {
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Stats returns delivery counters
func (r *Router) Stats() map[string]int64 {
	return map[string]int64{
		"delivered": r.delivered.Load(),
		"unrouted":  r.unrouted.Load(),
	}
}
