package changefeed

import (
	"log/slog"
	"sync"
)

type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Event tells subscribers that a row changed. It carries no row data;
// receivers re-fetch whatever they display.
type Event struct {
	Table    string `json:"table"`
	Op       Op     `json:"op"`
	RecordID string `json:"id,omitempty"`
	UserID   string `json:"-"`
}

// Filter selects events. Empty fields match anything.
type Filter struct {
	Table  string
	UserID string
}

func (f Filter) Matches(e Event) bool {
	if f.Table != "" && f.Table != e.Table {
		return false
	}
	if f.UserID != "" && f.UserID != e.UserID {
		return false
	}
	return true
}

type Handler func(Event)

type subscription struct {
	filter  Filter
	handler Handler
}

// Hub fans events out to subscribers inside the process.
type Hub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]subscription
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]subscription)}
}

// Subscribe registers handler for events matching filter. The returned
// function removes the subscription and is safe to call more than once.
func (h *Hub) Subscribe(filter Filter, handler Handler) (unsubscribe func()) {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = subscription{filter: filter, handler: handler}
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

// Publish delivers e to every matching subscriber on its own goroutine.
// A panicking handler is logged and does not affect the others.
func (h *Hub) Publish(e Event) {
	h.mu.RLock()
	var targets []Handler
	for _, s := range h.subs {
		if s.filter.Matches(e) {
			targets = append(targets, s.handler)
		}
	}
	h.mu.RUnlock()

	for _, fn := range targets {
		go deliver(fn, e)
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func deliver(fn Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Change handler panicked", "table", e.Table, "op", e.Op, "panic", r)
		}
	}()
	fn(e)
}
