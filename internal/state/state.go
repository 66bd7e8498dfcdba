// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package state holds the observable {data, error, loading} state of a resolver. Every run
// obtains a generation number from Begin and only the outcome of the latest generation is
// applied, so a slow run that overlaps a newer one can never overwrite fresher results.
package state

import (
	"sync"
	"time"
)

// Snapshot is a point-in-time copy of a Holder.
type Snapshot[T any] struct {
	Data      *T
	Error     string
	Loading   bool
	UpdatedAt time.Time
}

// HasData reports whether the snapshot carries a record.
func (s Snapshot[T]) HasData() bool {
	return s.Data != nil
}

// Holder stores the last known good value of type T together with the error and loading
// state of the newest run.
type Holder[T any] struct {
	mu          sync.RWMutex
	gen         uint64
	data        *T
	err         string
	loading     bool
	updatedAt   time.Time
	subscribers map[chan Snapshot[T]]struct{}
}

// New returns an empty Holder.
func New[T any]() *Holder[T] {
	return &Holder[T]{subscribers: make(map[chan Snapshot[T]]struct{})}
}

// Begin starts a new generation and marks the holder as loading.
func (h *Holder[T]) Begin() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.gen++
	h.loading = true
	h.broadcast()
	return h.gen
}

// Succeed stores value as the new data and clears the error. It returns false and changes
// nothing if gen is not the latest generation.
func (h *Holder[T]) Succeed(gen uint64, value T) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if gen != h.gen {
		return false
	}
	h.data = &value
	h.err = ""
	h.loading = false
	h.updatedAt = time.Now()
	h.broadcast()
	return true
}

// Fail records err for the generation gen while keeping the last known good data.
func (h *Holder[T]) Fail(gen uint64, err error) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if gen != h.gen {
		return false
	}
	h.err = "unknown error"
	if err != nil {
		h.err = err.Error()
	}
	h.loading = false
	h.broadcast()
	return true
}

// Generation returns the latest issued generation.
func (h *Holder[T]) Generation() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.gen
}

// Snapshot returns a copy of the current state.
func (h *Holder[T]) Snapshot() Snapshot[T] {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snapshot()
}

// Subscribe returns a channel that receives the current snapshot immediately and every change
// after that. Slow subscribers miss intermediate snapshots instead of blocking the holder.
func (h *Holder[T]) Subscribe(buffer int) (<-chan Snapshot[T], func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Snapshot[T], buffer)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	ch <- h.snapshot()
	h.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subscribers, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, unsub
}

func (h *Holder[T]) snapshot() Snapshot[T] {
	snap := Snapshot[T]{
		Error:     h.err,
		Loading:   h.loading,
		UpdatedAt: h.updatedAt,
	}
	if h.data != nil {
		data := *h.data
		snap.Data = &data
	}
	return snap
}

// broadcast must be called with h.mu held.
func (h *Holder[T]) broadcast() {
	if len(h.subscribers) == 0 {
		return
	}
	snap := h.snapshot()
	for ch := range h.subscribers {
		select {
		case ch <- snap:
		default:
		}
	}
}
