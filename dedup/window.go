// Package dedup provides a bounded window of recently seen values for
// suppressing near duplicates in a stream.
package dedup

import (
	"errors"
	"fmt"

	"github.com/eapache/queue"
)

// DefaultCapacity is the window size used by NewDefault.
const DefaultCapacity = 1000

// ErrInvalidCapacity is returned by New for a capacity below one.
var ErrInvalidCapacity = errors.New("capacity must be positive")

// Window remembers the last Capacity distinct values added to it. When full,
// adding a new value forgets the oldest one. The zero value is not usable.
// A Window is not safe for concurrent use.
type Window[T comparable] struct {
	order    *queue.Queue
	members  map[T]struct{}
	capacity int
}

// New returns an empty window holding at most capacity values.
func New[T comparable](capacity int) (*Window[T], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	return &Window[T]{
		order:    queue.New(),
		members:  make(map[T]struct{}, capacity),
		capacity: capacity,
	}, nil
}

// NewDefault returns an empty window of DefaultCapacity.
func NewDefault[T comparable]() *Window[T] {
	w, _ := New[T](DefaultCapacity)
	return w
}

// Add records v. It reports false, leaving the window unchanged, when v is
// already present.
func (w *Window[T]) Add(v T) bool {
	if _, ok := w.members[v]; ok {
		return false
	}
	if w.order.Length() >= w.capacity {
		oldest := w.order.Remove().(T)
		delete(w.members, oldest)
	}
	w.order.Add(v)
	w.members[v] = struct{}{}
	return true
}

// Contains reports whether v is in the window.
func (w *Window[T]) Contains(v T) bool {
	_, ok := w.members[v]
	return ok
}

// Len returns the number of values in the window.
func (w *Window[T]) Len() int { return w.order.Length() }

// Capacity returns the maximum number of values held.
func (w *Window[T]) Capacity() int { return w.capacity }
