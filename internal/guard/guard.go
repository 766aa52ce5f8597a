// Package guard provides exclusive access to a value shared between the
// control loop and HTTP handlers.
//
// Callers that need more than one guard at a time must acquire them in a
// fixed order (lock actuator before hinge sensor).
package guard

import "sync"

// Guard owns a value and serialises every access to it.
type Guard[T any] struct {
	mu sync.Mutex
	v  T
}

// New wraps v. The caller must not keep other references to v.
func New[T any](v T) *Guard[T] {
	return &Guard[T]{v: v}
}

// Do runs fn with exclusive access to the value. The guard is released when
// fn returns, including on panic. fn must not retain the value.
func (g *Guard[T]) Do(fn func(T) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fn(g.v)
}
