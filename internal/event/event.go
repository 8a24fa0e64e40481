// Package event provides a small typed publish/subscribe emitter.
package event

import (
	"sync"

	"github.com/google/uuid"
)

// Listener receives emitted values.
type Listener[T any] func(T)

// Unsubscribe removes a listener. Calling it more than once is a no-op.
type Unsubscribe func()

type subscription[T any] struct {
	id uuid.UUID
	fn Listener[T]
}

// Emitter fans values out to every subscribed listener in subscription order.
// Listeners run synchronously on the emitting goroutine.
type Emitter[T any] struct {
	mu     sync.Mutex
	subs   []subscription[T]
	closed bool
}

// NewEmitter creates an emitter.
func NewEmitter[T any]() *Emitter[T] {
	return &Emitter[T]{}
}

// Subscribe adds fn. Subscribing to a closed emitter returns a no-op Unsubscribe.
func (e *Emitter[T]) Subscribe(fn Listener[T]) Unsubscribe {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return func() {}
	}
	id := uuid.New()
	e.subs = append(e.subs, subscription[T]{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { e.remove(id) })
	}
}

func (e *Emitter[T]) remove(id uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, s := range e.subs {
		if s.id == id {
			e.subs = append(e.subs[:i:i], e.subs[i+1:]...)
			return
		}
	}
}

// Emit delivers v to the listeners subscribed at the time of the call.
func (e *Emitter[T]) Emit(v T) {
	e.mu.Lock()
	subs := make([]subscription[T], len(e.subs))
	copy(subs, e.subs)
	e.mu.Unlock()

	for _, s := range subs {
		s.fn(v)
	}
}

// Len returns the number of listeners.
func (e *Emitter[T]) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.subs)
}

// Close drops every listener and rejects new ones.
func (e *Emitter[T]) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subs = nil
	e.closed = true
}

// Any calls fn whenever either emitter fires.
func Any[A, B any](a *Emitter[A], b *Emitter[B], fn func()) Unsubscribe {
	ua := a.Subscribe(func(A) { fn() })
	ub := b.Subscribe(func(B) { fn() })
	return func() {
		ua()
		ub()
	}
}

// Bag collects teardown callbacks and runs them once, in reverse order.
type Bag struct {
	mu   sync.Mutex
	fns  []func()
	done bool
}

// Add registers fn. If the bag was already disposed fn runs immediately.
func (b *Bag) Add(fn func()) {
	b.mu.Lock()
	if b.done {
		b.mu.Unlock()
		fn()
		return
	}
	b.fns = append(b.fns, fn)
	b.mu.Unlock()
}

// Dispose runs every registered callback exactly once.
func (b *Bag) Dispose() {
	b.mu.Lock()
	if b.done {
		b.mu.Unlock()
		return
	}
	b.done = true
	fns := b.fns
	b.fns = nil
	b.mu.Unlock()

	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
