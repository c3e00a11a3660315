// Package event provides the subscriber lists the emulated hardware uses to
// publish its outputs (pixels, sound samples, controller signals and CPU
// states).
package event

// A Hub delivers published values to its subscribers, synchronously and in
// subscription order. A Hub is not safe for concurrent use: all calls must
// come from the goroutine running the emulation.
type Hub[T any] struct {
	subs   []subscriber[T]
	nextID int
}

type subscriber[T any] struct {
	id int
	fn func(T)
}

// Subscribe registers fn and returns a function removing it.
func (h *Hub[T]) Subscribe(fn func(T)) (cancel func()) {
	h.nextID++
	id := h.nextID
	h.subs = append(h.subs, subscriber[T]{id: id, fn: fn})
	return func() { h.unsubscribe(id) }
}

func (h *Hub[T]) unsubscribe(id int) {
	for i, s := range h.subs {
		if s.id == id {
			h.subs = append(h.subs[:i:i], h.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers v to all subscribers.
func (h *Hub[T]) Publish(v T) {
	for _, s := range h.subs {
		s.fn(v)
	}
}

// Active reports whether the hub has at least one subscriber. Producers use
// it to skip building values nobody listens to.
func (h *Hub[T]) Active() bool { return len(h.subs) != 0 }

// Len returns the number of subscribers.
func (h *Hub[T]) Len() int { return len(h.subs) }
