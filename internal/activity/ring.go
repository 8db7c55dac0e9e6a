package activity

import "iter"

// Ring is a fixed-capacity list that evicts its oldest entry when full
type Ring[T any] struct {
	buf   []T
	start int
	size  int
}

// NewRing creates a ring holding at most capacity entries (minimum 1)
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

func (r *Ring[T]) Len() int { return r.size }
func (r *Ring[T]) Cap() int { return len(r.buf) }

// Push appends v, overwriting the oldest entry when the ring is full
func (r *Ring[T]) Push(v T) {
	if r.size < len(r.buf) {
		r.buf[(r.start+r.size)%len(r.buf)] = v
		r.size++
		return
	}
	r.buf[r.start] = v
	r.start = (r.start + 1) % len(r.buf)
}

// At returns the i-th entry, 0 being the oldest
func (r *Ring[T]) At(i int) T {
	return r.buf[(r.start+i)%len(r.buf)]
}

// Last returns a pointer to the newest entry so it can be completed in place
func (r *Ring[T]) Last() (*T, bool) {
	if r.size == 0 {
		return nil, false
	}
	return &r.buf[(r.start+r.size-1)%len(r.buf)], true
}

// Items copies the entries out, oldest first
func (r *Ring[T]) Items() []T {
	out := make([]T, r.size)
	for i := range r.size {
		out[i] = r.At(i)
	}
	return out
}

// Backward yields entries newest first; stop early to keep window scans cheap
func (r *Ring[T]) Backward() iter.Seq[T] {
	return func(yield func(T) bool) {
		for i := r.size - 1; i >= 0; i-- {
			if !yield(r.At(i)) {
				return
			}
		}
	}
}

func (r *Ring[T]) Reset() {
	clear(r.buf)
	r.start = 0
	r.size = 0
}
