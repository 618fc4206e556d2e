package router

import "github.com/ppiankov/glyphgate/internal/model"

// ring is a fixed-capacity FIFO of execution contexts. Not safe for
// concurrent use; the router serializes access.
type ring struct {
	buf   []model.ExecutionContext
	start int
	n     int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]model.ExecutionContext, capacity)}
}

// push appends c, evicting the oldest entry when full.
func (r *ring) push(c model.ExecutionContext) {
	if len(r.buf) == 0 {
		return
	}
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = c
		r.n++
		return
	}
	r.buf[r.start] = c
	r.start = (r.start + 1) % len(r.buf)
}

func (r *ring) len() int { return r.n }

// each calls fn for every context in arrival order.
func (r *ring) each(fn func(model.ExecutionContext)) {
	for i := 0; i < r.n; i++ {
		fn(r.buf[(r.start+i)%len(r.buf)])
	}
}

func (r *ring) snapshot() []model.ExecutionContext {
	out := make([]model.ExecutionContext, 0, r.n)
	r.each(func(c model.ExecutionContext) { out = append(out, c) })
	return out
}

// resize returns a ring of the given capacity holding the most recent
// contexts of r in arrival order.
func (r *ring) resize(capacity int) *ring {
	out := newRing(capacity)
	skip := r.n - capacity
	i := 0
	r.each(func(c model.ExecutionContext) {
		if i >= skip {
			out.push(c)
		}
		i++
	})
	return out
}
