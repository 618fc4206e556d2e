package router

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/glyphgate/internal/model"
	"github.com/ppiankov/glyphgate/internal/symbol"
)

// Defaults for New.
const (
	DefaultHistoryCapacity   = 1000
	DefaultOptimizeThreshold = 100
)

// Router maps symbols to entries and records every routed operation.
//
// The entry table is guarded by a RWMutex: Route takes the read side,
// Optimize and Replace take the write side. History appends are serialized
// by a separate mutex so eviction stays FIFO by arrival.
type Router struct {
	mu        sync.RWMutex
	entries   []Entry
	threshold int
	watermark uint64

	histMu  sync.Mutex
	history *ring
	seq     uint64

	now   func() time.Time
	newID func() string
}

// Option configures a Router.
type Option func(*Router)

// WithHistoryCapacity sets the history bound. Values below 1 are ignored.
func WithHistoryCapacity(n int) Option {
	return func(r *Router) {
		if n > 0 {
			r.history = newRing(n)
		}
	}
}

// WithOptimizeThreshold sets the usage count an entry must exceed to be promoted.
func WithOptimizeThreshold(n int) Option {
	return func(r *Router) { r.threshold = n }
}

// WithClock overrides time.Now for context timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Router) { r.now = now }
}

// WithIDGenerator overrides the operation id source.
func WithIDGenerator(gen func() string) Option {
	return func(r *Router) { r.newID = gen }
}

// New builds a router over entries. Entries are copied.
func New(entries []Entry, opts ...Option) (*Router, error) {
	if err := ValidateEntries(entries); err != nil {
		return nil, err
	}
	r := &Router{
		entries:   append([]Entry(nil), entries...),
		threshold: DefaultOptimizeThreshold,
		history:   newRing(DefaultHistoryCapacity),
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// RouteOptions carries caller-supplied context for RouteWith.
type RouteOptions struct {
	CorrelationHash string
	Environment     map[string]string
}

// Route finds the entry covering sym and records an execution context.
func (r *Router) Route(sym symbol.Symbol) (Entry, error) {
	e, _, err := r.RouteWith(sym, RouteOptions{})
	return e, err
}

// RouteWith is Route with a correlation hash and environment tags, and it
// also returns the recorded context.
func (r *Router) RouteWith(sym symbol.Symbol, opts RouteOptions) (Entry, model.ExecutionContext, error) {
	e, ok := r.lookup(sym)
	if !ok {
		return Entry{}, model.ExecutionContext{}, &NoRouteError{Symbol: sym}
	}

	ctx := model.ExecutionContext{
		OperationID:     r.newID(),
		Symbol:          sym,
		Priority:        e.Priority,
		Timestamp:       r.now().UTC(),
		CorrelationHash: opts.CorrelationHash,
	}
	if len(opts.Environment) > 0 {
		ctx.Environment = make(map[string]string, len(opts.Environment))
		for k, v := range opts.Environment {
			ctx.Environment[k] = v
		}
	}

	r.histMu.Lock()
	r.seq++
	ctx.Seq = r.seq
	r.history.push(ctx)
	r.histMu.Unlock()

	return e, ctx, nil
}

func (r *Router) lookup(sym symbol.Symbol) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.Contains(sym) {
			return e, true
		}
	}
	return Entry{}, false
}

// Promotion records one priority change made by Optimize.
type Promotion struct {
	Target string         `json:"target"`
	Range  string         `json:"range"`
	From   model.Priority `json:"from"`
	To     model.Priority `json:"to"`
	Count  int            `json:"count"`
}

// Optimize promotes every entry whose usage since the previous pass
// exceeds the threshold by one priority step, up to High. Entries already
// at High or Critical are untouched. A second call with no new traffic
// changes nothing.
func (r *Router) Optimize() []Promotion {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make([]int, len(r.entries))
	r.histMu.Lock()
	last := r.watermark
	r.history.each(func(c model.ExecutionContext) {
		if c.Seq <= r.watermark {
			return
		}
		if c.Seq > last {
			last = c.Seq
		}
		for i, e := range r.entries {
			if e.Contains(c.Symbol) {
				counts[i]++
				break
			}
		}
	})
	r.histMu.Unlock()
	r.watermark = last

	var promoted []Promotion
	for i := range r.entries {
		e := &r.entries[i]
		if counts[i] <= r.threshold || e.Priority >= model.PriorityHigh {
			continue
		}
		from := e.Priority
		e.Priority++
		promoted = append(promoted, Promotion{
			Target: e.Target,
			Range:  e.Range(),
			From:   from,
			To:     e.Priority,
			Count:  counts[i],
		})
	}
	return promoted
}

// RangeUsage is the history count for one entry.
type RangeUsage struct {
	Target   string         `json:"target"`
	Range    string         `json:"range"`
	Priority model.Priority `json:"priority"`
	Count    int            `json:"count"`
}

// Stats summarizes the current history.
type Stats struct {
	Total      int                    `json:"total"`
	ByPriority map[model.Priority]int `json:"by_priority"`
	ByRange    []RangeUsage           `json:"by_range"`
}

// Statistics recomputes usage from the history on every call.
func (r *Router) Statistics() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st := Stats{ByPriority: make(map[model.Priority]int)}
	st.ByRange = make([]RangeUsage, len(r.entries))
	for i, e := range r.entries {
		st.ByRange[i] = RangeUsage{Target: e.Target, Range: e.Range(), Priority: e.Priority}
	}

	r.histMu.Lock()
	st.Total = r.history.len()
	r.history.each(func(c model.ExecutionContext) {
		st.ByPriority[c.Priority]++
		for i, e := range r.entries {
			if e.Contains(c.Symbol) {
				st.ByRange[i].Count++
				break
			}
		}
	})
	r.histMu.Unlock()
	return st
}

// History returns a copy of the recorded contexts, oldest first.
func (r *Router) History() []model.ExecutionContext {
	r.histMu.Lock()
	defer r.histMu.Unlock()
	return r.history.snapshot()
}

// Entries returns a copy of the routing table.
func (r *Router) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Entry(nil), r.entries...)
}

// Replace swaps the routing table. History and the optimizer watermark are kept.
func (r *Router) Replace(entries []Entry) error {
	if err := ValidateEntries(entries); err != nil {
		return err
	}
	r.mu.Lock()
	r.entries = append([]Entry(nil), entries...)
	r.mu.Unlock()
	return nil
}

// SetOptimizeThreshold changes the promotion threshold for later Optimize passes.
func (r *Router) SetOptimizeThreshold(n int) {
	r.mu.Lock()
	r.threshold = n
	r.mu.Unlock()
}

// SetHistoryCapacity changes the history bound. Shrinking evicts the oldest
// contexts. Values below 1 are ignored.
func (r *Router) SetHistoryCapacity(n int) {
	if n < 1 {
		return
	}
	r.histMu.Lock()
	if n != len(r.history.buf) {
		r.history = r.history.resize(n)
	}
	r.histMu.Unlock()
}
